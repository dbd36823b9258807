package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// NormalizedOrder registro de orden independiente de la plataforma de origen
// (webhook, exportación masiva o CSV).
type NormalizedOrder struct {
	OrderNumber       string
	PlatformID        string
	Status            string
	FulfillmentStatus string
	Currency          string
	Subtotal          decimal.Decimal
	TaxTotal          decimal.Decimal
	ShippingTotal     decimal.Decimal
	Total             decimal.Decimal
	PlacedAt          time.Time
	FulfilledAt       *time.Time
	CancelledAt       *time.Time
	CustomerName      string
	CustomerEmail     string
	LineItems         []NormalizedLineItem
}

// NormalizedLineItem línea de la orden identificada por SKU.
type NormalizedLineItem struct {
	SKU       string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Validate reglas mínimas para aceptar el registro.
func (o NormalizedOrder) Validate() error {
	if strings.TrimSpace(o.OrderNumber) == "" {
		return fmt.Errorf("%w: order_number vacío", domain.ErrInvalidInput)
	}
	if o.PlacedAt.IsZero() {
		return fmt.Errorf("%w: orden %s sin placed_at", domain.ErrInvalidInput, o.OrderNumber)
	}
	for i, li := range o.LineItems {
		if li.Quantity <= 0 {
			return fmt.Errorf("%w: orden %s línea %d con cantidad %d", domain.ErrInvalidInput, o.OrderNumber, i+1, li.Quantity)
		}
		if li.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: orden %s línea %d con precio negativo", domain.ErrInvalidInput, o.OrderNumber, i+1)
		}
	}
	return nil
}

// SKUs distintos y no vacíos de las líneas.
func (o NormalizedOrder) SKUs() []string {
	seen := make(map[string]struct{}, len(o.LineItems))
	out := make([]string, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		sku := strings.TrimSpace(li.SKU)
		if sku == "" {
			continue
		}
		if _, ok := seen[sku]; ok {
			continue
		}
		seen[sku] = struct{}{}
		out = append(out, sku)
	}
	return out
}

// toEntity arma la orden con los product_id resueltos; SKUs sin coincidencia quedan con ProductID nil.
func (o NormalizedOrder) toEntity(productBySKU map[string]string, now time.Time) *entity.Order {
	status := o.Status
	if status == "" {
		status = entity.OrderStatusPending
	}
	fulfillment := o.FulfillmentStatus
	if fulfillment == "" {
		fulfillment = entity.FulfillmentUnfulfilled
	}
	order := &entity.Order{
		OrderNumber:       strings.TrimSpace(o.OrderNumber),
		PlatformID:        o.PlatformID,
		Status:            status,
		FulfillmentStatus: fulfillment,
		Currency:          o.Currency,
		Subtotal:          o.Subtotal,
		TaxTotal:          o.TaxTotal,
		ShippingTotal:     o.ShippingTotal,
		Total:             o.Total,
		CustomerName:      o.CustomerName,
		CustomerEmail:     o.CustomerEmail,
		PlacedAt:          o.PlacedAt.UTC(),
		FulfilledAt:       utcPtr(o.FulfilledAt),
		CancelledAt:       utcPtr(o.CancelledAt),
		LineItems:         make([]entity.OrderLineItem, 0, len(o.LineItems)),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, li := range o.LineItems {
		sku := strings.TrimSpace(li.SKU)
		item := entity.OrderLineItem{SKU: sku, Quantity: li.Quantity, UnitPrice: li.UnitPrice}
		if id, ok := productBySKU[sku]; ok {
			pid := id
			item.ProductID = &pid
		}
		order.LineItems = append(order.LineItems, item)
	}
	return order
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
