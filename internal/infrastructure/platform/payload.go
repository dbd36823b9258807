package platform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/application/importer"
	"github.com/jhoicas/stockledger-api/internal/application/orders"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// Payload REST de una orden tal como llega en los webhooks orders/*.
type webhookOrder struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	OrderNumber       int64      `json:"order_number"`
	Email             string     `json:"email"`
	Currency          string     `json:"currency"`
	SubtotalPrice     string     `json:"subtotal_price"`
	TotalTax          string     `json:"total_tax"`
	TotalPrice        string     `json:"total_price"`
	TotalShippingSet  *moneySet  `json:"total_shipping_price_set"`
	FinancialStatus   string     `json:"financial_status"`
	FulfillmentStatus *string    `json:"fulfillment_status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ProcessedAt       *time.Time `json:"processed_at"`
	CancelledAt       *time.Time `json:"cancelled_at"`
	Customer          *struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	} `json:"customer"`
	LineItems []struct {
		SKU      string `json:"sku"`
		Quantity int64  `json:"quantity"`
		Price    string `json:"price"`
	} `json:"line_items"`
}

type moneySet struct {
	ShopMoney struct {
		Amount string `json:"amount"`
	} `json:"shop_money"`
}

// ParseWebhookOrder convierte el cuerpo de un webhook de orden al registro normalizado.
func ParseWebhookOrder(body []byte) (orders.NormalizedOrder, error) {
	var w webhookOrder
	if err := json.Unmarshal(body, &w); err != nil {
		return orders.NormalizedOrder{}, fmt.Errorf("%w: payload de orden: %v", domain.ErrInvalidInput, err)
	}
	m := moneyParser{}
	out := orders.NormalizedOrder{
		OrderNumber:   orderNumber(w.Name, w.OrderNumber),
		Currency:      w.Currency,
		Subtotal:      m.parse(w.SubtotalPrice),
		TaxTotal:      m.parse(w.TotalTax),
		Total:         m.parse(w.TotalPrice),
		PlacedAt:      w.CreatedAt,
		CancelledAt:   w.CancelledAt,
		CustomerEmail: w.Email,
	}
	if w.ID != 0 {
		out.PlatformID = strconv.FormatInt(w.ID, 10)
	}
	if w.ProcessedAt != nil {
		out.PlacedAt = *w.ProcessedAt
	}
	if w.TotalShippingSet != nil {
		out.ShippingTotal = m.parse(w.TotalShippingSet.ShopMoney.Amount)
	}
	if w.Customer != nil {
		out.CustomerName = strings.TrimSpace(w.Customer.FirstName + " " + w.Customer.LastName)
		if out.CustomerEmail == "" {
			out.CustomerEmail = w.Customer.Email
		}
	}
	fulfillment := ""
	if w.FulfillmentStatus != nil {
		fulfillment = *w.FulfillmentStatus
	}
	out.Status = orderStatus(w.FinancialStatus, w.CancelledAt)
	out.FulfillmentStatus = fulfillmentStatus(fulfillment)
	if out.FulfillmentStatus == entity.FulfillmentFulfilled && !w.UpdatedAt.IsZero() {
		t := w.UpdatedAt
		out.FulfilledAt = &t
	}
	for _, li := range w.LineItems {
		out.LineItems = append(out.LineItems, orders.NormalizedLineItem{
			SKU:       strings.TrimSpace(li.SKU),
			Quantity:  li.Quantity,
			UnitPrice: m.parse(li.Price),
		})
	}
	if m.err != nil {
		return orders.NormalizedOrder{}, m.err
	}
	return out, nil
}

// EventForTopic traduce el tópico del webhook ("create", "orders/fulfilled", ...) al evento.
func EventForTopic(topic string) (entity.OrderEventType, bool) {
	switch strings.TrimPrefix(strings.ToLower(topic), "orders/") {
	case "create", "created":
		return entity.OrderEventCreated, true
	case "updated", "update":
		return entity.OrderEventUpdated, true
	case "fulfilled":
		return entity.OrderEventFulfilled, true
	case "cancelled":
		return entity.OrderEventCancelled, true
	}
	return "", false
}

// Nodos del JSONL de la exportación masiva.
type bulkMoney struct {
	ShopMoney struct {
		Amount string `json:"amount"`
	} `json:"shopMoney"`
}

type bulkNode struct {
	ID                       string     `json:"id"`
	ParentID                 string     `json:"__parentId"`
	Name                     string     `json:"name"`
	CreatedAt                time.Time  `json:"createdAt"`
	ProcessedAt              *time.Time `json:"processedAt"`
	CancelledAt              *time.Time `json:"cancelledAt"`
	ClosedAt                 *time.Time `json:"closedAt"`
	DisplayFinancialStatus   string     `json:"displayFinancialStatus"`
	DisplayFulfillmentStatus string     `json:"displayFulfillmentStatus"`
	CurrencyCode             string     `json:"currencyCode"`
	SubtotalPriceSet         *bulkMoney `json:"subtotalPriceSet"`
	TotalTaxSet              *bulkMoney `json:"totalTaxSet"`
	TotalShippingPriceSet    *bulkMoney `json:"totalShippingPriceSet"`
	TotalPriceSet            *bulkMoney `json:"totalPriceSet"`
	Customer                 *struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"customer"`
	// línea de orden
	SKU                  string     `json:"sku"`
	Quantity             int64      `json:"quantity"`
	OriginalUnitPriceSet *bulkMoney `json:"originalUnitPriceSet"`
}

// bulkAssembler agrupa la orden con las líneas que la siguen.
type bulkAssembler struct {
	current *importer.Record
	orderID string
	parser  moneyParser
}

func newBulkAssembler() *bulkAssembler {
	return &bulkAssembler{}
}

// push procesa una línea; devuelve la orden anterior cuando empieza una nueva.
func (a *bulkAssembler) push(line int, raw []byte) (importer.Record, bool) {
	var n bulkNode
	if err := json.Unmarshal(raw, &n); err != nil {
		prev, ok := a.flush()
		a.current = &importer.Record{Line: line, Err: fmt.Errorf("%w: línea %d: %v", domain.ErrInvalidInput, line, err)}
		return prev, ok
	}

	if n.ParentID != "" {
		if a.current == nil || n.ParentID != a.orderID {
			// línea huérfana, su orden no vino antes
			return importer.Record{}, false
		}
		a.current.Order.LineItems = append(a.current.Order.LineItems, orders.NormalizedLineItem{
			SKU:       strings.TrimSpace(n.SKU),
			Quantity:  n.Quantity,
			UnitPrice: a.parser.parse(amount(n.OriginalUnitPriceSet)),
		})
		return importer.Record{}, false
	}

	prev, ok := a.flush()
	a.orderID = n.ID
	a.current = &importer.Record{Line: line, Order: a.order(n)}
	return prev, ok
}

// flush devuelve la orden en curso, si hay.
func (a *bulkAssembler) flush() (importer.Record, bool) {
	if a.current == nil {
		return importer.Record{}, false
	}
	rec := *a.current
	if rec.Err == nil && a.parser.err != nil {
		rec.Err = a.parser.err
	}
	a.current, a.orderID, a.parser = nil, "", moneyParser{}
	return rec, true
}

func (a *bulkAssembler) order(n bulkNode) orders.NormalizedOrder {
	out := orders.NormalizedOrder{
		OrderNumber:       orderNumber(n.Name, 0),
		PlatformID:        n.ID,
		Status:            orderStatus(n.DisplayFinancialStatus, n.CancelledAt),
		FulfillmentStatus: fulfillmentStatus(n.DisplayFulfillmentStatus),
		Currency:          n.CurrencyCode,
		Subtotal:          a.parser.parse(amount(n.SubtotalPriceSet)),
		TaxTotal:          a.parser.parse(amount(n.TotalTaxSet)),
		ShippingTotal:     a.parser.parse(amount(n.TotalShippingPriceSet)),
		Total:             a.parser.parse(amount(n.TotalPriceSet)),
		PlacedAt:          n.CreatedAt,
		CancelledAt:       n.CancelledAt,
	}
	if n.ProcessedAt != nil {
		out.PlacedAt = *n.ProcessedAt
	}
	if out.FulfillmentStatus == entity.FulfillmentFulfilled && n.ClosedAt != nil {
		out.FulfilledAt = n.ClosedAt
	}
	if n.Customer != nil {
		out.CustomerName = n.Customer.DisplayName
		out.CustomerEmail = n.Customer.Email
	}
	return out
}

func amount(m *bulkMoney) string {
	if m == nil {
		return ""
	}
	return m.ShopMoney.Amount
}

// moneyParser guarda el primer error de conversión para no cortar cada llamada.
type moneyParser struct {
	err error
}

func (p *moneyParser) parse(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("%w: monto %q", domain.ErrInvalidInput, s)
		}
		return decimal.Zero
	}
	return d
}

func orderNumber(name string, number int64) string {
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "#"))
	if name != "" {
		return name
	}
	if number > 0 {
		return strconv.FormatInt(number, 10)
	}
	return ""
}

func orderStatus(financial string, cancelledAt *time.Time) string {
	if cancelledAt != nil {
		return entity.OrderStatusCancelled
	}
	switch strings.ToLower(financial) {
	case "paid", "partially_paid":
		return entity.OrderStatusPaid
	case "refunded", "partially_refunded":
		return entity.OrderStatusRefunded
	case "voided":
		return entity.OrderStatusCancelled
	default:
		return entity.OrderStatusPending
	}
}

func fulfillmentStatus(s string) string {
	switch strings.ToLower(s) {
	case "fulfilled":
		return entity.FulfillmentFulfilled
	case "partial", "partially_fulfilled":
		return entity.FulfillmentPartial
	default:
		return entity.FulfillmentUnfulfilled
	}
}
