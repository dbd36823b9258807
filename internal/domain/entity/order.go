package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la orden según la plataforma.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusRefunded  = "refunded"
	OrderStatusCancelled = "cancelled"
)

// Estados de despacho.
const (
	FulfillmentUnfulfilled = "unfulfilled"
	FulfillmentPartial     = "partial"
	FulfillmentFulfilled   = "fulfilled"
)

// Order orden importada de la plataforma de e-commerce. La clave natural es OrderNumber.
type Order struct {
	ID                string
	OrderNumber       string
	PlatformID        string
	Status            string
	FulfillmentStatus string
	Currency          string
	Subtotal          decimal.Decimal
	TaxTotal          decimal.Decimal
	ShippingTotal     decimal.Decimal
	Total             decimal.Decimal
	CustomerName      string
	CustomerEmail     string
	PlacedAt          time.Time
	FulfilledAt       *time.Time
	CancelledAt       *time.Time
	LineItems         []OrderLineItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Cancelled indica si la orden está cancelada (por estado o por fecha de cancelación).
func (o *Order) Cancelled() bool {
	return o.Status == OrderStatusCancelled || o.CancelledAt != nil
}

// MergeStored combina la orden entrante con la versión ya guardada: los eventos pueden llegar
// desordenados y un payload viejo no hace retroceder un estado terminal (cancelada, reembolsada,
// despachada) ni borra las fechas de despacho o cancelación.
func (o *Order) MergeStored(prev *Order) {
	switch {
	case prev.Cancelled():
		o.Status = OrderStatusCancelled
	case prev.Status == OrderStatusRefunded && o.Status != OrderStatusCancelled:
		o.Status = OrderStatusRefunded
	}
	if prev.FulfillmentStatus == FulfillmentFulfilled {
		o.FulfillmentStatus = FulfillmentFulfilled
	}
	if o.FulfilledAt == nil {
		o.FulfilledAt = prev.FulfilledAt
	}
	if o.CancelledAt == nil {
		o.CancelledAt = prev.CancelledAt
	}
}

// OrderLineItem línea de la orden. ProductID es nil cuando el SKU no coincide con el catálogo;
// esas líneas se guardan pero no afectan inventario.
type OrderLineItem struct {
	ID        string
	OrderID   string
	SKU       string
	ProductID *string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Subtotal cantidad * precio unitario.
func (l OrderLineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// OrderEventType evento del ciclo de vida de la orden que llega por webhook.
type OrderEventType string

const (
	OrderEventCreated   OrderEventType = "created"
	OrderEventUpdated   OrderEventType = "updated"
	OrderEventFulfilled OrderEventType = "fulfilled"
	OrderEventCancelled OrderEventType = "cancelled"
)

// Valid indica si el tipo de evento es conocido.
func (e OrderEventType) Valid() bool {
	switch e {
	case OrderEventCreated, OrderEventUpdated, OrderEventFulfilled, OrderEventCancelled:
		return true
	}
	return false
}

// ProcessedEvent marca que el efecto de inventario de (orden, evento) ya se aplicó.
type ProcessedEvent struct {
	OrderID     string
	EventType   OrderEventType
	ProcessedAt time.Time
}
