package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo órdenes importadas con sus líneas.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Upsert debe correr dentro de una tx (usa varias sentencias).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// Upsert inserta o actualiza por order_number y reemplaza las líneas.
// xmax = 0 distingue una fila recién insertada de una actualizada. Los estados terminales
// guardados se conservan (mismas reglas que entity.Order.MergeStored) y la fila combinada
// se devuelve sobre o.
func (r *OrderRepo) Upsert(ctx context.Context, o *entity.Order) (bool, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	var (
		id       string
		inserted bool
	)
	err := r.q.QueryRow(ctx, `
		INSERT INTO orders (id, order_number, platform_id, status, fulfillment_status, currency,
			subtotal, tax_total, shipping_total, total, customer_name, customer_email,
			placed_at, fulfilled_at, cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		ON CONFLICT (order_number) DO UPDATE SET
			platform_id = EXCLUDED.platform_id,
			status = CASE
				WHEN orders.status = 'cancelled' OR orders.cancelled_at IS NOT NULL THEN 'cancelled'
				WHEN orders.status = 'refunded' AND EXCLUDED.status <> 'cancelled' THEN 'refunded'
				ELSE EXCLUDED.status
			END,
			fulfillment_status = CASE
				WHEN orders.fulfillment_status = 'fulfilled' THEN 'fulfilled'
				ELSE EXCLUDED.fulfillment_status
			END,
			currency = EXCLUDED.currency,
			subtotal = EXCLUDED.subtotal,
			tax_total = EXCLUDED.tax_total,
			shipping_total = EXCLUDED.shipping_total,
			total = EXCLUDED.total,
			customer_name = EXCLUDED.customer_name,
			customer_email = EXCLUDED.customer_email,
			placed_at = EXCLUDED.placed_at,
			fulfilled_at = COALESCE(EXCLUDED.fulfilled_at, orders.fulfilled_at),
			cancelled_at = COALESCE(EXCLUDED.cancelled_at, orders.cancelled_at),
			updated_at = EXCLUDED.updated_at
		RETURNING id, (xmax = 0), status, fulfillment_status, fulfilled_at, cancelled_at`,
		o.ID, o.OrderNumber, o.PlatformID, o.Status, o.FulfillmentStatus, o.Currency,
		o.Subtotal, o.TaxTotal, o.ShippingTotal, o.Total, o.CustomerName, o.CustomerEmail,
		o.PlacedAt, o.FulfilledAt, o.CancelledAt, o.UpdatedAt,
	).Scan(&id, &inserted, &o.Status, &o.FulfillmentStatus, &o.FulfilledAt, &o.CancelledAt)
	if err != nil {
		return false, wrapErr("upsert order", err)
	}
	o.ID = id

	if _, err := r.q.Exec(ctx, `DELETE FROM order_line_items WHERE order_id = $1`, id); err != nil {
		return false, wrapErr("replace order lines", err)
	}
	for i := range o.LineItems {
		li := &o.LineItems[i]
		li.ID = uuid.New().String()
		li.OrderID = id
		if _, err := r.q.Exec(ctx, `
			INSERT INTO order_line_items (id, order_id, sku, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			li.ID, li.OrderID, li.SKU, li.ProductID, li.Quantity, li.UnitPrice); err != nil {
			return false, wrapErr("insert order line", err)
		}
	}
	return inserted, nil
}

// GetByNumber orden con líneas; (nil, nil) si no existe.
func (r *OrderRepo) GetByNumber(ctx context.Context, orderNumber string) (*entity.Order, error) {
	var o entity.Order
	err := r.q.QueryRow(ctx, `
		SELECT id, order_number, platform_id, status, fulfillment_status, currency,
		       subtotal, tax_total, shipping_total, total, customer_name, customer_email,
		       placed_at, fulfilled_at, cancelled_at, created_at, updated_at
		FROM orders WHERE order_number = $1`, orderNumber).Scan(
		&o.ID, &o.OrderNumber, &o.PlatformID, &o.Status, &o.FulfillmentStatus, &o.Currency,
		&o.Subtotal, &o.TaxTotal, &o.ShippingTotal, &o.Total, &o.CustomerName, &o.CustomerEmail,
		&o.PlacedAt, &o.FulfilledAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get order", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, sku, product_id, quantity, unit_price
		FROM order_line_items WHERE order_id = $1 ORDER BY sku, id`, o.ID)
	if err != nil {
		return nil, wrapErr("get order lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var li entity.OrderLineItem
		if err := rows.Scan(&li.ID, &li.OrderID, &li.SKU, &li.ProductID, &li.Quantity, &li.UnitPrice); err != nil {
			return nil, wrapErr("get order lines", err)
		}
		o.LineItems = append(o.LineItems, li)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("get order lines", err)
	}
	return &o, nil
}

// UnitsSoldByProduct unidades por producto de órdenes no canceladas con placed_at en [from, to).
func (r *OrderRepo) UnitsSoldByProduct(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT li.product_id, SUM(li.quantity)::bigint
		FROM order_line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE li.product_id IS NOT NULL
		  AND o.status <> 'cancelled' AND o.cancelled_at IS NULL
		  AND o.placed_at >= $1 AND o.placed_at < $2
		GROUP BY li.product_id`, from, to)
	if err != nil {
		return nil, wrapErr("units sold", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var units int64
		if err := rows.Scan(&id, &units); err != nil {
			return nil, wrapErr("units sold", err)
		}
		out[id] = units
	}
	return out, wrapErr("units sold", rows.Err())
}

var _ repository.ProcessedEventRepository = (*ProcessedEventRepo)(nil)

// ProcessedEventRepo marcas de idempotencia de efectos de inventario por (orden, evento).
type ProcessedEventRepo struct {
	q Querier
}

// NewProcessedEventRepository construye el adaptador.
func NewProcessedEventRepository(q Querier) *ProcessedEventRepo {
	return &ProcessedEventRepo{q: q}
}

// TryMark inserta la marca; false si ya existía. Dentro de la tx de la orden, dos entregas
// concurrentes del mismo evento se serializan en la clave primaria.
func (r *ProcessedEventRepo) TryMark(ctx context.Context, orderID string, eventType entity.OrderEventType) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO processed_events (order_id, event_type, processed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (order_id, event_type) DO NOTHING`, orderID, string(eventType))
	if err != nil {
		return false, wrapErr("mark processed event", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Exists indica si el efecto de (orden, evento) ya se aplicó.
func (r *ProcessedEventRepo) Exists(ctx context.Context, orderID string, eventType entity.OrderEventType) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM processed_events WHERE order_id = $1 AND event_type = $2)`,
		orderID, string(eventType)).Scan(&exists)
	if err != nil {
		return false, wrapErr("check processed event", err)
	}
	return exists, nil
}
