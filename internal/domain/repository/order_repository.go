package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// OrderRepository puerto de órdenes importadas.
type OrderRepository interface {
	// Upsert inserta o actualiza por order_number y reemplaza las líneas.
	// Devuelve created=true solo cuando la orden no existía. Completa order.ID.
	Upsert(ctx context.Context, order *entity.Order) (created bool, err error)
	// GetByNumber devuelve (nil, nil) si no existe.
	GetByNumber(ctx context.Context, orderNumber string) (*entity.Order, error)
	// UnitsSoldByProduct unidades vendidas por producto en órdenes no canceladas con placed_at en [from, to).
	UnitsSoldByProduct(ctx context.Context, from, to time.Time) (map[string]int64, error)
}

// ProcessedEventRepository registro de efectos de inventario ya aplicados por (orden, evento).
type ProcessedEventRepository interface {
	// TryMark inserta la marca; devuelve false si ya existía. Debe correr en la misma tx que el efecto.
	TryMark(ctx context.Context, orderID string, eventType entity.OrderEventType) (bool, error)
	Exists(ctx context.Context, orderID string, eventType entity.OrderEventType) (bool, error)
}

// ImportLogRepository puerto de bitácoras de importación.
type ImportLogRepository interface {
	Create(ctx context.Context, log *entity.ImportLog) error
	Update(ctx context.Context, log *entity.ImportLog) error
	GetByID(ctx context.Context, id string) (*entity.ImportLog, error)
}
