package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// MovementFilter filtros del diario; campos vacíos no filtran.
type MovementFilter struct {
	ProductID   string
	WarehouseID string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// HeldReservation reserva que una referencia mantiene en un par producto+bodega.
type HeldReservation struct {
	ProductID   string
	WarehouseID string
	Quantity    int64
}

// StockMovementRepository puerto del diario de movimientos (solo inserción y lectura).
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	// List devuelve la página ordenada por fecha descendente y el total de filas del filtro.
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, int, error)
	// SumQuantityDeltas suma los Delta de movimientos que afectan la cantidad física del par.
	SumQuantityDeltas(ctx context.Context, productID, warehouseID string) (int64, error)
	// HeldByReference reserva neta aún retenida por la referencia: reservas menos liberaciones
	// menos lo consumido por despachos. Solo pares con saldo positivo, por product_id y warehouse_id.
	HeldByReference(ctx context.Context, refType entity.ReferenceType, refID string) ([]HeldReservation, error)
}
