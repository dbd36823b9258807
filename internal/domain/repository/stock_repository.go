package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// ProductStockSummary stock de un producto sumado sobre todas sus bodegas.
type ProductStockSummary struct {
	ProductID  string
	SKU        string
	Name       string
	Quantity   int64
	Reserved   int64
	ParLevel   int64
	Velocity7d float64
}

// Available saldo vendible agregado.
func (s ProductStockSummary) Available() int64 { return s.Quantity - s.Reserved }

// ReplenishmentItem producto con disponible bajo su punto de reorden. Con bodega vacía las
// cantidades y metas vienen sumadas sobre todas las bodegas.
type ReplenishmentItem struct {
	ProductID    string
	SKU          string
	Name         string
	WarehouseID  string
	Quantity     int64
	Reserved     int64
	ParLevel     int64
	ReorderPoint int64
	UnitPrice    decimal.Decimal
	CostPrice    decimal.Decimal
}

// Available saldo vendible.
func (i ReplenishmentItem) Available() int64 { return i.Quantity - i.Reserved }

// StockRepository define el puerto del libro de stock por bodega+producto.
// Las mutaciones se hacen dentro de transacciones (ver inventory.TxRunner).
type StockRepository interface {
	// Get devuelve (nil, nil) si el par no tiene entrada.
	Get(ctx context.Context, productID, warehouseID string) (*entity.StockLevel, error)
	// GetForUpdate crea la entrada en cero si no existe y bloquea la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.StockLevel, error)
	// Save escribe quantity, reserved y last_counted_at de una entrada ya bloqueada.
	Save(ctx context.Context, level *entity.StockLevel) error
	// SetTargets fija par_level y reorder_point del par, creando la entrada en cero si falta.
	// No toca quantity ni reserved.
	SetTargets(ctx context.Context, productID, warehouseID string, parLevel, reorderPoint int64) (*entity.StockLevel, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockLevel, error)
	ListByWarehouse(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.StockLevel, error)
	// AvailableByProducts product_id -> disponible; solo incluye productos con entrada.
	// warehouseID vacío suma todas las bodegas.
	AvailableByProducts(ctx context.Context, productIDs []string, warehouseID string) (map[string]int64, error)
	// BelowReorderPoint productos activos con reorder_point > 0 y disponible < reorder_point.
	// warehouseID vacío evalúa el total de todas las bodegas.
	BelowReorderPoint(ctx context.Context, warehouseID string) ([]ReplenishmentItem, error)
	// Summaries agregados por producto activo; productID vacío = todos.
	Summaries(ctx context.Context, productID string) ([]ProductStockSummary, error)
}
