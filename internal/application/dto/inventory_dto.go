package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// StockOperationRequest body para POST /api/inventory/{reserve,release,deduct}.
// WarehouseID vacío = bodega por defecto.
type StockOperationRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id,omitempty"`
	Quantity    int64  `json:"quantity"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// AdjustRequest body para POST /api/inventory/adjust.
type AdjustRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Mode        string `json:"mode"` // add | remove | set
	Quantity    int64  `json:"quantity"`
	Note        string `json:"note,omitempty"`
}

// ReceiveRequest body para POST /api/inventory/receive.
type ReceiveRequest struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ReferenceID string          `json:"reference_id,omitempty"`
}

// StockTargetsRequest body para PUT /api/inventory/stock/{product_id}/{warehouse_id}/targets.
type StockTargetsRequest struct {
	ParLevel     int64 `json:"par_level"`
	ReorderPoint int64 `json:"reorder_point"`
}

// StockLevelResponse entrada del libro.
type StockLevelResponse struct {
	ProductID     string     `json:"product_id"`
	WarehouseID   string     `json:"warehouse_id"`
	Quantity      int64      `json:"quantity"`
	Reserved      int64      `json:"reserved"`
	Available     int64      `json:"available"`
	ParLevel      int64      `json:"par_level"`
	ReorderPoint  int64      `json:"reorder_point"`
	LastCountedAt *time.Time `json:"last_counted_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ToStockLevelResponse mapea la entidad a la respuesta.
func ToStockLevelResponse(l *entity.StockLevel) StockLevelResponse {
	return StockLevelResponse{
		ProductID:     l.ProductID,
		WarehouseID:   l.WarehouseID,
		Quantity:      l.Quantity,
		Reserved:      l.Reserved,
		Available:     l.Available(),
		ParLevel:      l.ParLevel,
		ReorderPoint:  l.ReorderPoint,
		LastCountedAt: l.LastCountedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

// MovementResponse registro del diario.
type MovementResponse struct {
	ID            string                 `json:"id"`
	ProductID     string                 `json:"product_id"`
	WarehouseID   string                 `json:"warehouse_id"`
	Type          string                 `json:"type"`
	Delta         int64                  `json:"delta"`
	QuantityAfter int64                  `json:"quantity_after"`
	ReservedAfter int64                  `json:"reserved_after"`
	ReferenceType string                 `json:"reference_type,omitempty"`
	ReferenceID   string                 `json:"reference_id,omitempty"`
	Actor         string                 `json:"actor,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	Details       entity.MovementDetails `json:"details,omitempty" swaggertype:"object"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ToMovementResponse mapea la entidad a la respuesta.
func ToMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		ProductID:     m.ProductID,
		WarehouseID:   m.WarehouseID,
		Type:          string(m.Type),
		Delta:         m.Delta,
		QuantityAfter: m.QuantityAfter,
		ReservedAfter: m.ReservedAfter,
		ReferenceType: string(m.ReferenceType),
		ReferenceID:   m.ReferenceID,
		Actor:         m.Actor,
		Notes:         m.Notes,
		Details:       m.Details,
		CreatedAt:     m.CreatedAt,
	}
}

// MovementListResponse página del diario.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ReconcileResponse cantidad del libro contra la suma del diario.
type ReconcileResponse struct {
	ProductID      string `json:"product_id"`
	WarehouseID    string `json:"warehouse_id"`
	LedgerQuantity int64  `json:"ledger_quantity"`
	MovementSum    int64  `json:"movement_sum"`
	Difference     int64  `json:"difference"`
	Consistent     bool   `json:"consistent"`
}
