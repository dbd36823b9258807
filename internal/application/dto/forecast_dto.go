package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunwayResponse pronóstico de agotamiento de un producto (sumado sobre bodegas).
type RunwayResponse struct {
	ProductID  string  `json:"product_id"`
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Quantity   int64   `json:"quantity"`
	Reserved   int64   `json:"reserved"`
	Available  int64   `json:"available"`
	ParLevel   int64   `json:"par_level"`
	Velocity7d float64 `json:"velocity_7d"`
	// RunwayDays con RunwayInfinite=true vale 999 (velocidad cero, sin agotamiento previsible)
	RunwayDays     int        `json:"runway_days"`
	RunwayInfinite bool       `json:"runway_infinite"`
	StockoutDate   *time.Time `json:"stockout_date,omitempty"`
	Status         string     `json:"status"` // critical | warning | healthy
}

// RunwayReportResponse listado ordenado por severidad y luego por runway.
type RunwayReportResponse struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Items       []RunwayResponse `json:"items"`
	Critical    int              `json:"critical"`
	Warning     int              `json:"warning"`
	Healthy     int              `json:"healthy"`
}

// VelocityRecomputeResponse resultado del recálculo batch.
type VelocityRecomputeResponse struct {
	ProductsUpdated int       `json:"products_updated"`
	ComputedAt      time.Time `json:"computed_at"`
	Skipped         bool      `json:"skipped,omitempty"` // otra réplica tiene el lock
}

// ReplenishmentSuggestion producto a reponer. IdealStock es el par level si supera el
// punto de reorden, si no 1.5 veces el punto de reorden.
type ReplenishmentSuggestion struct {
	ProductID          string          `json:"product_id"`
	SKU                string          `json:"sku"`
	ProductName        string          `json:"product_name"`
	Quantity           int64           `json:"quantity"`
	Available          int64           `json:"available"`
	ReorderPoint       int64           `json:"reorder_point"`
	ParLevel           int64           `json:"par_level"`
	IdealStock         int64           `json:"ideal_stock"`
	SuggestedOrderQty  int64           `json:"suggested_order_qty"` // IdealStock - Available
	UnitCost           decimal.Decimal `json:"unit_cost"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"`
	GrossMarginPct     decimal.Decimal `json:"gross_margin_pct"`
	UnitsSoldLast90d   int64           `json:"units_sold_last_90d"`
	Priority           int             `json:"priority"` // 1 = más urgente
}

// ReplenishmentListResponse lista de reposición; warehouse_id vacío = todas las bodegas.
type ReplenishmentListResponse struct {
	GeneratedAt        time.Time                 `json:"generated_at"`
	WarehouseID        string                    `json:"warehouse_id,omitempty"`
	Items              []ReplenishmentSuggestion `json:"items"`
	TotalEstimatedCost decimal.Decimal           `json:"total_estimated_cost"`
}
