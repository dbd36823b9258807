package dto

import "github.com/shopspring/decimal"

// BundleComponentResponse componente con su aporte a la disponibilidad.
type BundleComponentResponse struct {
	ProductID         string          `json:"product_id"`
	QuantityPerBundle int64           `json:"quantity_per_bundle"`
	Available         int64           `json:"available"`
	CostPrice         decimal.Decimal `json:"cost_price"`
}

// BundleResponse bundle con valores derivados.
type BundleResponse struct {
	ID           string                    `json:"id"`
	SKU          string                    `json:"sku"`
	Name         string                    `json:"name"`
	Category     string                    `json:"category,omitempty"`
	Active       bool                      `json:"active"`
	Components   []BundleComponentResponse `json:"components"`
	Availability int64                     `json:"availability"`
	Cost         decimal.Decimal           `json:"cost"`
}

// BundleAvailabilityResponse GET /api/bundles/:id/availability.
type BundleAvailabilityResponse struct {
	BundleID     string `json:"bundle_id"`
	WarehouseID  string `json:"warehouse_id,omitempty"`
	Availability int64  `json:"availability"`
}

// BundleCostResponse GET /api/bundles/:id/cost.
type BundleCostResponse struct {
	BundleID string          `json:"bundle_id"`
	Cost     decimal.Decimal `json:"cost"`
}

// BundleComponentRequest producto y cantidad por bundle; el orden de la lista fija la posición.
type BundleComponentRequest struct {
	ProductID         string `json:"product_id" validate:"required,uuid"`
	QuantityPerBundle int64  `json:"quantity_per_bundle" validate:"gt=0"`
}

// CreateBundleRequest entrada para crear un bundle activo.
type CreateBundleRequest struct {
	SKU        string                   `json:"sku" validate:"required,min=1,max=100"`
	Name       string                   `json:"name" validate:"required,min=1,max=200"`
	Category   string                   `json:"category"`
	Components []BundleComponentRequest `json:"components" validate:"required,min=1"`
}

// UpdateBundleRequest campos nil no cambian; components presente reemplaza la lista completa.
type UpdateBundleRequest struct {
	Name       *string                  `json:"name" validate:"omitempty,min=1,max=200"`
	Category   *string                  `json:"category"`
	Active     *bool                    `json:"active"`
	Components []BundleComponentRequest `json:"components"`
}
