package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
type CreateProductRequest struct {
	SKU          string          `json:"sku" validate:"required,min=1,max=100"`
	Name         string          `json:"name" validate:"required,min=1,max=200"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	ReorderLevel int64           `json:"reorder_level"`
	UnitMeasure  string          `json:"unit_measure"`
}

// UpdateProductRequest entrada para actualizar un producto (sin costo: se recalcula en las entradas).
type UpdateProductRequest struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description  *string          `json:"description"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	ReorderLevel *int64           `json:"reorder_level"`
	UnitMeasure  *string          `json:"unit_measure"`
	Active       *bool            `json:"active"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID                string          `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	ReorderLevel      int64           `json:"reorder_level"`
	UnitMeasure       string          `json:"unit_measure"`
	Active            bool            `json:"active"`
	Velocity7d        float64         `json:"velocity_7d"`
	Velocity14d       float64         `json:"velocity_14d"`
	Velocity30d       float64         `json:"velocity_30d"`
	VelocityUpdatedAt *time.Time      `json:"velocity_updated_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
