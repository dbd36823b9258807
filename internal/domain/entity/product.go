package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del catálogo.
// CostPrice se actualiza por promedio ponderado en las entradas; el stock vive por bodega en StockLevel.
// Las velocidades las escribe el recálculo periódico y no se editan desde el catálogo.
type Product struct {
	ID                string
	SKU               string // único
	Name              string
	Description       string
	UnitPrice         decimal.Decimal // precio de venta
	CostPrice         decimal.Decimal // costo promedio ponderado
	ReorderLevel      int64
	UnitMeasure       string
	Active            bool
	Velocity7d        float64 // unidades vendidas por día, ventana de 7 días
	Velocity14d       float64
	Velocity30d       float64
	VelocityUpdatedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
