package entity

import "time"

// StockLevel es la entrada del libro de stock para un producto en una bodega.
// Invariantes: Quantity >= 0 y 0 <= Reserved <= Quantity. Available se deriva, nunca se guarda
// desde la aplicación (en PostgreSQL es una columna generada).
type StockLevel struct {
	ProductID     string
	WarehouseID   string
	Quantity      int64 // conteo físico
	Reserved      int64 // comprometido con órdenes abiertas
	ParLevel      int64
	ReorderPoint  int64
	LastCountedAt *time.Time
	UpdatedAt     time.Time
}

// Available devuelve el saldo vendible (Quantity - Reserved).
func (s *StockLevel) Available() int64 {
	return s.Quantity - s.Reserved
}

// Valid verifica las invariantes del libro.
func (s *StockLevel) Valid() bool {
	return s.Quantity >= 0 && s.Reserved >= 0 && s.Reserved <= s.Quantity
}

// NewStockLevel entrada en cero para el primer toque de un par producto/bodega.
func NewStockLevel(productID, warehouseID string) *StockLevel {
	return &StockLevel{ProductID: productID, WarehouseID: warehouseID}
}
