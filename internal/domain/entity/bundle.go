package entity

import "time"

// Bundle SKU compuesto armado con cantidades fijas de productos componentes.
// Disponibilidad y costo nunca se guardan: se derivan de los componentes.
type Bundle struct {
	ID         string
	SKU        string
	Name       string
	Category   string
	Active     bool
	Components []BundleComponent // en orden de presentación
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BundleComponent producto y cantidad por bundle (> 0).
type BundleComponent struct {
	ProductID         string
	QuantityPerBundle int64
	Position          int
}

// Sellable un bundle necesita al menos un componente para venderse.
func (b *Bundle) Sellable() bool {
	return b.Active && len(b.Components) > 0
}
