package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// BundleAvailability cantidad de bundles completos armables:
// min sobre componentes de floor(disponible / cantidad por bundle).
// available solo contiene los productos con entrada en el libro; un componente ausente vale 0.
// Sin componentes el resultado es 0.
func BundleAvailability(components []entity.BundleComponent, available map[string]int64) int64 {
	if len(components) == 0 {
		return 0
	}
	var result int64 = -1
	for _, c := range components {
		if c.QuantityPerBundle <= 0 {
			return 0
		}
		avail, ok := available[c.ProductID]
		if !ok || avail <= 0 {
			return 0
		}
		buildable := avail / c.QuantityPerBundle
		if result < 0 || buildable < result {
			result = buildable
		}
	}
	return result
}

// BundleCost suma de costo * cantidad por bundle. Un componente sin costo conocido suma cero.
func BundleCost(components []entity.BundleComponent, costs map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, c := range components {
		cost, ok := costs[c.ProductID]
		if !ok {
			continue
		}
		total = total.Add(cost.Mul(decimal.NewFromInt(c.QuantityPerBundle)))
	}
	return total
}
