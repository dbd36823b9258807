package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost implementa el costo promedio ponderado de una entrada (servicio de dominio).
// NuevoCosto = ((Existencia * CostoActual) + (CantEntrada * CostoEntrada)) / (Existencia + CantEntrada)
// Una existencia negativa o en cero no aporta al promedio: el costo pasa a ser el de la entrada.
func WeightedAverageCost(onHand int64, currentCost decimal.Decimal, received int64, unitCost decimal.Decimal) decimal.Decimal {
	if onHand < 0 {
		onHand = 0
	}
	if received <= 0 {
		return currentCost
	}
	stock := decimal.NewFromInt(onHand)
	in := decimal.NewFromInt(received)
	sum := stock.Add(in)
	num := stock.Mul(currentCost).Add(in.Mul(unitCost))
	return num.Div(sum).Round(4)
}
