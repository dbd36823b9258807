package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/pkg/daterange"
)

// salesLookbackDays ventana de ventas usada para priorizar la lista.
const salesLookbackDays = 90

// ReplenishmentUseCase genera la lista de reposición: productos con disponible bajo su punto
// de reorden, con la cantidad sugerida de pedido y un ranking de prioridad.
type ReplenishmentUseCase struct {
	stockRepo repository.StockRepository
	orderRepo repository.OrderRepository
	now       func() time.Time
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(stockRepo repository.StockRepository, orderRepo repository.OrderRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{
		stockRepo: stockRepo,
		orderRepo: orderRepo,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GenerateReplenishmentList warehouseID vacío considera el stock total de todas las bodegas.
// Orden: mayor margen unitario, luego más unidades vendidas en 90 días, luego mayor déficit.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, warehouseID string) (*dto.ReplenishmentListResponse, error) {
	now := uc.now()
	out := &dto.ReplenishmentListResponse{
		GeneratedAt: now,
		WarehouseID: warehouseID,
		Items:       []dto.ReplenishmentSuggestion{},
	}

	// 1. Productos bajo el punto de reorden
	items, err := uc.stockRepo.BelowReorderPoint(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return out, nil
	}

	// 2. Ventas recientes por producto
	from, to := daterange.TrailingWindow(now, salesLookbackDays)
	sold, err := uc.orderRepo.UnitsSoldByProduct(ctx, from, to)
	if err != nil {
		return nil, err
	}

	// 3. Sugerencias
	hundred := decimal.NewFromInt(100)
	for _, it := range items {
		ideal := IdealStock(it.ParLevel, it.ReorderPoint)
		suggested := max(ideal-it.Available(), 0)

		var margin decimal.Decimal
		if it.UnitPrice.IsPositive() {
			margin = it.UnitPrice.Sub(it.CostPrice).Div(it.UnitPrice).Mul(hundred).Round(2)
		}
		out.Items = append(out.Items, dto.ReplenishmentSuggestion{
			ProductID:          it.ProductID,
			SKU:                it.SKU,
			ProductName:        it.Name,
			Quantity:           it.Quantity,
			Available:          it.Available(),
			ReorderPoint:       it.ReorderPoint,
			ParLevel:           it.ParLevel,
			IdealStock:         ideal,
			SuggestedOrderQty:  suggested,
			UnitCost:           it.CostPrice,
			EstimatedOrderCost: it.CostPrice.Mul(decimal.NewFromInt(suggested)),
			GrossMarginPct:     margin,
			UnitsSoldLast90d:   sold[it.ProductID],
		})
	}

	// 4. Prioridad
	sort.SliceStable(out.Items, func(i, j int) bool {
		a, b := out.Items[i], out.Items[j]
		if !a.GrossMarginPct.Equal(b.GrossMarginPct) {
			return a.GrossMarginPct.GreaterThan(b.GrossMarginPct)
		}
		if a.UnitsSoldLast90d != b.UnitsSoldLast90d {
			return a.UnitsSoldLast90d > b.UnitsSoldLast90d
		}
		return a.ReorderPoint-a.Available > b.ReorderPoint-b.Available
	})
	for i := range out.Items {
		out.Items[i].Priority = i + 1
		out.TotalEstimatedCost = out.TotalEstimatedCost.Add(out.Items[i].EstimatedOrderCost)
	}
	return out, nil
}

// IdealStock nivel al que se repone: el par level si supera el punto de reorden,
// si no 1.5 veces el punto de reorden redondeado hacia arriba.
func IdealStock(parLevel, reorderPoint int64) int64 {
	if parLevel > reorderPoint {
		return parLevel
	}
	return (3*reorderPoint + 1) / 2
}
