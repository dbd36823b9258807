package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memstore"
)

const (
	mugID      = "33333333-3333-3333-3333-333333333333"
	jarID      = "44444444-4444-4444-4444-444444444444"
	warehouse2 = "55555555-5555-5555-5555-555555555555"
)

func replenishmentStore(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	store.AddWarehouse(warehouse, "Principal")
	store.AddWarehouse(warehouse2, "Secundaria")
	// margen 50%
	store.AddProduct(&entity.Product{ID: productA, SKU: "TEA-01", Name: "Té", Active: true,
		UnitPrice: decimal.NewFromInt(20), CostPrice: decimal.NewFromInt(10)})
	// margen 75%
	store.AddProduct(&entity.Product{ID: mugID, SKU: "MUG-02", Name: "Taza", Active: true,
		UnitPrice: decimal.NewFromInt(40), CostPrice: decimal.NewFromInt(10)})
	store.AddProduct(&entity.Product{ID: jarID, SKU: "JAR-03", Name: "Frasco", Active: true,
		UnitPrice: decimal.NewFromInt(20), CostPrice: decimal.NewFromInt(10)})
	return store
}

func TestReplenishment_SoloBajoPuntoDeReordenConSugerido(t *testing.T) {
	store := replenishmentStore(t)
	// té: disponible 4 (6 - 2 reservadas) bajo el punto 10; par 30
	store.SetStock(entity.StockLevel{ProductID: productA, WarehouseID: warehouse, Quantity: 6, Reserved: 2, ParLevel: 30, ReorderPoint: 10})
	// taza: disponible 3 bajo el punto 5; sin par -> ideal 8
	store.SetStock(entity.StockLevel{ProductID: mugID, WarehouseID: warehouse, Quantity: 3, ReorderPoint: 5})
	// frasco: en el punto de reorden, no entra
	store.SetStock(entity.StockLevel{ProductID: jarID, WarehouseID: warehouse, Quantity: 10, ReorderPoint: 10})

	repos := store.Repositories()
	uc := inventory.NewReplenishmentUseCase(repos.Stock, repos.Orders)
	out, err := uc.GenerateReplenishmentList(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, out.Items, 2)

	mug, tea := out.Items[0], out.Items[1]
	assert.Equal(t, "MUG-02", mug.SKU, "mayor margen primero")
	assert.Equal(t, 1, mug.Priority)
	assert.Equal(t, int64(8), mug.IdealStock)
	assert.Equal(t, int64(5), mug.SuggestedOrderQty)
	assert.True(t, decimal.NewFromInt(75).Equal(mug.GrossMarginPct))

	assert.Equal(t, "TEA-01", tea.SKU)
	assert.Equal(t, 2, tea.Priority)
	assert.Equal(t, int64(4), tea.Available)
	assert.Equal(t, int64(30), tea.IdealStock)
	assert.Equal(t, int64(26), tea.SuggestedOrderQty)
	assert.True(t, decimal.NewFromInt(260).Equal(tea.EstimatedOrderCost))
	assert.True(t, decimal.NewFromInt(310).Equal(out.TotalEstimatedCost))
}

func TestReplenishment_EmpateDeMargenPorVentas(t *testing.T) {
	store := replenishmentStore(t)
	store.SetStock(entity.StockLevel{ProductID: productA, WarehouseID: warehouse, Quantity: 1, ReorderPoint: 4})
	store.SetStock(entity.StockLevel{ProductID: jarID, WarehouseID: warehouse, Quantity: 1, ReorderPoint: 4})
	jar := jarID
	store.AddOrder(&entity.Order{
		ID: "o-1", OrderNumber: "o-1", Status: entity.OrderStatusPaid,
		PlacedAt:  time.Now().UTC().AddDate(0, 0, -3),
		LineItems: []entity.OrderLineItem{{SKU: "JAR-03", ProductID: &jar, Quantity: 7}},
	})

	repos := store.Repositories()
	out, err := inventory.NewReplenishmentUseCase(repos.Stock, repos.Orders).GenerateReplenishmentList(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "JAR-03", out.Items[0].SKU)
	assert.Equal(t, int64(7), out.Items[0].UnitsSoldLast90d)
	assert.Equal(t, "TEA-01", out.Items[1].SKU)
}

func TestReplenishment_PorBodega(t *testing.T) {
	store := replenishmentStore(t)
	// en total el té está sobre el punto (2 + 20 >= 10), pero la principal está bajo su punto
	store.SetStock(entity.StockLevel{ProductID: productA, WarehouseID: warehouse, Quantity: 2, ReorderPoint: 5})
	store.SetStock(entity.StockLevel{ProductID: productA, WarehouseID: warehouse2, Quantity: 20, ReorderPoint: 5})

	repos := store.Repositories()
	uc := inventory.NewReplenishmentUseCase(repos.Stock, repos.Orders)

	all, err := uc.GenerateReplenishmentList(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all.Items)

	principal, err := uc.GenerateReplenishmentList(context.Background(), warehouse)
	require.NoError(t, err)
	require.Len(t, principal.Items, 1)
	assert.Equal(t, warehouse, principal.WarehouseID)
	assert.Equal(t, int64(6), principal.Items[0].SuggestedOrderQty, "ideal 1.5 * 5 redondeado = 8")
}

func TestIdealStock(t *testing.T) {
	assert.Equal(t, int64(30), inventory.IdealStock(30, 10))
	assert.Equal(t, int64(15), inventory.IdealStock(0, 10))
	assert.Equal(t, int64(8), inventory.IdealStock(5, 5))
	assert.Equal(t, int64(0), inventory.IdealStock(0, 0))
}

func TestStockTargets_FijaMetasSinTocarCantidades(t *testing.T) {
	store := replenishmentStore(t)
	store.SetStock(entity.StockLevel{ProductID: productA, WarehouseID: warehouse, Quantity: 6, Reserved: 2})
	uc := inventory.NewStockTargetsUseCase(store.Repositories().Stock)

	out, err := uc.SetTargets(context.Background(), productA, warehouse, dto.StockTargetsRequest{ParLevel: 30, ReorderPoint: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(30), out.ParLevel)
	assert.Equal(t, int64(10), out.ReorderPoint)
	assert.Equal(t, int64(6), out.Quantity)
	assert.Equal(t, int64(2), out.Reserved)

	l := store.Stock(productA, warehouse)
	assert.Equal(t, int64(30), l.ParLevel)
	assert.Equal(t, int64(10), l.ReorderPoint)
	assert.Empty(t, store.Movements(), "las metas no generan movimientos")
}

func TestStockTargets_CreaEntradaYValida(t *testing.T) {
	store := replenishmentStore(t)
	uc := inventory.NewStockTargetsUseCase(store.Repositories().Stock)
	ctx := context.Background()

	out, err := uc.SetTargets(ctx, mugID, warehouse2, dto.StockTargetsRequest{ParLevel: 12})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Quantity)
	assert.Equal(t, int64(12), out.ParLevel)

	_, err = uc.SetTargets(ctx, mugID, warehouse, dto.StockTargetsRequest{ParLevel: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.SetTargets(ctx, mugID, warehouse, dto.StockTargetsRequest{ReorderPoint: -3})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.SetTargets(ctx, "66666666-6666-6666-6666-666666666666", warehouse, dto.StockTargetsRequest{ParLevel: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
