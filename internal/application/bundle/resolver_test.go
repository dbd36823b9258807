package bundle_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/bundle"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memstore"
)

const (
	teaID    = "11111111-1111-1111-1111-111111111111"
	mugID    = "22222222-2222-2222-2222-222222222222"
	giftID   = "bbbbbbbb-0000-0000-0000-000000000001"
	emptyID  = "bbbbbbbb-0000-0000-0000-000000000002"
	mainWh   = "aaaaaaaa-0000-0000-0000-000000000001"
	secondWh = "aaaaaaaa-0000-0000-0000-000000000002"
)

func newResolver(t *testing.T) *bundle.Resolver {
	t.Helper()
	store := memstore.New()
	store.AddProduct(&entity.Product{ID: teaID, SKU: "TEA-01", Active: true, CostPrice: decimal.RequireFromString("4.25")})
	store.AddProduct(&entity.Product{ID: mugID, SKU: "MUG-02", Active: true, CostPrice: decimal.NewFromInt(7)})
	store.AddBundle(&entity.Bundle{
		ID: giftID, SKU: "GIFT-01", Name: "Caja regalo", Active: true,
		Components: []entity.BundleComponent{
			{ProductID: mugID, QuantityPerBundle: 1, Position: 2},
			{ProductID: teaID, QuantityPerBundle: 3, Position: 1},
		},
	})
	store.AddBundle(&entity.Bundle{ID: emptyID, SKU: "EMPTY", Active: true})
	store.SetStock(entity.StockLevel{ProductID: teaID, WarehouseID: mainWh, Quantity: 10, Reserved: 1})
	store.SetStock(entity.StockLevel{ProductID: teaID, WarehouseID: secondWh, Quantity: 6})
	store.SetStock(entity.StockLevel{ProductID: mugID, WarehouseID: mainWh, Quantity: 5})
	repos := store.Repositories()
	return bundle.NewResolver(store.Bundles(), repos.Stock, repos.Products)
}

func TestAvailability_MinimoEntreComponentes(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	// todas las bodegas: té 15/3 = 5, taza 5/1 = 5
	n, err := r.Availability(ctx, giftID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// bodega principal: té 9/3 = 3
	n, err = r.Availability(ctx, giftID, mainWh)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// sin tazas en la segunda bodega
	n, err = r.Availability(ctx, giftID, secondWh)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAvailability_SinComponentesEsCero(t *testing.T) {
	n, err := newResolver(t).Availability(context.Background(), emptyID, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCost_SumaPonderada(t *testing.T) {
	cost, err := newResolver(t).Cost(context.Background(), giftID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("19.75").Equal(cost), cost.String())
}

func TestGet_ComponentesEnOrden(t *testing.T) {
	b, err := newResolver(t).Get(context.Background(), giftID, "")
	require.NoError(t, err)
	require.Len(t, b.Components, 2)
	assert.Equal(t, teaID, b.Components[0].ProductID)
	assert.Equal(t, int64(15), b.Components[0].Available)
	assert.Equal(t, int64(5), b.Availability)
	assert.True(t, decimal.RequireFromString("19.75").Equal(b.Cost))
}

func TestBundleInexistente(t *testing.T) {
	r := newResolver(t)
	_, err := r.Get(context.Background(), "bbbbbbbb-0000-0000-0000-000000000009", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.Cost(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
