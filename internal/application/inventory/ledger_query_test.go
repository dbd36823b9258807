package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

func TestLedgerQuery_GetStockInexistente(t *testing.T) {
	_, store := newEngine(t, 0, 0)
	repos := store.Repositories()
	uc := inventory.NewLedgerQueryUseCase(repos.Stock, repos.Movements)

	_, err := uc.GetStock(context.Background(), productA, warehouse)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = uc.GetStock(context.Background(), "", warehouse)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedgerQuery_ReconcileConsistenteTrasOperaciones(t *testing.T) {
	engine, store := newEngine(t, 0, 0)
	ctx := context.Background()
	_, err := engine.Adjust(ctx, inventory.AdjustRequest{ProductID: productA, WarehouseID: warehouse, Mode: entity.AdjustAdd, Quantity: 12})
	require.NoError(t, err)
	_, err = engine.Reserve(ctx, inventory.StockRequest{ProductID: productA, Quantity: 5})
	require.NoError(t, err)
	_, err = engine.Deduct(ctx, inventory.StockRequest{ProductID: productA, Quantity: 5})
	require.NoError(t, err)

	repos := store.Repositories()
	uc := inventory.NewLedgerQueryUseCase(repos.Stock, repos.Movements)
	rec, err := uc.Reconcile(ctx, productA, warehouse)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.LedgerQuantity)
	assert.Equal(t, int64(7), rec.MovementSum)
	assert.True(t, rec.Consistent)

	// una escritura fuera del motor rompe la conciliación
	store.SetStock(entity.StockLevel{ProductID: productA, WarehouseID: warehouse, Quantity: 9})
	rec, err = uc.Reconcile(ctx, productA, warehouse)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Difference)
	assert.False(t, rec.Consistent)
}

func TestLedgerQuery_ListMovements(t *testing.T) {
	engine, store := newEngine(t, 10, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := engine.Reserve(ctx, inventory.StockRequest{ProductID: productA, Quantity: 1})
		require.NoError(t, err)
	}
	repos := store.Repositories()
	uc := inventory.NewLedgerQueryUseCase(repos.Stock, repos.Movements)

	out, err := uc.ListMovements(ctx, repository.MovementFilter{ProductID: productA, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, 3, out.Page.Total)
	assert.Equal(t, int64(3), out.Items[0].ReservedAfter)

	from := time.Now().Add(time.Hour)
	to := time.Now()
	_, err = uc.ListMovements(ctx, repository.MovementFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
