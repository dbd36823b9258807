package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/usecase"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memstore"
)

func TestProductUseCase_CrearYDuplicado(t *testing.T) {
	uc := usecase.NewProductUseCase(memstore.New().Repositories().Products)
	ctx := context.Background()

	p, err := uc.Create(ctx, dto.CreateProductRequest{SKU: " TEA-01 ", Name: "Té", UnitPrice: decimal.NewFromInt(12)})
	require.NoError(t, err)
	assert.Equal(t, "TEA-01", p.SKU)
	assert.Equal(t, "unit", p.UnitMeasure)
	assert.True(t, p.Active)

	_, err = uc.Create(ctx, dto.CreateProductRequest{SKU: "TEA-01", Name: "Otro"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = uc.Create(ctx, dto.CreateProductRequest{SKU: "NEG", Name: "x", CostPrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProductUseCase_ActualizarYListar(t *testing.T) {
	uc := usecase.NewProductUseCase(memstore.New().Repositories().Products)
	ctx := context.Background()
	a, err := uc.Create(ctx, dto.CreateProductRequest{SKU: "B-2", Name: "B"})
	require.NoError(t, err)
	_, err = uc.Create(ctx, dto.CreateProductRequest{SKU: "A-1", Name: "A"})
	require.NoError(t, err)

	inactive := false
	name := "B renombrado"
	upd, err := uc.Update(ctx, a.ID, dto.UpdateProductRequest{Name: &name, Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, name, upd.Name)
	assert.False(t, upd.Active)

	all, err := uc.List(ctx, false, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	assert.Equal(t, "A-1", all.Items[0].SKU)
	assert.Equal(t, 20, all.Page.Limit)

	active, err := uc.List(ctx, true, dto.PageRequest{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, active.Items, 1)

	neg := int64(-1)
	_, err = uc.Update(ctx, a.ID, dto.UpdateProductRequest{ReorderLevel: &neg})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = uc.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWarehouseUseCase(t *testing.T) {
	uc := usecase.NewWarehouseUseCase(memstore.New().Warehouses())
	ctx := context.Background()

	w, err := uc.Create(ctx, dto.CreateWarehouseRequest{Name: "Norte", Capacity: 100})
	require.NoError(t, err)
	_, err = uc.Create(ctx, dto.CreateWarehouseRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	loc := "Medellín"
	upd, err := uc.Update(ctx, w.ID, dto.UpdateWarehouseRequest{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, "Medellín", upd.Location)
	assert.Equal(t, int64(100), upd.Capacity)

	got, err := uc.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Norte", got.Name)

	list, err := uc.List(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)

	_, err = uc.Update(ctx, "00000000-0000-0000-0000-000000000000", dto.UpdateWarehouseRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
