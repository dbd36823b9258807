package inventory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memstore"
)

const (
	productA  = "11111111-1111-1111-1111-111111111111"
	warehouse = "22222222-2222-2222-2222-222222222222"
)

func newEngine(t *testing.T, quantity, reserved int64) (*inventory.ReservationEngine, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	store.AddWarehouse(warehouse, "Principal")
	store.AddProduct(&entity.Product{ID: productA, SKU: "TEA-01", Name: "Té", Active: true, CostPrice: decimal.NewFromInt(10)})
	if quantity > 0 || reserved > 0 {
		store.SetStock(entity.StockLevel{ProductID: productA, WarehouseID: warehouse, Quantity: quantity, Reserved: reserved})
	}
	return inventory.NewReservationEngine(store, warehouse, zerolog.Nop()), store
}

func TestReserve_MueveDisponibleAReservado(t *testing.T) {
	engine, store := newEngine(t, 10, 0)

	level, err := engine.Reserve(context.Background(), inventory.StockRequest{ProductID: productA, Quantity: 4, ReferenceType: entity.ReferenceOrder, ReferenceID: "1001"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), level.Quantity)
	assert.Equal(t, int64(4), level.Reserved)
	assert.Equal(t, int64(6), level.Available())

	movs := store.Movements()
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementReservation, movs[0].Type)
	assert.Equal(t, int64(4), movs[0].Delta)
	assert.Equal(t, int64(4), movs[0].ReservedAfter)
	assert.Equal(t, entity.ReservationDetails{AvailableBefore: 10}, movs[0].Details)
}

func TestReserve_InsuficienteNoCambiaNada(t *testing.T) {
	engine, store := newEngine(t, 3, 1)

	_, err := engine.Reserve(context.Background(), inventory.StockRequest{ProductID: productA, Quantity: 3})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	level := store.Stock(productA, warehouse)
	assert.Equal(t, int64(3), level.Quantity)
	assert.Equal(t, int64(1), level.Reserved)
	assert.Empty(t, store.Movements())
}

func TestReserve_CantidadInvalida(t *testing.T) {
	engine, _ := newEngine(t, 3, 0)
	_, err := engine.Reserve(context.Background(), inventory.StockRequest{ProductID: productA, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReserve_ProductoInexistente(t *testing.T) {
	engine, _ := newEngine(t, 0, 0)
	_, err := engine.Reserve(context.Background(), inventory.StockRequest{ProductID: "33333333-3333-3333-3333-333333333333", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReserve_ConcurrenteNuncaSobrevende(t *testing.T) {
	engine, store := newEngine(t, 10, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, insufficient := 0, 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Reserve(context.Background(), inventory.StockRequest{ProductID: productA, Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, domain.ErrInsufficientStock) {
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 15, insufficient)
	level := store.Stock(productA, warehouse)
	assert.Equal(t, int64(10), level.Reserved)
	assert.True(t, level.Valid())
}

func TestRelease_RecortaALoReservado(t *testing.T) {
	engine, store := newEngine(t, 10, 2)

	level, err := engine.Release(context.Background(), inventory.StockRequest{ProductID: productA, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Reserved)

	movs := store.Movements()
	require.Len(t, movs, 1)
	assert.Equal(t, int64(-2), movs[0].Delta)
	assert.Equal(t, entity.ReleaseDetails{Requested: 5, Clamped: true}, movs[0].Details)
}

func TestDeduct_ConsumeReservaYRecortaEnCero(t *testing.T) {
	engine, store := newEngine(t, 3, 2)

	level, err := engine.Deduct(context.Background(), inventory.StockRequest{ProductID: productA, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Quantity)
	assert.Equal(t, int64(0), level.Reserved)

	movs := store.Movements()
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementOutbound, movs[0].Type)
	assert.Equal(t, int64(-3), movs[0].Delta)
	assert.Equal(t, entity.OutboundDetails{Requested: 5, QuantityClamped: true, ReservedConsumed: 2}, movs[0].Details)
}

func TestDeduct_TopeDeReservaPropia(t *testing.T) {
	engine, store := newEngine(t, 10, 6)
	held := int64(2)

	level, err := engine.Deduct(context.Background(), inventory.StockRequest{ProductID: productA, Quantity: 3, HeldReserved: &held})
	require.NoError(t, err)
	assert.Equal(t, int64(7), level.Quantity)
	assert.Equal(t, int64(4), level.Reserved)
	assert.Equal(t, int64(2), store.Movements()[0].Details.(entity.OutboundDetails).ReservedConsumed)
}

func TestAdjust_SetMarcaConteoYRecortaReserva(t *testing.T) {
	engine, store := newEngine(t, 10, 6)

	level, err := engine.Adjust(context.Background(), inventory.AdjustRequest{
		ProductID: productA, WarehouseID: warehouse, Mode: entity.AdjustSet, Quantity: 4, Actor: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), level.Quantity)
	assert.Equal(t, int64(4), level.Reserved)
	assert.NotNil(t, level.LastCountedAt)

	movs := store.Movements()
	require.Len(t, movs, 1)
	assert.Equal(t, int64(-6), movs[0].Delta)
	assert.Equal(t, "user-1", movs[0].Actor)
	assert.Contains(t, movs[0].Notes, "10 -> 4")
	d, ok := movs[0].Details.(entity.AdjustmentDetails)
	require.True(t, ok)
	assert.True(t, d.ReservedClamped)
}

func TestAdjust_RemoveExcesivoQuedaEnCero(t *testing.T) {
	engine, _ := newEngine(t, 2, 0)
	level, err := engine.Adjust(context.Background(), inventory.AdjustRequest{
		ProductID: productA, WarehouseID: warehouse, Mode: entity.AdjustRemove, Quantity: 5, Note: "rotura",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), level.Quantity)
}

func TestAdjust_ModoInvalido(t *testing.T) {
	engine, store := newEngine(t, 2, 0)
	_, err := engine.Adjust(context.Background(), inventory.AdjustRequest{
		ProductID: productA, WarehouseID: warehouse, Mode: "double", Quantity: 5,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, store.Movements())
}

func TestReceive_ActualizaCostoPromedio(t *testing.T) {
	engine, store := newEngine(t, 10, 0)

	level, err := engine.Receive(context.Background(), inventory.ReceiveRequest{
		ProductID: productA, WarehouseID: warehouse, Quantity: 10, UnitCost: decimal.NewFromInt(20), ReferenceID: "PO-7",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), level.Quantity)
	assert.True(t, decimal.NewFromInt(15).Equal(store.Product(productA).CostPrice))

	movs := store.Movements()
	require.Len(t, movs, 1)
	assert.Equal(t, entity.ReferencePurchase, movs[0].ReferenceType)
	d, ok := movs[0].Details.(entity.InboundDetails)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(10).Equal(d.PreviousCost))
	assert.True(t, decimal.NewFromInt(15).Equal(d.NewCost))
}

func TestReceive_CostoPromedioSumaTodasLasBodegas(t *testing.T) {
	const other = "33333333-3333-3333-3333-333333333333"
	engine, store := newEngine(t, 10, 0)
	store.AddWarehouse(other, "Secundaria")
	store.SetStock(entity.StockLevel{ProductID: productA, WarehouseID: other, Quantity: 30})

	// 40 unidades a 10 en total; entran 10 a 30 en la secundaria: (400 + 300) / 50 = 14
	_, err := engine.Receive(context.Background(), inventory.ReceiveRequest{
		ProductID: productA, WarehouseID: other, Quantity: 10, UnitCost: decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(14).Equal(store.Product(productA).CostPrice), store.Product(productA).CostPrice.String())
}

func TestReceive_CostoNegativo(t *testing.T) {
	engine, _ := newEngine(t, 0, 0)
	_, err := engine.Receive(context.Background(), inventory.ReceiveRequest{
		ProductID: productA, WarehouseID: warehouse, Quantity: 1, UnitCost: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransaccionFallidaSeDeshace(t *testing.T) {
	engine, store := newEngine(t, 5, 0)
	ctx := context.Background()

	// dos reservas en la misma tx: la segunda falla y la primera no debe quedar
	err := store.Run(ctx, func(repos inventory.TxRepositories) error {
		if _, err := engine.ReserveInTx(ctx, repos, inventory.StockRequest{ProductID: productA, Quantity: 2}); err != nil {
			return err
		}
		_, err := engine.ReserveInTx(ctx, repos, inventory.StockRequest{ProductID: productA, Quantity: 10})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(0), store.Stock(productA, warehouse).Reserved)
	assert.Empty(t, store.Movements())
}
