package forecast_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/forecast"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memstore"
	"github.com/jhoicas/stockledger-api/pkg/daterange"
)

const (
	teaID = "11111111-1111-1111-1111-111111111111"
	mugID = "22222222-2222-2222-2222-222222222222"
	jarID = "33333333-3333-3333-3333-333333333333"
	outID = "44444444-4444-4444-4444-444444444444"
	whA   = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	whB   = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

func newForecast(t *testing.T) (*forecast.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	for _, p := range []*entity.Product{
		{ID: teaID, SKU: "TEA-01", Name: "Té", Active: true},
		{ID: mugID, SKU: "MUG-02", Name: "Taza", Active: true},
		{ID: jarID, SKU: "JAR-03", Name: "Frasco", Active: true},
		{ID: outID, SKU: "OUT-04", Name: "Agotado", Active: true},
		{ID: "55555555-5555-5555-5555-555555555555", SKU: "OLD-05", Name: "Inactivo", Active: false},
	} {
		store.AddProduct(p)
	}
	repos := store.Repositories()
	svc := forecast.NewService(repos.Products, repos.Orders, repos.Stock, daterange.MustNew("America/Bogota"), zerolog.Nop())
	return svc, store
}

func soldOrder(number string, placed time.Time, productID string, qty int64, cancelled bool) *entity.Order {
	pid := productID
	o := &entity.Order{
		ID:          number,
		OrderNumber: number,
		Status:      entity.OrderStatusPaid,
		PlacedAt:    placed,
		LineItems:   []entity.OrderLineItem{{SKU: "x", ProductID: &pid, Quantity: qty}},
	}
	if cancelled {
		o.Status = entity.OrderStatusCancelled
	}
	return o
}

func TestUpdateProductVelocities_VentanasYCancelaciones(t *testing.T) {
	svc, store := newForecast(t)
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	store.AddOrder(soldOrder("A", now.AddDate(0, 0, -2), teaID, 14, false))
	store.AddOrder(soldOrder("B", now.AddDate(0, 0, -10), teaID, 28, false))
	store.AddOrder(soldOrder("C", now.AddDate(0, 0, -1), teaID, 100, true))
	store.AddOrder(soldOrder("D", now.AddDate(0, 0, -40), teaID, 500, false))
	// el límite superior es exclusivo
	store.AddOrder(soldOrder("E", now, teaID, 70, false))

	n, err := svc.UpdateProductVelocities(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "solo productos activos")

	tea := store.Product(teaID)
	assert.InDelta(t, 2.0, tea.Velocity7d, 1e-9)
	assert.InDelta(t, 3.0, tea.Velocity14d, 1e-9)
	assert.InDelta(t, 1.4, tea.Velocity30d, 1e-9)
	require.NotNil(t, tea.VelocityUpdatedAt)
	assert.Equal(t, now, *tea.VelocityUpdatedAt)

	mug := store.Product(mugID)
	assert.Zero(t, mug.Velocity7d)
	assert.Zero(t, mug.Velocity30d)
}

func seedRunway(t *testing.T, store *memstore.Store) {
	t.Helper()
	require.NoError(t, store.Repositories().Products.UpdateVelocities(context.Background(), []repository.VelocityUpdate{
		{ProductID: teaID, Velocity7d: 2},
		{ProductID: jarID, Velocity7d: 1},
		{ProductID: outID, Velocity7d: 0.5},
	}, time.Now()))
	// té repartido en dos bodegas: disponible total 10
	store.SetStock(entity.StockLevel{ProductID: teaID, WarehouseID: whA, Quantity: 8, Reserved: 2})
	store.SetStock(entity.StockLevel{ProductID: teaID, WarehouseID: whB, Quantity: 4})
	store.SetStock(entity.StockLevel{ProductID: mugID, WarehouseID: whA, Quantity: 50, ParLevel: 10})
	store.SetStock(entity.StockLevel{ProductID: jarID, WarehouseID: whA, Quantity: 12})
	store.SetStock(entity.StockLevel{ProductID: outID, WarehouseID: whA, Quantity: 3, Reserved: 3})
}

func TestRunwayReport_OrdenPorSeveridadYRunway(t *testing.T) {
	svc, store := newForecast(t)
	seedRunway(t, store)

	report, err := svc.RunwayReport(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Items, 4)

	var skus []string
	for _, it := range report.Items {
		skus = append(skus, it.SKU)
	}
	assert.Equal(t, []string{"OUT-04", "TEA-01", "JAR-03", "MUG-02"}, skus)
	assert.Equal(t, 2, report.Critical)
	assert.Equal(t, 1, report.Warning)
	assert.Equal(t, 1, report.Healthy)

	tea := report.Items[1]
	assert.Equal(t, int64(12), tea.Quantity)
	assert.Equal(t, int64(10), tea.Available)
	assert.Equal(t, 5, tea.RunwayDays)
	require.NotNil(t, tea.StockoutDate)

	mug := report.Items[3]
	assert.Equal(t, 999, mug.RunwayDays)
	assert.True(t, mug.RunwayInfinite)
	assert.Nil(t, mug.StockoutDate)
}

func TestRunway_Producto(t *testing.T) {
	svc, store := newForecast(t)
	seedRunway(t, store)

	r, err := svc.Runway(context.Background(), jarID)
	require.NoError(t, err)
	assert.Equal(t, 12, r.RunwayDays)
	assert.Equal(t, "warning", r.Status)

	// fecha de agotamiento = inicio del día local + runway
	cal := svc.Calendar()
	today := cal.StartOfDay(time.Now())
	assert.Equal(t, today.AddDate(0, 0, 12), *r.StockoutDate)

	_, err = svc.Runway(context.Background(), "55555555-5555-5555-5555-555555555555")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Runway(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

type busyLock struct{ err error }

func (l busyLock) Acquire(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return nil, false, l.err
}

func TestScheduler_OmiteSiOtraReplicaTieneElLock(t *testing.T) {
	svc, _ := newForecast(t)
	sched := forecast.NewScheduler(svc, busyLock{}, time.Hour, zerolog.Nop())

	out, err := sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Zero(t, out.ProductsUpdated)
}

func TestScheduler_ErrorDelLock(t *testing.T) {
	svc, _ := newForecast(t)
	sched := forecast.NewScheduler(svc, busyLock{err: errors.New("redis caído")}, time.Hour, zerolog.Nop())
	_, err := sched.RunOnce(context.Background())
	assert.ErrorContains(t, err, "redis caído")
}

func TestScheduler_RunOnceConLockLocal(t *testing.T) {
	svc, store := newForecast(t)
	store.AddOrder(soldOrder("A", time.Now().Add(-time.Hour), teaID, 7, false))
	sched := forecast.NewScheduler(svc, nil, time.Hour, zerolog.Nop())

	out, err := sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	assert.Equal(t, 4, out.ProductsUpdated)
	assert.InDelta(t, 1.0, store.Product(teaID).Velocity7d, 1e-9)

	// el lock se liberó al terminar
	out, err = sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Skipped)
}

func TestScheduler_StartSinIntervaloTerminaDeInmediato(t *testing.T) {
	svc, _ := newForecast(t)
	done := make(chan struct{})
	go func() {
		forecast.NewScheduler(svc, nil, 0, zerolog.Nop()).Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start con intervalo 0 no terminó")
	}
}

func TestLocalLock(t *testing.T) {
	l := forecast.NewLocalLock()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))
	_, ok, _ = l.Acquire(ctx, "k", time.Millisecond)
	assert.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	_, ok, _ = l.Acquire(ctx, "k", time.Minute)
	assert.True(t, ok, "un lock expirado se puede tomar")
}

type fakeGenerator struct{ timezone string }

func (g *fakeGenerator) GenerateRunwayReportPDF(_ context.Context, report *dto.RunwayReportResponse, timezone string) ([]byte, error) {
	g.timezone = timezone
	return []byte("%PDF-fake"), nil
}

func TestReportUseCase_NombreConFechaLocal(t *testing.T) {
	svc, store := newForecast(t)
	seedRunway(t, store)
	gen := &fakeGenerator{}

	pdf, name, err := forecast.NewReportUseCase(svc, gen).DownloadRunwayPDF(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(pdf))
	assert.Equal(t, "America/Bogota", gen.timezone)
	assert.True(t, strings.HasPrefix(name, "runway-") && strings.HasSuffix(name, ".pdf"))
	assert.Equal(t, "runway-"+svc.Calendar().FormatDate(time.Now())+".pdf", name)
}

func TestRunway_MayorQueCentinelaEsFinito(t *testing.T) {
	svc, store := newForecast(t)
	require.NoError(t, store.Repositories().Products.UpdateVelocities(context.Background(), []repository.VelocityUpdate{
		{ProductID: teaID, Velocity7d: 0.5},
	}, time.Now()))
	store.SetStock(entity.StockLevel{ProductID: teaID, WarehouseID: whA, Quantity: 1500})
	store.SetStock(entity.StockLevel{ProductID: mugID, WarehouseID: whA, Quantity: 50})

	r, err := svc.Runway(context.Background(), teaID)
	require.NoError(t, err)
	assert.Equal(t, 3000, r.RunwayDays)
	assert.False(t, r.RunwayInfinite)
	require.NotNil(t, r.StockoutDate)
	assert.Equal(t, "healthy", r.Status)

	// en el listado va antes que los productos sin velocidad
	report, err := svc.RunwayReport(context.Background())
	require.NoError(t, err)
	var healthy []string
	for _, it := range report.Items {
		if it.Status == "healthy" {
			healthy = append(healthy, it.SKU)
		}
	}
	assert.Equal(t, []string{"TEA-01", "MUG-02"}, healthy)
}
