package importer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/importer"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/application/orders"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memstore"
	"github.com/jhoicas/stockledger-api/pkg/retry"
)

// fakeExporter responde los estados en orden; el último se repite.
type fakeExporter struct {
	mu       sync.Mutex
	states   []importer.ExportStatus
	polls    int
	records  []importer.Record
	block    bool // tras emitir records avisa por emitted y espera a que ctx termine
	emitted  chan struct{}
	startErr error
}

func (f *fakeExporter) StartOrderExport(ctx context.Context, since time.Time) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	return "gid://bulk/1", nil
}

func (f *fakeExporter) PollExport(ctx context.Context, exportID string) (importer.ExportStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(f.polls, len(f.states)-1)
	f.polls++
	return f.states[i], nil
}

func (f *fakeExporter) DownloadOrders(ctx context.Context, url string, fn func(importer.Record) error) error {
	for _, r := range f.records {
		if err := fn(r); err != nil {
			return err
		}
	}
	if f.block {
		close(f.emitted)
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func newService(t *testing.T, exporter importer.BulkExporter) (*importer.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	store.AddProduct(&entity.Product{ID: "11111111-1111-1111-1111-111111111111", SKU: "TEA-01", Active: true})
	engine := inventory.NewReservationEngine(store, "", zerolog.Nop())
	ingestion := orders.NewIngestionService(store, engine, store.Repositories().Products, retry.Config{}, zerolog.Nop())
	svc := importer.NewService(store.ImportLogs(), ingestion, exporter, importer.Config{
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
		Timeout:      5 * time.Second,
	}, zerolog.Nop())
	return svc, store
}

func record(line int, number string) importer.Record {
	return importer.Record{Line: line, Order: orders.NormalizedOrder{
		OrderNumber: number,
		PlacedAt:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		LineItems:   []orders.NormalizedLineItem{{SKU: "TEA-01", Quantity: 1}},
	}}
}

func running() importer.ExportStatus { return importer.ExportStatus{State: importer.ExportRunning} }

func completed() importer.ExportStatus {
	return importer.ExportStatus{State: importer.ExportCompleted, URL: "https://example.test/orders.jsonl"}
}

// waitFinished espera el estado terminal sin cancelar la importación.
func waitFinished(t *testing.T, svc *importer.Service, id string) *entity.ImportLog {
	t.Helper()
	require.Eventually(t, func() bool {
		got, err := svc.Get(context.Background(), id)
		return err == nil && got.Finished()
	}, 2*time.Second, 5*time.Millisecond)
	got, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	return got
}

func TestPlatformImport_CompletaConErrores(t *testing.T) {
	exp := &fakeExporter{
		states: []importer.ExportStatus{running(), completed()},
		records: []importer.Record{
			record(1, "1001"),
			{Line: 2, Err: errors.New("json inválido")},
			record(3, "1002"),
		},
	}
	svc, store := newService(t, exp)

	il, err := svc.StartPlatformImport(context.Background(), time.Time{}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ImportStatusPending, il.Status)

	got := waitFinished(t, svc, il.ID)
	assert.Equal(t, entity.ImportStatusCompletedWithErrors, got.Status)
	assert.Equal(t, 2, got.RecordsImported)
	assert.Equal(t, 1, got.RecordsFailed)
	assert.Equal(t, 2, got.PollAttempts)
	assert.Equal(t, "admin-1", got.CreatedBy)
	require.Len(t, got.ErrorLog, 1)
	assert.Contains(t, got.ErrorLog[0], "línea 2")
	assert.NotNil(t, got.FinishedAt)
	assert.NotNil(t, store.Order("1001"))
	assert.Empty(t, store.Movements(), "la importación no mueve inventario")
}

func TestPlatformImport_Estancada(t *testing.T) {
	svc, store := newService(t, &fakeExporter{states: []importer.ExportStatus{running()}})
	ctx := context.Background()

	il := &entity.ImportLog{ID: "33333333-3333-3333-3333-333333333333", Source: entity.ImportSourcePlatformBulk, Status: entity.ImportStatusPending}
	require.NoError(t, store.ImportLogs().Create(ctx, il))
	svc.RunPlatformImport(ctx, il, time.Time{})

	assert.Equal(t, entity.ImportStatusStalled, il.Status)
	assert.Equal(t, 3, il.PollAttempts)
	require.NotEmpty(t, il.ErrorLog)
	assert.Contains(t, il.ErrorLog[0], domain.ErrImportStalled.Error())
}

func TestPlatformImport_ExportacionFallida(t *testing.T) {
	exp := &fakeExporter{states: []importer.ExportStatus{{State: importer.ExportFailed, ErrorCode: "ACCESS_DENIED"}}}
	svc, _ := newService(t, exp)

	il, err := svc.StartPlatformImport(context.Background(), time.Time{}, "admin-1")
	require.NoError(t, err)

	got := waitFinished(t, svc, il.ID)
	assert.Equal(t, entity.ImportStatusFailed, got.Status)
	assert.Contains(t, got.ErrorLog[0], "ACCESS_DENIED")
}

func TestPlatformImport_ErrorAlIniciar(t *testing.T) {
	svc, _ := newService(t, &fakeExporter{startErr: domain.ErrExternalService, states: []importer.ExportStatus{running()}})
	il, err := svc.StartPlatformImport(context.Background(), time.Time{}, "admin-1")
	require.NoError(t, err)

	got := waitFinished(t, svc, il.ID)
	assert.Equal(t, entity.ImportStatusFailed, got.Status)
	assert.Equal(t, 0, got.PollAttempts)
}

func TestPlatformImport_CancelarDejaParcial(t *testing.T) {
	exp := &fakeExporter{
		states:  []importer.ExportStatus{completed()},
		records: []importer.Record{record(1, "1001")},
		block:   true,
		emitted: make(chan struct{}),
	}
	svc, _ := newService(t, exp)
	ctx := context.Background()

	il, err := svc.StartPlatformImport(ctx, time.Time{}, "admin-1")
	require.NoError(t, err)
	select {
	case <-exp.emitted:
	case <-time.After(2 * time.Second):
		t.Fatal("la descarga no empezó")
	}

	require.NoError(t, svc.Cancel(ctx, il.ID))
	require.NoError(t, svc.Shutdown(ctx))

	got, err := svc.Get(ctx, il.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ImportStatusPartial, got.Status)
	assert.Equal(t, 1, got.RecordsImported)
	assert.Contains(t, got.ErrorLog[len(got.ErrorLog)-1], "cancelada")

	// una importación terminada ya no se cancela
	assert.ErrorIs(t, svc.Cancel(ctx, il.ID), domain.ErrConflict)
	assert.ErrorIs(t, svc.Cancel(ctx, "44444444-4444-4444-4444-444444444444"), domain.ErrNotFound)
}

func TestPlatformImport_SinPlataforma(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.StartPlatformImport(context.Background(), time.Time{}, "admin-1")
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

func TestPlatformImport_SinceFuturo(t *testing.T) {
	svc, _ := newService(t, &fakeExporter{states: []importer.ExportStatus{completed()}})
	_, err := svc.StartPlatformImport(context.Background(), time.Now().Add(time.Hour), "admin-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestImportRecords(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()

	bad := record(3, "1003")
	bad.Order.LineItems[0].Quantity = -1
	il, err := svc.ImportRecords(ctx, entity.ImportSourceCSV, "ops", []importer.Record{record(2, "1002"), bad})
	require.NoError(t, err)
	assert.Equal(t, entity.ImportStatusCompletedWithErrors, il.Status)
	assert.Equal(t, 1, il.RecordsImported)
	assert.Equal(t, 1, il.RecordsFailed)
	assert.NotNil(t, store.Order("1002"))

	il, err = svc.ImportRecords(ctx, entity.ImportSourceCSV, "ops", []importer.Record{bad})
	require.NoError(t, err)
	assert.Equal(t, entity.ImportStatusFailed, il.Status)

	il, err = svc.ImportRecords(ctx, entity.ImportSourceCSV, "ops", nil)
	require.NoError(t, err)
	assert.Equal(t, entity.ImportStatusCompleted, il.Status)
}

func TestImportRecords_ContextoCancelado(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	il, err := svc.ImportRecords(ctx, entity.ImportSourceCSV, "ops", []importer.Record{record(2, "1002")})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, il)
	assert.Equal(t, entity.ImportStatusFailed, il.Status)
}
