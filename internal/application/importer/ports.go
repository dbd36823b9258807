package importer

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger-api/internal/application/orders"
)

// Estados de una exportación masiva en la plataforma.
const (
	ExportRunning   = "running"
	ExportCompleted = "completed"
	ExportFailed    = "failed"
)

// ExportStatus estado reportado por la plataforma para una exportación.
type ExportStatus struct {
	ID          string
	State       string
	URL         string // disponible cuando State == completed
	ObjectCount int
	ErrorCode   string
}

// Record registro de orden leído de una fuente; Err indica que no se pudo convertir.
type Record struct {
	Line  int
	Order orders.NormalizedOrder
	Err   error
}

// BulkExporter operaciones de exportación masiva de órdenes de la plataforma.
type BulkExporter interface {
	StartOrderExport(ctx context.Context, since time.Time) (exportID string, err error)
	PollExport(ctx context.Context, exportID string) (ExportStatus, error)
	// DownloadOrders recorre el resultado y llama fn por cada registro; un error de fn detiene la lectura.
	DownloadOrders(ctx context.Context, url string, fn func(Record) error) error
}

// OrderSink destino de las órdenes importadas (solo historial, sin efectos de inventario).
type OrderSink interface {
	ResolveSKUs(ctx context.Context, skus []string) (map[string]string, error)
	UpsertHistory(ctx context.Context, in orders.NormalizedOrder, productBySKU map[string]string) (bool, error)
}
