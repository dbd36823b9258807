package forecast

import (
	"context"
	"time"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
)

// JobLock lock de exclusión entre réplicas para tareas programadas.
// Acquire devuelve ok=false sin error cuando otro proceso ya tiene el lock.
type JobLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// RunwayReportGenerator genera la representación PDF del reporte de runway.
type RunwayReportGenerator interface {
	GenerateRunwayReportPDF(ctx context.Context, report *dto.RunwayReportResponse, timezone string) ([]byte, error)
}
