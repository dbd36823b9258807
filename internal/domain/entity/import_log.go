package entity

import "time"

// Estados de una importación.
const (
	ImportStatusPending             = "pending"
	ImportStatusInProgress          = "in_progress"
	ImportStatusCompleted           = "completed"
	ImportStatusCompletedWithErrors = "completed_with_errors"
	ImportStatusPartial             = "partial" // interrumpida (cancelada o timeout) después de procesar registros
	ImportStatusFailed              = "failed"
	ImportStatusStalled             = "stalled" // la exportación externa no terminó tras el máximo de consultas
)

// Fuentes de importación.
const (
	ImportSourcePlatformBulk = "platform_bulk"
	ImportSourceCSV          = "csv"
)

// ImportLog registro de procedencia de una importación masiva o CSV.
// Se crea una vez y se finaliza una vez; entre medio solo avanzan contadores y estado.
type ImportLog struct {
	ID              string
	Source          string
	Status          string
	RecordsImported int
	RecordsFailed   int
	ErrorLog        []string
	PollAttempts    int
	StartedAt       time.Time
	FinishedAt      *time.Time
	CreatedBy       string
}

// Finished indica si la importación ya está en un estado terminal.
func (l *ImportLog) Finished() bool {
	switch l.Status {
	case ImportStatusPending, ImportStatusInProgress:
		return false
	}
	return true
}
