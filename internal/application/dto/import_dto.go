package dto

import (
	"time"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// StartImportRequest body para POST /api/imports/orders.
type StartImportRequest struct {
	Since time.Time `json:"since"`
}

// ImportLogResponse estado de una importación.
type ImportLogResponse struct {
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	Status          string     `json:"status"`
	RecordsImported int        `json:"records_imported"`
	RecordsFailed   int        `json:"records_failed"`
	ErrorLog        []string   `json:"error_log"`
	PollAttempts    int        `json:"poll_attempts"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// ToImportLogResponse mapea la entidad a la respuesta.
func ToImportLogResponse(l *entity.ImportLog) ImportLogResponse {
	errs := l.ErrorLog
	if errs == nil {
		errs = []string{}
	}
	return ImportLogResponse{
		ID:              l.ID,
		Source:          l.Source,
		Status:          l.Status,
		RecordsImported: l.RecordsImported,
		RecordsFailed:   l.RecordsFailed,
		ErrorLog:        errs,
		PollAttempts:    l.PollAttempts,
		StartedAt:       l.StartedAt,
		FinishedAt:      l.FinishedAt,
	}
}

// WebhookAckResponse respuesta del receptor de webhooks.
type WebhookAckResponse struct {
	OrderNumber string `json:"order_number"`
	Event       string `json:"event"`
	Created     bool   `json:"created"`
	Applied     bool   `json:"applied"` // false si el efecto ya estaba aplicado o no corresponde
	Failures    int    `json:"failures,omitempty"`
}
