package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.ImportLogRepository = (*ImportLogRepo)(nil)

// ImportLogRepo bitácoras de importación; error_log se guarda como arreglo jsonb.
type ImportLogRepo struct {
	q Querier
}

// NewImportLogRepository construye el adaptador.
func NewImportLogRepository(q Querier) *ImportLogRepo {
	return &ImportLogRepo{q: q}
}

// Create inserta la bitácora.
func (r *ImportLogRepo) Create(ctx context.Context, l *entity.ImportLog) error {
	errs, err := encodeErrorLog(l.ErrorLog)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO import_logs (id, source, status, records_imported, records_failed, error_log,
			poll_attempts, started_at, finished_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.Source, l.Status, l.RecordsImported, l.RecordsFailed, errs,
		l.PollAttempts, l.StartedAt, l.FinishedAt, l.CreatedBy)
	return wrapErr("insert import log", err)
}

// Update guarda estado, contadores y errores.
func (r *ImportLogRepo) Update(ctx context.Context, l *entity.ImportLog) error {
	errs, err := encodeErrorLog(l.ErrorLog)
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE import_logs
		SET status = $2, records_imported = $3, records_failed = $4, error_log = $5,
		    poll_attempts = $6, finished_at = $7
		WHERE id = $1`,
		l.ID, l.Status, l.RecordsImported, l.RecordsFailed, errs, l.PollAttempts, l.FinishedAt)
	if err != nil {
		return wrapErr("update import log", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID bitácora por id; (nil, nil) si no existe.
func (r *ImportLogRepo) GetByID(ctx context.Context, id string) (*entity.ImportLog, error) {
	var (
		l   entity.ImportLog
		raw []byte
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, source, status, records_imported, records_failed, error_log,
		       poll_attempts, started_at, finished_at, created_by
		FROM import_logs WHERE id = $1`, id).Scan(
		&l.ID, &l.Source, &l.Status, &l.RecordsImported, &l.RecordsFailed, &raw,
		&l.PollAttempts, &l.StartedAt, &l.FinishedAt, &l.CreatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get import log", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &l.ErrorLog); err != nil {
			return nil, fmt.Errorf("decode import error log: %w", err)
		}
	}
	return &l, nil
}

func encodeErrorLog(errs []string) ([]byte, error) {
	if errs == nil {
		errs = []string{}
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return nil, fmt.Errorf("encode import error log: %w", err)
	}
	return b, nil
}
