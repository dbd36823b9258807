package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

const maxErrorLogEntries = 500

// Config límites del ciclo de consulta de exportaciones.
type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
	Timeout      time.Duration // duración máxima de una importación completa
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 60
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Minute
	}
	return c
}

// Service importaciones masivas de historial de órdenes con bitácora (ImportLog).
// Las importaciones en curso se pueden cancelar por id.
type Service struct {
	logs     repository.ImportLogRepository
	sink     OrderSink
	exporter BulkExporter
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewService construye el servicio. exporter puede ser nil si no hay plataforma configurada.
func NewService(logs repository.ImportLogRepository, sink OrderSink, exporter BulkExporter, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		logs:     logs,
		sink:     sink,
		exporter: exporter,
		cfg:      cfg.withDefaults(),
		log:      log.With().Str("component", "importer").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
		running:  make(map[string]context.CancelFunc),
	}
}

// StartPlatformImport crea la bitácora y lanza la importación en segundo plano.
func (s *Service) StartPlatformImport(ctx context.Context, since time.Time, actor string) (*entity.ImportLog, error) {
	if s.exporter == nil {
		return nil, fmt.Errorf("%w: plataforma no configurada", domain.ErrExternalService)
	}
	if !since.IsZero() && since.After(s.now()) {
		return nil, fmt.Errorf("%w: since en el futuro", domain.ErrInvalidInput)
	}
	il := s.newLog(entity.ImportSourcePlatformBulk, actor)
	if err := s.logs.Create(ctx, il); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	s.register(il.ID, cancel)
	snapshot := *il
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.unregister(il.ID)
		s.RunPlatformImport(runCtx, il, since)
	}()
	return &snapshot, nil
}

// RunPlatformImport ejecuta la importación de forma síncrona sobre una bitácora ya creada.
// Siempre deja la bitácora en un estado terminal.
func (s *Service) RunPlatformImport(ctx context.Context, il *entity.ImportLog, since time.Time) {
	l := s.log.With().Str("import_id", il.ID).Logger()
	il.Status = entity.ImportStatusInProgress
	s.save(ctx, il)

	exportID, err := s.exporter.StartOrderExport(ctx, since)
	if err != nil {
		s.fail(ctx, il, fmt.Sprintf("iniciar exportación: %v", err))
		return
	}
	l.Info().Str("export_id", exportID).Msg("exportación iniciada")

	status, err := s.poll(ctx, il, exportID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrImportStalled):
			il.Status = entity.ImportStatusStalled
			s.appendError(il, err.Error())
			s.finish(ctx, il)
		case ctx.Err() != nil:
			s.interrupted(ctx, il)
		default:
			s.fail(ctx, il, err.Error())
		}
		return
	}

	derr := s.exporter.DownloadOrders(ctx, status.URL, func(r Record) error {
		return s.processRecord(ctx, il, r)
	})
	if derr != nil && ctx.Err() == nil {
		s.appendError(il, fmt.Sprintf("descarga: %v", derr))
	}
	if ctx.Err() != nil {
		s.interrupted(ctx, il)
		return
	}
	il.Status = completionStatus(il, derr != nil)
	s.finish(ctx, il)
	l.Info().Int("imported", il.RecordsImported).Int("failed", il.RecordsFailed).Str("status", il.Status).Msg("importación terminada")
}

// ImportRecords importa registros ya leídos (CSV) de forma síncrona.
func (s *Service) ImportRecords(ctx context.Context, source, actor string, records []Record) (*entity.ImportLog, error) {
	il := s.newLog(source, actor)
	if err := s.logs.Create(ctx, il); err != nil {
		return nil, err
	}
	il.Status = entity.ImportStatusInProgress
	s.save(ctx, il)
	for _, r := range records {
		if ctx.Err() != nil {
			s.interrupted(ctx, il)
			return il, ctx.Err()
		}
		if err := s.processRecord(ctx, il, r); err != nil {
			break
		}
	}
	if ctx.Err() != nil {
		s.interrupted(ctx, il)
		return il, ctx.Err()
	}
	il.Status = completionStatus(il, false)
	s.finish(ctx, il)
	return il, nil
}

// Get bitácora por id.
func (s *Service) Get(ctx context.Context, id string) (*entity.ImportLog, error) {
	il, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if il == nil {
		return nil, domain.ErrNotFound
	}
	return il, nil
}

// Cancel detiene una importación en curso. ErrConflict si ya terminó.
func (s *Service) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		cancel()
		s.log.Info().Str("import_id", id).Msg("importación cancelada")
		return nil
	}
	il, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if il.Finished() {
		return fmt.Errorf("%w: la importación ya terminó (%s)", domain.ErrConflict, il.Status)
	}
	// pendiente en otra réplica
	return fmt.Errorf("%w: la importación no corre en esta instancia", domain.ErrConflict)
}

// Shutdown cancela las importaciones en curso y espera a que dejen su bitácora cerrada.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, cancel := range s.running {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// poll consulta la exportación hasta que termine, falle, se agoten los intentos o ctx termine.
func (s *Service) poll(ctx context.Context, il *entity.ImportLog, exportID string) (ExportStatus, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for attempt := 1; ; attempt++ {
		st, err := s.exporter.PollExport(ctx, exportID)
		il.PollAttempts = attempt
		switch {
		case err != nil && ctx.Err() != nil:
			return ExportStatus{}, ctx.Err()
		case err != nil:
			s.log.Warn().Err(err).Str("import_id", il.ID).Int("attempt", attempt).Msg("consulta de exportación falló")
		case st.State == ExportCompleted:
			s.save(ctx, il)
			return st, nil
		case st.State == ExportFailed:
			return st, fmt.Errorf("%w: exportación %s falló (%s)", domain.ErrExternalService, exportID, st.ErrorCode)
		}
		s.save(ctx, il)
		if attempt >= s.cfg.MaxAttempts {
			return ExportStatus{}, fmt.Errorf("%w: exportación %s sin terminar tras %d consultas", domain.ErrImportStalled, exportID, attempt)
		}
		select {
		case <-ctx.Done():
			return ExportStatus{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// processRecord guarda un registro; los fallos por registro se anotan y no detienen el lote.
// Solo devuelve error cuando ctx terminó.
func (s *Service) processRecord(ctx context.Context, il *entity.ImportLog, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Err != nil {
		s.recordFailure(il, r, r.Err)
		return nil
	}
	if err := r.Order.Validate(); err != nil {
		s.recordFailure(il, r, err)
		return nil
	}
	productBySKU, err := s.sink.ResolveSKUs(ctx, r.Order.SKUs())
	if err == nil {
		_, err = s.sink.UpsertHistory(ctx, r.Order, productBySKU)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.recordFailure(il, r, err)
		return nil
	}
	il.RecordsImported++
	return nil
}

func (s *Service) recordFailure(il *entity.ImportLog, r Record, err error) {
	il.RecordsFailed++
	ref := r.Order.OrderNumber
	if ref == "" {
		ref = fmt.Sprintf("línea %d", r.Line)
	}
	s.appendError(il, fmt.Sprintf("%s: %v", ref, err))
}

func (s *Service) appendError(il *entity.ImportLog, msg string) {
	if len(il.ErrorLog) < maxErrorLogEntries {
		il.ErrorLog = append(il.ErrorLog, msg)
	}
}

func (s *Service) interrupted(ctx context.Context, il *entity.ImportLog) {
	reason := "cancelada"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = "tiempo máximo excedido"
	}
	s.appendError(il, "importación interrumpida: "+reason)
	if il.RecordsImported+il.RecordsFailed > 0 {
		il.Status = entity.ImportStatusPartial
	} else {
		il.Status = entity.ImportStatusFailed
	}
	s.finish(ctx, il)
}

func (s *Service) fail(ctx context.Context, il *entity.ImportLog, msg string) {
	s.appendError(il, msg)
	il.Status = entity.ImportStatusFailed
	s.finish(ctx, il)
}

func (s *Service) finish(ctx context.Context, il *entity.ImportLog) {
	now := s.now()
	il.FinishedAt = &now
	s.save(ctx, il)
}

// save persiste la bitácora aun si ctx fue cancelado.
func (s *Service) save(ctx context.Context, il *entity.ImportLog) {
	if err := s.logs.Update(context.WithoutCancel(ctx), il); err != nil {
		s.log.Error().Err(err).Str("import_id", il.ID).Msg("actualizar bitácora de importación")
	}
}

func (s *Service) newLog(source, actor string) *entity.ImportLog {
	return &entity.ImportLog{
		ID:        uuid.New().String(),
		Source:    source,
		Status:    entity.ImportStatusPending,
		ErrorLog:  []string{},
		StartedAt: s.now(),
		CreatedBy: actor,
	}
}

func (s *Service) register(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.running[id] = cancel
	s.mu.Unlock()
}

func (s *Service) unregister(id string) {
	s.mu.Lock()
	if cancel, ok := s.running[id]; ok {
		cancel()
		delete(s.running, id)
	}
	s.mu.Unlock()
}

// completionStatus estado final de una importación que no fue interrumpida.
func completionStatus(il *entity.ImportLog, downloadErr bool) string {
	switch {
	case il.RecordsFailed == 0 && !downloadErr:
		return entity.ImportStatusCompleted
	case il.RecordsImported == 0:
		return entity.ImportStatusFailed
	case downloadErr:
		return entity.ImportStatusPartial
	}
	return entity.ImportStatusCompletedWithErrors
}
