package forecast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
)

const velocityLockKey = "stockledger:jobs:velocity-recompute"

// Scheduler ejecuta el recálculo de velocidades cada intervalo; solo una réplica a la vez.
type Scheduler struct {
	service  *Service
	lock     JobLock
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewScheduler construye el programador. lock nil usa un lock en proceso.
func NewScheduler(service *Service, lock JobLock, interval time.Duration, log zerolog.Logger) *Scheduler {
	if lock == nil {
		lock = NewLocalLock()
	}
	return &Scheduler{
		service:  service,
		lock:     lock,
		interval: interval,
		log:      log.With().Str("component", "velocity_scheduler").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce recalcula si obtiene el lock. Skipped=true si otra réplica lo tiene.
func (s *Scheduler) RunOnce(ctx context.Context) (*dto.VelocityRecomputeResponse, error) {
	now := s.now()
	ttl := s.interval
	if ttl <= 0 || ttl > 10*time.Minute {
		ttl = 10 * time.Minute
	}
	release, ok, err := s.lock.Acquire(ctx, velocityLockKey, ttl)
	if err != nil {
		return nil, fmt.Errorf("forecast: adquirir lock: %w", err)
	}
	if !ok {
		s.log.Debug().Msg("recálculo en curso en otra réplica; se omite")
		return &dto.VelocityRecomputeResponse{ComputedAt: now, Skipped: true}, nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn().Err(err).Msg("liberar lock de recálculo")
		}
	}()

	n, err := s.service.UpdateProductVelocities(ctx, now)
	if err != nil {
		return nil, err
	}
	return &dto.VelocityRecomputeResponse{ProductsUpdated: n, ComputedAt: now}, nil
}

// Start corre el ciclo hasta que ctx se cancele. Un intervalo <= 0 desactiva el programador.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info().Msg("recálculo programado desactivado")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info().Dur("interval", s.interval).Msg("recálculo de velocidades programado")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("recálculo de velocidades falló")
			}
		}
	}
}

// LocalLock JobLock en proceso para despliegues de una sola réplica.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewLocalLock construye el lock.
func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]time.Time)}
}

// Acquire toma el lock si está libre o expirado.
func (l *LocalLock) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, false, nil
	}
	exp := now.Add(ttl)
	l.held[key] = exp
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.held[key]; ok && cur.Equal(exp) {
			delete(l.held, key)
		}
		return nil
	}, true, nil
}
