// Package retry reintenta operaciones con backoff exponencial y jitter.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config comportamiento de reintentos.
type Config struct {
	MaxRetries     int           // reintentos además del primer intento
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	Jitter         float64 // 0-1
}

// DefaultConfig valores para operaciones de BD dentro de un request HTTP.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.2,
	}
}

// Retrier ejecuta una función mientras el error sea reintentable.
type Retrier struct {
	config    Config
	retryable func(error) bool
	sleep     func(ctx context.Context, d time.Duration) error
}

// New construye el retrier. retryable decide qué errores se reintentan.
func New(config Config, retryable func(error) bool) *Retrier {
	return &Retrier{config: config, retryable: retryable, sleep: sleepCtx}
}

// Backoff duración de espera antes del reintento número attempt (0 = primero).
func (r *Retrier) Backoff(attempt int) time.Duration {
	backoff := float64(r.config.InitialBackoff) * math.Pow(r.config.BackoffFactor, float64(attempt))
	if r.config.Jitter > 0 {
		backoff += backoff * r.config.Jitter * (rand.Float64()*2 - 1)
	}
	if max := float64(r.config.MaxBackoff); max > 0 && backoff > max {
		backoff = max
	}
	return time.Duration(backoff)
}

// Do ejecuta fn hasta que tenga éxito, devuelva un error no reintentable o se agoten los intentos.
// Devuelve el número de intentos realizados.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	var err error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		err = fn(ctx)
		if err == nil {
			return attempt + 1, nil
		}
		if r.retryable == nil || !r.retryable(err) {
			return attempt + 1, err
		}
		if attempt == r.config.MaxRetries {
			break
		}
		if serr := r.sleep(ctx, r.Backoff(attempt)); serr != nil {
			return attempt + 1, serr
		}
	}
	return r.config.MaxRetries + 1, fmt.Errorf("reintentos agotados: %w", err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
