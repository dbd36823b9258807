// Package redislock lock distribuido sobre Redis para tareas programadas de varias réplicas.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stockledger-api/internal/application/forecast"
	"github.com/jhoicas/stockledger-api/pkg/config"
)

var _ forecast.JobLock = (*Lock)(nil)

// releaseScript borra la clave solo si sigue siendo nuestra.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrNotHeld el lock expiró o lo tomó otro proceso antes de liberarlo.
var ErrNotHeld = errors.New("redislock: lock no pertenece a este proceso")

// Lock SET NX PX con token aleatorio por adquisición.
type Lock struct {
	client redis.UniversalClient
}

// New construye el lock sobre un cliente existente.
func New(client redis.UniversalClient) *Lock {
	return &Lock{client: client}
}

// Connect abre el cliente y verifica la conexión.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Acquire intenta tomar key durante ttl. ok=false si ya está tomado.
func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redislock: set %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("redislock: release %s: %w", key, err)
		}
		if n == 0 {
			return ErrNotHeld
		}
		return nil
	}
	return release, true, nil
}
