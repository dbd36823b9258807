package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/pkg/config"
)

func TestPoolConfigFor_LimitesDesdeConfig(t *testing.T) {
	pc, err := poolConfigFor(config.DBConfig{
		Host: "localhost", Port: 5432, User: "postgres", DBName: "stockledger", SSLMode: "disable",
		MaxConns: 10, MinConns: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(10), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
	assert.NotNil(t, pc.AfterConnect)
	assert.NotNil(t, pc.ConnConfig.Tracer)
	assert.Equal(t, "stockledger", pc.ConnConfig.Database)
}

func TestPoolConfigFor_MinMayorQueMaxSeIgnora(t *testing.T) {
	pc, err := poolConfigFor(config.DBConfig{
		DatabaseURL: "postgres://u:p@db.example.com:5433/ledger?sslmode=disable",
		MaxConns:    4, MinConns: 8, ForceIPv4: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(4), pc.MaxConns)
	assert.Equal(t, int32(0), pc.MinConns)
	assert.Equal(t, "db.example.com", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.NotNil(t, pc.ConnConfig.DialFunc)
}

func TestPoolConfigFor_DSNInvalido(t *testing.T) {
	_, err := poolConfigFor(config.DBConfig{DatabaseURL: "postgres://%zz"})
	assert.Error(t, err)
}
