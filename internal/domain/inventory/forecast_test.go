package inventory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/domain/inventory"
)

func TestVelocity_NoRedondea(t *testing.T) {
	assert.InDelta(t, 10.0/7.0, inventory.Velocity(10, 7), 1e-12)
	assert.Equal(t, 0.0, inventory.Velocity(0, 30))
	assert.Equal(t, 0.0, inventory.Velocity(5, 0))
}

func TestRunwayDays(t *testing.T) {
	assert.Equal(t, 12, inventory.RunwayDays(50, 4))
	assert.Equal(t, inventory.RunwayInfinite, inventory.RunwayDays(50, 0))
	assert.Equal(t, 0, inventory.RunwayDays(0, 2.5))
}

func TestProjectRunway_ValorRealSobreElCentinela(t *testing.T) {
	r := inventory.ProjectRunway(1_000_000, 0.01)
	assert.True(t, r.Finite)
	assert.Equal(t, 100_000_000, r.Days)

	r = inventory.ProjectRunway(999, 1)
	assert.True(t, r.Finite)
	assert.Equal(t, inventory.RunwayInfinite, r.Days, "999 días reales no son el centinela")
	assert.NotNil(t, r.StockoutDate(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

	r = inventory.ProjectRunway(50, 0)
	assert.False(t, r.Finite)
	assert.Equal(t, inventory.RunwayInfinite, r.Days)
}

func TestStockoutDate(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	d := inventory.ProjectRunway(20, 2).StockoutDate(today)
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), *d)

	assert.Nil(t, inventory.ProjectRunway(20, 0).StockoutDate(today))
}

func TestClassify_OrdenDePrioridad(t *testing.T) {
	cases := []struct {
		name string
		in   inventory.ClassifyInput
		want inventory.StockStatus
	}{
		{"sin disponible aunque la cantidad supere el par", inventory.ClassifyInput{Quantity: 500, Available: 0, ParLevel: 10, Runway: inventory.RunwayInfinite}, inventory.StatusCritical},
		{"runway corto domina sobre par", inventory.ClassifyInput{Quantity: 500, Available: 50, ParLevel: 10, Runway: 7}, inventory.StatusCritical},
		{"mitad del par", inventory.ClassifyInput{Quantity: 5, Available: 5, ParLevel: 10, Runway: inventory.RunwayInfinite}, inventory.StatusWarning},
		{"runway de dos semanas", inventory.ClassifyInput{Quantity: 500, Available: 500, ParLevel: 10, Runway: 14}, inventory.StatusWarning},
		{"en el par", inventory.ClassifyInput{Quantity: 10, Available: 10, ParLevel: 10, Runway: inventory.RunwayInfinite}, inventory.StatusWarning},
		{"sano", inventory.ClassifyInput{Quantity: 11, Available: 11, ParLevel: 10, Runway: 15}, inventory.StatusHealthy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, inventory.Classify(tc.in))
		})
	}
}

// Velocidad cero: el runway es el centinela y el estado depende solo del par.
func TestClassify_VelocidadCeroSoloPar(t *testing.T) {
	runway := inventory.RunwayDays(50, 0)
	require.Equal(t, inventory.RunwayInfinite, runway)

	assert.Equal(t, inventory.StatusHealthy,
		inventory.Classify(inventory.ClassifyInput{Quantity: 50, Available: 50, ParLevel: 40, Runway: runway}))
	assert.Equal(t, inventory.StatusWarning,
		inventory.Classify(inventory.ClassifyInput{Quantity: 50, Available: 50, ParLevel: 60, Runway: runway}))
	assert.Equal(t, inventory.StatusWarning,
		inventory.Classify(inventory.ClassifyInput{Quantity: 50, Available: 50, ParLevel: 100, Runway: runway}))
}
