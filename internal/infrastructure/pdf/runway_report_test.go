package pdf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain/inventory"
)

func TestGenerateRunwayReportPDF(t *testing.T) {
	stockout := time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)
	report := &dto.RunwayReportResponse{
		GeneratedAt: time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC),
		Items: []dto.RunwayResponse{
			{ProductID: "p1", SKU: "TEE-M", Name: "Camiseta talla M", Available: 12, ParLevel: 40,
				Velocity7d: 2.5, RunwayDays: 4, StockoutDate: &stockout, Status: "critical"},
			{ProductID: "p2", SKU: "MUG", Name: "Taza", Available: 1500, ParLevel: 100,
				RunwayDays: inventory.RunwayInfinite, RunwayInfinite: true, Status: "healthy"},
		},
		Critical: 1,
		Healthy:  1,
	}

	out, err := NewMarotoPDFGenerator().GenerateRunwayReportPDF(context.Background(), report, "America/Los_Angeles")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestGenerateRunwayReportPDF_ZonaInvalida(t *testing.T) {
	_, err := NewMarotoPDFGenerator().GenerateRunwayReportPDF(context.Background(), &dto.RunwayReportResponse{}, "Marte/Olympus")
	assert.Error(t, err)
}

func TestFormatThousands(t *testing.T) {
	assert.Equal(t, "0", formatThousands(0))
	assert.Equal(t, "999", formatThousands(999))
	assert.Equal(t, "25.000", formatThousands(25000))
	assert.Equal(t, "1.000.000", formatThousands(1000000))
	assert.Equal(t, "-1.500", formatThousands(-1500))
}

func TestRunwayLabel(t *testing.T) {
	assert.Equal(t, "sin fin", runwayLabel(dto.RunwayResponse{RunwayDays: inventory.RunwayInfinite, RunwayInfinite: true}))
	assert.Equal(t, "7 d", runwayLabel(dto.RunwayResponse{RunwayDays: 7}))
	assert.Equal(t, "999 d", runwayLabel(dto.RunwayResponse{RunwayDays: 999}))
	assert.Equal(t, "2.500 d", runwayLabel(dto.RunwayResponse{RunwayDays: 2500}))
}
