// Package pdf genera el reporte de runway de inventario en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: título + fecha de generación (zona del reporte)     │
//	│  RESUMEN: críticos | en alerta | sanos                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: SKU | Producto | Disp. | Par | Vel/día | Runway | …  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: leyenda de clasificación                           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/forecast"
	"github.com/jhoicas/stockledger-api/internal/domain/inventory"
	"github.com/jhoicas/stockledger-api/pkg/daterange"
)

var _ forecast.RunwayReportGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 180, Green: 30, Blue: 30}
	colorAmber   = &props.Color{Red: 190, Green: 120, Blue: 0}
	colorGreen   = &props.Color{Red: 20, Green: 120, Blue: 60}
)

// MarotoPDFGenerator implementa forecast.RunwayReportGenerator con Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateRunwayReportPDF genera el PDF y devuelve sus bytes. Las fechas se muestran en timezone.
func (g *MarotoPDFGenerator) GenerateRunwayReportPDF(
	_ context.Context,
	report *dto.RunwayReportResponse,
	timezone string,
) ([]byte, error) {
	cal, err := daterange.New(timezone)
	if err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Runway de inventario", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report, cal))
	m.AddRows(summaryRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	for _, r := range tableDetailRows(report.Items, cal) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(legendRow())

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(report *dto.RunwayReportResponse, cal *daterange.Calendar) core.Row {
	generated := report.GeneratedAt.In(cal.Location()).Format("02/01/2006 15:04 MST")
	return row.New(16).Add(
		col.New(8).Add(
			text.New("RUNWAY DE INVENTARIO", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("%d productos activos", len(report.Items)), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("Generado: "+generated, props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
			text.New("Zona: "+cal.Location().String(), props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
		),
	)
}

func summaryRow(report *dto.RunwayReportResponse) core.Row {
	box := func(label string, n int, c *props.Color) core.Col {
		return col.New(4).Add(
			text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center, Color: c, Top: 1}),
			text.New(strconv.Itoa(n), props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Center, Color: c, Top: 6}),
		)
	}
	return row.New(14).Add(
		box("CRÍTICOS", report.Critical, colorRed),
		box("EN ALERTA", report.Warning, colorAmber),
		box("SANOS", report.Healthy, colorGreen),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("SKU", 2, align.Left),
		h("Producto", 3, align.Left),
		h("Disp.", 1, align.Right),
		h("Par", 1, align.Right),
		h("Vel/día", 1, align.Right),
		h("Runway", 1, align.Right),
		h("Agotamiento", 2, align.Center),
		h("Estado", 1, align.Center),
	)
}

// tableDetailRows una fila por producto, en el orden del reporte.
func tableDetailRows(items []dto.RunwayResponse, cal *daterange.Calendar) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		cell := props.Text{Size: 8, Top: 1, Left: 1, Right: 1}
		right := cell
		right.Align = align.Right
		center := cell
		center.Align = align.Center
		status := center
		status.Style = fontstyle.Bold
		status.Color = statusColor(it.Status)

		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(it.SKU, cell)),
			col.New(3).Add(text.New(truncate(it.Name, 34), cell)),
			col.New(1).Add(text.New(formatThousands(it.Available), right)),
			col.New(1).Add(text.New(formatThousands(it.ParLevel), right)),
			col.New(1).Add(text.New(strconv.FormatFloat(it.Velocity7d, 'f', 2, 64), right)),
			col.New(1).Add(text.New(runwayLabel(it), right)),
			col.New(2).Add(text.New(stockoutLabel(it.StockoutDate, cal), center)),
			col.New(1).Add(text.New(statusLabel(it.Status), status)),
		))
	}
	return result
}

func legendRow() core.Row {
	return row.New(12).Add(col.New(12).Add(
		text.New(
			"Runway = disponible / velocidad de 7 días. Crítico: sin disponible o runway <= 7 días. "+
				"Alerta: runway <= 14 días o cantidad bajo el nivel par. «sin fin» = sin ventas en la ventana.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func statusColor(status string) *props.Color {
	switch status {
	case string(inventory.StatusCritical):
		return colorRed
	case string(inventory.StatusWarning):
		return colorAmber
	default:
		return colorGreen
	}
}

func statusLabel(status string) string {
	switch status {
	case string(inventory.StatusCritical):
		return "CRÍTICO"
	case string(inventory.StatusWarning):
		return "ALERTA"
	default:
		return "SANO"
	}
}

func runwayLabel(it dto.RunwayResponse) string {
	if it.RunwayInfinite {
		return "sin fin"
	}
	return formatThousands(int64(it.RunwayDays)) + " d"
}

func stockoutLabel(t *time.Time, cal *daterange.Calendar) string {
	if t == nil {
		return "-"
	}
	return cal.FormatDate(*t)
}

// formatThousands inserta puntos de miles. Ej: 25000 → "25.000".
func formatThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	l := len(s)
	if l <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, l+l/3)
	for i, c := range []byte(s) {
		if i > 0 && (l-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
