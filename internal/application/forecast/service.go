package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/pkg/daterange"
)

// Service velocidad de ventas y runway por producto.
type Service struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	stock    repository.StockRepository
	calendar *daterange.Calendar
	log      zerolog.Logger
	now      func() time.Time
}

// NewService construye el servicio. calendar define el "hoy" de las fechas de agotamiento.
func NewService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	stock repository.StockRepository,
	calendar *daterange.Calendar,
	log zerolog.Logger,
) *Service {
	return &Service{
		products: products,
		orders:   orders,
		stock:    stock,
		calendar: calendar,
		log:      log.With().Str("component", "forecast").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UpdateProductVelocities recalcula las velocidades de 7/14/30 días de todos los productos activos.
// Un producto sin ventas en la ventana queda en 0.
func (s *Service) UpdateProductVelocities(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.products.ListIDs(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("forecast: listar productos: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	sold := make(map[int]map[string]int64, len(inventory.VelocityWindows))
	for _, w := range inventory.VelocityWindows {
		from, to := daterange.TrailingWindow(now, w)
		units, err := s.orders.UnitsSoldByProduct(ctx, from, to)
		if err != nil {
			return 0, fmt.Errorf("forecast: unidades vendidas %dd: %w", w, err)
		}
		sold[w] = units
	}

	updates := make([]repository.VelocityUpdate, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, repository.VelocityUpdate{
			ProductID:   id,
			Velocity7d:  inventory.Velocity(sold[7][id], 7),
			Velocity14d: inventory.Velocity(sold[14][id], 14),
			Velocity30d: inventory.Velocity(sold[30][id], 30),
		})
	}
	if err := s.products.UpdateVelocities(ctx, updates, now.UTC()); err != nil {
		return 0, fmt.Errorf("forecast: guardar velocidades: %w", err)
	}
	s.log.Info().Int("products", len(updates)).Msg("velocidades recalculadas")
	return len(updates), nil
}

// Runway pronóstico de un producto; ErrNotFound si no existe o está inactivo.
func (s *Service) Runway(ctx context.Context, productID string) (*dto.RunwayResponse, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	summaries, err := s.stock.Summaries(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, domain.ErrNotFound
	}
	out := s.toRunway(summaries[0], s.calendar.StartOfDay(s.now()))
	return &out, nil
}

// RunwayReport todos los productos activos ordenados por severidad y luego por runway ascendente.
func (s *Service) RunwayReport(ctx context.Context) (*dto.RunwayReportResponse, error) {
	summaries, err := s.stock.Summaries(ctx, "")
	if err != nil {
		return nil, err
	}
	now := s.now()
	today := s.calendar.StartOfDay(now)
	report := &dto.RunwayReportResponse{
		GeneratedAt: now,
		Items:       make([]dto.RunwayResponse, 0, len(summaries)),
	}
	for _, sum := range summaries {
		r := s.toRunway(sum, today)
		switch inventory.StockStatus(r.Status) {
		case inventory.StatusCritical:
			report.Critical++
		case inventory.StatusWarning:
			report.Warning++
		default:
			report.Healthy++
		}
		report.Items = append(report.Items, r)
	}
	sort.SliceStable(report.Items, func(i, j int) bool {
		a, b := report.Items[i], report.Items[j]
		sa, sb := inventory.StockStatus(a.Status).Severity(), inventory.StockStatus(b.Status).Severity()
		if sa != sb {
			return sa < sb
		}
		if a.RunwayInfinite != b.RunwayInfinite {
			return b.RunwayInfinite
		}
		if a.RunwayDays != b.RunwayDays {
			return a.RunwayDays < b.RunwayDays
		}
		return a.SKU < b.SKU
	})
	return report, nil
}

// Calendar calendario de presentación.
func (s *Service) Calendar() *daterange.Calendar { return s.calendar }

func (s *Service) toRunway(sum repository.ProductStockSummary, today time.Time) dto.RunwayResponse {
	available := sum.Available()
	runway := inventory.ProjectRunway(available, sum.Velocity7d)
	status := inventory.Classify(inventory.ClassifyInput{
		Quantity:  sum.Quantity,
		Available: available,
		ParLevel:  sum.ParLevel,
		Runway:    runway.Days,
	})
	return dto.RunwayResponse{
		ProductID:      sum.ProductID,
		SKU:            sum.SKU,
		Name:           sum.Name,
		Quantity:       sum.Quantity,
		Reserved:       sum.Reserved,
		Available:      available,
		ParLevel:       sum.ParLevel,
		Velocity7d:     sum.Velocity7d,
		RunwayDays:     runway.Days,
		RunwayInfinite: !runway.Finite,
		StockoutDate:   runway.StockoutDate(today),
		Status:         string(status),
	}
}
