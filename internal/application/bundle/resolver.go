package bundle

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// Resolver calcula disponibilidad y costo de bundles a partir del libro y del catálogo.
// Nada se guarda: cada consulta lee el estado actual de los componentes.
type Resolver struct {
	bundles  repository.BundleRepository
	stock    repository.StockRepository
	products repository.ProductRepository
}

// NewResolver construye el resolver.
func NewResolver(bundles repository.BundleRepository, stock repository.StockRepository, products repository.ProductRepository) *Resolver {
	return &Resolver{bundles: bundles, stock: stock, products: products}
}

// Availability bundles completos armables. warehouseID vacío suma todas las bodegas.
func (r *Resolver) Availability(ctx context.Context, bundleID, warehouseID string) (int64, error) {
	b, err := r.load(ctx, bundleID)
	if err != nil {
		return 0, err
	}
	available, err := r.componentAvailability(ctx, b, warehouseID)
	if err != nil {
		return 0, err
	}
	return inventory.BundleAvailability(b.Components, available), nil
}

// Cost costo derivado del bundle con los costos actuales de los componentes.
func (r *Resolver) Cost(ctx context.Context, bundleID string) (decimal.Decimal, error) {
	b, err := r.load(ctx, bundleID)
	if err != nil {
		return decimal.Zero, err
	}
	costs, err := r.componentCosts(ctx, b)
	if err != nil {
		return decimal.Zero, err
	}
	return inventory.BundleCost(b.Components, costs), nil
}

// Get bundle con componentes, disponibilidad y costo para mostrar.
func (r *Resolver) Get(ctx context.Context, bundleID, warehouseID string) (*dto.BundleResponse, error) {
	b, err := r.load(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	available, err := r.componentAvailability(ctx, b, warehouseID)
	if err != nil {
		return nil, err
	}
	costs, err := r.componentCosts(ctx, b)
	if err != nil {
		return nil, err
	}

	components := make([]dto.BundleComponentResponse, 0, len(b.Components))
	for _, c := range b.Components {
		components = append(components, dto.BundleComponentResponse{
			ProductID:         c.ProductID,
			QuantityPerBundle: c.QuantityPerBundle,
			Available:         available[c.ProductID],
			CostPrice:         costs[c.ProductID],
		})
	}
	return &dto.BundleResponse{
		ID:           b.ID,
		SKU:          b.SKU,
		Name:         b.Name,
		Category:     b.Category,
		Active:       b.Active,
		Components:   components,
		Availability: inventory.BundleAvailability(b.Components, available),
		Cost:         inventory.BundleCost(b.Components, costs),
	}, nil
}

func (r *Resolver) load(ctx context.Context, bundleID string) (*entity.Bundle, error) {
	if bundleID == "" {
		return nil, domain.ErrInvalidInput
	}
	b, err := r.bundles.GetByID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (r *Resolver) componentAvailability(ctx context.Context, b *entity.Bundle, warehouseID string) (map[string]int64, error) {
	if len(b.Components) == 0 {
		return map[string]int64{}, nil
	}
	return r.stock.AvailableByProducts(ctx, componentIDs(b), warehouseID)
}

func (r *Resolver) componentCosts(ctx context.Context, b *entity.Bundle) (map[string]decimal.Decimal, error) {
	if len(b.Components) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	return r.products.CostsByIDs(ctx, componentIDs(b))
}

func componentIDs(b *entity.Bundle) []string {
	ids := make([]string, 0, len(b.Components))
	for _, c := range b.Components {
		ids = append(ids, c.ProductID)
	}
	return ids
}
