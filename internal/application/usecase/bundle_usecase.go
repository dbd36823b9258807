package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stockledger-api/internal/application/bundle"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// BundleUseCase alta y edición de bundles. La respuesta sale del resolver con disponibilidad y costo actuales.
type BundleUseCase struct {
	bundles  repository.BundleRepository
	products repository.ProductRepository
	resolver *bundle.Resolver
}

// NewBundleUseCase construye el caso de uso.
func NewBundleUseCase(bundles repository.BundleRepository, products repository.ProductRepository, resolver *bundle.Resolver) *BundleUseCase {
	return &BundleUseCase{bundles: bundles, products: products, resolver: resolver}
}

// Create crea un bundle activo con al menos un componente. SKU duplicado devuelve ErrDuplicate.
func (uc *BundleUseCase) Create(ctx context.Context, in dto.CreateBundleRequest) (*dto.BundleResponse, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	if in.SKU == "" || strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrInvalidInput
	}
	components, err := uc.components(ctx, in.Components)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	b := &entity.Bundle{
		ID:         uuid.New().String(),
		SKU:        in.SKU,
		Name:       in.Name,
		Category:   in.Category,
		Active:     true,
		Components: components,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.bundles.Create(ctx, b); err != nil {
		return nil, err
	}
	return uc.resolver.Get(ctx, b.ID, "")
}

// Update cambia cabecera y, si vienen, reemplaza los componentes. El SKU no se edita.
func (uc *BundleUseCase) Update(ctx context.Context, id string, in dto.UpdateBundleRequest) (*dto.BundleResponse, error) {
	b, err := uc.bundles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, domain.ErrInvalidInput
		}
		b.Name = *in.Name
	}
	if in.Category != nil {
		b.Category = *in.Category
	}
	if in.Active != nil {
		b.Active = *in.Active
	}
	if in.Components != nil {
		if b.Components, err = uc.components(ctx, in.Components); err != nil {
			return nil, err
		}
	}
	b.UpdatedAt = time.Now().UTC()
	if err := uc.bundles.Update(ctx, b); err != nil {
		return nil, err
	}
	return uc.resolver.Get(ctx, b.ID, "")
}

// components valida la lista: no vacía, cantidades > 0 y productos existentes sin repetir.
func (uc *BundleUseCase) components(ctx context.Context, in []dto.BundleComponentRequest) ([]entity.BundleComponent, error) {
	if len(in) == 0 {
		return nil, domain.ErrInvalidInput
	}
	seen := make(map[string]bool, len(in))
	out := make([]entity.BundleComponent, 0, len(in))
	for i, c := range in {
		if c.QuantityPerBundle <= 0 || seen[c.ProductID] {
			return nil, domain.ErrInvalidInput
		}
		if _, err := uuid.Parse(c.ProductID); err != nil {
			return nil, domain.ErrInvalidInput
		}
		seen[c.ProductID] = true
		p, err := uc.products.GetByID(ctx, c.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, domain.ErrInvalidInput
		}
		out = append(out, entity.BundleComponent{ProductID: c.ProductID, QuantityPerBundle: c.QuantityPerBundle, Position: i})
	}
	return out, nil
}
