package repository

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// BundleRepository puerto de bundles con sus componentes ordenados.
type BundleRepository interface {
	// Create guarda el bundle y sus componentes juntos. SKU repetido devuelve ErrDuplicate.
	Create(ctx context.Context, b *entity.Bundle) error
	// Update reemplaza cabecera y componentes; ErrNotFound si no existe.
	Update(ctx context.Context, b *entity.Bundle) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Bundle, error)
}
