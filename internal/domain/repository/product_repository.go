package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// VelocityUpdate velocidades calculadas para un producto.
type VelocityUpdate struct {
	ProductID   string
	Velocity7d  float64
	Velocity14d float64
	Velocity30d float64
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID y GetBySKU devuelven (nil, nil) si no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// ResolveSKUs devuelve sku -> product_id solo para los SKUs que existen.
	ResolveSKUs(ctx context.Context, skus []string) (map[string]string, error)
	// CostsByIDs devuelve product_id -> cost_price de los productos existentes.
	CostsByIDs(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
	Update(ctx context.Context, product *entity.Product) error
	UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error
	UpdateVelocities(ctx context.Context, updates []VelocityUpdate, at time.Time) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entity.Product, error)
	ListIDs(ctx context.Context, activeOnly bool) ([]string, error)
}
