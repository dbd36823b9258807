package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, sku, name, description, unit_price, cost_price, reorder_level, unit_measure, active,
	velocity_7d, velocity_14d, velocity_30d, velocity_updated_at, created_at, updated_at`

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.UnitPrice, &p.CostPrice, &p.ReorderLevel,
		&p.UnitMeasure, &p.Active, &p.Velocity7d, &p.Velocity14d, &p.Velocity30d, &p.VelocityUpdatedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO products (id, sku, name, description, unit_price, cost_price, reorder_level, unit_measure, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.SKU, p.Name, p.Description, p.UnitPrice, p.CostPrice, p.ReorderLevel, p.UnitMeasure, p.Active,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return wrapErr("insert product", err)
	}
	return nil
}

// GetByID obtiene un producto por ID; (nil, nil) si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, "get product", `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetBySKU obtiene un producto por SKU; (nil, nil) si no existe.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	return r.getOne(ctx, "get product by sku", `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku)
}

func (r *ProductRepo) getOne(ctx context.Context, op, query string, arg any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// ResolveSKUs sku -> id de los SKUs que existen en el catálogo.
func (r *ProductRepo) ResolveSKUs(ctx context.Context, skus []string) (map[string]string, error) {
	out := make(map[string]string, len(skus))
	if len(skus) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `SELECT sku, id FROM products WHERE sku = ANY($1)`, skus)
	if err != nil {
		return nil, wrapErr("resolve skus", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sku, id string
		if err := rows.Scan(&sku, &id); err != nil {
			return nil, wrapErr("resolve skus", err)
		}
		out[sku] = id
	}
	return out, wrapErr("resolve skus", rows.Err())
}

// CostsByIDs id -> costo promedio de los productos indicados.
func (r *ProductRepo) CostsByIDs(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `SELECT id, cost_price FROM products WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, wrapErr("product costs", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var cost decimal.Decimal
		if err := rows.Scan(&id, &cost); err != nil {
			return nil, wrapErr("product costs", err)
		}
		out[id] = cost
	}
	return out, wrapErr("product costs", rows.Err())
}

// Update actualiza los campos descriptivos (no costo ni velocidades).
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE products
		SET name = $2, description = $3, unit_price = $4, reorder_level = $5, unit_measure = $6, active = $7, updated_at = $8
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.UnitPrice, p.ReorderLevel, p.UnitMeasure, p.Active, p.UpdatedAt)
	if err != nil {
		return wrapErr("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateCost actualiza el costo promedio ponderado.
func (r *ProductRepo) UpdateCost(ctx context.Context, productID string, cost decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE products SET cost_price = $2, updated_at = now() WHERE id = $1`, productID, cost)
	if err != nil {
		return wrapErr("update product cost", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateVelocities guarda las velocidades en lote con una sola sentencia (unnest de arreglos).
func (r *ProductRepo) UpdateVelocities(ctx context.Context, updates []repository.VelocityUpdate, at time.Time) error {
	if len(updates) == 0 {
		return nil
	}
	ids := make([]string, len(updates))
	v7 := make([]float64, len(updates))
	v14 := make([]float64, len(updates))
	v30 := make([]float64, len(updates))
	for i, u := range updates {
		ids[i], v7[i], v14[i], v30[i] = u.ProductID, u.Velocity7d, u.Velocity14d, u.Velocity30d
	}
	_, err := r.q.Exec(ctx, `
		UPDATE products p
		SET velocity_7d = u.v7, velocity_14d = u.v14, velocity_30d = u.v30, velocity_updated_at = $5
		FROM unnest($1::uuid[], $2::float8[], $3::float8[], $4::float8[]) AS u(id, v7, v14, v30)
		WHERE p.id = u.id`, ids, v7, v14, v30, at)
	return wrapErr("update velocities", err)
}

// List productos ordenados por SKU.
func (r *ProductRepo) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1 = false OR active)
		ORDER BY sku
		LIMIT $2 OFFSET $3`, activeOnly, limit, offset)
	if err != nil {
		return nil, wrapErr("list products", err)
	}
	defer rows.Close()
	var out []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrapErr("list products", err)
		}
		out = append(out, p)
	}
	return out, wrapErr("list products", rows.Err())
}

// ListIDs ids de productos (solo activos si activeOnly).
func (r *ProductRepo) ListIDs(ctx context.Context, activeOnly bool) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM products WHERE ($1 = false OR active) ORDER BY id`, activeOnly)
	if err != nil {
		return nil, wrapErr("list product ids", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("list product ids", err)
		}
		out = append(out, id)
	}
	return out, wrapErr("list product ids", rows.Err())
}
