package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
// La columna available es generada; nunca se escribe desde aquí.
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `product_id, warehouse_id, quantity, reserved, par_level, reorder_point, last_counted_at, updated_at`

func scanStock(row pgx.Row) (*entity.StockLevel, error) {
	var s entity.StockLevel
	err := row.Scan(&s.ProductID, &s.WarehouseID, &s.Quantity, &s.Reserved,
		&s.ParLevel, &s.ReorderPoint, &s.LastCountedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get obtiene la entrada del par; (nil, nil) si no existe.
func (r *StockRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.StockLevel, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_levels WHERE product_id = $1 AND warehouse_id = $2`
	s, err := scanStock(r.q.QueryRow(ctx, query, productID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get stock", err)
	}
	return s, nil
}

// GetForUpdate inserta la entrada en cero si falta y bloquea la fila (SELECT FOR UPDATE).
// Producto o bodega inexistentes llegan como ErrNotFound (violación de FK).
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.StockLevel, error) {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO stock_levels (product_id, warehouse_id, quantity, reserved, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (product_id, warehouse_id) DO NOTHING`, productID, warehouseID); err != nil {
		return nil, wrapErr("init stock", err)
	}
	query := `SELECT ` + stockColumns + ` FROM stock_levels WHERE product_id = $1 AND warehouse_id = $2 FOR UPDATE`
	s, err := scanStock(r.q.QueryRow(ctx, query, productID, warehouseID))
	if err != nil {
		return nil, wrapErr("get stock for update", err)
	}
	return s, nil
}

// Save escribe cantidades y fecha de conteo de una entrada bloqueada.
func (r *StockRepo) Save(ctx context.Context, level *entity.StockLevel) error {
	_, err := r.q.Exec(ctx, `
		UPDATE stock_levels
		SET quantity = $3, reserved = $4, last_counted_at = $5, updated_at = $6
		WHERE product_id = $1 AND warehouse_id = $2`,
		level.ProductID, level.WarehouseID, level.Quantity, level.Reserved, level.LastCountedAt, level.UpdatedAt)
	return wrapErr("save stock", err)
}

// SetTargets upsert de las metas del par; producto o bodega inexistentes dan ErrNotFound (FK).
func (r *StockRepo) SetTargets(ctx context.Context, productID, warehouseID string, parLevel, reorderPoint int64) (*entity.StockLevel, error) {
	query := `
		INSERT INTO stock_levels (product_id, warehouse_id, quantity, reserved, par_level, reorder_point, updated_at)
		VALUES ($1, $2, 0, 0, $3, $4, now())
		ON CONFLICT (product_id, warehouse_id) DO UPDATE SET
			par_level = EXCLUDED.par_level,
			reorder_point = EXCLUDED.reorder_point,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + stockColumns
	s, err := scanStock(r.q.QueryRow(ctx, query, productID, warehouseID, parLevel, reorderPoint))
	if err != nil {
		return nil, wrapErr("set stock targets", err)
	}
	return s, nil
}

// ListByProduct entradas del producto en todas las bodegas.
func (r *StockRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockLevel, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_levels WHERE product_id = $1 ORDER BY warehouse_id`
	return r.list(ctx, "list stock by product", query, productID)
}

// ListByWarehouse entradas paginadas de una bodega.
func (r *StockRepo) ListByWarehouse(ctx context.Context, warehouseID string, limit, offset int) ([]*entity.StockLevel, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_levels WHERE warehouse_id = $1 ORDER BY product_id LIMIT $2 OFFSET $3`
	return r.list(ctx, "list stock by warehouse", query, warehouseID, limit, offset)
}

func (r *StockRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockLevel, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()
	var out []*entity.StockLevel
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		out = append(out, s)
	}
	return out, wrapErr(op, rows.Err())
}

// AvailableByProducts disponible por producto; warehouseID vacío suma todas las bodegas.
func (r *StockRepo) AvailableByProducts(ctx context.Context, productIDs []string, warehouseID string) (map[string]int64, error) {
	out := make(map[string]int64, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT product_id, SUM(available)::bigint
		FROM stock_levels
		WHERE product_id = ANY($1::uuid[]) AND ($2 = '' OR warehouse_id::text = $2)
		GROUP BY product_id`, productIDs, warehouseID)
	if err != nil {
		return nil, wrapErr("available by products", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var avail int64
		if err := rows.Scan(&id, &avail); err != nil {
			return nil, wrapErr("available by products", err)
		}
		out[id] = avail
	}
	return out, wrapErr("available by products", rows.Err())
}

// Summaries stock agregado por producto activo junto con su velocidad de 7 días.
// Productos sin entradas aparecen con cantidades en cero.
func (r *StockRepo) Summaries(ctx context.Context, productID string) ([]repository.ProductStockSummary, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.id, p.sku, p.name,
		       COALESCE(SUM(s.quantity), 0)::bigint,
		       COALESCE(SUM(s.reserved), 0)::bigint,
		       COALESCE(SUM(s.par_level), 0)::bigint,
		       p.velocity_7d
		FROM products p
		LEFT JOIN stock_levels s ON s.product_id = p.id
		WHERE p.active AND ($1 = '' OR p.id::text = $1)
		GROUP BY p.id, p.sku, p.name, p.velocity_7d
		ORDER BY p.sku`, productID)
	if err != nil {
		return nil, wrapErr("stock summaries", err)
	}
	defer rows.Close()
	var out []repository.ProductStockSummary
	for rows.Next() {
		var s repository.ProductStockSummary
		if err := rows.Scan(&s.ProductID, &s.SKU, &s.Name, &s.Quantity, &s.Reserved, &s.ParLevel, &s.Velocity7d); err != nil {
			return nil, wrapErr("stock summaries", err)
		}
		out = append(out, s)
	}
	return out, wrapErr("stock summaries", rows.Err())
}

// BelowReorderPoint candidatos a reposición, mayor déficit primero.
func (r *StockRepo) BelowReorderPoint(ctx context.Context, warehouseID string) ([]repository.ReplenishmentItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT p.id, p.sku, p.name, $1::text,
		       SUM(s.quantity)::bigint, SUM(s.reserved)::bigint,
		       SUM(s.par_level)::bigint, SUM(s.reorder_point)::bigint,
		       p.unit_price, p.cost_price
		FROM products p
		JOIN stock_levels s ON s.product_id = p.id
		WHERE p.active AND ($1 = '' OR s.warehouse_id::text = $1)
		GROUP BY p.id, p.sku, p.name, p.unit_price, p.cost_price
		HAVING SUM(s.reorder_point) > 0 AND SUM(s.available) < SUM(s.reorder_point)
		ORDER BY SUM(s.reorder_point) - SUM(s.available) DESC, p.sku`, warehouseID)
	if err != nil {
		return nil, wrapErr("below reorder point", err)
	}
	defer rows.Close()
	var out []repository.ReplenishmentItem
	for rows.Next() {
		var it repository.ReplenishmentItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.Name, &it.WarehouseID, &it.Quantity, &it.Reserved,
			&it.ParLevel, &it.ReorderPoint, &it.UnitPrice, &it.CostPrice); err != nil {
			return nil, wrapErr("below reorder point", err)
		}
		out = append(out, it)
	}
	return out, wrapErr("below reorder point", rows.Err())
}
