package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo diario de movimientos (solo INSERT y SELECT).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create agrega un movimiento; details se guarda como jsonb según su tipo.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	details, err := entity.MarshalDetails(m.Details)
	if err != nil {
		return fmt.Errorf("encode movement details: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, warehouse_id, type, delta, quantity_after, reserved_after,
			reference_type, reference_id, actor, notes, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.ProductID, m.WarehouseID, string(m.Type), m.Delta, m.QuantityAfter, m.ReservedAfter,
		string(m.ReferenceType), m.ReferenceID, m.Actor, m.Notes, details, m.CreatedAt)
	return wrapErr("insert movement", err)
}

// List página del diario, más reciente primero, y total de filas que cumplen el filtro.
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, int, error) {
	where, args := movementWhere(f)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`+where, args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count movements", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`
		SELECT id, product_id, warehouse_id, type, delta, quantity_after, reserved_after,
		       reference_type, reference_id, actor, notes, details, created_at
		FROM stock_movements%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr("list movements", err)
	}
	defer rows.Close()

	var out []*entity.StockMovement
	for rows.Next() {
		var (
			m       entity.StockMovement
			typ     string
			refType string
			raw     []byte
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseID, &typ, &m.Delta, &m.QuantityAfter, &m.ReservedAfter,
			&refType, &m.ReferenceID, &m.Actor, &m.Notes, &raw, &m.CreatedAt); err != nil {
			return nil, 0, wrapErr("scan movement", err)
		}
		m.Type = entity.MovementType(typ)
		m.ReferenceType = entity.ReferenceType(refType)
		if m.Details, err = entity.UnmarshalDetails(m.Type, raw); err != nil {
			return nil, 0, err
		}
		out = append(out, &m)
	}
	return out, total, wrapErr("list movements", rows.Err())
}

// SumQuantityDeltas suma de delta de inbound/outbound/adjustment del par.
func (r *StockMovementRepo) SumQuantityDeltas(ctx context.Context, productID, warehouseID string) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(delta), 0)::bigint
		FROM stock_movements
		WHERE product_id = $1 AND warehouse_id = $2 AND type IN ('inbound', 'outbound', 'adjustment')`,
		productID, warehouseID).Scan(&sum)
	if err != nil {
		return 0, wrapErr("sum movement deltas", err)
	}
	return sum, nil
}

// HeldByReference reserva neta de la referencia por par. reserved_consumed sale del details
// del outbound; los movimientos previos sin ese campo cuentan como cero.
func (r *StockMovementRepo) HeldByReference(ctx context.Context, refType entity.ReferenceType, refID string) ([]repository.HeldReservation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT product_id, warehouse_id, held
		FROM (
			SELECT product_id, warehouse_id,
			       SUM(CASE type
			           WHEN 'outbound' THEN -COALESCE((details->>'reserved_consumed')::bigint, 0)
			           ELSE delta
			       END)::bigint AS held
			FROM stock_movements
			WHERE reference_type = $1 AND reference_id = $2
			  AND type IN ('reservation', 'release', 'outbound')
			GROUP BY product_id, warehouse_id
		) h
		WHERE held > 0
		ORDER BY product_id, warehouse_id`, string(refType), refID)
	if err != nil {
		return nil, wrapErr("held by reference", err)
	}
	defer rows.Close()
	var out []repository.HeldReservation
	for rows.Next() {
		var h repository.HeldReservation
		if err := rows.Scan(&h.ProductID, &h.WarehouseID, &h.Quantity); err != nil {
			return nil, wrapErr("held by reference", err)
		}
		out = append(out, h)
	}
	return out, wrapErr("held by reference", rows.Err())
}

func movementWhere(f repository.MovementFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.WarehouseID != "" {
		add("warehouse_id = $%d", f.WarehouseID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
