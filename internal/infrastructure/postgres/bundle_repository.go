package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var _ repository.BundleRepository = (*BundleRepo)(nil)

// BundleRepo bundles y sus componentes. Las escrituras tocan dos tablas y van en una transacción propia.
type BundleRepo struct {
	q TxQuerier
}

// NewBundleRepository construye el adaptador con el pool (o una tx: la escritura usa savepoint).
func NewBundleRepository(q TxQuerier) *BundleRepo {
	return &BundleRepo{q: q}
}

// Create inserta cabecera y componentes en la misma transacción.
func (r *BundleRepo) Create(ctx context.Context, b *entity.Bundle) error {
	return pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO bundles (id, sku, name, category, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			b.ID, b.SKU, b.Name, b.Category, b.Active, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return wrapErr("insert bundle", err)
		}
		return insertComponents(ctx, tx, b)
	})
}

// Update reemplaza la cabecera y el conjunto de componentes.
func (r *BundleRepo) Update(ctx context.Context, b *entity.Bundle) error {
	return pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE bundles SET name = $2, category = $3, active = $4, updated_at = $5
			WHERE id = $1`,
			b.ID, b.Name, b.Category, b.Active, b.UpdatedAt)
		if err != nil {
			return wrapErr("update bundle", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM bundle_components WHERE bundle_id = $1`, b.ID); err != nil {
			return wrapErr("delete bundle components", err)
		}
		return insertComponents(ctx, tx, b)
	})
}

func insertComponents(ctx context.Context, tx pgx.Tx, b *entity.Bundle) error {
	batch := &pgx.Batch{}
	for _, c := range b.Components {
		batch.Queue(`
			INSERT INTO bundle_components (bundle_id, product_id, quantity_per_bundle, position)
			VALUES ($1, $2, $3, $4)`,
			b.ID, c.ProductID, c.QuantityPerBundle, c.Position)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return wrapErr("insert bundle components", err)
	}
	return nil
}

// GetByID bundle con componentes en orden de posición; (nil, nil) si no existe.
func (r *BundleRepo) GetByID(ctx context.Context, id string) (*entity.Bundle, error) {
	var b entity.Bundle
	err := r.q.QueryRow(ctx, `
		SELECT id, sku, name, category, active, created_at, updated_at
		FROM bundles WHERE id = $1`, id).Scan(
		&b.ID, &b.SKU, &b.Name, &b.Category, &b.Active, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get bundle", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT product_id, quantity_per_bundle, position
		FROM bundle_components
		WHERE bundle_id = $1
		ORDER BY position, product_id`, id)
	if err != nil {
		return nil, wrapErr("get bundle components", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c entity.BundleComponent
		if err := rows.Scan(&c.ProductID, &c.QuantityPerBundle, &c.Position); err != nil {
			return nil, wrapErr("get bundle components", err)
		}
		b.Components = append(b.Components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("get bundle components", err)
	}
	return &b, nil
}
