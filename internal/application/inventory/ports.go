package inventory

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// TxRepositories repositorios atados a una misma transacción de BD.
type TxRepositories struct {
	Stock     repository.StockRepository
	Movements repository.StockMovementRepository
	Products  repository.ProductRepository
	Orders    repository.OrderRepository
	Events    repository.ProcessedEventRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil, Rollback en cualquier otro caso: la mutación del libro y el
// registro del movimiento se aplican juntos o no se aplican.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepositories) error) error
}
