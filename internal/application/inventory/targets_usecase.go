package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// StockTargetsUseCase metas de reposición por producto y bodega. Son referencias para el
// pronóstico y la lista de reposición; no restringen ninguna operación del libro.
type StockTargetsUseCase struct {
	stockRepo repository.StockRepository
}

// NewStockTargetsUseCase construye el caso de uso.
func NewStockTargetsUseCase(stockRepo repository.StockRepository) *StockTargetsUseCase {
	return &StockTargetsUseCase{stockRepo: stockRepo}
}

// SetTargets reemplaza par_level y reorder_point del par. Si el par nunca se tocó se crea en cero.
func (uc *StockTargetsUseCase) SetTargets(ctx context.Context, productID, warehouseID string, in dto.StockTargetsRequest) (*dto.StockLevelResponse, error) {
	if productID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.ParLevel < 0 || in.ReorderPoint < 0 {
		return nil, fmt.Errorf("%w: par_level y reorder_point no pueden ser negativos", domain.ErrInvalidInput)
	}
	level, err := uc.stockRepo.SetTargets(ctx, productID, warehouseID, in.ParLevel, in.ReorderPoint)
	if err != nil {
		return nil, err
	}
	out := dto.ToStockLevelResponse(level)
	return &out, nil
}
