package inventory

import (
	"context"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

// LedgerQueryUseCase lecturas del libro de stock y del diario de movimientos.
type LedgerQueryUseCase struct {
	stockRepo    repository.StockRepository
	movementRepo repository.StockMovementRepository
}

// NewLedgerQueryUseCase construye el caso de uso.
func NewLedgerQueryUseCase(stockRepo repository.StockRepository, movementRepo repository.StockMovementRepository) *LedgerQueryUseCase {
	return &LedgerQueryUseCase{stockRepo: stockRepo, movementRepo: movementRepo}
}

// GetStock devuelve la entrada del par o ErrNotFound si nunca se tocó.
func (uc *LedgerQueryUseCase) GetStock(ctx context.Context, productID, warehouseID string) (*dto.StockLevelResponse, error) {
	if productID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	level, err := uc.stockRepo.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, domain.ErrNotFound
	}
	out := dto.ToStockLevelResponse(level)
	return &out, nil
}

// ListStockByProduct entradas de un producto en todas sus bodegas.
func (uc *LedgerQueryUseCase) ListStockByProduct(ctx context.Context, productID string) ([]dto.StockLevelResponse, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	levels, err := uc.stockRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockLevelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, dto.ToStockLevelResponse(l))
	}
	return out, nil
}

// ListStockByWarehouse entradas paginadas de una bodega.
func (uc *LedgerQueryUseCase) ListStockByWarehouse(ctx context.Context, warehouseID string, page dto.PageRequest) ([]dto.StockLevelResponse, error) {
	if warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	page.DefaultPage()
	levels, err := uc.stockRepo.ListByWarehouse(ctx, warehouseID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockLevelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, dto.ToStockLevelResponse(l))
	}
	return out, nil
}

// ListMovements diario filtrado, más reciente primero.
func (uc *LedgerQueryUseCase) ListMovements(ctx context.Context, filter repository.MovementFilter) (*dto.MovementListResponse, error) {
	page := dto.PageRequest{Limit: filter.Limit, Offset: filter.Offset}
	page.DefaultPage()
	filter.Limit, filter.Offset = page.Limit, page.Offset
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, domain.ErrInvalidInput
	}

	movements, total, err := uc.movementRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		items = append(items, dto.ToMovementResponse(m))
	}
	return &dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// Reconcile compara la cantidad del libro con la suma de movimientos que afectan cantidad.
func (uc *LedgerQueryUseCase) Reconcile(ctx context.Context, productID, warehouseID string) (*dto.ReconcileResponse, error) {
	if productID == "" || warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	level, err := uc.stockRepo.Get(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		level = entity.NewStockLevel(productID, warehouseID)
	}
	sum, err := uc.movementRepo.SumQuantityDeltas(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	return &dto.ReconcileResponse{
		ProductID:      productID,
		WarehouseID:    warehouseID,
		LedgerQuantity: level.Quantity,
		MovementSum:    sum,
		Difference:     level.Quantity - sum,
		Consistent:     level.Quantity == sum,
	}, nil
}
