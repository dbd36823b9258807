package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/inventory"
)

// ReservationEngine aplica las operaciones del libro de stock (reserve, release, deduct, adjust, receive)
// de forma transaccional: bloqueo de fila (SELECT FOR UPDATE), mutación y movimiento en la misma tx.
type ReservationEngine struct {
	txRunner           TxRunner
	defaultWarehouseID string
	log                zerolog.Logger
	metrics            *engineMetrics
	now                func() time.Time
}

// NewReservationEngine construye el motor. defaultWarehouseID se usa cuando reserve/release/deduct
// no indican bodega.
func NewReservationEngine(txRunner TxRunner, defaultWarehouseID string, log zerolog.Logger) *ReservationEngine {
	return &ReservationEngine{
		txRunner:           txRunner,
		defaultWarehouseID: defaultWarehouseID,
		log:                log.With().Str("component", "reservation_engine").Logger(),
		metrics:            newEngineMetrics(),
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// StockRequest entrada común de reserve/release/deduct.
// WarehouseID vacío = bodega por defecto.
type StockRequest struct {
	ProductID     string
	WarehouseID   string
	Quantity      int64
	ReferenceType entity.ReferenceType
	ReferenceID   string
	Actor         string
	Notes         string
	// HeldReserved tope de reserva que puede consumir un deduct; nil consume hasta Quantity.
	HeldReserved *int64
}

// AdjustRequest corrección manual de un operador.
type AdjustRequest struct {
	ProductID   string
	WarehouseID string
	Mode        entity.AdjustMode
	Quantity    int64
	Note        string
	Actor       string
}

// ReceiveRequest entrada física por recepción de compra.
type ReceiveRequest struct {
	ProductID   string
	WarehouseID string
	Quantity    int64
	UnitCost    decimal.Decimal
	ReferenceID string
	Actor       string
}

type ledgerOp func(level *entity.StockLevel) (inventory.Change, error)

// Reserve pasa cantidad de disponible a reservado. ErrInsufficientStock si no alcanza; el estado no cambia.
func (e *ReservationEngine) Reserve(ctx context.Context, req StockRequest) (*entity.StockLevel, error) {
	return e.run(ctx, "reserve", req, e.ReserveInTx)
}

// Release libera reserva, nunca por debajo de cero.
func (e *ReservationEngine) Release(ctx context.Context, req StockRequest) (*entity.StockLevel, error) {
	return e.run(ctx, "release", req, e.ReleaseInTx)
}

// Deduct despacho: baja cantidad y consume reserva, ambos con piso en cero.
func (e *ReservationEngine) Deduct(ctx context.Context, req StockRequest) (*entity.StockLevel, error) {
	return e.run(ctx, "deduct", req, e.DeductInTx)
}

// ReserveInTx ejecuta una reserva usando los repositorios proporcionados (misma transacción del caller).
func (e *ReservationEngine) ReserveInTx(ctx context.Context, repos TxRepositories, req StockRequest) (*entity.StockLevel, error) {
	level, _, err := e.apply(ctx, repos, req, func(l *entity.StockLevel) (inventory.Change, error) {
		return inventory.Reserve(l, req.Quantity)
	})
	if errors.Is(err, domain.ErrInsufficientStock) {
		e.metrics.insufficient(ctx)
	}
	return level, err
}

// ReleaseInTx ejecuta una liberación dentro de la transacción del caller.
func (e *ReservationEngine) ReleaseInTx(ctx context.Context, repos TxRepositories, req StockRequest) (*entity.StockLevel, error) {
	level, _, err := e.apply(ctx, repos, req, func(l *entity.StockLevel) (inventory.Change, error) {
		return inventory.Release(l, req.Quantity)
	})
	return level, err
}

// DeductInTx ejecuta un despacho dentro de la transacción del caller.
// Si la cantidad se recortó en cero se registra como anomalía.
func (e *ReservationEngine) DeductInTx(ctx context.Context, repos TxRepositories, req StockRequest) (*entity.StockLevel, error) {
	level, ch, err := e.apply(ctx, repos, req, func(l *entity.StockLevel) (inventory.Change, error) {
		if req.HeldReserved != nil {
			return inventory.DeductHeld(l, req.Quantity, *req.HeldReserved)
		}
		return inventory.Deduct(l, req.Quantity)
	})
	if err != nil {
		return nil, err
	}
	if d, ok := ch.Details.(entity.OutboundDetails); ok && d.QuantityClamped {
		e.metrics.clamp(ctx)
		e.log.Warn().
			Str("product_id", level.ProductID).
			Str("warehouse_id", level.WarehouseID).
			Int64("requested", d.Requested).
			Int64("removed", -ch.Delta).
			Str("reference", string(req.ReferenceType)+":"+req.ReferenceID).
			Msg("despacho mayor que la existencia: cantidad recortada en cero")
	}
	return level, nil
}

// Adjust corrección manual (add/remove/set). Devuelve la entrada resultante.
// Si no llega nota se genera una descripción del cambio.
func (e *ReservationEngine) Adjust(ctx context.Context, in AdjustRequest) (*entity.StockLevel, error) {
	if in.ProductID == "" || in.WarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	req := StockRequest{
		ProductID:     in.ProductID,
		WarehouseID:   in.WarehouseID,
		Quantity:      in.Quantity,
		ReferenceType: entity.ReferenceManual,
		Actor:         in.Actor,
		Notes:         in.Note,
	}
	return e.run(ctx, "adjust", req, func(ctx context.Context, repos TxRepositories, req StockRequest) (*entity.StockLevel, error) {
		level, ch, err := e.apply(ctx, repos, req, func(l *entity.StockLevel) (inventory.Change, error) {
			ch, err := inventory.Adjust(l, in.Mode, in.Quantity)
			if err == nil && in.Mode == entity.AdjustSet {
				counted := e.now()
				l.LastCountedAt = &counted
			}
			return ch, err
		})
		if err != nil {
			return nil, err
		}
		if d, ok := ch.Details.(entity.AdjustmentDetails); ok && d.OverRemoval {
			e.log.Info().
				Str("product_id", level.ProductID).
				Str("warehouse_id", level.WarehouseID).
				Int64("requested", d.Requested).
				Int64("previous", d.PreviousQuantity).
				Msg("ajuste: se pidió retirar más de lo existente, cantidad en cero")
		}
		return level, nil
	})
}

// Receive registra una entrada de compra y recalcula el costo promedio ponderado del producto.
func (e *ReservationEngine) Receive(ctx context.Context, in ReceiveRequest) (*entity.StockLevel, error) {
	if in.ProductID == "" || in.WarehouseID == "" || in.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	req := StockRequest{
		ProductID:     in.ProductID,
		WarehouseID:   in.WarehouseID,
		Quantity:      in.Quantity,
		ReferenceType: entity.ReferencePurchase,
		ReferenceID:   in.ReferenceID,
		Actor:         in.Actor,
	}
	return e.run(ctx, "receive", req, func(ctx context.Context, repos TxRepositories, req StockRequest) (*entity.StockLevel, error) {
		product, err := repos.Products.GetByID(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, domain.ErrNotFound
		}
		// el costo es por producto: las existencias de las demás bodegas también pesan
		levels, err := repos.Stock.ListByProduct(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		var elsewhere int64
		for _, l := range levels {
			if l.WarehouseID != req.WarehouseID {
				elsewhere += l.Quantity
			}
		}
		var details entity.InboundDetails
		level, _, err := e.apply(ctx, repos, req, func(l *entity.StockLevel) (inventory.Change, error) {
			onHand := elsewhere + l.Quantity
			ch, err := inventory.Receive(l, req.Quantity)
			if err != nil {
				return ch, err
			}
			details = entity.InboundDetails{
				UnitCost:     in.UnitCost,
				PreviousCost: product.CostPrice,
				NewCost:      inventory.WeightedAverageCost(onHand, product.CostPrice, req.Quantity, in.UnitCost),
			}
			ch.Details = details
			return ch, nil
		})
		if err != nil {
			return nil, err
		}
		if err := repos.Products.UpdateCost(ctx, product.ID, details.NewCost); err != nil {
			return nil, err
		}
		return level, nil
	})
}

// run abre la transacción, crea el span y traduce el resultado.
func (e *ReservationEngine) run(
	ctx context.Context,
	op string,
	req StockRequest,
	fn func(ctx context.Context, repos TxRepositories, req StockRequest) (*entity.StockLevel, error),
) (*entity.StockLevel, error) {
	req.WarehouseID = e.resolveWarehouse(req.WarehouseID)
	ctx, span := startSpan(ctx, op, req)
	defer span.End()

	var result *entity.StockLevel
	err := e.txRunner.Run(ctx, func(repos TxRepositories) error {
		level, err := fn(ctx, repos, req)
		if err != nil {
			return err
		}
		result = level
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientStock) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	return result, nil
}

// apply bloquea la fila, aplica la operación de dominio y persiste entrada + movimiento.
// Un error de negocio devuelto por op deja la fila sin escribir.
func (e *ReservationEngine) apply(ctx context.Context, repos TxRepositories, req StockRequest, op ledgerOp) (*entity.StockLevel, inventory.Change, error) {
	req.WarehouseID = e.resolveWarehouse(req.WarehouseID)
	if req.ProductID == "" || req.WarehouseID == "" {
		return nil, inventory.Change{}, domain.ErrInvalidInput
	}
	level, err := repos.Stock.GetForUpdate(ctx, req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, inventory.Change{}, err
	}
	ch, err := op(level)
	if err != nil {
		return nil, inventory.Change{}, err
	}
	if !level.Valid() {
		return nil, inventory.Change{}, fmt.Errorf("%w: invariante del libro rota (quantity=%d reserved=%d)",
			domain.ErrConflict, level.Quantity, level.Reserved)
	}

	now := e.now()
	level.UpdatedAt = now
	if err := repos.Stock.Save(ctx, level); err != nil {
		return nil, inventory.Change{}, err
	}

	notes := req.Notes
	if notes == "" {
		notes = describeChange(ch, level)
	}
	mov := &entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     level.ProductID,
		WarehouseID:   level.WarehouseID,
		Type:          ch.Type,
		Delta:         ch.Delta,
		QuantityAfter: level.Quantity,
		ReservedAfter: level.Reserved,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Actor:         req.Actor,
		Notes:         notes,
		Details:       ch.Details,
		CreatedAt:     now,
	}
	if err := repos.Movements.Create(ctx, mov); err != nil {
		return nil, inventory.Change{}, err
	}
	e.metrics.movement(ctx, ch.Type)
	return level, ch, nil
}

func (e *ReservationEngine) resolveWarehouse(warehouseID string) string {
	if warehouseID != "" {
		return warehouseID
	}
	return e.defaultWarehouseID
}

// describeChange nota por defecto del movimiento.
func describeChange(ch inventory.Change, level *entity.StockLevel) string {
	switch d := ch.Details.(type) {
	case entity.AdjustmentDetails:
		return fmt.Sprintf("Ajuste manual (%s %d): cantidad %d -> %d", d.Mode, d.Requested, d.PreviousQuantity, level.Quantity)
	case entity.OutboundDetails:
		return fmt.Sprintf("Despacho de %d unidades", d.Requested)
	case entity.ReleaseDetails:
		return fmt.Sprintf("Liberación de reserva (%d solicitadas)", d.Requested)
	case entity.ReservationDetails:
		return fmt.Sprintf("Reserva de %d unidades", ch.Delta)
	case entity.InboundDetails:
		return fmt.Sprintf("Entrada de %d unidades a costo %s", ch.Delta, d.UnitCost.StringFixed(2))
	}
	return string(ch.Type)
}
