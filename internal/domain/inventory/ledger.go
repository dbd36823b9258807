package inventory

import (
	"fmt"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// Change describe el efecto de una operación sobre una entrada del libro: el movimiento a registrar.
// Las funciones de este archivo mutan el StockLevel recibido y nunca rompen 0 <= Reserved <= Quantity.
type Change struct {
	Type    entity.MovementType
	Delta   int64
	Details entity.MovementDetails
}

// Reserve pasa qty de disponible a reservado. Falla con ErrInsufficientStock si qty > disponible
// y en ese caso no toca la entrada.
func Reserve(level *entity.StockLevel, qty int64) (Change, error) {
	if qty <= 0 {
		return Change{}, domain.ErrInvalidInput
	}
	available := level.Available()
	if qty > available {
		return Change{}, fmt.Errorf("%w: solicitado %d, disponible %d", domain.ErrInsufficientStock, qty, available)
	}
	level.Reserved += qty
	return Change{
		Type:    entity.MovementReservation,
		Delta:   qty,
		Details: entity.ReservationDetails{AvailableBefore: available},
	}, nil
}

// Release libera min(qty, reservado). Nunca deja la reserva en negativo.
func Release(level *entity.StockLevel, qty int64) (Change, error) {
	if qty <= 0 {
		return Change{}, domain.ErrInvalidInput
	}
	released := min(qty, level.Reserved)
	level.Reserved -= released
	return Change{
		Type:    entity.MovementRelease,
		Delta:   -released,
		Details: entity.ReleaseDetails{Requested: qty, Clamped: released < qty},
	}, nil
}

// Deduct aplica un despacho: sale stock físico y se consume la reserva.
// Ambos se recortan en cero; QuantityClamped indica que se intentó sacar más de lo que había.
func Deduct(level *entity.StockLevel, qty int64) (Change, error) {
	return DeductHeld(level, qty, level.Reserved)
}

// DeductHeld como Deduct, pero consume como máximo held unidades de la reserva: lo que la
// referencia que despacha tiene efectivamente reservado. Si la salida deja la reserva por encima
// de la cantidad, la reserva se recorta (ReservedClamped).
func DeductHeld(level *entity.StockLevel, qty, held int64) (Change, error) {
	if qty <= 0 || held < 0 {
		return Change{}, domain.ErrInvalidInput
	}
	consumed := min(qty, level.Reserved, held)
	removed := min(qty, level.Quantity)
	level.Reserved -= consumed
	level.Quantity -= removed
	details := entity.OutboundDetails{
		Requested:        qty,
		QuantityClamped:  removed < qty,
		ReservedConsumed: consumed,
	}
	if level.Reserved > level.Quantity {
		level.Reserved = level.Quantity
		details.ReservedClamped = true
	}
	return Change{Type: entity.MovementOutbound, Delta: -removed, Details: details}, nil
}

// Adjust corrección manual: add suma, remove resta con piso en cero (marca OverRemoval), set fija.
// Si la nueva cantidad queda por debajo de la reserva, la reserva se recorta (ReservedClamped).
func Adjust(level *entity.StockLevel, mode entity.AdjustMode, qty int64) (Change, error) {
	if !mode.Valid() || qty < 0 {
		return Change{}, domain.ErrInvalidInput
	}
	if qty == 0 && mode != entity.AdjustSet {
		return Change{}, domain.ErrInvalidInput
	}
	prev := level.Quantity
	details := entity.AdjustmentDetails{Mode: mode, Requested: qty, PreviousQuantity: prev}

	var next int64
	switch mode {
	case entity.AdjustAdd:
		next = prev + qty
	case entity.AdjustRemove:
		next = prev - qty
		if next < 0 {
			next = 0
			details.OverRemoval = true
		}
	case entity.AdjustSet:
		next = qty
	}
	level.Quantity = next
	if level.Reserved > next {
		level.Reserved = next
		details.ReservedClamped = true
	}
	return Change{Type: entity.MovementAdjustment, Delta: next - prev, Details: details}, nil
}

// Receive entrada física por recepción de compra.
func Receive(level *entity.StockLevel, qty int64) (Change, error) {
	if qty <= 0 {
		return Change{}, domain.ErrInvalidInput
	}
	level.Quantity += qty
	return Change{Type: entity.MovementInbound, Delta: qty}, nil
}
