package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento del diario de stock.
type MovementType string

const (
	MovementInbound     MovementType = "inbound"     // entrada física (recepción de compra)
	MovementOutbound    MovementType = "outbound"    // salida física (despacho de orden)
	MovementAdjustment  MovementType = "adjustment"  // corrección manual o importación
	MovementReservation MovementType = "reservation" // disponible -> reservado
	MovementRelease     MovementType = "release"     // reservado -> disponible
)

// AffectsQuantity indica si Delta es un cambio de la cantidad física (y no de la reserva).
func (t MovementType) AffectsQuantity() bool {
	return t == MovementInbound || t == MovementOutbound || t == MovementAdjustment
}

// ReferenceType origen del movimiento.
type ReferenceType string

const (
	ReferenceOrder    ReferenceType = "order"
	ReferenceImport   ReferenceType = "import"
	ReferenceManual   ReferenceType = "manual"
	ReferencePurchase ReferenceType = "purchase"
)

// AdjustMode modo de un ajuste manual.
type AdjustMode string

const (
	AdjustAdd    AdjustMode = "add"
	AdjustRemove AdjustMode = "remove"
	AdjustSet    AdjustMode = "set"
)

// Valid indica si el modo es uno de add/remove/set.
func (m AdjustMode) Valid() bool {
	return m == AdjustAdd || m == AdjustRemove || m == AdjustSet
}

// StockMovement es un registro inmutable del diario.
// Delta es el cambio de Quantity para inbound/outbound/adjustment y el cambio de Reserved
// para reservation/release. Details lleva los campos propios de cada tipo.
type StockMovement struct {
	ID            string
	ProductID     string
	WarehouseID   string
	Type          MovementType
	Delta         int64
	QuantityAfter int64
	ReservedAfter int64
	ReferenceType ReferenceType
	ReferenceID   string
	Actor         string
	Notes         string
	Details       MovementDetails
	CreatedAt     time.Time
}

// MovementDetails payload específico por tipo de movimiento.
type MovementDetails interface {
	MovementType() MovementType
}

// InboundDetails costo de la entrada y efecto sobre el costo promedio.
type InboundDetails struct {
	UnitCost     decimal.Decimal `json:"unit_cost"`
	PreviousCost decimal.Decimal `json:"previous_cost"`
	NewCost      decimal.Decimal `json:"new_cost"`
}

// OutboundDetails salida por despacho. QuantityClamped marca una anomalía: se pidió más de lo que había.
type OutboundDetails struct {
	Requested        int64 `json:"requested"`
	QuantityClamped  bool  `json:"quantity_clamped"`
	ReservedConsumed int64 `json:"reserved_consumed"`
	ReservedClamped  bool  `json:"reserved_clamped,omitempty"`
}

// AdjustmentDetails ajuste manual o sobrescritura por importación.
type AdjustmentDetails struct {
	Mode             AdjustMode `json:"mode"`
	Requested        int64      `json:"requested"`
	PreviousQuantity int64      `json:"previous_quantity"`
	OverRemoval      bool       `json:"over_removal"`
	ReservedClamped  bool       `json:"reserved_clamped"`
}

// ReservationDetails disponible al momento de reservar.
type ReservationDetails struct {
	AvailableBefore int64 `json:"available_before"`
}

// ReleaseDetails liberación; Clamped cuando se pidió liberar más de lo reservado.
type ReleaseDetails struct {
	Requested int64 `json:"requested"`
	Clamped   bool  `json:"clamped"`
}

func (InboundDetails) MovementType() MovementType     { return MovementInbound }
func (OutboundDetails) MovementType() MovementType    { return MovementOutbound }
func (AdjustmentDetails) MovementType() MovementType  { return MovementAdjustment }
func (ReservationDetails) MovementType() MovementType { return MovementReservation }
func (ReleaseDetails) MovementType() MovementType     { return MovementRelease }

// MarshalDetails serializa el payload para la columna details (jsonb).
func MarshalDetails(d MovementDetails) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// UnmarshalDetails reconstruye el payload a partir del tipo del movimiento.
func UnmarshalDetails(t MovementType, raw []byte) (MovementDetails, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var (
		d   MovementDetails
		err error
	)
	switch t {
	case MovementInbound:
		var v InboundDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case MovementOutbound:
		var v OutboundDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case MovementAdjustment:
		var v AdjustmentDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case MovementReservation:
		var v ReservationDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case MovementRelease:
		var v ReleaseDetails
		err = json.Unmarshal(raw, &v)
		d = v
	default:
		return nil, fmt.Errorf("tipo de movimiento desconocido: %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s details: %w", t, err)
	}
	return d, nil
}
