package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	appinventory "github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/pkg/retry"
)

// StockEngine operaciones del motor que corren dentro de la transacción de la orden.
type StockEngine interface {
	ReserveInTx(ctx context.Context, repos appinventory.TxRepositories, req appinventory.StockRequest) (*entity.StockLevel, error)
	ReleaseInTx(ctx context.Context, repos appinventory.TxRepositories, req appinventory.StockRequest) (*entity.StockLevel, error)
	DeductInTx(ctx context.Context, repos appinventory.TxRepositories, req appinventory.StockRequest) (*entity.StockLevel, error)
}

// Result resumen de un evento procesado.
type Result struct {
	OrderID     string
	OrderNumber string
	Created     bool
	Applied     bool     // se aplicó el efecto de inventario en esta entrega
	Failures    []string // líneas que no se pudieron aplicar (stock insuficiente)
}

// IngestionService upsert de órdenes y efectos de inventario por evento.
// Cada evento es una transacción: upsert de la orden, marca de idempotencia y movimientos.
type IngestionService struct {
	txRunner appinventory.TxRunner
	engine   StockEngine
	products repository.ProductRepository
	retrier  *retry.Retrier
	log      zerolog.Logger
	now      func() time.Time
}

// NewIngestionService construye el servicio. Los errores ErrTransient se reintentan con backoff.
func NewIngestionService(
	txRunner appinventory.TxRunner,
	engine StockEngine,
	products repository.ProductRepository,
	retryConfig retry.Config,
	log zerolog.Logger,
) *IngestionService {
	return &IngestionService{
		txRunner: txRunner,
		engine:   engine,
		products: products,
		retrier:  retry.New(retryConfig, func(err error) bool { return errors.Is(err, domain.ErrTransient) }),
		log:      log.With().Str("component", "order_ingestion").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HandleEvent procesa una entrega de webhook. Es seguro reintentarla: el efecto de inventario
// de cada (orden, evento) se aplica una sola vez.
func (s *IngestionService) HandleEvent(ctx context.Context, event entity.OrderEventType, in NormalizedOrder) (*Result, error) {
	if !event.Valid() {
		return nil, fmt.Errorf("%w: evento %q", domain.ErrInvalidInput, event)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	productBySKU, err := s.products.ResolveSKUs(ctx, in.SKUs())
	if err != nil {
		return nil, err
	}

	var result *Result
	attempts, err := s.retrier.Do(ctx, func(ctx context.Context) error {
		order := in.toEntity(productBySKU, s.now())
		res := &Result{OrderNumber: order.OrderNumber}
		err := s.txRunner.Run(ctx, func(repos appinventory.TxRepositories) error {
			created, err := repos.Orders.Upsert(ctx, order)
			if err != nil {
				return err
			}
			res.Created = created
			res.OrderID = order.ID
			return s.applyEffect(ctx, repos, event, order, res)
		})
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("order_number", in.OrderNumber).
			Str("event", string(event)).
			Int("attempts", attempts).
			Msg("evento de orden no procesado")
		return nil, err
	}
	if attempts > 1 {
		s.log.Info().Str("order_number", in.OrderNumber).Int("attempts", attempts).Msg("evento procesado tras reintentos")
	}
	return result, nil
}

// UpsertHistory guarda la orden sin efectos de inventario (importaciones de historial).
func (s *IngestionService) UpsertHistory(ctx context.Context, in NormalizedOrder, productBySKU map[string]string) (bool, error) {
	if err := in.Validate(); err != nil {
		return false, err
	}
	var created bool
	_, err := s.retrier.Do(ctx, func(ctx context.Context) error {
		order := in.toEntity(productBySKU, s.now())
		return s.txRunner.Run(ctx, func(repos appinventory.TxRepositories) error {
			c, err := repos.Orders.Upsert(ctx, order)
			created = c
			return err
		})
	})
	return created, err
}

// ResolveSKUs expone la resolución de SKUs para importaciones por lote.
func (s *IngestionService) ResolveSKUs(ctx context.Context, skus []string) (map[string]string, error) {
	return s.products.ResolveSKUs(ctx, skus)
}

func (s *IngestionService) applyEffect(ctx context.Context, repos appinventory.TxRepositories, event entity.OrderEventType, order *entity.Order, res *Result) error {
	switch event {
	case entity.OrderEventCreated:
		if order.Cancelled() {
			return nil
		}
		// Un created tardío no debe reservar lo que ya se despachó o canceló.
		for _, later := range []entity.OrderEventType{entity.OrderEventFulfilled, entity.OrderEventCancelled} {
			done, err := repos.Events.Exists(ctx, order.ID, later)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
		marked, err := s.tryMark(ctx, repos, event, order)
		if err != nil || !marked {
			return err
		}
		res.Applied = true
		return s.applyLines(ctx, repos, order, res, func(line lockLine) appinventory.StockRequest {
			return s.request(order, line.productID, "", line.quantity)
		}, s.engine.ReserveInTx)

	case entity.OrderEventFulfilled:
		marked, err := s.tryMark(ctx, repos, event, order)
		if err != nil || !marked {
			return err
		}
		held, err := s.heldByProduct(ctx, repos, order)
		if err != nil {
			return err
		}
		res.Applied = true
		return s.applyLines(ctx, repos, order, res, func(line lockLine) appinventory.StockRequest {
			// consume solo lo que esta orden reservó, en la bodega donde lo reservó
			h := held[line.productID]
			req := s.request(order, line.productID, h.WarehouseID, line.quantity)
			req.HeldReserved = &h.Quantity
			return req
		}, s.engine.DeductInTx)

	case entity.OrderEventCancelled:
		// La marca se deja aunque no haya nada que liberar: un created que llegue después no reserva.
		marked, err := s.tryMark(ctx, repos, event, order)
		if err != nil || !marked {
			return err
		}
		held, err := repos.Movements.HeldByReference(ctx, entity.ReferenceOrder, order.OrderNumber)
		if err != nil {
			return err
		}
		if len(held) == 0 {
			s.log.Debug().Str("order_number", order.OrderNumber).Msg("cancelación sin reserva pendiente: no se libera")
			return nil
		}
		res.Applied = true
		for _, h := range held {
			if _, err := s.engine.ReleaseInTx(ctx, repos, s.request(order, h.ProductID, h.WarehouseID, h.Quantity)); err != nil {
				return err
			}
		}
		return nil
	}
	// updated: solo upsert
	return nil
}

func (s *IngestionService) tryMark(ctx context.Context, repos appinventory.TxRepositories, event entity.OrderEventType, order *entity.Order) (bool, error) {
	marked, err := repos.Events.TryMark(ctx, order.ID, event)
	if err != nil {
		return false, err
	}
	if !marked {
		s.log.Debug().Str("order_number", order.OrderNumber).Str("event", string(event)).Msg("evento duplicado: efecto ya aplicado")
	}
	return marked, nil
}

// heldByProduct reserva vigente de la orden por producto. Si un producto quedó reservado en
// varias bodegas (cambio de bodega por defecto) se toma la de mayor saldo.
func (s *IngestionService) heldByProduct(ctx context.Context, repos appinventory.TxRepositories, order *entity.Order) (map[string]repository.HeldReservation, error) {
	held, err := repos.Movements.HeldByReference(ctx, entity.ReferenceOrder, order.OrderNumber)
	if err != nil {
		return nil, err
	}
	out := make(map[string]repository.HeldReservation, len(held))
	for _, h := range held {
		if prev, ok := out[h.ProductID]; !ok || h.Quantity > prev.Quantity {
			out[h.ProductID] = h
		}
	}
	return out, nil
}

func (s *IngestionService) request(order *entity.Order, productID, warehouseID string, qty int64) appinventory.StockRequest {
	return appinventory.StockRequest{
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Quantity:      qty,
		ReferenceType: entity.ReferenceOrder,
		ReferenceID:   order.OrderNumber,
		Actor:         "webhook",
	}
}

type txOp func(ctx context.Context, repos appinventory.TxRepositories, req appinventory.StockRequest) (*entity.StockLevel, error)

// applyLines corre op por cada producto de la orden en orden de bloqueo. Stock insuficiente
// en una línea se reporta y no detiene las demás.
func (s *IngestionService) applyLines(ctx context.Context, repos appinventory.TxRepositories, order *entity.Order, res *Result, build func(lockLine) appinventory.StockRequest, op txOp) error {
	for _, line := range lockOrder(order.LineItems) {
		_, err := op(ctx, repos, build(line))
		if err == nil {
			continue
		}
		if errors.Is(err, domain.ErrInsufficientStock) {
			msg := fmt.Sprintf("producto %s: %v", line.productID, err)
			res.Failures = append(res.Failures, msg)
			s.log.Warn().
				Str("order_number", order.OrderNumber).
				Str("product_id", line.productID).
				Int64("quantity", line.quantity).
				Msg("stock insuficiente para reservar la línea; se continúa con la orden")
			continue
		}
		return err
	}
	return nil
}

type lockLine struct {
	productID string
	quantity  int64
}

// lockOrder agrupa las líneas con producto por product_id y las ordena ascendente,
// así dos órdenes concurrentes bloquean filas en el mismo orden.
func lockOrder(items []entity.OrderLineItem) []lockLine {
	qty := make(map[string]int64, len(items))
	for _, li := range items {
		if li.ProductID == nil || li.Quantity <= 0 {
			continue
		}
		qty[*li.ProductID] += li.Quantity
	}
	out := make([]lockLine, 0, len(qty))
	for id, q := range qty {
		out = append(out, lockLine{productID: id, quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].productID < out[j].productID })
	return out
}
