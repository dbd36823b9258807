// Package memstore implementa los puertos de persistencia en memoria. Lo usan las pruebas
// de casos de uso y de handlers HTTP; las transacciones se serializan y se deshacen si fn falla.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

type stockKey struct{ product, warehouse string }

type eventKey struct {
	order string
	event entity.OrderEventType
}

// Store estado compartido por todos los repositorios.
type Store struct {
	mu   sync.Mutex // estado
	txMu sync.Mutex // una transacción a la vez

	products   map[string]*entity.Product
	warehouses map[string]*entity.Warehouse
	stock      map[stockKey]*entity.StockLevel
	movements  []*entity.StockMovement
	orders     map[string]*entity.Order // por order_number
	events     map[eventKey]time.Time
	bundles    map[string]*entity.Bundle
	imports    map[string]*entity.ImportLog

	// errores encolados por FailNextTx
	failNext []error
}

// New crea un almacén vacío.
func New() *Store {
	return &Store{
		products:   make(map[string]*entity.Product),
		warehouses: make(map[string]*entity.Warehouse),
		stock:      make(map[stockKey]*entity.StockLevel),
		orders:     make(map[string]*entity.Order),
		events:     make(map[eventKey]time.Time),
		bundles:    make(map[string]*entity.Bundle),
		imports:    make(map[string]*entity.ImportLog),
	}
}

// txLog acciones para deshacer una transacción fallida, en orden inverso.
type txLog struct {
	undo []func()
}

func (t *txLog) add(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

// base acceso común: con tx != nil las escrituras registran cómo deshacerse.
type base struct {
	s  *Store
	tx *txLog
}

func (b base) lock() func() {
	b.s.mu.Lock()
	return b.s.mu.Unlock
}

// Repositories repositorios fuera de transacción.
func (s *Store) Repositories() inventory.TxRepositories {
	return s.repos(nil)
}

func (s *Store) repos(tx *txLog) inventory.TxRepositories {
	b := base{s: s, tx: tx}
	return inventory.TxRepositories{
		Stock:     &StockRepo{b},
		Movements: &MovementRepo{b},
		Products:  &ProductRepo{b},
		Orders:    &OrderRepo{b},
		Events:    &EventRepo{b},
	}
}

// Warehouses repositorio de bodegas.
func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{base{s: s}} }

// Bundles repositorio de bundles.
func (s *Store) Bundles() *BundleRepo { return &BundleRepo{base{s: s}} }

// ImportLogs repositorio de bitácoras.
func (s *Store) ImportLogs() *ImportLogRepo { return &ImportLogRepo{base{s: s}} }

// FailNextTx encola errores que devuelven las próximas transacciones antes de ejecutar fn.
func (s *Store) FailNextTx(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, errs...)
}

// Run implementa inventory.TxRunner.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.TxRepositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if len(s.failNext) > 0 {
		err := s.failNext[0]
		s.failNext = s.failNext[1:]
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	tx := &txLog{}
	if err := fn(s.repos(tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Ping implementa el chequeo de salud.
func (s *Store) Ping(context.Context) error { return nil }

// AddProduct inserta un producto activo con ID y SKU dados.
func (s *Store) AddProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
}

// AddWarehouse inserta una bodega.
func (s *Store) AddWarehouse(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warehouses[id] = &entity.Warehouse{ID: id, Name: name}
}

// AddBundle inserta un bundle.
func (s *Store) AddBundle(b *entity.Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	cp.Components = append([]entity.BundleComponent(nil), b.Components...)
	s.bundles[b.ID] = &cp
}

// SetStock fija una entrada del libro sin registrar movimiento.
func (s *Store) SetStock(level entity.StockLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[stockKey{level.ProductID, level.WarehouseID}] = &level
}

// Movements copia del diario en orden de inserción.
func (s *Store) Movements() []entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.StockMovement, 0, len(s.movements))
	for _, m := range s.movements {
		out = append(out, *m)
	}
	return out
}

// Stock copia de la entrada o nil.
func (s *Store) Stock(productID, warehouseID string) *entity.StockLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.stock[stockKey{productID, warehouseID}]
	if !ok {
		return nil
	}
	cp := *l
	return &cp
}

// Product copia del producto o nil.
func (s *Store) Product(id string) *entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Order copia de la orden o nil.
func (s *Store) Order(number string) *entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[number]
	if !ok {
		return nil
	}
	return cloneOrder(o)
}

// AddOrder inserta una orden tal cual (historial para pronóstico).
func (s *Store) AddOrder(o *entity.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.OrderNumber] = cloneOrder(o)
}

func cloneOrder(o *entity.Order) *entity.Order {
	cp := *o
	cp.LineItems = append([]entity.OrderLineItem(nil), o.LineItems...)
	return &cp
}
