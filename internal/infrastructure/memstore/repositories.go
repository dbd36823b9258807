package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
)

var (
	_ repository.StockRepository          = (*StockRepo)(nil)
	_ repository.StockMovementRepository  = (*MovementRepo)(nil)
	_ repository.ProductRepository        = (*ProductRepo)(nil)
	_ repository.OrderRepository          = (*OrderRepo)(nil)
	_ repository.ProcessedEventRepository = (*EventRepo)(nil)
	_ repository.WarehouseRepository      = (*WarehouseRepo)(nil)
	_ repository.BundleRepository         = (*BundleRepo)(nil)
	_ repository.ImportLogRepository      = (*ImportLogRepo)(nil)
)

// StockRepo libro de stock.
type StockRepo struct{ base }

func (r *StockRepo) Get(_ context.Context, productID, warehouseID string) (*entity.StockLevel, error) {
	defer r.lock()()
	l, ok := r.s.stock[stockKey{productID, warehouseID}]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// GetForUpdate crea la entrada si falta; producto o bodega inexistentes dan ErrNotFound.
func (r *StockRepo) GetForUpdate(_ context.Context, productID, warehouseID string) (*entity.StockLevel, error) {
	defer r.lock()()
	k := stockKey{productID, warehouseID}
	l, ok := r.s.stock[k]
	if !ok {
		if r.s.products[productID] == nil || r.s.warehouses[warehouseID] == nil {
			return nil, domain.ErrNotFound
		}
		l = entity.NewStockLevel(productID, warehouseID)
		l.UpdatedAt = time.Now().UTC()
		r.s.stock[k] = l
		r.tx.add(func() { delete(r.s.stock, k) })
	}
	cp := *l
	return &cp, nil
}

func (r *StockRepo) Save(_ context.Context, level *entity.StockLevel) error {
	defer r.lock()()
	if !level.Valid() {
		return domain.ErrConflict
	}
	k := stockKey{level.ProductID, level.WarehouseID}
	prev, ok := r.s.stock[k]
	if !ok {
		return domain.ErrNotFound
	}
	old := *prev
	cp := *level
	cp.UpdatedAt = time.Now().UTC()
	r.s.stock[k] = &cp
	r.tx.add(func() { r.s.stock[k] = &old })
	return nil
}

func (r *StockRepo) SetTargets(_ context.Context, productID, warehouseID string, parLevel, reorderPoint int64) (*entity.StockLevel, error) {
	defer r.lock()()
	k := stockKey{productID, warehouseID}
	prev, ok := r.s.stock[k]
	var cp entity.StockLevel
	if ok {
		cp = *prev
	} else {
		if r.s.products[productID] == nil || r.s.warehouses[warehouseID] == nil {
			return nil, domain.ErrNotFound
		}
		cp = *entity.NewStockLevel(productID, warehouseID)
	}
	cp.ParLevel, cp.ReorderPoint = parLevel, reorderPoint
	cp.UpdatedAt = time.Now().UTC()
	r.s.stock[k] = &cp
	if ok {
		old := *prev
		r.tx.add(func() { r.s.stock[k] = &old })
	} else {
		r.tx.add(func() { delete(r.s.stock, k) })
	}
	out := cp
	return &out, nil
}

func (r *StockRepo) ListByProduct(_ context.Context, productID string) ([]*entity.StockLevel, error) {
	defer r.lock()()
	var out []*entity.StockLevel
	for k, l := range r.s.stock {
		if k.product == productID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, nil
}

func (r *StockRepo) ListByWarehouse(_ context.Context, warehouseID string, limit, offset int) ([]*entity.StockLevel, error) {
	defer r.lock()()
	var out []*entity.StockLevel
	for k, l := range r.s.stock {
		if k.warehouse == warehouseID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return page(out, limit, offset), nil
}

func (r *StockRepo) AvailableByProducts(_ context.Context, productIDs []string, warehouseID string) (map[string]int64, error) {
	defer r.lock()()
	want := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	out := make(map[string]int64)
	for k, l := range r.s.stock {
		if want[k.product] && (warehouseID == "" || k.warehouse == warehouseID) {
			out[k.product] += l.Available()
		}
	}
	return out, nil
}

func (r *StockRepo) BelowReorderPoint(_ context.Context, warehouseID string) ([]repository.ReplenishmentItem, error) {
	defer r.lock()()
	var out []repository.ReplenishmentItem
	for _, p := range r.s.products {
		if !p.Active {
			continue
		}
		it := repository.ReplenishmentItem{ProductID: p.ID, SKU: p.SKU, Name: p.Name, WarehouseID: warehouseID,
			UnitPrice: p.UnitPrice, CostPrice: p.CostPrice}
		for k, l := range r.s.stock {
			if k.product == p.ID && (warehouseID == "" || k.warehouse == warehouseID) {
				it.Quantity += l.Quantity
				it.Reserved += l.Reserved
				it.ParLevel += l.ParLevel
				it.ReorderPoint += l.ReorderPoint
			}
		}
		if it.ReorderPoint > 0 && it.Available() < it.ReorderPoint {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].ReorderPoint-out[i].Available(), out[j].ReorderPoint-out[j].Available()
		if di != dj {
			return di > dj
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}

func (r *StockRepo) Summaries(_ context.Context, productID string) ([]repository.ProductStockSummary, error) {
	defer r.lock()()
	var out []repository.ProductStockSummary
	for _, p := range r.s.products {
		if !p.Active || (productID != "" && p.ID != productID) {
			continue
		}
		s := repository.ProductStockSummary{ProductID: p.ID, SKU: p.SKU, Name: p.Name, Velocity7d: p.Velocity7d}
		for k, l := range r.s.stock {
			if k.product == p.ID {
				s.Quantity += l.Quantity
				s.Reserved += l.Reserved
				s.ParLevel += l.ParLevel
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// MovementRepo diario de movimientos.
type MovementRepo struct{ base }

func (r *MovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	defer r.lock()()
	cp := *m
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	n := len(r.s.movements)
	r.s.movements = append(r.s.movements, &cp)
	r.tx.add(func() { r.s.movements = r.s.movements[:n] })
	return nil
}

// List más reciente primero; To es exclusivo.
func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.StockMovement, int, error) {
	defer r.lock()()
	var out []*entity.StockMovement
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if f.ProductID != "" && m.ProductID != f.ProductID {
			continue
		}
		if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID {
			continue
		}
		if f.From != nil && m.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !m.CreatedAt.Before(*f.To) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r *MovementRepo) SumQuantityDeltas(_ context.Context, productID, warehouseID string) (int64, error) {
	defer r.lock()()
	var sum int64
	for _, m := range r.s.movements {
		if m.ProductID == productID && m.WarehouseID == warehouseID && m.Type.AffectsQuantity() {
			sum += m.Delta
		}
	}
	return sum, nil
}

func (r *MovementRepo) HeldByReference(_ context.Context, refType entity.ReferenceType, refID string) ([]repository.HeldReservation, error) {
	defer r.lock()()
	held := make(map[stockKey]int64)
	for _, m := range r.s.movements {
		if m.ReferenceType != refType || m.ReferenceID != refID {
			continue
		}
		k := stockKey{m.ProductID, m.WarehouseID}
		switch m.Type {
		case entity.MovementReservation, entity.MovementRelease:
			held[k] += m.Delta
		case entity.MovementOutbound:
			if d, ok := m.Details.(entity.OutboundDetails); ok {
				held[k] -= d.ReservedConsumed
			}
		}
	}
	var out []repository.HeldReservation
	for k, q := range held {
		if q > 0 {
			out = append(out, repository.HeldReservation{ProductID: k.product, WarehouseID: k.warehouse, Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].WarehouseID < out[j].WarehouseID
	})
	return out, nil
}

// ProductRepo catálogo.
type ProductRepo struct{ base }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	defer r.lock()()
	for _, existing := range r.s.products {
		if existing.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	cp := *p
	r.s.products[p.ID] = &cp
	r.tx.add(func() { delete(r.s.products, p.ID) })
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	defer r.lock()()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	defer r.lock()()
	for _, p := range r.s.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *ProductRepo) ResolveSKUs(_ context.Context, skus []string) (map[string]string, error) {
	defer r.lock()()
	want := make(map[string]bool, len(skus))
	for _, s := range skus {
		want[s] = true
	}
	out := make(map[string]string)
	for _, p := range r.s.products {
		if want[p.SKU] {
			out[p.SKU] = p.ID
		}
	}
	return out, nil
}

func (r *ProductRepo) CostsByIDs(_ context.Context, ids []string) (map[string]decimal.Decimal, error) {
	defer r.lock()()
	out := make(map[string]decimal.Decimal)
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out[id] = p.CostPrice
		}
	}
	return out, nil
}

func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	defer r.lock()()
	prev, ok := r.s.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, existing := range r.s.products {
		if existing.ID != p.ID && existing.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	old := *prev
	cp := *p
	// velocidades y costo no se editan desde el catálogo
	cp.CostPrice, cp.Velocity7d, cp.Velocity14d, cp.Velocity30d = old.CostPrice, old.Velocity7d, old.Velocity14d, old.Velocity30d
	cp.VelocityUpdatedAt = old.VelocityUpdatedAt
	r.s.products[p.ID] = &cp
	r.tx.add(func() { r.s.products[p.ID] = &old })
	return nil
}

func (r *ProductRepo) UpdateCost(_ context.Context, productID string, cost decimal.Decimal) error {
	defer r.lock()()
	prev, ok := r.s.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	old := *prev
	cp := old
	cp.CostPrice = cost
	cp.UpdatedAt = time.Now().UTC()
	r.s.products[productID] = &cp
	r.tx.add(func() { r.s.products[productID] = &old })
	return nil
}

func (r *ProductRepo) UpdateVelocities(_ context.Context, updates []repository.VelocityUpdate, at time.Time) error {
	defer r.lock()()
	for _, u := range updates {
		prev, ok := r.s.products[u.ProductID]
		if !ok {
			continue
		}
		old := *prev
		cp := old
		cp.Velocity7d, cp.Velocity14d, cp.Velocity30d = u.Velocity7d, u.Velocity14d, u.Velocity30d
		t := at
		cp.VelocityUpdatedAt = &t
		r.s.products[u.ProductID] = &cp
		id := u.ProductID
		r.tx.add(func() { r.s.products[id] = &old })
	}
	return nil
}

func (r *ProductRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*entity.Product, error) {
	defer r.lock()()
	var out []*entity.Product
	for _, p := range r.s.products {
		if activeOnly && !p.Active {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return page(out, limit, offset), nil
}

func (r *ProductRepo) ListIDs(_ context.Context, activeOnly bool) ([]string, error) {
	defer r.lock()()
	var out []string
	for _, p := range r.s.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p.ID)
	}
	sort.Strings(out)
	return out, nil
}

// OrderRepo órdenes por order_number.
type OrderRepo struct{ base }

func (r *OrderRepo) Upsert(_ context.Context, o *entity.Order) (bool, error) {
	defer r.lock()()
	prev, exists := r.s.orders[o.OrderNumber]
	if exists {
		o.ID = prev.ID
		o.CreatedAt = prev.CreatedAt
		o.MergeStored(prev)
	} else if o.ID == "" {
		o.ID = uuid.New().String()
	}
	for i := range o.LineItems {
		o.LineItems[i].ID = uuid.New().String()
		o.LineItems[i].OrderID = o.ID
	}
	number := o.OrderNumber
	r.s.orders[number] = cloneOrder(o)
	if exists {
		r.tx.add(func() { r.s.orders[number] = prev })
	} else {
		r.tx.add(func() { delete(r.s.orders, number) })
	}
	return !exists, nil
}

func (r *OrderRepo) GetByNumber(_ context.Context, orderNumber string) (*entity.Order, error) {
	defer r.lock()()
	o, ok := r.s.orders[orderNumber]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r *OrderRepo) UnitsSoldByProduct(_ context.Context, from, to time.Time) (map[string]int64, error) {
	defer r.lock()()
	out := make(map[string]int64)
	for _, o := range r.s.orders {
		if o.Cancelled() || o.PlacedAt.Before(from) || !o.PlacedAt.Before(to) {
			continue
		}
		for _, li := range o.LineItems {
			if li.ProductID != nil {
				out[*li.ProductID] += li.Quantity
			}
		}
	}
	return out, nil
}

// EventRepo marcas de efectos aplicados.
type EventRepo struct{ base }

func (r *EventRepo) TryMark(_ context.Context, orderID string, eventType entity.OrderEventType) (bool, error) {
	defer r.lock()()
	k := eventKey{orderID, eventType}
	if _, ok := r.s.events[k]; ok {
		return false, nil
	}
	r.s.events[k] = time.Now().UTC()
	r.tx.add(func() { delete(r.s.events, k) })
	return true, nil
}

func (r *EventRepo) Exists(_ context.Context, orderID string, eventType entity.OrderEventType) (bool, error) {
	defer r.lock()()
	_, ok := r.s.events[eventKey{orderID, eventType}]
	return ok, nil
}

// WarehouseRepo bodegas.
type WarehouseRepo struct{ base }

func (r *WarehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	defer r.lock()()
	cp := *w
	r.s.warehouses[w.ID] = &cp
	return nil
}

func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	defer r.lock()()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *WarehouseRepo) Update(_ context.Context, w *entity.Warehouse) error {
	defer r.lock()()
	if _, ok := r.s.warehouses[w.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *w
	r.s.warehouses[w.ID] = &cp
	return nil
}

func (r *WarehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	defer r.lock()()
	var out []*entity.Warehouse
	for _, w := range r.s.warehouses {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), nil
}

// BundleRepo bundles con componentes.
type BundleRepo struct{ base }

func cloneBundle(b *entity.Bundle) *entity.Bundle {
	cp := *b
	cp.Components = append([]entity.BundleComponent(nil), b.Components...)
	return &cp
}

// Create exige SKU único y componentes de productos existentes, como las FK de bundle_components.
func (r *BundleRepo) Create(_ context.Context, b *entity.Bundle) error {
	defer r.lock()()
	for _, existing := range r.s.bundles {
		if existing.SKU == b.SKU {
			return domain.ErrDuplicate
		}
	}
	if !r.componentsExist(b) {
		return domain.ErrNotFound
	}
	r.s.bundles[b.ID] = cloneBundle(b)
	r.tx.add(func() { delete(r.s.bundles, b.ID) })
	return nil
}

func (r *BundleRepo) Update(_ context.Context, b *entity.Bundle) error {
	defer r.lock()()
	prev, ok := r.s.bundles[b.ID]
	if !ok || !r.componentsExist(b) {
		return domain.ErrNotFound
	}
	cp := cloneBundle(b)
	cp.SKU, cp.CreatedAt = prev.SKU, prev.CreatedAt
	r.s.bundles[b.ID] = cp
	r.tx.add(func() { r.s.bundles[b.ID] = prev })
	return nil
}

func (r *BundleRepo) componentsExist(b *entity.Bundle) bool {
	for _, c := range b.Components {
		if r.s.products[c.ProductID] == nil {
			return false
		}
	}
	return true
}

func (r *BundleRepo) GetByID(_ context.Context, id string) (*entity.Bundle, error) {
	defer r.lock()()
	b, ok := r.s.bundles[id]
	if !ok {
		return nil, nil
	}
	cp := cloneBundle(b)
	sort.SliceStable(cp.Components, func(i, j int) bool { return cp.Components[i].Position < cp.Components[j].Position })
	return cp, nil
}

// ImportLogRepo bitácoras de importación.
type ImportLogRepo struct{ base }

func (r *ImportLogRepo) Create(_ context.Context, l *entity.ImportLog) error {
	defer r.lock()()
	if _, ok := r.s.imports[l.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.imports[l.ID] = cloneLog(l)
	return nil
}

func (r *ImportLogRepo) Update(_ context.Context, l *entity.ImportLog) error {
	defer r.lock()()
	if _, ok := r.s.imports[l.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.imports[l.ID] = cloneLog(l)
	return nil
}

func (r *ImportLogRepo) GetByID(_ context.Context, id string) (*entity.ImportLog, error) {
	defer r.lock()()
	l, ok := r.s.imports[id]
	if !ok {
		return nil, nil
	}
	return cloneLog(l), nil
}

func cloneLog(l *entity.ImportLog) *entity.ImportLog {
	cp := *l
	cp.ErrorLog = append([]string(nil), l.ErrorLog...)
	return &cp
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
