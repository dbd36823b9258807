package http

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/domain/repository"
	"github.com/jhoicas/stockledger-api/pkg/daterange"
)

// InventoryHandler operaciones sobre el libro de stock y consultas del diario (protegido).
type InventoryHandler struct {
	engine   *inventory.ReservationEngine
	ledger   *inventory.LedgerQueryUseCase
	targets  *inventory.StockTargetsUseCase
	calendar *daterange.Calendar
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	engine *inventory.ReservationEngine,
	ledger *inventory.LedgerQueryUseCase,
	targets *inventory.StockTargetsUseCase,
	calendar *daterange.Calendar,
) *InventoryHandler {
	return &InventoryHandler{engine: engine, ledger: ledger, targets: targets, calendar: calendar}
}

// Reserve godoc
// @Summary      Reservar stock
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockOperationRequest  true  "warehouse_id vacío = bodega por defecto"
// @Success      200   {object}  dto.StockLevelResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reserve [post]
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	return h.stockOperation(c, h.engine.Reserve)
}

// Release godoc
// @Summary      Liberar reserva
// @Description  Libera hasta lo reservado; el excedente se ignora.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockOperationRequest  true  "warehouse_id vacío = bodega por defecto"
// @Success      200   {object}  dto.StockLevelResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/release [post]
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	return h.stockOperation(c, h.engine.Release)
}

// Deduct godoc
// @Summary      Descontar stock despachado
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockOperationRequest  true  "warehouse_id vacío = bodega por defecto"
// @Success      200   {object}  dto.StockLevelResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/deduct [post]
func (h *InventoryHandler) Deduct(c *fiber.Ctx) error {
	return h.stockOperation(c, h.engine.Deduct)
}

func (h *InventoryHandler) stockOperation(c *fiber.Ctx, op func(ctx context.Context, req inventory.StockRequest) (*entity.StockLevel, error)) error {
	var in dto.StockOperationRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if !validUUID(in.ProductID) || (in.WarehouseID != "" && !validUUID(in.WarehouseID)) {
		return badRequest(c, "VALIDATION", "product_id y warehouse_id deben ser UUID")
	}
	level, err := op(c.UserContext(), inventory.StockRequest{
		ProductID:     in.ProductID,
		WarehouseID:   in.WarehouseID,
		Quantity:      in.Quantity,
		ReferenceType: entity.ReferenceManual,
		ReferenceID:   in.ReferenceID,
		Actor:         GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToStockLevelResponse(level))
}

// Adjust godoc
// @Summary      Ajuste manual de inventario
// @Description  mode: add | remove | set. remove nunca deja la cantidad en negativo.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustRequest  true  "Ajuste"
// @Success      200   {object}  dto.StockLevelResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if !validUUID(in.ProductID) || !validUUID(in.WarehouseID) {
		return badRequest(c, "VALIDATION", "product_id y warehouse_id deben ser UUID")
	}
	level, err := h.engine.Adjust(c.UserContext(), inventory.AdjustRequest{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Mode:        entity.AdjustMode(strings.ToLower(in.Mode)),
		Quantity:    in.Quantity,
		Note:        in.Note,
		Actor:       GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToStockLevelResponse(level))
}

// Receive godoc
// @Summary      Recepción de compra
// @Description  Suma cantidad y recalcula el costo promedio ponderado del producto.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveRequest  true  "Recepción"
// @Success      200   {object}  dto.StockLevelResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/receive [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if !validUUID(in.ProductID) || !validUUID(in.WarehouseID) {
		return badRequest(c, "VALIDATION", "product_id y warehouse_id deben ser UUID")
	}
	level, err := h.engine.Receive(c.UserContext(), inventory.ReceiveRequest{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Quantity:    in.Quantity,
		UnitCost:    in.UnitCost,
		ReferenceID: in.ReferenceID,
		Actor:       GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToStockLevelResponse(level))
}

// GetStock godoc
// @Summary      Entrada del libro para producto y bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    path  string  true  "ID del producto"
// @Param        warehouse_id  path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.StockLevelResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product_id}/{warehouse_id} [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	productID, warehouseID := c.Params("product_id"), c.Params("warehouse_id")
	if !validUUID(productID) || !validUUID(warehouseID) {
		return badRequest(c, "VALIDATION", "product_id y warehouse_id deben ser UUID")
	}
	out, err := h.ledger.GetStock(c.UserContext(), productID, warehouseID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListStockByProduct godoc
// @Summary      Entradas del libro de un producto en todas las bodegas
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  string  true  "ID del producto"
// @Success      200  {array}  dto.StockLevelResponse
// @Router       /api/inventory/stock/{product_id} [get]
func (h *InventoryHandler) ListStockByProduct(c *fiber.Ctx) error {
	productID := c.Params("product_id")
	if !validUUID(productID) {
		return badRequest(c, "VALIDATION", "product_id debe ser UUID")
	}
	out, err := h.ledger.ListStockByProduct(c.UserContext(), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetTargets godoc
// @Summary      Fijar par level y punto de reorden
// @Description  Reemplaza ambas metas del par; no modifica cantidad ni reserva.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        product_id    path  string                   true  "ID del producto"
// @Param        warehouse_id  path  string                   true  "ID de la bodega"
// @Param        body          body  dto.StockTargetsRequest  true  "Metas"
// @Success      200  {object}  dto.StockLevelResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock/{product_id}/{warehouse_id}/targets [put]
func (h *InventoryHandler) SetTargets(c *fiber.Ctx) error {
	productID, warehouseID := c.Params("product_id"), c.Params("warehouse_id")
	if !validUUID(productID) || !validUUID(warehouseID) {
		return badRequest(c, "VALIDATION", "product_id y warehouse_id deben ser UUID")
	}
	var in dto.StockTargetsRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.targets.SetTargets(c.UserContext(), productID, warehouseID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Reconcile godoc
// @Summary      Conciliar libro contra diario
// @Description  Compara la cantidad del libro con la suma de movimientos que afectan cantidad.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    path  string  true  "ID del producto"
// @Param        warehouse_id  path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.ReconcileResponse
// @Router       /api/inventory/stock/{product_id}/{warehouse_id}/reconcile [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	productID, warehouseID := c.Params("product_id"), c.Params("warehouse_id")
	if !validUUID(productID) || !validUUID(warehouseID) {
		return badRequest(c, "VALIDATION", "product_id y warehouse_id deben ser UUID")
	}
	out, err := h.ledger.Reconcile(c.UserContext(), productID, warehouseID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListMovements godoc
// @Summary      Diario de movimientos
// @Description  Más reciente primero. from/to aceptan RFC3339 o YYYY-MM-DD (día local; to incluye el día completo).
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Filtrar por producto"
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        from          query  string  false  "Desde"
// @Param        to            query  string  false  "Hasta"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	filter := repository.MovementFilter{
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		Limit:       c.QueryInt("limit", 20),
		Offset:      c.QueryInt("offset", 0),
	}
	if (filter.ProductID != "" && !validUUID(filter.ProductID)) || (filter.WarehouseID != "" && !validUUID(filter.WarehouseID)) {
		return badRequest(c, "VALIDATION", "product_id y warehouse_id deben ser UUID")
	}
	var err error
	if filter.From, err = h.parseBound(c.Query("from"), false); err != nil {
		return badRequest(c, "VALIDATION", "from inválido")
	}
	if filter.To, err = h.parseBound(c.Query("to"), true); err != nil {
		return badRequest(c, "VALIDATION", "to inválido")
	}
	out, err := h.ledger.ListMovements(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// parseBound RFC3339 o fecha local. Para el límite superior una fecha cubre el día completo.
func (h *InventoryHandler) parseBound(s string, upper bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	day, err := h.calendar.ParseDate(s)
	if err != nil {
		return nil, err
	}
	if upper {
		_, day = h.calendar.DayRange(day)
	}
	return &day, nil
}

func validUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
