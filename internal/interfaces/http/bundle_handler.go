package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/internal/application/bundle"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/usecase"
)

// BundleHandler alta de bundles y valores derivados (protegido).
type BundleHandler struct {
	resolver *bundle.Resolver
	uc       *usecase.BundleUseCase
}

// NewBundleHandler construye el handler.
func NewBundleHandler(resolver *bundle.Resolver, uc *usecase.BundleUseCase) *BundleHandler {
	return &BundleHandler{resolver: resolver, uc: uc}
}

// Create godoc
// @Summary      Crear bundle
// @Description  Requiere al menos un componente; cada quantity_per_bundle debe ser > 0.
// @Tags         bundles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateBundleRequest  true  "Bundle y componentes"
// @Success      201   {object}  dto.BundleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/bundles [post]
func (h *BundleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateBundleRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if in.SKU == "" || in.Name == "" || len(in.Components) == 0 {
		return badRequest(c, "VALIDATION", "sku, name y components son requeridos")
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Actualizar bundle
// @Description  components presente reemplaza la lista completa; active=false lo retira de la venta.
// @Tags         bundles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del bundle"
// @Param        body  body  dto.UpdateBundleRequest  true  "Datos a actualizar"
// @Success      200   {object}  dto.BundleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/bundles/{id} [put]
func (h *BundleHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if !validUUID(id) {
		return badRequest(c, "MISSING_ID", "id debe ser UUID")
	}
	var in dto.UpdateBundleRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.Update(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Bundle con disponibilidad y costo derivados
// @Tags         bundles
// @Security     Bearer
// @Produce      json
// @Param        id            path   string  true   "ID del bundle"
// @Param        warehouse_id  query  string  false  "Bodega; vacío = todas"
// @Success      200  {object}  dto.BundleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/bundles/{id} [get]
func (h *BundleHandler) Get(c *fiber.Ctx) error {
	id, warehouseID, ok := bundleParams(c)
	if !ok {
		return badRequest(c, "VALIDATION", "id y warehouse_id deben ser UUID")
	}
	out, err := h.resolver.Get(c.UserContext(), id, warehouseID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Availability godoc
// @Summary      Unidades armables del bundle
// @Description  Mínimo sobre componentes de floor(disponible / cantidad por bundle); 0 sin componentes.
// @Tags         bundles
// @Security     Bearer
// @Produce      json
// @Param        id            path   string  true   "ID del bundle"
// @Param        warehouse_id  query  string  false  "Bodega; vacío = todas"
// @Success      200  {object}  dto.BundleAvailabilityResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/bundles/{id}/availability [get]
func (h *BundleHandler) Availability(c *fiber.Ctx) error {
	id, warehouseID, ok := bundleParams(c)
	if !ok {
		return badRequest(c, "VALIDATION", "id y warehouse_id deben ser UUID")
	}
	n, err := h.resolver.Availability(c.UserContext(), id, warehouseID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BundleAvailabilityResponse{BundleID: id, WarehouseID: warehouseID, Availability: n})
}

// Cost godoc
// @Summary      Costo del bundle
// @Tags         bundles
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del bundle"
// @Success      200  {object}  dto.BundleCostResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/bundles/{id}/cost [get]
func (h *BundleHandler) Cost(c *fiber.Ctx) error {
	id, _, ok := bundleParams(c)
	if !ok {
		return badRequest(c, "VALIDATION", "id debe ser UUID")
	}
	cost, err := h.resolver.Cost(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BundleCostResponse{BundleID: id, Cost: cost})
}

func bundleParams(c *fiber.Ctx) (id, warehouseID string, ok bool) {
	id, warehouseID = c.Params("id"), c.Query("warehouse_id")
	if !validUUID(id) || (warehouseID != "" && !validUUID(warehouseID)) {
		return "", "", false
	}
	return id, warehouseID, true
}
