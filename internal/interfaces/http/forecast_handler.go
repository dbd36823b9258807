package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/internal/application/forecast"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
)

// ForecastHandler runway de inventario y recálculo de velocidades (protegido).
type ForecastHandler struct {
	service       *forecast.Service
	report        *forecast.ReportUseCase
	scheduler     *forecast.Scheduler
	replenishment *inventory.ReplenishmentUseCase
}

// NewForecastHandler construye el handler.
func NewForecastHandler(
	service *forecast.Service,
	report *forecast.ReportUseCase,
	scheduler *forecast.Scheduler,
	replenishment *inventory.ReplenishmentUseCase,
) *ForecastHandler {
	return &ForecastHandler{service: service, report: report, scheduler: scheduler, replenishment: replenishment}
}

// Report godoc
// @Summary      Runway de todos los productos activos
// @Description  Ordenado por severidad (critical, warning, healthy) y luego por runway ascendente.
// @Tags         forecast
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.RunwayReportResponse
// @Router       /api/forecast/runway [get]
func (h *ForecastHandler) Report(c *fiber.Ctx) error {
	out, err := h.service.RunwayReport(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Runway godoc
// @Summary      Runway de un producto
// @Tags         forecast
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  string  true  "ID del producto"
// @Success      200  {object}  dto.RunwayResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/forecast/runway/{product_id} [get]
func (h *ForecastHandler) Runway(c *fiber.Ctx) error {
	productID := c.Params("product_id")
	if !validUUID(productID) {
		return badRequest(c, "VALIDATION", "product_id debe ser UUID")
	}
	out, err := h.service.Runway(c.UserContext(), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ReportPDF godoc
// @Summary      Reporte de runway en PDF
// @Tags         forecast
// @Security     Bearer
// @Produce      application/pdf
// @Success      200  {file}  binary
// @Router       /api/forecast/runway/report.pdf [get]
func (h *ForecastHandler) ReportPDF(c *fiber.Ctx) error {
	pdf, filename, err := h.report.DownloadRunwayPDF(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(pdf)
}

// Replenishment godoc
// @Summary      Lista de reposición
// @Description  Productos con disponible bajo su punto de reorden, con cantidad sugerida y prioridad (1 = más urgente).
// @Tags         forecast
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Bodega; vacío = total de todas las bodegas"
// @Success      200  {object}  dto.ReplenishmentListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/forecast/replenishment [get]
func (h *ForecastHandler) Replenishment(c *fiber.Ctx) error {
	warehouseID := c.Query("warehouse_id")
	if warehouseID != "" && !validUUID(warehouseID) {
		return badRequest(c, "VALIDATION", "warehouse_id debe ser UUID")
	}
	out, err := h.replenishment.GenerateReplenishmentList(c.UserContext(), warehouseID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Recompute godoc
// @Summary      Recalcular velocidades de venta
// @Description  Corre el recálculo bajo el mismo lock que el programador; skipped=true si otra réplica lo tiene.
// @Tags         forecast
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.VelocityRecomputeResponse
// @Router       /api/forecast/velocities/recompute [post]
func (h *ForecastHandler) Recompute(c *fiber.Ctx) error {
	out, err := h.scheduler.RunOnce(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
