package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/importer"
)

// ImportHandler importaciones masivas de órdenes (protegido, admin).
type ImportHandler struct {
	service *importer.Service
}

// NewImportHandler construye el handler.
func NewImportHandler(service *importer.Service) *ImportHandler {
	return &ImportHandler{service: service}
}

// Start godoc
// @Summary      Iniciar importación masiva de órdenes
// @Description  Corre en segundo plano; consultar el estado con GET /api/imports/{id}.
// @Tags         imports
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StartImportRequest  true  "Órdenes creadas desde since"
// @Success      202   {object}  dto.ImportLogResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      502   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/imports/orders [post]
func (h *ImportHandler) Start(c *fiber.Ctx) error {
	var in dto.StartImportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "INVALID_BODY", "cuerpo inválido")
		}
	}
	il, err := h.service.StartPlatformImport(c.UserContext(), in.Since, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.ToImportLogResponse(il))
}

// Get godoc
// @Summary      Estado de una importación
// @Tags         imports
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la importación"
// @Success      200  {object}  dto.ImportLogResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/imports/{id} [get]
func (h *ImportHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if !validUUID(id) {
		return badRequest(c, "VALIDATION", "id debe ser UUID")
	}
	il, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToImportLogResponse(il))
}

// Cancel godoc
// @Summary      Cancelar una importación en curso
// @Tags         imports
// @Security     Bearer
// @Param        id  path  string  true  "ID de la importación"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/imports/{id} [delete]
func (h *ImportHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	if !validUUID(id) {
		return badRequest(c, "VALIDATION", "id debe ser UUID")
	}
	if err := h.service.Cancel(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
