package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/orders"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/platform"
)

// WebhookHandler receptor de webhooks de órdenes; autenticado por HMAC, no por JWT.
type WebhookHandler struct {
	ingestion *orders.IngestionService
	secret    string
}

// NewWebhookHandler construye el handler.
func NewWebhookHandler(ingestion *orders.IngestionService, secret string) *WebhookHandler {
	return &WebhookHandler{ingestion: ingestion, secret: secret}
}

// Orders godoc
// @Summary      Webhook de órdenes
// @Description  topic: create | updated | fulfilled | cancelled. La firma se verifica sobre el cuerpo crudo.
// @Description  Entregas repetidas no repiten el efecto de inventario.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        topic                  path    string  true  "Evento"
// @Param        X-Shopify-Hmac-Sha256  header  string  true  "HMAC-SHA256 base64 del cuerpo"
// @Success      200  {object}  dto.WebhookAckResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/webhooks/orders/{topic} [post]
func (h *WebhookHandler) Orders(c *fiber.Ctx) error {
	body := c.Body()
	if err := platform.VerifyWebhook(h.secret, body, c.Get(platform.HeaderHMAC)); err != nil {
		logFromCtx(c).Warn().Str("topic", c.Params("topic")).Msg("webhook con firma inválida")
		return writeError(c, err)
	}
	event, ok := platform.EventForTopic(c.Params("topic"))
	if !ok {
		return badRequest(c, "UNKNOWN_TOPIC", "tópico no soportado")
	}
	order, err := platform.ParseWebhookOrder(body)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.ingestion.HandleEvent(c.UserContext(), event, order)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.WebhookAckResponse{
		OrderNumber: res.OrderNumber,
		Event:       string(event),
		Created:     res.Created,
		Applied:     res.Applied,
		Failures:    len(res.Failures),
	})
}
