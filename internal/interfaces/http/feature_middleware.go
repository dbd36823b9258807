package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/internal/application/dto"
)

// Funcionalidades que dependen de configuración externa.
const (
	FeatureBulkImport = "bulk_import"
	FeatureWebhooks   = "webhooks"
)

// FeatureChecker decide si una funcionalidad está habilitada en este despliegue.
type FeatureChecker interface {
	FeatureEnabled(ctx context.Context, name string) (bool, error)
}

// StaticFeatures habilita funcionalidades a partir de la configuración cargada al arrancar.
type StaticFeatures map[string]bool

// FeatureEnabled implementa FeatureChecker. Las funcionalidades no listadas quedan desactivadas.
func (f StaticFeatures) FeatureEnabled(_ context.Context, name string) (bool, error) {
	return f[name], nil
}

// RequireFeature corta la petición cuando la funcionalidad no está habilitada.
//
// Comportamiento:
//   - 503 FEATURE_DISABLED: falta configuración (credenciales de plataforma, secreto de webhook).
//   - 503 FEATURE_CHECK_FAILED: el checker devolvió error.
//
// Con checker nil la funcionalidad se considera habilitada.
func RequireFeature(name string, checker FeatureChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if checker == nil {
			return c.Next()
		}
		enabled, err := checker.FeatureEnabled(c.UserContext(), name)
		if err != nil {
			logFromCtx(c).Error().Err(err).Str("feature", name).Msg("verificar funcionalidad")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "FEATURE_CHECK_FAILED",
				Message: "no se pudo verificar la funcionalidad, intente más tarde",
			})
		}
		if !enabled {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "FEATURE_DISABLED",
				Message: "la funcionalidad '" + name + "' no está configurada en este despliegue",
			})
		}
		return c.Next()
	}
}
