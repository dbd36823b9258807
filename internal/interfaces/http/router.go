package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockledger-api/pkg/jwt"
)

// RouterDeps dependencias para el router. Un handler nil deja sus rutas sin registrar.
type RouterDeps struct {
	Inventory *InventoryHandler
	Bundles   *BundleHandler
	Forecast  *ForecastHandler
	Webhooks  *WebhookHandler
	Imports   *ImportHandler
	Products  *ProductHandler
	Warehouse *WarehouseHandler
	DB        Pinger
	JWTSecret string
	Features  FeatureChecker // nil = todo habilitado
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", Health(deps.DB))

	api := app.Group("/api")

	// Webhooks (HMAC, sin JWT)
	if deps.Webhooks != nil {
		api.Post("/webhooks/orders/:topic", RequireFeature(FeatureWebhooks, deps.Features), deps.Webhooks.Orders)
	}

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer)
	operator := RequireRole(jwt.RoleAdmin, jwt.RoleOperator)
	admin := RequireRole(jwt.RoleAdmin)

	if h := deps.Inventory; h != nil {
		inv := protected.Group("/inventory")
		inv.Post("/reserve", operator, h.Reserve)
		inv.Post("/release", operator, h.Release)
		inv.Post("/deduct", operator, h.Deduct)
		inv.Post("/adjust", operator, h.Adjust)
		inv.Post("/receive", operator, h.Receive)
		inv.Get("/movements", anyRole, h.ListMovements)
		inv.Get("/stock/:product_id", anyRole, h.ListStockByProduct)
		inv.Get("/stock/:product_id/:warehouse_id", anyRole, h.GetStock)
		inv.Get("/stock/:product_id/:warehouse_id/reconcile", anyRole, h.Reconcile)
		inv.Put("/stock/:product_id/:warehouse_id/targets", operator, h.SetTargets)
	}

	if h := deps.Bundles; h != nil {
		bundles := protected.Group("/bundles")
		bundles.Post("/", admin, h.Create)
		bundles.Put("/:id", admin, h.Update)
		bundles.Get("/:id", anyRole, h.Get)
		bundles.Get("/:id/availability", anyRole, h.Availability)
		bundles.Get("/:id/cost", anyRole, h.Cost)
	}

	if h := deps.Forecast; h != nil {
		fc := protected.Group("/forecast")
		fc.Get("/runway", anyRole, h.Report)
		// antes de /:product_id
		fc.Get("/runway/report.pdf", anyRole, h.ReportPDF)
		fc.Get("/runway/:product_id", anyRole, h.Runway)
		fc.Get("/replenishment", anyRole, h.Replenishment)
		fc.Post("/velocities/recompute", admin, h.Recompute)
	}

	if h := deps.Imports; h != nil {
		imports := protected.Group("/imports")
		imports.Post("/orders", admin, RequireFeature(FeatureBulkImport, deps.Features), h.Start)
		imports.Get("/:id", admin, h.Get)
		imports.Delete("/:id", admin, h.Cancel)
	}

	if h := deps.Products; h != nil {
		products := protected.Group("/products")
		products.Post("/", admin, h.Create)
		products.Get("/", anyRole, h.List)
		products.Get("/:id", anyRole, h.GetByID)
		products.Put("/:id", admin, h.Update)
	}

	if h := deps.Warehouse; h != nil {
		warehouses := protected.Group("/warehouses")
		warehouses.Post("/", admin, h.Create)
		warehouses.Get("/", anyRole, h.List)
		warehouses.Get("/:id", anyRole, h.GetByID)
		warehouses.Put("/:id", admin, h.Update)
		warehouses.Get("/:id/stock", anyRole, h.Stock)
	}
}
