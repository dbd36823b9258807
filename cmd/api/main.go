package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/stockledger-api/docs"
	"github.com/jhoicas/stockledger-api/internal/application/bundle"
	"github.com/jhoicas/stockledger-api/internal/application/forecast"
	"github.com/jhoicas/stockledger-api/internal/application/importer"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/application/orders"
	"github.com/jhoicas/stockledger-api/internal/application/usecase"
	infrapdf "github.com/jhoicas/stockledger-api/internal/infrastructure/pdf"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/platform"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/redislock"
	httpRouter "github.com/jhoicas/stockledger-api/internal/interfaces/http"
	"github.com/jhoicas/stockledger-api/pkg/config"
	"github.com/jhoicas/stockledger-api/pkg/daterange"
	"github.com/jhoicas/stockledger-api/pkg/logger"
	"github.com/jhoicas/stockledger-api/pkg/retry"
	"github.com/jhoicas/stockledger-api/pkg/telemetry"
)

const version = "1.0.0"

// @title                       StockLedger API
// @version                     1.0
// @description                 Libro de stock, reservas por orden, bundles y pronóstico de agotamiento.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar OpenTelemetry")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	calendar, err := daterange.New(cfg.Forecast.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("zona horaria del pronóstico")
	}

	// Repositorios fuera de transacción
	productRepo := postgres.NewProductRepository(pool)
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	stockRepo := postgres.NewStockRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	bundleRepo := postgres.NewBundleRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	importLogRepo := postgres.NewImportLogRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Casos de uso
	engine := inventory.NewReservationEngine(txRunner, cfg.Inventory.DefaultWarehouseID, log.Component("reservation_engine"))
	ledgerUC := inventory.NewLedgerQueryUseCase(stockRepo, movementRepo)
	targetsUC := inventory.NewStockTargetsUseCase(stockRepo)
	productUC := usecase.NewProductUseCase(productRepo)
	warehouseUC := usecase.NewWarehouseUseCase(warehouseRepo)
	bundleResolver := bundle.NewResolver(bundleRepo, stockRepo, productRepo)
	bundleUC := usecase.NewBundleUseCase(bundleRepo, productRepo, bundleResolver)
	ingestion := orders.NewIngestionService(txRunner, engine, productRepo, retry.DefaultConfig(), log.Component("ingestion"))

	var exporter importer.BulkExporter
	if cfg.Platform.Enabled() {
		exporter = platform.NewClient(cfg.Platform, log.Component("platform"))
	} else {
		log.Warn().Msg("plataforma sin credenciales: importación masiva desactivada")
	}
	importSvc := importer.NewService(importLogRepo, ingestion, exporter, importer.Config{
		PollInterval: cfg.Import.PollInterval,
		MaxAttempts:  cfg.Import.MaxAttempts,
		Timeout:      cfg.Import.Timeout,
	}, log.Zerolog())

	// Lock del recálculo: Redis si está configurado, si no en proceso
	var jobLock forecast.JobLock
	if cfg.Redis.Addr != "" {
		rdb, err := redislock.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		jobLock = redislock.New(rdb)
	}
	forecastSvc := forecast.NewService(productRepo, orderRepo, stockRepo, calendar, log.Zerolog())
	scheduler := forecast.NewScheduler(forecastSvc, jobLock, cfg.Forecast.RecomputeInterval, log.Zerolog())
	reportUC := forecast.NewReportUseCase(forecastSvc, infrapdf.NewMarotoPDFGenerator())
	replenishmentUC := inventory.NewReplenishmentUseCase(stockRepo, orderRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(httpRouter.Tracing(cfg.Telemetry.ServiceName))
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "StockLedger API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Inventory: httpRouter.NewInventoryHandler(engine, ledgerUC, targetsUC, calendar),
		Bundles:   httpRouter.NewBundleHandler(bundleResolver, bundleUC),
		Forecast:  httpRouter.NewForecastHandler(forecastSvc, reportUC, scheduler, replenishmentUC),
		Webhooks:  httpRouter.NewWebhookHandler(ingestion, cfg.Platform.WebhookSecret),
		Imports:   httpRouter.NewImportHandler(importSvc),
		Products:  httpRouter.NewProductHandler(productUC),
		Warehouse: httpRouter.NewWarehouseHandler(warehouseUC, ledgerUC),
		DB:        txRunner,
		JWTSecret: cfg.JWT.Secret,
		Features: httpRouter.StaticFeatures{
			httpRouter.FeatureBulkImport: cfg.Platform.Enabled(),
			httpRouter.FeatureWebhooks:   cfg.Platform.WebhookSecret != "",
		},
	})

	go scheduler.Start(ctx)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := importSvc.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("importaciones en curso no cerraron a tiempo")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de OpenTelemetry")
	}

	log.Info().Msg("aplicación detenida")
}
