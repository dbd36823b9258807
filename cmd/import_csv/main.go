// import_csv carga el historial de órdenes desde una exportación CSV o XLSX.
// Las órdenes se guardan solo como historial (sin efectos de inventario) y alimentan el pronóstico.
//
// Uso: go run ./cmd/import_csv -file ordenes.csv [-encoding windows-1252] [-actor ops]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/stockledger-api/internal/application/importer"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/application/orders"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/orderfile"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockledger-api/pkg/config"
	"github.com/jhoicas/stockledger-api/pkg/daterange"
	"github.com/jhoicas/stockledger-api/pkg/logger"
	"github.com/jhoicas/stockledger-api/pkg/retry"
)

func main() {
	path := flag.String("file", "", "archivo CSV o XLSX de órdenes")
	encoding := flag.String("encoding", orderfile.EncodingUTF8, "codificación del CSV: utf-8 o windows-1252")
	actor := flag.String("actor", "import_csv", "actor registrado en la bitácora")
	flag.Parse()
	if *path == "" {
		fmt.Fprintln(os.Stderr, "Uso: import_csv -file ordenes.csv [-encoding windows-1252]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "import_csv"})

	calendar, err := daterange.New(cfg.Forecast.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("zona horaria")
	}
	records, err := orderfile.NewReader(calendar).ReadFile(*path, *encoding)
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("leer archivo")
	}
	log.Info().Int("records", len(records)).Str("file", *path).Msg("archivo leído")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	txRunner := postgres.NewTxRunner(pool)
	engine := inventory.NewReservationEngine(txRunner, cfg.Inventory.DefaultWarehouseID, log.Component("reservation_engine"))
	ingestion := orders.NewIngestionService(txRunner, engine, postgres.NewProductRepository(pool), retry.DefaultConfig(), log.Component("ingestion"))
	svc := importer.NewService(postgres.NewImportLogRepository(pool), ingestion, nil, importer.Config{}, log.Zerolog())

	il, err := svc.ImportRecords(ctx, entity.ImportSourceCSV, *actor, records)
	if err != nil {
		log.Error().Err(err).Msg("importación interrumpida")
	}
	if il == nil {
		os.Exit(1)
	}
	for _, msg := range il.ErrorLog {
		fmt.Fprintln(os.Stderr, msg)
	}
	fmt.Printf("Importación %s: %s, %d importadas, %d fallidas\n", il.ID, il.Status, il.RecordsImported, il.RecordsFailed)
	if il.Status == entity.ImportStatusFailed {
		os.Exit(1)
	}
}
