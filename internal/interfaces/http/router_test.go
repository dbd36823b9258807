package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/bundle"
	"github.com/jhoicas/stockledger-api/internal/application/dto"
	"github.com/jhoicas/stockledger-api/internal/application/forecast"
	"github.com/jhoicas/stockledger-api/internal/application/importer"
	"github.com/jhoicas/stockledger-api/internal/application/inventory"
	"github.com/jhoicas/stockledger-api/internal/application/orders"
	"github.com/jhoicas/stockledger-api/internal/application/usecase"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/memstore"
	infrapdf "github.com/jhoicas/stockledger-api/internal/infrastructure/pdf"
	"github.com/jhoicas/stockledger-api/internal/infrastructure/platform"
	apphttp "github.com/jhoicas/stockledger-api/internal/interfaces/http"
	"github.com/jhoicas/stockledger-api/pkg/daterange"
	pkgjwt "github.com/jhoicas/stockledger-api/pkg/jwt"
	"github.com/jhoicas/stockledger-api/pkg/retry"
)

const (
	teaID         = "11111111-1111-1111-1111-111111111111"
	warehouseID   = "99999999-9999-9999-9999-999999999999"
	webhookSecret = "whsec-router-test"
)

const webhookBody = `{
	"id": 450789469,
	"name": "#1001",
	"currency": "USD",
	"total_price": "20.00",
	"financial_status": "paid",
	"fulfillment_status": null,
	"created_at": "2024-03-01T10:00:00Z",
	"line_items": [{"sku": "TEA-01", "quantity": 2, "price": "10.00"}]
}`

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("sin conexión") }

// newRouterApp arma la API completa sobre el almacén en memoria, sin plataforma.
func newRouterApp(t *testing.T, features apphttp.FeatureChecker) (*fiber.App, *memstore.Store) {
	t.Helper()
	return newRouterAppWithExporter(t, features, nil)
}

func newRouterAppWithExporter(t *testing.T, features apphttp.FeatureChecker, exporter importer.BulkExporter) (*fiber.App, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	store.AddWarehouse(warehouseID, "Principal")
	store.AddProduct(&entity.Product{ID: teaID, SKU: "TEA-01", Name: "Té", Active: true})
	store.SetStock(entity.StockLevel{ProductID: teaID, WarehouseID: warehouseID, Quantity: 10})

	calendar, err := daterange.New("America/Bogota")
	require.NoError(t, err)

	repos := store.Repositories()
	engine := inventory.NewReservationEngine(store, warehouseID, zerolog.Nop())
	ledger := inventory.NewLedgerQueryUseCase(repos.Stock, repos.Movements)
	targets := inventory.NewStockTargetsUseCase(repos.Stock)
	cfg := retry.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffFactor: 2}
	ingestion := orders.NewIngestionService(store, engine, repos.Products, cfg, zerolog.Nop())

	resolver := bundle.NewResolver(store.Bundles(), repos.Stock, repos.Products)
	bundles := usecase.NewBundleUseCase(store.Bundles(), repos.Products, resolver)

	forecastSvc := forecast.NewService(repos.Products, repos.Orders, repos.Stock, calendar, zerolog.Nop())
	scheduler := forecast.NewScheduler(forecastSvc, nil, time.Hour, zerolog.Nop())
	report := forecast.NewReportUseCase(forecastSvc, infrapdf.NewMarotoPDFGenerator())
	replenishment := inventory.NewReplenishmentUseCase(repos.Stock, repos.Orders)

	imports := importer.NewService(store.ImportLogs(), ingestion, exporter, importer.Config{
		PollInterval: time.Millisecond,
		MaxAttempts:  1000,
		Timeout:      time.Minute,
	}, zerolog.Nop())
	t.Cleanup(func() { _ = imports.Shutdown(context.Background()) })

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler})
	apphttp.Router(app, apphttp.RouterDeps{
		Inventory: apphttp.NewInventoryHandler(engine, ledger, targets, calendar),
		Bundles:   apphttp.NewBundleHandler(resolver, bundles),
		Forecast:  apphttp.NewForecastHandler(forecastSvc, report, scheduler, replenishment),
		Webhooks:  apphttp.NewWebhookHandler(ingestion, webhookSecret),
		Imports:   apphttp.NewImportHandler(imports),
		DB:        store,
		JWTSecret: testJWTSecret,
		Features:  features,
	})
	return app, store
}

func postJSON(t *testing.T, app *fiber.App, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	return sendJSON(t, app, http.MethodPost, path, body, headers)
}

func sendJSON(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// get GET autenticado con el rol indicado.
func get(t *testing.T, app *fiber.App, path, role string) *http.Response {
	t.Helper()
	return sendJSON(t, app, http.MethodGet, path, "", map[string]string{"Authorization": tokenForRole(t, role)})
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth_Ok(t *testing.T) {
	app, _ := newRouterApp(t, nil)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth_BaseCaida(t *testing.T) {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{DB: failingPinger{}})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebhook_FirmaInvalida_Retorna401(t *testing.T) {
	app, store := newRouterApp(t, nil)
	resp := postJSON(t, app, "/api/webhooks/orders/create", webhookBody, map[string]string{
		platform.HeaderHMAC: platform.Sign("otro-secreto", []byte(webhookBody)),
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "INVALID_SIGNATURE")
	assert.Nil(t, store.Order("1001"), "una firma inválida no debe tocar el estado")
}

func TestWebhook_FirmaValida_ReservaUnaSolaVez(t *testing.T) {
	app, store := newRouterApp(t, nil)
	headers := map[string]string{platform.HeaderHMAC: platform.Sign(webhookSecret, []byte(webhookBody))}

	resp := postJSON(t, app, "/api/webhooks/orders/create", webhookBody, headers)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ack dto.WebhookAckResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.Equal(t, "1001", ack.OrderNumber)
	assert.True(t, ack.Created)
	assert.True(t, ack.Applied)
	assert.Equal(t, int64(2), store.Stock(teaID, warehouseID).Reserved)

	// reentrega de la plataforma
	resp2 := postJSON(t, app, "/api/webhooks/orders/create", webhookBody, headers)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	var ack2 dto.WebhookAckResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&ack2))
	assert.False(t, ack2.Applied)
	assert.Equal(t, int64(2), store.Stock(teaID, warehouseID).Reserved)
}

func TestWebhook_TopicoDesconocido_Retorna400(t *testing.T) {
	app, _ := newRouterApp(t, nil)
	resp := postJSON(t, app, "/api/webhooks/orders/paid", webhookBody, map[string]string{
		platform.HeaderHMAC: platform.Sign(webhookSecret, []byte(webhookBody)),
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "UNKNOWN_TOPIC")
}

func TestWebhook_FuncionalidadDesactivada_Retorna503(t *testing.T) {
	app, _ := newRouterApp(t, apphttp.StaticFeatures{apphttp.FeatureWebhooks: false})
	resp := postJSON(t, app, "/api/webhooks/orders/create", webhookBody, map[string]string{
		platform.HeaderHMAC: platform.Sign(webhookSecret, []byte(webhookBody)),
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "FEATURE_DISABLED")
}

func TestReserve_ViewerRetorna403(t *testing.T) {
	app, store := newRouterApp(t, nil)
	body := `{"product_id":"` + teaID + `","warehouse_id":"` + warehouseID + `","quantity":1}`
	resp := postJSON(t, app, "/api/inventory/reserve", body, map[string]string{
		"Authorization": tokenForRole(t, pkgjwt.RoleViewer),
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int64(0), store.Stock(teaID, warehouseID).Reserved)
}

func TestReserve_OperadorReserva(t *testing.T) {
	app, _ := newRouterApp(t, nil)
	body := `{"product_id":"` + teaID + `","quantity":3}`
	resp := postJSON(t, app, "/api/inventory/reserve", body, map[string]string{
		"Authorization": tokenForRole(t, pkgjwt.RoleOperator),
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var level dto.StockLevelResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&level))
	assert.Equal(t, warehouseID, level.WarehouseID, "sin warehouse_id usa la bodega por defecto")
	assert.Equal(t, int64(3), level.Reserved)
	assert.Equal(t, int64(7), level.Available)
}

func TestReserve_StockInsuficienteRetorna409(t *testing.T) {
	app, _ := newRouterApp(t, nil)
	body := `{"product_id":"` + teaID + `","warehouse_id":"` + warehouseID + `","quantity":11}`
	resp := postJSON(t, app, "/api/inventory/reserve", body, map[string]string{
		"Authorization": tokenForRole(t, pkgjwt.RoleAdmin),
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), "INSUFFICIENT_STOCK")
}

func TestReserve_ProductIDNoUUIDRetorna400(t *testing.T) {
	app, _ := newRouterApp(t, nil)
	resp := postJSON(t, app, "/api/inventory/reserve", `{"product_id":"abc","quantity":1}`, map[string]string{
		"Authorization": tokenForRole(t, pkgjwt.RoleAdmin),
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
