package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockledger-api/internal/application/importer"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
	"github.com/jhoicas/stockledger-api/pkg/config"
)

const testSecret = "whsec-test"

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(config.PlatformConfig{
		ShopDomain:  srv.URL,
		AccessToken: "shpat-test",
		APIVersion:  "2024-01",
		RateLimit:   100,
		RateBurst:   10,
		Timeout:     5 * time.Second,
	}, zerolog.Nop())
}

func TestVerifyWebhook_FirmaValida(t *testing.T) {
	body := []byte(`{"id":1}`)
	assert.NoError(t, VerifyWebhook(testSecret, body, Sign(testSecret, body)))
}

func TestVerifyWebhook_FirmaInvalida(t *testing.T) {
	body := []byte(`{"id":1}`)
	err := VerifyWebhook(testSecret, body, Sign("otro", body))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	err = VerifyWebhook(testSecret, []byte(`{"id":2}`), Sign(testSecret, body))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature, "cuerpo alterado")

	err = VerifyWebhook(testSecret, body, "no-es-base64!!")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyWebhook_SinSecretoRechaza(t *testing.T) {
	body := []byte(`{}`)
	assert.ErrorIs(t, VerifyWebhook("", body, Sign("", body)), domain.ErrInvalidSignature)
}

func TestEventForTopic(t *testing.T) {
	cases := map[string]entity.OrderEventType{
		"create":           entity.OrderEventCreated,
		"orders/create":    entity.OrderEventCreated,
		"updated":          entity.OrderEventUpdated,
		"fulfilled":        entity.OrderEventFulfilled,
		"orders/cancelled": entity.OrderEventCancelled,
	}
	for topic, want := range cases {
		got, ok := EventForTopic(topic)
		assert.True(t, ok, topic)
		assert.Equal(t, want, got, topic)
	}
	_, ok := EventForTopic("orders/paid")
	assert.False(t, ok)
}

func TestParseWebhookOrder(t *testing.T) {
	body := []byte(`{
		"id": 450789469,
		"name": "#1001",
		"order_number": 1001,
		"email": "ana@example.com",
		"currency": "USD",
		"subtotal_price": "20.00",
		"total_tax": "1.60",
		"total_price": "26.60",
		"total_shipping_price_set": {"shop_money": {"amount": "5.00"}},
		"financial_status": "paid",
		"fulfillment_status": null,
		"created_at": "2024-03-01T10:00:00-08:00",
		"updated_at": "2024-03-01T10:05:00-08:00",
		"cancelled_at": null,
		"customer": {"first_name": "Ana", "last_name": "Díaz"},
		"line_items": [
			{"sku": "TEE-M", "quantity": 2, "price": "10.00"},
			{"sku": " ", "quantity": 1, "price": "0"}
		]
	}`)
	o, err := ParseWebhookOrder(body)
	require.NoError(t, err)

	assert.Equal(t, "1001", o.OrderNumber)
	assert.Equal(t, "450789469", o.PlatformID)
	assert.Equal(t, entity.OrderStatusPaid, o.Status)
	assert.Equal(t, entity.FulfillmentUnfulfilled, o.FulfillmentStatus)
	assert.Equal(t, "26.6", o.Total.String())
	assert.Equal(t, "5", o.ShippingTotal.String())
	assert.Equal(t, "Ana Díaz", o.CustomerName)
	assert.Equal(t, "ana@example.com", o.CustomerEmail)
	assert.True(t, o.PlacedAt.Equal(time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)))
	require.Len(t, o.LineItems, 2)
	assert.Equal(t, "TEE-M", o.LineItems[0].SKU)
	assert.Equal(t, int64(2), o.LineItems[0].Quantity)
	assert.Equal(t, "", o.LineItems[1].SKU)
	assert.Nil(t, o.FulfilledAt)
}

func TestParseWebhookOrder_CanceladaYDespachada(t *testing.T) {
	o, err := ParseWebhookOrder([]byte(`{
		"name": "#7", "financial_status": "paid", "fulfillment_status": "fulfilled",
		"created_at": "2024-03-01T10:00:00Z", "updated_at": "2024-03-02T10:00:00Z",
		"cancelled_at": "2024-03-03T10:00:00Z"
	}`))
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, o.Status)
	assert.Equal(t, entity.FulfillmentFulfilled, o.FulfillmentStatus)
	require.NotNil(t, o.FulfilledAt)
	require.NotNil(t, o.CancelledAt)
}

func TestParseWebhookOrder_MontoInvalido(t *testing.T) {
	_, err := ParseWebhookOrder([]byte(`{"name":"#8","total_price":"abc","created_at":"2024-03-01T10:00:00Z"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ParseWebhookOrder([]byte(`no-json`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClient_StartYPollExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat-test", r.Header.Get("X-Shopify-Access-Token"))

		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(req.Query, "bulkOperationRunQuery") {
			assert.Contains(t, req.Variables["query"], "2024-01-01T00:00:00Z")
			io.WriteString(w, `{"data":{"bulkOperationRunQuery":{"bulkOperation":{"id":"gid://shopify/BulkOperation/1","status":"CREATED"},"userErrors":[]}}}`)
			return
		}
		assert.Equal(t, "gid://shopify/BulkOperation/1", req.Variables["id"])
		io.WriteString(w, `{"data":{"node":{"id":"gid://shopify/BulkOperation/1","status":"COMPLETED","objectCount":"3","url":"https://files.example/x.jsonl"}}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	id, err := c.StartOrderExport(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/BulkOperation/1", id)

	st, err := c.PollExport(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, importer.ExportCompleted, st.State)
	assert.Equal(t, 3, st.ObjectCount)
	assert.Equal(t, "https://files.example/x.jsonl", st.URL)
}

func TestClient_StartExport_UserErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"bulkOperationRunQuery":{"bulkOperation":null,"userErrors":[{"field":["query"],"message":"ya hay una operación en curso"}]}}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).StartOrderExport(context.Background(), time.Now())
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.Contains(t, err.Error(), "operación en curso")
}

func TestClient_ReintentaErroresDelServidor(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"node":{"id":"op","status":"RUNNING","objectCount":"0"}}}`)
	}))
	defer srv.Close()

	st, err := newTestClient(t, srv).PollExport(context.Background(), "op")
	require.NoError(t, err)
	assert.Equal(t, importer.ExportRunning, st.State)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_ErrorClienteNoSeReintenta(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).PollExport(context.Background(), "op")
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_DownloadOrders_AgrupaLineas(t *testing.T) {
	jsonl := strings.Join([]string{
		`{"id":"gid://shopify/Order/1","name":"#1001","createdAt":"2024-03-01T10:00:00Z","displayFinancialStatus":"PAID","displayFulfillmentStatus":"FULFILLED","closedAt":"2024-03-02T10:00:00Z","totalPriceSet":{"shopMoney":{"amount":"30.00"}}}`,
		`{"sku":"TEE-M","quantity":2,"originalUnitPriceSet":{"shopMoney":{"amount":"10.00"}},"__parentId":"gid://shopify/Order/1"}`,
		`{"sku":"MUG","quantity":1,"originalUnitPriceSet":{"shopMoney":{"amount":"10.00"}},"__parentId":"gid://shopify/Order/1"}`,
		``,
		`{roto`,
		`{"id":"gid://shopify/Order/2","name":"#1002","createdAt":"2024-03-03T10:00:00Z","cancelledAt":"2024-03-03T11:00:00Z","displayFinancialStatus":"VOIDED"}`,
		`{"sku":"X","quantity":1,"__parentId":"gid://shopify/Order/999"}`,
	}, "\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, jsonl)
	}))
	defer srv.Close()

	var got []importer.Record
	err := newTestClient(t, srv).DownloadOrders(context.Background(), srv.URL+"/export.jsonl", func(r importer.Record) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	first := got[0]
	require.NoError(t, first.Err)
	assert.Equal(t, 1, first.Line)
	assert.Equal(t, "1001", first.Order.OrderNumber)
	assert.Equal(t, entity.OrderStatusPaid, first.Order.Status)
	assert.Equal(t, entity.FulfillmentFulfilled, first.Order.FulfillmentStatus)
	require.NotNil(t, first.Order.FulfilledAt)
	require.Len(t, first.Order.LineItems, 2)
	assert.Equal(t, "MUG", first.Order.LineItems[1].SKU)

	assert.Error(t, got[1].Err, "línea JSON rota")
	assert.Equal(t, 5, got[1].Line)

	second := got[2]
	require.NoError(t, second.Err)
	assert.Equal(t, entity.OrderStatusCancelled, second.Order.Status)
	assert.Empty(t, second.Order.LineItems, "línea huérfana ignorada")
}

func TestClient_DownloadOrders_ErrorDelCallbackDetiene(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"a","name":"#1","createdAt":"2024-03-01T10:00:00Z"}`+"\n"+`{"id":"b","name":"#2","createdAt":"2024-03-01T10:00:00Z"}`)
	}))
	defer srv.Close()

	stop := context.Canceled
	calls := 0
	err := newTestClient(t, srv).DownloadOrders(context.Background(), srv.URL, func(importer.Record) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestClient_DownloadOrders_URLVacia(t *testing.T) {
	c := NewClient(config.PlatformConfig{ShopDomain: "tienda.example", APIVersion: "2024-01", RateLimit: 1}, zerolog.Nop())
	err := c.DownloadOrders(context.Background(), "", func(importer.Record) error {
		t.Fatal("no debe llamarse")
		return nil
	})
	assert.NoError(t, err)
}

func TestClient_DownloadOrders_NoEnviaElToken(t *testing.T) {
	var headers http.Header
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		io.WriteString(w, `{"id":"a","name":"#1","createdAt":"2024-03-01T10:00:00Z"}`)
	}))
	defer files.Close()
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat-test", r.Header.Get("X-Shopify-Access-Token"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"node":{"id":"op","status":"COMPLETED","objectCount":"1","url":"`+files.URL+`/x.jsonl"}}}`)
	}))
	defer shop.Close()

	c := newTestClient(t, shop)
	st, err := c.PollExport(context.Background(), "op")
	require.NoError(t, err)

	n := 0
	err = c.DownloadOrders(context.Background(), st.URL, func(importer.Record) error {
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NotNil(t, headers)
	assert.Empty(t, headers.Get("X-Shopify-Access-Token"), "la URL firmada no recibe credenciales")
}
