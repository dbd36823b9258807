// Package platform cliente de la API de la plataforma de e-commerce (exportaciones masivas
// de órdenes) y decodificación de sus webhooks.
package platform

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jhoicas/stockledger-api/internal/application/importer"
	"github.com/jhoicas/stockledger-api/internal/domain"
	"github.com/jhoicas/stockledger-api/pkg/config"
	"github.com/jhoicas/stockledger-api/pkg/retry"
)

var _ importer.BulkExporter = (*Client)(nil)

// maxLineBytes tope de una línea JSONL de la exportación.
const maxLineBytes = 4 << 20

// Client cliente GraphQL Admin con throttling y reintentos. download no lleva el token:
// la URL de la exportación ya viene firmada y apunta fuera de la tienda.
type Client struct {
	http     *resty.Client
	download *resty.Client
	limiter  *rate.Limiter
	retrier  *retry.Retrier
	log      zerolog.Logger
}

// NewClient construye el cliente a partir de la configuración de la plataforma.
func NewClient(cfg config.PlatformConfig, log zerolog.Logger) *Client {
	base := cfg.ShopDomain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	base = strings.TrimRight(base, "/") + "/admin/api/" + cfg.APIVersion

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("X-Shopify-Access-Token", cfg.AccessToken).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:     hc,
		download: resty.New().SetTimeout(timeout),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		retrier: retry.New(retry.Config{
			MaxRetries:     3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
			BackoffFactor:  2.0,
			Jitter:         0.2,
		}, isRetryable),
		log: log,
	}
}

// StartOrderExport lanza una operación masiva de órdenes creadas desde since.
func (c *Client) StartOrderExport(ctx context.Context, since time.Time) (string, error) {
	var out struct {
		Data struct {
			BulkOperationRunQuery struct {
				BulkOperation *struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"bulkOperation"`
				UserErrors []struct {
					Field   []string `json:"field"`
					Message string   `json:"message"`
				} `json:"userErrors"`
			} `json:"bulkOperationRunQuery"`
		} `json:"data"`
		Errors []graphQLError `json:"errors"`
	}
	body := map[string]any{
		"query":     startExportMutation,
		"variables": map[string]any{"query": fmt.Sprintf(ordersBulkQuery, since.UTC().Format(time.RFC3339))},
	}
	if err := c.graphQL(ctx, body, &out); err != nil {
		return "", err
	}
	if len(out.Errors) > 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrExternalService, out.Errors[0].Message)
	}
	res := out.Data.BulkOperationRunQuery
	if len(res.UserErrors) > 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrExternalService, res.UserErrors[0].Message)
	}
	if res.BulkOperation == nil || res.BulkOperation.ID == "" {
		return "", fmt.Errorf("%w: exportación sin id", domain.ErrExternalService)
	}
	c.log.Info().Str("export_id", res.BulkOperation.ID).Time("since", since).Msg("exportación masiva iniciada")
	return res.BulkOperation.ID, nil
}

// PollExport consulta el estado de la operación masiva.
func (c *Client) PollExport(ctx context.Context, exportID string) (importer.ExportStatus, error) {
	var out struct {
		Data struct {
			Node *struct {
				ID          string `json:"id"`
				Status      string `json:"status"`
				ErrorCode   string `json:"errorCode"`
				ObjectCount string `json:"objectCount"`
				URL         string `json:"url"`
			} `json:"node"`
		} `json:"data"`
		Errors []graphQLError `json:"errors"`
	}
	body := map[string]any{
		"query":     pollExportQuery,
		"variables": map[string]any{"id": exportID},
	}
	if err := c.graphQL(ctx, body, &out); err != nil {
		return importer.ExportStatus{}, err
	}
	if len(out.Errors) > 0 {
		return importer.ExportStatus{}, fmt.Errorf("%w: %s", domain.ErrExternalService, out.Errors[0].Message)
	}
	node := out.Data.Node
	if node == nil {
		return importer.ExportStatus{}, fmt.Errorf("%w: exportación %s no existe", domain.ErrExternalService, exportID)
	}
	count, _ := strconv.Atoi(node.ObjectCount)
	return importer.ExportStatus{
		ID:          node.ID,
		State:       exportState(node.Status),
		URL:         node.URL,
		ObjectCount: count,
		ErrorCode:   node.ErrorCode,
	}, nil
}

// DownloadOrders lee el JSONL de la exportación; las líneas de cada orden siguen a la orden
// y la referencian con __parentId.
func (c *Client) DownloadOrders(ctx context.Context, url string, fn func(importer.Record) error) error {
	if url == "" {
		// exportación vacía
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.download.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fmt.Errorf("%w: descarga: %v", domain.ErrExternalService, err)
	}
	raw := resp.RawBody()
	defer raw.Close()
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("%w: descarga status %d", domain.ErrExternalService, resp.StatusCode())
	}

	scanner := bufio.NewScanner(raw)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	asm := newBulkAssembler()
	line := 0
	for scanner.Scan() {
		line++
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		if rec, ok := asm.push(line, scanner.Bytes()); ok {
			if err := fn(rec); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: lectura jsonl: %v", domain.ErrExternalService, err)
	}
	if rec, ok := asm.flush(); ok {
		return fn(rec)
	}
	return nil
}

type graphQLError struct {
	Message string `json:"message"`
}

// graphQL envía una consulta con throttling; 429, 5xx y errores de red se reintentan.
func (c *Client) graphQL(ctx context.Context, body any, out any) error {
	_, err := c.retrier.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(out).
			Post("/graphql.json")
		if err != nil {
			return &retryableError{err: err}
		}
		switch {
		case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500:
			return &retryableError{err: fmt.Errorf("status %d", resp.StatusCode())}
		case resp.IsError():
			return fmt.Errorf("%w: status %d: %s", domain.ErrExternalService, resp.StatusCode(), truncate(resp.String(), 200))
		}
		return nil
	})
	if err != nil {
		var re *retryableError
		if errors.As(err, &re) {
			return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
		}
		return err
	}
	return nil
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	if !errors.As(err, &re) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func exportState(status string) string {
	switch strings.ToUpper(status) {
	case "COMPLETED":
		return importer.ExportCompleted
	case "FAILED", "CANCELED", "CANCELLED", "EXPIRED":
		return importer.ExportFailed
	default:
		return importer.ExportRunning
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

const startExportMutation = `mutation bulk($query: String!) {
  bulkOperationRunQuery(query: $query) {
    bulkOperation { id status }
    userErrors { field message }
  }
}`

const pollExportQuery = `query poll($id: ID!) {
  node(id: $id) {
    ... on BulkOperation { id status errorCode objectCount url }
  }
}`

const ordersBulkQuery = `{
  orders(query: "created_at:>='%s'") {
    edges { node {
      id name createdAt processedAt cancelledAt closedAt
      displayFinancialStatus displayFulfillmentStatus currencyCode
      subtotalPriceSet { shopMoney { amount } }
      totalTaxSet { shopMoney { amount } }
      totalShippingPriceSet { shopMoney { amount } }
      totalPriceSet { shopMoney { amount } }
      customer { displayName email }
      lineItems { edges { node { sku quantity originalUnitPriceSet { shopMoney { amount } } } } }
    } }
  }
}`
