package inventory

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

const instrumentationName = "github.com/jhoicas/stockledger-api/inventory"

// engineMetrics contadores del motor. Sin MeterProvider configurado son no-op.
type engineMetrics struct {
	movements         metric.Int64Counter
	insufficientStock metric.Int64Counter
	clampAnomalies    metric.Int64Counter
}

func newEngineMetrics() *engineMetrics {
	meter := otel.Meter(instrumentationName)
	m := &engineMetrics{}
	m.movements, _ = meter.Int64Counter("inventory.movements",
		metric.WithDescription("Movimientos registrados por tipo"))
	m.insufficientStock, _ = meter.Int64Counter("inventory.insufficient_stock",
		metric.WithDescription("Reservas rechazadas por stock insuficiente"))
	m.clampAnomalies, _ = meter.Int64Counter("inventory.clamp_anomalies",
		metric.WithDescription("Despachos que intentaron dejar la cantidad en negativo"))
	return m
}

func (m *engineMetrics) movement(ctx context.Context, t entity.MovementType) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(t))))
}

func (m *engineMetrics) insufficient(ctx context.Context) {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.Add(ctx, 1)
}

func (m *engineMetrics) clamp(ctx context.Context) {
	if m == nil || m.clampAnomalies == nil {
		return
	}
	m.clampAnomalies.Add(ctx, 1)
}

func startSpan(ctx context.Context, op string, req StockRequest) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "inventory."+op)
	span.SetAttributes(
		attribute.String("inventory.product_id", req.ProductID),
		attribute.String("inventory.warehouse_id", req.WarehouseID),
		attribute.Int64("inventory.quantity", req.Quantity),
		attribute.String("inventory.reference", string(req.ReferenceType)+":"+req.ReferenceID),
	)
	return ctx, span
}
