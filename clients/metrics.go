package clients

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics receives the client's measurement points. Pass NoopMetrics when
// telemetry is not wired up.
type Metrics interface {
	RecordDispersal(ctx context.Context, method PaymentMethod, blobSize int)
	RecordRollback(ctx context.Context)
	RecordError(ctx context.Context, origin string)
}

type noopMetrics struct{}

func (noopMetrics) RecordDispersal(context.Context, PaymentMethod, int) {}
func (noopMetrics) RecordRollback(context.Context)                      {}
func (noopMetrics) RecordError(context.Context, string)                 {}

func NoopMetrics() Metrics { return noopMetrics{} }

type metricsHandler struct {
	dispersals    metric.Int64Counter
	rollbacks     metric.Int64Counter
	errors        metric.Int64Counter
	blobSizeBytes metric.Int64Histogram
}

var _ Metrics = (*metricsHandler)(nil)

// NewMetrics builds the otel instruments of the dispersal client.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	h := &metricsHandler{}
	var err error

	if h.dispersals, err = meter.Int64Counter("eigenda_client_dispersals"); err != nil {
		return nil, err
	}
	if h.rollbacks, err = meter.Int64Counter("eigenda_client_payment_rollbacks"); err != nil {
		return nil, err
	}
	if h.errors, err = meter.Int64Counter("eigenda_client_errors"); err != nil {
		return nil, err
	}
	if h.blobSizeBytes, err = meter.Int64Histogram("eigenda_client_blob_size_bytes"); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *metricsHandler) RecordDispersal(ctx context.Context, method PaymentMethod, blobSize int) {
	h.dispersals.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", method.String())))
	h.blobSizeBytes.Record(ctx, int64(blobSize))
}

func (h *metricsHandler) RecordRollback(ctx context.Context) {
	h.rollbacks.Add(ctx, 1)
}

func (h *metricsHandler) RecordError(ctx context.Context, origin string) {
	h.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", origin)))
}
