// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics installs the global meter provider backed by a Prometheus
// exporter. It returns the /metrics handler and a shutdown func.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// Instruments are the counters recorded by dispatch and cleanup.
type Instruments struct {
	DispatchAttempts metric.Int64Counter
	DispatchFailures metric.Int64Counter
	OrphanedBlobs    metric.Int64Counter
}

// NewInstruments registers the castplane counters on the global meter
// provider. Call it after InitMetrics so the counters are exported.
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter(InstrumentationName)

	attempts, err := meter.Int64Counter("castplane.dispatch.attempts",
		metric.WithDescription("Event bus send attempts, including retries"))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch attempts counter: %w", err)
	}

	failures, err := meter.Int64Counter("castplane.dispatch.failures",
		metric.WithDescription("Events that could not be delivered after all retries"))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch failures counter: %w", err)
	}

	orphaned, err := meter.Int64Counter("castplane.blob.orphaned",
		metric.WithDescription("Stored files left behind after a project was deleted"))
	if err != nil {
		return nil, fmt.Errorf("failed to create orphaned blob counter: %w", err)
	}

	return &Instruments{
		DispatchAttempts: attempts,
		DispatchFailures: failures,
		OrphanedBlobs:    orphaned,
	}, nil
}
