// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	metricapi "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// The shutdown function should be called on application exit for graceful cleanup.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// RegisterPendingGroupsGauge exposes the number of groups awaiting review as
// an observable gauge. The count callback is invoked on every metrics scrape.
func RegisterPendingGroupsGauge(count func(context.Context) (int64, error)) error {
	meter := otel.Meter("schemaplane")
	gauge, err := meter.Int64ObservableGauge("schemaplane.groups.pending")
	if err != nil {
		return fmt.Errorf("failed to create pending groups gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metricapi.Observer) error {
		n, err := count(ctx)
		if err != nil {
			return err
		}
		o.ObserveInt64(gauge, n)
		return nil
	}, gauge)
	if err != nil {
		return fmt.Errorf("failed to register pending groups callback: %w", err)
	}
	return nil
}
