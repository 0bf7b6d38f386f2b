// Package observability provides OpenTelemetry metrics instrumentation.
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

// InitMetrics initializes the OpenTelemetry metrics provider with a
// Prometheus exporter. It returns the HTTP handler for the /metrics endpoint
// and a shutdown function to call on application exit.
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

// EngineMetrics holds the counters the batch engine reports.
// A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	jobsSucceeded    metric.Int64Counter
	jobsFailed       metric.Int64Counter
	windowsClosed    metric.Int64Counter
	cooldownsApplied metric.Int64Counter
}

// NewEngineMetrics registers the engine counters on the global meter.
func NewEngineMetrics() (*EngineMetrics, error) {
	meter := otel.Meter("autometa/engine")

	jobsSucceeded, err := meter.Int64Counter("autometa_jobs_succeeded_total",
		metric.WithDescription("Jobs that reached a successful terminal state"))
	if err != nil {
		return nil, err
	}
	jobsFailed, err := meter.Int64Counter("autometa_jobs_failed_total",
		metric.WithDescription("Jobs that reached a failed terminal state"))
	if err != nil {
		return nil, err
	}
	windowsClosed, err := meter.Int64Counter("autometa_windows_closed_total",
		metric.WithDescription("Batch windows driven to completion"))
	if err != nil {
		return nil, err
	}
	cooldownsApplied, err := meter.Int64Counter("autometa_cooldowns_applied_total",
		metric.WithDescription("Inter-window cooldown sleeps applied"))
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		jobsSucceeded:    jobsSucceeded,
		jobsFailed:       jobsFailed,
		windowsClosed:    windowsClosed,
		cooldownsApplied: cooldownsApplied,
	}, nil
}

// JobSucceeded increments the success counter.
func (m *EngineMetrics) JobSucceeded(ctx context.Context) {
	if m == nil {
		return
	}
	m.jobsSucceeded.Add(ctx, 1)
}

// JobFailed increments the terminal-failure counter.
func (m *EngineMetrics) JobFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.jobsFailed.Add(ctx, 1)
}

// WindowClosed increments the window counter.
func (m *EngineMetrics) WindowClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.windowsClosed.Add(ctx, 1)
}

// CooldownApplied increments the cooldown counter.
func (m *EngineMetrics) CooldownApplied(ctx context.Context) {
	if m == nil {
		return
	}
	m.cooldownsApplied.Add(ctx, 1)
}
