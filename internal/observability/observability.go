// Package observability provides Prometheus metrics and the optional
// metrics endpoint for the TerraGuard monitor.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terraguard/terraguard-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Telemetry *metrics.TelemetryMetrics
	Inference *metrics.InferenceMetrics
	Session   *metrics.SessionMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	telemetryMetrics, err := metrics.NewTelemetryMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry metrics: %w", err)
	}

	inferenceMetrics, err := metrics.NewInferenceMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference metrics: %w", err)
	}

	sessionMetrics, err := metrics.NewSessionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create session metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Telemetry: telemetryMetrics,
		Inference: inferenceMetrics,
		Session:   sessionMetrics,
	}, nil
}

// RegisterHandlers registers the metrics endpoint with the provided mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}
