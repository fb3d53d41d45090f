// Package metrics provides custom Prometheus metrics for the TerraGuard
// pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// TelemetryMetrics contains Prometheus metrics for the sensor stream:
// line assembly and record parsing.
type TelemetryMetrics struct {
	LinesTotal       prometheus.Counter
	ReadingsTotal    prometheus.Counter
	ParseErrorsTotal prometheus.Counter
	LastRiskScore    prometheus.Gauge
}

// NewTelemetryMetrics creates and registers telemetry metrics on the given
// registry.
func NewTelemetryMetrics(registry *prometheus.Registry) (*TelemetryMetrics, error) {
	m := &TelemetryMetrics{
		LinesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "terraguard_telemetry_lines_total",
			Help: "Total number of complete lines assembled from the sensor stream.",
		}),
		ReadingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "terraguard_telemetry_readings_total",
			Help: "Total number of lines successfully parsed into readings.",
		}),
		ParseErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "terraguard_telemetry_parse_errors_total",
			Help: "Total number of lines that failed record grammar parsing.",
		}),
		LastRiskScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "terraguard_telemetry_last_risk_score",
			Help: "Risk score reported by the most recent accepted reading.",
		}),
	}

	collectors := []prometheus.Collector{
		m.LinesTotal, m.ReadingsTotal, m.ParseErrorsTotal, m.LastRiskScore,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register telemetry metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveLine counts one assembled line.
func (m *TelemetryMetrics) ObserveLine() {
	if m == nil {
		return
	}
	m.LinesTotal.Inc()
}

// ObserveReading counts one accepted reading and records its risk score.
func (m *TelemetryMetrics) ObserveReading(risk float64) {
	if m == nil {
		return
	}
	m.ReadingsTotal.Inc()
	m.LastRiskScore.Set(risk)
}

// ObserveParseError counts one rejected line.
func (m *TelemetryMetrics) ObserveParseError() {
	if m == nil {
		return
	}
	m.ParseErrorsTotal.Inc()
}
