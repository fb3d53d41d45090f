package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics contains Prometheus metrics for the connection lifecycle.
type SessionMetrics struct {
	ConnectionState  prometheus.Gauge
	TransitionsTotal *prometheus.CounterVec
	ReadErrorsTotal  prometheus.Counter
}

// NewSessionMetrics creates and registers session metrics on the given
// registry.
func NewSessionMetrics(registry *prometheus.Registry) (*SessionMetrics, error) {
	m := &SessionMetrics{
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "terraguard_session_connection_state",
			Help: "Current connection state (0=disconnected, 1=scanning, 2=connecting, 3=connected, 4=error).",
		}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "terraguard_session_transitions_total",
			Help: "Total number of connection state transitions, by target state.",
		}, []string{"state"}),
		ReadErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "terraguard_session_read_errors_total",
			Help: "Total number of transport read failures that ended a read loop.",
		}),
	}

	collectors := []prometheus.Collector{
		m.ConnectionState, m.TransitionsTotal, m.ReadErrorsTotal,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register session metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveTransition records a transition into the given state.
func (m *SessionMetrics) ObserveTransition(state string, value int) {
	if m == nil {
		return
	}
	m.ConnectionState.Set(float64(value))
	m.TransitionsTotal.WithLabelValues(state).Inc()
}

// ObserveReadError counts one transport read failure.
func (m *SessionMetrics) ObserveReadError() {
	if m == nil {
		return
	}
	m.ReadErrorsTotal.Inc()
}
