package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InferenceMetrics contains Prometheus metrics for model loading and the
// forward pass.
type InferenceMetrics struct {
	PredictionsTotal   *prometheus.CounterVec
	PredictionDuration prometheus.Histogram
	ModelLoadTotal     *prometheus.CounterVec
	ModelLoadedGauge   prometheus.Gauge
}

// NewInferenceMetrics creates and registers inference metrics on the given
// registry.
func NewInferenceMetrics(registry *prometheus.Registry) (*InferenceMetrics, error) {
	m := &InferenceMetrics{
		PredictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "terraguard_inference_predictions_total",
			Help: "Total number of prediction requests.",
		}, []string{"status"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "terraguard_inference_prediction_duration_seconds",
			Help:    "Time taken to run one forward pass with attribution.",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
		}),
		ModelLoadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "terraguard_inference_model_load_total",
			Help: "Total number of model descriptor load attempts.",
		}, []string{"status"}),
		ModelLoadedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "terraguard_inference_model_loaded",
			Help: "Whether a model descriptor is currently loaded (1) or not (0).",
		}),
	}

	collectors := []prometheus.Collector{
		m.PredictionsTotal, m.PredictionDuration, m.ModelLoadTotal, m.ModelLoadedGauge,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register inference metrics: %w", err)
		}
	}
	return m, nil
}

// ObservePrediction records the outcome and duration of one prediction.
func (m *InferenceMetrics) ObservePrediction(err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.PredictionsTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.PredictionDuration.Observe(duration.Seconds())
	}
}

// ObserveModelLoad records the outcome of one load attempt.
func (m *InferenceMetrics) ObserveModelLoad(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ModelLoadTotal.WithLabelValues("error").Inc()
		return
	}
	m.ModelLoadTotal.WithLabelValues("success").Inc()
	m.ModelLoadedGauge.Set(1)
}
