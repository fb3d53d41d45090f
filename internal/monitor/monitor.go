// Package monitor wires the sensor session, risk scoring, inference and
// the output sinks into one processing pipeline.
package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/terraguard/terraguard-go/internal/aggregator"
	"github.com/terraguard/terraguard-go/internal/conf"
	"github.com/terraguard/terraguard-go/internal/inference"
	"github.com/terraguard/terraguard-go/internal/logging"
	"github.com/terraguard/terraguard-go/internal/mqtt"
	"github.com/terraguard/terraguard-go/internal/observability"
	"github.com/terraguard/terraguard-go/internal/risk"
	"github.com/terraguard/terraguard-go/internal/telemetry"
)

// publishTimeout bounds a single MQTT publish from the pipeline.
const publishTimeout = 5 * time.Second

// serviceLogger falls back to the process default when the logging
// system has not been initialized, as in tests.
func serviceLogger(name string) *slog.Logger {
	if log := logging.ForService(name); log != nil {
		return log
	}
	return slog.Default().With("service", name)
}

// Event is one fully processed reading, enriched with the local linear
// score and, when the model is loaded, the neural prediction.
type Event struct {
	telemetry.Reading
	Time        string                `json:"time"`
	LinearScore float64               `json:"linear_score"`
	LinearLevel telemetry.RiskLevel   `json:"linear_level"`
	Prediction  *inference.Prediction `json:"prediction,omitempty"`
}

// Monitor processes readings coming off a session. All methods are
// called from the session's read loop goroutine except construction.
type Monitor struct {
	settings *conf.Settings
	engine   *inference.Engine
	agg      *aggregator.ReadingAggregator
	mqtt     mqtt.Client
	metrics  *observability.Metrics
	log      *slog.Logger
	sink     func(e *Event)
}

// New builds a pipeline over the given settings. engine may be nil when
// inference is not wanted; mqttClient may be nil when publishing is
// disabled.
func New(settings *conf.Settings, engine *inference.Engine, mqttClient mqtt.Client, m *observability.Metrics) *Monitor {
	return &Monitor{
		settings: settings,
		engine:   engine,
		agg:      aggregator.New(),
		mqtt:     mqttClient,
		metrics:  m,
		log:      serviceLogger("monitor"),
	}
}

// Aggregator exposes the rolling buffers for rendering and tests.
func (m *Monitor) Aggregator() *aggregator.ReadingAggregator {
	return m.agg
}

// SetSink installs a callback invoked with every processed event.
// Realtime mode uses it for console rendering.
func (m *Monitor) SetSink(sink func(e *Event)) {
	m.sink = sink
}

// ProcessReading runs one accepted reading through scoring, inference,
// aggregation and the configured sinks. Inference and publish failures
// are logged and counted; they never stop the pipeline.
func (m *Monitor) ProcessReading(r *telemetry.Reading) *Event {
	m.agg.Add(r)

	event := &Event{
		Reading:     *r,
		Time:        time.Now().Format("15:04:05"),
		LinearScore: risk.Score(r.Mn, r.Tn, r.Vn),
	}
	event.LinearLevel = risk.Classify(event.LinearScore)

	if m.engine != nil && m.engine.IsLoaded() {
		start := time.Now()
		prediction, err := m.engine.Predict(r.Mn, r.Tn, r.Vn)
		if m.metrics != nil {
			m.metrics.Inference.ObservePrediction(err, time.Since(start))
		}
		if err != nil {
			m.log.Warn("inference failed", "error", err)
		} else {
			event.Prediction = prediction
		}
	}

	if m.sink != nil {
		m.sink(event)
	}
	m.publish(event)
	return event
}

// publish sends the event to MQTT when a connected client is attached.
func (m *Monitor) publish(event *Event) {
	if m.mqtt == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		m.log.Error("failed to encode event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	topic := m.settings.Realtime.MQTT.Topic
	if err := m.mqtt.Publish(ctx, topic, string(payload)); err != nil {
		m.log.Warn("mqtt publish failed", "topic", topic, "error", err)
	}
}
