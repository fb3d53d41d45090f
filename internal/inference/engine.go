package inference

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/terraguard/terraguard-go/internal/errors"
	"github.com/terraguard/terraguard-go/internal/httpclient"
	"github.com/terraguard/terraguard-go/internal/logging"
	"github.com/terraguard/terraguard-go/internal/risk"
	"github.com/terraguard/terraguard-go/internal/telemetry"
)

// ErrModelNotLoaded is returned when Predict is called before a successful
// Load. Callers are expected to guard with IsLoaded.
var ErrModelNotLoaded = errors.NewStd("inference: model not loaded")

// Contributions holds the per-feature attribution of a prediction.
type Contributions struct {
	Moisture  float64 `json:"moisture"`
	Tilt      float64 `json:"tilt"`
	Vibration float64 `json:"vibration"`
}

// Prediction is the complete result of one inference call. Constructed fresh
// per call and never mutated.
type Prediction struct {
	RiskScore     float64             `json:"risk_score"`
	RiskClass     telemetry.RiskLevel `json:"risk_class"`
	Confidence    float64             `json:"confidence"`
	Contributions Contributions       `json:"contributions"`
	LinearScore   float64             `json:"linear_score"` // reference formula on the same inputs
	Delta         float64             `json:"delta"`        // model score minus linear score
	ModelVersion  string              `json:"model_version"`
	Training      json.RawMessage     `json:"training,omitempty"` // descriptor metadata passthrough
}

// Engine owns the single-slot model descriptor cache and runs the forward
// pass. The descriptor is fetched at most once: concurrent Load calls are
// coalesced and later calls are no-ops once a load has succeeded. A failed
// load leaves the slot empty, so Load may be called again.
type Engine struct {
	source string
	client *httpclient.Client
	log    *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	model *ModelDescriptor
}

// NewEngine creates an inference engine reading its descriptor from the
// given source (filesystem path or http(s) URL). No fetching happens until
// Load is called.
func NewEngine(source string) *Engine {
	log := logging.ForService("inference")
	if log == nil {
		log = slog.Default().With("service", "inference")
	}
	return &Engine{
		source: source,
		client: httpclient.New(nil),
		log:    log,
	}
}

// Load fetches, parses, and caches the model descriptor. Safe for concurrent
// use; all concurrent callers observe the outcome of a single underlying
// fetch. Once a load has succeeded, Load returns nil immediately.
func (e *Engine) Load(ctx context.Context) error {
	if e.IsLoaded() {
		return nil
	}

	_, err, _ := e.group.Do("load", func() (any, error) {
		// A racing caller may have completed the load while we queued.
		e.mu.RLock()
		loaded := e.model != nil
		e.mu.RUnlock()
		if loaded {
			return nil, nil
		}

		start := time.Now()
		data, err := fetchDescriptor(ctx, e.client, e.source)
		if err != nil {
			return nil, err
		}

		descriptor, err := ParseDescriptor(data)
		if err != nil {
			return nil, err
		}

		e.mu.Lock()
		e.model = descriptor
		e.mu.Unlock()

		e.log.Info("model descriptor loaded",
			"source", e.source,
			"model_version", descriptor.ModelVersion,
			"hidden_sizes", descriptor.Architecture.HiddenSizes,
			"duration_ms", time.Since(start).Milliseconds())
		return nil, nil
	})
	return err
}

// IsLoaded reports whether a descriptor is loaded and the engine is ready
// for Predict calls.
func (e *Engine) IsLoaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model != nil
}

// Descriptor returns the loaded model descriptor, or nil before a
// successful Load. The returned descriptor must be treated as read-only.
func (e *Engine) Descriptor() *ModelDescriptor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

// Predict runs the forward pass on the normalized sensor values and returns
// the scored, classified, and attributed result. Calling Predict before a
// successful Load is a caller contract violation and returns
// ErrModelNotLoaded.
func (e *Engine) Predict(mn, tn, vn float64) (*Prediction, error) {
	e.mu.RLock()
	model := e.model
	e.mu.RUnlock()

	if model == nil {
		return nil, errors.New(ErrModelNotLoaded).
			Component("inference").
			Category(errors.CategoryState).
			Build()
	}

	input := []float64{mn, tn, vn}
	score := model.Forward(input)
	contrib := Attribute(model.Forward, input)
	linearScore := risk.Score(mn, tn, vn)

	return &Prediction{
		RiskScore:  score,
		RiskClass:  classify(score, &model.Thresholds),
		Confidence: risk.Confidence(score),
		Contributions: Contributions{
			Moisture:  contrib[0],
			Tilt:      contrib[1],
			Vibration: contrib[2],
		},
		LinearScore:  linearScore,
		Delta:        score - linearScore,
		ModelVersion: model.ModelVersion,
		Training:     model.Training,
	}, nil
}

// classify maps the model score to a class using the descriptor's own
// thresholds. Lower bounds are closed, matching the linear scorer.
func classify(score float64, t *Thresholds) telemetry.RiskLevel {
	switch {
	case score >= t.MediumHigh:
		return telemetry.RiskHigh
	case score >= t.LowMedium:
		return telemetry.RiskMedium
	default:
		return telemetry.RiskLow
	}
}
