// Package inference loads the exported MLP model descriptor and runs its
// forward pass, per-feature attribution, and boundary-distance confidence for
// landslide risk scoring.
package inference

import (
	"encoding/json"
	"math"

	"github.com/terraguard/terraguard-go/internal/errors"
)

// Activation function names accepted in a model descriptor.
const (
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
)

// inputFeatures is the fixed width of the input vector: normalized
// moisture, tilt and vibration. A descriptor declaring any other
// input_dim cannot be driven by the engine.
const inputFeatures = 3

// Architecture describes the declared shape of the network.
type Architecture struct {
	InputDim    int      `json:"input_dim"`
	HiddenSizes []int    `json:"hidden_sizes"`
	OutputDim   int      `json:"output_dim"`
	Activations []string `json:"activations"`
}

// Layer holds one dense layer's parameters. Weights are stored fan_in rows by
// fan_out columns, matching the training script's export.
type Layer struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

// Thresholds are the class boundaries the model was trained against.
type Thresholds struct {
	LowMedium  float64 `json:"low_medium"`
	MediumHigh float64 `json:"medium_high"`
}

// ModelDescriptor is the exported neural network artifact: weights,
// architecture, thresholds, and opaque training metadata. Loaded at most once
// per process and treated as read-only afterwards.
type ModelDescriptor struct {
	ModelVersion string          `json:"modelVersion"`
	Architecture Architecture    `json:"architecture"`
	Training     json.RawMessage `json:"training,omitempty"` // opaque passthrough
	Thresholds   Thresholds      `json:"thresholds"`
	FeatureNames []string        `json:"feature_names"`
	DatasetInfo  json.RawMessage `json:"dataset_info,omitempty"` // opaque passthrough
	Layers       []Layer         `json:"layers"`
}

// ParseDescriptor unmarshals and validates a model descriptor document.
func ParseDescriptor(data []byte) (*ModelDescriptor, error) {
	var d ModelDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Newf("model descriptor: invalid JSON: %w", err).
			Component("inference").
			Category(errors.CategoryModelLoad).
			Build()
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks that the declared architecture and the layer matrices
// agree with each other.
func (d *ModelDescriptor) Validate() error {
	fail := func(format string, args ...any) error {
		return errors.Newf("model descriptor: "+format, args...).
			Component("inference").
			Category(errors.CategoryValidation).
			ModelContext("", d.ModelVersion).
			Build()
	}

	arch := &d.Architecture
	if arch.InputDim != inputFeatures {
		return fail("input_dim must be %d, got %d", inputFeatures, arch.InputDim)
	}
	if arch.OutputDim != 1 {
		return fail("output_dim must be 1, got %d", arch.OutputDim)
	}

	// Declared sizes, input through output.
	sizes := make([]int, 0, len(arch.HiddenSizes)+2)
	sizes = append(sizes, arch.InputDim)
	sizes = append(sizes, arch.HiddenSizes...)
	sizes = append(sizes, arch.OutputDim)

	if len(d.Layers) != len(sizes)-1 {
		return fail("expected %d layers for hidden sizes %v, got %d", len(sizes)-1, arch.HiddenSizes, len(d.Layers))
	}

	if len(arch.Activations) != 0 && len(arch.Activations) != len(d.Layers) {
		return fail("expected %d activations, got %d", len(d.Layers), len(arch.Activations))
	}
	for i, act := range arch.Activations {
		if act != ActivationReLU && act != ActivationSigmoid {
			return fail("layer %d: unsupported activation %q", i, act)
		}
	}

	for i := range d.Layers {
		layer := &d.Layers[i]
		fanIn, fanOut := sizes[i], sizes[i+1]
		if len(layer.Weights) != fanIn {
			return fail("layer %d: expected %d weight rows, got %d", i, fanIn, len(layer.Weights))
		}
		for r, row := range layer.Weights {
			if len(row) != fanOut {
				return fail("layer %d: weight row %d has %d columns, expected %d", i, r, len(row), fanOut)
			}
		}
		if len(layer.Biases) != fanOut {
			return fail("layer %d: expected %d biases, got %d", i, fanOut, len(layer.Biases))
		}
	}

	if len(d.FeatureNames) != 0 && len(d.FeatureNames) != arch.InputDim {
		return fail("expected %d feature names, got %d", arch.InputDim, len(d.FeatureNames))
	}

	return nil
}

// activation returns the layer's activation name, defaulting to ReLU for
// hidden layers and sigmoid for the output layer when the descriptor omits
// the activations list.
func (d *ModelDescriptor) activation(layer int) string {
	if layer < len(d.Architecture.Activations) {
		return d.Architecture.Activations[layer]
	}
	if layer == len(d.Layers)-1 {
		return ActivationSigmoid
	}
	return ActivationReLU
}

// Forward runs the network on the given input vector. For each layer in
// declared order it computes the affine transform z = W^T·x + b and applies
// the layer's activation; the output is the single scalar from the last
// layer. With a sigmoid output layer the result is always in (0,1).
func (d *ModelDescriptor) Forward(input []float64) float64 {
	x := input
	for li := range d.Layers {
		layer := &d.Layers[li]
		fanOut := len(layer.Biases)

		z := make([]float64, fanOut)
		copy(z, layer.Biases)
		for i, xi := range x {
			if xi == 0 {
				continue
			}
			row := layer.Weights[i]
			for j := range row {
				z[j] += xi * row[j]
			}
		}

		switch d.activation(li) {
		case ActivationSigmoid:
			for j := range z {
				z[j] = sigmoid(z[j])
			}
		default: // relu
			for j := range z {
				if z[j] < 0 {
					z[j] = 0
				}
			}
		}
		x = z
	}
	return x[0]
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
