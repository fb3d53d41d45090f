// Package risk implements the reference linear risk formula and the
// boundary-distance confidence metric shared by both scoring paths.
package risk

import "github.com/terraguard/terraguard-go/internal/telemetry"

// Weights of the linear reference formula. These mirror the sensing node
// firmware so the local score reproduces the node's own Risk field.
const (
	weightMoisture  = 0.40
	weightTilt      = 0.35
	weightVibration = 0.25
)

// Classification thresholds shared by the linear scorer, the model
// descriptor's defaults, and the confidence metric.
const (
	ThresholdLowMedium  = 0.30
	ThresholdMediumHigh = 0.60
)

// Score computes the composite linear risk score for normalized sensor
// values, clamped to [0,1]. Pure and deterministic.
func Score(mn, tn, vn float64) float64 {
	return clamp01(weightMoisture*mn + weightTilt*tn + weightVibration*vn)
}

// Classify maps a risk score to its class. Lower bounds are closed: a score
// of exactly 0.30 is MEDIUM and exactly 0.60 is HIGH.
func Classify(score float64) telemetry.RiskLevel {
	switch {
	case score >= ThresholdMediumHigh:
		return telemetry.RiskHigh
	case score >= ThresholdLowMedium:
		return telemetry.RiskMedium
	default:
		return telemetry.RiskLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
