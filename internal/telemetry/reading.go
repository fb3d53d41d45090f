// Package telemetry implements the TerraGuard sensor wire format: line
// reassembly of the chunked serial stream and strict-grammar parsing of
// individual telemetry records.
package telemetry

import "fmt"

// RiskLevel is the three-class landslide risk classification.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ParseRiskLevel maps a level token to a RiskLevel. Tokens are matched after
// uppercase normalization; anything unrecognized maps to RiskLow, matching
// the sensing node's own fallback.
func ParseRiskLevel(token string) RiskLevel {
	switch RiskLevel(token) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(token)
	default:
		return RiskLow
	}
}

// Reading is one parsed telemetry sample. Values are carried exactly as the
// sensing node reported them: normalized fields are not clamped to [0,1] and
// the reported level is not checked against the reported risk score, since
// the node may classify with different logic than ours.
type Reading struct {
	MoistureRaw  int       `json:"moisture_raw"`  // raw moisture ADC count
	Tilt         float64   `json:"tilt"`          // tilt in degrees, signed
	VibrationRaw int       `json:"vibration_raw"` // raw vibration ADC count
	Mn           float64   `json:"mn"`            // normalized moisture
	Tn           float64   `json:"tn"`            // normalized tilt
	Vn           float64   `json:"vn"`            // normalized vibration
	Risk         float64   `json:"risk"`          // composite risk score
	Level        RiskLevel `json:"level"`         // reported risk class
}

// WireFormat renders the reading back into the one-line record format the
// sensing node emits.
func (r *Reading) WireFormat() string {
	return fmt.Sprintf("Moisture: %d  Mn=%g | Tilt: %g  Tn=%g | Vibration: %d  Vn=%g | Risk=%g | LEVEL: %s",
		r.MoistureRaw, r.Mn, r.Tilt, r.Tn, r.VibrationRaw, r.Vn, r.Risk, r.Level)
}

// ChartPoint is the normalized-sensor view of a reading used for trend display.
type ChartPoint struct {
	Time string  `json:"time"` // arrival time label
	Mn   float64 `json:"mn"`
	Tn   float64 `json:"tn"`
	Vn   float64 `json:"vn"`
}

// ActivityEntry is a reading with its arrival time label.
type ActivityEntry struct {
	Reading
	Time string `json:"time"`
}
