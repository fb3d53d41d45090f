package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referenceLine = "Moisture: 612  Mn=0.69 | Tilt: 12.34  Tn=0.27 | Vibration: 308  Vn=0.30 | Risk=0.45 | LEVEL: MEDIUM"

func TestParseLineReference(t *testing.T) {
	t.Parallel()

	r, err := ParseLine(referenceLine)
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, 612, r.MoistureRaw)
	assert.InDelta(t, 0.69, r.Mn, 1e-12)
	assert.InDelta(t, 12.34, r.Tilt, 1e-12)
	assert.InDelta(t, 0.27, r.Tn, 1e-12)
	assert.Equal(t, 308, r.VibrationRaw)
	assert.InDelta(t, 0.30, r.Vn, 1e-12)
	assert.InDelta(t, 0.45, r.Risk, 1e-12)
	assert.Equal(t, RiskMedium, r.Level)
}

func TestParseLineWhitespaceFlexibility(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"minimal spacing", "Moisture:612 Mn=0.69|Tilt:12.34 Tn=0.27|Vibration:308 Vn=0.30|Risk=0.45|LEVEL:MEDIUM"},
		{"generous spacing", "  Moisture :  612   Mn = 0.69  |  Tilt :  12.34   Tn = 0.27  |  Vibration :  308   Vn = 0.30  |  Risk = 0.45  |  LEVEL :  MEDIUM  "},
		{"carriage return", referenceLine + "\r"},
		{"tabs", "Moisture:\t612\tMn=0.69\t|\tTilt:\t12.34\tTn=0.27\t|\tVibration:\t308\tVn=0.30\t|\tRisk=0.45\t|\tLEVEL:\tMEDIUM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, 612, r.MoistureRaw)
			assert.Equal(t, RiskMedium, r.Level)
		})
	}
}

func TestParseLineRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"empty line", ""},
		{"free text", "sensor booting..."},
		{"missing field", "Moisture: 612  Mn=0.69 | Tilt: 12.34  Tn=0.27 | Vibration: 308  Vn=0.30 | LEVEL: MEDIUM"},
		{"wrong field separator", "Moisture: 612  Mn=0.69 ; Tilt: 12.34  Tn=0.27 ; Vibration: 308  Vn=0.30 ; Risk=0.45 ; LEVEL: MEDIUM"},
		{"wrong label separator", "Moisture= 612  Mn=0.69 | Tilt: 12.34  Tn=0.27 | Vibration: 308  Vn=0.30 | Risk=0.45 | LEVEL: MEDIUM"},
		{"non-numeric value", "Moisture: abc  Mn=0.69 | Tilt: 12.34  Tn=0.27 | Vibration: 308  Vn=0.30 | Risk=0.45 | LEVEL: MEDIUM"},
		{"missing level token", "Moisture: 612  Mn=0.69 | Tilt: 12.34  Tn=0.27 | Vibration: 308  Vn=0.30 | Risk=0.45 | LEVEL:"},
		{"trailing junk", referenceLine + " extra"},
		{"truncated", "Moisture: 612  Mn=0."},
		{"swapped field order", "Tilt: 12.34  Tn=0.27 | Moisture: 612  Mn=0.69 | Vibration: 308  Vn=0.30 | Risk=0.45 | LEVEL: MEDIUM"},
		{"lowercase label", "moisture: 612  Mn=0.69 | Tilt: 12.34  Tn=0.27 | Vibration: 308  Vn=0.30 | Risk=0.45 | LEVEL: MEDIUM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := ParseLine(tt.line)
			assert.Error(t, err)
			assert.Nil(t, r)
		})
	}
}

func TestParseLineLevelTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  RiskLevel
	}{
		{"LOW", RiskLow},
		{"MEDIUM", RiskMedium},
		{"HIGH", RiskHigh},
		{"high", RiskHigh},   // normalized to uppercase
		{"Medium", RiskMedium},
		{"CRITICAL", RiskLow}, // unknown defaults to LOW
		{"???", RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			t.Parallel()
			line := "Moisture: 1  Mn=0.1 | Tilt: 1  Tn=0.1 | Vibration: 1  Vn=0.1 | Risk=0.1 | LEVEL: " + tt.token
			r, err := ParseLine(line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Level)
		})
	}
}

// The parser passes out-of-range values through unmodified; clamping and
// consistency checks belong to downstream consumers.
func TestParseLineDoesNotClamp(t *testing.T) {
	t.Parallel()

	line := "Moisture: -5  Mn=1.8 | Tilt: -92.5  Tn=-0.3 | Vibration: 99999  Vn=2.5 | Risk=1.7 | LEVEL: HIGH"
	r, err := ParseLine(line)
	require.NoError(t, err)

	assert.Equal(t, -5, r.MoistureRaw)
	assert.InDelta(t, 1.8, r.Mn, 1e-12)
	assert.InDelta(t, -92.5, r.Tilt, 1e-12)
	assert.InDelta(t, -0.3, r.Tn, 1e-12)
	assert.InDelta(t, 2.5, r.Vn, 1e-12)
	assert.InDelta(t, 1.7, r.Risk, 1e-12)
}

// The reported level and risk score may legitimately disagree with our
// thresholds; the parser must not reconcile them.
func TestParseLineKeepsDivergentLevel(t *testing.T) {
	t.Parallel()

	line := "Moisture: 612  Mn=0.69 | Tilt: 12.34  Tn=0.27 | Vibration: 308  Vn=0.30 | Risk=0.95 | LEVEL: LOW"
	r, err := ParseLine(line)
	require.NoError(t, err)
	assert.InDelta(t, 0.95, r.Risk, 1e-12)
	assert.Equal(t, RiskLow, r.Level)
}

func TestParseLineScientificNotation(t *testing.T) {
	t.Parallel()

	line := "Moisture: 6.12e2  Mn=6.9e-1 | Tilt: 1.234e1  Tn=0.27 | Vibration: 308  Vn=0.30 | Risk=0.45 | LEVEL: MEDIUM"
	r, err := ParseLine(line)
	require.NoError(t, err)
	assert.Equal(t, 612, r.MoistureRaw)
	assert.InDelta(t, 0.69, r.Mn, 1e-12)
}

func TestWireFormatRoundTrip(t *testing.T) {
	t.Parallel()

	original, err := ParseLine(referenceLine)
	require.NoError(t, err)

	reparsed, err := ParseLine(original.WireFormat())
	require.NoError(t, err)

	assert.Equal(t, original.MoistureRaw, reparsed.MoistureRaw)
	assert.Equal(t, original.VibrationRaw, reparsed.VibrationRaw)
	assert.InDelta(t, original.Mn, reparsed.Mn, 1e-9)
	assert.InDelta(t, original.Tilt, reparsed.Tilt, 1e-9)
	assert.InDelta(t, original.Tn, reparsed.Tn, 1e-9)
	assert.InDelta(t, original.Vn, reparsed.Vn, 1e-9)
	assert.InDelta(t, original.Risk, reparsed.Risk, 1e-9)
	assert.Equal(t, original.Level, reparsed.Level)
}
