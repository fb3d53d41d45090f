package monitor

import (
	"fmt"
	"strings"

	"github.com/terraguard/terraguard-go/internal/telemetry"
)

// levelMarker maps a risk level to the glyph shown in the activity feed.
func levelMarker(level telemetry.RiskLevel) string {
	switch level {
	case telemetry.RiskHigh:
		return "⛔"
	case telemetry.RiskMedium:
		return "⚠️"
	default:
		return "✅"
	}
}

// FormatEvent renders one processed reading as a single console line.
func FormatEvent(e *Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s [%s] moisture=%.2f tilt=%.2f vibration=%.2f risk=%.2f",
		e.Time, levelMarker(e.Level), e.Level, e.Mn, e.Tn, e.Vn, e.Risk)

	if p := e.Prediction; p != nil {
		fmt.Fprintf(&b, " | model=%.2f (%s, confidence %.0f%%)",
			p.RiskScore, p.RiskClass, p.Confidence*100)
		fmt.Fprintf(&b, " drivers: moisture %.0f%% tilt %.0f%% vibration %.0f%%",
			p.Contributions.Moisture*100, p.Contributions.Tilt*100, p.Contributions.Vibration*100)
	}

	return b.String()
}

// FormatSummary renders the end-of-session totals printed by file mode.
func FormatSummary(processed, parseErrors int, latest *telemetry.ActivityEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Processed %d readings (%d malformed lines discarded)\n", processed, parseErrors)
	if latest != nil {
		fmt.Fprintf(&b, "Last reading: %s %s risk=%.2f\n",
			levelMarker(latest.Level), latest.Level, latest.Risk)
	}

	return b.String()
}
