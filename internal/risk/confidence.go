package risk

import "math"

// Confidence estimates how far a score sits from its nearest class boundary,
// normalized to [0,1].
//
// Within MEDIUM the metric peaks at 1.0 at the band midpoint (0.45) and
// falls to 0 at either boundary. For LOW and HIGH it is twice the distance
// to the nearer of the class's two edges; for LOW that caps the metric at
// 0.15 (reached only at score 0), an asymmetry inherited from the band
// widths and kept as-is.
func Confidence(score float64) float64 {
	const (
		lo  = ThresholdLowMedium
		hi  = ThresholdMediumHigh
		mid = (lo + hi) / 2
	)

	var c float64
	switch {
	case score < lo:
		c = 2 * math.Min(score, lo-score)
	case score < hi:
		c = 1 - math.Abs(score-mid)/((hi-lo)/2)
	default:
		c = 2 * math.Min(1-score, score-hi)
	}

	return clamp01(c)
}
