package inference

import "math"

// Finite-difference attribution constants. The forward-difference step and
// both fallback thresholds are part of the scoring contract and must not be
// tuned independently of the sensing node's display logic.
const (
	attributionEpsilon    = 1e-4 // forward-difference step
	contributionThreshold = 1e-6 // minimum |Σ input·gradient| for the primary branch
	gradientThreshold     = 1e-8 // minimum Σ|gradient| for the sensitivity fallback
)

// Attribute estimates how much each input feature drives the model output at
// the given point.
//
// The gradient is estimated per feature with a forward difference:
// d_i = (f(x+ε·e_i) − f(x)) / ε. The primary attribution is the normalized
// input·gradient product, a straight-line local approximation of each
// feature's total contribution, clamped per feature to [0,1]. Under
// mixed-sign products the clamped values need not sum to 1; that asymmetry
// is part of the contract. When the product sum is too small to normalize,
// attribution falls back to normalized absolute gradient magnitudes (pure
// local sensitivity), and when even the total gradient vanishes, all
// contributions are exactly zero.
func Attribute(f func([]float64) float64, input []float64) []float64 {
	n := len(input)
	base := f(input)

	gradients := make([]float64, n)
	probe := make([]float64, n)
	for i := range input {
		copy(probe, input)
		probe[i] += attributionEpsilon
		gradients[i] = (f(probe) - base) / attributionEpsilon
	}

	products := make([]float64, n)
	productSum := 0.0
	for i := range input {
		products[i] = input[i] * gradients[i]
		productSum += products[i]
	}

	contributions := make([]float64, n)
	if math.Abs(productSum) > contributionThreshold {
		for i := range products {
			c := products[i] / productSum
			if c < 0 {
				c = 0
			} else if c > 1 {
				c = 1
			}
			contributions[i] = c
		}
		return contributions
	}

	gradientSum := 0.0
	for i := range gradients {
		gradientSum += math.Abs(gradients[i])
	}
	if gradientSum < gradientThreshold {
		// Flat region, no signal to attribute.
		return contributions
	}
	for i := range gradients {
		contributions[i] = math.Abs(gradients[i]) / gradientSum
	}
	return contributions
}
