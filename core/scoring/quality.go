package scoring

import (
	"math"

	"github.com/perihelion-labs/ldsi/core/semgraph"
)

// Structural quality parameters. Healthy prose sits near the density
// target; both repetition loops and word salad drift away from it and
// push the small-world index up, which is the horseshoe this scorer
// has to fold apart.
const (
	densityTarget = 0.35
	densityWidth  = 0.15

	smallWorldKnee  = 0.8
	smallWorldSlope = 2.0
)

// StructuralQuality maps a graph's metrics to an absolute score in [0, 1].
// Graphs below the node floor score exactly 0.
func StructuralQuality(m semgraph.Metrics) float64 {
	if m.Nodes < 3 {
		return 0
	}
	return densityScore(m.Density) * smallWorldPenalty(m.SmallWorld)
}

// densityScore is a Gaussian bump centered on the target density.
func densityScore(density float64) float64 {
	z := (density - densityTarget) / densityWidth
	return math.Exp(-z * z)
}

// smallWorldPenalty passes indices up to the knee untouched, then decays
// linearly, hitting zero at knee + 1/slope.
func smallWorldPenalty(swi float64) float64 {
	if swi <= smallWorldKnee {
		return 1.0
	}
	penalty := 1.0 - (swi-smallWorldKnee)*smallWorldSlope
	if penalty < 0 {
		return 0
	}
	return penalty
}
