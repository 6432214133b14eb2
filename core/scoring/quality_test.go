package scoring_test

import (
	"math"
	"testing"

	"github.com/perihelion-labs/ldsi/core/scoring"
	"github.com/perihelion-labs/ldsi/core/semgraph"
	"github.com/stretchr/testify/assert"
)

func TestStructuralQualityBelowNodeFloor(t *testing.T) {
	for _, nodes := range []int{0, 1, 2} {
		m := semgraph.Metrics{Nodes: nodes, Density: 0.35, SmallWorld: 0.5}
		assert.Equal(t, 0.0, scoring.StructuralQuality(m), "nodes=%d", nodes)
	}
}

func TestStructuralQualityIdealShape(t *testing.T) {
	m := semgraph.Metrics{Nodes: 40, Density: 0.35, SmallWorld: 0.5}
	assert.InDelta(t, 1.0, scoring.StructuralQuality(m), 1e-12)
}

func TestStructuralQualitySmallWorldPenalty(t *testing.T) {
	// Penalty kicks in above 0.8 with slope 2.
	base := semgraph.Metrics{Nodes: 40, Density: 0.35}

	m := base
	m.SmallWorld = 0.8
	assert.InDelta(t, 1.0, scoring.StructuralQuality(m), 1e-12)

	m.SmallWorld = 0.95
	assert.InDelta(t, 0.7, scoring.StructuralQuality(m), 1e-12)

	m.SmallWorld = 1.3
	assert.Equal(t, 0.0, scoring.StructuralQuality(m))

	m.SmallWorld = 2.5
	assert.Equal(t, 0.0, scoring.StructuralQuality(m))
}

func TestStructuralQualityDensityFalloff(t *testing.T) {
	swi := 0.5

	at := func(density float64) float64 {
		return scoring.StructuralQuality(semgraph.Metrics{
			Nodes: 40, Density: density, SmallWorld: swi,
		})
	}

	// One width away from the target on either side.
	want := math.Exp(-1)
	assert.InDelta(t, want, at(0.20), 1e-12)
	assert.InDelta(t, want, at(0.50), 1e-12)

	// Falls off monotonically away from the target.
	assert.Greater(t, at(0.35), at(0.45))
	assert.Greater(t, at(0.45), (at(0.60)))
	assert.Greater(t, at(0.35), at(0.25))
	assert.Greater(t, at(0.25), at(0.10))
}

func TestStructuralQualityCliqueShape(t *testing.T) {
	// Short all-distinct token runs produce a directed density of 0.5 and a
	// fully clustered undirected view.
	m := semgraph.Metrics{
		Nodes:         5,
		Density:       0.5,
		LCCRatio:      1.0,
		Clustering:    1.0,
		AvgPathLength: 1.0,
		SmallWorld:    1.0,
		Components:    1,
	}
	want := math.Exp(-1) * 0.6
	assert.InDelta(t, want, scoring.StructuralQuality(m), 1e-12)
}
