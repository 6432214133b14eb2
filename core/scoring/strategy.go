package scoring

import (
	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/semgraph"
)

// Topology strategy versions. The reference-relative delta is the
// predecessor formula, kept selectable so archived scores stay
// reproducible.
const (
	VersionStructuralQuality = "sq/v2"
	VersionReferenceDelta    = "delta/v1"
)

// TopologyStrategy converts the two topology measurements into the
// composite's third term.
type TopologyStrategy interface {
	Version() string
	Score(reference, test semgraph.Metrics) float64
}

// StrategyFor resolves a version string. Empty selects the current
// structural-quality scorer.
func StrategyFor(version string) (TopologyStrategy, error) {
	switch version {
	case "", VersionStructuralQuality:
		return structuralQualityStrategy{}, nil
	case VersionReferenceDelta:
		return referenceDeltaStrategy{}, nil
	default:
		return nil, errors.InvalidInputf("unknown topology strategy %q", version)
	}
}

// structuralQualityStrategy scores the test sample alone. The reference
// measurement is ignored: quality is an absolute property of B's graph.
type structuralQualityStrategy struct{}

func (structuralQualityStrategy) Version() string { return VersionStructuralQuality }

func (structuralQualityStrategy) Score(_, test semgraph.Metrics) float64 {
	return StructuralQuality(test)
}

// referenceDeltaStrategy is the legacy reference-relative formula:
// weighted differences of connectivity and clustering, a fragmentation
// penalty, recentered by +0.5.
type referenceDeltaStrategy struct{}

func (referenceDeltaStrategy) Version() string { return VersionReferenceDelta }

func (referenceDeltaStrategy) Score(reference, test semgraph.Metrics) float64 {
	delta := (test.LCCRatio-reference.LCCRatio)*0.5 +
		(test.Clustering-reference.Clustering)*0.3
	if test.Components > 2*reference.Components {
		delta -= 0.2
	}
	return delta + 0.5
}
