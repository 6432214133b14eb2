package scoring

import (
	"github.com/perihelion-labs/ldsi/core/errors"
)

// Coefficients weight the three composite terms. There is exactly one
// default, owned here; config may override the values but never
// redefines them.
type Coefficients struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`

	// TopologyVersion selects the topology strategy. Empty means the
	// current structural-quality scorer.
	TopologyVersion string `json:"topology_version,omitempty" yaml:"topology_version,omitempty"`
}

// DefaultCoefficients returns the calibrated weights.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Alpha:           0.50,
		Beta:            0.30,
		Gamma:           0.20,
		TopologyVersion: VersionStructuralQuality,
	}
}

// Validate rejects negative weights. The composite's lower bound of zero
// only holds when every weight is non-negative.
func (c Coefficients) Validate() error {
	if c.Alpha < 0 || c.Beta < 0 || c.Gamma < 0 {
		return errors.InvalidInputf("coefficients must be non-negative: alpha=%v beta=%v gamma=%v",
			c.Alpha, c.Beta, c.Gamma)
	}
	if c.TopologyVersion != "" {
		if _, err := StrategyFor(c.TopologyVersion); err != nil {
			return err
		}
	}
	return nil
}

// Thresholds are the verdict class boundaries over lambda.
type Thresholds struct {
	Zombie    float64 `json:"zombie" yaml:"zombie"`
	Rebel     float64 `json:"rebel" yaml:"rebel"`
	Architect float64 `json:"architect" yaml:"architect"`
}

// DefaultThresholds returns the standard verdict boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Zombie:    0.3,
		Rebel:     0.7,
		Architect: 1.2,
	}
}

// Validate requires strictly ascending positive boundaries.
func (t Thresholds) Validate() error {
	if t.Zombie <= 0 || t.Rebel <= t.Zombie || t.Architect <= t.Rebel {
		return errors.InvalidInputf("thresholds must ascend: zombie=%v rebel=%v architect=%v",
			t.Zombie, t.Rebel, t.Architect)
	}
	return nil
}
