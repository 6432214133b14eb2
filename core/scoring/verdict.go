package scoring

import "strings"

// Verdict is the qualitative reading of a lambda score.
type Verdict string

const (
	// VerdictZombie marks near-recitation of the reference.
	VerdictZombie Verdict = "ZOMBIE"
	// VerdictRebel marks moderate, enriching divergence.
	VerdictRebel Verdict = "REBEL"
	// VerdictArchitect marks strong divergence that keeps its structure.
	VerdictArchitect Verdict = "ARCHITECT"
	// VerdictFool marks divergence past coherence.
	VerdictFool Verdict = "FOOL"
)

// Class returns the lowercase form used in API payloads.
func (v Verdict) Class() string {
	return strings.ToLower(string(v))
}

// VerdictFor thresholds lambda into its class.
func VerdictFor(lambda float64, t Thresholds) Verdict {
	switch {
	case lambda < t.Zombie:
		return VerdictZombie
	case lambda < t.Rebel:
		return VerdictRebel
	case lambda < t.Architect:
		return VerdictArchitect
	default:
		return VerdictFool
	}
}
