package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perihelion-labs/ldsi/core/ncd"
)

// =============================================================================
// NCD Command Tests
// =============================================================================

func TestNCDCmd(t *testing.T) {
	isolateEnv(t)
	defer func() { ncdJSON = false }()

	t.Run("json measurement", func(t *testing.T) {
		out, err := executeCommand(t, "ncd",
			"Le chat dort sur le tapis du salon pendant la sieste.",
			"Un felin sommeille sur la moquette de la piece principale.",
			"--json",
		)
		require.NoError(t, err)

		var m ncd.Measurement
		require.NoError(t, json.Unmarshal([]byte(out), &m))
		assert.Greater(t, m.SizeA, 0)
		assert.Greater(t, m.SizeCombined, 0)
		assert.Greater(t, m.Corrected, 0.0)
		assert.InDelta(t, m.Raw*m.DampingFactor, m.Corrected, 1e-12)
	})

	t.Run("identical texts compress together", func(t *testing.T) {
		ncdJSON = false
		text := "Le chat dort sur le tapis du salon pendant la sieste."

		out, err := executeCommand(t, "ncd", text, text, "--json")
		require.NoError(t, err)

		var m ncd.Measurement
		require.NoError(t, json.Unmarshal([]byte(out), &m))
		assert.Equal(t, 0.0, m.Corrected)
	})

	t.Run("pretty output", func(t *testing.T) {
		ncdJSON = false

		out, err := executeCommand(t, "ncd", "premier texte de reference", "second texte divergent")
		require.NoError(t, err)
		assert.Contains(t, out, "[NCD]")
		assert.Contains(t, out, "corrected:")
	})

	t.Run("wrong argument count", func(t *testing.T) {
		_, err := executeCommand(t, "ncd", "only one text")
		require.Error(t, err)
		assert.Equal(t, 2, ExitCode(err))
	})
}

// =============================================================================
// Entropy Command Tests
// =============================================================================

func TestEntropyCmd(t *testing.T) {
	isolateEnv(t)
	defer func() { entropyJSON = false }()

	t.Run("uniform vocabulary", func(t *testing.T) {
		out, err := executeCommand(t, "entropy", "alpha beta gamma delta", "--json")
		require.NoError(t, err)

		var report struct {
			Shannon       float64 `json:"shannon"`
			TTR           float64 `json:"ttr"`
			HapaxRatio    float64 `json:"hapax_ratio"`
			TotalTokens   int     `json:"total_tokens"`
			UniqueTokens  int     `json:"unique_tokens"`
			BigramEntropy float64 `json:"bigram_entropy"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &report))

		// Four distinct tokens, one occurrence each.
		assert.Equal(t, 4, report.TotalTokens)
		assert.Equal(t, 4, report.UniqueTokens)
		assert.InDelta(t, 2.0, report.Shannon, 1e-12)
		assert.InDelta(t, 1.0, report.TTR, 1e-12)
		assert.InDelta(t, 1.0, report.HapaxRatio, 1e-12)
	})

	t.Run("pretty output", func(t *testing.T) {
		entropyJSON = false

		out, err := executeCommand(t, "entropy", "une phrase assez riche pour produire plusieurs tokens distincts")
		require.NoError(t, err)
		assert.Contains(t, out, "[ENTROPY]")
		assert.Contains(t, out, "Shannon H:")
		assert.Contains(t, out, "unique tokens:")
	})
}

// =============================================================================
// Topology Command Tests
// =============================================================================

func TestTopologyCmd(t *testing.T) {
	isolateEnv(t)
	defer func() { topologyJSON = false }()

	t.Run("json metrics", func(t *testing.T) {
		out, err := executeCommand(t, "topology",
			"Les reseaux connectent des concepts voisins et chaque concept relie plusieurs domaines proches.",
			"--json",
		)
		require.NoError(t, err)

		var report struct {
			Nodes             int     `json:"nodes"`
			Edges             int     `json:"edges"`
			Density           float64 `json:"density"`
			StructuralQuality float64 `json:"structural_quality"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &report))

		assert.Greater(t, report.Nodes, 2)
		assert.Greater(t, report.Edges, 0)
		assert.Greater(t, report.Density, 0.0)
		assert.GreaterOrEqual(t, report.StructuralQuality, 0.0)
	})

	t.Run("pretty output", func(t *testing.T) {
		topologyJSON = false

		out, err := executeCommand(t, "topology", "concepts relies entre voisins proches formant un graphe")
		require.NoError(t, err)
		assert.Contains(t, out, "[TOPOLOGY]")
		assert.Contains(t, out, "struct quality:")
	})
}
