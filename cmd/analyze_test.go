package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perihelion-labs/ldsi/core/audit"
	"github.com/perihelion-labs/ldsi/core/scoring"
)

// resetAnalyzeFlags restores the analyze flag variables between
// executions. Coefficients go back to the library defaults rather than
// zero because cobra keeps a flag's changed state across runs.
func resetAnalyzeFlags() {
	defaults := scoring.DefaultCoefficients()
	analyzeFileA = ""
	analyzeFileB = ""
	analyzeTextA = ""
	analyzeTextB = ""
	analyzeAlpha = defaults.Alpha
	analyzeBeta = defaults.Beta
	analyzeGamma = defaults.Gamma
	analyzeClean = false
	analyzeJSON = false
	analyzeOutput = ""
}

// =============================================================================
// Analyze Command Tests
// =============================================================================

func TestAnalyzeCmd_Definition(t *testing.T) {
	flags := analyzeCmd.Flags()

	for _, name := range []string{"file-a", "file-b", "text-a", "text-b", "alpha", "beta", "gamma", "clean", "json", "output"} {
		assert.NotNil(t, flags.Lookup(name), "missing flag %s", name)
	}
}

func TestAnalyzeCmd_JSONOutput(t *testing.T) {
	isolateEnv(t)
	defer resetAnalyzeFlags()

	out, err := executeCommand(t, "analyze",
		"--text-a", "La temperature est de vingt-cinq degres aujourd'hui.",
		"--text-b", "La temperature est de vingt-cinq degres aujourd'hui.",
		"--json",
	)
	require.NoError(t, err)

	var result scoring.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, scoring.SchemaVersion, result.SchemaVersion)
	assert.Equal(t, scoring.VerdictZombie, result.Verdict)
	assert.Equal(t, 0.0, result.Compression.Corrected)
}

func TestAnalyzeCmd_PrettyOutput(t *testing.T) {
	isolateEnv(t)
	defer resetAnalyzeFlags()

	out, err := executeCommand(t, "analyze",
		"--text-a", "Les reseaux de neurones apprennent des representations distribuees du langage.",
		"--text-b", "Le moteur calcule une distance de compression entre les deux reponses.",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Lyapunov-Dabert Stability Index")
	assert.Contains(t, out, "SCORE:")
	assert.Contains(t, out, "[NCD]")
	assert.Contains(t, out, "[ENTROPY]")
	assert.Contains(t, out, "[TOPOLOGY]")
}

func TestAnalyzeCmd_FileInput(t *testing.T) {
	isolateEnv(t)
	defer resetAnalyzeFlags()

	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, []byte("Le chat dort sur le tapis du salon."), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("Un felin sommeille paisiblement dans la piece."), 0o644))

	out, err := executeCommand(t, "analyze", "--file-a", pathA, "--file-b", pathB, "--json")
	require.NoError(t, err)

	var result scoring.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Greater(t, result.Compression.Corrected, 0.0)
}

func TestAnalyzeCmd_ConflictingInputs(t *testing.T) {
	isolateEnv(t)
	defer resetAnalyzeFlags()

	_, err := executeCommand(t, "analyze",
		"--file-a", "a.txt", "--text-a", "literal",
		"--text-b", "b",
	)

	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestAnalyzeCmd_MissingInput(t *testing.T) {
	isolateEnv(t)
	defer resetAnalyzeFlags()

	_, err := executeCommand(t, "analyze", "--text-a", "only the reference")

	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
	assert.Contains(t, err.Error(), "sample b")
}

func TestAnalyzeCmd_CoefficientOverride(t *testing.T) {
	isolateEnv(t)
	defer resetAnalyzeFlags()

	out, err := executeCommand(t, "analyze",
		"--text-a", "Le chat dort sur le tapis.",
		"--text-b", "Le chien court dans le jardin.",
		"--alpha", "0.6", "--beta", "0.2", "--gamma", "0.2",
		"--json",
	)
	require.NoError(t, err)

	var result scoring.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 0.6, result.Coefficients.Alpha)
	assert.Equal(t, 0.2, result.Coefficients.Beta)
	assert.Equal(t, 0.2, result.Coefficients.Gamma)
}

// =============================================================================
// Local Audit Trail Tests
// =============================================================================

func TestAnalyzeCmd_OutputChain(t *testing.T) {
	isolateEnv(t)
	defer resetAnalyzeFlags()

	chainPath := filepath.Join(t.TempDir(), "runs.jsonl")

	out, err := executeCommand(t, "analyze",
		"--text-a", "Le modele explique la gravitation en termes simples.",
		"--text-b", "La gravitation attire les corps massifs entre eux.",
		"--output", chainPath,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "saved: "+chainPath)

	records, err := audit.ReadRecords(chainPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "local-analysis", records[0].Model)
	assert.Equal(t, uint64(1), records[0].Sequence)
	assert.NotEmpty(t, records[0].EntryHash)

	resetAnalyzeFlags()

	verifyOut, err := executeCommand(t, "audit", "verify", "--log-path", chainPath)
	require.NoError(t, err)
	assert.Contains(t, verifyOut, "Entries verified: 1")
	assert.Contains(t, verifyOut, "VALID")

	auditLogFile = ""
}
