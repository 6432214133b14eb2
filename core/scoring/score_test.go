package scoring_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"strings"
	"testing"

	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	refSentence  = "La temperature est de vingt-cinq degres aujourd'hui."
	testSentence = "La temperature est de 25 degres ce jour."
)

func newEngine(t *testing.T, opts ...scoring.Option) *scoring.Engine {
	t.Helper()
	e, err := scoring.NewEngine(opts...)
	require.NoError(t, err)
	return e
}

func TestNewSampleRejectsInvalidUTF8(t *testing.T) {
	_, err := scoring.NewSample(string([]byte{0xff, 0xfe, 0xfd}))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}

func TestScoreIdenticalSamples(t *testing.T) {
	e := newEngine(t)
	sample := scoring.MustSample(refSentence)

	r, err := e.Score(sample, sample)
	require.NoError(t, err)

	assert.Equal(t, 0.0, r.Compression.Corrected)
	assert.Equal(t, 0.0, r.Entropy.Term)
	assert.InDelta(t, 1.0, r.Entropy.Ratio, 1e-12)
	assert.Less(t, r.Lambda, 0.1)
	assert.Equal(t, scoring.VerdictZombie, r.Verdict)
	assert.Equal(t, "zombie", r.VerdictClass)
}

func TestScoreShortPairDamping(t *testing.T) {
	e := newEngine(t)

	r, err := e.Score(scoring.MustSample(refSentence), scoring.MustSample(testSentence))
	require.NoError(t, err)

	wantFactor := math.Log(92) / math.Log(1024)
	assert.InDelta(t, wantFactor, r.Compression.DampingFactor, 1e-12)
	assert.InDelta(t, r.Compression.Raw*wantFactor, r.Compression.Corrected, 1e-12)
	assert.Greater(t, r.Compression.Raw, 0.0)
}

func TestScoreTinyTestSample(t *testing.T) {
	e := newEngine(t)

	r, err := e.Score(scoring.MustSample(refSentence), scoring.MustSample("Hi."))
	require.NoError(t, err)

	assert.Equal(t, 0.0, r.Topology.StructuralQuality)
	assert.GreaterOrEqual(t, r.Lambda, 0.0)
}

func TestScoreEntropyTermZeroWhenEqual(t *testing.T) {
	e := newEngine(t)

	// Different vocabularies, identical distributions.
	r, err := e.Score(
		scoring.MustSample("alpha beta gamma"),
		scoring.MustSample("delta epsilon zeta"),
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, r.Entropy.Term, 1e-12)
}

func TestScoreSilentReference(t *testing.T) {
	e := newEngine(t)

	r, err := e.Score(scoring.MustSample(""), scoring.MustSample(refSentence))
	require.NoError(t, err)

	assert.Equal(t, 3.0, r.Entropy.Ratio)
	assert.Equal(t, 2.0, r.Entropy.Term)
	assert.False(t, math.IsInf(r.Lambda, 0))
}

func TestScoreLambdaNeverNegative(t *testing.T) {
	e := newEngine(t)

	// Collapsed test sample: entropy term bottoms out at -1, topology
	// contributes nothing, and compression stays small.
	collapsed := strings.TrimSpace(strings.Repeat("loop ", 40))
	r, err := e.Score(scoring.MustSample(refSentence), scoring.MustSample(collapsed))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, r.Lambda, 0.0)
}

func TestScoreDeterministic(t *testing.T) {
	e := newEngine(t)
	a := scoring.MustSample(refSentence)
	b := scoring.MustSample(testSentence)

	first, err := e.Score(a, b)
	require.NoError(t, err)
	second, err := e.Score(a, b)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScoreCompositeArithmetic(t *testing.T) {
	e := newEngine(t)

	r, err := e.Score(scoring.MustSample(refSentence), scoring.MustSample(testSentence))
	require.NoError(t, err)

	want := r.Coefficients.Alpha*r.Compression.Corrected +
		r.Coefficients.Beta*r.Entropy.Term +
		r.Coefficients.Gamma*r.Topology.StructuralQuality
	if want < 0 {
		want = 0
	}
	assert.InDelta(t, want, r.Lambda, 1e-12)
}

func TestScoreLegacyStrategy(t *testing.T) {
	coeffs := scoring.DefaultCoefficients()
	coeffs.TopologyVersion = scoring.VersionReferenceDelta
	e := newEngine(t, scoring.WithCoefficients(coeffs))

	r, err := e.Score(scoring.MustSample(refSentence), scoring.MustSample(testSentence))
	require.NoError(t, err)

	want := coeffs.Alpha*r.Compression.Corrected +
		coeffs.Beta*r.Entropy.Term +
		coeffs.Gamma*r.Topology.DeltaV1
	if want < 0 {
		want = 0
	}
	assert.InDelta(t, want, r.Lambda, 1e-12)

	// Both strategy outputs are emitted regardless of selection.
	assert.NotZero(t, r.Topology.DeltaV1)
	assert.GreaterOrEqual(t, r.Topology.StructuralQuality, 0.0)
}

func TestNewEngineRejectsNegativeCoefficients(t *testing.T) {
	_, err := scoring.NewEngine(scoring.WithCoefficients(scoring.Coefficients{
		Alpha: -0.1, Beta: 0.3, Gamma: 0.2,
	}))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}

func TestNewEngineRejectsUnknownStrategy(t *testing.T) {
	coeffs := scoring.DefaultCoefficients()
	coeffs.TopologyVersion = "delta/v9"
	_, err := scoring.NewEngine(scoring.WithCoefficients(coeffs))
	require.Error(t, err)
}

func TestNewEngineRejectsBadThresholds(t *testing.T) {
	_, err := scoring.NewEngine(scoring.WithThresholds(scoring.Thresholds{
		Zombie: 0.7, Rebel: 0.3, Architect: 1.2,
	}))
	require.Error(t, err)
}

func TestResultJSONContract(t *testing.T) {
	e := newEngine(t)
	r, err := e.Score(scoring.MustSample(refSentence), scoring.MustSample(testSentence))
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))

	assert.Equal(t, "2", payload["schema_version"])
	for _, key := range []string{"lambda", "verdict", "verdict_class", "ncd", "entropy", "topology", "coefficients"} {
		assert.Contains(t, payload, key)
	}

	topology, ok := payload["topology"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, topology, "structural_quality")
	assert.Contains(t, topology, "topology_delta_v1")
}

func TestScoreBatch(t *testing.T) {
	e := newEngine(t)

	pairs := []scoring.Pair{
		{Name: "identical", A: scoring.MustSample(refSentence), B: scoring.MustSample(refSentence)},
		{Name: "variant", A: scoring.MustSample(refSentence), B: scoring.MustSample(testSentence)},
		{Name: "tiny", A: scoring.MustSample(refSentence), B: scoring.MustSample("Hi.")},
	}

	results := e.ScoreBatch(context.Background(), pairs, 2)
	require.Len(t, results, 3)

	assert.Equal(t, "identical", results[0].Name)
	require.NoError(t, results[0].Err)
	assert.Equal(t, scoring.VerdictZombie, results[0].Result.Verdict)

	assert.Equal(t, "variant", results[1].Name)
	require.NoError(t, results[1].Err)

	assert.Equal(t, "tiny", results[2].Name)
	require.NoError(t, results[2].Err)
	assert.Equal(t, 0.0, results[2].Result.Topology.StructuralQuality)
}

func TestScoreBatchCanceledContext(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pairs := []scoring.Pair{
		{Name: "late", A: scoring.MustSample("one sample"), B: scoring.MustSample("another sample")},
	}
	results := e.ScoreBatch(ctx, pairs, 1)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}
