package calibrate

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/scoring"
)

// Grid resolution. Each axis walks i/gridSteps for i in [0, gridSteps],
// the historical 0.05 lattice over [0, 1].
const (
	gridSteps  = 20
	gridPoints = gridSteps + 1
)

// Options tune a calibration run. The zero value uses one worker per
// CPU, default thresholds, and the structural-quality topology term.
type Options struct {
	// Workers bounds the goroutines scanning the alpha axis.
	Workers int

	// Thresholds classify the residual verdicts. Zero means defaults.
	Thresholds scoring.Thresholds

	// TopologyVersion selects which topology term the grid recombines.
	// Empty selects the current structural-quality scorer.
	TopologyVersion string
}

// CaseResidual reports one training case at the winning coefficients.
type CaseResidual struct {
	Name            string          `json:"name"`
	Expected        float64         `json:"expected"`
	Actual          float64         `json:"actual"`
	Residual        float64         `json:"residual"`
	ExpectedVerdict scoring.Verdict `json:"expected_verdict"`
	ActualVerdict   scoring.Verdict `json:"actual_verdict"`
}

// Result is a completed calibration run. BaselineRMSE is the error at
// the library's default coefficients, for comparison against Best.
type Result struct {
	Best             scoring.Coefficients `json:"best"`
	SSE              float64              `json:"sse"`
	RMSE             float64              `json:"rmse"`
	BaselineRMSE     float64              `json:"baseline_rmse"`
	ResidualStddev   float64              `json:"residual_stddev"`
	VerdictAgreement float64              `json:"verdict_agreement"`
	Residuals        []CaseResidual       `json:"residuals"`
	Evaluated        int                  `json:"evaluated"`
	Elapsed          time.Duration        `json:"elapsed"`
}

// caseTerms caches one case's measurements. All three are
// coefficient-independent, so the grid never rescores a pair.
type caseTerms struct {
	name            string
	compression     float64
	entropy         float64
	topology        float64
	expected        float64
	expectedVerdict scoring.Verdict
}

// combine mirrors the engine's composite expression, so a recombined
// lambda is bit-identical to a full rescore at the same weights.
func combine(alpha, beta, gamma float64, t caseTerms) float64 {
	lambda := alpha*t.compression + beta*t.entropy + gamma*t.topology
	if lambda < 0 {
		lambda = 0
	}
	return lambda
}

func precompute(cases []TrainingCase, version string, thresholds scoring.Thresholds) ([]caseTerms, error) {
	engine, err := scoring.NewEngine()
	if err != nil {
		return nil, err
	}

	terms := make([]caseTerms, len(cases))
	for i, c := range cases {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		a, err := scoring.NewSample(c.TextA)
		if err != nil {
			return nil, errors.WrapWithTier(err, errors.TierUserFixable,
				fmt.Sprintf("case %q reference text", c.Name))
		}
		b, err := scoring.NewSample(c.TextB)
		if err != nil {
			return nil, errors.WrapWithTier(err, errors.TierUserFixable,
				fmt.Sprintf("case %q test text", c.Name))
		}
		res, err := engine.Score(a, b)
		if err != nil {
			return nil, err
		}

		topology := res.Topology.StructuralQuality
		if version == scoring.VersionReferenceDelta {
			topology = res.Topology.DeltaV1
		}

		expectedVerdict := c.ExpectedVerdict
		if expectedVerdict == "" {
			expectedVerdict = scoring.VerdictFor(c.ExpectedLambda, thresholds)
		}

		terms[i] = caseTerms{
			name:            c.Name,
			compression:     res.Compression.Corrected,
			entropy:         res.Entropy.Term,
			topology:        topology,
			expected:        c.ExpectedLambda,
			expectedVerdict: expectedVerdict,
		}
	}
	return terms, nil
}

// Run grid-searches the coefficient lattice against the training set.
// The result is deterministic regardless of worker count: ties on the
// objective resolve to the lowest (alpha, beta, gamma).
func Run(ctx context.Context, cases []TrainingCase, opts Options) (*Result, error) {
	start := time.Now()

	if len(cases) == 0 {
		return nil, errors.InvalidInputf("calibration needs at least one training case")
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Thresholds == (scoring.Thresholds{}) {
		opts.Thresholds = scoring.DefaultThresholds()
	}
	strategy, err := scoring.StrategyFor(opts.TopologyVersion)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms, err := precompute(cases, strategy.Version(), opts.Thresholds)
	if err != nil {
		return nil, err
	}

	type axisBest struct {
		sse                float64
		alpha, beta, gamma float64
		found              bool
	}
	bests := make([]axisBest, gridPoints)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < gridPoints; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			alpha := float64(i) / gridSteps
			best := axisBest{sse: math.Inf(1)}
			for j := 0; j < gridPoints; j++ {
				beta := float64(j) / gridSteps
				for k := 0; k < gridPoints; k++ {
					gamma := float64(k) / gridSteps
					var sse float64
					for _, t := range terms {
						diff := combine(alpha, beta, gamma, t) - t.expected
						sse += diff * diff
					}
					if sse < best.sse {
						best = axisBest{sse: sse, alpha: alpha, beta: beta, gamma: gamma, found: true}
					}
				}
			}
			bests[i] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Ascending alpha scan with strict less-than keeps the tie-break
	// identical to a sequential sweep.
	winner := axisBest{sse: math.Inf(1)}
	for _, b := range bests {
		if b.found && b.sse < winner.sse {
			winner = b
		}
	}
	if !winner.found {
		return nil, errors.NewTieredError(errors.TierPermanent, "grid search produced no candidate", nil)
	}

	residuals := make([]CaseResidual, len(terms))
	values := make([]float64, len(terms))
	var sse float64
	agreements := 0
	for i, t := range terms {
		lambda := combine(winner.alpha, winner.beta, winner.gamma, t)
		verdict := scoring.VerdictFor(lambda, opts.Thresholds)
		residual := lambda - t.expected
		residuals[i] = CaseResidual{
			Name:            t.name,
			Expected:        t.expected,
			Actual:          lambda,
			Residual:        residual,
			ExpectedVerdict: t.expectedVerdict,
			ActualVerdict:   verdict,
		}
		values[i] = residual
		sse += residual * residual
		if verdict == t.expectedVerdict {
			agreements++
		}
	}

	stddev := 0.0
	if len(values) > 1 {
		stddev = stat.StdDev(values, nil)
	}

	defaults := scoring.DefaultCoefficients()
	var baselineSSE float64
	for _, t := range terms {
		diff := combine(defaults.Alpha, defaults.Beta, defaults.Gamma, t) - t.expected
		baselineSSE += diff * diff
	}

	n := float64(len(terms))
	return &Result{
		Best: scoring.Coefficients{
			Alpha:           winner.alpha,
			Beta:            winner.beta,
			Gamma:           winner.gamma,
			TopologyVersion: strategy.Version(),
		},
		SSE:              sse,
		RMSE:             math.Sqrt(sse / n),
		BaselineRMSE:     math.Sqrt(baselineSSE / n),
		ResidualStddev:   stddev,
		VerdictAgreement: float64(agreements) / n,
		Residuals:        residuals,
		Evaluated:        gridPoints * gridPoints * gridPoints,
		Elapsed:          time.Since(start),
	}, nil
}
