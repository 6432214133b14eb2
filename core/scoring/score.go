// Package scoring fuses the compression, lexical, and topology signals
// into the composite divergence index and its verdict. The pipeline is
// pure: identical inputs and coefficients always produce identical
// results, which is what makes the audit trail comparable across runs.
package scoring

import (
	"context"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/perihelion-labs/ldsi/core/cleaner"
	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/lexical"
	"github.com/perihelion-labs/ldsi/core/ncd"
	"github.com/perihelion-labs/ldsi/core/semgraph"
)

// SchemaVersion tags serialized results. Bump when the payload shape or
// the meaning of a field changes.
const SchemaVersion = "2"

// Entropy term clamp. A test sample can lose at most one full unit and
// gain at most two against the reference.
const (
	entropyTermFloor   = -1.0
	entropyTermCeiling = 2.0
)

// TextSample is an immutable text input. Construction is the only place
// structural validity is checked; everything downstream is total.
type TextSample struct {
	text string
}

// NewSample validates and wraps raw text.
func NewSample(text string) (TextSample, error) {
	if !utf8.ValidString(text) {
		return TextSample{}, errors.InvalidInputf("sample is not valid UTF-8")
	}
	return TextSample{text: text}, nil
}

// MustSample wraps text, panicking on invalid UTF-8. For fixtures.
func MustSample(text string) TextSample {
	s, err := NewSample(text)
	if err != nil {
		panic(err)
	}
	return s
}

// Text returns the raw text.
func (s TextSample) Text() string { return s.text }

// Bytes returns the byte representation.
func (s TextSample) Bytes() []byte { return []byte(s.text) }

// EntropyBreakdown carries both lexical measurements and the derived term.
type EntropyBreakdown struct {
	A     lexical.Measurement `json:"a"`
	B     lexical.Measurement `json:"b"`
	Ratio float64             `json:"ratio"`
	Term  float64             `json:"term"`
}

// TopologyBreakdown carries both graph measurements and both strategy
// outputs. The legacy delta is emitted alongside the current score so
// consumers can migrate without recomputing history.
type TopologyBreakdown struct {
	A                 semgraph.Metrics `json:"a"`
	B                 semgraph.Metrics `json:"b"`
	StructuralQuality float64          `json:"structural_quality"`
	DeltaV1           float64          `json:"topology_delta_v1"`
}

// Result is the full scoring breakdown. Its JSON form is the stable
// contract shared by the CLI, the audit trail, and the server API.
type Result struct {
	SchemaVersion string            `json:"schema_version"`
	Lambda        float64           `json:"lambda"`
	Verdict       Verdict           `json:"verdict"`
	VerdictClass  string            `json:"verdict_class"`
	Compression   ncd.Measurement   `json:"ncd"`
	Entropy       EntropyBreakdown  `json:"entropy"`
	Topology      TopologyBreakdown `json:"topology"`
	Coefficients  Coefficients      `json:"coefficients"`
}

// TokenCleaner normalizes raw text into the token sequence the lexical
// and topology metrics consume. *cleaner.Cleaner is the canonical
// implementation; *cleaner.Memoized adds an LRU over it.
type TokenCleaner interface {
	Clean(text string) []string
}

// Engine scores sample pairs under one fixed configuration.
type Engine struct {
	coeffs     Coefficients
	thresholds Thresholds
	cleaner    TokenCleaner
	strategy   TopologyStrategy
	cache      *Cache
}

// Option configures an Engine.
type Option func(*Engine)

// WithCoefficients overrides the default weights.
func WithCoefficients(c Coefficients) Option {
	return func(e *Engine) { e.coeffs = c }
}

// WithThresholds overrides the default verdict boundaries.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// WithCleaner supplies a preconfigured cleaner.
func WithCleaner(c TokenCleaner) Option {
	return func(e *Engine) { e.cleaner = c }
}

// WithCache attaches a result cache. Caching only changes latency,
// never results.
func WithCache(c *Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// NewEngine builds a scoring engine. Defaults: library coefficients,
// standard thresholds, default cleaner, no cache.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		coeffs:     DefaultCoefficients(),
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.coeffs.Validate(); err != nil {
		return nil, err
	}
	if err := e.thresholds.Validate(); err != nil {
		return nil, err
	}

	strategy, err := StrategyFor(e.coeffs.TopologyVersion)
	if err != nil {
		return nil, err
	}
	e.strategy = strategy

	if e.cleaner == nil {
		c, err := cleaner.New(cleaner.DefaultConfig())
		if err != nil {
			return nil, err
		}
		e.cleaner = c
	}
	return e, nil
}

// Coefficients returns the engine's weights.
func (e *Engine) Coefficients() Coefficients { return e.coeffs }

// Thresholds returns the engine's verdict boundaries.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Score computes the composite index for reference A against test B.
func (e *Engine) Score(a, b TextSample) (Result, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(a, b, e.coeffs); ok {
			return cached, nil
		}
	}

	compression, err := ncd.Compute(a.Bytes(), b.Bytes())
	if err != nil {
		return Result{}, err
	}

	tokensA := e.cleaner.Clean(a.Text())
	tokensB := e.cleaner.Clean(b.Text())

	entropy := entropyBreakdown(lexical.Analyze(tokensA), lexical.Analyze(tokensB))

	metricsA := semgraph.Analyze(semgraph.Build(tokensA))
	metricsB := semgraph.Analyze(semgraph.Build(tokensB))
	topology := TopologyBreakdown{
		A:                 metricsA,
		B:                 metricsB,
		StructuralQuality: StructuralQuality(metricsB),
		DeltaV1:           referenceDeltaStrategy{}.Score(metricsA, metricsB),
	}

	lambda := e.coeffs.Alpha*compression.Corrected +
		e.coeffs.Beta*entropy.Term +
		e.coeffs.Gamma*e.strategy.Score(metricsA, metricsB)
	if lambda < 0 {
		lambda = 0
	}

	verdict := VerdictFor(lambda, e.thresholds)
	result := Result{
		SchemaVersion: SchemaVersion,
		Lambda:        lambda,
		Verdict:       verdict,
		VerdictClass:  verdict.Class(),
		Compression:   compression,
		Entropy:       entropy,
		Topology:      topology,
		Coefficients:  e.coeffs,
	}

	if e.cache != nil {
		e.cache.Set(a, b, e.coeffs, result)
	}
	return result, nil
}

func entropyBreakdown(a, b lexical.Measurement) EntropyBreakdown {
	ratio := lexical.Ratio(a.Shannon, b.Shannon)
	term := ratio - 1
	if term < entropyTermFloor {
		term = entropyTermFloor
	}
	if term > entropyTermCeiling {
		term = entropyTermCeiling
	}
	return EntropyBreakdown{A: a, B: b, Ratio: ratio, Term: term}
}

// Pair is one batch scoring input.
type Pair struct {
	Name string
	A    TextSample
	B    TextSample
}

// BatchResult is one batch scoring outcome. Err is set per pair;
// one bad pair never aborts the batch.
type BatchResult struct {
	Name   string
	Result Result
	Err    error
}

// ScoreBatch scores independent pairs across a bounded worker pool.
// Results are returned in input order.
func (e *Engine) ScoreBatch(ctx context.Context, pairs []Pair, workers int) []BatchResult {
	if workers < 1 {
		workers = 1
	}

	results := make([]BatchResult, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			results[i].Name = pair.Name
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Result, results[i].Err = e.Score(pair.A, pair.B)
			return nil
		})
	}
	g.Wait()
	return results
}
