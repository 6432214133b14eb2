package probe

import (
	"context"
	"time"

	"github.com/perihelion-labs/ldsi/core/errors"
	"golang.org/x/sync/errgroup"
)

// Injector sends prompts to one provider and returns the raw samples.
// Each call retries per the error tier of whatever the provider reports.
type Injector struct {
	provider Provider
}

// NewInjector wraps a provider for probing.
func NewInjector(provider Provider) *Injector {
	return &Injector{provider: provider}
}

// Provider returns the wrapped provider.
func (inj *Injector) Provider() Provider {
	return inj.provider
}

// Inject sends a single prompt and returns the response.
func (inj *Injector) Inject(ctx context.Context, prompt string) (*Response, error) {
	return inj.send(ctx, &Request{Messages: UserPrompt(prompt)})
}

// InjectModel sends a single prompt to a specific model.
func (inj *Injector) InjectModel(ctx context.Context, model, prompt string) (*Response, error) {
	return inj.send(ctx, &Request{Model: model, Messages: UserPrompt(prompt)})
}

// InjectPair runs the A/B probe: the reference prompt first, then the
// test prompt. Sequential on purpose, so both samples come from the
// same provider state and an unreachable endpoint fails before the
// second spend.
func (inj *Injector) InjectPair(ctx context.Context, promptA, promptB string) (*Response, *Response, error) {
	respA, err := inj.Inject(ctx, promptA)
	if err != nil {
		return nil, nil, err
	}
	respB, err := inj.Inject(ctx, promptB)
	if err != nil {
		return nil, nil, err
	}
	return respA, respB, nil
}

// InjectPairModel runs the A/B probe against a specific model.
func (inj *Injector) InjectPairModel(ctx context.Context, model, promptA, promptB string) (*Response, *Response, error) {
	respA, err := inj.InjectModel(ctx, model, promptA)
	if err != nil {
		return nil, nil, err
	}
	respB, err := inj.InjectModel(ctx, model, promptB)
	if err != nil {
		return nil, nil, err
	}
	return respA, respB, nil
}

func (inj *Injector) send(ctx context.Context, req *Request) (*Response, error) {
	var resp *Response
	err := errors.Retry(ctx, func() error {
		r, genErr := inj.provider.Generate(ctx, req)
		if genErr != nil {
			return genErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// PairRun is one model's outcome in a fan-out benchmark.
type PairRun struct {
	Name      string        `json:"name"`
	Model     string        `json:"model"`
	ResponseA *Response     `json:"response_a,omitempty"`
	ResponseB *Response     `json:"response_b,omitempty"`
	Elapsed   time.Duration `json:"elapsed_ns,omitempty"`
	Err       error         `json:"-"`
}

type namedTarget struct {
	name     string
	model    string
	injector *Injector
}

// MultiInjector fans one prompt pair across several model targets.
// Failures stay per-target; a dead endpoint never aborts the benchmark.
type MultiInjector struct {
	targets []namedTarget
}

// NewMultiInjector creates an empty fan-out set.
func NewMultiInjector() *MultiInjector {
	return &MultiInjector{}
}

// Add registers a target under a display name. Model may be empty to use
// the provider's configured default.
func (m *MultiInjector) Add(name, model string, provider Provider) {
	m.targets = append(m.targets, namedTarget{
		name:     name,
		model:    model,
		injector: NewInjector(provider),
	})
}

// Models returns the configured target names in insertion order.
func (m *MultiInjector) Models() []string {
	names := make([]string, len(m.targets))
	for i, t := range m.targets {
		names[i] = t.name
	}
	return names
}

// InjectPairAll runs the A/B probe on every target with bounded
// concurrency. Results arrive in target order regardless of completion
// order.
func (m *MultiInjector) InjectPairAll(ctx context.Context, promptA, promptB string, workers int) []PairRun {
	if workers < 1 {
		workers = len(m.targets)
	}
	if workers < 1 {
		workers = 1
	}

	runs := make([]PairRun, len(m.targets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, target := range m.targets {
		i, target := i, target
		g.Go(func() error {
			runs[i].Name = target.name
			runs[i].Model = target.model
			if err := ctx.Err(); err != nil {
				runs[i].Err = err
				return nil
			}

			start := time.Now()
			var a, b *Response
			var err error
			if target.model != "" {
				a, b, err = target.injector.InjectPairModel(ctx, target.model, promptA, promptB)
			} else {
				a, b, err = target.injector.InjectPair(ctx, promptA, promptB)
			}
			runs[i].ResponseA = a
			runs[i].ResponseB = b
			runs[i].Elapsed = time.Since(start)
			runs[i].Err = err
			return nil
		})
	}
	g.Wait()
	return runs
}
