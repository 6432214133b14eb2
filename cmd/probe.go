package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/perihelion-labs/ldsi/core/audit"
	"github.com/perihelion-labs/ldsi/core/config"
	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/probe"
	"github.com/perihelion-labs/ldsi/core/scoring"
)

var (
	probeModel    string
	probeProvider string
	probePromptA  string
	probePromptB  string
	probeJSON     bool
	probeNoAudit  bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Inject a prompt pair into a live model and score the responses",
	Long: `Send prompt A and prompt B to a model, score response B against
response A, and record the run in the audit trail.

Provider credentials come from the environment (ANTHROPIC_API_KEY,
OPENAI_API_KEY, GEMINI_API_KEY, OPENROUTER_API_KEY) or the config file.
A local Ollama daemon needs no key.

Examples:
  ldsi probe --model llama3 --provider ollama --prompt-a "Explain gravity." --prompt-b "Explain gravity as a poem."
  ldsi probe --model anthropic/claude-opus-4.5 --prompt-a "..." --prompt-b "..."`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVarP(&probeModel, "model", "m", "", "Model ID to probe")
	probeCmd.Flags().StringVarP(&probeProvider, "provider", "p", "", "Provider name (anthropic, openai, google, openrouter, ollama)")
	probeCmd.Flags().StringVar(&probePromptA, "prompt-a", "", "Reference prompt (A)")
	probeCmd.Flags().StringVar(&probePromptB, "prompt-b", "", "Test prompt (B)")
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "Output the result as JSON")
	probeCmd.Flags().BoolVar(&probeNoAudit, "no-audit", false, "Skip the audit trail for this run")
}

func runProbe(cmd *cobra.Command, args []string) error {
	if probePromptA == "" || probePromptB == "" {
		return errors.InvalidInputf("--prompt-a and --prompt-b are required")
	}
	if probeModel == "" {
		return errors.InvalidInputf("--model is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	provider, err := resolveProbeProvider(registry, probeProvider, probeModel)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if cfg.Probe.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Probe.Timeout)
		defer cancel()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "probing %s via %s\n", probeModel, provider.Name())

	injector := probe.NewInjector(provider)
	start := time.Now()
	respA, respB, err := injector.InjectPairModel(ctx, probeModel, probePromptA, probePromptB)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	engine, err := scoring.NewEngine(
		scoring.WithCoefficients(cfg.Scoring.Coefficients),
		scoring.WithThresholds(cfg.Scoring.Thresholds),
	)
	if err != nil {
		return err
	}

	sampleA, err := scoring.NewSample(respA.Content)
	if err != nil {
		return err
	}
	sampleB, err := scoring.NewSample(respB.Content)
	if err != nil {
		return err
	}

	result, err := engine.Score(sampleA, sampleB)
	if err != nil {
		return err
	}

	if probeJSON {
		if err := writeIndentedJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), &result)
	}

	if !probeNoAudit {
		if err := recordProbeRun(cfg, provider.Name(), result, elapsed); err != nil {
			return fmt.Errorf("audit write failed: %w", err)
		}
	}
	return nil
}

// resolveProbeProvider picks a provider by explicit name, model routing,
// or the registry default, in that order.
func resolveProbeProvider(registry *probe.Registry, name, model string) (probe.Provider, error) {
	if name != "" {
		return registry.Get(probe.ProviderType(name))
	}
	if provider, err := registry.GetForModel(model); err == nil {
		return provider, nil
	}
	return registry.Default()
}

// recordProbeRun appends the scored run to the chain log and the result
// store.
func recordProbeRun(cfg *config.Config, providerName string, result scoring.Result, elapsed time.Duration) error {
	store, log, err := openAudit(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	defer store.Close()
	defer log.Close()

	record := &audit.Record{
		Model:      probeModel,
		Provider:   providerName,
		PromptHash: audit.HashPair(probePromptA, probePromptB),
		DurationMS: elapsed.Milliseconds(),
		Result:     result,
	}

	// Append assigns the chain fields, so it goes before the store write.
	if err := log.Append(record); err != nil {
		return err
	}
	return store.Put(record)
}

// buildRegistry assembles the provider registry from configuration.
// Providers without credentials are skipped; Ollama registers whenever
// an endpoint is configured since the daemon needs no key.
func buildRegistry(ctx context.Context, cfg *config.Config) (*probe.Registry, error) {
	registry := probe.NewRegistry()

	base := probe.DefaultBaseConfig()
	if cfg.Probe.MaxTokens > 0 {
		base.MaxTokens = cfg.Probe.MaxTokens
	}
	if cfg.Probe.Temperature > 0 {
		base.Temperature = cfg.Probe.Temperature
	}
	if cfg.Probe.Timeout > 0 {
		base.Timeout = cfg.Probe.Timeout
	}
	if cfg.Probe.MaxRetries > 0 {
		base.MaxRetries = cfg.Probe.MaxRetries
	}

	if pc, ok := cfg.Probe.Providers["anthropic"]; ok && pc.APIKey != "" {
		ac := probe.AnthropicConfig{BaseConfig: base, BaseURL: pc.BaseURL}
		ac.APIKey = pc.APIKey
		if err := registry.RegisterAnthropic(ac); err != nil {
			return nil, err
		}
	}

	if pc, ok := cfg.Probe.Providers["openai"]; ok && pc.APIKey != "" {
		oc := probe.OpenAIConfig{BaseConfig: base, BaseURL: pc.BaseURL}
		oc.APIKey = pc.APIKey
		if err := registry.RegisterOpenAI(oc); err != nil {
			return nil, err
		}
	}

	if pc, ok := cfg.Probe.Providers["google"]; ok && pc.APIKey != "" {
		gc := probe.GoogleConfig{BaseConfig: base}
		gc.APIKey = pc.APIKey
		if err := registry.RegisterGoogle(ctx, gc); err != nil {
			return nil, err
		}
	}

	if pc, ok := cfg.Probe.Providers["openrouter"]; ok && pc.APIKey != "" {
		oc := probe.OpenAIConfig{BaseConfig: base, Flavor: probe.ProviderTypeOpenRouter, BaseURL: pc.BaseURL}
		oc.APIKey = pc.APIKey
		if err := registry.RegisterOpenAI(oc); err != nil {
			return nil, err
		}
	}

	if pc, ok := cfg.Probe.Providers["ollama"]; ok && pc.BaseURL != "" {
		oc := probe.OpenAIConfig{BaseConfig: base, Flavor: probe.ProviderTypeOllama, BaseURL: pc.BaseURL}
		oc.APIKey = pc.APIKey
		if oc.APIKey == "" {
			oc.APIKey = "ollama"
		}
		if err := registry.RegisterOpenAI(oc); err != nil {
			return nil, err
		}
	}

	if cfg.Probe.DefaultProvider != "" && registry.Has(probe.ProviderType(cfg.Probe.DefaultProvider)) {
		if err := registry.SetDefault(probe.ProviderType(cfg.Probe.DefaultProvider)); err != nil {
			return nil, err
		}
	}

	if len(registry.Available()) == 0 {
		return nil, errors.NewTieredError(errors.TierUserFixable,
			"no provider configured: set an API key or run a local Ollama daemon", nil)
	}
	return registry, nil
}
