package probe

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/perihelion-labs/ldsi/core/errors"
)

// Registry manages provider instances and routes requests to them by
// name or by model.
type Registry struct {
	mu sync.RWMutex

	providers map[ProviderType]Provider
	default_  ProviderType
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[ProviderType]Provider),
	}
}

// Register adds a provider to the registry. The first registration
// becomes the default.
func (r *Registry) Register(providerType ProviderType, provider Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := provider.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid provider config for %s: %w", providerType, err)
	}

	r.providers[providerType] = provider

	if len(r.providers) == 1 {
		r.default_ = providerType
	}

	return nil
}

// RegisterAnthropic creates and registers an Anthropic provider.
func (r *Registry) RegisterAnthropic(config AnthropicConfig) error {
	provider, err := NewAnthropicProvider(config)
	if err != nil {
		return err
	}
	return r.Register(ProviderTypeAnthropic, provider)
}

// RegisterOpenAI creates and registers an OpenAI-compatible provider
// under its flavor name.
func (r *Registry) RegisterOpenAI(config OpenAIConfig) error {
	provider, err := NewOpenAIProvider(config)
	if err != nil {
		return err
	}
	return r.Register(config.flavorName(), provider)
}

// RegisterGoogle creates and registers a Gemini provider.
func (r *Registry) RegisterGoogle(ctx context.Context, config GoogleConfig) error {
	provider, err := NewGoogleProvider(ctx, config)
	if err != nil {
		return err
	}
	return r.Register(ProviderTypeGoogle, provider)
}

// Get returns a provider by name.
func (r *Registry) Get(providerType ProviderType) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[providerType]
	if !ok {
		return nil, errors.WrapWithTier(
			fmt.Errorf("provider not registered: %s", providerType),
			errors.TierUserFixable,
			"provider lookup failed",
		)
	}
	return provider, nil
}

// Default returns the default provider.
func (r *Registry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.default_ == "" {
		return nil, errors.WrapWithTier(
			fmt.Errorf("no default provider set"),
			errors.TierUserFixable,
			"provider lookup failed",
		)
	}
	return r.providers[r.default_], nil
}

// SetDefault sets the default provider.
func (r *Registry) SetDefault(providerType ProviderType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[providerType]; !ok {
		return fmt.Errorf("provider not registered: %s", providerType)
	}
	r.default_ = providerType
	return nil
}

// Available returns registered provider names in stable order.
func (r *Registry) Available() []ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ProviderType, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Has checks whether a provider name is registered.
func (r *Registry) Has(providerType ProviderType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[providerType]
	return ok
}

// GetForModel returns the first provider that supports the given model,
// checking in stable name order.
func (r *Registry) GetForModel(model string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]ProviderType, 0, len(r.providers))
	for t := range r.providers {
		names = append(names, t)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		if r.providers[name].SupportsModel(model) {
			return r.providers[name], nil
		}
	}
	return nil, errors.WrapWithTier(
		fmt.Errorf("no provider supports model %q", model),
		errors.TierUserFixable,
		"model routing failed",
	)
}

// Close closes all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, provider := range r.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing providers: %v", errs)
	}
	return nil
}

// RegistryBuilder provides a fluent interface for assembling a registry.
type RegistryBuilder struct {
	registry *Registry
	ctx      context.Context
	errors   []error
}

// NewRegistryBuilder creates a new builder.
func NewRegistryBuilder(ctx context.Context) *RegistryBuilder {
	return &RegistryBuilder{
		registry: NewRegistry(),
		ctx:      ctx,
	}
}

// WithAnthropic adds an Anthropic provider.
func (b *RegistryBuilder) WithAnthropic(config AnthropicConfig) *RegistryBuilder {
	if err := b.registry.RegisterAnthropic(config); err != nil {
		b.errors = append(b.errors, fmt.Errorf("anthropic: %w", err))
	}
	return b
}

// WithOpenAI adds an OpenAI-compatible provider under its flavor name.
func (b *RegistryBuilder) WithOpenAI(config OpenAIConfig) *RegistryBuilder {
	if err := b.registry.RegisterOpenAI(config); err != nil {
		b.errors = append(b.errors, fmt.Errorf("%s: %w", config.flavorName(), err))
	}
	return b
}

// WithGoogle adds a Gemini provider.
func (b *RegistryBuilder) WithGoogle(config GoogleConfig) *RegistryBuilder {
	if err := b.registry.RegisterGoogle(b.ctx, config); err != nil {
		b.errors = append(b.errors, fmt.Errorf("google: %w", err))
	}
	return b
}

// WithDefault sets the default provider.
func (b *RegistryBuilder) WithDefault(providerType ProviderType) *RegistryBuilder {
	if err := b.registry.SetDefault(providerType); err != nil {
		b.errors = append(b.errors, fmt.Errorf("default: %w", err))
	}
	return b
}

// Build returns the assembled registry.
func (b *RegistryBuilder) Build() (*Registry, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("registry build errors: %v", b.errors)
	}
	return b.registry, nil
}
