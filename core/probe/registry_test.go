package probe_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFirstRegistrationBecomesDefault(t *testing.T) {
	reg := probe.NewRegistry()
	require.NoError(t, reg.Register(probe.ProviderTypeAnthropic, &stubProvider{name: "first"}))
	require.NoError(t, reg.Register(probe.ProviderTypeOllama, &stubProvider{name: "second"}))

	def, err := reg.Default()
	require.NoError(t, err)
	assert.Equal(t, "first", def.Name())
}

func TestRegistryGetUnknownProvider(t *testing.T) {
	reg := probe.NewRegistry()

	_, err := reg.Get(probe.ProviderTypeGoogle)
	require.Error(t, err)
	assert.Equal(t, errors.TierUserFixable, errors.GetTier(err))

	_, err = reg.Default()
	require.Error(t, err)
}

func TestRegistrySetDefault(t *testing.T) {
	reg := probe.NewRegistry()
	require.NoError(t, reg.Register(probe.ProviderTypeAnthropic, &stubProvider{name: "anthropic"}))
	require.NoError(t, reg.Register(probe.ProviderTypeOllama, &stubProvider{name: "ollama"}))

	require.NoError(t, reg.SetDefault(probe.ProviderTypeOllama))
	def, err := reg.Default()
	require.NoError(t, err)
	assert.Equal(t, "ollama", def.Name())

	assert.Error(t, reg.SetDefault(probe.ProviderTypeGoogle))
}

func TestRegistryRejectsInvalidProvider(t *testing.T) {
	reg := probe.NewRegistry()
	bad := &stubProvider{invalid: fmt.Errorf("api_key is required")}

	require.Error(t, reg.Register(probe.ProviderTypeOpenAI, bad))
	assert.False(t, reg.Has(probe.ProviderTypeOpenAI))
}

func TestRegistryAvailableSorted(t *testing.T) {
	reg := probe.NewRegistry()
	require.NoError(t, reg.Register(probe.ProviderTypeOpenRouter, &stubProvider{}))
	require.NoError(t, reg.Register(probe.ProviderTypeAnthropic, &stubProvider{}))
	require.NoError(t, reg.Register(probe.ProviderTypeOllama, &stubProvider{}))

	assert.Equal(t, []probe.ProviderType{
		probe.ProviderTypeAnthropic,
		probe.ProviderTypeOllama,
		probe.ProviderTypeOpenRouter,
	}, reg.Available())
}

func TestRegistryGetForModel(t *testing.T) {
	reg := probe.NewRegistry()
	claude := &stubProvider{name: "claude", modelPrefix: "claude-"}
	gemini := &stubProvider{name: "gemini", modelPrefix: "gemini-"}
	require.NoError(t, reg.Register(probe.ProviderTypeAnthropic, claude))
	require.NoError(t, reg.Register(probe.ProviderTypeGoogle, gemini))

	p, err := reg.GetForModel("gemini-3-pro-preview")
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	_, err = reg.GetForModel("gpt-5.2")
	require.Error(t, err)
	assert.Equal(t, errors.TierUserFixable, errors.GetTier(err))
}

func TestRegistryCloseAggregatesErrors(t *testing.T) {
	reg := probe.NewRegistry()
	require.NoError(t, reg.Register(probe.ProviderTypeAnthropic, &stubProvider{}))
	require.NoError(t, reg.Register(probe.ProviderTypeOllama, &stubProvider{closeErr: fmt.Errorf("socket already closed")}))

	require.Error(t, reg.Close())
}

func TestRegistryRegisterOpenAIFlavors(t *testing.T) {
	reg := probe.NewRegistry()

	base := probe.DefaultOpenAIConfig()
	base.APIKey = "sk-test"
	require.NoError(t, reg.RegisterOpenAI(base))
	require.NoError(t, reg.RegisterOpenAI(probe.OpenRouterConfig("anthropic/claude-opus-4.5", "sk-or-test")))
	require.NoError(t, reg.RegisterOpenAI(probe.OllamaConfig("llama3.3")))

	assert.Equal(t, []probe.ProviderType{
		probe.ProviderTypeOllama,
		probe.ProviderTypeOpenAI,
		probe.ProviderTypeOpenRouter,
	}, reg.Available())

	def, err := reg.Default()
	require.NoError(t, err)
	assert.Equal(t, "openai", def.Name())
}

func TestRegistryBuilderBuild(t *testing.T) {
	anthropic := probe.DefaultAnthropicConfig()
	anthropic.APIKey = "sk-ant-test"

	reg, err := probe.NewRegistryBuilder(context.Background()).
		WithAnthropic(anthropic).
		WithOpenAI(probe.OllamaConfig("llama3.3")).
		WithDefault(probe.ProviderTypeOllama).
		Build()
	require.NoError(t, err)

	def, err := reg.Default()
	require.NoError(t, err)
	assert.Equal(t, "ollama", def.Name())
	assert.True(t, reg.Has(probe.ProviderTypeAnthropic))
}

func TestRegistryBuilderCollectsErrors(t *testing.T) {
	_, err := probe.NewRegistryBuilder(context.Background()).
		WithAnthropic(probe.DefaultAnthropicConfig()).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic")
}
