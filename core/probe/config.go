package probe

import (
	"fmt"
	"time"
)

// BaseConfig contains configuration common to all providers.
type BaseConfig struct {
	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model is the default model to probe.
	Model string `json:"model" yaml:"model"`

	// MaxTokens caps the generated sample length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the sampling temperature (0.0-2.0).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout for API requests.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries for transient failures.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// DefaultBaseConfig returns the standard probe settings.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		MaxTokens:   2048,
		Temperature: 0.7,
		Timeout:     2 * time.Minute,
		MaxRetries:  3,
	}
}

// Validate checks the base configuration.
func (c *BaseConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

// AnthropicConfig contains Anthropic-specific configuration.
type AnthropicConfig struct {
	BaseConfig `json:",inline" yaml:",inline"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// DefaultAnthropicConfig returns Anthropic defaults.
func DefaultAnthropicConfig() AnthropicConfig {
	base := DefaultBaseConfig()
	base.Model = "claude-sonnet-4-5"
	return AnthropicConfig{BaseConfig: base}
}

func (c *AnthropicConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return fmt.Errorf("anthropic config: %w", err)
	}
	return nil
}

// OpenAIConfig configures the OpenAI adapter. The same adapter serves
// OpenRouter and Ollama through BaseURL, so Flavor carries the registry
// name the instance answers to.
type OpenAIConfig struct {
	BaseConfig `json:",inline" yaml:",inline"`

	// Flavor is the provider name this instance reports. Empty means
	// plain "openai".
	Flavor ProviderType `json:"flavor,omitempty" yaml:"flavor,omitempty"`

	// BaseURL overrides the default API endpoint (OpenRouter, Ollama,
	// Azure, proxies).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Organization ID forwarded to OpenAI.
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
}

// DefaultOpenAIConfig returns OpenAI defaults.
func DefaultOpenAIConfig() OpenAIConfig {
	base := DefaultBaseConfig()
	base.Model = "gpt-5.2"
	return OpenAIConfig{BaseConfig: base}
}

// OpenRouterConfig returns an OpenAI-flavor config aimed at OpenRouter's
// gateway.
func OpenRouterConfig(model, apiKey string) OpenAIConfig {
	base := DefaultBaseConfig()
	base.Model = model
	base.APIKey = apiKey
	return OpenAIConfig{
		BaseConfig: base,
		Flavor:     ProviderTypeOpenRouter,
		BaseURL:    "https://openrouter.ai/api/v1",
	}
}

// OllamaConfig returns an OpenAI-flavor config aimed at a local Ollama
// daemon. Ollama ignores the key but the OpenAI-compatible endpoint
// requires one to be present.
func OllamaConfig(model string) OpenAIConfig {
	base := DefaultBaseConfig()
	base.Model = model
	base.APIKey = "ollama"
	return OpenAIConfig{
		BaseConfig: base,
		Flavor:     ProviderTypeOllama,
		BaseURL:    "http://localhost:11434/v1",
	}
}

func (c *OpenAIConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return fmt.Errorf("%s config: %w", c.flavorName(), err)
	}
	return nil
}

func (c *OpenAIConfig) flavorName() ProviderType {
	if c.Flavor == "" {
		return ProviderTypeOpenAI
	}
	return c.Flavor
}

// GoogleConfig contains Gemini-specific configuration.
type GoogleConfig struct {
	BaseConfig `json:",inline" yaml:",inline"`

	// ProjectID for Vertex AI (optional, uses the Gemini API if not set).
	ProjectID string `json:"project_id,omitempty" yaml:"project_id,omitempty"`

	// Location for Vertex AI (e.g. "us-central1").
	Location string `json:"location,omitempty" yaml:"location,omitempty"`

	// UseVertexAI switches from the Gemini API to Vertex AI.
	UseVertexAI bool `json:"use_vertex_ai" yaml:"use_vertex_ai"`
}

// DefaultGoogleConfig returns Gemini defaults.
func DefaultGoogleConfig() GoogleConfig {
	base := DefaultBaseConfig()
	base.Model = "gemini-3-pro-preview"
	return GoogleConfig{
		BaseConfig: base,
		Location:   "us-central1",
	}
}

func (c *GoogleConfig) Validate() error {
	if err := c.BaseConfig.Validate(); err != nil {
		return fmt.Errorf("google config: %w", err)
	}
	if c.UseVertexAI && c.ProjectID == "" {
		return fmt.Errorf("google config: project_id required for Vertex AI")
	}
	return nil
}

// ProviderType identifies the provider a registry entry answers to.
type ProviderType string

const (
	ProviderTypeAnthropic  ProviderType = "anthropic"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeGoogle     ProviderType = "google"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOllama     ProviderType = "ollama"
)
