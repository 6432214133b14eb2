package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perihelion-labs/ldsi/core/probe"
)

// =============================================================================
// Command Definition Tests
// =============================================================================

func TestModelsCmd_Definition(t *testing.T) {
	assert.Equal(t, "models", modelsCmd.Use)

	flag := modelsCmd.Flags().Lookup("json")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

// =============================================================================
// Table Rendering Tests
// =============================================================================

func TestPrintModelTable(t *testing.T) {
	models := []probe.ModelInfo{
		{ID: "llama3.3", Name: "Llama 3.3", Provider: "Local", Category: "Open"},
		{ID: "vendor/long-model", Name: "an-extremely-long-model-name-for-width", Provider: "Test", Category: "Premium"},
	}

	var buf bytes.Buffer
	printModelTable(&buf, models)
	out := buf.String()

	assert.Contains(t, out, "Llama 3.3")
	assert.Contains(t, out, "llama3.3")
	assert.Contains(t, out, "Open")

	// Test runs without a TTY, so the name column clamps to 28 columns
	// and long names pick up an ellipsis. IDs are never cut.
	assert.Contains(t, out, "an-extremely-long-model-n...")
	assert.NotContains(t, out, "an-extremely-long-model-name-for-width")
	assert.Contains(t, out, "vendor/long-model")
}

// =============================================================================
// Command Execution Tests
// =============================================================================

func TestModelsCmd_Text(t *testing.T) {
	isolateEnv(t)

	out, err := executeCommand(t, "models")
	require.NoError(t, err)

	// A clean environment carries no API keys, so only the keyless local
	// daemon counts as configured, and it is not the default provider.
	assert.Contains(t, out, "configured providers: ollama")
	assert.NotContains(t, out, "ollama*")

	assert.Contains(t, out, "OpenRouter")
	assert.Contains(t, out, "Ollama (local)")
	assert.Contains(t, out, "anthropic/claude-opus-4.5")
	assert.Contains(t, out, "deepseek-r1")
	assert.Contains(t, out, "Premium")
}

func TestModelsCmd_JSON(t *testing.T) {
	isolateEnv(t)
	defer func() { modelsJSON = false }()

	out, err := executeCommand(t, "models", "--json")
	require.NoError(t, err)

	var listing struct {
		Providers       []string      `json:"providers"`
		DefaultProvider string        `json:"default_provider"`
		Catalog         probe.Catalog `json:"catalog"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listing))

	assert.Equal(t, []string{"ollama"}, listing.Providers)
	assert.Empty(t, listing.DefaultProvider)
	assert.NotEmpty(t, listing.Catalog.OpenRouter)
	assert.NotEmpty(t, listing.Catalog.Ollama)

	_, ok := listing.Catalog.Find("anthropic/claude-opus-4.5")
	assert.True(t, ok)
}
