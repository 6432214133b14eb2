package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/perihelion-labs/ldsi/core/storage"
)

func testDirs(t *testing.T) *storage.Dirs {
	t.Helper()
	return &storage.Dirs{
		Config: t.TempDir(),
		Data:   t.TempDir(),
		Cache:  t.TempDir(),
		State:  t.TempDir(),
	}
}

// testManager isolates the project root so a .ldsi/ directory in the
// working tree cannot leak into test loads.
func testManager(t *testing.T, dirs *storage.Dirs) *Manager {
	t.Helper()
	m := NewManager(dirs)
	m.projectRoot = t.TempDir()
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scoring.Coefficients.Alpha != 0.50 {
		t.Errorf("Alpha: got %v, want 0.50", cfg.Scoring.Coefficients.Alpha)
	}
	if cfg.Scoring.Thresholds.Architect != 1.2 {
		t.Errorf("Architect threshold: got %v, want 1.2", cfg.Scoring.Thresholds.Architect)
	}
	if cfg.Probe.DefaultProvider != "openrouter" {
		t.Errorf("DefaultProvider: got %s, want openrouter", cfg.Probe.DefaultProvider)
	}
	if cfg.Probe.Timeout != 2*time.Minute {
		t.Errorf("Probe.Timeout: got %v, want 2m", cfg.Probe.Timeout)
	}
	if cfg.Probe.Providers["ollama"].BaseURL != "http://localhost:11434/v1" {
		t.Errorf("ollama base URL: got %s", cfg.Probe.Providers["ollama"].BaseURL)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port: got %d, want 3000", cfg.Server.Port)
	}
	if !cfg.Audit.Enabled {
		t.Error("Audit.Enabled should default to true")
	}
}

func TestManagerGet(t *testing.T) {
	m := NewManager(testDirs(t))

	cfg := m.Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Probe.DefaultProvider != "openrouter" {
		t.Errorf("Default provider should be openrouter")
	}
}

func TestManagerLoadFromUserFile(t *testing.T) {
	dirs := testDirs(t)

	configContent := `
scoring:
  coefficients:
    alpha: 0.4
    beta: 0.35
    gamma: 0.25
probe:
  default_provider: anthropic
  max_retries: 5
`
	configPath := filepath.Join(dirs.Config, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	m := testManager(t, dirs)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	if cfg.Scoring.Coefficients.Alpha != 0.4 {
		t.Errorf("Alpha: got %v, want 0.4", cfg.Scoring.Coefficients.Alpha)
	}
	if cfg.Probe.DefaultProvider != "anthropic" {
		t.Errorf("Provider: got %s, want anthropic", cfg.Probe.DefaultProvider)
	}
	if cfg.Probe.MaxRetries != 5 {
		t.Errorf("MaxRetries: got %d, want 5", cfg.Probe.MaxRetries)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Untouched Server.Port should keep default: got %d", cfg.Server.Port)
	}
}

func TestManagerProjectOverridesUser(t *testing.T) {
	dirs := testDirs(t)

	userConfig := "server:\n  port: 4000\n"
	if err := os.WriteFile(filepath.Join(dirs.Config, "config.yaml"), []byte(userConfig), 0644); err != nil {
		t.Fatalf("Write user config: %v", err)
	}

	projectRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(projectRoot, ".ldsi"), 0755); err != nil {
		t.Fatalf("Mkdir project dir: %v", err)
	}
	projectConfig := "server:\n  port: 5000\n"
	if err := os.WriteFile(filepath.Join(projectRoot, ".ldsi", "config.yaml"), []byte(projectConfig), 0644); err != nil {
		t.Fatalf("Write project config: %v", err)
	}

	m := NewManager(dirs)
	m.projectRoot = projectRoot
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Get().Server.Port != 5000 {
		t.Errorf("Port: got %d, want project value 5000", m.Get().Server.Port)
	}
}

func TestManagerEnvironmentOverride(t *testing.T) {
	t.Setenv("LDSI_SCORING_ALPHA", "0.9")
	t.Setenv("LDSI_PROBE_DEFAULT_PROVIDER", "ollama")
	t.Setenv("LDSI_SERVER_PORT", "4100")

	m := testManager(t, testDirs(t))
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	if cfg.Scoring.Coefficients.Alpha != 0.9 {
		t.Errorf("Alpha: got %v, want 0.9", cfg.Scoring.Coefficients.Alpha)
	}
	if cfg.Probe.DefaultProvider != "ollama" {
		t.Errorf("Provider: got %s, want ollama", cfg.Probe.DefaultProvider)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Port: got %d, want 4100", cfg.Server.Port)
	}
}

func TestManagerProviderKeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")

	m := testManager(t, testDirs(t))
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	pc := m.Get().Probe.Providers["openrouter"]
	if pc.APIKey != "sk-or-test" {
		t.Errorf("APIKey: got %s, want sk-or-test", pc.APIKey)
	}
	if pc.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("BaseURL should survive key injection: got %s", pc.BaseURL)
	}
}

func TestManagerPartialProviderEntryKeepsEndpoint(t *testing.T) {
	dirs := testDirs(t)

	configContent := `
probe:
  providers:
    openrouter:
      api_key: sk-from-file
`
	if err := os.WriteFile(filepath.Join(dirs.Config, "config.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("Write config: %v", err)
	}

	m := testManager(t, dirs)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	pc := m.Get().Probe.Providers["openrouter"]
	if pc.APIKey != "sk-from-file" {
		t.Errorf("APIKey: got %s, want sk-from-file", pc.APIKey)
	}
	if pc.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("BaseURL should be backfilled: got %s", pc.BaseURL)
	}
}

func TestManagerOnChange(t *testing.T) {
	m := testManager(t, testDirs(t))

	called := false
	m.OnChange(func(cfg *Config) {
		called = true
	})

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !called {
		t.Error("OnChange callback should have been called")
	}
}

func TestManagerReload(t *testing.T) {
	dirs := testDirs(t)
	configPath := filepath.Join(dirs.Config, "config.yaml")

	if err := os.WriteFile(configPath, []byte("probe:\n  max_retries: 3"), 0644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	m := testManager(t, dirs)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Get().Probe.MaxRetries != 3 {
		t.Errorf("Initial MaxRetries: got %d, want 3", m.Get().Probe.MaxRetries)
	}

	if err := os.WriteFile(configPath, []byte("probe:\n  max_retries: 7"), 0644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := m.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if m.Get().Probe.MaxRetries != 7 {
		t.Errorf("Reloaded MaxRetries: got %d, want 7", m.Get().Probe.MaxRetries)
	}
}

func TestManagerClose(t *testing.T) {
	m := NewManager(testDirs(t))

	if err := m.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Double close should not fail: %v", err)
	}
}
