package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/perihelion-labs/ldsi/core/cleaner"
	"github.com/perihelion-labs/ldsi/core/scoring"
	"github.com/perihelion-labs/ldsi/core/storage"
	"gopkg.in/yaml.v3"
)

// Manager layers configuration from defaults, the user file, the project
// file, and LDSI_* environment variables, in that order. Reads are
// lock-free through an atomic pointer; Load and Reload swap the whole
// snapshot.
type Manager struct {
	configPtr   unsafe.Pointer
	dirs        *storage.Dirs
	projectRoot string
	watchers    []func(*Config)
	watcherMu   sync.RWMutex
	closeOnce   sync.Once
}

type Config struct {
	Scoring     ScoringConfig     `yaml:"scoring"`
	Cleaner     cleaner.Config    `yaml:"cleaner"`
	Probe       ProbeConfig       `yaml:"probe"`
	Audit       AuditConfig       `yaml:"audit"`
	Server      ServerConfig      `yaml:"server"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Log         LogConfig         `yaml:"log"`
}

// ScoringConfig overrides the library-owned scoring defaults. The
// canonical values live in core/scoring; config never redefines them.
type ScoringConfig struct {
	Coefficients scoring.Coefficients `yaml:"coefficients"`
	Thresholds   scoring.Thresholds   `yaml:"thresholds"`
	CacheEntries int64                `yaml:"cache_entries"`
	BatchWorkers int                  `yaml:"batch_workers"`
}

type ProbeConfig struct {
	DefaultProvider string                    `yaml:"default_provider"`
	Timeout         time.Duration             `yaml:"timeout"`
	Temperature     float64                   `yaml:"temperature"`
	MaxTokens       int                       `yaml:"max_tokens"`
	MaxRetries      int                       `yaml:"max_retries"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
}

// ProviderConfig carries per-provider credentials and endpoints. Keys are
// normally supplied through the conventional environment variables rather
// than files.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type AuditConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Dir          string `yaml:"dir"`
	StorePath    string `yaml:"store_path"`
	MaxFileBytes int64  `yaml:"max_file_bytes"`
	HotEntries   int64  `yaml:"hot_entries"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

type CalibrationConfig struct {
	Workers int    `yaml:"workers"`
	Dataset string `yaml:"dataset"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewLogger builds a slog logger per the configured level and format,
// writing to stderr so command output stays clean on stdout.
func (l LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(l.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(l.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func NewManager(dirs *storage.Dirs) *Manager {
	m := &Manager{
		dirs:        dirs,
		projectRoot: ".",
	}
	cfg := DefaultConfig()
	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	return m
}

func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			Coefficients: scoring.DefaultCoefficients(),
			Thresholds:   scoring.DefaultThresholds(),
			CacheEntries: 4096,
			BatchWorkers: 4,
		},
		Cleaner: cleaner.DefaultConfig(),
		Probe: ProbeConfig{
			DefaultProvider: "openrouter",
			Timeout:         2 * time.Minute,
			Temperature:     0.7,
			MaxTokens:       2048,
			MaxRetries:      3,
			Providers: map[string]ProviderConfig{
				"anthropic":  {},
				"openai":     {},
				"google":     {},
				"openrouter": {BaseURL: "https://openrouter.ai/api/v1"},
				"ollama":     {BaseURL: "http://localhost:11434/v1", APIKey: "ollama"},
			},
		},
		Audit: AuditConfig{
			Enabled:      true,
			MaxFileBytes: 10 << 20,
			HotEntries:   2048,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Calibration: CalibrationConfig{
			Workers: runtime.NumCPU(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (m *Manager) Get() *Config {
	return (*Config)(atomic.LoadPointer(&m.configPtr))
}

func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := m.loadUserConfig(cfg); err != nil {
		return fmt.Errorf("user config: %w", err)
	}

	if err := m.loadProjectConfig(cfg); err != nil {
		return fmt.Errorf("project config: %w", err)
	}

	m.applyEnvironment(cfg)
	normalize(cfg)

	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	m.notifyWatchers(cfg)

	return nil
}

// normalize backfills provider endpoints that a partial file entry would
// otherwise wipe: decoding a map element replaces the whole struct, so a
// file setting only api_key loses the default base_url.
func normalize(cfg *Config) {
	if cfg.Probe.Providers == nil {
		cfg.Probe.Providers = make(map[string]ProviderConfig)
	}
	defaults := DefaultConfig().Probe.Providers
	for name, def := range defaults {
		pc, ok := cfg.Probe.Providers[name]
		if !ok {
			cfg.Probe.Providers[name] = def
			continue
		}
		if pc.BaseURL == "" {
			pc.BaseURL = def.BaseURL
		}
		if pc.APIKey == "" {
			pc.APIKey = def.APIKey
		}
		cfg.Probe.Providers[name] = pc
	}
}

func (m *Manager) loadUserConfig(cfg *Config) error {
	return m.loadYAMLFile(m.dirs.ConfigDir("config.yaml"), cfg)
}

func (m *Manager) loadProjectConfig(cfg *Config) error {
	projectDirs := storage.ResolveProjectDirs(m.projectRoot)
	return m.loadYAMLFile(projectDirs.Config, cfg)
}

func (m *Manager) loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) applyEnvironment(cfg *Config) {
	if v := os.Getenv("LDSI_SCORING_ALPHA"); v != "" {
		if f, err := parseFloat(v); err == nil {
			cfg.Scoring.Coefficients.Alpha = f
		}
	}
	if v := os.Getenv("LDSI_SCORING_BETA"); v != "" {
		if f, err := parseFloat(v); err == nil {
			cfg.Scoring.Coefficients.Beta = f
		}
	}
	if v := os.Getenv("LDSI_SCORING_GAMMA"); v != "" {
		if f, err := parseFloat(v); err == nil {
			cfg.Scoring.Coefficients.Gamma = f
		}
	}
	if v := os.Getenv("LDSI_PROBE_DEFAULT_PROVIDER"); v != "" {
		cfg.Probe.DefaultProvider = v
	}
	if v := os.Getenv("LDSI_PROBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Probe.Timeout = d
		}
	}
	if v := os.Getenv("LDSI_PROBE_MAX_RETRIES"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.Probe.MaxRetries = n
		}
	}
	if v := os.Getenv("LDSI_SERVER_PORT"); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("LDSI_AUDIT_DIR"); v != "" {
		cfg.Audit.Dir = v
	}
	if v := os.Getenv("LDSI_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LDSI_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	m.applyProviderKeys(cfg)
}

// applyProviderKeys reads the conventional per-provider environment
// variables. Environment wins over file values so keys never have to
// live on disk.
func (m *Manager) applyProviderKeys(cfg *Config) {
	if cfg.Probe.Providers == nil {
		cfg.Probe.Providers = make(map[string]ProviderConfig)
	}
	keyVars := map[string]string{
		"anthropic":  "ANTHROPIC_API_KEY",
		"openai":     "OPENAI_API_KEY",
		"google":     "GEMINI_API_KEY",
		"openrouter": "OPENROUTER_API_KEY",
	}
	for name, envVar := range keyVars {
		if v := os.Getenv(envVar); v != "" {
			pc := cfg.Probe.Providers[name]
			pc.APIKey = v
			cfg.Probe.Providers[name] = pc
		}
	}
}

func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func (m *Manager) Reload() error {
	return m.Load()
}

func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.watcherMu.Lock()
		m.watchers = nil
		m.watcherMu.Unlock()
	})
	return nil
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%f", &f)
	return f, err
}
