// Package cmd provides the ldsi command line interface.
package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/perihelion-labs/ldsi/core/audit"
	"github.com/perihelion-labs/ldsi/core/config"
	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/storage"
)

var rootCmd = &cobra.Command{
	Use:   "ldsi",
	Short: "Lyapunov-Dabert Stability Index - white box LLM benchmark",
	Long: `LDSI measures the divergence between two LLM responses through:
  - NCD: normalized compression distance (Kolmogorov approximation)
  - Shannon entropy: informational richness
  - Topology: structural coherence of the co-occurrence graph

Lambda score bands (defaults):
  0.0 - 0.3  ZOMBIE     the model recites
  0.3 - 0.7  REBEL      notable divergence
  0.7 - 1.2  ARCHITECT  optimal zone
  > 1.2      FOOL       collapse or hallucination`,
	SilenceUsage: true,
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.InvalidInputf("%v", err)
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps a command error to the process exit code: 0 on success,
// 2 for invalid input or usage, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.GetTier(err) == errors.TierUserFixable {
		return 2
	}
	return 1
}

// exactArgs wraps the cobra validator so argument-count mistakes exit
// with the usage code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return errors.InvalidInputf("%v", err)
		}
		return nil
	}
}

// loadConfig resolves the layered configuration: defaults, user file,
// project file, then LDSI_* environment variables.
func loadConfig() (*config.Config, error) {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return nil, err
	}
	manager := config.NewManager(dirs)
	if err := manager.Load(); err != nil {
		return nil, errors.WrapWithTier(err, errors.TierUserFixable, "cannot load configuration")
	}
	return manager.Get(), nil
}

// auditPaths resolves the audit log file and result store location from
// configuration, falling back to the platform data directory.
func auditPaths(cfg *config.Config) (logPath, storePath string, err error) {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return "", "", err
	}

	auditDir := cfg.Audit.Dir
	if auditDir == "" {
		auditDir = dirs.AuditDir()
	}
	logPath = filepath.Join(auditDir, "run.jsonl")

	storePath = cfg.Audit.StorePath
	if storePath == "" {
		storePath = filepath.Join(dirs.StoreDir(), "results.db")
	}
	return logPath, storePath, nil
}

// openAudit opens the result store and the chained log per configuration.
// A disabled audit section returns nils without error.
func openAudit(cfg *config.Config) (*audit.Store, *audit.Log, error) {
	if !cfg.Audit.Enabled {
		return nil, nil, nil
	}

	logPath, storePath, err := auditPaths(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := audit.NewStore(audit.StoreConfig{
		DBPath:      storePath,
		MaxCost:     cfg.Audit.HotEntries * 1024,
		NumCounters: cfg.Audit.HotEntries * 10,
	})
	if err != nil {
		return nil, nil, err
	}

	log, err := audit.NewLog(audit.LogConfig{
		Path:        logPath,
		RotateBytes: cfg.Audit.MaxFileBytes,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, log, nil
}
