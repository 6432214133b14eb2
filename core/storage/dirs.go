// Package storage provides platform-native directory resolution with XDG support.
package storage

import (
	"os"
	"path/filepath"
	"sync"
)

// Dirs provides platform-native directory resolution with XDG support.
type Dirs struct {
	Config string // User configuration (settings, provider keys)
	Data   string // Persistent data (audit logs, result store, golden sets)
	Cache  string // Regenerable cache (score cache spill)
	State  string // Runtime state (logs, server pid)
}

// ProjectDirs returns project-local directories.
type ProjectDirs struct {
	Root   string // .ldsi/
	Config string // .ldsi/config.yaml (committed)
	Audits string // .ldsi/audits/ (gitignored)
}

var (
	globalDirs     *Dirs
	globalDirsOnce sync.Once
	globalDirsErr  error
)

// ResolveDirs returns platform-appropriate directories.
// Results are cached after first call.
func ResolveDirs() (*Dirs, error) {
	globalDirsOnce.Do(func() {
		globalDirs, globalDirsErr = resolveDirsImpl()
	})
	return globalDirs, globalDirsErr
}

func resolveDirsImpl() (*Dirs, error) {
	dirs := &Dirs{
		Config: resolveDir("XDG_CONFIG_HOME", platformConfigDefault()),
		Data:   resolveDir("XDG_DATA_HOME", platformDataDefault()),
		Cache:  resolveDir("XDG_CACHE_HOME", platformCacheDefault()),
		State:  resolveDir("XDG_STATE_HOME", platformStateDefault()),
	}
	return dirs, nil
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, "ldsi")
	}
	return fallback
}

// ResolveProjectDirs returns project-local directories for the given project root.
func ResolveProjectDirs(projectRoot string) *ProjectDirs {
	ldsiDir := filepath.Join(projectRoot, ".ldsi")
	return &ProjectDirs{
		Root:   ldsiDir,
		Config: filepath.Join(ldsiDir, "config.yaml"),
		Audits: filepath.Join(ldsiDir, "audits"),
	}
}

// EnsureDir creates a directory with the specified permissions if it doesn't exist.
// Uses 0700 for sensitive directories by default.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0700
	}
	return os.MkdirAll(path, perm)
}

// EnsureSensitiveDir creates a directory with restricted permissions (0700).
func EnsureSensitiveDir(path string) error {
	return EnsureDir(path, 0700)
}

// EnsureStandardDir creates a directory with standard permissions (0755).
func EnsureStandardDir(path string) error {
	return EnsureDir(path, 0755)
}

// ConfigDir returns the config subdirectory path.
func (d *Dirs) ConfigDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Config}, subpath...)...)
}

// DataDir returns the data subdirectory path.
func (d *Dirs) DataDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Data}, subpath...)...)
}

// CacheDir returns the cache subdirectory path.
func (d *Dirs) CacheDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Cache}, subpath...)...)
}

// StateDir returns the state subdirectory path.
func (d *Dirs) StateDir(subpath ...string) string {
	return filepath.Join(append([]string{d.State}, subpath...)...)
}

// AuditDir returns the audit log directory.
func (d *Dirs) AuditDir() string {
	return d.DataDir("audits")
}

// StoreDir returns the result store directory.
func (d *Dirs) StoreDir() string {
	return d.DataDir("store")
}

// LogDir returns the log directory.
func (d *Dirs) LogDir() string {
	return d.StateDir("logs")
}

// EnsureAll creates all standard directories with appropriate permissions.
func (d *Dirs) EnsureAll() error {
	// Provider keys live under config, so it stays 0700.
	if err := EnsureSensitiveDir(d.Config); err != nil {
		return err
	}

	standardDirs := []string{
		d.Data,
		d.AuditDir(),
		d.StoreDir(),
		d.Cache,
		d.State,
		d.LogDir(),
	}
	for _, dir := range standardDirs {
		if err := EnsureStandardDir(dir); err != nil {
			return err
		}
	}
	return nil
}
