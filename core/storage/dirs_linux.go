//go:build linux || darwin

package storage

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "ldsi")
}

func platformDataDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "ldsi")
}

func platformCacheDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "ldsi")
}

func platformStateDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "state", "ldsi")
}
