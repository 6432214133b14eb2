//go:build windows

package storage

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	return filepath.Join(os.Getenv("APPDATA"), "ldsi", "config")
}

func platformDataDefault() string {
	return filepath.Join(os.Getenv("APPDATA"), "ldsi", "data")
}

func platformCacheDefault() string {
	return filepath.Join(os.Getenv("LOCALAPPDATA"), "ldsi", "cache")
}

func platformStateDefault() string {
	return filepath.Join(os.Getenv("LOCALAPPDATA"), "ldsi", "state")
}
