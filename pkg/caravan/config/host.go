package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

// Host abstracts the platform-specific directories the tool reads and
// mutates. Production code uses DefaultHost; tests substitute fixed
// paths.
type Host interface {
	// ProfileDir is where the managed game profile lives.
	ProfileDir() (string, error)

	// LocalLowDir is the root under which the game engine writes its
	// own per-user data.
	LocalLowDir() (string, error)
}

// DefaultHost resolves directories for the running platform.
type DefaultHost struct{}

// ProfileDir returns the platform default profile location.
func (DefaultHost) ProfileDir() (string, error) {
	if runtime.GOOS == "windows" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, "AppData", "Roaming", "Caravan", "profile"), nil
	}
	return filepath.Join(xdg.DataHome, AppName, "profile"), nil
}

// LocalLowDir returns the engine data root. On non-Windows platforms the
// Proton prefix layout is not guessed; the XDG data home stands in and
// the scoped subdirectory settings do the narrowing.
func (DefaultHost) LocalLowDir() (string, error) {
	if runtime.GOOS == "windows" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, "AppData", "LocalLow"), nil
	}
	return xdg.DataHome, nil
}

// StaticHost is a Host with fixed directories, for tests and for callers
// that already resolved paths themselves.
type StaticHost struct {
	Profile  string
	LocalLow string
}

func (h StaticHost) ProfileDir() (string, error)  { return h.Profile, nil }
func (h StaticHost) LocalLowDir() (string, error) { return h.LocalLow, nil }
