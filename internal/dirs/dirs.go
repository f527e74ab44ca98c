// Package dirs locates per-user directories for configuration, the media
// info cache, and logs.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "mediakiller"

// CacheFileName is the media info cache inside CacheDir.
const CacheFileName = "mediainfo.csv"

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// kind describes one directory class: its XDG variable and fallbacks.
type kind struct {
	xdgEnv   string
	xdgHome  []string // under $HOME on Linux
	darwin   []string // under $HOME on macOS
	fallback func() (string, error)
}

var (
	configKind = kind{"XDG_CONFIG_HOME", []string{".config"}, []string{"Library", "Application Support"}, os.UserConfigDir}
	cacheKind  = kind{"XDG_CACHE_HOME", []string{".cache"}, []string{"Library", "Caches"}, os.UserCacheDir}
	stateKind  = kind{"XDG_STATE_HOME", []string{".local", "state"}, []string{"Library", "Logs"}, os.UserCacheDir}
)

func (k kind) dir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append(append([]string{home}, k.darwin...), AppName())...), nil
	case "linux":
		if xdg := os.Getenv(k.xdgEnv); xdg != "" {
			return filepath.Join(xdg, AppName()), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append(append([]string{home}, k.xdgHome...), AppName())...), nil
	default:
		base, err := k.fallback()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, AppName()), nil
	}
}

// ConfigDir holds config.{yaml,toml,json} and user presets.
// Linux: $XDG_CONFIG_HOME/mediakiller or ~/.config/mediakiller.
func ConfigDir() (string, error) { return configKind.dir() }

// CacheDir holds the media info cache.
// Linux: $XDG_CACHE_HOME/mediakiller or ~/.cache/mediakiller.
func CacheDir() (string, error) { return cacheKind.dir() }

// StateDir holds run logs.
// Linux: $XDG_STATE_HOME/mediakiller or ~/.local/state/mediakiller.
func StateDir() (string, error) { return stateKind.dir() }

// CacheFile returns the default media info cache path.
func CacheFile() (string, error) {
	d, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, CacheFileName), nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll ensures config, cache, and state dirs exist.
func EnsureAll() error {
	for _, fn := range []func() (string, error){ConfigDir, CacheDir, StateDir} {
		p, err := fn()
		if err != nil {
			continue
		}
		if err := Ensure(p); err != nil {
			return err
		}
	}
	return nil
}
