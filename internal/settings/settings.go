// Package settings loads the wrapper's user-level settings from defaults,
// an optional config.toml and FEATURESCOPE_* environment variables.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

const (
	AppName   = "featurescope"
	EnvPrefix = "FEATURESCOPE"
	FileName  = "config.toml"
)

// Settings are the user-tunable knobs. Workspace configuration lives in
// featurescope.toml files, never here.
type Settings struct {
	// Go is the toolchain binary the wrapper runs.
	Go       string `mapstructure:"go"`
	LogLevel string `mapstructure:"log_level"`
	// Cache enables the resolved-plan cache.
	Cache bool `mapstructure:"cache"`
	// CacheDir holds the cache database; empty means <workspace>/.featurescope.
	CacheDir string `mapstructure:"cache_dir"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{
		Go:       "go",
		LogLevel: "warn",
		Cache:    true,
	}
}

// Level parses LogLevel.
func (s *Settings) Level() (log.Level, error) {
	return log.ParseLevel(s.LogLevel)
}

// LoadOptions overrides where the config file is looked up.
type LoadOptions struct {
	// ConfigFile is used exclusively when set and must exist.
	ConfigFile string
	// ConfigDir replaces the platform config directory.
	ConfigDir string
}

// Dir returns $XDG_CONFIG_HOME/featurescope, falling back to the platform's
// user config directory.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// Load resolves the settings. It returns the path of the config file that
// was read, or "" when none was.
func Load(ctx context.Context, opts LoadOptions) (*Settings, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load settings canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	defaults := Defaults()
	v.SetDefault("go", defaults.Go)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("cache", defaults.Cache)
	v.SetDefault("cache_dir", defaults.CacheDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.ConfigFile
	if path == "" {
		dir := opts.ConfigDir
		if dir == "" {
			var err error
			if dir, err = Dir(); err != nil {
				return nil, "", err
			}
		}
		path = filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, "", fmt.Errorf("stat %s: %w", path, err)
			}
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, "", fmt.Errorf("failed to parse settings: %w", err)
	}
	if s.Go == "" {
		return nil, "", errors.New("settings: go must not be empty")
	}
	if _, err := s.Level(); err != nil {
		return nil, "", fmt.Errorf("settings: log_level: %w", err)
	}
	return &s, path, nil
}
