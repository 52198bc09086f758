// Package config loads scenebridge settings from a TOML file and the
// environment. Environment flags win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Environment flags, read once when a bridge is opened.
const (
	EnvRelativeReferences = "SCENEBRIDGE_RELATIVE_REFERENCES"
	EnvAsyncDestroy       = "SCENEBRIDGE_ASYNC_DESTROY"
)

// Config is the full settings tree.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Bridge BridgeConfig `toml:"bridge"`
	Export ExportConfig `toml:"export"`
	Serve  ServeConfig  `toml:"serve"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type BridgeConfig struct {
	// RelativeReferences emits linked file paths relative to the linking file.
	RelativeReferences bool `toml:"relative_references"`
	// AsyncDestroy releases the spec table on a background goroutine.
	AsyncDestroy bool `toml:"async_destroy"`
}

type ExportConfig struct {
	PerFrameWrite bool `toml:"per_frame_write"`
}

type ServeConfig struct {
	Addr  string `toml:"addr"`
	Watch bool   `toml:"watch"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Bridge: BridgeConfig{AsyncDestroy: true},
		Serve:  ServeConfig{Addr: "127.0.0.1:7420", Watch: true},
	}
}

// DefaultPath returns ~/.scenebridge/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".scenebridge", "config.toml"), nil
}

// Load reads path over the defaults and applies the environment. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides boolean flags present in the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := envBool(lookup, EnvRelativeReferences); ok {
		c.Bridge.RelativeReferences = v
	}
	if v, ok := envBool(lookup, EnvAsyncDestroy); ok {
		c.Bridge.AsyncDestroy = v
	}
}

// BridgeFromEnv returns the default bridge flags with the environment applied.
func BridgeFromEnv() BridgeConfig {
	cfg := Default()
	cfg.ApplyEnv(os.LookupEnv)
	return cfg.Bridge
}

func envBool(lookup func(string) (string, bool), key string) (bool, bool) {
	raw, ok := lookup(key)
	if !ok {
		return false, false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Save writes c to path, creating the directory.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
