package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Overrides captures the CLI-flag layer of the precedence chain; a zero
// value field means "not set on the command line" and is skipped.
type Overrides struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Load resolves configuration in precedence order: built-in defaults <
// ~/.config/relay/config.toml < ./.relay/config.toml < environment
// variables < overrides (CLI flags).
func Load(overrides Overrides) (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		if err := mergeFile(&cfg, filepath.Join(home, ".config", "relay", "config.toml")); err != nil {
			return nil, err
		}
	}
	if err := mergeFile(&cfg, filepath.Join(".relay", "config.toml")); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyOverrides(&cfg, overrides)

	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeFile decodes a TOML file into cfg in place, leaving cfg untouched
// when the file does not exist.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RELAY_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("RELAY_MODEL"); v != "" {
		cfg.API.Model = v
	}
	if v := os.Getenv("RELAY_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("RELAY_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.MaxRetries = n
		}
	}
	if v := os.Getenv("RELAY_LUDICROUS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Permissions.Ludicrous = b
		}
	}
}

func applyOverrides(cfg *Config, o Overrides) {
	if o.APIKey != "" {
		cfg.API.APIKey = o.APIKey
	}
	if o.Model != "" {
		cfg.API.Model = o.Model
	}
	if o.BaseURL != "" {
		cfg.API.BaseURL = o.BaseURL
	}
}
