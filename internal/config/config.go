// Package config loads relay's configuration: a TOML file layered under
// defaults, environment variables, and CLI flags.
package config

import (
	"github.com/kilnhq/relay/internal/mcp"
	"github.com/kilnhq/relay/internal/policy"
)

// Config is the fully resolved configuration for one relay invocation.
type Config struct {
	Version       int                   `toml:"version"`
	API           APISettings           `toml:"api"`
	Permissions   PermissionsSettings   `toml:"permissions"`
	Hooks         []HookConfig          `toml:"hooks"`
	Session       SessionSettings       `toml:"session"`
	Observability ObservabilitySettings `toml:"observability"`
	MCP           mcp.Config            `toml:"mcp"`
}

// APISettings configures the provider transport.
type APISettings struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	MaxRetries int    `toml:"max_retries"`
}

// PermissionsSettings configures the policy engine.
type PermissionsSettings struct {
	Profile   string              `toml:"profile"`
	Rules     []PermissionRule    `toml:"rules"`
	Ludicrous bool                `toml:"ludicrous"`
}

// PermissionRule mirrors policy.Rule in TOML's array-of-tables shape.
type PermissionRule struct {
	Tool        string `toml:"tool"`
	Args        string `toml:"args"`
	Action      string `toml:"action"`
	Description string `toml:"description"`
}

// ToPolicyRule converts a configured rule to the policy package's Rule type.
func (r PermissionRule) ToPolicyRule() policy.Rule {
	return policy.Rule{
		Tool:        r.Tool,
		Args:        r.Args,
		Action:      policy.Action(r.Action),
		Description: r.Description,
	}
}

// HookConfig mirrors hooks.Hook in TOML's array-of-tables shape.
type HookConfig struct {
	Event       string `toml:"event"`
	Command     string `toml:"command"`
	TimeoutMs   int64  `toml:"timeout_ms"`
	StopOnError bool   `toml:"stop_on_error"`
}

// SessionSettings configures session storage defaults.
type SessionSettings struct {
	ConfigDir string `toml:"config_dir"`
}

// ObservabilitySettings configures logging and metrics.
type ObservabilitySettings struct {
	LogFormat  string `toml:"log_format"` // "text" or "json"
	MetricsAddr string `toml:"metrics_addr"`
}

// Default returns the built-in configuration defaults, the bottom of the
// precedence chain.
func Default() Config {
	return Config{
		Version: CurrentVersion,
		API: APISettings{
			BaseURL:    "https://api.anthropic.com",
			Model:      "claude-sonnet-4-5-20250929",
			MaxRetries: 2,
		},
		Permissions: PermissionsSettings{
			Profile: "default",
		},
		Observability: ObservabilitySettings{
			LogFormat: "text",
		},
	}
}
