package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnhq/relay/internal/config"
)

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect resolved configuration",
	}
	cmd.AddCommand(buildConfigShowCmd())
	return cmd
}

func buildConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the fully resolved configuration, with the API key redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Overrides{})
			if err != nil {
				return err
			}

			apiKey := "(not set)"
			if cfg.API.APIKey != "" {
				apiKey = "***" + lastN(cfg.API.APIKey, 4)
			}

			fmt.Printf("version: %d\n", cfg.Version)
			fmt.Printf("api.base_url: %s\n", cfg.API.BaseURL)
			fmt.Printf("api.model: %s\n", cfg.API.Model)
			fmt.Printf("api.max_retries: %d\n", cfg.API.MaxRetries)
			fmt.Printf("api.api_key: %s\n", apiKey)
			fmt.Printf("permissions.profile: %s\n", cfg.Permissions.Profile)
			fmt.Printf("permissions.ludicrous: %t\n", cfg.Permissions.Ludicrous)
			fmt.Printf("permissions.rules: %d configured\n", len(cfg.Permissions.Rules))
			fmt.Printf("hooks: %d configured\n", len(cfg.Hooks))
			fmt.Printf("session.config_dir: %s\n", cfg.Session.ConfigDir)
			fmt.Printf("observability.log_format: %s\n", cfg.Observability.LogFormat)
			fmt.Printf("observability.metrics_addr: %s\n", cfg.Observability.MetricsAddr)
			fmt.Printf("mcp.enabled: %t\n", cfg.MCP.Enabled)
			fmt.Printf("mcp.servers: %d configured\n", len(cfg.MCP.Servers))
			return nil
		},
	}
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
