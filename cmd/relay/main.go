// Command relay is a terminal coding assistant: it drives the Anthropic
// Messages API through multi-turn, tool-using conversations, executes the
// tools the model requests against the local machine, and mediates every
// side effect through the permission and hook system in internal/policy
// and internal/hooks.
//
// # Basic usage
//
//	relay chat
//	relay chat --plan
//	relay chat --ludicrous
//	relay sessions list
//	relay config show
//
// # Environment variables
//
//   - RELAY_API_KEY: Anthropic API key
//   - RELAY_MODEL: model name override
//   - RELAY_BASE_URL: API base URL override
//   - RELAY_MAX_RETRIES: transport retry count override
//   - RELAY_LUDICROUS: "true" disables the permission engine entirely
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var logFormat string

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process-wide slog.Logger: with format "json" or
// "text" (from --log-format) that handler is used; otherwise a text
// handler when w is a TTY and a JSON handler when it is not. The
// [observability] log_format config value is not consulted here.
func newLogger(w *os.File, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "json" || (format != "text" && !term.IsTerminal(int(w.Fd()))) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "relay",
		Short:        "relay - a terminal coding assistant",
		Long:         "relay drives Claude through multi-turn, tool-using conversations,\nexecuting the tools it requests against the local machine under a\npermission and hook system.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(newLogger(os.Stderr, logFormat))
		},
	}
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log output format: text or json (default: text on a TTY, json otherwise)")

	rootCmd.AddCommand(
		buildChatCmd(),
		buildSessionsCmd(),
		buildConfigCmd(),
		buildMCPCmd(),
	)

	return rootCmd
}
