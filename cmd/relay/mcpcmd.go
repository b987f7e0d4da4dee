package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilnhq/relay/internal/config"
	"github.com/kilnhq/relay/internal/mcp"
)

func buildMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Inspect configured MCP servers",
	}
	cmd.AddCommand(buildMCPStatusCmd())
	return cmd
}

func buildMCPStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Connect to every configured MCP server and report status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Overrides{})
			if err != nil {
				return err
			}

			mgr := mcp.NewManager(&cfg.MCP, slog.Default())
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := mgr.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = mgr.Stop() }()

			statuses := mgr.Status()
			if len(statuses) == 0 {
				fmt.Println("no MCP servers configured")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCONNECTED\tTOOLS")
			for _, s := range statuses {
				fmt.Fprintf(w, "%s\t%s\t%t\t%d\n", s.ID, s.Name, s.Connected, s.Tools)
			}
			return w.Flush()
		},
	}
}
