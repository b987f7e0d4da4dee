package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kilnhq/relay/internal/config"
	"github.com/kilnhq/relay/internal/session"
	"github.com/kilnhq/relay/pkg/models"
)

func buildSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved conversation sessions",
	}

	cmd.AddCommand(
		buildSessionsListCmd(),
		buildSessionsShowCmd(),
		buildSessionsDeleteCmd(),
	)

	return cmd
}

func openSessionStore() (*session.Store, error) {
	cfg, err := config.Load(config.Overrides{})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	configDir := cfg.Session.ConfigDir
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "relay")
	}
	return session.NewStore(configDir, slog.Default())
}

func buildSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}
			summaries, err := store.List()
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("no sessions found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAGE\tMODEL\tMESSAGES\tPREVIEW")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.ShortID(), s.Age(), s.Model, s.MessageCount, s.Preview)
			}
			return w.Flush()
		},
	}
}

func buildSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a session's full transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}
			sess, err := resolveSession(store, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("session %s (model: %s, cwd: %s)\n", sess.ID, sess.Metadata.Model, sess.Metadata.Cwd)
			fmt.Printf("created: %s  updated: %s\n", sess.CreatedAt.Format("2006-01-02 15:04:05"), sess.UpdatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("usage: %d in / %d out\n\n", sess.TotalUsage.InputTokens, sess.TotalUsage.OutputTokens)

			for _, msg := range sess.Messages {
				for _, block := range msg.Content {
					if block.Type == models.BlockText {
						fmt.Printf("[%s] %s\n\n", msg.Role, block.Text)
					}
				}
			}
			return nil
		},
	}
}

func buildSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}
			sess, err := resolveSession(store, args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(sess.ID); err != nil {
				return err
			}
			fmt.Printf("deleted session %s\n", sess.ShortID())
			return nil
		},
	}
}

// resolveSession accepts either a full UUID or a prefix.
func resolveSession(store *session.Store, idOrPrefix string) (*session.Session, error) {
	if id, err := uuid.Parse(idOrPrefix); err == nil {
		return store.Load(id)
	}
	return store.LoadByPrefix(idOrPrefix)
}
