package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kilnhq/relay/internal/agent"
	"github.com/kilnhq/relay/internal/commands"
	"github.com/kilnhq/relay/internal/config"
	"github.com/kilnhq/relay/internal/markdown"
	"github.com/kilnhq/relay/internal/policy"
	"github.com/kilnhq/relay/internal/session"
	"github.com/kilnhq/relay/internal/worktree"
	"github.com/kilnhq/relay/pkg/models"
)

const defaultMaxTokens = 8192

// chatState holds the parts of a chat session that slash commands can
// mutate mid-conversation: the active model, extended thinking settings,
// and the live session record being appended to.
type chatState struct {
	sess     *session.Session
	tracker  *session.ContextTracker
	model    string
	thinking bool
	budget   int
	planMode bool
}

func buildChatCmd() *cobra.Command {
	var (
		apiKey      string
		model       string
		baseURL     string
		resume      string
		planMode    bool
		ludicrous   bool
		tableMode   string
		useWorktree bool
		branch      string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := markdown.TableMode(tableMode)
			if !markdown.IsValidTableMode(string(mode)) {
				mode = markdown.TableModeOff
			}

			if useWorktree {
				cleanup, err := enterWorktree(cmd.Context(), branch)
				if err != nil {
					return err
				}
				defer cleanup()
			}

			overrides := config.Overrides{APIKey: apiKey, Model: model, BaseURL: baseURL}
			rt, err := buildRuntime(overrides, permissionPrompt, slog.Default())
			if err != nil {
				return err
			}
			defer rt.Close()

			if ludicrous {
				rt.Policy = policy.NewEngine(nil, permissionPrompt, true)
			}

			addr := metricsAddr
			if addr == "" {
				addr = rt.Config.Observability.MetricsAddr
			}
			if addr != "" {
				stopMetrics := serveMetrics(addr, rt.Logger)
				defer stopMetrics()
			}

			sess, err := loadOrCreateSession(rt, resume)
			if err != nil {
				return err
			}

			state := &chatState{
				sess:     sess,
				tracker:  session.NewContextTracker(sess.Metadata.Model),
				model:    sess.Metadata.Model,
				planMode: planMode,
			}

			return runChatREPL(cmd.Context(), rt, state, mode)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "Anthropic API key (overrides RELAY_API_KEY / config)")
	cmd.Flags().StringVar(&model, "model", "", "model name (overrides config default)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL override")
	cmd.Flags().StringVar(&resume, "resume", "", "resume a session by ID or ID prefix")
	cmd.Flags().BoolVar(&planMode, "plan", false, "restrict the model to read-only tools")
	cmd.Flags().BoolVar(&ludicrous, "ludicrous", false, "disable the permission engine entirely for this run")
	cmd.Flags().StringVar(&tableMode, "table-mode", "off", "render markdown tables as: off, bullets, code")
	cmd.Flags().BoolVar(&useWorktree, "worktree", false, "run this session inside an isolated git worktree")
	cmd.Flags().StringVar(&branch, "worktree-branch", "", "branch name for the worktree (detached HEAD if empty)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090); off by default")

	return cmd
}

// serveMetrics starts a background HTTP server exposing /metrics and
// returns a func that shuts it down. Listen failures are logged, not
// fatal: metrics are diagnostic, never load-bearing for the chat session.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	logger.Info("metrics server listening", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

// enterWorktree creates a worktree rooted at the current directory, chdirs
// into it for the duration of the run, and returns a cleanup function that
// restores the original directory and removes the worktree.
func enterWorktree(ctx context.Context, branch string) (func(), error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve current directory: %w", err)
	}

	managed, err := worktree.Create(ctx, cwd, branch, nil, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("create worktree: %w", err)
	}

	if err := os.Chdir(managed.Path()); err != nil {
		_ = managed.Cleanup(ctx)
		return nil, fmt.Errorf("enter worktree: %w", err)
	}
	fmt.Printf("working in isolated worktree: %s\n", managed.Path())

	return func() {
		_ = os.Chdir(cwd)
		if err := managed.Cleanup(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to clean up worktree: %v\n", err)
		}
	}, nil
}

func loadOrCreateSession(rt *Runtime, resume string) (*session.Session, error) {
	if resume == "" {
		model := rt.Config.API.Model
		return session.New(model, rt.Workspace), nil
	}
	sess, err := rt.Store.LoadByPrefix(resume)
	if err != nil {
		return nil, fmt.Errorf("resume session %q: %w", resume, err)
	}
	return sess, nil
}

// runChatREPL drives the interactive loop: read a line, route it through
// the slash command parser, or else hand it to the agent loop as a user
// turn, printing streamed output as it arrives and persisting the session
// after every turn.
func runChatREPL(ctx context.Context, rt *Runtime, state *chatState, mode markdown.TableMode) error {
	registry := commands.NewRegistry(rt.Logger)
	commands.RegisterBuiltins(registry)
	parser := commands.NewParser("/")

	editor := newLineEditor(os.Stdin)

	fmt.Printf("relay chat - session %s (model: %s)\n", state.sess.ShortID(), state.model)
	fmt.Println("Type /help for commands, Ctrl-D to exit.")

	for {
		line, err := editor.ReadLine("\n> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}

		if parser.IsCommand(text) {
			parsed := parser.ParseCommand(text)
			if parsed == nil {
				continue
			}
			if handled, err := dispatchSlashCommand(ctx, registry, parsed, state); err != nil {
				fmt.Fprintf(os.Stderr, "command error: %v\n", err)
			} else if handled == exitRequested {
				return nil
			}
			continue
		}

		if err := runTurn(ctx, rt, state, text, mode); err != nil {
			if errors.Is(err, agent.Cancelled) {
				fmt.Fprintln(os.Stderr, "\ninterrupted")
				continue
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}

		if err := rt.Store.Save(state.sess); err != nil {
			fmt.Fprintf(os.Stderr, "failed to save session: %v\n", err)
		}
	}
}

type commandOutcome int

const (
	commandHandled commandOutcome = iota
	exitRequested
)

// dispatchSlashCommand executes a parsed command and applies the subset of
// builtin actions that have meaning in a one-process CLI: new_session,
// set_model, set_thinking. The undo, compact and abort actions are not
// applied: only their text is printed, and the session is left unchanged.
func dispatchSlashCommand(ctx context.Context, registry *commands.Registry, parsed *commands.ParsedCommand, state *chatState) (commandOutcome, error) {
	if parsed.Name == "exit" || parsed.Name == "quit" {
		return exitRequested, nil
	}

	var contextSummary string
	if state.tracker != nil {
		contextSummary = state.tracker.FormatDetailed(state.tracker.Estimate(state.sess.Messages, ""))
	}

	inv := &commands.Invocation{
		Name: parsed.Name,
		Args: parsed.Args,
		Context: map[string]any{
			"model":            state.model,
			"message_count":    len(state.sess.Messages),
			"thinking_enabled": state.thinking,
			"thinking_budget":  state.budget,
			"has_active_run":   false,
			"context_summary":  contextSummary,
			"session_id":       state.sess.ShortID(),
			"workspace":        state.sess.Metadata.Cwd,
		},
	}

	result, err := registry.Execute(ctx, inv)
	if err != nil {
		return commandHandled, err
	}
	if result.Error != "" {
		fmt.Println(result.Error)
		return commandHandled, nil
	}
	if result.Text != "" {
		fmt.Println(result.Text)
	}

	switch action, _ := result.Data["action"].(string); action {
	case "new_session":
		model := state.model
		if m, ok := result.Data["model"].(string); ok && m != "" {
			model = m
		}
		state.sess = session.New(model, state.sess.Metadata.Cwd)
		state.model = model
		fmt.Printf("new session: %s\n", state.sess.ShortID())
	case "set_model":
		if m, ok := result.Data["model"].(string); ok {
			state.model = m
			state.sess.Metadata.Model = m
			state.tracker = session.NewContextTracker(m)
		}
	case "set_thinking":
		if enabled, ok := result.Data["enabled"].(bool); ok {
			state.thinking = enabled
		}
		if budget, ok := result.Data["budget"].(int); ok {
			state.budget = budget
		}
	}

	return commandHandled, nil
}

// runTurn appends the user's message, drives the agent loop to completion,
// streaming text to stdout, and folds the turn's usage into the session.
func runTurn(ctx context.Context, rt *Runtime, state *chatState, text string, mode markdown.TableMode) error {
	state.sess.Messages = append(state.sess.Messages, models.Message{
		Role:    models.RoleUser,
		Content: []models.ContentBlock{models.TextBlock(text)},
	})

	var thinking *models.ThinkingConfig
	if state.thinking {
		budget := state.budget
		if budget == 0 {
			budget = 10000
		}
		thinking = &models.ThinkingConfig{Type: "enabled", BudgetTokens: budget}
	}

	rt.Metrics.Observe("turn_started", "")

	var buf strings.Builder
	observer := func(ev agent.Event) {
		switch ev.Kind {
		case agent.EventTextDelta:
			buf.WriteString(ev.Text)
			fmt.Print(ev.Text)
		case agent.EventToolStart:
			fmt.Printf("\n[%s] running...\n", ev.ToolName)
		case agent.EventToolEnd:
			status := "ok"
			if ev.IsError {
				status = "error"
			}
			fmt.Printf("[%s] %s: %s\n", ev.ToolName, status, ev.Text)
			rt.Metrics.Observe("tool_"+status, ev.ToolName)
		case agent.EventToolBlocked:
			fmt.Printf("[%s] blocked: %s\n", ev.ToolName, ev.Reason)
			rt.Metrics.Observe("tool_blocked", ev.ToolName)
		case agent.EventError:
			fmt.Fprintf(os.Stderr, "\nstream error: %s\n", ev.Text)
		case agent.EventDone:
			rt.Metrics.Observe("turn_done", "")
		case agent.EventCancelled:
			rt.Metrics.Observe("turn_cancelled", "")
		}
	}

	loop := agent.New(agent.Config{
		Provider:    rt.Provider,
		Registry:    rt.Registry,
		Permissions: rt.Policy,
		Hooks:       rt.Hooks,
		Prompt:      permissionPrompt,
		Model:       state.model,
		MaxTokens:   defaultMaxTokens,
		Thinking:    thinking,
		PlanMode:    state.planMode,
		ToolCtx:     agent.ToolContext{Cwd: rt.Workspace},
		Observer:    observer,
		Logger:      rt.Logger,
	})

	usage, err := loop.Run(ctx, &state.sess.Messages)
	if err != nil && !errors.Is(err, agent.Cancelled) {
		rt.Metrics.Observe("turn_error", "")
	}
	state.sess.TotalUsage.Add(usage)
	state.sess.AutoLabel()
	fmt.Println()

	if buf.Len() > 0 {
		rendered := renderAssistantText(buf.String(), mode)
		if rendered != buf.String() {
			fmt.Println(rendered)
		}
	}

	info := state.tracker.Estimate(state.sess.Messages, "")
	fmt.Fprintln(os.Stderr, state.tracker.FormatBrief(info))

	return err
}
