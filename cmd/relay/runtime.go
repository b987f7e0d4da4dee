package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kilnhq/relay/internal/agent"
	"github.com/kilnhq/relay/internal/config"
	"github.com/kilnhq/relay/internal/hooks"
	"github.com/kilnhq/relay/internal/mcp"
	"github.com/kilnhq/relay/internal/observability"
	"github.com/kilnhq/relay/internal/policy"
	"github.com/kilnhq/relay/internal/provider"
	"github.com/kilnhq/relay/internal/providers/anthropic"
	"github.com/kilnhq/relay/internal/session"
	"github.com/kilnhq/relay/internal/tools/exec"
	"github.com/kilnhq/relay/internal/tools/files"
	"github.com/kilnhq/relay/internal/transport"
)

// Runtime bundles the collaborators a chat turn needs, wired once per
// process invocation from resolved configuration.
type Runtime struct {
	Config    *config.Config
	Logger    *slog.Logger
	Provider  provider.Provider
	Registry  *agent.Registry
	Policy    *policy.Engine
	Hooks     *hooks.Runner
	MCP       *mcp.Manager
	Store     *session.Store
	Metrics   *observability.Metrics
	Workspace string
}

// buildRuntime resolves configuration and wires every collaborator. prompt
// may be nil for non-interactive invocations (the permission engine then
// denies every tool call that would otherwise prompt; read-only tools with
// no matching rule are still permitted).
func buildRuntime(overrides config.Overrides, prompt policy.PromptHandler, logger *slog.Logger) (*Runtime, error) {
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.API.APIKey == "" {
		return nil, fmt.Errorf("no API key configured (set RELAY_API_KEY or [api] api_key in config.toml)")
	}

	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}

	metrics := observability.NewMetrics()

	transportOpts := []transport.Option{
		transport.WithLogger(logger),
		transport.WithRetryObserver(func(errorClass string) { metrics.Observe("retry", errorClass) }),
	}
	if cfg.API.MaxRetries > 0 {
		retry := transport.DefaultRetryConfig()
		retry.MaxRetries = cfg.API.MaxRetries
		transportOpts = append(transportOpts, transport.WithRetryConfig(retry))
	}
	client := transport.NewClient(baseURLOrDefault(cfg.API.BaseURL), cfg.API.APIKey, transportOpts...)
	llm := anthropic.NewProviderWithClient(client)

	registry := agent.NewRegistry()
	registerBuiltinTools(registry, workspace)

	rules := make([]policy.Rule, 0, len(cfg.Permissions.Rules))
	for _, r := range cfg.Permissions.Rules {
		rules = append(rules, r.ToPolicyRule())
	}
	engine := policy.NewEngine(rules, prompt, cfg.Permissions.Ludicrous)

	hookRunner := buildHookRunner(cfg.Hooks, logger)

	mgr := mcp.NewManager(&cfg.MCP, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		logger.Warn("mcp manager failed to start one or more servers", "error", err)
	}
	mcp.RegisterTools(registry, mgr)

	configDir := cfg.Session.ConfigDir
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "relay")
	}
	store, err := session.NewStore(configDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Provider:  llm,
		Registry:  registry,
		Policy:    engine,
		Hooks:     hookRunner,
		MCP:       mgr,
		Store:     store,
		Metrics:   metrics,
		Workspace: workspace,
	}, nil
}

// Close stops any background collaborators started by buildRuntime.
func (rt *Runtime) Close() {
	if rt.MCP != nil {
		_ = rt.MCP.Stop()
	}
}

func baseURLOrDefault(base string) string {
	if base != "" {
		return base
	}
	return "https://api.anthropic.com"
}

func registerBuiltinTools(registry *agent.Registry, workspace string) {
	filesCfg := files.Config{Workspace: workspace}
	mustRegister(registry, files.NewReadTool(filesCfg))
	mustRegister(registry, files.NewWriteTool(filesCfg))
	mustRegister(registry, files.NewEditTool(filesCfg))
	mustRegister(registry, files.NewApplyPatchTool(filesCfg))
	mustRegister(registry, files.NewGlobTool(filesCfg))
	mustRegister(registry, files.NewGrepTool(filesCfg))

	execMgr := exec.NewManager(workspace)
	mustRegister(registry, exec.NewBashTool(execMgr))
	mustRegister(registry, exec.NewProcessTool(execMgr))
}

func mustRegister(registry *agent.Registry, t agent.Tool) {
	if err := registry.Register(t); err != nil {
		panic(fmt.Sprintf("register builtin tool %q: %v", t.Name(), err))
	}
}

// buildHookRunner converts the configured hook list into a hooks.Runner.
// stop_on_error is the OR of every configured hook's setting: if any hook
// opts in, an error-class outcome from any hook skips the remaining hooks
// for that event. The skipped run is not treated as a deny.
func buildHookRunner(configured []config.HookConfig, logger *slog.Logger) *hooks.Runner {
	list := make([]hooks.Hook, 0, len(configured))
	stopOnError := false
	for _, h := range configured {
		list = append(list, hooks.Hook{
			Event:     hooks.Event(h.Event),
			Command:   h.Command,
			TimeoutMs: h.TimeoutMs,
		})
		if h.StopOnError {
			stopOnError = true
		}
	}
	return hooks.NewRunner(list, stopOnError, logger)
}
