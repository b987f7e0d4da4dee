package exec

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kilnhq/relay/internal/agent"
)

// BashTool runs shell commands directly via os/exec, with optional
// background execution tracked by the Manager.
type BashTool struct {
	manager *Manager
}

// NewBashTool creates a Bash tool backed by the given manager.
func NewBashTool(manager *Manager) *BashTool {
	return &BashTool{manager: manager}
}

func (t *BashTool) Name() string { return "Bash" }

func (t *BashTool) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        "Bash",
		Description: "Run a shell command in the workspace (supports optional background execution).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command":         map[string]any{"type": "string", "description": "Shell command to execute."},
				"cwd":             map[string]any{"type": "string", "description": "Working directory (relative to workspace)."},
				"env":             map[string]any{"type": "object", "description": "Environment overrides (string values)."},
				"input":           map[string]any{"type": "string", "description": "Stdin content to pass to the command."},
				"timeout_seconds": map[string]any{"type": "integer", "description": "Timeout in seconds (0 = no timeout).", "minimum": 0},
				"background":      map[string]any{"type": "boolean", "description": "Run in background and return a process id."},
			},
			"required": []string{"command"},
		},
	}
}

func (t *BashTool) IsReadOnly() bool { return false }

func (t *BashTool) Execute(ctx context.Context, params json.RawMessage, tc agent.ToolContext) (*agent.ToolOutput, *agent.ToolError) {
	if t.manager == nil {
		return errorOutput("exec manager unavailable"), nil
	}
	var input struct {
		Command        string            `json:"command"`
		Cwd            string            `json:"cwd"`
		Env            map[string]string `json:"env"`
		Input          string            `json:"input"`
		TimeoutSeconds int               `json:"timeout_seconds"`
		Background     bool              `json:"background"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return invalidInput(t.Name(), err.Error())
	}
	command := strings.TrimSpace(input.Command)
	if command == "" {
		return invalidInput(t.Name(), "command is required")
	}

	timeout := time.Duration(input.TimeoutSeconds) * time.Second

	if input.Background {
		proc, err := t.manager.startBackground(ctx, command, input.Cwd, input.Env, input.Input, timeout)
		if err != nil {
			return errorOutput(err.Error()), nil
		}
		payload, _ := json.MarshalIndent(map[string]any{
			"status":     "running",
			"process_id": proc.id,
		}, "", "  ")
		return agent.TextOutput(string(payload), false), nil
	}

	result, err := t.manager.runSync(ctx, command, input.Cwd, input.Env, input.Input, timeout)
	if err != nil {
		return errorOutput(err.Error()), nil
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorOutput("encode result: " + err.Error()), nil
	}
	return agent.TextOutput(string(payload), result.ExitCode != 0), nil
}

// ProcessTool inspects and manages background Bash processes started with
// background: true.
type ProcessTool struct {
	manager *Manager
}

// NewProcessTool creates a process tool.
func NewProcessTool(manager *Manager) *ProcessTool {
	return &ProcessTool{manager: manager}
}

func (t *ProcessTool) Name() string { return "Process" }

func (t *ProcessTool) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        "Process",
		Description: "Manage background Bash processes (list, status, log, write, kill, remove).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action":     map[string]any{"type": "string", "description": "Action: list, status, log, write, kill, remove."},
				"process_id": map[string]any{"type": "string", "description": "Process id for actions that target a process."},
				"input":      map[string]any{"type": "string", "description": "Input for write action."},
			},
			"required": []string{"action"},
		},
	}
}

func (t *ProcessTool) IsReadOnly() bool { return false }

func (t *ProcessTool) Execute(ctx context.Context, params json.RawMessage, tc agent.ToolContext) (*agent.ToolOutput, *agent.ToolError) {
	_ = ctx
	if t.manager == nil {
		return errorOutput("process manager unavailable"), nil
	}
	var input struct {
		Action    string `json:"action"`
		ProcessID string `json:"process_id"`
		Input     string `json:"input"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return invalidInput(t.Name(), err.Error())
	}
	action := strings.ToLower(strings.TrimSpace(input.Action))
	if action == "" {
		return invalidInput(t.Name(), "action is required")
	}

	switch action {
	case "list":
		payload, _ := json.MarshalIndent(map[string]any{"processes": t.manager.list()}, "", "  ")
		return agent.TextOutput(string(payload), false), nil
	case "status", "log", "write", "kill", "remove":
		if strings.TrimSpace(input.ProcessID) == "" {
			return invalidInput(t.Name(), "process_id is required")
		}
		proc, ok := t.manager.get(strings.TrimSpace(input.ProcessID))
		if !ok {
			return errorOutput("process not found"), nil
		}
		switch action {
		case "status":
			payload, _ := json.MarshalIndent(proc.info(), "", "  ")
			return agent.TextOutput(string(payload), false), nil
		case "log":
			payload, _ := json.MarshalIndent(map[string]any{
				"stdout": proc.stdout.String(),
				"stderr": proc.stderr.String(),
				"status": proc.status(),
			}, "", "  ")
			return agent.TextOutput(string(payload), false), nil
		case "write":
			if proc.stdin == nil {
				return errorOutput("process stdin unavailable"), nil
			}
			if input.Input == "" {
				return invalidInput(t.Name(), "input is required")
			}
			if _, err := proc.stdin.Write([]byte(input.Input)); err != nil {
				return errorOutput("write stdin: " + err.Error()), nil
			}
			return agent.TextOutput(`{"status":"written"}`, false), nil
		case "kill":
			if proc.cmd.Process == nil {
				return errorOutput("process not running"), nil
			}
			if err := proc.cmd.Process.Kill(); err != nil {
				return errorOutput("kill process: " + err.Error()), nil
			}
			return agent.TextOutput(`{"status":"killed"}`, false), nil
		case "remove":
			if proc.status() == "running" {
				return errorOutput("process still running"), nil
			}
			if !t.manager.remove(proc.id) {
				return errorOutput("remove failed"), nil
			}
			return agent.TextOutput(`{"status":"removed"}`, false), nil
		}
	}
	return errorOutput("unsupported action"), nil
}

func errorOutput(message string) *agent.ToolOutput {
	return agent.TextOutput(message, true)
}

func invalidInput(tool, msg string) (*agent.ToolOutput, *agent.ToolError) {
	return nil, &agent.ToolError{Kind: agent.ErrInvalidInput, Tool: tool, Message: msg}
}
