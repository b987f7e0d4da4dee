package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilnhq/relay/internal/agent"
)

// WriteTool implements file writes within the workspace.
type WriteTool struct {
	resolver Resolver
}

// NewWriteTool creates a write tool scoped to the workspace.
func NewWriteTool(cfg Config) *WriteTool {
	return &WriteTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *WriteTool) Name() string { return "Write" }

func (t *WriteTool) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        "Write",
		Description: "Write content to a file in the workspace (overwrites by default).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string", "description": "Path to write (relative to workspace)."},
				"content": map[string]any{"type": "string", "description": "File contents to write."},
				"append":  map[string]any{"type": "boolean", "description": "Append instead of overwrite (default: false)."},
			},
			"required": []string{"path", "content"},
		},
	}
}

func (t *WriteTool) IsReadOnly() bool { return false }

func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage, tc agent.ToolContext) (*agent.ToolOutput, *agent.ToolError) {
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Append  bool   `json:"append"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return invalidInput(t.Name(), err.Error())
	}
	if strings.TrimSpace(input.Path) == "" {
		return invalidInput(t.Name(), "path is required")
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return errorOutput(err.Error()), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return errorOutput(fmt.Sprintf("create directory: %v", err)), nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if input.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return errorOutput(fmt.Sprintf("open file: %v", err)), nil
	}
	defer file.Close()

	n, err := file.WriteString(input.Content)
	if err != nil {
		return errorOutput(fmt.Sprintf("write file: %v", err)), nil
	}

	result := map[string]any{
		"path":          input.Path,
		"bytes_written": n,
		"append":        input.Append,
	}
	payload, _ := json.MarshalIndent(result, "", "  ")
	return agent.TextOutput(string(payload), false), nil
}
