package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kilnhq/relay/internal/agent"
)

// ReadTool implements a safe file reader scoped to the workspace root.
type ReadTool struct {
	resolver   Resolver
	maxReadLen int
}

// NewReadTool creates a read tool scoped to the workspace.
func NewReadTool(cfg Config) *ReadTool {
	limit := cfg.MaxReadBytes
	if limit <= 0 {
		limit = 200_000
	}
	return &ReadTool{resolver: Resolver{Root: cfg.Workspace}, maxReadLen: limit}
}

func (t *ReadTool) Name() string { return "Read" }

func (t *ReadTool) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        "Read",
		Description: "Read a file from the workspace with optional offset and byte limit.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":      map[string]any{"type": "string", "description": "Path to the file (relative to workspace)."},
				"offset":    map[string]any{"type": "integer", "description": "Byte offset to start reading from (default: 0).", "minimum": 0},
				"max_bytes": map[string]any{"type": "integer", "description": "Maximum bytes to read (capped by tool default).", "minimum": 0},
			},
			"required": []string{"path"},
		},
	}
}

func (t *ReadTool) IsReadOnly() bool { return true }

func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage, tc agent.ToolContext) (*agent.ToolOutput, *agent.ToolError) {
	var input struct {
		Path     string `json:"path"`
		Offset   int64  `json:"offset"`
		MaxBytes int    `json:"max_bytes"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return invalidInput(t.Name(), err.Error())
	}
	if strings.TrimSpace(input.Path) == "" {
		return invalidInput(t.Name(), "path is required")
	}
	if input.Offset < 0 {
		return invalidInput(t.Name(), "offset must be >= 0")
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return errorOutput(err.Error()), nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		return errorOutput(fmt.Sprintf("open file: %v", err)), nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return errorOutput(fmt.Sprintf("stat file: %v", err)), nil
	}

	if input.Offset > 0 {
		if _, err := file.Seek(input.Offset, io.SeekStart); err != nil {
			return errorOutput(fmt.Sprintf("seek file: %v", err)), nil
		}
	}

	limit := t.maxReadLen
	if input.MaxBytes > 0 && input.MaxBytes < limit {
		limit = input.MaxBytes
	}

	remaining := int64(limit)
	if size := info.Size(); size > 0 {
		remaining = size - input.Offset
		if remaining < 0 {
			remaining = 0
		}
		if remaining > int64(limit) {
			remaining = int64(limit)
		}
	}

	buf, err := io.ReadAll(io.LimitReader(file, remaining))
	if err != nil {
		return errorOutput(fmt.Sprintf("read file: %v", err)), nil
	}

	truncated := info.Size() > 0 && input.Offset+int64(len(buf)) < info.Size()

	result := map[string]any{
		"path":      input.Path,
		"content":   string(buf),
		"offset":    input.Offset,
		"bytes":     len(buf),
		"truncated": truncated,
	}
	payload, _ := json.MarshalIndent(result, "", "  ")
	return agent.TextOutput(string(payload), false), nil
}
