package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kilnhq/relay/internal/agent"
)

// EditTool implements in-place find/replace edits on a file.
type EditTool struct {
	resolver Resolver
}

// NewEditTool creates an edit tool scoped to the workspace.
func NewEditTool(cfg Config) *EditTool {
	return &EditTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *EditTool) Name() string { return "Edit" }

func (t *EditTool) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        "Edit",
		Description: "Apply one or more find/replace edits to a file in the workspace.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "Path to edit (relative to workspace)."},
				"edits": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"old_text":    map[string]any{"type": "string", "description": "Text to replace."},
							"new_text":    map[string]any{"type": "string", "description": "Replacement text."},
							"replace_all": map[string]any{"type": "boolean", "description": "Replace all occurrences (default: false)."},
						},
						"required": []string{"old_text", "new_text"},
					},
				},
			},
			"required": []string{"path", "edits"},
		},
	}
}

func (t *EditTool) IsReadOnly() bool { return false }

func (t *EditTool) Execute(ctx context.Context, params json.RawMessage, tc agent.ToolContext) (*agent.ToolOutput, *agent.ToolError) {
	var input struct {
		Path  string `json:"path"`
		Edits []struct {
			OldText    string `json:"old_text"`
			NewText    string `json:"new_text"`
			ReplaceAll bool   `json:"replace_all"`
		} `json:"edits"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return invalidInput(t.Name(), err.Error())
	}
	if strings.TrimSpace(input.Path) == "" {
		return invalidInput(t.Name(), "path is required")
	}
	if len(input.Edits) == 0 {
		return invalidInput(t.Name(), "edits are required")
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return errorOutput(err.Error()), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return errorOutput(fmt.Sprintf("read file: %v", err)), nil
	}

	content := string(data)
	replacements := 0
	for _, edit := range input.Edits {
		if edit.OldText == "" {
			return errorOutput("old_text is required"), nil
		}
		if !strings.Contains(content, edit.OldText) {
			return errorOutput("old_text not found"), nil
		}
		if edit.ReplaceAll {
			count := strings.Count(content, edit.OldText)
			content = strings.ReplaceAll(content, edit.OldText, edit.NewText)
			replacements += count
		} else {
			content = strings.Replace(content, edit.OldText, edit.NewText, 1)
			replacements++
		}
	}

	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return errorOutput(fmt.Sprintf("write file: %v", err)), nil
	}

	result := map[string]any{"path": input.Path, "replacements": replacements}
	payload, _ := json.MarshalIndent(result, "", "  ")
	return agent.TextOutput(string(payload), false), nil
}
