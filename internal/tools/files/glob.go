package files

import (
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilnhq/relay/internal/agent"
)

// GlobTool finds files within the workspace matching a glob pattern, most
// recently modified first.
type GlobTool struct {
	resolver Resolver
}

// NewGlobTool creates a glob tool scoped to the workspace.
func NewGlobTool(cfg Config) *GlobTool {
	return &GlobTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *GlobTool) Name() string { return "Glob" }

func (t *GlobTool) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        "Glob",
		Description: "Find files in the workspace matching a glob pattern (e.g. **/*.go), sorted by modification time.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{"type": "string", "description": "Glob pattern, relative to workspace or an optional path root."},
				"path":    map[string]any{"type": "string", "description": "Directory to search within (default: workspace root)."},
			},
			"required": []string{"pattern"},
		},
	}
}

func (t *GlobTool) IsReadOnly() bool { return true }

func (t *GlobTool) Execute(ctx context.Context, params json.RawMessage, tc agent.ToolContext) (*agent.ToolOutput, *agent.ToolError) {
	var input struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return invalidInput(t.Name(), err.Error())
	}
	if strings.TrimSpace(input.Pattern) == "" {
		return invalidInput(t.Name(), "pattern is required")
	}

	root := input.Path
	if root == "" {
		root = "."
	}
	resolvedRoot, err := t.resolver.Resolve(root)
	if err != nil {
		return errorOutput(err.Error()), nil
	}

	type match struct {
		path    string
		modTime int64
	}
	var matches []match

	err = filepath.WalkDir(resolvedRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(resolvedRoot, path)
		if relErr != nil {
			return nil
		}
		ok, matchErr := filepath.Match(input.Pattern, rel)
		if matchErr != nil {
			return matchErr
		}
		if !ok && strings.Contains(input.Pattern, "**") {
			ok = matchDoubleStar(input.Pattern, rel)
		}
		if !ok {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		matches = append(matches, match{path: rel, modTime: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return errorOutput(err.Error()), nil
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].modTime > matches[j].modTime })

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.path
	}

	payload, _ := json.MarshalIndent(map[string]any{"matches": paths, "count": len(paths)}, "", "  ")
	return agent.TextOutput(string(payload), false), nil
}

// matchDoubleStar is a minimal ** expansion: it strips "**/" segments from
// the pattern and checks the remainder against the path's suffix segments,
// allowing patterns like "**/*.go" to match at any depth.
func matchDoubleStar(pattern, name string) bool {
	parts := strings.Split(pattern, "**/")
	suffix := parts[len(parts)-1]
	nameParts := strings.Split(name, string(filepath.Separator))
	for i := range nameParts {
		candidate := filepath.Join(nameParts[i:]...)
		if ok, err := filepath.Match(suffix, candidate); err == nil && ok {
			return true
		}
	}
	return false
}
