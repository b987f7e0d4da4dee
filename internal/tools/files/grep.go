package files

import (
	"bufio"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kilnhq/relay/internal/agent"
)

// GrepTool searches file contents within the workspace using a regular
// expression.
type GrepTool struct {
	resolver Resolver
}

// NewGrepTool creates a grep tool scoped to the workspace.
func NewGrepTool(cfg Config) *GrepTool {
	return &GrepTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *GrepTool) Name() string { return "Grep" }

func (t *GrepTool) Definition() agent.ToolDefinition {
	return agent.ToolDefinition{
		Name:        "Grep",
		Description: "Search file contents in the workspace for a regular expression match.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern":     map[string]any{"type": "string", "description": "Regular expression to search for."},
				"path":        map[string]any{"type": "string", "description": "Directory or file to search within (default: workspace root)."},
				"glob":        map[string]any{"type": "string", "description": "Only search files whose name matches this glob."},
				"ignore_case": map[string]any{"type": "boolean", "description": "Case-insensitive match (default: false)."},
				"max_matches": map[string]any{"type": "integer", "description": "Maximum number of matching lines to return (default: 200).", "minimum": 1},
			},
			"required": []string{"pattern"},
		},
	}
}

func (t *GrepTool) IsReadOnly() bool { return true }

type grepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (t *GrepTool) Execute(ctx context.Context, params json.RawMessage, tc agent.ToolContext) (*agent.ToolOutput, *agent.ToolError) {
	var input struct {
		Pattern    string `json:"pattern"`
		Path       string `json:"path"`
		Glob       string `json:"glob"`
		IgnoreCase bool   `json:"ignore_case"`
		MaxMatches int    `json:"max_matches"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return invalidInput(t.Name(), err.Error())
	}
	if strings.TrimSpace(input.Pattern) == "" {
		return invalidInput(t.Name(), "pattern is required")
	}

	expr := input.Pattern
	if input.IgnoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return invalidInput(t.Name(), "invalid pattern: "+err.Error())
	}

	maxMatches := input.MaxMatches
	if maxMatches <= 0 {
		maxMatches = 200
	}

	root := input.Path
	if root == "" {
		root = "."
	}
	resolvedRoot, err := t.resolver.Resolve(root)
	if err != nil {
		return errorOutput(err.Error()), nil
	}

	var matches []grepMatch
	truncated := false

	walkErr := filepath.WalkDir(resolvedRoot, func(path string, d fs.DirEntry, err error) error {
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
		if len(matches) >= maxMatches {
			truncated = true
			return nil
		}
		if input.Glob != "" {
			if ok, matchErr := filepath.Match(input.Glob, d.Name()); matchErr != nil || !ok {
				return nil
			}
		}

		file, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer file.Close()

		rel, relErr := filepath.Rel(resolvedRoot, path)
		if relErr != nil {
			rel = path
		}

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if !re.MatchString(line) {
				continue
			}
			matches = append(matches, grepMatch{Path: rel, Line: lineNo, Text: line})
			if len(matches) >= maxMatches {
				truncated = true
				break
			}
		}
		return nil
	})
	if walkErr != nil {
		return errorOutput(walkErr.Error()), nil
	}

	payload, _ := json.MarshalIndent(map[string]any{
		"matches":   matches,
		"count":     len(matches),
		"truncated": truncated,
	}, "", "  ")
	return agent.TextOutput(string(payload), false), nil
}
