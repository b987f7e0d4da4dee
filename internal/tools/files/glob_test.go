package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilnhq/relay/internal/agent"
)

func TestGlobFindsMatchingFiles(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.go"), "package a")
	mustWrite(t, filepath.Join(root, "b.txt"), "not go")
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	mustWrite(t, filepath.Join(root, "sub", "c.go"), "package sub")

	tool := NewGlobTool(Config{Workspace: root})
	params, _ := json.Marshal(map[string]any{"pattern": "**/*.go"})
	result, toolErr := tool.Execute(context.Background(), params, agent.ToolContext{})
	if toolErr != nil {
		t.Fatalf("glob failed: %v", toolErr)
	}
	text := result.Content[0].Text
	if !strings.Contains(text, "a.go") || !strings.Contains(text, "sub/c.go") {
		t.Fatalf("expected both go files, got %s", text)
	}
	if strings.Contains(text, "b.txt") {
		t.Fatalf("did not expect b.txt in match list: %s", text)
	}
}

func TestGlobRejectsMissingPattern(t *testing.T) {
	tool := NewGlobTool(Config{Workspace: t.TempDir()})
	params, _ := json.Marshal(map[string]any{})
	_, toolErr := tool.Execute(context.Background(), params, agent.ToolContext{})
	if toolErr == nil || toolErr.Kind != agent.ErrInvalidInput {
		t.Fatalf("expected invalid input error, got %+v", toolErr)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
