package exec

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kilnhq/relay/internal/agent"
)

func TestBashToolRunsCommand(t *testing.T) {
	mgr := NewManager(t.TempDir())
	tool := NewBashTool(mgr)
	params, _ := json.Marshal(map[string]any{
		"command": "echo hello",
	})
	result, toolErr := tool.Execute(context.Background(), params, agent.ToolContext{})
	if toolErr != nil {
		t.Fatalf("execute: %v", toolErr)
	}
	if result.IsError {
		t.Fatalf("expected success: %s", result.Content[0].Text)
	}
	if !strings.Contains(result.Content[0].Text, "hello") {
		t.Fatalf("expected stdout in result: %s", result.Content[0].Text)
	}
}

func TestBashToolRejectsEmptyCommand(t *testing.T) {
	mgr := NewManager(t.TempDir())
	tool := NewBashTool(mgr)
	params, _ := json.Marshal(map[string]any{"command": "  "})
	_, toolErr := tool.Execute(context.Background(), params, agent.ToolContext{})
	if toolErr == nil || toolErr.Kind != agent.ErrInvalidInput {
		t.Fatalf("expected invalid input error, got %+v", toolErr)
	}
}

func TestProcessToolLifecycle(t *testing.T) {
	mgr := NewManager(t.TempDir())
	bashTool := NewBashTool(mgr)
	procTool := NewProcessTool(mgr)

	params, _ := json.Marshal(map[string]any{
		"command":    "echo background",
		"background": true,
	})
	result, toolErr := bashTool.Execute(context.Background(), params, agent.ToolContext{})
	if toolErr != nil {
		t.Fatalf("execute: %v", toolErr)
	}
	if result.IsError {
		t.Fatalf("expected success: %s", result.Content[0].Text)
	}

	var payload struct {
		ProcessID string `json:"process_id"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if payload.ProcessID == "" {
		t.Fatalf("expected process_id")
	}

	time.Sleep(50 * time.Millisecond)
	statusParams, _ := json.Marshal(map[string]any{
		"action":     "status",
		"process_id": payload.ProcessID,
	})
	statusResult, toolErr := procTool.Execute(context.Background(), statusParams, agent.ToolContext{})
	if toolErr != nil {
		t.Fatalf("status: %v", toolErr)
	}
	if statusResult.IsError {
		t.Fatalf("expected status success: %s", statusResult.Content[0].Text)
	}

	removeParams, _ := json.Marshal(map[string]any{
		"action":     "remove",
		"process_id": payload.ProcessID,
	})
	removeResult, toolErr := procTool.Execute(context.Background(), removeParams, agent.ToolContext{})
	if toolErr != nil {
		t.Fatalf("remove: %v", toolErr)
	}
	if removeResult.IsError {
		t.Fatalf("expected remove success: %s", removeResult.Content[0].Text)
	}
}
