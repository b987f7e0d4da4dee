package hooks

import (
	"context"
	"testing"
)

func TestRunnerFirstDenyWins(t *testing.T) {
	r := NewRunner([]Hook{
		{Event: EventBeforeTool, Command: "exit 0"},
		{Event: EventBeforeTool, Command: "echo stop; exit 2"},
		{Event: EventBeforeTool, Command: "echo 'should not run'; exit 2"},
	}, false, nil)

	outcome := r.RunEvent(context.Background(), EventBeforeTool, Input{ToolName: "Bash"})
	if !outcome.Denied || outcome.Reason != "stop" {
		t.Fatalf("expected first deny to win, got %+v", outcome)
	}
}

func TestRunnerOnlyMatchingEventRuns(t *testing.T) {
	r := NewRunner([]Hook{
		{Event: EventAfterTool, Command: "exit 2"},
	}, false, nil)

	outcome := r.RunEvent(context.Background(), EventBeforeTool, Input{ToolName: "Bash"})
	if outcome.Denied {
		t.Fatalf("expected after_tool hook to be skipped for before_tool event, got %+v", outcome)
	}
}

func TestRunnerErrorDoesNotDeny(t *testing.T) {
	r := NewRunner([]Hook{
		{Event: EventBeforeTool, Command: "exit 1"},
	}, false, nil)

	outcome := r.RunEvent(context.Background(), EventBeforeTool, Input{ToolName: "Bash"})
	if outcome.Denied {
		t.Fatalf("expected a non-2 exit to warn, not deny, got %+v", outcome)
	}
}

func TestRunnerContinuesAfterErrorByDefault(t *testing.T) {
	r := NewRunner([]Hook{
		{Event: EventBeforeTool, Command: "exit 1"},
		{Event: EventBeforeTool, Command: "echo later-deny; exit 2"},
	}, false, nil)

	outcome := r.RunEvent(context.Background(), EventBeforeTool, Input{ToolName: "Bash"})
	if !outcome.Denied || outcome.Reason != "later-deny" {
		t.Fatalf("expected evaluation to continue past the error, got %+v", outcome)
	}
}

func TestRunnerStopOnErrorHaltsRemainingHooks(t *testing.T) {
	r := NewRunner([]Hook{
		{Event: EventBeforeTool, Command: "exit 1"},
		{Event: EventBeforeTool, Command: "echo 'should not run'; exit 2"},
	}, true, nil)

	outcome := r.RunEvent(context.Background(), EventBeforeTool, Input{ToolName: "Bash"})
	if outcome.Denied {
		t.Fatalf("expected StopOnError to prevent the later deny from being reached, got %+v", outcome)
	}
}
