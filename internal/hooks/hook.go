// Package hooks runs external shell commands as permission gates around
// tool execution: a hook is a shell command that receives a JSON
// description of the event on stdin and signals its verdict through its
// exit code.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// Event identifies when a hook fires relative to tool execution.
type Event string

const (
	// EventBeforeTool fires before a tool runs; a deny stops the call.
	EventBeforeTool Event = "before_tool"
	// EventAfterTool fires after a tool has produced a result; a deny is
	// downgraded to a warning since the tool already ran.
	EventAfterTool Event = "after_tool"
	// EventWorktreeCreate fires after a git worktree has been created but
	// before it is handed to the caller; a deny rolls back the worktree.
	EventWorktreeCreate Event = "worktree_create"
	// EventWorktreeRemove fires before a managed worktree is removed.
	EventWorktreeRemove Event = "worktree_remove"
)

// Input is serialised to the hook process's stdin. Fields are only
// included when set, so a before_tool hook sees no ToolOutput and an
// after_tool hook sees no matching omission.
type Input struct {
	Event          Event  `json:"event"`
	ToolName       string `json:"tool_name,omitempty"`
	ToolInput      string `json:"tool_input,omitempty"`
	ToolOutput     string `json:"tool_output,omitempty"`
	IsError        *bool  `json:"is_error,omitempty"`
	WorktreePath   string `json:"worktree_path,omitempty"`
	WorktreeSource string `json:"worktree_source,omitempty"`
	Source         string `json:"source,omitempty"`
}

// Verdict is the outcome of running one hook.
type Verdict int

const (
	// VerdictApprove means the hook's exit code was 0.
	VerdictApprove Verdict = iota
	// VerdictDeny means the hook's exit code was 2.
	VerdictDeny
	// VerdictError means any other exit code, a signal death, or a
	// timeout — warn and continue, never treated as a deny.
	VerdictError
)

// Result is what running one hook produced.
type Result struct {
	Verdict Verdict
	Reason  string // trimmed stdout (untrimmed stderr for a non-2 exit code), used as the deny reason or warning text
	Err     error  // non-nil only for VerdictError caused by a launch/timeout failure
}

// Hook is one configured external command bound to an event.
type Hook struct {
	Event     Event
	Command   string
	TimeoutMs int64
}

// Run launches "sh -c Command", writes the JSON-encoded input to its
// stdin, closes stdin, and waits up to h.TimeoutMs (0 means no timeout)
// for it to exit. The exit code is mapped onto a Verdict. Reason is the
// process's trimmed stdout, except for an exit code other than 0 or 2,
// where it is the untrimmed stderr; callers surface it as a deny reason
// or a warning message.
func (h Hook) Run(ctx context.Context, input Input) Result {
	payload, err := json.Marshal(input)
	if err != nil {
		return Result{Verdict: VerdictError, Err: fmt.Errorf("encoding hook input: %w", err)}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if h.TimeoutMs > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(h.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "sh", "-c", h.Command)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	reason := bytes.TrimSpace(stdout.Bytes())

	if runCtx.Err() != nil {
		return Result{Verdict: VerdictError, Reason: string(reason), Err: runCtx.Err()}
	}

	if err == nil {
		return Result{Verdict: VerdictApprove, Reason: string(reason)}
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		// launch failure (e.g. sh not found) or signal death
		return Result{Verdict: VerdictError, Reason: string(reason), Err: err}
	}
	if exitErr.ExitCode() == 2 {
		return Result{Verdict: VerdictDeny, Reason: string(reason)}
	}
	return Result{Verdict: VerdictError, Reason: string(stderr.Bytes()), Err: err}
}
