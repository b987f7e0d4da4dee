// Package agent implements the turn-orchestration loop: it reassembles a
// streamed assistant message from provider StreamEvents, dispatches any
// ToolUse blocks through the permission engine and hook runner, and feeds
// results back as the next turn's user message.
package agent

import (
	"context"
	"encoding/json"
)

// ToolContext carries the ambient state a tool executes with.
type ToolContext struct {
	Cwd       string
	Env       map[string]string
	Sandboxed bool
}

// ToolOutputContentType tags the kind of content a ToolOutput item carries.
type ToolOutputContentType string

const (
	ToolOutputText  ToolOutputContentType = "text"
	ToolOutputImage ToolOutputContentType = "image"
)

// ToolOutputContent is one item of a tool's result.
type ToolOutputContent struct {
	Type      ToolOutputContentType
	Text      string
	MediaType string
	Data      string
}

// ToolOutput is what a successful (or soft-failed) tool execution
// produces. IsError flips the result's polarity without being a Go error:
// it still reaches the model as a ToolResult block, just with is_error set.
type ToolOutput struct {
	Content []ToolOutputContent
	IsError bool
}

// TextOutput is a convenience constructor for the common single-text case.
func TextOutput(text string, isError bool) *ToolOutput {
	return &ToolOutput{Content: []ToolOutputContent{{Type: ToolOutputText, Text: text}}, IsError: isError}
}

// ToolErrorKind classifies why a tool execution failed outright (as
// opposed to succeeding with IsError=true).
type ToolErrorKind string

const (
	ErrUnknownTool     ToolErrorKind = "unknown_tool"
	ErrInvalidInput    ToolErrorKind = "invalid_input"
	ErrExecutionFailed ToolErrorKind = "execution_failed"
	ErrTimeout         ToolErrorKind = "timeout"
	ErrBlocked         ToolErrorKind = "blocked"
)

// ToolError is the error type returned by Tool.Execute and by the registry.
type ToolError struct {
	Kind      ToolErrorKind
	Tool      string
	Message   string
	TimeoutMs int64
}

func (e *ToolError) Error() string {
	switch e.Kind {
	case ErrUnknownTool:
		return "unknown tool: " + e.Tool
	case ErrInvalidInput:
		return "invalid input for " + e.Tool + ": " + e.Message
	case ErrTimeout:
		return "tool timed out: " + e.Tool
	case ErrBlocked:
		return "tool blocked: " + e.Tool
	default:
		return "tool execution failed: " + e.Message
	}
}

// ToolDefinition is what gets sent to the model to describe a tool.
type ToolDefinition struct {
	Name         string
	Description  string
	InputSchema  map[string]any
	CacheControl *string
}

// Tool is the contract every built-in or MCP-bridged tool implements.
type Tool interface {
	Name() string
	Definition() ToolDefinition
	IsReadOnly() bool
	Execute(ctx context.Context, input json.RawMessage, tc ToolContext) (*ToolOutput, *ToolError)
}
