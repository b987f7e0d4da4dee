// Package files implements the built-in workspace-scoped filesystem tools:
// Read, Write, Edit, ApplyPatch, Glob, and Grep.
package files

import "github.com/kilnhq/relay/internal/agent"

// Config controls filesystem tool defaults.
type Config struct {
	Workspace    string
	MaxReadBytes int
}

func errorOutput(message string) *agent.ToolOutput {
	return agent.TextOutput(message, true)
}

func invalidInput(tool, msg string) (*agent.ToolOutput, *agent.ToolError) {
	return nil, &agent.ToolError{Kind: agent.ErrInvalidInput, Tool: tool, Message: msg}
}
