package policy

import (
	"encoding/json"
	"sync"
)

// PromptResponse is the user's answer to an interactive permission prompt.
type PromptResponse string

const (
	PromptAllowOnce   PromptResponse = "allow_once"
	PromptAlwaysAllow PromptResponse = "always_allow"
	PromptDeny        PromptResponse = "deny"
)

// PromptHandler asks the user whether a tool call should proceed. A nil
// handler means non-interactive operation, which always denies.
type PromptHandler func(toolName string, input json.RawMessage, description string) PromptResponse

// CheckResult is the outcome of Engine.Check.
type CheckResult struct {
	Action      Action
	Reason      string
	Description string
}

// Engine holds static config rules, a mutable session-permit list, and an
// optional prompt handler. The session rules list is the only mutable
// shared state and is protected by mu; everything else is immutable after
// construction.
type Engine struct {
	staticRules []Rule
	ludicrous   bool
	prompt      PromptHandler

	mu           sync.Mutex
	sessionRules []Rule
}

// NewEngine constructs a permission engine. staticRules come from config;
// prompt may be nil for non-interactive use; ludicrous short-circuits
// every check to Permit.
func NewEngine(staticRules []Rule, prompt PromptHandler, ludicrous bool) *Engine {
	return &Engine{staticRules: compileRules(staticRules), prompt: prompt, ludicrous: ludicrous}
}

// Check decides whether a tool call may proceed without prompting. Session
// rules are permit-only and can only loosen a decision, never tighten one:
// if any session rule yields Permit, the call is immediately allowed
// regardless of static rules. Otherwise static rules are consulted; a
// Block or Prompt result from them is returned verbatim. If nothing
// matches, read-only tools default to Permit and mutating tools default to
// Prompt.
func (e *Engine) Check(toolName string, input json.RawMessage, isReadOnly bool) CheckResult {
	if e.ludicrous {
		return CheckResult{Action: ActionPermit}
	}

	e.mu.Lock()
	sessionRules := append([]Rule(nil), e.sessionRules...)
	e.mu.Unlock()

	if decision, ok := Resolve(sessionRules, toolName, input); ok && decision.Action == ActionPermit {
		return CheckResult{Action: ActionPermit, Description: decision.Description}
	}

	if decision, ok := Resolve(e.staticRules, toolName, input); ok {
		switch decision.Action {
		case ActionPermit:
			return CheckResult{Action: ActionPermit, Description: decision.Description}
		case ActionBlock:
			return CheckResult{Action: ActionBlock, Reason: decision.Description, Description: decision.Description}
		case ActionPrompt:
			return CheckResult{Action: ActionPrompt, Description: decision.Description}
		}
	}

	if isReadOnly {
		return CheckResult{Action: ActionPermit}
	}
	return CheckResult{Action: ActionPrompt, Description: toolName}
}

// Prompt delegates to the registered prompt handler. With no handler
// registered (non-interactive operation) it always denies.
func (e *Engine) Prompt(toolName string, input json.RawMessage, description string) PromptResponse {
	if e.prompt == nil {
		return PromptDeny
	}
	response := e.prompt(toolName, input, description)
	if response == PromptAlwaysAllow {
		e.AddSessionRule(Rule{Tool: toolName, Action: ActionPermit, Description: description})
	}
	return response
}

// AddSessionRule appends a new permit rule to the session list. Session
// rules are monotone: this is the only mutation the list ever undergoes,
// so permissions granted during a session are never revoked mid-session.
func (e *Engine) AddSessionRule(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessionRules = append(e.sessionRules, compileRule(rule))
}
