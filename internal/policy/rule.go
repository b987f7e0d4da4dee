// Package policy implements the permission rule matcher and the engine
// that decides whether a tool call may proceed: static config rules, a
// mutable session-permit list, and an optional interactive prompt.
package policy

import (
	"encoding/json"
	"fmt"

	"github.com/gobwas/glob"
)

// Action is the outcome a matching Rule produces.
type Action string

const (
	// ActionBlock always wins over Permit and Prompt.
	ActionBlock Action = "block"
	// ActionPermit allows the call to proceed without prompting.
	ActionPermit Action = "permit"
	// ActionPrompt defers the decision to an interactive handler.
	ActionPrompt Action = "prompt"
)

// Rule is one line of permission config: a tool-name pattern, an optional
// args pattern of the form "field:glob", and the action to take when both
// match. toolGlob/argsGlob cache the compiled patterns so a rule that has
// already been through compileRule doesn't recompile them on every call to
// Match; a Rule built directly (e.g. in a test) without going through
// compileRule still works, it just compiles on the spot instead of once.
type Rule struct {
	Tool        string
	Args        string
	Action      Action
	Description string

	toolGlob  glob.Glob
	argsField string
	argsGlob  glob.Glob
}

// Decision is the result of matching a tool call against a rule set.
type Decision struct {
	Action      Action
	Description string
}

// compileRule compiles r's glob patterns once and returns the cached copy.
// An invalid pattern leaves the corresponding cached glob nil; Match then
// falls back to treating that pattern as a non-match rather than erroring.
func compileRule(r Rule) Rule {
	if g, err := glob.Compile(r.Tool); err == nil {
		r.toolGlob = g
	}
	if r.Args != "" {
		if field, valueGlob, ok := splitArgsPattern(r.Args); ok {
			if g, err := glob.Compile(valueGlob); err == nil {
				r.argsField = field
				r.argsGlob = g
			}
		}
	}
	return r
}

// compileRules returns a copy of rules with every rule's glob patterns
// precompiled, so the permission engine compiles each pattern once
// regardless of how many tool calls it evaluates against it.
func compileRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = compileRule(r)
	}
	return out
}

// Match reports whether rule matches the given tool name and JSON input.
// The tool pattern matches as a glob (so "*" matches any tool name; a
// pattern with no glob metacharacters matches only literally). If Args is
// set, it must have the form "field:glob"; the tool input JSON must have
// field as a string value, and the glob must match that value — a missing
// field or non-string value is a non-match.
func (r Rule) Match(toolName string, input json.RawMessage) bool {
	toolGlob := r.toolGlob
	if toolGlob == nil {
		var err error
		toolGlob, err = glob.Compile(r.Tool)
		if err != nil {
			return false
		}
	}
	if !toolGlob.Match(toolName) {
		return false
	}
	if r.Args == "" {
		return true
	}

	if r.argsGlob != nil {
		return matchField(r.argsField, r.argsGlob, input)
	}
	return matchArgsPattern(r.Args, input)
}

func matchArgsPattern(pattern string, input json.RawMessage) bool {
	field, valueGlob, ok := splitArgsPattern(pattern)
	if !ok {
		return false
	}
	g, err := glob.Compile(valueGlob)
	if err != nil {
		return false
	}
	return matchField(field, g, input)
}

func matchField(field string, g glob.Glob, input json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(input, &fields); err != nil {
		return false
	}
	raw, present := fields[field]
	if !present {
		return false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	return g.Match(value)
}

func splitArgsPattern(pattern string) (field, valueGlob string, ok bool) {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == ':' {
			return pattern[:i], pattern[i+1:], true
		}
	}
	return "", "", false
}

// Resolve selects the winning rule among those that match, by priority
// block > permit > prompt, ties broken by first match in rules order. It
// returns (Decision{}, false) when no rule matches.
func Resolve(rules []Rule, toolName string, input json.RawMessage) (Decision, bool) {
	var best *Rule
	for i := range rules {
		r := &rules[i]
		if !r.Match(toolName, input) {
			continue
		}
		if best == nil || priority(r.Action) > priority(best.Action) {
			best = r
		}
	}
	if best == nil {
		return Decision{}, false
	}
	desc := best.Description
	if desc == "" {
		desc = fmt.Sprintf("%s matched rule for %q", best.Action, best.Tool)
	}
	return Decision{Action: best.Action, Description: desc}, true
}

func priority(a Action) int {
	switch a {
	case ActionBlock:
		return 3
	case ActionPermit:
		return 2
	case ActionPrompt:
		return 1
	default:
		return 0
	}
}
