package policy

import (
	"encoding/json"
	"testing"
)

func TestRuleMatchWildcardTool(t *testing.T) {
	r := Rule{Tool: "*", Action: ActionBlock}
	if !r.Match("anything", nil) {
		t.Fatal("expected wildcard to match any tool name")
	}
}

func TestRuleMatchLiteralTool(t *testing.T) {
	r := Rule{Tool: "Bash", Action: ActionPermit}
	if !r.Match("Bash", nil) {
		t.Fatal("expected literal match")
	}
	if r.Match("bash", nil) {
		t.Fatal("expected case-sensitive literal mismatch")
	}
}

func TestRuleMatchArgsPattern(t *testing.T) {
	r := Rule{Tool: "Bash", Args: "command:git *", Action: ActionPermit}
	if !r.Match("Bash", json.RawMessage(`{"command":"git status"}`)) {
		t.Fatal("expected args glob to match")
	}
	if r.Match("Bash", json.RawMessage(`{"command":"rm -rf /"}`)) {
		t.Fatal("expected args glob to not match")
	}
}

func TestRuleMatchArgsMissingFieldIsNonMatch(t *testing.T) {
	r := Rule{Tool: "Bash", Args: "command:git *", Action: ActionPermit}
	if r.Match("Bash", json.RawMessage(`{}`)) {
		t.Fatal("expected missing field to be a non-match")
	}
}

func TestRuleMatchArgsNonStringFieldIsNonMatch(t *testing.T) {
	r := Rule{Tool: "Bash", Args: "count:5", Action: ActionPermit}
	if r.Match("Bash", json.RawMessage(`{"count":5}`)) {
		t.Fatal("expected non-string field to be a non-match")
	}
}

func TestResolvePriorityBlockBeatsPermit(t *testing.T) {
	rules := []Rule{
		{Tool: "Bash", Action: ActionPermit},
		{Tool: "Bash", Action: ActionBlock, Description: "blocked"},
	}
	decision, ok := Resolve(rules, "Bash", nil)
	if !ok || decision.Action != ActionBlock {
		t.Fatalf("expected block to win, got %+v", decision)
	}
}

func TestResolvePriorityPermitBeatsPrompt(t *testing.T) {
	rules := []Rule{
		{Tool: "Bash", Action: ActionPrompt},
		{Tool: "Bash", Action: ActionPermit},
	}
	decision, ok := Resolve(rules, "Bash", nil)
	if !ok || decision.Action != ActionPermit {
		t.Fatalf("expected permit to win, got %+v", decision)
	}
}

func TestResolveNoMatch(t *testing.T) {
	rules := []Rule{{Tool: "Edit", Action: ActionPermit}}
	_, ok := Resolve(rules, "Bash", nil)
	if ok {
		t.Fatal("expected no match")
	}
}

func TestCompileRuleCachesGlobsForRepeatedMatch(t *testing.T) {
	r := compileRule(Rule{Tool: "Bash", Args: "command:git *", Action: ActionPermit})
	if r.toolGlob == nil || r.argsGlob == nil {
		t.Fatal("expected compileRule to populate cached globs")
	}
	if !r.Match("Bash", json.RawMessage(`{"command":"git status"}`)) {
		t.Fatal("expected compiled rule to still match")
	}
	if r.Match("Bash", json.RawMessage(`{"command":"rm -rf /"}`)) {
		t.Fatal("expected compiled rule to still reject a non-matching command")
	}
}

func TestCompileRulesPreservesOrderAndCount(t *testing.T) {
	rules := []Rule{
		{Tool: "Bash", Action: ActionPermit},
		{Tool: "Edit", Action: ActionBlock},
	}
	compiled := compileRules(rules)
	if len(compiled) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(compiled))
	}
	if compiled[0].Tool != "Bash" || compiled[1].Tool != "Edit" {
		t.Fatalf("expected order preserved, got %+v", compiled)
	}
}

func TestResolveTiesPickFirstMatch(t *testing.T) {
	rules := []Rule{
		{Tool: "Bash", Action: ActionPermit, Description: "first"},
		{Tool: "*", Action: ActionPermit, Description: "second"},
	}
	decision, ok := Resolve(rules, "Bash", nil)
	if !ok || decision.Description != "first" {
		t.Fatalf("expected first match to win ties, got %+v", decision)
	}
}
