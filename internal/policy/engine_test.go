package policy

import (
	"encoding/json"
	"testing"
)

func TestEngineLudicrousAlwaysPermits(t *testing.T) {
	e := NewEngine([]Rule{{Tool: "*", Action: ActionBlock}}, nil, true)
	result := e.Check("Bash", nil, false)
	if result.Action != ActionPermit {
		t.Fatalf("expected permit in ludicrous mode, got %+v", result)
	}
}

func TestEngineStaticBlock(t *testing.T) {
	e := NewEngine([]Rule{{Tool: "Bash", Action: ActionBlock, Description: "no shell"}}, nil, false)
	result := e.Check("Bash", nil, false)
	if result.Action != ActionBlock || result.Reason != "no shell" {
		t.Fatalf("expected block, got %+v", result)
	}
}

func TestEngineDefaultReadOnlyPermits(t *testing.T) {
	e := NewEngine(nil, nil, false)
	result := e.Check("Read", nil, true)
	if result.Action != ActionPermit {
		t.Fatalf("expected default permit for read-only tool, got %+v", result)
	}
}

func TestEngineDefaultMutatingPrompts(t *testing.T) {
	e := NewEngine(nil, nil, false)
	result := e.Check("Write", nil, false)
	if result.Action != ActionPrompt {
		t.Fatalf("expected default prompt for mutating tool, got %+v", result)
	}
}

func TestEngineSessionRuleLoosensNotTightens(t *testing.T) {
	e := NewEngine([]Rule{{Tool: "Bash", Action: ActionBlock}}, nil, false)
	e.AddSessionRule(Rule{Tool: "Bash", Action: ActionPermit})
	result := e.Check("Bash", nil, false)
	if result.Action != ActionPermit {
		t.Fatalf("expected session permit to override static block, got %+v", result)
	}
}

func TestEnginePromptWithoutHandlerDenies(t *testing.T) {
	e := NewEngine(nil, nil, false)
	response := e.Prompt("Write", nil, "writes a file")
	if response != PromptDeny {
		t.Fatalf("expected deny with no handler, got %v", response)
	}
}

func TestEnginePromptAlwaysAllowAddsSessionRule(t *testing.T) {
	e := NewEngine(nil, func(tool string, input json.RawMessage, desc string) PromptResponse {
		return PromptAlwaysAllow
	}, false)

	response := e.Prompt("Write", nil, "writes a file")
	if response != PromptAlwaysAllow {
		t.Fatalf("expected AlwaysAllow, got %v", response)
	}

	result := e.Check("Write", nil, false)
	if result.Action != ActionPermit {
		t.Fatalf("expected subsequent check to permit after AlwaysAllow, got %+v", result)
	}
}

func TestEngineConcurrentSessionRuleWrites(t *testing.T) {
	e := NewEngine(nil, nil, false)
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(n int) {
			e.AddSessionRule(Rule{Tool: "Bash", Action: ActionPermit})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	if len(e.sessionRules) != 10 {
		t.Fatalf("expected 10 session rules, got %d", len(e.sessionRules))
	}
}
