package agent

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/kilnhq/relay/internal/policy"
	"github.com/kilnhq/relay/internal/provider"
	"github.com/kilnhq/relay/pkg/models"
)

// fakeStream replays a canned slice of StreamEvents, optionally blocking
// until a channel is closed (used to simulate an in-flight stream read
// that a cancellation races against).
type fakeStream struct {
	events []models.StreamEvent
	pos    int
	block  chan struct{}
}

func (s *fakeStream) Next(ctx context.Context) (models.StreamEvent, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return models.StreamEvent{}, ctx.Err()
		}
	}
	if s.pos >= len(s.events) {
		return models.StreamEvent{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *fakeStream) Close() error { return nil }

// fakeProvider serves a queue of streams, one per call to CreateMessageStream.
type fakeProvider struct {
	streams []*fakeStream
	calls   int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) CreateMessageStream(ctx context.Context, request models.CreateMessageRequest) (provider.EventStream, error) {
	s := p.streams[p.calls]
	p.calls++
	return s, nil
}

func textTurnEvents(text string) []models.StreamEvent {
	return []models.StreamEvent{
		{Type: models.EventMessageStart, Message: &models.CreateMessageResponse{Usage: models.Usage{InputTokens: 10}}},
		{Type: models.EventContentBlockStart, Index: 0, ContentBlock: &models.ContentBlock{Type: models.BlockText}},
		{Type: models.EventContentBlockDelta, Index: 0, Delta: &models.ContentDelta{Type: models.DeltaText, Text: text}},
		{Type: models.EventContentBlockStop, Index: 0},
		{Type: models.EventMessageDelta, MessageDelta: &models.MessageDelta{StopReason: stopPtr(models.StopEndTurn)}, Usage: &models.Usage{OutputTokens: 5}},
		{Type: models.EventMessageStop},
	}
}

func toolUseTurnEvents(id, name, inputJSON string) []models.StreamEvent {
	return []models.StreamEvent{
		{Type: models.EventMessageStart, Message: &models.CreateMessageResponse{Usage: models.Usage{InputTokens: 10}}},
		{Type: models.EventContentBlockStart, Index: 0, ContentBlock: &models.ContentBlock{Type: models.BlockToolUse, ID: id, Name: name}},
		{Type: models.EventContentBlockDelta, Index: 0, Delta: &models.ContentDelta{Type: models.DeltaInputJSON, PartialJSON: inputJSON}},
		{Type: models.EventContentBlockStop, Index: 0},
		{Type: models.EventMessageDelta, MessageDelta: &models.MessageDelta{StopReason: stopPtr(models.StopToolUse)}, Usage: &models.Usage{OutputTokens: 5}},
		{Type: models.EventMessageStop},
	}
}

func stopPtr(s models.StopReason) *models.StopReason { return &s }

type echoTool struct{ readOnly bool }

func (t echoTool) Name() string { return "Echo" }
func (t echoTool) Definition() ToolDefinition {
	return ToolDefinition{Name: "Echo", Description: "echoes input", InputSchema: map[string]any{}}
}
func (t echoTool) IsReadOnly() bool { return t.readOnly }
func (t echoTool) Execute(ctx context.Context, input json.RawMessage, tc ToolContext) (*ToolOutput, *ToolError) {
	return TextOutput("echoed", false), nil
}

type blockingTool struct {
	started  chan struct{}
	release  chan struct{}
	readOnly bool
}

func (t *blockingTool) Name() string { return "Slow" }
func (t *blockingTool) Definition() ToolDefinition {
	return ToolDefinition{Name: "Slow", Description: "blocks until released", InputSchema: map[string]any{}}
}
func (t *blockingTool) IsReadOnly() bool { return t.readOnly }
func (t *blockingTool) Execute(ctx context.Context, input json.RawMessage, tc ToolContext) (*ToolOutput, *ToolError) {
	close(t.started)
	<-t.release
	return TextOutput("done", false), nil
}

func newTestLoop(prov provider.Provider, planMode bool, extraTools ...Tool) *Loop {
	reg := NewRegistry()
	_ = reg.Register(echoTool{readOnly: false})
	for _, tool := range extraTools {
		_ = reg.Register(tool)
	}
	engine := policy.NewEngine([]policy.Rule{{Tool: "*", Action: policy.ActionPermit}}, nil, false)
	return New(Config{
		Provider:    prov,
		Registry:    reg,
		Permissions: engine,
		Model:       "test-model",
		MaxTokens:   100,
		PlanMode:    planMode,
	})
}

func TestLoopSimpleTextTurnEndsTurn(t *testing.T) {
	prov := &fakeProvider{streams: []*fakeStream{{events: textTurnEvents("hello")}}}
	loop := newTestLoop(prov, false)

	var events []Event
	loop.cfg.Observer = func(e Event) { events = append(events, e) }

	messages := []models.Message{{Role: models.RoleUser, Content: []models.ContentBlock{models.TextBlock("hi")}}}
	usage, err := loop.Run(context.Background(), &messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.InputTokens != 10 || usage.OutputTokens != 5 {
		t.Fatalf("unexpected usage: %+v", usage)
	}
	if len(messages) != 2 || messages[1].Role != models.RoleAssistant {
		t.Fatalf("expected assistant message committed, got %+v", messages)
	}
	if messages[1].Content[0].Text != "hello" {
		t.Fatalf("unexpected assistant text: %+v", messages[1].Content)
	}

	var sawDone bool
	for _, e := range events {
		if e.Kind == EventDone {
			sawDone = true
		}
	}
	if !sawDone {
		t.Fatal("expected a Done event")
	}
}

func TestLoopToolUseRoundTrip(t *testing.T) {
	prov := &fakeProvider{streams: []*fakeStream{
		{events: toolUseTurnEvents("t1", "Echo", `{"x":1}`)},
		{events: textTurnEvents("all done")},
	}}
	loop := newTestLoop(prov, false)

	messages := []models.Message{{Role: models.RoleUser, Content: []models.ContentBlock{models.TextBlock("go")}}}
	_, err := loop.Run(context.Background(), &messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(messages) != 4 {
		t.Fatalf("expected 4 messages (user, assistant-tooluse, user-toolresult, assistant-text), got %d", len(messages))
	}
	if messages[1].Content[0].Type != models.BlockToolUse {
		t.Fatalf("expected tool use block, got %+v", messages[1])
	}
	toolResult := messages[2].Content[0]
	if toolResult.Type != models.BlockToolResult || toolResult.ToolUseID != "t1" {
		t.Fatalf("expected matching tool result, got %+v", toolResult)
	}
	if toolResult.IsError == nil || *toolResult.IsError {
		t.Fatalf("expected successful tool result, got %+v", toolResult)
	}
}

func TestLoopPlanModeBlocksMutatingTool(t *testing.T) {
	prov := &fakeProvider{streams: []*fakeStream{
		{events: toolUseTurnEvents("t1", "Echo", `{}`)},
		{events: textTurnEvents("ok")},
	}}
	loop := newTestLoop(prov, true)

	var blocked bool
	loop.cfg.Observer = func(e Event) {
		if e.Kind == EventToolBlocked {
			blocked = true
		}
	}

	messages := []models.Message{{Role: models.RoleUser, Content: []models.ContentBlock{models.TextBlock("go")}}}
	_, err := loop.Run(context.Background(), &messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !blocked {
		t.Fatal("expected plan mode to block a mutating tool")
	}
	toolResult := messages[2].Content[0]
	if toolResult.IsError == nil || !*toolResult.IsError {
		t.Fatalf("expected error tool result from plan-mode block, got %+v", toolResult)
	}
}

func TestLoopMalformedToolJSONBecomesNull(t *testing.T) {
	prov := &fakeProvider{streams: []*fakeStream{
		{events: toolUseTurnEvents("t1", "Echo", `not json`)},
		{events: textTurnEvents("ok")},
	}}
	loop := newTestLoop(prov, false)

	messages := []models.Message{{Role: models.RoleUser, Content: []models.ContentBlock{models.TextBlock("go")}}}
	_, err := loop.Run(context.Background(), &messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	toolUse := messages[1].Content[0]
	if string(toolUse.Input) != "null" {
		t.Fatalf("expected malformed JSON to become null, got %q", toolUse.Input)
	}
}

func TestLoopCancellationDuringToolExecutionPopsAssistantMessage(t *testing.T) {
	tool := &blockingTool{started: make(chan struct{}), release: make(chan struct{})}
	prov := &fakeProvider{streams: []*fakeStream{
		{events: toolUseTurnEvents("t1", "Slow", `{}`)},
	}}
	loop := newTestLoop(prov, false, tool)

	messages := []models.Message{{Role: models.RoleUser, Content: []models.ContentBlock{models.TextBlock("go")}}}
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := loop.Run(ctx, &messages)
		errCh <- err
	}()

	<-tool.started
	cancel()
	// deliberately leave tool.release closed-never: the tool goroutine
	// stays blocked so the cancellation branch is the only one that can
	// ever become ready, making the race deterministic for the test.

	err := <-errCh
	if err != Cancelled {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected the turn's assistant message to be popped, got %d messages", len(messages))
	}
}

func TestLoopCancellationBetweenStreamReadsNeverPushesMessage(t *testing.T) {
	block := make(chan struct{})
	prov := &fakeProvider{streams: []*fakeStream{{events: textTurnEvents("hi"), block: block}}}
	loop := newTestLoop(prov, false)

	messages := []models.Message{{Role: models.RoleUser, Content: []models.ContentBlock{models.TextBlock("go")}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loop.Run(ctx, &messages)
	if err != Cancelled {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected no assistant message pushed, got %d messages", len(messages))
	}
}

func TestLoopMaxToolLoopsGuard(t *testing.T) {
	var streams []*fakeStream
	for i := 0; i < MaxToolLoops+1; i++ {
		streams = append(streams, &fakeStream{events: toolUseTurnEvents("t1", "Echo", `{}`)})
	}
	prov := &fakeProvider{streams: streams}
	loop := newTestLoop(prov, false)

	var sawErrorEvent bool
	loop.cfg.Observer = func(e Event) {
		if e.Kind == EventError {
			sawErrorEvent = true
		}
	}

	messages := []models.Message{{Role: models.RoleUser, Content: []models.ContentBlock{models.TextBlock("go")}}}
	_, err := loop.Run(context.Background(), &messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawErrorEvent {
		t.Fatal("expected the max-tool-loops guard to emit an Error event")
	}
}
