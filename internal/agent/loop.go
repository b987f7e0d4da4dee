package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kilnhq/relay/internal/hooks"
	"github.com/kilnhq/relay/internal/policy"
	"github.com/kilnhq/relay/internal/provider"
	"github.com/kilnhq/relay/internal/stringutil"
	"github.com/kilnhq/relay/pkg/models"
)

// MaxToolLoops caps the number of tool-dispatch round trips within a
// single turn, guarding against a model that never stops calling tools.
const MaxToolLoops = 50

const (
	toolOutputObserverTruncate = 200
	toolOutputHookTruncate     = 1000
)

// Cancelled is returned in place of any other error when the caller's
// context is done at one of the loop's two suspension points.
var Cancelled = fmt.Errorf("cancelled")

// Config bundles everything the loop needs beyond the live conversation.
type Config struct {
	Provider    provider.Provider
	Registry    *Registry
	Permissions *policy.Engine
	Hooks       *hooks.Runner
	Prompt      policy.PromptHandler

	Model       string
	MaxTokens   int
	System      string
	Temperature *float32
	Thinking    *models.ThinkingConfig

	PlanMode  bool
	ToolCtx   ToolContext
	Observer  Observer
	Logger    *slog.Logger
}

// Loop drives one agent run across as many turns as the model requires.
type Loop struct {
	cfg Config
}

// New builds a Loop from cfg, filling in a no-op observer and a default
// logger if they were left unset.
func New(cfg Config) *Loop {
	if cfg.Observer == nil {
		cfg.Observer = func(Event) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{cfg: cfg}
}

// turnState holds the scratch accumulators used to reassemble one
// streamed assistant message. Only one block is "active" at a time.
type turnState struct {
	contentBlocks []models.ContentBlock

	textAcc         string
	toolID          string
	toolName        string
	toolJSONAcc     string
	thinkingAcc     string
	signatureAcc    string
	inThinkingBlock bool

	stopReason *models.StopReason
}

// Run drives the agent until the model emits a terminal stop reason (no
// tool use, or end_turn), the tool-loop guard trips, cancellation is
// observed, or an unrecoverable error occurs. messages is mutated in
// place: on return it reflects every message committed during the run.
// The returned Usage is the cumulative token usage across every turn.
func (l *Loop) Run(ctx context.Context, messages *[]models.Message) (models.Usage, error) {
	var cumulative models.Usage

	for loopCount := 0; ; loopCount++ {
		if loopCount >= MaxToolLoops {
			l.emit(Event{Kind: EventError, Text: "max tool loops reached"})
			return cumulative, nil
		}

		turnUsage, toolUses, pushedAssistant, err := l.runOneTurn(ctx, messages, &cumulative)
		if err != nil {
			return cumulative, err
		}
		cumulative.Add(turnUsage)

		if len(toolUses) == 0 {
			l.emit(Event{Kind: EventUsage, Usage: cumulative})
			l.emit(Event{Kind: EventDone, Usage: cumulative})
			return cumulative, nil
		}

		results, cancelled := l.dispatchTools(ctx, toolUses, messages, pushedAssistant)
		if cancelled {
			return cumulative, Cancelled
		}

		*messages = append(*messages, models.Message{Role: models.RoleUser, Content: results})
	}
}

// runOneTurn builds one request, consumes its stream to completion, and
// commits the resulting assistant message (if any) to messages. It
// returns the ToolUse blocks just committed, and whether an assistant
// message was pushed this turn (needed so dispatchTools knows whether to
// pop it on mid-tool cancellation).
func (l *Loop) runOneTurn(ctx context.Context, messages *[]models.Message, cumulative *models.Usage) (models.Usage, []models.ContentBlock, bool, error) {
	request := l.buildRequest(*messages)

	stream, err := l.cfg.Provider.CreateMessageStream(ctx, request)
	if err != nil {
		return models.Usage{}, nil, false, err
	}
	defer stream.Close()

	state := &turnState{}
	var turnUsage models.Usage

	for {
		select {
		case <-ctx.Done():
			l.emit(Event{Kind: EventCancelled})
			return turnUsage, nil, false, Cancelled
		default:
		}

		ev, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				l.emit(Event{Kind: EventCancelled})
				return turnUsage, nil, false, Cancelled
			}
			return turnUsage, nil, false, err
		}

		l.applyEvent(ev, state, &turnUsage)
	}

	if len(state.contentBlocks) == 0 {
		return turnUsage, nil, false, nil
	}

	*messages = append(*messages, models.Message{Role: models.RoleAssistant, Content: state.contentBlocks})

	var toolUses []models.ContentBlock
	for _, b := range state.contentBlocks {
		if b.Type == models.BlockToolUse {
			toolUses = append(toolUses, b)
		}
	}

	if len(toolUses) == 0 {
		return turnUsage, nil, true, nil
	}
	if state.stopReason != nil && *state.stopReason == models.StopEndTurn {
		return turnUsage, nil, true, nil
	}

	return turnUsage, toolUses, true, nil
}

// applyEvent folds one StreamEvent into state, emitting observer events as
// it goes. The loop terminates on the underlying stream returning io.EOF,
// not on any particular event type (including MessageStop).
func (l *Loop) applyEvent(ev models.StreamEvent, state *turnState, turnUsage *models.Usage) {
	switch ev.Type {
	case models.EventMessageStart:
		if ev.Message != nil {
			turnUsage.Add(ev.Message.Usage)
		}
	case models.EventContentBlockStart:
		if ev.ContentBlock == nil {
			break
		}
		switch ev.ContentBlock.Type {
		case models.BlockText:
			state.textAcc = ""
		case models.BlockThinking:
			state.thinkingAcc = ""
			state.signatureAcc = ""
			state.inThinkingBlock = true
		case models.BlockToolUse:
			state.toolID = ev.ContentBlock.ID
			state.toolName = ev.ContentBlock.Name
			state.toolJSONAcc = ""
			l.emit(Event{Kind: EventToolStart, ToolName: state.toolName})
		}
	case models.EventContentBlockDelta:
		if ev.Delta == nil {
			break
		}
		switch ev.Delta.Type {
		case models.DeltaText:
			state.textAcc += ev.Delta.Text
			l.emit(Event{Kind: EventTextDelta, Text: ev.Delta.Text})
		case models.DeltaInputJSON:
			state.toolJSONAcc += ev.Delta.PartialJSON
		case models.DeltaThinking:
			state.thinkingAcc += ev.Delta.Thinking
			l.emit(Event{Kind: EventThinkingDelta, Text: ev.Delta.Thinking})
		case models.DeltaSignature:
			state.signatureAcc += ev.Delta.Signature
		}
	case models.EventContentBlockStop:
		l.closeActiveBlock(state)
	case models.EventMessageDelta:
		if ev.MessageDelta != nil {
			state.stopReason = ev.MessageDelta.StopReason
		}
		if ev.Usage != nil {
			turnUsage.Add(*ev.Usage)
		}
	case models.EventError:
		msg := ""
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		l.emit(Event{Kind: EventError, Text: msg})
	case models.EventPing, models.EventMessageStop:
		// no-op; the stream loop terminates on the underlying stream
		// ending, not on MessageStop.
	}
}

func (l *Loop) closeActiveBlock(state *turnState) {
	switch {
	case state.inThinkingBlock:
		block := models.ContentBlock{Type: models.BlockThinking, Thinking: state.thinkingAcc}
		if state.signatureAcc != "" {
			block.Signature = state.signatureAcc
		}
		state.contentBlocks = append(state.contentBlocks, block)
	case state.textAcc != "":
		state.contentBlocks = append(state.contentBlocks, models.TextBlock(state.textAcc))
	case state.toolID != "":
		input := json.RawMessage(state.toolJSONAcc)
		if !json.Valid(input) {
			input = json.RawMessage("null")
		}
		state.contentBlocks = append(state.contentBlocks, models.ToolUseBlock(state.toolID, state.toolName, input))
	}

	state.textAcc = ""
	state.toolID = ""
	state.toolName = ""
	state.toolJSONAcc = ""
	state.thinkingAcc = ""
	state.signatureAcc = ""
	state.inThinkingBlock = false
}

func (l *Loop) buildRequest(messages []models.Message) models.CreateMessageRequest {
	tools := l.cfg.Registry.Definitions()
	if l.cfg.PlanMode {
		tools = l.cfg.Registry.ReadOnlyDefinitions()
	}

	ephemeral := "ephemeral"
	var system []models.SystemBlock
	if l.cfg.System != "" {
		system = []models.SystemBlock{{
			Type:         "text",
			Text:         l.cfg.System,
			CacheControl: &models.CacheControl{Type: ephemeral},
		}}
	}

	return models.CreateMessageRequest{
		Model:       l.cfg.Model,
		MaxTokens:   l.cfg.MaxTokens,
		Messages:    messages,
		System:      system,
		Tools:       tools,
		Temperature: l.cfg.Temperature,
		Thinking:    l.cfg.Thinking,
		Stream:      true,
	}
}

// dispatchTools runs each ToolUse in order, appending ToolResult blocks to
// the returned slice, and returns (results, true) if cancellation was
// observed mid-dispatch — in which case the just-appended assistant
// message is popped from messages if pushedAssistant is set.
func (l *Loop) dispatchTools(ctx context.Context, toolUses []models.ContentBlock, messages *[]models.Message, pushedAssistant bool) ([]models.ContentBlock, bool) {
	var results []models.ContentBlock

	for _, tu := range toolUses {
		select {
		case <-ctx.Done():
			l.emit(Event{Kind: EventCancelled})
			l.popIfPushed(messages, pushedAssistant)
			return results, true
		default:
		}

		result, cancelled := l.dispatchOne(ctx, tu, messages, pushedAssistant)
		if cancelled {
			return results, true
		}
		results = append(results, result)
	}
	return results, false
}

func (l *Loop) dispatchOne(ctx context.Context, tu models.ContentBlock, messages *[]models.Message, pushedAssistant bool) (models.ContentBlock, bool) {
	isReadOnly := l.cfg.Registry.IsReadOnly(tu.Name)

	if l.cfg.PlanMode && !isReadOnly {
		l.emit(Event{Kind: EventToolBlocked, ToolName: tu.Name, Reason: "plan mode (read-only)"})
		return models.ToolResultBlock(tu.ID, "blocked: plan mode (read-only)", true), false
	}

	decision := l.cfg.Permissions.Check(tu.Name, tu.Input, isReadOnly)
	switch decision.Action {
	case policy.ActionBlock:
		l.emit(Event{Kind: EventToolBlocked, ToolName: tu.Name, Reason: decision.Reason})
		return models.ToolResultBlock(tu.ID, "blocked: "+decision.Reason, true), false
	case policy.ActionPrompt:
		response := l.cfg.Permissions.Prompt(tu.Name, tu.Input, decision.Description)
		switch response {
		case policy.PromptDeny:
			l.emit(Event{Kind: EventToolBlocked, ToolName: tu.Name, Reason: "Denied by user"})
			return models.ToolResultBlock(tu.ID, "blocked: Denied by user", true), false
		case policy.PromptAllowOnce, policy.PromptAlwaysAllow:
			// proceed
		}
	case policy.ActionPermit:
		// proceed
	}

	if l.cfg.Hooks != nil {
		outcome := l.cfg.Hooks.RunEvent(ctx, hooks.EventBeforeTool, hooks.Input{
			ToolName:  tu.Name,
			ToolInput: stringutil.Truncate(string(tu.Input), toolOutputHookTruncate),
		})
		if outcome.Denied {
			l.emit(Event{Kind: EventToolBlocked, ToolName: tu.Name, Reason: outcome.Reason})
			return models.ToolResultBlock(tu.ID, "blocked: "+outcome.Reason, true), false
		}
	}

	type execResult struct {
		output *ToolOutput
		toolErr *ToolError
	}
	resultCh := make(chan execResult, 1)
	go func() {
		output, toolErr := l.cfg.Registry.Execute(ctx, tu.Name, tu.Input, l.cfg.ToolCtx)
		resultCh <- execResult{output, toolErr}
	}()

	var output *ToolOutput
	var toolErr *ToolError
	select {
	case <-ctx.Done():
		l.emit(Event{Kind: EventCancelled})
		l.popIfPushed(messages, pushedAssistant)
		return models.ContentBlock{}, true
	case r := <-resultCh:
		output, toolErr = r.output, r.toolErr
	}

	var resultText string
	var isError bool
	if toolErr != nil {
		resultText = toolErr.Error()
		isError = true
	} else {
		resultText = outputText(output)
		isError = output.IsError
	}

	l.emit(Event{
		Kind:     EventToolEnd,
		ToolName: tu.Name,
		IsError:  isError,
		Text:     stringutil.Truncate(resultText, toolOutputObserverTruncate),
	})

	if l.cfg.Hooks != nil {
		l.cfg.Hooks.RunEvent(ctx, hooks.EventAfterTool, hooks.Input{
			ToolName:   tu.Name,
			ToolOutput: stringutil.Truncate(resultText, toolOutputHookTruncate),
			IsError:    &isError,
		})
	}

	return models.ToolResultBlock(tu.ID, resultText, isError), false
}

func (l *Loop) popIfPushed(messages *[]models.Message, pushedAssistant bool) {
	if pushedAssistant && len(*messages) > 0 {
		*messages = (*messages)[:len(*messages)-1]
	}
}

func outputText(output *ToolOutput) string {
	if output == nil {
		return ""
	}
	var text string
	for _, c := range output.Content {
		if c.Type == ToolOutputText {
			text += c.Text
		}
	}
	return text
}

func (l *Loop) emit(ev Event) {
	l.cfg.Observer(ev)
}
