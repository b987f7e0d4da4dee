package session

import (
	"fmt"
	"strings"

	"github.com/kilnhq/relay/pkg/models"
)

// Info summarizes a conversation's estimated context window usage.
type Info struct {
	EstimatedTokens     uint64
	ContextWindow       uint64
	UserTokens          uint64
	AssistantTokens     uint64
	SystemTokens        uint64
	LastTurnInputTokens uint64
	LastTurnOutputTokens uint64
}

// UsagePercent returns estimated usage as a percentage of the context window.
func (i Info) UsagePercent() float64 {
	if i.ContextWindow == 0 {
		return 0
	}
	return (float64(i.EstimatedTokens) / float64(i.ContextWindow)) * 100
}

// ContextTracker estimates token usage for a conversation against a model's
// context window, using a chars/4 heuristic (no tokenizer dependency).
type ContextTracker struct {
	contextWindow uint64
}

// NewContextTracker creates a tracker sized for the given model name.
func NewContextTracker(model string) *ContextTracker {
	return &ContextTracker{contextWindow: modelContextWindow(model)}
}

// Estimate computes context usage for the given messages and optional
// system prompt.
func (t *ContextTracker) Estimate(messages []models.Message, systemPrompt string) Info {
	var systemTokens uint64
	if systemPrompt != "" {
		systemTokens = estimateTextTokens(systemPrompt)
	}

	var userTokens, assistantTokens uint64
	for _, msg := range messages {
		tokens := estimateMessageTokens(msg)
		switch msg.Role {
		case models.RoleUser:
			userTokens += tokens
		case models.RoleAssistant:
			assistantTokens += tokens
		}
	}

	var lastTurnInput, lastTurnOutput uint64
	if lastAsstIdx := lastIndexAssistant(messages); lastAsstIdx >= 0 {
		lastTurnOutput = estimateMessageTokens(messages[lastAsstIdx])
		for i := lastAsstIdx - 1; i >= 0; i-- {
			if messages[i].Role != models.RoleUser {
				break
			}
			lastTurnInput += estimateMessageTokens(messages[i])
		}
	}

	return Info{
		EstimatedTokens:      systemTokens + userTokens + assistantTokens,
		ContextWindow:        t.contextWindow,
		UserTokens:           userTokens,
		AssistantTokens:      assistantTokens,
		SystemTokens:         systemTokens,
		LastTurnInputTokens:  lastTurnInput,
		LastTurnOutputTokens: lastTurnOutput,
	}
}

// FormatBrief renders a one-line context summary.
func (t *ContextTracker) FormatBrief(info Info) string {
	estK := float64(info.EstimatedTokens) / 1000
	winK := float64(info.ContextWindow) / 1000
	return fmt.Sprintf("Context: %.1fk/%.0fk tokens (%.0f%%)", estK, winK, info.UsagePercent())
}

// FormatDetailed renders a multi-line context breakdown.
func (t *ContextTracker) FormatDetailed(info Info) string {
	estK := float64(info.EstimatedTokens) / 1000
	winK := float64(info.ContextWindow) / 1000
	lines := []string{
		fmt.Sprintf("Context window: %.1fk / %.0fk tokens (%.1f%%)", estK, winK, info.UsagePercent()),
		fmt.Sprintf("  System:    ~%d tokens", info.SystemTokens),
		fmt.Sprintf("  User:      ~%d tokens", info.UserTokens),
		fmt.Sprintf("  Assistant: ~%d tokens", info.AssistantTokens),
	}
	if info.LastTurnInputTokens > 0 || info.LastTurnOutputTokens > 0 {
		lines = append(lines, fmt.Sprintf("  Last turn: ~%d in / ~%d out", info.LastTurnInputTokens, info.LastTurnOutputTokens))
	}
	return strings.Join(lines, "\n")
}

func lastIndexAssistant(messages []models.Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleAssistant {
			return i
		}
	}
	return -1
}

// estimateTextTokens estimates tokens for a text string using a chars/4
// heuristic, matching the absence of a tokenizer dependency.
func estimateTextTokens(text string) uint64 {
	return uint64((len(text) + 3) / 4)
}

func estimateBlockTokens(block models.ContentBlock) uint64 {
	switch block.Type {
	case models.BlockText:
		return estimateTextTokens(block.Text)
	case models.BlockToolUse:
		return estimateTextTokens(block.Name) + estimateTextTokens(string(block.Input))
	case models.BlockToolResult:
		var tokens uint64
		for _, c := range block.Content {
			if c.Source != nil {
				tokens += 1000
				continue
			}
			tokens += estimateTextTokens(c.Text)
		}
		return tokens
	case models.BlockThinking:
		return estimateTextTokens(block.Thinking)
	case models.BlockImage:
		return 1000
	default:
		return 0
	}
}

func estimateMessageTokens(msg models.Message) uint64 {
	tokens := uint64(4) // per-message overhead (role, separators)
	for _, block := range msg.Content {
		tokens += estimateBlockTokens(block)
	}
	return tokens
}

func modelContextWindow(model string) uint64 {
	if strings.Contains(strings.ToLower(model), "claude") {
		return 200_000
	}
	return 128_000
}
