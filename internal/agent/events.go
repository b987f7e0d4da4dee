package agent

import "github.com/kilnhq/relay/pkg/models"

// EventKind tags the variant carried by an Event.
type EventKind string

const (
	EventTextDelta     EventKind = "text_delta"
	EventThinkingDelta EventKind = "thinking_delta"
	EventToolStart     EventKind = "tool_start"
	EventToolEnd       EventKind = "tool_end"
	EventToolBlocked   EventKind = "tool_blocked"
	EventUsage         EventKind = "usage"
	EventDone          EventKind = "done"
	EventCancelled     EventKind = "cancelled"
	EventError         EventKind = "error"
)

// Event is one observer notification emitted by the agent loop. Only the
// fields relevant to Kind are populated. Events are fire-and-forget: the
// observer callback's return value, if any, never feeds back into the
// loop's control flow.
type Event struct {
	Kind EventKind

	Text      string // TextDelta / ThinkingDelta / Error
	ToolName  string // ToolStart / ToolEnd / ToolBlocked
	ToolInput string // ToolStart
	Reason    string // ToolBlocked
	IsError   bool   // ToolEnd

	Usage models.Usage // Usage, and the final tally on Done
}

// Observer receives Events as the loop processes them.
type Observer func(Event)
