package models

// StreamEventType tags the concrete StreamEvent variant.
type StreamEventType string

const (
	EventMessageStart      StreamEventType = "message_start"
	EventContentBlockStart StreamEventType = "content_block_start"
	EventContentBlockDelta StreamEventType = "content_block_delta"
	EventContentBlockStop  StreamEventType = "content_block_stop"
	EventMessageDelta      StreamEventType = "message_delta"
	EventMessageStop       StreamEventType = "message_stop"
	EventPing              StreamEventType = "ping"
	EventError             StreamEventType = "error"
)

// StreamEvent is a tagged union mirroring the wire protocol's SSE event
// types, decoded into typed fields. Only the fields relevant to Type are
// populated.
type StreamEvent struct {
	Type StreamEventType

	Message      *CreateMessageResponse // MessageStart
	Index        int                    // ContentBlockStart/Delta/Stop
	ContentBlock *ContentBlock          // ContentBlockStart
	Delta        *ContentDelta          // ContentBlockDelta
	MessageDelta *MessageDelta          // MessageDelta
	Usage        *Usage                 // MessageDelta (incremental usage)
	Error        *APIErrorResponse      // Error
}

// DeltaType tags the concrete ContentDelta variant.
type DeltaType string

const (
	DeltaText        DeltaType = "text_delta"
	DeltaInputJSON   DeltaType = "input_json_delta"
	DeltaThinking    DeltaType = "thinking_delta"
	DeltaSignature   DeltaType = "signature_delta"
)

// ContentDelta is an incremental update to the content block currently
// being streamed.
type ContentDelta struct {
	Type         DeltaType `json:"type"`
	Text         string    `json:"text,omitempty"`
	PartialJSON  string    `json:"partial_json,omitempty"`
	Thinking     string    `json:"thinking,omitempty"`
	Signature    string    `json:"signature,omitempty"`
}

// MessageDelta carries message-level changes (currently only stop_reason).
type MessageDelta struct {
	StopReason *StopReason `json:"stop_reason,omitempty"`
}

// APIErrorResponse is the error body of an `error` SSE event.
type APIErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
