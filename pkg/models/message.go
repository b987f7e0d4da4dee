// Package models defines the canonical conversation data model shared by
// the provider, agent, and tool layers: messages, content blocks, tool
// definitions, and token usage.
package models

import "encoding/json"

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is an ordered sequence of content blocks authored by one role.
// A conversation is an ordered sequence of messages that alternates roles
// at the transcript level; tool results live inside user messages.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// BlockType tags the concrete type carried by a ContentBlock.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking   BlockType = "thinking"
	BlockImage      BlockType = "image"
)

// ContentBlock is a tagged union mirroring the wire content-block variants.
// Only the fields relevant to Type are populated; this matches the source
// protocol's discriminated-union shape rather than modelling each variant
// as a distinct Go type, so the agent loop can switch on Type exhaustively.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text / Thinking
	Text      string `json:"text,omitempty"`
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	// ToolUse
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// ToolResult
	ToolUseID string               `json:"tool_use_id,omitempty"`
	Content   []ToolResultContent  `json:"content,omitempty"`
	IsError   *bool                `json:"is_error,omitempty"`

	// Image
	Source *ImageSource `json:"source,omitempty"`
}

// ToolResultContent is one item of a ToolResult's content list: text or image.
type ToolResultContent struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSourceType is how an image is supplied to the API.
type ImageSourceType string

const (
	ImageSourceBase64 ImageSourceType = "base64"
	ImageSourceURL    ImageSourceType = "url"
)

// ImageSource describes the bytes or location of an image content block.
type ImageSource struct {
	Type      ImageSourceType `json:"type"`
	MediaType string          `json:"media_type,omitempty"`
	Data      string          `json:"data,omitempty"`
	URL       string          `json:"url,omitempty"`
}

// TextBlock builds a Text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock builds a ToolUse content block.
func ToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock builds a ToolResult content block for the given tool_use_id.
func ToolResultBlock(toolUseID string, text string, isError bool) ContentBlock {
	return ContentBlock{
		Type:      BlockToolResult,
		ToolUseID: toolUseID,
		Content:   []ToolResultContent{{Type: "text", Text: text}},
		IsError:   &isError,
	}
}

// StopReason is why the model stopped generating a turn.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopStopSequence StopReason = "stop_sequence"
	StopToolUse      StopReason = "tool_use"
)
