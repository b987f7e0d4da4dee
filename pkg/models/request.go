package models

// ToolDefinition is a tool description sent to the model.
type ToolDefinition struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	InputSchema   map[string]any `json:"input_schema"`
	CacheControl  *CacheControl  `json:"cache_control,omitempty"`
}

// CacheControl marks a request field as eligible for prompt caching.
type CacheControl struct {
	Type string `json:"type"`
}

// SystemBlock is one block of the system prompt.
type SystemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// ThinkingConfig enables extended-thinking content blocks.
type ThinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

// CreateMessageRequest is the request body for POST /v1/messages.
type CreateMessageRequest struct {
	Model         string           `json:"model"`
	MaxTokens     int              `json:"max_tokens"`
	Messages      []Message        `json:"messages"`
	System        []SystemBlock    `json:"system,omitempty"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
	Temperature   *float32         `json:"temperature,omitempty"`
	Thinking      *ThinkingConfig  `json:"thinking,omitempty"`
	Stream        bool             `json:"stream"`
}

// CreateMessageResponse is the non-streaming response shape, also used as
// the payload of a message_start StreamEvent.
type CreateMessageResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       Role           `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason *StopReason    `json:"stop_reason,omitempty"`
	Usage      Usage          `json:"usage"`
}
