// Package provider implements the LLM completion client used by the agents.
package provider

import (
	"context"
	"strings"
)

// LLMProvider is the interface for LLM completion clients.
type LLMProvider interface {
	// Messages sends a completion request and returns the response.
	Messages(ctx context.Context, req *MessageRequest) (*MessageResponse, error)
	// DefaultModel returns the configured default model.
	DefaultModel() string
}

// CacheControl marks a prompt segment as reusable across calls.
type CacheControl struct {
	Type string `json:"type"`
}

// EphemeralCache returns the ephemeral prompt-caching hint.
func EphemeralCache() *CacheControl {
	return &CacheControl{Type: "ephemeral"}
}

// SystemBlock is one text segment of the ordered system prompt.
type SystemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// NewSystemBlock creates a plain text system block.
func NewSystemBlock(text string) SystemBlock {
	return SystemBlock{Type: "text", Text: text}
}

// NewCachedSystemBlock creates a system block tagged for ephemeral caching.
func NewCachedSystemBlock(text string) SystemBlock {
	return SystemBlock{Type: "text", Text: text, CacheControl: EphemeralCache()}
}

// ContentBlock is one segment of a message: text, tool_use, or tool_result.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use fields
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result fields
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// ToolResultBlock creates a tool_result block for the given tool_use id.
func ToolResultBlock(toolUseID, result string, isError bool) ContentBlock {
	return ContentBlock{Type: "tool_result", ToolUseID: toolUseID, Content: result, IsError: isError}
}

// Message is one conversation turn.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage creates a single-text-block message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{TextBlock(text)}}
}

// ToolUse is a tool invocation requested by the model.
type ToolUse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// ToolDefinition describes one tool in the manifest sent to the model.
type ToolDefinition struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	CacheControl *CacheControl  `json:"cache_control,omitempty"`
}

// MessageRequest contains the parameters for a completion request.
type MessageRequest struct {
	Model       string
	System      []SystemBlock
	Messages    []Message
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature float64
}

// MessageResponse contains the response from a completion request.
type MessageResponse struct {
	Content    []ContentBlock
	StopReason string
	Usage      Usage
}

// Text joins the text segments of the response, in order.
func (r *MessageResponse) Text() string {
	var parts []string
	for _, b := range r.Content {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// ToolUses returns the tool_use segments of the response, in order.
func (r *MessageResponse) ToolUses() []ToolUse {
	var uses []ToolUse
	for _, b := range r.Content {
		if b.Type == "tool_use" {
			uses = append(uses, ToolUse{ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}
	return uses
}

// Empty reports whether the response carries no content blocks at all.
func (r *MessageResponse) Empty() bool {
	return len(r.Content) == 0
}

// Usage contains token usage information, including prompt-cache counters.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// Add accumulates another usage sample into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}
