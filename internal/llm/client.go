// Package llm talks to chat models that support function calling. Every
// provider receives tools in the OpenAI function format and returns at most
// one tool call per round-trip.
package llm

import (
	"context"
	"errors"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a function call requested by the model
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON object
}

// Message represents a chat message
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	ToolID    string     `json:"tool_id,omitempty"`
	ToolName  string     `json:"tool_name,omitempty"` // Name of the tool for tool responses
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	Messages     []*Message               `json:"messages"`
	Tools        []map[string]interface{} `json:"tools,omitempty"`
	Temperature  float64                  `json:"temperature"`
	MaxTokens    int                      `json:"max_tokens,omitempty"`
	SystemPrompt string                   `json:"system_prompt,omitempty"`
}

// Usage reports token consumption of one round-trip
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
}

// ToolCall returns the first requested tool call. Parallel calls are disabled
// on every provider, so later calls are ignored.
func (r *CompletionResponse) ToolCall() (ToolCall, bool) {
	if r == nil || len(r.ToolCalls) == 0 {
		return ToolCall{}, false
	}
	return r.ToolCalls[0], true
}

// Client is the interface for LLM clients
type Client interface {
	// Complete sends a completion request and returns the response
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	// GetModelName returns the model name
	GetModelName() string
}

var errNilRequest = errors.New("completion request cannot be nil")

// AssistantMessage builds the history entry for a model response.
func AssistantMessage(resp *CompletionResponse) *Message {
	msg := &Message{Role: RoleAssistant}
	if resp == nil {
		return msg
	}
	msg.Content = resp.Content
	if call, ok := resp.ToolCall(); ok {
		msg.ToolCalls = []ToolCall{call}
	}
	return msg
}

// ToolMessage builds the history entry answering call.
func ToolMessage(call ToolCall, content string) *Message {
	return &Message{
		Role:     RoleTool,
		Content:  content,
		ToolID:   call.ID,
		ToolName: call.Name,
	}
}
