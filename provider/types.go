package provider

import (
	"encoding/json"
	"time"
)

// Request configures a text generation call.
// This is the provider-agnostic request format used across all providers.
type Request struct {
	// APIKey authenticates the request. Providers that don't require a
	// credential receive nil explicitly, so the call shape stays uniform.
	APIKey *string `json:"api_key"`

	// Model specifies which model to use (provider-specific name).
	// Examples: "claude-sonnet-4-20250514", "sonar-pro", "llama3.1"
	Model string `json:"model"`

	// MaxTokens limits the response length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls response randomness (0.0 = deterministic).
	Temperature float64 `json:"temperature,omitempty"`

	// Messages is the ordered conversation to send to the model.
	Messages []Message `json:"messages"`
}

// ObjectRequest configures a structured (schema-validated) generation call.
type ObjectRequest struct {
	Request

	// Schema is the JSON Schema the generated object must satisfy.
	Schema json.RawMessage `json:"schema"`

	// ObjectName labels the expected object in provider prompts
	// (e.g. "tasks"). Optional.
	ObjectName string `json:"object_name,omitempty"`
}

// Message is a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTextMessage creates a simple text message.
func NewTextMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// Role identifies the message sender.
type Role string

// Standard message roles supported across all providers.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response is the output of a text generation call.
type Response struct {
	// Content is the text response from the model.
	Content string `json:"content"`

	// Usage tracks token consumption for this request.
	Usage TokenUsage `json:"usage"`

	// Model is the actual model used (may differ from requested).
	Model string `json:"model"`

	// FinishReason indicates why the model stopped generating.
	// Common values: "stop", "length"
	FinishReason string `json:"finish_reason,omitempty"`

	// Duration is the time taken for the completion.
	Duration time.Duration `json:"duration,omitempty"`
}

// ObjectResponse is the output of a structured generation call.
// Object holds the raw JSON of the schema-validated result; callers
// unmarshal it into their own types.
type ObjectResponse struct {
	Object   json.RawMessage `json:"object"`
	Usage    TokenUsage      `json:"usage"`
	Model    string          `json:"model"`
	Duration time.Duration   `json:"duration,omitempty"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add combines token usage from another TokenUsage.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// StreamChunk is a piece of a streaming response.
type StreamChunk struct {
	// Content is the text content in this chunk.
	Content string `json:"content,omitempty"`

	// Usage is the token usage (only set in the final chunk).
	Usage *TokenUsage `json:"usage,omitempty"`

	// Done indicates this is the final chunk.
	Done bool `json:"done"`

	// Error is non-nil if streaming failed.
	Error error `json:"-"`
}
