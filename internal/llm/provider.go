// Package llm wraps the Gemini API behind a small Provider interface so
// agents can be tested against a fake model.
package llm

import (
	"context"
	"io"
	"time"
)

// MaxErrorBodySize limits how much error response body we read (1MB).
const MaxErrorBodySize = 1 * 1024 * 1024

// Provider defines the interface for LLM providers.
type Provider interface {
	// Chat sends a message and returns the response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider identifier.
	Name() string

	// Available returns true if the provider is configured.
	Available() bool
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	// Model to use; falls back to the provider default.
	Model string `json:"model"`

	// SystemPrompt sets the model's behavior.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Messages in the conversation.
	Messages []Message `json:"messages"`

	// MaxTokens limits response length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `json:"temperature,omitempty"`
}

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse contains the model's response.
type ChatResponse struct {
	Content          string        `json:"content"`
	Model            string        `json:"model"`
	TokensUsed       int           `json:"tokens_used,omitempty"`
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
	Duration         time.Duration `json:"duration"`
	FinishReason     string        `json:"finish_reason,omitempty"`
}

// ProviderConfig contains configuration for an LLM provider.
type ProviderConfig struct {
	// Endpoint is the API base URL.
	Endpoint string

	// APIKey for authentication.
	APIKey string

	// Model is the default model to use.
	Model string

	// MaxTokens default for responses.
	MaxTokens int

	// Temperature default.
	Temperature float64

	// Timeout for API calls.
	Timeout time.Duration
}

// DefaultGeminiConfig returns sensible defaults for Gemini.
func DefaultGeminiConfig() *ProviderConfig {
	return &ProviderConfig{
		Endpoint:    "https://generativelanguage.googleapis.com/v1beta",
		Model:       "gemini-2.0-flash",
		MaxTokens:   8192,
		Temperature: 0.7,
		Timeout:     2 * time.Minute,
	}
}

func readLimitedBody(r io.Reader, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBytes))
}
