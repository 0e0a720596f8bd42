// Package llm provides a unified interface over the hosted LLM providers
// (OpenAI, Gemini) and a registry that builds a provider for a resolved
// model and credential.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider names for routing and configuration.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Common errors returned by LLM providers.
var (
	ErrNoAPIKey          = errors.New("llm: API key not configured")
	ErrUnknownProvider   = errors.New("llm: unknown provider")
	ErrEmptyResponse     = errors.New("llm: empty response")
	ErrRateLimit         = errors.New("llm: rate limit exceeded")
	ErrProviderDown      = errors.New("llm: provider unavailable")
	ErrInvalidCredential = errors.New("llm: credential rejected")
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response represents a complete response from the LLM.
type Response struct {
	Content      string        `json:"content"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Usage        Usage         `json:"usage"`
	Model        string        `json:"model"`
	Provider     string        `json:"provider"`
	Latency      time.Duration `json:"latency"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatOptions configures a single chat request.
type ChatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Provider is the interface every LLM backend implements.
type Provider interface {
	// Name returns the provider identifier ("openai", "gemini").
	Name() string
	// Model returns the provider model id this instance calls.
	Model() string
	// Chat sends a conversation and returns a complete response.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)
}

// ProviderConfig holds common configuration for creating an LLM provider.
type ProviderConfig struct {
	APIKey  string        `json:"-"`
	BaseURL string        `json:"base_url,omitempty"`
	Model   string        `json:"model"`
	OrgID   string        `json:"org_id,omitempty"`
	Timeout time.Duration `json:"timeout"`
}

// SystemMessage creates a system prompt message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// String returns a human-readable summary of the response.
func (r *Response) String() string {
	truncated := r.Content
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		r.Provider, r.Model, truncated, r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
}

// splitSystem separates system messages from the conversation.
func splitSystem(messages []Message) (system string, rest []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
