package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using the Chat Completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI provider for cfg.Model.
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.OrgID != "" {
		oc.OrgID = cfg.OrgID
	}
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(oc), model: model}, nil
}

func (p *OpenAIProvider) Name() string  { return ProviderOpenAI }
func (p *OpenAIProvider) Model() string { return p.model }

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	if opts != nil {
		req.Temperature = float32(opts.Temperature)
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model:    p.model,
		Provider: ProviderOpenAI,
		Latency:  time.Since(start),
	}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: openai: %s", ErrInvalidCredential, apiErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: openai: %s", ErrRateLimit, apiErr.Message)
		}
		return fmt.Errorf("openai: %w", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: openai: %v", ErrProviderDown, err)
}
