package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider using the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini provider for cfg.Model.
func NewGeminiProvider(ctx context.Context, cfg ProviderConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string  { return ProviderGemini }
func (p *GeminiProvider) Model() string { return p.model }

// Chat sends the conversation as a single generateContent call. System
// messages become the system instruction.
func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	system, rest := splitSystem(messages)

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	gc := &genai.GenerateContentConfig{}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts != nil {
		if opts.Temperature > 0 {
			gc.Temperature = genai.Ptr(float32(opts.Temperature))
		}
		gc.MaxOutputTokens = int32(opts.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, gc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: gemini: %v", ErrProviderDown, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	out := &Response{
		Content:  text,
		Model:    p.model,
		Provider: ProviderGemini,
		Latency:  time.Since(start),
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}
