// Package insight composes the prediction request for a stock snapshot and
// sends it to the LLM provider chosen for the caller.
package insight

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/seenimoa/alphapredict/internal/llm"
	"github.com/seenimoa/alphapredict/pkg/models"
)

// ErrInsightGenerationFailed is matched by every InsightError.
var ErrInsightGenerationFailed = errors.New("insight generation failed")

// InsightError wraps the provider failure behind a narrative request.
type InsightError struct {
	Target llm.Target
	Err    error
}

func (e *InsightError) Error() string {
	return fmt.Sprintf("insight generation failed (%s): %v", e.Target, e.Err)
}

func (e *InsightError) Unwrap() error { return e.Err }

func (e *InsightError) Is(target error) bool { return target == ErrInsightGenerationFailed }

// Target is the resolved provider, model and credential key for a call.
type Target = llm.Target

// ProviderSource hands out a provider for a target.
type ProviderSource interface {
	Provider(ctx context.Context, t llm.Target) (llm.Provider, error)
}

// Builder generates narratives. It performs exactly one provider call per
// Generate; there are no retries and no fallback model.
type Builder struct {
	providers ProviderSource
	opts      llm.ChatOptions
	logger    *zap.Logger
}

// NewBuilder returns a builder using the given sampling options.
func NewBuilder(providers ProviderSource, opts llm.ChatOptions, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{providers: providers, opts: opts, logger: logger}
}

// Generate returns the narrative for snap from the target model.
func (b *Builder) Generate(ctx context.Context, snap *models.StockSnapshot, target Target) (string, error) {
	prompt, err := UserPrompt(snap)
	if err != nil {
		return "", &InsightError{Target: target, Err: err}
	}

	p, err := b.providers.Provider(ctx, target)
	if err != nil {
		return "", &InsightError{Target: target, Err: err}
	}

	opts := b.opts
	resp, err := p.Chat(ctx, []llm.Message{
		llm.SystemMessage(SystemPrompt),
		llm.UserMessage(prompt),
	}, &opts)
	if err != nil {
		b.logger.Warn("insight request failed",
			zap.String("symbol", snap.Symbol.String()),
			zap.Stringer("target", target),
			zap.Error(err))
		return "", &InsightError{Target: target, Err: err}
	}

	b.logger.Info("insight generated",
		zap.String("symbol", snap.Symbol.String()),
		zap.Stringer("target", target),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", resp.Latency))
	return resp.Content, nil
}
