package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/alphapredict/internal/config"
)

// Target names the provider, model and credential for one call.
// CredentialKey is the name of the secret, never the secret itself.
type Target struct {
	Provider        string `json:"provider"`
	ProviderModelID string `json:"provider_model_id"`
	CredentialKey   string `json:"credential_key"`
}

func (t Target) String() string {
	return t.Provider + "/" + t.ProviderModelID
}

// Factory builds a provider from resolved configuration.
type Factory func(ctx context.Context, cfg ProviderConfig) (Provider, error)

// Registry builds providers for targets, resolving credentials from the
// secret store. Built providers are reused per target.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	built     map[Target]Provider
	secrets   *config.Secrets
	base      map[string]ProviderConfig // per provider name: BaseURL, OrgID, Timeout
	logger    *zap.Logger
}

// RegistryOption configures the registry.
type RegistryOption func(*Registry)

// WithFactory registers (or replaces) the factory for a provider name.
func WithFactory(name string, f Factory) RegistryOption {
	return func(r *Registry) { r.factories[name] = f }
}

// WithBaseConfig sets non-secret settings applied to every provider of a name.
func WithBaseConfig(name string, cfg ProviderConfig) RegistryOption {
	return func(r *Registry) { r.base[name] = cfg }
}

// WithLogger sets the registry logger.
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry returns a registry with the OpenAI and Gemini factories.
func NewRegistry(secrets *config.Secrets, opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: map[string]Factory{
			ProviderOpenAI: func(_ context.Context, cfg ProviderConfig) (Provider, error) {
				return NewOpenAIProvider(cfg)
			},
			ProviderGemini: func(ctx context.Context, cfg ProviderConfig) (Provider, error) {
				return NewGeminiProvider(ctx, cfg)
			},
		},
		built:   make(map[Target]Provider),
		secrets: secrets,
		base:    make(map[string]ProviderConfig),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRegistryFromConfig wires base URLs, org id and timeout from cfg.
func NewRegistryFromConfig(cfg config.LLMConfig, secrets *config.Secrets, logger *zap.Logger) *Registry {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	return NewRegistry(secrets,
		WithBaseConfig(ProviderOpenAI, ProviderConfig{BaseURL: cfg.OpenAIBase, OrgID: cfg.OpenAIOrgID, Timeout: timeout}),
		WithBaseConfig(ProviderGemini, ProviderConfig{BaseURL: cfg.GeminiBase, Timeout: timeout}),
		WithLogger(logger),
	)
}

// Provider returns the provider for t, building it on first use.
func (r *Registry) Provider(ctx context.Context, t Target) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.built[t]; ok {
		return p, nil
	}
	factory, ok := r.factories[t.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, t.Provider)
	}
	key, ok := r.secrets.Get(t.CredentialKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAPIKey, t.CredentialKey)
	}

	cfg := r.base[t.Provider]
	cfg.APIKey = key
	cfg.Model = t.ProviderModelID

	p, err := factory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.built[t] = p
	r.logger.Debug("llm provider ready", zap.Stringer("target", t))
	return p, nil
}

// Providers lists the registered provider names.
func (r *Registry) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
