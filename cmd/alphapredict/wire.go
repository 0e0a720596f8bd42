package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/seenimoa/alphapredict/internal/auth"
	"github.com/seenimoa/alphapredict/internal/config"
	"github.com/seenimoa/alphapredict/internal/dashboard"
	"github.com/seenimoa/alphapredict/internal/entitlement"
	"github.com/seenimoa/alphapredict/internal/insight"
	"github.com/seenimoa/alphapredict/internal/llm"
	"github.com/seenimoa/alphapredict/internal/marketdata"
)

// app holds the wired collaborators shared by serve and lookup.
type app struct {
	secrets  *config.Secrets
	resolver *entitlement.Resolver
	dash     *dashboard.Orchestrator
	gate     *auth.Gate // nil in community mode
	backend  *auth.Backend
}

func loadResolver(cfg *config.Config) (*entitlement.Resolver, error) {
	if cfg.Entitlements.File == "" {
		return entitlement.NewResolver(nil), nil
	}
	table, err := entitlement.LoadTable(cfg.Entitlements.File)
	if err != nil {
		return nil, err
	}
	return entitlement.NewResolver(table), nil
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	resolver, err := loadResolver(cfg)
	if err != nil {
		return nil, err
	}
	secrets := config.NewSecrets()

	registry := llm.NewRegistryFromConfig(cfg.LLM, secrets, logger)
	builder := insight.NewBuilder(registry, llm.ChatOptions{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, logger)

	c := cfg.LLM.Community
	dash := dashboard.New(marketdata.NewFetcher(cfg.MarketData, logger), resolver, builder, dashboard.Options{
		Mode: cfg.App.Mode,
		Community: insight.Target{
			Provider:        c.Provider,
			ProviderModelID: c.Model,
			CredentialKey:   c.CredentialKey,
		},
		Logger: logger,
	})

	a := &app{secrets: secrets, resolver: resolver, dash: dash}
	if cfg.Subscription() {
		backend, err := auth.NewBackend(cfg.Auth, logger)
		if err != nil {
			return nil, fmt.Errorf("auth backend: %w", err)
		}
		a.backend = backend
		a.gate = auth.NewGate(backend.Verifier, backend.Store, logger)
	}
	return a, nil
}

func (a *app) Close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}
