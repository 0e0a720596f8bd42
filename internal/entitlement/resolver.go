// Package entitlement maps a subscription tier to the model, provider and
// credential that serve it, and decides whether a session may spend on an
// LLM call at all.
package entitlement

// Entitlement is the resolved routing decision for one tier.
type Entitlement struct {
	Tier            string `json:"tier"`
	ModelName       string `json:"model_name"`
	Provider        string `json:"provider"`
	ProviderModelID string `json:"provider_model_id"`
	CredentialKey   string `json:"credential_key"`
}

// SessionView is the read-only part of a user session Authorize needs.
type SessionView interface {
	Authenticated() bool
	Paid() bool
	Tier() string
}

// Resolver resolves tiers against an immutable table.
type Resolver struct {
	table *Table
}

// NewResolver returns a resolver over t. A nil table uses the built-in one.
func NewResolver(t *Table) *Resolver {
	if t == nil {
		t = DefaultTable()
	}
	return &Resolver{table: t}
}

// Resolve performs the tier → model → spec lookup. It has no side effects.
func (r *Resolver) Resolve(tier string) (Entitlement, error) {
	model, ok := r.table.Tiers[tier]
	if !ok {
		return Entitlement{}, &ConfigurationError{Tier: tier, Reason: "unknown tier"}
	}
	spec, ok := r.table.Models[model]
	if !ok {
		return Entitlement{}, &ConfigurationError{Tier: tier, Reason: "model " + model + " is not defined"}
	}
	return Entitlement{
		Tier:            tier,
		ModelName:       model,
		Provider:        spec.Provider,
		ProviderModelID: spec.ProviderModelID,
		CredentialKey:   spec.CredentialKey,
	}, nil
}

// Authorize is the paid-access gate. The session must be authenticated and
// paid; only then is its tier resolved.
func (r *Resolver) Authorize(s SessionView) (Entitlement, error) {
	if s == nil || !s.Authenticated() {
		return Entitlement{}, ErrNotAuthenticated
	}
	if !s.Paid() {
		return Entitlement{}, ErrPaymentRequired
	}
	return r.Resolve(s.Tier())
}

// Tiers lists the configured tier names, sorted.
func (r *Resolver) Tiers() []string {
	return sortedKeys(r.table.Tiers)
}

// All resolves every configured tier, ordered by tier name.
func (r *Resolver) All() []Entitlement {
	out := make([]Entitlement, 0, len(r.table.Tiers))
	for _, tier := range r.Tiers() {
		if e, err := r.Resolve(tier); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// CredentialKeys lists every credential key the table references.
func (r *Resolver) CredentialKeys() []string {
	return r.table.CredentialKeys()
}
