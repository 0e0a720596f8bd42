package api

import (
	"net/http"

	"github.com/seenimoa/alphapredict/internal/config"
	"github.com/seenimoa/alphapredict/internal/entitlement"
)

// ConfigResponse is the JSON body returned by GET /api/v1/config. It carries
// no secrets; credentials are reported by GET /api/v1/config/keys, masked.
type ConfigResponse struct {
	Mode          string   `json:"mode"`
	Title         string   `json:"title"`
	DefaultTicker string   `json:"default_ticker"`
	AuthProvider  string   `json:"auth_provider,omitempty"`
	Tiers         []string `json:"tiers,omitempty"`
	Providers     []string `json:"providers"`
}

// handleGetConfig returns the running configuration's public settings.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	resp := ConfigResponse{
		Mode:          s.cfg.App.Mode,
		Title:         s.cfg.App.Title,
		DefaultTicker: s.cfg.App.DefaultTicker,
		Providers:     []string{s.cfg.LLM.Community.Provider},
	}
	if s.cfg.Subscription() {
		resp.AuthProvider = s.cfg.Auth.Provider
		resp.Tiers = s.resolver.Tiers()
		resp.Providers = providersOf(s.resolver.All())
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    resp,
	})
}

// handleGetConfigKeys returns the status of every credential the
// configuration references. Values are masked.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	var credentialKeys []string
	if s.cfg.Subscription() {
		credentialKeys = s.resolver.CredentialKeys()
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg, s.secrets, credentialKeys),
	})
}

// providersOf lists the distinct providers in table order.
func providersOf(ents []entitlement.Entitlement) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range ents {
		if !seen[e.Provider] {
			seen[e.Provider] = true
			out = append(out, e.Provider)
		}
	}
	return out
}
