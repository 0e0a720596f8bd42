package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/seenimoa/alphapredict/internal/entitlement"
	"github.com/seenimoa/alphapredict/pkg/utils"
)

// ============================================================
// Health
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":        "ok",
			"version":       s.version,
			"mode":          s.cfg.App.Mode,
			"market_status": utils.MarketStatus(),
			"time_et":       utils.FormatDateTimeEastern(utils.NowEastern()),
			"sessions":      s.sessions.Len(),
			"ws_clients":    s.wsHub.ClientCount(),
		},
	})
}

// ============================================================
// Lookups
// ============================================================

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.currentSession(r)
	page, err := s.dash.Refresh(r.Context(), sess, chi.URLParam(r, "ticker"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    page,
	})
}

// handleChart serves /api/v1/chart/{ticker}.svg; the extension is optional.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSuffix(chi.URLParam(r, "ticker"), ".svg")
	sess, _ := s.currentSession(r)
	svg, err := s.dash.Chart(r.Context(), sess, ticker)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(svg))
}

// ============================================================
// Auth
// ============================================================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		writeError(w, http.StatusNotFound, "login is disabled in community mode")
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.login(w, r, req.Email, req.Password, false)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    sess.Snapshot(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := s.logout(w, r)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    sess.Snapshot(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.currentSession(r)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    sess.Snapshot(),
	})
}

// ============================================================
// Entitlements
// ============================================================

// handleEntitlement reports which model the caller's next lookup would use.
func (s *Server) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Subscription() {
		c := s.cfg.LLM.Community
		writeJSON(w, http.StatusOK, APIResponse{
			Success: true,
			Data: entitlement.Entitlement{
				Tier:            "Community",
				ModelName:       c.Model,
				Provider:        c.Provider,
				ProviderModelID: c.Model,
				CredentialKey:   c.CredentialKey,
			},
		})
		return
	}

	sess, _ := s.currentSession(r)
	ent, err := s.resolver.Authorize(sess)
	if err != nil {
		if errors.Is(err, entitlement.ErrConfiguration) {
			s.logger.Error("entitlement resolution failed", zap.String("session", sess.ID()), zap.Error(err))
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ent,
	})
}

// handleEntitlements lists the whole tier table.
func (s *Server) handleEntitlements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.resolver.All(),
	})
}
