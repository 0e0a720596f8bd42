// Package api provides the HTTP server for AlphaPredict.
//
// It serves the dashboard page, a JSON API for lookups, login and
// entitlements, SVG charts, and a WebSocket for in-page refreshes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/seenimoa/alphapredict/internal/auth"
	"github.com/seenimoa/alphapredict/internal/config"
	"github.com/seenimoa/alphapredict/internal/dashboard"
	"github.com/seenimoa/alphapredict/internal/entitlement"
	"github.com/seenimoa/alphapredict/web"
)

// requestTimeout bounds every non-WebSocket request. A lookup makes at most
// one market-data round and one LLM call.
const requestTimeout = 120 * time.Second

// Deps are the collaborators the server routes to.
type Deps struct {
	Dashboard *dashboard.Orchestrator
	Gate      *auth.Gate // nil in community mode
	Resolver  *entitlement.Resolver
	Sessions  *auth.SessionStore
	Secrets   *config.Secrets
	Logger    *zap.Logger
	Version   string
}

// Server is the HTTP server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	dash     *dashboard.Orchestrator
	gate     *auth.Gate
	resolver *entitlement.Resolver
	sessions *auth.SessionStore
	secrets  *config.Secrets
	logger   *zap.Logger
	version  string
	tmpl     *template.Template
	wsHub    *WSHub
}

// NewServer creates a configured server with all routes and middleware.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Sessions == nil {
		deps.Sessions = auth.NewSessionStore(
			auth.WithIdleTTL(time.Duration(cfg.Auth.SessionTTLMin) * time.Minute))
	}
	if deps.Resolver == nil {
		deps.Resolver = entitlement.NewResolver(nil)
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	if cfg.Subscription() && deps.Gate == nil {
		return nil, errors.New("subscription mode requires an auth gate")
	}

	s := &Server{
		cfg:      cfg,
		dash:     deps.Dashboard,
		gate:     deps.Gate,
		resolver: deps.Resolver,
		sessions: deps.Sessions,
		secrets:  deps.Secrets,
		logger:   deps.Logger,
		version:  deps.Version,
		tmpl:     tmpl,
		wsHub:    NewWSHub(),
	}
	s.router = s.buildRouter()
	return s, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: requestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go s.wsHub.Run(bgCtx)
	go s.sessions.Run(bgCtx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr), zap.String("mode", s.cfg.App.Mode))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	if c := corsHandler(s.cfg.API.CORSOrigins); c != nil {
		r.Use(c)
	}

	// WebSocket connections outlive the request timeout.
	r.Get("/api/v1/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/health", s.handleHealth)

		// Page
		r.Get("/", s.handleIndex)
		r.Post("/login", s.handleLoginForm)
		r.Post("/logout", s.handleLogoutForm)
		s.mountStatic(r)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", s.handleHealth)

			// Lookups
			r.Get("/dashboard/{ticker}", s.handleDashboard)
			r.Get("/chart/{ticker}", s.handleChart)

			// Auth
			r.Post("/auth/login", s.handleLogin)
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/session", s.handleSession)

			// Entitlements
			r.Get("/entitlement", s.handleEntitlement)
			r.Get("/entitlements", s.handleEntitlements)

			// Configuration
			r.Get("/config", s.handleGetConfig)
			r.Get("/config/keys", s.handleGetConfigKeys)
		})
	})

	return r
}

// corsHandler allows cross-origin calls from the configured origins only.
// With no origins it returns nil and the API stays same-origin. A "*" entry
// opens the API to any origin but never with credentials.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return nil
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	})
}

// mountStatic serves the embedded CSS and JS.
func (s *Server) mountStatic(r chi.Router) {
	fileServer := http.StripPrefix("/static/", http.FileServerFS(web.StaticFS()))
	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

// ============================================================
// Sessions
// ============================================================

// currentSession returns the caller's stored session and true. Without a
// live session cookie it returns a fresh session that is not stored, so
// anonymous requests leave nothing behind.
func (s *Server) currentSession(r *http.Request) (*auth.UserSession, bool) {
	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess, true
		}
	}
	return auth.NewSession(), false
}

// setSessionCookie points the client at sess.
func (s *Server) setSessionCookie(w http.ResponseWriter, sess *auth.UserSession) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.API.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie tells the client to drop its session id.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.API.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// login runs the gate for the caller. On success the session moves to a
// fresh id that is stored and sent back; the caller's previous id stops
// working. A failed attempt is stored only when keepFailure is set, so the
// page can show the message after the redirect.
func (s *Server) login(w http.ResponseWriter, r *http.Request, email, password string, keepFailure bool) (*auth.UserSession, error) {
	sess, stored := s.currentSession(r)
	oldID := sess.ID()

	if err := s.gate.Submit(r.Context(), sess, email, password); err != nil {
		if keepFailure && !stored {
			s.sessions.Add(sess)
			s.setSessionCookie(w, sess)
		}
		return sess, err
	}

	fresh := s.sessions.Rotate(sess)
	s.setSessionCookie(w, fresh)
	if stored {
		// Connections on the old id learn that it has ended.
		s.wsHub.Notify(oldID, WSMessage{Type: "session", Data: sess.Snapshot()})
	}
	s.logger.Debug("session id rotated after login")
	return fresh, nil
}

// logout ends the caller's stored session, if any.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) *auth.UserSession {
	sess, stored := s.currentSession(r)
	if !stored {
		return sess
	}
	if s.gate != nil {
		s.gate.Logout(sess)
	}
	s.wsHub.Notify(sess.ID(), WSMessage{Type: "session", Data: sess.Snapshot()})
	s.sessions.Delete(sess.ID())
	s.clearSessionCookie(w)
	return sess
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// LoginRequest is the body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// writeErr maps err onto a status code and a message safe to show users.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), userMessage(err))
}
