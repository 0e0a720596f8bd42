package api

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/seenimoa/alphapredict/internal/auth"
	"github.com/seenimoa/alphapredict/internal/dashboard"
	"github.com/seenimoa/alphapredict/internal/render"
	"github.com/seenimoa/alphapredict/pkg/models"
)

const pageTemplate = "dashboard.html"

// pageView is the data the dashboard template renders.
type pageView struct {
	Title         string
	Subscription  bool
	LoginRequired bool
	LoginError    string
	Session       auth.SessionInfo
	DisplayName   string
	Ticker        string
	Page          *dashboard.Page
	Chart         template.HTML
	Error         string
	Footer        string
}

// handleIndex renders the dashboard. In subscription mode an unauthenticated
// session gets the login form instead of a lookup.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.currentSession(r)
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		ticker = s.cfg.App.DefaultTicker
	}

	view := pageView{
		Title:        s.cfg.App.Title,
		Subscription: s.cfg.Subscription(),
		Session:      sess.Snapshot(),
		DisplayName:  sess.DisplayName(),
		Ticker:       ticker,
		Footer:       render.Footer,
	}

	status := http.StatusOK
	if view.Subscription && !sess.Authenticated() {
		view.LoginRequired = true
		view.LoginError = view.Session.LastError
		s.renderPage(w, status, view)
		return
	}

	page, err := s.dash.Refresh(r.Context(), sess, ticker)
	switch {
	case err == nil:
		view.Page = page
		view.Ticker = page.Ticker.String()
		// Built from numbers and escaped text only.
		view.Chart = template.HTML(page.ChartSVG) //nolint:gosec
	case errors.Is(err, models.ErrEmptyTicker):
		view.Error = userMessage(err)
	default:
		status = statusFor(err)
		view.Error = userMessage(err)
	}
	s.renderPage(w, status, view)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, view pageView) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, pageTemplate, view); err != nil {
		s.logger.Error("render page", zap.Error(err))
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// handleLoginForm processes the login form and redirects back to the page,
// which shows either the dashboard or the failure message.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	// A failure is kept on the session and rendered by handleIndex.
	_, _ = s.login(w, r, r.PostFormValue("email"), r.PostFormValue("password"), true)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	s.logout(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
