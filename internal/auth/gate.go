// Package auth implements the login state machine that turns an
// email/password pair into an authenticated session carrying the user's
// subscription tier and paid flag.
package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// UserRecord is the subscription data stored per user.
type UserRecord struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Tier      string `json:"tier"`
	Paid      bool   `json:"paid"`
}

// IdentityVerifier checks an email/password pair with the identity provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, email, password string) error
}

// UserRecordStore looks up a user record by email. Implementations return
// ErrRecordNotFound when no record exists.
type UserRecordStore interface {
	Lookup(ctx context.Context, email string) (*UserRecord, error)
}

// Gate drives UserSession through Unauthenticated → Verifying →
// {Authenticated, Failed}.
type Gate struct {
	verifier IdentityVerifier
	store    UserRecordStore
	logger   *zap.Logger
}

// NewGate returns a gate over the given collaborators.
func NewGate(v IdentityVerifier, s UserRecordStore, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{verifier: v, store: s, logger: logger}
}

// Submit runs one login attempt. On any failure the session ends in Failed
// with every identity field cleared, and an *AuthError is returned.
func (g *Gate) Submit(ctx context.Context, s *UserSession, email, password string) error {
	email = strings.TrimSpace(email)
	s.beginVerifying(email)
	log := g.logger.With(zap.String("session", s.ID()), zap.String("email", email))

	if email == "" || password == "" {
		return g.failed(s, log, KindAuthenticationFailed, ErrInvalidCredentials)
	}

	if err := g.verifier.Verify(ctx, email, password); err != nil {
		return g.failed(s, log, KindAuthenticationFailed, err)
	}

	rec, err := g.store.Lookup(ctx, email)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return g.failed(s, log, KindUserRecordMissing, err)
	case err != nil:
		return g.failed(s, log, KindUserRecordUnavailable, err)
	case rec == nil || rec.Tier == "":
		return g.failed(s, log, KindUserRecordMissing, errors.New("record has no tier"))
	}

	if rec.Email == "" {
		rec.Email = email
	}
	s.authenticate(rec)
	log.Info("login succeeded", zap.String("tier", rec.Tier), zap.Bool("paid", rec.Paid))
	return nil
}

// Logout returns the session to Unauthenticated and clears its fields.
func (g *Gate) Logout(s *UserSession) {
	s.reset()
	g.logger.Debug("logout", zap.String("session", s.ID()))
}

func (g *Gate) failed(s *UserSession, log *zap.Logger, kind Kind, cause error) error {
	aerr := &AuthError{Kind: kind, Err: cause}
	s.fail(aerr.Message())
	log.Warn("login failed", zap.Stringer("kind", kind), zap.Error(cause))
	return aerr
}
