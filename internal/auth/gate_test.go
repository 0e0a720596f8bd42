package auth

import (
	"context"
	"errors"
	"testing"
)

type fakeVerifier struct {
	password string
	err      error
	calls    int
}

func (f *fakeVerifier) Verify(_ context.Context, _, password string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if password != f.password {
		return ErrInvalidCredentials
	}
	return nil
}

type fakeStore struct {
	records map[string]*UserRecord
	err     error
	calls   int
}

func (f *fakeStore) Lookup(_ context.Context, email string) (*UserRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[email]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func newTestGate() (*Gate, *fakeVerifier, *fakeStore) {
	v := &fakeVerifier{password: "correct-horse"}
	s := &fakeStore{records: map[string]*UserRecord{
		"a@b.com": {Email: "a@b.com", FirstName: "Ada", LastName: "Byron", Tier: "Basic", Paid: true},
		"free@b.com": {Email: "free@b.com", FirstName: "Free", Tier: "Premium", Paid: false},
		"notier@b.com": {Email: "notier@b.com", FirstName: "No"},
	}}
	return NewGate(v, s, nil), v, s
}

func assertCleared(t *testing.T, s *UserSession) {
	t.Helper()
	info := s.Snapshot()
	if info.Email != "" || info.FirstName != "" || info.LastName != "" || info.Tier != "" || info.Paid {
		t.Errorf("identity fields not cleared: %+v", info)
	}
}

// ════════════════════════════════════════════════════════════════════
// Submit
// ════════════════════════════════════════════════════════════════════

func TestSubmitSuccess(t *testing.T) {
	g, _, _ := newTestGate()
	s := NewSession()

	if err := g.Submit(context.Background(), s, " a@b.com ", "correct-horse"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	info := s.Snapshot()
	if info.State != StateAuthenticated {
		t.Fatalf("State: got %s", info.State)
	}
	if info.Email != "a@b.com" || info.FirstName != "Ada" || info.LastName != "Byron" {
		t.Errorf("identity: %+v", info)
	}
	if info.Tier != "Basic" || !info.Paid {
		t.Errorf("tier/paid: %+v", info)
	}
	if s.DisplayName() != "Ada Byron" {
		t.Errorf("DisplayName: got %q", s.DisplayName())
	}
}

func TestSubmitWrongPassword(t *testing.T) {
	g, _, store := newTestGate()
	s := NewSession()

	err := g.Submit(context.Background(), s, "a@b.com", "wrong")
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	var aerr *AuthError
	if !errors.As(err, &aerr) || aerr.Kind != KindAuthenticationFailed {
		t.Errorf("expected AuthError kind AuthenticationFailed, got %v", err)
	}
	if s.State() != StateFailed {
		t.Errorf("State: got %s, want failed", s.State())
	}
	assertCleared(t, s)
	if store.calls != 0 {
		t.Errorf("record store should not be queried after rejected credentials")
	}
	if s.Snapshot().LastError == "" {
		t.Error("LastError should carry a user-facing message")
	}
}

func TestSubmitEmptyCredentials(t *testing.T) {
	g, v, _ := newTestGate()
	s := NewSession()
	if err := g.Submit(context.Background(), s, "", ""); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("got %v", err)
	}
	if v.calls != 0 {
		t.Error("verifier should not be called with empty credentials")
	}
}

func TestSubmitRecordMissing(t *testing.T) {
	g, _, _ := newTestGate()
	s := NewSession()

	err := g.Submit(context.Background(), s, "ghost@b.com", "correct-horse")
	if !errors.Is(err, ErrUserRecordMissing) {
		t.Fatalf("expected ErrUserRecordMissing, got %v", err)
	}
	if errors.Is(err, ErrAuthenticationFailed) {
		t.Error("record errors must be distinct from credential rejection")
	}
	if s.State() != StateFailed {
		t.Errorf("State: got %s", s.State())
	}
	assertCleared(t, s)
}

func TestSubmitRecordWithoutTier(t *testing.T) {
	g, _, _ := newTestGate()
	s := NewSession()
	if err := g.Submit(context.Background(), s, "notier@b.com", "correct-horse"); !errors.Is(err, ErrUserRecordMissing) {
		t.Fatalf("expected ErrUserRecordMissing, got %v", err)
	}
	assertCleared(t, s)
}

func TestSubmitRecordUnavailable(t *testing.T) {
	g, _, store := newTestGate()
	store.err = errors.New("connection refused")
	s := NewSession()

	err := g.Submit(context.Background(), s, "a@b.com", "correct-horse")
	if !errors.Is(err, ErrUserRecordUnavailable) {
		t.Fatalf("expected ErrUserRecordUnavailable, got %v", err)
	}
	if s.State() != StateFailed {
		t.Errorf("State: got %s", s.State())
	}
}

func TestResubmitAfterFailure(t *testing.T) {
	g, _, _ := newTestGate()
	s := NewSession()
	_ = g.Submit(context.Background(), s, "a@b.com", "wrong")
	if s.State() != StateFailed {
		t.Fatalf("State: got %s", s.State())
	}
	if err := g.Submit(context.Background(), s, "a@b.com", "correct-horse"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !s.Authenticated() {
		t.Errorf("State after resubmit: got %s", s.State())
	}
}

func TestReloginAsDifferentUserReplacesFields(t *testing.T) {
	g, _, _ := newTestGate()
	s := NewSession()
	if err := g.Submit(context.Background(), s, "a@b.com", "correct-horse"); err != nil {
		t.Fatal(err)
	}
	if err := g.Submit(context.Background(), s, "free@b.com", "correct-horse"); err != nil {
		t.Fatal(err)
	}
	info := s.Snapshot()
	if info.Tier != "Premium" || info.Paid || info.LastName != "" {
		t.Errorf("fields from previous login leaked: %+v", info)
	}
}

func TestLogout(t *testing.T) {
	g, _, _ := newTestGate()
	s := NewSession()
	if err := g.Submit(context.Background(), s, "a@b.com", "correct-horse"); err != nil {
		t.Fatal(err)
	}
	g.Logout(s)
	if s.State() != StateUnauthenticated {
		t.Errorf("State: got %s", s.State())
	}
	assertCleared(t, s)
}

func TestAuthErrorMessages(t *testing.T) {
	for _, k := range []Kind{KindAuthenticationFailed, KindUserRecordMissing, KindUserRecordUnavailable} {
		e := &AuthError{Kind: k}
		if e.Message() == "" || e.Error() == "" {
			t.Errorf("%s: empty message", k)
		}
	}
	if Kind(99).String() != "Kind(99)" {
		t.Errorf("unknown kind string: %q", Kind(99).String())
	}
}
