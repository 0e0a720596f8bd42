package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a position in the login state machine.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateVerifying       State = "verifying"
	StateAuthenticated   State = "authenticated"
	StateFailed          State = "failed"
)

// CookieName is the HTTP cookie carrying the session id.
const CookieName = "alphapredict_session"

// UserSession is one visitor's login state. Only Gate mutates it; all other
// code reads through the getters or Snapshot.
type UserSession struct {
	mu        sync.RWMutex
	id        string
	lastSeen  time.Time
	state     State
	email     string
	firstName string
	lastName  string
	tier      string
	paid      bool
	lastError string

	// in-flight dashboard refresh
	refreshSeq    uint64
	cancelRefresh context.CancelFunc
}

// NewSession returns an unauthenticated session with a fresh id.
func NewSession() *UserSession {
	return &UserSession{
		id:    uuid.NewString(),
		state: StateUnauthenticated,
	}
}

// SessionInfo is a point-in-time copy of a session, safe to serialize.
type SessionInfo struct {
	ID        string `json:"id"`
	State     State  `json:"state"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Tier      string `json:"tier,omitempty"`
	Paid      bool   `json:"paid"`
	LastError string `json:"last_error,omitempty"`
}

func (s *UserSession) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// LastSeen is when the session was created or last fetched from its store.
func (s *UserSession) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

func (s *UserSession) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *UserSession) Authenticated() bool { return s.State() == StateAuthenticated }

func (s *UserSession) Paid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paid
}

func (s *UserSession) Tier() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tier
}

func (s *UserSession) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// DisplayName returns "First Last", or the email when no name is on record.
func (s *UserSession) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name := s.firstName
	if s.lastName != "" {
		if name != "" {
			name += " "
		}
		name += s.lastName
	}
	if name == "" {
		return s.email
	}
	return name
}

// Snapshot copies the session's readable fields.
func (s *UserSession) Snapshot() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionInfo{
		ID:        s.id,
		State:     s.state,
		Email:     s.email,
		FirstName: s.firstName,
		LastName:  s.lastName,
		Tier:      s.tier,
		Paid:      s.paid,
		LastError: s.lastError,
	}
}

// BeginRefresh cancels any in-flight refresh for this session and returns a
// context for the new one. The returned done func must be called when the
// refresh finishes; current reports whether it is still the latest refresh.
func (s *UserSession) BeginRefresh(parent context.Context) (ctx context.Context, current func() bool, done func()) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancelRefresh != nil {
		s.cancelRefresh()
	}
	s.refreshSeq++
	seq := s.refreshSeq
	s.cancelRefresh = cancel
	s.mu.Unlock()

	current = func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.refreshSeq == seq && ctx.Err() == nil
	}
	done = func() {
		s.mu.Lock()
		if s.refreshSeq == seq {
			s.cancelRefresh = nil
		}
		s.mu.Unlock()
		cancel()
	}
	return ctx, current, done
}

// --- mutators, used by Gate only ---

func (s *UserSession) beginVerifying(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.state = StateVerifying
	s.email = email
}

func (s *UserSession) authenticate(rec *UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAuthenticated
	s.email = rec.Email
	s.firstName = rec.FirstName
	s.lastName = rec.LastName
	s.tier = rec.Tier
	s.paid = rec.Paid
	s.lastError = ""
}

func (s *UserSession) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.state = StateFailed
	s.lastError = msg
}

func (s *UserSession) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.state = StateUnauthenticated
	if s.cancelRefresh != nil {
		s.cancelRefresh()
		s.cancelRefresh = nil
	}
}

// idleSince reports whether the session has not been seen since cutoff and
// has no refresh in flight.
func (s *UserSession) idleSince(cutoff time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelRefresh == nil && s.lastSeen.Before(cutoff)
}

func (s *UserSession) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *UserSession) clearLocked() {
	s.email = ""
	s.firstName = ""
	s.lastName = ""
	s.tier = ""
	s.paid = false
	s.lastError = ""
}

// --- store ---

// DefaultIdleTTL is how long an unused session is kept.
const DefaultIdleTTL = 12 * time.Hour

// maxSweepInterval caps the time between expiry sweeps.
const maxSweepInterval = 5 * time.Minute

// SessionStore keeps sessions in memory, keyed by id. Sessions idle for
// longer than the store's TTL are dropped, lazily on Get and in bulk by
// Sweep.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*UserSession
	idleTTL  time.Duration
	now      func() time.Time
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithIdleTTL sets how long an unused session survives. Non-positive
// values keep the default.
func WithIdleTTL(d time.Duration) StoreOption {
	return func(st *SessionStore) {
		if d > 0 {
			st.idleTTL = d
		}
	}
}

// NewSessionStore returns an empty store.
func NewSessionStore(opts ...StoreOption) *SessionStore {
	st := &SessionStore{
		sessions: make(map[string]*UserSession),
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Create registers and returns a new unauthenticated session.
func (st *SessionStore) Create() *UserSession {
	return st.Add(NewSession())
}

// Add stores a session built outside the store and marks it as seen.
func (st *SessionStore) Add(s *UserSession) *UserSession {
	s.mu.Lock()
	s.lastSeen = st.now()
	id := s.id
	s.mu.Unlock()

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()
	return s
}

// Get returns the live session for id and marks it as seen. An expired
// session is removed and reported as missing.
func (st *SessionStore) Get(id string) (*UserSession, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := st.now()
	if s.idleSince(now.Add(-st.idleTTL)) {
		st.Delete(id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

// GetOrCreate returns the session for id, creating a new one when id is
// empty, unknown or expired.
func (st *SessionStore) GetOrCreate(id string) (*UserSession, bool) {
	if id != "" {
		if s, ok := st.Get(id); ok {
			return s, false
		}
	}
	return st.Create(), true
}

// Rotate moves an authenticated session's identity to a fresh id. The old
// id stops resolving and the old session object is reset, so anyone still
// holding it loses access. It returns the replacement session.
func (st *SessionStore) Rotate(old *UserSession) *UserSession {
	fresh := NewSession()

	old.mu.Lock()
	oldID := old.id
	fresh.state = old.state
	fresh.email = old.email
	fresh.firstName = old.firstName
	fresh.lastName = old.lastName
	fresh.tier = old.tier
	fresh.paid = old.paid
	fresh.lastError = old.lastError
	old.mu.Unlock()

	st.mu.Lock()
	delete(st.sessions, oldID)
	st.mu.Unlock()

	old.reset()
	return st.Add(fresh)
}

// Delete removes a session and cancels its in-flight refresh.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.reset()
	}
}

// Sweep removes every session idle for longer than the TTL and returns how
// many were dropped. Sessions with a refresh in flight are kept.
func (st *SessionStore) Sweep() int {
	cutoff := st.now().Add(-st.idleTTL)

	var expired []*UserSession
	st.mu.Lock()
	for id, s := range st.sessions {
		if s.idleSince(cutoff) {
			delete(st.sessions, id)
			expired = append(expired, s)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.reset()
	}
	return len(expired)
}

// Run sweeps expired sessions periodically until ctx is done.
func (st *SessionStore) Run(ctx context.Context) {
	every := min(st.idleTTL, maxSweepInterval)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Len returns the number of stored sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
