package loginsession

import (
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/fm-metrics/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var _ Repo = (*InMemoryLoginSessionRepo)(nil)

// InMemoryLoginSessionRepo is an in-memory implementation of Repo
type InMemoryLoginSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session // sessionID -> Session
}

// NewInMemoryLoginSessionRepo creates a new in-memory login session repository
func NewInMemoryLoginSessionRepo() *InMemoryLoginSessionRepo {
	return &InMemoryLoginSessionRepo{
		sessions: make(map[string]Session),
	}
}

// Upsert creates or updates a login session
func (r *InMemoryLoginSessionRepo) Upsert(sessionID string, session Session) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if session.Token == nil {
		return fmt.Errorf("token is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = copySession(session)
	return nil
}

// Get retrieves a login session. Expired sessions are removed and reported as ErrSessionExpired.
func (r *InMemoryLoginSessionRepo) Get(sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, fmt.Errorf("sessionID is required")
	}

	r.mu.RLock()
	session, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}

	if !session.ExpiresAt.IsZero() && NowTimeFunc().After(session.ExpiresAt) {
		_ = r.Delete(sessionID)
		return Session{}, errors.ErrSessionExpired
	}

	return copySession(session), nil
}

// Delete removes a login session
func (r *InMemoryLoginSessionRepo) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

// Len reports how many sessions are held
func (r *InMemoryLoginSessionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// copySession keeps callers from mutating the stored token
func copySession(s Session) Session {
	if s.Token != nil {
		token := *s.Token
		s.Token = &token
	}
	return s
}
