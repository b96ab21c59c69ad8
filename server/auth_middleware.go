package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/fm-metrics/server/loginsession"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySessionID stores the login session id
	ContextKeySessionID ContextKey = "session_id"
	// ContextKeySession stores the login session itself
	ContextKeySession ContextKey = "session"
)

// RequireSession validates the login cookie and injects the login session into the request context.
// API routes get a JSON 401, page routes are sent back to the landing page.
func (s *Server) RequireSession(api bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := s.sessionIDFromRequest(r)
			if err != nil {
				s.rejectSession(w, r, api, "Missing or invalid session")
				return
			}

			session, err := s.loginSessions.Get(sessionID)
			if err != nil {
				s.ClearLoginSessionCookie(w, r)
				s.rejectSession(w, r, api, "Session expired")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySessionID, sessionID)
			ctx = context.WithValue(ctx, ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

func (s *Server) rejectSession(w http.ResponseWriter, r *http.Request, api bool, description string) {
	if api {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", description)
		return
	}
	http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
}

// sessionFromContext returns the login session placed by RequireSession
func sessionFromContext(ctx context.Context) (string, loginsession.Session, bool) {
	sessionID, ok := ctx.Value(ContextKeySessionID).(string)
	if !ok {
		return "", loginsession.Session{}, false
	}
	session, ok := ctx.Value(ContextKeySession).(loginsession.Session)
	return sessionID, session, ok
}

// isSignedIn reports whether the request carries a live login session
func (s *Server) isSignedIn(r *http.Request) bool {
	sessionID, err := s.sessionIDFromRequest(r)
	if err != nil {
		return false
	}
	_, err = s.loginSessions.Get(sessionID)
	return err == nil
}
