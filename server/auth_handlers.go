package server

import (
	"net/http"

	"github.com/jrsteele09/fm-metrics/focusmate"
	"github.com/jrsteele09/fm-metrics/server/authflowrepo"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const authStateLength = 32

// LoginHandler starts the OAuth authorization-code flow (GET /auth/login)
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.oauth.ClientID == "" {
			http.Error(w, "Login is not configured", http.StatusServiceUnavailable)
			return
		}

		now := NowTimeFunc()
		if purged := s.authState.Purge(now.Add(-s.config.GetAuthFlowTimeout())); purged > 0 {
			log.Debug().Int("count", purged).Msg("Purged abandoned login flows")
		}

		state := generateRandomString(authStateLength)
		verifier := oauth2.GenerateVerifier()
		err := s.authState.Save(state, authflowrepo.AuthFlowState{
			CodeVerifier: verifier,
			ReturnURL:    safeReturnURL(r.URL.Query().Get("return")),
			CreatedAt:    now,
		})
		if err != nil {
			log.Err(err).Msg("Failed to store login flow")
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, focusmate.AuthCodeURL(s.oauth, state, verifier), http.StatusFound)
	}
}

// LogoutHandler ends the login session (GET /auth/logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID, err := s.sessionIDFromRequest(r); err == nil {
			if err := s.loginSessions.Delete(sessionID); err != nil {
				log.Err(err).Msg("Failed to delete login session")
			}
		}
		s.ClearLoginSessionCookie(w, r)
		http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
	}
}
