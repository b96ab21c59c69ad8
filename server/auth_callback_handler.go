package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/fm-metrics/focusmate"
	"github.com/jrsteele09/fm-metrics/internal/errors"
	"github.com/jrsteele09/fm-metrics/server/authflowrepo"
	"github.com/jrsteele09/fm-metrics/server/loginsession"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// takeAuthFlow consumes the flow for state; an expired flow is consumed too and cannot be retried
func (s *Server) takeAuthFlow(state string) (authflowrepo.AuthFlowState, error) {
	flow, err := s.authState.Take(state)
	if err != nil {
		return flow, err
	}
	if NowTimeFunc().Sub(flow.CreatedAt) > s.config.GetAuthFlowTimeout() {
		return flow, errors.Wrapf(errors.ErrAuthFlowExpired, "flow started %s", flow.CreatedAt.Format(time.RFC3339))
	}
	return flow, nil
}

// OAuthCallbackHandler completes the login (GET /callback)
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		// Check for authorization errors
		if errorParam != "" {
			http.Error(w, fmt.Sprintf("Authorization failed: %s - %s", errorParam, errorDesc), http.StatusBadRequest)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		authState, err := s.takeAuthFlow(state)
		if errors.Is(err, errors.ErrAuthFlowExpired) {
			log.Info().Err(err).Msg("Rejected expired login")
			http.Error(w, "Login took too long, please try again", http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}
		now := NowTimeFunc()

		ctx := context.WithValue(r.Context(), oauth2.HTTPClient, s.httpClient)
		token, err := focusmate.Exchange(ctx, s.oauth, code, authState.CodeVerifier)
		if err != nil {
			log.Err(err).Msg("Token exchange failed")
			http.Error(w, "Token exchange failed", http.StatusBadGateway)
			return
		}

		client, tokens := focusmate.NewTokenClient(r.Context(), s.oauth, token, s.config.GetAPIURL(), s.httpClient)
		profile, err := client.Profile(r.Context())
		if err != nil {
			log.Err(err).Msg("Failed to fetch profile after login")
			http.Error(w, "Failed to fetch your Focusmate profile", http.StatusBadGateway)
			return
		}
		if current, err := tokens.Token(); err == nil {
			token = current
		}

		// The counter on the landing page is best effort
		if err := s.members.Record(r.Context(), profile.UserID, now); err != nil {
			log.Err(err).Msg("Failed to record member")
		}

		sessionID := uuid.New().String()
		expiresAt := now.Add(s.config.GetMaxSessionAge())
		loginSession := loginsession.Session{
			UserID:    profile.UserID,
			Name:      profile.Name,
			TimeZone:  profile.TimeZone,
			Token:     token,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}
		if err := s.loginSessions.Upsert(sessionID, loginSession); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create session: %v", err), http.StatusInternalServerError)
			return
		}

		if err := s.SetLoginSessionCookie(w, r, sessionID, expiresAt); err != nil {
			log.Err(err).Msg("Failed to sign session cookie")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		log.Info().Str("session", sessionID).Msg("User signed in")
		http.Redirect(w, r, safeReturnURL(authState.ReturnURL), http.StatusSeeOther)
	}
}
