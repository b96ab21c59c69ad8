package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/fm-metrics/dashboard"
	"github.com/jrsteele09/fm-metrics/focusmate"
	"github.com/jrsteele09/fm-metrics/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"

	defaultRepeatPartnerLimit = 10
)

// SessionStatusHandler tells the landing page whether to skip straight to the dashboard
func (s *Server) SessionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"signedIn": s.isSignedIn(r)})
	}
}

// StatsHandler returns how many people have signed in so far
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := s.members.Count(r.Context())
		if err != nil {
			log.Err(err).Msg("Failed to count members")
			writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to count users")
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=60")
		writeJSON(w, http.StatusOK, map[string]int64{"totalUsers": count})
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return s.withFetcher(func(w http.ResponseWriter, r *http.Request, f dashboard.Fetcher) {
		profile, err := f.Profile(r.Context())
		if err != nil {
			s.writeUpstreamError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	})
}

// SessionsHandler returns the raw session history. The range defaults to the whole history
// and can be narrowed with start and end (RFC 3339 or YYYY-MM-DD).
func (s *Server) SessionsHandler() http.HandlerFunc {
	return s.withFetcher(func(w http.ResponseWriter, r *http.Request, f dashboard.Fetcher) {
		now := NowTimeFunc()
		from, to, err := parseRange(r, now)
		if errors.Is(err, errors.ErrInvalidRequest) {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		if from.IsZero() {
			profile, err := f.Profile(r.Context())
			if err != nil {
				s.writeUpstreamError(w, r, err)
				return
			}
			from = dashboard.HistoryStart(*profile, now)
		}

		sessions, err := f.Sessions(r.Context(), from, to)
		if err != nil {
			s.writeUpstreamError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, focusmate.SessionsResponse{Sessions: sessions})
	})
}

// MetricsHandler returns the full dashboard for the signed in user
func (s *Server) MetricsHandler() http.HandlerFunc {
	return s.withFetcher(func(w http.ResponseWriter, r *http.Request, f dashboard.Fetcher) {
		d, err := s.dashboards.Build(r.Context(), f, s.dashboardOptions())
		if err != nil {
			s.writeUpstreamError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	})
}

func (s *Server) DemoMetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.buildDemo(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to build demo")
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func (s *Server) buildDemo(ctx context.Context) (*dashboard.Dashboard, error) {
	d, err := s.dashboards.Build(ctx, dashboard.NewDemoFetcher(NowTimeFunc()), s.dashboardOptions())
	if err != nil {
		log.Err(err).Msg("Failed to build demo dashboard")
		return nil, err
	}
	d.Demo = true
	return d, nil
}

func (s *Server) dashboardOptions() dashboard.Options {
	return dashboard.Options{
		RepeatPartnerLimit: defaultRepeatPartnerLimit,
		PartnerLookupLimit: s.config.GetPartnerLookupLimit(),
	}
}

// withFetcher hands the handler a Focusmate client authorised as the session's user.
// A token refreshed during the request is written back to the login session.
func (s *Server) withFetcher(handler func(http.ResponseWriter, *http.Request, dashboard.Fetcher)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, session, ok := sessionFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing session")
			return
		}

		client, tokens := focusmate.NewTokenClient(r.Context(), s.oauth, session.Token, s.config.GetAPIURL(), s.httpClient)
		handler(w, r, client)

		// Ended while handling the request; asking for the token now would only refresh a dead grant
		if _, err := s.loginSessions.Get(sessionID); err != nil {
			return
		}
		refreshed, err := tokens.Token()
		if err != nil || refreshed.AccessToken == session.Token.AccessToken {
			return
		}
		session.Token = refreshed
		if err := s.loginSessions.Upsert(sessionID, session); err != nil {
			log.Err(err).Msg("Failed to store refreshed token")
		}
	}
}

// writeUpstreamError maps Focusmate failures onto a response. A rejected token ends the login session.
func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errors.ErrUnauthorized):
		s.endSession(w, r)
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Focusmate rejected the session, please log in again")
	case errors.Is(err, errors.ErrRateLimited):
		writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Focusmate is rate limiting requests, try again shortly")
	case errors.Is(err, context.Canceled):
		// Client went away
	default:
		log.Err(err).Str("path", r.URL.Path).Msg("Focusmate request failed")
		writeJSONError(w, http.StatusBadGateway, "upstream_error", "Failed to reach Focusmate")
	}
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if sessionID, _, ok := sessionFromContext(r.Context()); ok {
		if err := s.loginSessions.Delete(sessionID); err != nil {
			log.Err(err).Msg("Failed to delete login session")
		}
	}
	s.ClearLoginSessionCookie(w, r)
}

func parseRange(r *http.Request, now time.Time) (from, to time.Time, err error) {
	to = now
	if raw := r.URL.Query().Get("start"); raw != "" {
		if from, err = parseTime(raw); err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrInvalidRequest, "start %q is not RFC 3339 or YYYY-MM-DD", raw)
		}
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		if to, err = parseTime(raw); err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrInvalidRequest, "end %q is not RFC 3339 or YYYY-MM-DD", raw)
		}
	}
	if !from.IsZero() && !from.Before(to) {
		return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrInvalidRequest, "start must be before end")
	}
	return from, to, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
