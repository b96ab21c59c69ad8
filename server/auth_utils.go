package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/fm-metrics/internal/errors"
)

const (
	// loggedInSessionID is the name of the cookie carrying the signed login session
	loggedInSessionID = "loggedInSessionId"
	sessionIssuer     = "fm-metrics"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// sessionClaims is the payload of the login cookie. sid names the server side login session.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwtlib.RegisteredClaims
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (s *Server) signSessionToken(sessionID string, expiresAt time.Time) (string, error) {
	now := NowTimeFunc()
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    sessionIssuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.config.GetSessionSecret())
	if err != nil {
		return "", fmt.Errorf("[Server signSessionToken] %w", err)
	}
	return signed, nil
}

// parseSessionToken verifies the cookie value and returns the login session id it names
func (s *Server) parseSessionToken(raw string) (string, error) {
	var claims sessionClaims
	_, err := jwtlib.ParseWithClaims(raw, &claims, func(*jwtlib.Token) (any, error) {
		return s.config.GetSessionSecret(), nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(sessionIssuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInvalidSessionToken, "%v", err)
	}
	if claims.SessionID == "" {
		return "", errors.ErrInvalidSessionToken
	}
	return claims.SessionID, nil
}

// sessionIDFromRequest returns the login session id from a valid cookie
func (s *Server) sessionIDFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(loggedInSessionID)
	if err != nil || cookie.Value == "" {
		return "", errors.ErrSessionNotFound
	}
	return s.parseSessionToken(cookie.Value)
}

func (s *Server) SetLoginSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, expiresAt time.Time) error {
	token, err := s.signSessionToken(sessionID, expiresAt)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     loggedInSessionID,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(expiresAt.Sub(NowTimeFunc()).Seconds()),
	})
	return nil
}

func (s *Server) ClearLoginSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     loggedInSessionID,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// safeReturnURL only allows local absolute paths so the login flow cannot be used as an open redirect
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return RouteDashboard
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return RouteDashboard
	}
	return raw
}
