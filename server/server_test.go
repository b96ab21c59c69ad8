package server_test

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/fm-metrics/dashboard"
	"github.com/jrsteele09/fm-metrics/internal/config"
	fakememberrepo "github.com/jrsteele09/fm-metrics/members/repofake"
	"github.com/jrsteele09/fm-metrics/server"
	"github.com/jrsteele09/fm-metrics/server/authflowrepo"
	"github.com/jrsteele09/fm-metrics/server/loginsession"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testClientID   = "client-1"
	testCode       = "auth-code"
	initialToken   = "token-1"
	refreshedToken = "token-2"
)

// fakeFocusmate plays both the authorization server and the API
type fakeFocusmate struct {
	mu           sync.Mutex
	challenge    string
	shortLived   bool
	shortRefresh bool // refreshed tokens are already expired too
	revoked      bool // reject every API call as if the user revoked access
	refreshCount int
}

func (f *fakeFocusmate) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != testCode || r.PostForm.Get("client_id") != testClientID ||
				oauth2.S256ChallengeFromVerifier(r.PostForm.Get("code_verifier")) != f.challenge {
				http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
				return
			}
			expiresIn := 3600
			if f.shortLived {
				expiresIn = 1
			}
			_, _ = fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","refresh_token":"refresh-1","expires_in":%d}`, initialToken, expiresIn)
		case "refresh_token":
			f.refreshCount++
			expiresIn := 3600
			if f.shortRefresh {
				expiresIn = 1
			}
			_, _ = fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","expires_in":%d}`, refreshedToken, expiresIn)
		default:
			http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		}
	})

	api := http.NewServeMux()
	api.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"userId":"me-1","name":"Jo Example","totalSessionCount":4,"timeZone":"Europe/London","memberSince":"2024-02-01T00:00:00Z"}}`))
	})
	api.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"user":{"userId":%q,"name":"Partner %s"}}`, r.PathValue("id"), r.PathValue("id"))
	})
	api.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		from, _ := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
		to, _ := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
		var out []string
		for i, start := range []string{"2024-03-01T09:00:00Z", "2024-03-02T09:00:00Z", "2024-03-02T10:00:00Z", "2024-03-04T09:00:00Z"} {
			at, _ := time.Parse(time.RFC3339, start)
			if at.Before(from) || !at.Before(to) {
				continue
			}
			out = append(out, fmt.Sprintf(`{"sessionId":"s%d","duration":3000000,"startTime":%q,"users":[{"userId":"me-1","completed":true},{"userId":"p-%d","completed":true}]}`, i, start, i%2))
		}
		_, _ = fmt.Fprintf(w, `{"sessions":[%s]}`, strings.Join(out, ","))
	})

	mux.Handle("/v1/", http.StripPrefix("/v1", f.requireToken(api)))
	return mux
}

func (f *fakeFocusmate) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		revoked := f.revoked
		f.mu.Unlock()
		if revoked {
			http.Error(w, `{"message":"access revoked"}`, http.StatusUnauthorized)
			return
		}
		switch r.Header.Get("Authorization") {
		case "Bearer " + initialToken, "Bearer " + refreshedToken:
			next.ServeHTTP(w, r)
		default:
			http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
		}
	})
}

type testEnv struct {
	server   *server.Server
	fm       *fakeFocusmate
	members  *fakememberrepo.FakeMemberRepo
	sessions *loginsession.InMemoryLoginSessionRepo
}

func newTestEnv(t *testing.T, envName string) *testEnv {
	t.Helper()
	fm := &fakeFocusmate{}
	upstream := httptest.NewServer(fm.handler())
	t.Cleanup(upstream.Close)

	t.Setenv("ENV", envName)
	t.Setenv("BASE_URL", "http://metrics.test")
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("FOCUSMATE_CLIENT_ID", testClientID)
	t.Setenv("FOCUSMATE_CLIENT_SECRET", "shh")
	t.Setenv("FOCUSMATE_AUTH_URL", upstream.URL+"/oauth/authorize")
	t.Setenv("FOCUSMATE_TOKEN_URL", upstream.URL+"/oauth/token")
	t.Setenv("FOCUSMATE_API_URL", upstream.URL+"/v1")
	t.Setenv("ALLOWED_ORIGINS", "https://allowed.example.com")

	env := &testEnv{
		fm:       fm,
		members:  fakememberrepo.NewFakeMemberRepo(),
		sessions: loginsession.NewInMemoryLoginSessionRepo(),
	}
	s, err := server.New(config.New(), env.members, env.sessions, authflowrepo.NewInMemoryRepo())
	require.NoError(t, err)
	env.server = s
	return env
}

func (e *testEnv) do(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// login walks the authorization code flow and returns the session cookie
func (e *testEnv) login(t *testing.T, returnPath string) (*http.Cookie, *httptest.ResponseRecorder) {
	t.Helper()
	loginPath := "/auth/login"
	if returnPath != "" {
		loginPath += "?return=" + url.QueryEscape(returnPath)
	}
	rec := e.do(t, loginPath)
	require.Equal(t, http.StatusFound, rec.Code)

	authURL, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	q := authURL.Query()
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, "http://metrics.test/callback", q.Get("redirect_uri"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("state"))

	e.fm.mu.Lock()
	e.fm.challenge = q.Get("code_challenge")
	e.fm.mu.Unlock()

	rec = e.do(t, "/callback?code="+testCode+"&state="+url.QueryEscape(q.Get("state")))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "loggedInSessionId" {
			return c, rec
		}
	}
	t.Fatal("no session cookie set")
	return nil, nil
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t, "DEV")

	rec := env.do(t, "/api/session")
	require.JSONEq(t, `{"signedIn":false}`, rec.Body.String())

	cookie, callback := env.login(t, "")
	require.Equal(t, "/dashboard", callback.Header().Get("Location"))
	require.True(t, cookie.HttpOnly)
	require.Equal(t, 1, env.members.Logins("me-1"))
	require.Equal(t, 1, env.sessions.Len())

	rec = env.do(t, "/api/session", cookie)
	require.JSONEq(t, `{"signedIn":true}`, rec.Body.String())

	rec = env.do(t, "/", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = env.do(t, "/auth/logout", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, 0, env.sessions.Len())

	rec = env.do(t, "/api/profile", cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_ReturnURLIsLocalOnly(t *testing.T) {
	env := newTestEnv(t, "DEV")

	_, callback := env.login(t, "//evil.example.com/steal")
	require.Equal(t, "/dashboard", callback.Header().Get("Location"))

	_, callback = env.login(t, "/api/metrics")
	require.Equal(t, "/api/metrics", callback.Header().Get("Location"))
}

func TestCallbackRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t, "DEV")

	tests := []struct {
		name string
		path string
	}{
		{"provider error", "/callback?error=access_denied&error_description=nope"},
		{"missing code", "/callback?state=abc"},
		{"unknown state", "/callback?code=" + testCode + "&state=never-issued"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.path)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCallback_ExpiredFlow(t *testing.T) {
	env := newTestEnv(t, "DEV")

	rec := env.do(t, "/auth/login")
	authURL, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	orig := server.NowTimeFunc
	server.NowTimeFunc = func() time.Time { return time.Now().Add(11 * time.Minute) }
	t.Cleanup(func() { server.NowTimeFunc = orig })

	callback := "/callback?code=" + testCode + "&state=" + url.QueryEscape(authURL.Query().Get("state"))
	rec = env.do(t, callback)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Login took too long")
	require.Equal(t, 0, env.sessions.Len())

	server.NowTimeFunc = orig
	rec = env.do(t, callback)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid state parameter")
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	env := newTestEnv(t, "DEV")

	for _, path := range []string{"/api/profile", "/api/sessions", "/api/metrics"} {
		rec := env.do(t, path)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "unauthorized", body["error"])
	}

	rec := env.do(t, "/dashboard")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	forged := &http.Cookie{Name: "loggedInSessionId", Value: "not-a-jwt"}
	rec = env.do(t, "/api/metrics", forged)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIEndpoints(t *testing.T) {
	env := newTestEnv(t, "DEV")
	cookie, _ := env.login(t, "")

	t.Run("profile", func(t *testing.T) {
		rec := env.do(t, "/api/profile", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"name":"Jo Example"`)
	})

	t.Run("sessions in range", func(t *testing.T) {
		rec := env.do(t, "/api/sessions?start=2024-03-02&end=2024-03-03", cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Sessions []map[string]any `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Sessions, 2)
		require.EqualValues(t, 3000000, body.Sessions[0]["duration"])
	})

	t.Run("sessions bad range", func(t *testing.T) {
		rec := env.do(t, "/api/sessions?start=yesterday", cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, "/api/sessions?start=2024-03-03&end=2024-03-02", cookie)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := env.do(t, "/api/metrics", cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		var d dashboard.Dashboard
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
		require.Equal(t, "me-1", d.Profile.UserID)
		require.Equal(t, 4, d.Metrics.TotalSessions)
		require.InDelta(t, 4*50.0/60, d.Metrics.TotalHours, 1e-9)
		require.Equal(t, 2, d.Metrics.TotalPartners)
		require.Len(t, d.Metrics.RepeatPartners, 2)
		require.Equal(t, "Partner "+d.Metrics.RepeatPartners[0].PartnerID, d.Metrics.RepeatPartners[0].Name)
		require.False(t, d.Demo)
	})
}

func TestRevokedTokenEndsSession(t *testing.T) {
	env := newTestEnv(t, "DEV")
	cookie, _ := env.login(t, "")

	env.fm.mu.Lock()
	env.fm.revoked = true
	env.fm.mu.Unlock()

	rec := env.do(t, "/api/metrics", cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, 0, env.sessions.Len())

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "loggedInSessionId" && c.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared)
}

func TestRevokedTokenIsNotRefreshedAgain(t *testing.T) {
	env := newTestEnv(t, "DEV")
	env.fm.mu.Lock()
	env.fm.shortLived = true
	env.fm.shortRefresh = true
	env.fm.mu.Unlock()

	cookie, _ := env.login(t, "")

	env.fm.mu.Lock()
	env.fm.revoked = true
	before := env.fm.refreshCount
	env.fm.mu.Unlock()

	rec := env.do(t, "/api/profile", cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, 0, env.sessions.Len())

	env.fm.mu.Lock()
	defer env.fm.mu.Unlock()
	require.Equal(t, before+1, env.fm.refreshCount)
}

func TestRefreshedTokenIsKept(t *testing.T) {
	env := newTestEnv(t, "DEV")
	env.fm.mu.Lock()
	env.fm.shortLived = true
	env.fm.mu.Unlock()

	cookie, _ := env.login(t, "")
	for i := 0; i < 3; i++ {
		rec := env.do(t, "/api/profile", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	env.fm.mu.Lock()
	defer env.fm.mu.Unlock()
	require.Equal(t, 1, env.fm.refreshCount)
}

func TestPublicEndpoints(t *testing.T) {
	env := newTestEnv(t, "PROD")
	env.login(t, "")

	t.Run("stats", func(t *testing.T) {
		rec := env.do(t, "/api/stats")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"totalUsers":1}`, rec.Body.String())
	})

	t.Run("landing page", func(t *testing.T) {
		rec := env.do(t, "/")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "1 members")
		require.Contains(t, rec.Body.String(), `href="/auth/login"`)
		require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	})

	t.Run("demo metrics", func(t *testing.T) {
		rec := env.do(t, "/api/demo/metrics")
		require.Equal(t, http.StatusOK, rec.Code)

		var d dashboard.Dashboard
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
		require.True(t, d.Demo)
		require.Positive(t, d.Metrics.TotalSessions)
	})

	t.Run("demo page", func(t *testing.T) {
		rec := env.do(t, "/dashboard/demo")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "generated demo data")
	})

	t.Run("stylesheet", func(t *testing.T) {
		rec := env.do(t, "/css/app.css")
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/css"))
		etag := rec.Header().Get("ETag")
		require.NotEmpty(t, etag)

		req := httptest.NewRequest(http.MethodGet, "/css/app.css", nil)
		req.Header.Set("If-None-Match", etag)
		cached := httptest.NewRecorder()
		env.server.ServeHTTP(cached, req)
		require.Equal(t, http.StatusNotModified, cached.Code)
		require.Empty(t, cached.Header().Get("Content-Encoding"))

		req = httptest.NewRequest(http.MethodGet, "/css/app.css", nil)
		req.Header.Set("If-None-Match", etag)
		req.Header.Set("Accept-Encoding", "gzip")
		cached = httptest.NewRecorder()
		env.server.ServeHTTP(cached, req)
		require.Equal(t, http.StatusNotModified, cached.Code)
		require.Empty(t, cached.Header().Get("Content-Encoding"))
		require.Zero(t, cached.Body.Len())

		req = httptest.NewRequest(http.MethodGet, "/css/app.css", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		zipped := httptest.NewRecorder()
		env.server.ServeHTTP(zipped, req)
		require.Equal(t, http.StatusOK, zipped.Code)
		require.Equal(t, "gzip", zipped.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(zipped.Body)
		require.NoError(t, err)
		css, err := io.ReadAll(zr)
		require.NoError(t, err)
		require.Contains(t, string(css), "body")

		rec = env.do(t, "/css/missing.css")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		req.Header.Set("Origin", "https://allowed.example.com")
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		require.Equal(t, "https://allowed.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestDashboardPage(t *testing.T) {
	env := newTestEnv(t, "DEV")
	cookie, _ := env.login(t, "")

	rec := env.do(t, "/dashboard", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Jo Example")
	require.Contains(t, body, "Sign out")
	require.Contains(t, body, "Partner p-")
}

func TestLoginNotConfigured(t *testing.T) {
	t.Setenv("FOCUSMATE_CLIENT_ID", "")
	s, err := server.New(config.New(), fakememberrepo.NewFakeMemberRepo(), loginsession.NewInMemoryLoginSessionRepo(), authflowrepo.NewInMemoryRepo())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewRequiresRepos(t *testing.T) {
	_, err := server.New(config.New(), nil, loginsession.NewInMemoryLoginSessionRepo(), authflowrepo.NewInMemoryRepo())
	require.Error(t, err)
}

func TestCallbackStateIsSingleUse(t *testing.T) {
	env := newTestEnv(t, "DEV")

	rec := env.do(t, "/auth/login")
	authURL, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	env.fm.mu.Lock()
	env.fm.challenge = authURL.Query().Get("code_challenge")
	env.fm.mu.Unlock()

	callback := "/callback?code=" + testCode + "&state=" + url.QueryEscape(authURL.Query().Get("state"))
	require.Equal(t, http.StatusSeeOther, env.do(t, callback).Code)
	require.Equal(t, http.StatusBadRequest, env.do(t, callback).Code)
}

func TestAPIResponseHeaders(t *testing.T) {
	env := newTestEnv(t, "DEV")
	cookie, _ := env.login(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(cookie)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Contains(t, string(body), "me-1")

	t.Run("invalid range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions?start=yesterday", nil)
		req.AddCookie(cookie)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		var out map[string]string
		require.NoError(t, json.NewDecoder(zr).Decode(&out))
		require.Equal(t, "invalid_request", out["error"])
		require.Contains(t, out["error_description"], "yesterday")
	})
}
