package focusmate_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/fm-metrics/focusmate"
	"github.com/jrsteele09/fm-metrics/internal/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testToken = "test-access-token"

type fakeAPI struct {
	mu      sync.Mutex
	windows [][2]string
	status  int
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		if f.status != 0 {
			http.Error(w, `{"message":"nope"}`, f.status)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"user":{"userId":"me-1","name":"Jo","totalSessionCount":3,"timeZone":"Europe/London","memberSince":"2022-05-01T00:00:00Z"}}`))
	})
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"userId": r.PathValue("id"), "name": "Partner " + r.PathValue("id")},
		})
	})
	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
		f.mu.Lock()
		f.windows = append(f.windows, [2]string{start, end})
		f.mu.Unlock()

		from, err := time.Parse(time.RFC3339, start)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = fmt.Fprintf(w, `{"sessions":[
			{"sessionId":"s-%[1]s","duration":3000000,"startTime":"%[1]s","users":[
				{"userId":"me-1","completed":true,"sessionTitle":"write"},
				{"userId":"p-1","completed":true}
			]},
			{"sessionId":"shared","duration":1500000,"startTime":"%[1]s","users":[{"userId":"me-1","completed":false}]}
		]}`, from.Add(time.Hour).Format(time.RFC3339))
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI) *focusmate.Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return focusmate.NewStaticTokenClient(context.Background(), testToken, srv.URL)
}

func TestClient_Profile(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	p, err := c.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "me-1", p.UserID)
	require.Equal(t, "Jo", p.Name)
	require.Equal(t, 3, p.TotalSessionCount)
	require.Equal(t, "Europe/London", p.Location().String())
	require.NotNil(t, p.MemberSince)
	require.Equal(t, 2022, p.MemberSince.Year())
}

func TestClient_User(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	p, err := c.User(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, "Partner p-1", p.Name)

	_, err = c.User(context.Background(), "")
	require.Error(t, err)
}

func TestClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusUnauthorized, errors.ErrUnauthorized},
		{http.StatusTooManyRequests, errors.ErrRateLimited},
		{http.StatusBadGateway, errors.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, &fakeAPI{status: tt.status})
			_, err := c.Profile(context.Background())
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.target))

			var apiErr *focusmate.APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Contains(t, apiErr.Body, "nope")
		})
	}
}

func TestClient_SessionsWalksYearWindows(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	from := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(2*focusmate.MaxSessionWindow + 48*time.Hour)

	sessions, err := c.Sessions(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, api.windows, 3)
	require.Equal(t, from.Format(time.RFC3339), api.windows[0][0])
	require.Equal(t, api.windows[0][1], api.windows[1][0])
	require.Equal(t, to.Format(time.RFC3339), api.windows[2][1])

	// one distinct session per window plus the shared one only once
	require.Len(t, sessions, 4)
	require.Equal(t, 50*time.Minute, sessions[0].Duration)
	require.Equal(t, "write", sessions[0].Users[0].SessionTitle)

	t.Run("empty range", func(t *testing.T) {
		none, err := c.Sessions(context.Background(), to, from)
		require.NoError(t, err)
		require.Empty(t, none)
	})
}

func TestSession_JSONRoundTripKeepsMilliseconds(t *testing.T) {
	in := `{"sessionId":"x","duration":4500000,"startTime":"2024-03-01T09:00:00Z","users":[]}`
	var s focusmate.Session
	require.NoError(t, json.Unmarshal([]byte(in), &s))
	require.Equal(t, 75*time.Minute, s.Duration)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(out), `"duration":4500000`), string(out))
}

func TestSession_ForUser(t *testing.T) {
	start := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	s := focusmate.Session{
		SessionID: "s1",
		Duration:  25 * time.Minute,
		StartTime: start,
		Users: []focusmate.Participant{
			{UserID: "partner", Completed: false},
			{UserID: "me", Completed: true},
		},
	}

	t.Run("viewer by id", func(t *testing.T) {
		ms := s.ForUser("me")
		require.True(t, ms.Completed)
		require.Equal(t, "partner", ms.PartnerID)
		require.Equal(t, 25*time.Minute, ms.Duration)
		require.True(t, ms.Start.Equal(start))
	})

	t.Run("first participant when no id", func(t *testing.T) {
		ms := s.ForUser("")
		require.False(t, ms.Completed)
		require.Equal(t, "me", ms.PartnerID)
	})

	t.Run("unknown viewer is not completed", func(t *testing.T) {
		ms := s.ForUser("stranger")
		require.False(t, ms.Completed)
		require.Empty(t, ms.PartnerID)
	})

	t.Run("solo session", func(t *testing.T) {
		solo := s
		solo.Users = []focusmate.Participant{{UserID: "me", Completed: true}}
		ms := solo.ForUser("me")
		require.True(t, ms.Completed)
		require.Empty(t, ms.PartnerID)
	})
}

func TestAuthCodeURL(t *testing.T) {
	conf := &oauth2.Config{
		ClientID:    "client-1",
		RedirectURL: "http://localhost:8080/callback",
		Scopes:      []string{"profile"},
		Endpoint:    oauth2.Endpoint{AuthURL: "https://auth.example.com/oauth/authorize"},
	}
	verifier := oauth2.GenerateVerifier()

	raw := focusmate.AuthCodeURL(conf, "state-1", verifier)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "auth.example.com", u.Host)

	q := u.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "client-1", q.Get("client_id"))
	require.Equal(t, "state-1", q.Get("state"))
	require.Equal(t, "profile", q.Get("scope"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))
}
