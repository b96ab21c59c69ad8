// Package focusmate is a thin client for the Focusmate v1 REST API and its OAuth endpoints.
package focusmate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MaxSessionWindow is the longest range the /sessions endpoint accepts per request
const MaxSessionWindow = 365 * 24 * time.Hour

const maxErrorBody = 512

type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an API client. The http.Client is expected to add the bearer token,
// normally it comes from oauth2.Config.Client or oauth2.NewClient.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// Profile returns the signed in user
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var resp profileResponse
	if err := c.getJSON(ctx, "/me", nil, &resp); err != nil {
		return nil, fmt.Errorf("[focusmate Profile] %w", err)
	}
	return &resp.User, nil
}

// User returns another member's public profile
func (c *Client) User(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("[focusmate User] userID is required")
	}
	var resp profileResponse
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, fmt.Errorf("[focusmate User] %w", err)
	}
	return &resp.User, nil
}

// Sessions returns every session starting in [from, to). Ranges longer than
// MaxSessionWindow are fetched window by window.
func (c *Client) Sessions(ctx context.Context, from, to time.Time) ([]Session, error) {
	if !from.Before(to) {
		return []Session{}, nil
	}

	sessions := make([]Session, 0)
	seen := make(map[string]struct{})
	for start := from; start.Before(to); start = start.Add(MaxSessionWindow) {
		end := start.Add(MaxSessionWindow)
		if end.After(to) {
			end = to
		}

		query := url.Values{}
		query.Set("start", start.UTC().Format(time.RFC3339))
		query.Set("end", end.UTC().Format(time.RFC3339))

		var resp SessionsResponse
		if err := c.getJSON(ctx, "/sessions", query, &resp); err != nil {
			return nil, fmt.Errorf("[focusmate Sessions] %s to %s: %w", query.Get("start"), query.Get("end"), err)
		}
		for _, s := range resp.Sessions {
			if s.SessionID != "" {
				if _, dup := seen[s.SessionID]; dup {
					continue
				}
				seen[s.SessionID] = struct{}{}
			}
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Path:       path,
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
