package focusmate

import (
	"context"
	"net/http"

	"github.com/jrsteele09/fm-metrics/internal/config"
	"golang.org/x/oauth2"
)

// NewOAuthConfig builds the authorization-code flow configuration for Focusmate
func NewOAuthConfig(cfg config.FocusmateConfig, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GetClientID(),
		ClientSecret: cfg.GetClientSecret(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.GetAuthURL(),
			TokenURL:  cfg.GetTokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURL,
		Scopes:      cfg.GetScopes(),
	}
}

// AuthCodeURL is the URL the login button sends the browser to.
// The verifier must be kept until the callback to complete the PKCE exchange.
func AuthCodeURL(conf *oauth2.Config, state, verifier string) string {
	return conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades the callback code for a token
func Exchange(ctx context.Context, conf *oauth2.Config, code, verifier string) (*oauth2.Token, error) {
	return conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

// NewTokenClient returns an API client authorised with the token together with the
// token source backing it, so callers can persist a refreshed token afterwards.
func NewTokenClient(ctx context.Context, conf *oauth2.Config, token *oauth2.Token, baseURL string, httpClient *http.Client) (*Client, oauth2.TokenSource) {
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}
	ts := conf.TokenSource(ctx, token)
	authed := oauth2.NewClient(ctx, ts)
	if httpClient != nil {
		authed.Timeout = httpClient.Timeout
	}
	return NewClient(authed, baseURL), ts
}

// NewStaticTokenClient authorises with a fixed access token, e.g. one pasted on the command line
func NewStaticTokenClient(ctx context.Context, accessToken, baseURL string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return NewClient(oauth2.NewClient(ctx, ts), baseURL)
}
