package config

import (
	"strings"
	"time"
)

type FocusmateConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetAuthURL() string
	GetTokenURL() string
	GetAPIURL() string
	GetScopes() []string
	GetRequestTimeout() time.Duration
	GetPartnerLookupLimit() int
}

type Focusmate struct{}

var _ FocusmateConfig = Focusmate{}

func (Focusmate) GetClientID() string {
	return GetEnv("FOCUSMATE_CLIENT_ID", "")
}

func (Focusmate) GetClientSecret() string {
	return GetEnv("FOCUSMATE_CLIENT_SECRET", "")
}

func (Focusmate) GetAuthURL() string {
	return GetEnv("FOCUSMATE_AUTH_URL", "https://www.focusmate.com/oauth/authorize")
}

func (Focusmate) GetTokenURL() string {
	return GetEnv("FOCUSMATE_TOKEN_URL", "https://api.focusmate.com/oauth/token")
}

func (Focusmate) GetAPIURL() string {
	return strings.TrimSuffix(GetEnv("FOCUSMATE_API_URL", "https://api.focusmate.com/v1"), "/")
}

func (Focusmate) GetScopes() []string {
	return strings.Fields(GetEnv("FOCUSMATE_SCOPES", "profile"))
}

func (Focusmate) GetRequestTimeout() time.Duration {
	return 30 * time.Second
}

// GetPartnerLookupLimit caps how many repeat partners get their names resolved
func (Focusmate) GetPartnerLookupLimit() int {
	return 10
}
