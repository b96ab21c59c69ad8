package loginsession

import (
	"time"

	"golang.org/x/oauth2"
)

type Session struct {
	// Focusmate identity
	UserID   string
	Name     string
	TimeZone string

	// Token holds the access and refresh token, replaced whenever it is refreshed
	Token *oauth2.Token

	// Session management
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repo interface {
	Upsert(sessionID string, session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
}
