package config

import "time"

type SecurityConfig interface {
	GetSessionSecret() []byte
	GetMaxSessionAge() time.Duration
	GetAuthFlowTimeout() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSessionSecret signs session cookies and keys the member id hash
func (Security) GetSessionSecret() []byte {
	return []byte(GetEnv("SESSION_SECRET", "dev-only-session-secret-change-me"))
}

func (Security) GetMaxSessionAge() time.Duration {
	return 7 * 24 * time.Hour
}

func (Security) GetAuthFlowTimeout() time.Duration {
	return 10 * time.Minute // Login must finish within this window
}
