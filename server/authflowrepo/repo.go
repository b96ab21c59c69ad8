package authflowrepo

import "time"

// AuthFlowState is kept between the redirect to Focusmate and the callback
type AuthFlowState struct {
	CodeVerifier string
	ReturnURL    string
	CreatedAt    time.Time
}

// Repo holds pending logins keyed by the OAuth state parameter. A state can be taken once.
type Repo interface {
	Save(state string, flow AuthFlowState) error
	Take(state string) (AuthFlowState, error)
	// Purge drops flows created before cutoff and returns how many were removed
	Purge(cutoff time.Time) int
}
