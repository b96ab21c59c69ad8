package authflowrepo

import (
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/fm-metrics/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu    sync.Mutex
	flows map[string]AuthFlowState
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		flows: make(map[string]AuthFlowState),
	}
}

func (r *InMemoryRepo) Save(state string, flow AuthFlowState) error {
	if state == "" {
		return fmt.Errorf("state cannot be empty")
	}
	if flow.CodeVerifier == "" {
		return fmt.Errorf("code verifier cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.flows[state]; exists {
		return fmt.Errorf("state already in use")
	}
	r.flows[state] = flow
	return nil
}

// Take returns the flow and forgets it, so a replayed callback finds nothing
func (r *InMemoryRepo) Take(state string) (AuthFlowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flow, exists := r.flows[state]
	if !exists {
		return AuthFlowState{}, errors.ErrInvalidState
	}
	delete(r.flows, state)
	return flow, nil
}

func (r *InMemoryRepo) Purge(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for state, flow := range r.flows {
		if flow.CreatedAt.Before(cutoff) {
			delete(r.flows, state)
			removed++
		}
	}
	return removed
}

// Len reports how many logins are pending
func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}
