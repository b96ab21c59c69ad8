package fakememberrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/fm-metrics/members"
)

var _ members.Repo = (*FakeMemberRepo)(nil)

type FakeMemberRepo struct {
	members map[string]*members.Member
	lock    sync.RWMutex
	err     error
}

func NewFakeMemberRepo() *FakeMemberRepo {
	return &FakeMemberRepo{
		members: make(map[string]*members.Member),
	}
}

// FailWith makes every following call return err
func (r *FakeMemberRepo) FailWith(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.err = err
}

func (r *FakeMemberRepo) Record(_ context.Context, userID string, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.err != nil {
		return r.err
	}
	if userID == "" {
		return errors.New("userID is required")
	}
	if m, ok := r.members[userID]; ok {
		m.LastSeenAt = at
		m.Logins++
		return nil
	}
	r.members[userID] = &members.Member{IDHash: userID, FirstSeenAt: at, LastSeenAt: at, Logins: 1}
	return nil
}

func (r *FakeMemberRepo) Count(context.Context) (int64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.err != nil {
		return 0, r.err
	}
	return int64(len(r.members)), nil
}

func (r *FakeMemberRepo) Logins(userID string) int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if m, ok := r.members[userID]; ok {
		return m.Logins
	}
	return 0
}
