package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jrsteele09/fm-metrics/dashboard"
	"github.com/jrsteele09/fm-metrics/focusmate"
	"github.com/jrsteele09/fm-metrics/internal/errors"
)

// fileFetcher serves a history exported to disk. It has no profile beyond what the file implies.
type fileFetcher struct {
	profile  focusmate.Profile
	sessions []focusmate.Session
}

var _ dashboard.Fetcher = (*fileFetcher)(nil)

func loadSessionsFile(path, userID string) (*fileFetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var resp focusmate.SessionsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		// A bare array is accepted too
		if arrErr := json.Unmarshal(data, &resp.Sessions); arrErr != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	f := &fileFetcher{
		profile:  focusmate.Profile{UserID: userID, TotalSessionCount: len(resp.Sessions)},
		sessions: resp.Sessions,
	}
	for _, s := range resp.Sessions {
		if f.profile.MemberSince == nil || s.StartTime.Before(*f.profile.MemberSince) {
			start := s.StartTime
			f.profile.MemberSince = &start
		}
	}
	return f, nil
}

func (f *fileFetcher) Profile(context.Context) (*focusmate.Profile, error) {
	p := f.profile
	return &p, nil
}

func (f *fileFetcher) Sessions(_ context.Context, from, to time.Time) ([]focusmate.Session, error) {
	out := make([]focusmate.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		if !s.StartTime.Before(from) && !s.StartTime.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fileFetcher) User(_ context.Context, userID string) (*focusmate.Profile, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "user %s", userID)
}

// zoneOverride reports every profile in a fixed zone
type zoneOverride struct {
	dashboard.Fetcher
	zone string
}

func (z zoneOverride) Profile(ctx context.Context) (*focusmate.Profile, error) {
	p, err := z.Fetcher.Profile(ctx)
	if err != nil {
		return nil, err
	}
	p.TimeZone = z.zone
	return p, nil
}
