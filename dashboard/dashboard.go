// Package dashboard fetches a user's history and turns it into the data behind every dashboard widget.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/fm-metrics/focusmate"
	"github.com/jrsteele09/fm-metrics/metrics"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const defaultLookupWorkers = 4

// Fetcher is the slice of the Focusmate API the dashboard needs
type Fetcher interface {
	Profile(ctx context.Context) (*focusmate.Profile, error)
	Sessions(ctx context.Context, from, to time.Time) ([]focusmate.Session, error)
	User(ctx context.Context, userID string) (*focusmate.Profile, error)
}

var _ Fetcher = (*focusmate.Client)(nil)

type Options struct {
	RepeatPartnerLimit int
	PartnerLookupLimit int // How many repeat partners get names, <= 0 disables lookups
}

type Dashboard struct {
	Profile     focusmate.Profile `json:"profile" yaml:"profile"`
	Metrics     metrics.Metrics   `json:"metrics" yaml:"metrics"`
	GeneratedAt time.Time         `json:"generatedAt" yaml:"generatedAt"`
	Demo        bool              `json:"demo,omitempty" yaml:"demo,omitempty"`
}

type Service struct {
	lookupWorkers int
}

func NewService() *Service {
	return &Service{lookupWorkers: defaultLookupWorkers}
}

// Build fetches the profile and full session history and computes the metrics in the
// profile's time zone. Everything is recomputed on every call.
func (s *Service) Build(ctx context.Context, f Fetcher, opts Options) (*Dashboard, error) {
	profile, err := f.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("[dashboard Build] profile: %w", err)
	}

	now := NowTimeFunc()
	sessions, err := f.Sessions(ctx, HistoryStart(*profile, now), now)
	if err != nil {
		return nil, fmt.Errorf("[dashboard Build] sessions: %w", err)
	}

	m := metrics.Process(focusmate.ForUser(sessions, profile.UserID), metrics.Options{
		Location:           profile.Location(),
		Now:                now,
		RepeatPartnerLimit: opts.RepeatPartnerLimit,
	})
	s.resolvePartnerNames(ctx, f, m.RepeatPartners, opts.PartnerLookupLimit)

	return &Dashboard{
		Profile:     *profile,
		Metrics:     m,
		GeneratedAt: now,
	}, nil
}

// HistoryStart is where the session history begins: the member-since date, or one
// request window back when the profile does not say.
func HistoryStart(profile focusmate.Profile, now time.Time) time.Time {
	if profile.MemberSince != nil && profile.MemberSince.Before(now) {
		return *profile.MemberSince
	}
	return now.Add(-focusmate.MaxSessionWindow)
}

// resolvePartnerNames fills in names for the first limit partners. A failed lookup
// leaves the name empty; the dashboard still renders with the partner id.
func (s *Service) resolvePartnerNames(ctx context.Context, f Fetcher, partners []metrics.RepeatPartner, limit int) {
	if limit <= 0 {
		return
	}
	if len(partners) < limit {
		limit = len(partners)
	}

	sem := make(chan struct{}, s.lookupWorkers)
	var wg sync.WaitGroup
	for i := 0; i < limit; i++ {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(p *metrics.RepeatPartner) {
			defer wg.Done()
			defer func() { <-sem }()

			user, err := f.User(ctx, p.PartnerID)
			if err != nil {
				log.Warn().Err(err).Str("partner", p.PartnerID).Msg("Failed to resolve partner name")
				return
			}
			p.Name = user.Name
		}(&partners[i])
	}
	wg.Wait()
}
