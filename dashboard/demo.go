package dashboard

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jrsteele09/fm-metrics/focusmate"
)

const (
	demoUserID   = "demo-user"
	demoTimeZone = "America/New_York"
	demoDays     = 400
	demoPartners = 60
	demoSeed     = 20220501
)

var demoFirstNames = []string{
	"Ada", "Ben", "Chloe", "Dev", "Elena", "Farid", "Grace", "Hugo", "Ines", "Jon",
	"Kai", "Lena", "Mateo", "Nora", "Omar", "Priya", "Quinn", "Rosa", "Sam", "Tess",
}

// DemoFetcher serves a generated but deterministic history so the dashboard can be
// shown without signing in. The same now always yields the same data.
type DemoFetcher struct {
	profile  focusmate.Profile
	sessions []focusmate.Session
}

var _ Fetcher = (*DemoFetcher)(nil)

func NewDemoFetcher(now time.Time) *DemoFetcher {
	loc := focusmate.Profile{TimeZone: demoTimeZone}.Location()
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	since := today.AddDate(0, 0, -demoDays)

	return &DemoFetcher{
		profile: focusmate.Profile{
			UserID:      demoUserID,
			Name:        "Demo User",
			TimeZone:    demoTimeZone,
			MemberSince: &since,
		},
		sessions: demoSessions(since, now, loc),
	}
}

func (d *DemoFetcher) Profile(context.Context) (*focusmate.Profile, error) {
	p := d.profile
	p.TotalSessionCount = len(d.sessions)
	return &p, nil
}

func (d *DemoFetcher) Sessions(_ context.Context, from, to time.Time) ([]focusmate.Session, error) {
	sessions := make([]focusmate.Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		if !s.StartTime.Before(from) && s.StartTime.Before(to) {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func (d *DemoFetcher) User(_ context.Context, userID string) (*focusmate.Profile, error) {
	var n int
	if _, err := fmt.Sscanf(userID, "demo-partner-%d", &n); err != nil {
		return nil, fmt.Errorf("[DemoFetcher User] unknown user %q", userID)
	}
	name := fmt.Sprintf("%s %c.", demoFirstNames[n%len(demoFirstNames)], 'A'+rune(n%26))
	return &focusmate.Profile{UserID: userID, Name: name}, nil
}

func demoSessions(since, now time.Time, loc *time.Location) []focusmate.Session {
	rng := rand.New(rand.NewSource(demoSeed))
	durations := []time.Duration{25 * time.Minute, 50 * time.Minute, 50 * time.Minute, 75 * time.Minute}

	var sessions []focusmate.Session
	for day := since; day.Before(now); day = day.AddDate(0, 0, 1) {
		if rng.Float64() < 0.35 {
			continue
		}
		slot := 7*4 + rng.Intn(6*4) // first session between 07:00 and 13:00, quarter-hour slots
		for i, n := 0, 1+rng.Intn(4); i < n; i++ {
			start := time.Date(day.Year(), day.Month(), day.Day(), 0, slot*15, 0, 0, loc)
			duration := durations[rng.Intn(len(durations))]
			if !start.Before(now) {
				break
			}

			// A small pool of regulars plus a long tail
			partner := rng.Intn(demoPartners)
			if rng.Float64() < 0.5 {
				partner = rng.Intn(8)
			}

			sessions = append(sessions, focusmate.Session{
				SessionID: fmt.Sprintf("demo-%d", len(sessions)+1),
				Duration:  duration,
				StartTime: start.UTC(),
				Users: []focusmate.Participant{
					{UserID: demoUserID, Completed: rng.Float64() > 0.05},
					{UserID: fmt.Sprintf("demo-partner-%d", partner), Completed: true},
				},
			})
			slot += int(duration/(15*time.Minute)) + rng.Intn(8)
		}
	}
	return sessions
}
