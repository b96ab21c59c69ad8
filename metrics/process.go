package metrics

import (
	"sort"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Process computes the full Metrics bundle from a session history.
// The input slice is not modified.
func Process(sessions []Session, opts Options) Metrics {
	opts = opts.withDefaults()
	held := completedInOrder(sessions, opts.Location)

	m := Metrics{
		SessionsByDuration: durationBuckets(held),
		Milestones:         []Milestone{},
		RepeatPartners:     []RepeatPartner{},
		Weekly:             []Bucket{},
		Monthly:            []Bucket{},
	}
	if len(held) == 0 {
		return m
	}

	var total time.Duration
	partners := make(map[string]struct{})
	for _, s := range held {
		total += s.Duration
		if s.PartnerID != "" {
			partners[s.PartnerID] = struct{}{}
		}
	}

	m.TotalSessions = len(held)
	m.TotalHours = total.Hours()
	m.TotalPartners = len(partners)
	first := held[0].Start
	m.FirstSessionDate = &first

	days := dailyTotals(held)
	maxDay, maxHours := busiestDay(days)
	maxDate := midnightIn(maxDay, opts.Location)
	m.MaxHoursADay = maxHours
	m.MaxHoursDate = &maxDate
	m.LongestStreak, m.CurrentStreak = streaks(days, civilDate(opts.Now.In(opts.Location)))

	m.Milestones = milestones(held, opts.Milestones)
	m.RepeatPartners = repeatPartners(held, opts.RepeatPartnerLimit)
	m.Weekly = weeklySeries(held, opts.Location)
	m.Monthly = monthlySeries(held, opts.Location)
	return m
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now.IsZero() {
		o.Now = NowTimeFunc()
	}
	return o
}

// completedInOrder keeps held sessions, moved into loc, and sorts them chronologically, stable on ties
func completedInOrder(sessions []Session, loc *time.Location) []Session {
	held := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.Completed || s.Duration <= 0 {
			continue
		}
		s.Start = s.Start.In(loc)
		held = append(held, s)
	}
	sort.SliceStable(held, func(i, j int) bool {
		return held[i].Start.Before(held[j].Start)
	})
	return held
}

func durationBuckets(held []Session) []DurationBucket {
	counts := make(map[int]int, len(StandardDurations))
	for _, minutes := range StandardDurations {
		counts[minutes] = 0
	}
	for _, s := range held {
		counts[roundedMinutes(s.Duration)]++
	}

	buckets := make([]DurationBucket, 0, len(counts))
	for minutes, n := range counts {
		b := DurationBucket{Minutes: minutes, Sessions: n}
		if len(held) > 0 {
			b.Percent = float64(n) / float64(len(held)) * 100
		}
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Minutes < buckets[j].Minutes
	})
	return buckets
}

// roundedMinutes is never below one so a short held session does not land in a zero bucket
func roundedMinutes(d time.Duration) int {
	return max(1, int(d.Round(time.Minute)/time.Minute))
}

type dayTotal struct {
	day      time.Time // civil date, see civilDate
	duration time.Duration
}

// dailyTotals sums session time per calendar day, ordered by day
func dailyTotals(held []Session) []dayTotal {
	var days []dayTotal
	for _, s := range held {
		day := civilDate(s.Start)
		if n := len(days); n > 0 && days[n-1].day.Equal(day) {
			days[n-1].duration += s.Duration
			continue
		}
		days = append(days, dayTotal{day: day, duration: s.Duration})
	}
	return days
}

func busiestDay(days []dayTotal) (time.Time, float64) {
	best := days[0]
	for _, d := range days[1:] {
		if d.duration > best.duration {
			best = d
		}
	}
	return best.day, best.duration.Hours()
}

// streaks returns the longest run of consecutive session days and the run still alive at today.
// A run ending yesterday counts as current since today may not have had a session yet.
func streaks(days []dayTotal, today time.Time) (longest, current int) {
	run := 0
	for i, d := range days {
		if i > 0 && d.day.Equal(days[i-1].day.AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	last := days[len(days)-1].day
	if last.Equal(today) || last.Equal(today.AddDate(0, 0, -1)) {
		current = run
	}
	return longest, current
}

func repeatPartners(held []Session, limit int) []RepeatPartner {
	byID := make(map[string]*RepeatPartner)
	for _, s := range held {
		if s.PartnerID == "" {
			continue
		}
		p, ok := byID[s.PartnerID]
		if !ok {
			p = &RepeatPartner{PartnerID: s.PartnerID, FirstSession: s.Start}
			byID[s.PartnerID] = p
		}
		p.Sessions++
		p.LastSession = s.Start
	}

	repeats := make([]RepeatPartner, 0)
	for _, p := range byID {
		if p.Sessions > 1 {
			repeats = append(repeats, *p)
		}
	}
	sort.Slice(repeats, func(i, j int) bool {
		a, b := repeats[i], repeats[j]
		if a.Sessions != b.Sessions {
			return a.Sessions > b.Sessions
		}
		if !a.LastSession.Equal(b.LastSession) {
			return a.LastSession.After(b.LastSession)
		}
		return a.PartnerID < b.PartnerID
	})

	if limit > 0 && len(repeats) > limit {
		repeats = repeats[:limit]
	}
	return repeats
}

// civilDate keys the calendar day of t as midnight UTC.
// Zones such as America/Santiago skip local midnight when daylight saving starts,
// so day arithmetic runs on these keys and never on zoned midnights.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// midnightIn turns a civil date back into the start of that day in loc
func midnightIn(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
