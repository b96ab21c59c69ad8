// Package metrics turns a user's Focusmate session history into the aggregate numbers shown on the dashboard.
package metrics

import "time"

// Session is a single session as seen by the viewing user
type Session struct {
	Start     time.Time     `json:"start"`
	Duration  time.Duration `json:"duration"`
	PartnerID string        `json:"partnerId,omitempty"` // Empty when nobody showed up
	Completed bool          `json:"completed"`
}

// Options controls how sessions are bucketed
type Options struct {
	Location           *time.Location // Calendar days, weeks and months are computed in this zone
	Now                time.Time      // Reference for the current streak
	RepeatPartnerLimit int            // <= 0 means all repeat partners
	Milestones         []int          // Session numbers to report; nil uses DefaultMilestones
}

type Metrics struct {
	TotalSessions      int              `json:"totalSessions" yaml:"totalSessions"`
	TotalHours         float64          `json:"totalHours" yaml:"totalHours"`
	TotalPartners      int              `json:"totalPartners" yaml:"totalPartners"`
	FirstSessionDate   *time.Time       `json:"firstSessionDate" yaml:"firstSessionDate"`
	MaxHoursADay       float64          `json:"maxHoursADay" yaml:"maxHoursADay"`
	MaxHoursDate       *time.Time       `json:"maxHoursDate" yaml:"maxHoursDate"`
	CurrentStreak      int              `json:"currentStreak" yaml:"currentStreak"`
	LongestStreak      int              `json:"longestStreak" yaml:"longestStreak"`
	SessionsByDuration []DurationBucket `json:"sessionsByDuration" yaml:"sessionsByDuration"`
	Milestones         []Milestone      `json:"milestones" yaml:"milestones"`
	RepeatPartners     []RepeatPartner  `json:"repeatPartners" yaml:"repeatPartners"`
	Weekly             []Bucket         `json:"weekly" yaml:"weekly"`
	Monthly            []Bucket         `json:"monthly" yaml:"monthly"`
}

type DurationBucket struct {
	Minutes  int     `json:"minutes" yaml:"minutes"`
	Sessions int     `json:"sessions" yaml:"sessions"`
	Percent  float64 `json:"percent" yaml:"percent"`
}

// Milestone marks the date the Nth session was held
type Milestone struct {
	Number    int       `json:"number" yaml:"number"`
	Date      time.Time `json:"date" yaml:"date"`
	PartnerID string    `json:"partnerId,omitempty" yaml:"partnerId,omitempty"`
}

type RepeatPartner struct {
	PartnerID    string    `json:"partnerId" yaml:"partnerId"`
	Name         string    `json:"name,omitempty" yaml:"name,omitempty"`
	Sessions     int       `json:"sessions" yaml:"sessions"`
	FirstSession time.Time `json:"firstSession" yaml:"firstSession"`
	LastSession  time.Time `json:"lastSession" yaml:"lastSession"`
}

// Bucket is one point of the weekly or monthly series
type Bucket struct {
	Start    time.Time `json:"start" yaml:"start"`
	Label    string    `json:"label" yaml:"label"`
	Sessions int       `json:"sessions" yaml:"sessions"`
	Hours    float64   `json:"hours" yaml:"hours"`
}

// StandardDurations are the session lengths Focusmate offers, always reported even when unused
var StandardDurations = []int{25, 50, 75}
