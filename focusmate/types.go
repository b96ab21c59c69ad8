package focusmate

import (
	"encoding/json"
	"time"
	_ "time/tzdata" // Profile time zones must resolve on hosts without zoneinfo

	"github.com/jrsteele09/fm-metrics/metrics"
)

// Profile is a Focusmate user as returned by /me and /users/{id}
type Profile struct {
	UserID            string     `json:"userId" yaml:"userId"`
	Name              string     `json:"name" yaml:"name"`
	TotalSessionCount int        `json:"totalSessionCount" yaml:"totalSessionCount"`
	TimeZone          string     `json:"timeZone" yaml:"timeZone"`
	PhotoURL          string     `json:"photoUrl,omitempty" yaml:"photoUrl,omitempty"`
	MemberSince       *time.Time `json:"memberSince,omitempty" yaml:"memberSince,omitempty"`
}

// Location returns the profile's time zone, falling back to UTC when it is missing or unknown
func (p Profile) Location() *time.Location {
	if p.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Participant struct {
	UserID       string     `json:"userId"`
	RequestedAt  *time.Time `json:"requestedAt,omitempty"`
	JoinedAt     *time.Time `json:"joinedAt,omitempty"`
	Completed    bool       `json:"completed"`
	SessionTitle string     `json:"sessionTitle,omitempty"`
}

// Session is a booked Focusmate session. Duration travels as milliseconds on the wire.
type Session struct {
	SessionID string        `json:"sessionId"`
	Duration  time.Duration `json:"-"`
	StartTime time.Time     `json:"startTime"`
	Users     []Participant `json:"users"`
}

type sessionAlias Session

type sessionWire struct {
	sessionAlias
	DurationMs int64 `json:"duration"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionWire{
		sessionAlias: sessionAlias(s),
		DurationMs:   s.Duration.Milliseconds(),
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var wire sessionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*s = Session(wire.sessionAlias)
	s.Duration = time.Duration(wire.DurationMs) * time.Millisecond
	return nil
}

// ForUser views the session from one participant's side. With an empty userID the first
// participant is taken as the viewer, which is how the API orders the requesting user.
func (s Session) ForUser(userID string) metrics.Session {
	ms := metrics.Session{Start: s.StartTime, Duration: s.Duration}

	self := -1
	for i, u := range s.Users {
		if u.UserID == userID || (userID == "" && i == 0) {
			self = i
			break
		}
	}
	if self < 0 {
		return ms
	}

	ms.Completed = s.Users[self].Completed
	for i, u := range s.Users {
		if i != self && u.UserID != "" {
			ms.PartnerID = u.UserID
			break
		}
	}
	return ms
}

// ForUser converts a whole history, see Session.ForUser
func ForUser(sessions []Session, userID string) []metrics.Session {
	converted := make([]metrics.Session, 0, len(sessions))
	for _, s := range sessions {
		converted = append(converted, s.ForUser(userID))
	}
	return converted
}

type profileResponse struct {
	User Profile `json:"user"`
}

// SessionsResponse is the /sessions payload, also the format of exported history files
type SessionsResponse struct {
	Sessions []Session `json:"sessions"`
}
