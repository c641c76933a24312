package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// MaxPatternSpanDays bounds how far a recurring booking may run.
const MaxPatternSpanDays = 366

type SessionType string

const (
	SessionFullDay SessionType = "full_day"
	SessionAM      SessionType = "am"
	SessionPM      SessionType = "pm"
	SessionHourly  SessionType = "hourly"
)

// Clock is a time of day in minutes after midnight, encoded as "HH:MM".
type Clock int

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInput, s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*c = 0
		return nil
	}
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

var defaultHours = map[SessionType][2]Clock{
	SessionFullDay: {8*60 + 30, 15*60 + 30},
	SessionAM:      {8*60 + 30, 12 * 60},
	SessionPM:      {12*60 + 30, 15*60 + 30},
}

// DefaultHours returns the standard start and end for a session type.
func DefaultHours(s SessionType) (Clock, Clock, bool) {
	h, ok := defaultHours[s]
	return h[0], h[1], ok
}

// Slot resolves the working hours of a session. Explicit times override the
// defaults; hourly sessions must supply both.
func Slot(s SessionType, start, end Clock) (Clock, Clock, error) {
	if s == "" {
		s = SessionFullDay
	}
	switch s {
	case SessionFullDay, SessionAM, SessionPM:
		if start == 0 && end == 0 {
			start, end, _ = DefaultHours(s)
		}
	case SessionHourly:
		if start == 0 || end == 0 {
			return 0, 0, fmt.Errorf("%w: hourly sessions need a start and end time", ErrInvalidInput)
		}
	default:
		return 0, 0, fmt.Errorf("%w: unknown session type %q", ErrInvalidInput, s)
	}
	if start >= end {
		return 0, 0, fmt.Errorf("%w: session start %s must be before end %s", ErrInvalidInput, start, end)
	}
	if end > 24*60 {
		return 0, 0, fmt.Errorf("%w: session end %s is past midnight", ErrInvalidInput, end)
	}
	return start, end, nil
}

type DayPattern struct {
	Weekday time.Weekday `json:"weekday"`
	Session SessionType  `json:"session"`
	Start   Clock        `json:"start,omitempty"`
	End     Clock        `json:"end,omitempty"`
}

// BookingPattern describes which days a candidate is booked for. A single
// booking covers StartDate only; a recurring booking repeats on the listed
// weekdays between StartDate and EndDate inclusive, Monday to Friday when no
// weekdays are listed.
type BookingPattern struct {
	StartDate      civil.Date   `json:"start_date"`
	EndDate        civil.Date   `json:"end_date"`
	Recurring      bool         `json:"recurring"`
	Days           []DayPattern `json:"days,omitempty"`
	DefaultSession SessionType  `json:"default_session,omitempty"`
	DefaultStart   Clock        `json:"default_start,omitempty"`
	DefaultEnd     Clock        `json:"default_end,omitempty"`
}

type BookingDay struct {
	Date    civil.Date  `json:"date"`
	Session SessionType `json:"session"`
	Start   Clock       `json:"start"`
	End     Clock       `json:"end"`
}

// Hours is the length of the booked slot.
func (d BookingDay) Hours() float64 {
	return float64(d.End-d.Start) / 60
}

func (d BookingDay) overlaps(o BookingDay) bool {
	return d.Date == o.Date && d.Start < o.End && o.Start < d.End
}

func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

func (p BookingPattern) Validate() error {
	_, err := p.Expand()
	return err
}

// Expand turns the pattern into concrete dated sessions, ascending by date.
func (p BookingPattern) Expand() ([]BookingDay, error) {
	if p.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}
	if !p.StartDate.IsValid() || (!p.EndDate.IsZero() && !p.EndDate.IsValid()) {
		return nil, fmt.Errorf("%w: invalid date", ErrInvalidInput)
	}

	byDay := make(map[time.Weekday]DayPattern, len(p.Days))
	for _, d := range p.Days {
		if d.Weekday < time.Sunday || d.Weekday > time.Saturday {
			return nil, fmt.Errorf("%w: weekday %d out of range", ErrInvalidInput, d.Weekday)
		}
		if _, dup := byDay[d.Weekday]; dup {
			return nil, fmt.Errorf("%w: %s listed more than once", ErrInvalidInput, d.Weekday)
		}
		if d.Session == "" {
			d.Session = p.defaultSession()
		}
		if _, _, err := Slot(d.Session, d.Start, d.End); err != nil {
			return nil, fmt.Errorf("%s: %w", d.Weekday, err)
		}
		byDay[d.Weekday] = d
	}

	var days []BookingDay
	if !p.Recurring {
		if !p.EndDate.IsZero() && p.EndDate != p.StartDate {
			return nil, fmt.Errorf("%w: a single booking covers one day; mark it recurring to span dates", ErrInvalidInput)
		}
		dp, ok := byDay[Weekday(p.StartDate)]
		if !ok {
			dp = p.defaultDay(Weekday(p.StartDate))
		}
		day, err := dayFor(p.StartDate, dp)
		if err != nil {
			return nil, err
		}
		return []BookingDay{day}, nil
	}

	if p.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: end date is required for recurring bookings", ErrInvalidInput)
	}
	if p.EndDate.Before(p.StartDate) {
		return nil, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidInput, p.EndDate, p.StartDate)
	}
	if p.EndDate.DaysSince(p.StartDate)+1 > MaxPatternSpanDays {
		return nil, fmt.Errorf("%w: bookings may span at most %d days", ErrInvalidInput, MaxPatternSpanDays)
	}

	if len(byDay) == 0 {
		for wd := time.Monday; wd <= time.Friday; wd++ {
			byDay[wd] = p.defaultDay(wd)
		}
	}

	for d := p.StartDate; !d.After(p.EndDate); d = d.AddDays(1) {
		dp, ok := byDay[Weekday(d)]
		if !ok {
			continue
		}
		day, err := dayFor(d, dp)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: pattern produces no booking days between %s and %s", ErrInvalidInput, p.StartDate, p.EndDate)
	}
	return days, nil
}

func (p BookingPattern) defaultSession() SessionType {
	if p.DefaultSession == "" {
		return SessionFullDay
	}
	return p.DefaultSession
}

func (p BookingPattern) defaultDay(wd time.Weekday) DayPattern {
	return DayPattern{Weekday: wd, Session: p.defaultSession(), Start: p.DefaultStart, End: p.DefaultEnd}
}

func dayFor(date civil.Date, dp DayPattern) (BookingDay, error) {
	start, end, err := Slot(dp.Session, dp.Start, dp.End)
	if err != nil {
		return BookingDay{}, err
	}
	return BookingDay{Date: date, Session: dp.Session, Start: start, End: end}, nil
}

// Unavailability is a slot the CRM reports as already taken or blocked.
type Unavailability struct {
	Date    civil.Date  `json:"date"`
	Session SessionType `json:"session"`
	Start   Clock       `json:"start,omitempty"`
	End     Clock       `json:"end,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// AvailabilityConflicts lists, ascending and without repeats, the requested
// dates that overlap an unavailable slot. Unavailable slots with no session or
// hours, or whose hours cannot be resolved, block the whole day.
func AvailabilityConflicts(days []BookingDay, unavailable []Unavailability) []civil.Date {
	blocked := make(map[civil.Date][]BookingDay, len(unavailable))
	for _, u := range unavailable {
		start, end := Clock(0), Clock(24*60)
		if u.Session != "" || u.Start != 0 || u.End != 0 {
			if s, e, err := Slot(u.Session, u.Start, u.End); err == nil {
				start, end = s, e
			}
		}
		blocked[u.Date] = append(blocked[u.Date], BookingDay{Date: u.Date, Start: start, End: end})
	}

	seen := make(map[civil.Date]bool)
	var out []civil.Date
	for _, d := range days {
		for _, b := range blocked[d.Date] {
			if d.overlaps(b) && !seen[d.Date] {
				seen[d.Date] = true
				out = append(out, d.Date)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
