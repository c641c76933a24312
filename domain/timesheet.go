package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type TimesheetStatus string

const (
	TimesheetDraft     TimesheetStatus = "draft"
	TimesheetSubmitted TimesheetStatus = "submitted"
	TimesheetApproved  TimesheetStatus = "approved"
	TimesheetRejected  TimesheetStatus = "rejected"
)

// HoursPerDay converts hourly entries into day equivalents.
var HoursPerDay = decimal.RequireFromString("6.5")

var maxEntryHours = decimal.NewFromInt(12)

type TimesheetEntry struct {
	Date    civil.Date      `json:"date"`
	Session SessionType     `json:"session"`
	Hours   decimal.Decimal `json:"hours"`
}

// Days is the day-equivalent of the entry used for pay.
func (e TimesheetEntry) Days() decimal.Decimal {
	switch e.Session {
	case SessionFullDay:
		return decimal.NewFromInt(1)
	case SessionAM, SessionPM:
		return decimal.NewFromFloat(0.5)
	default:
		return e.Hours.Div(HoursPerDay)
	}
}

type Timesheet struct {
	ID            string           `json:"id"`
	BookingID     string           `json:"booking_id"`
	ClientID      string           `json:"client_id"`
	ClientName    string           `json:"client_name,omitempty"`
	CandidateID   string           `json:"candidate_id"`
	CandidateName string           `json:"candidate_name"`
	WeekStart     civil.Date       `json:"week_start"`
	Entries       []TimesheetEntry `json:"entries"`
	DayRate       decimal.Decimal  `json:"day_rate"`
	Status        TimesheetStatus  `json:"status"`
	Note          string           `json:"note,omitempty"`
	SubmittedAt   *time.Time       `json:"submitted_at,omitempty"`
}

func (t Timesheet) TotalHours() decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.Entries {
		total = total.Add(e.Hours)
	}
	return total
}

func (t Timesheet) TotalDays() decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.Entries {
		total = total.Add(e.Days())
	}
	return total
}

func (t Timesheet) Amount() decimal.Decimal {
	return t.TotalDays().Mul(t.DayRate).Round(2)
}

// Validate checks entries sit inside the week, once per date, with sane hours.
func (t Timesheet) Validate() error {
	if t.BookingID == "" {
		return fmt.Errorf("%w: booking is required", ErrInvalidInput)
	}
	if t.WeekStart.IsZero() {
		return fmt.Errorf("%w: week start is required", ErrInvalidInput)
	}
	if len(t.Entries) == 0 {
		return fmt.Errorf("%w: timesheet has no entries", ErrInvalidInput)
	}
	weekEnd := t.WeekStart.AddDays(6)
	seen := make(map[civil.Date]bool, len(t.Entries))
	for _, e := range t.Entries {
		if e.Date.Before(t.WeekStart) || e.Date.After(weekEnd) {
			return fmt.Errorf("%w: %s is outside the week starting %s", ErrInvalidInput, e.Date, t.WeekStart)
		}
		if seen[e.Date] {
			return fmt.Errorf("%w: %s entered twice", ErrInvalidInput, e.Date)
		}
		seen[e.Date] = true
		if !e.Hours.IsPositive() || e.Hours.GreaterThan(maxEntryHours) {
			return fmt.Errorf("%w: hours on %s must be above 0 and at most %s", ErrInvalidInput, e.Date, maxEntryHours)
		}
		if _, _, ok := DefaultHours(e.Session); !ok && e.Session != SessionHourly {
			return fmt.Errorf("%w: unknown session %q on %s", ErrInvalidInput, e.Session, e.Date)
		}
	}
	return nil
}

type TimesheetQuery struct {
	ClientID    string
	CandidateID string
	Status      TimesheetStatus
	From        civil.Date
	To          civil.Date
}
