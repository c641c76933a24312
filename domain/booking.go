package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type Booking struct {
	ID            string        `json:"id"`
	Reference     string        `json:"reference"`
	ClientID      string        `json:"client_id"`
	ClientName    string        `json:"client_name"`
	CandidateID   string        `json:"candidate_id"`
	CandidateName string        `json:"candidate_name"`
	JobID         string        `json:"job_id,omitempty"`
	Status        BookingStatus `json:"status"`
	Days          []BookingDay  `json:"days"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (b Booking) FirstDay() civil.Date {
	var first civil.Date
	for _, d := range b.Days {
		if first.IsZero() || d.Date.Before(first) {
			first = d.Date
		}
	}
	return first
}

func (b Booking) LastDay() civil.Date {
	var last civil.Date
	for _, d := range b.Days {
		if d.Date.After(last) {
			last = d.Date
		}
	}
	return last
}

// Involves reports whether the principal is a party to the booking.
func (b Booking) Involves(p Principal) bool {
	switch p.Role {
	case RoleClient:
		return p.ClientID != "" && p.ClientID == b.ClientID
	case RoleCandidate:
		return p.CandidateID != "" && p.CandidateID == b.CandidateID
	}
	return false
}

// CheckCancellable rejects bookings that are finished, already cancelled or
// have started before today.
func (b Booking) CheckCancellable(today civil.Date) error {
	switch b.Status {
	case BookingPending, BookingConfirmed:
	default:
		return fmt.Errorf("%w: a %s booking cannot be cancelled", ErrConflict, b.Status)
	}
	if first := b.FirstDay(); !first.IsZero() && first.Before(today) {
		return fmt.Errorf("%w: booking started on %s", ErrConflict, first)
	}
	return nil
}

type BookingQuery struct {
	From        civil.Date
	To          civil.Date
	ClientID    string
	CandidateID string
	Status      BookingStatus
}
