package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxReviewLength = 2000

type Review struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"booking_id"`
	ClientID    string    `json:"client_id"`
	ClientName  string    `json:"client_name,omitempty"`
	CandidateID string    `json:"candidate_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r Review) Validate() error {
	if r.BookingID == "" {
		return fmt.Errorf("%w: booking is required", ErrInvalidInput)
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if utf8.RuneCountInString(strings.TrimSpace(r.Comment)) > MaxReviewLength {
		return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidInput, MaxReviewLength)
	}
	return nil
}
