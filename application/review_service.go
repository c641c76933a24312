package application

import (
	"context"
	"fmt"
	"strings"

	"staffable/domain"
)

type ReviewService struct {
	crm ReviewGateway
}

func NewReviewService(crm ReviewGateway) *ReviewService {
	return &ReviewService{crm: crm}
}

// Submit posts a school's review of a completed booking.
func (s *ReviewService) Submit(ctx context.Context, bookingID string, rating int, comment string) (domain.Review, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return domain.Review{}, err
	}
	if principal.Role != domain.RoleClient {
		return domain.Review{}, fmt.Errorf("%w: only schools can review bookings", domain.ErrForbidden)
	}

	r := domain.Review{BookingID: strings.TrimSpace(bookingID), Rating: rating, Comment: strings.TrimSpace(comment)}
	if err := r.Validate(); err != nil {
		return domain.Review{}, err
	}

	b, err := s.crm.GetBooking(ctx, r.BookingID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("get booking: %w", err)
	}
	if !b.Involves(principal) {
		return domain.Review{}, domain.ErrNotFound
	}
	if b.Status != domain.BookingCompleted {
		return domain.Review{}, fmt.Errorf("%w: only completed bookings can be reviewed", domain.ErrConflict)
	}

	r.ClientID = b.ClientID
	r.CandidateID = b.CandidateID
	out, err := s.crm.CreateReview(ctx, r)
	if err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}
	return out, nil
}
