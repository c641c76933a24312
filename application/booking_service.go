package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"staffable/domain"
)

type BookingService struct {
	crm BookingGateway
	now func() time.Time
}

func NewBookingService(crm BookingGateway) *BookingService {
	return &BookingService{crm: crm, now: time.Now}
}

type BookingRequest struct {
	CandidateID string                `json:"candidate_id"`
	JobID       string                `json:"job_id"`
	Pattern     domain.BookingPattern `json:"pattern"`
	Notes       string                `json:"notes"`
}

// Preview expands a pattern without contacting the CRM.
func (s *BookingService) Preview(p domain.BookingPattern) ([]domain.BookingDay, error) {
	return p.Expand()
}

// Create books a candidate for every day of the pattern. Days the candidate
// is already unavailable are rejected as a conflict.
func (s *BookingService) Create(ctx context.Context, req BookingRequest) (domain.Booking, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return domain.Booking{}, err
	}
	if principal.Role != domain.RoleClient {
		return domain.Booking{}, fmt.Errorf("%w: only schools can make bookings", domain.ErrForbidden)
	}
	req.CandidateID = strings.TrimSpace(req.CandidateID)
	if req.CandidateID == "" {
		return domain.Booking{}, fmt.Errorf("%w: candidate is required", domain.ErrInvalidInput)
	}

	days, err := req.Pattern.Expand()
	if err != nil {
		return domain.Booking{}, err
	}
	if first := days[0].Date; first.Before(today(s.now)) {
		return domain.Booking{}, fmt.Errorf("%w: cannot book %s, it is in the past", domain.ErrInvalidInput, first)
	}

	unavailable, err := s.crm.CandidateAvailability(ctx, req.CandidateID, days[0].Date, days[len(days)-1].Date)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("check availability: %w", err)
	}
	if clashes := domain.AvailabilityConflicts(days, unavailable); len(clashes) > 0 {
		dates := make([]string, len(clashes))
		for i, d := range clashes {
			dates[i] = d.String()
		}
		return domain.Booking{}, fmt.Errorf("%w: candidate is unavailable on %s", domain.ErrConflict, strings.Join(dates, ", "))
	}

	b, err := s.crm.CreateBooking(ctx, domain.Booking{
		ClientID:    principal.ClientID,
		CandidateID: req.CandidateID,
		JobID:       strings.TrimSpace(req.JobID),
		Days:        days,
		Notes:       strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return domain.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	UseLogger(ctx).WithField("booking", b.ID).WithField("days", len(days)).Info("booking created")
	return b, nil
}

func scopeBookings(p domain.Principal, q domain.BookingQuery) domain.BookingQuery {
	switch p.Role {
	case domain.RoleClient:
		q.ClientID = p.ClientID
	case domain.RoleCandidate:
		q.CandidateID = p.CandidateID
	}
	return q
}

// List returns the principal's bookings touching [from, to].
func (s *BookingService) List(ctx context.Context, from, to civil.Date, status domain.BookingStatus) ([]domain.Booking, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: %s is before %s", domain.ErrInvalidInput, to, from)
	}
	out, err := s.crm.ListBookings(ctx, scopeBookings(principal, domain.BookingQuery{From: from, To: to, Status: status}))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if out == nil {
		out = []domain.Booking{}
	}
	return out, nil
}

// Cancel cancels a pending or confirmed booking that has not started.
func (s *BookingService) Cancel(ctx context.Context, id, reason string) (domain.Booking, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return domain.Booking{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Booking{}, fmt.Errorf("%w: a reason is required to cancel", domain.ErrInvalidInput)
	}

	b, err := s.crm.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	if !b.Involves(principal) {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err := b.CheckCancellable(today(s.now)); err != nil {
		return domain.Booking{}, err
	}

	out, err := s.crm.CancelBooking(ctx, id, reason)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("cancel booking: %w", err)
	}
	UseLogger(ctx).WithField("booking", id).Info("booking cancelled")
	return out, nil
}

type Diary struct {
	From  civil.Date          `json:"from"`
	To    civil.Date          `json:"to"`
	Month time.Month          `json:"month,omitempty"`
	Year  int                 `json:"year,omitempty"`
	Days  []domain.DiaryDay   `json:"days"`
	Weeks [][]domain.DiaryDay `json:"weeks,omitempty"`
}

// DiaryMonth lays out the principal's bookings over the whole-week grid of a
// month. A zero year or month means the current month.
func (s *BookingService) DiaryMonth(ctx context.Context, year int, month time.Month) (Diary, error) {
	if year == 0 || month == 0 {
		t := today(s.now)
		year, month = t.Year, t.Month
	}
	if month < time.January || month > time.December {
		return Diary{}, fmt.Errorf("%w: month %d out of range", domain.ErrInvalidInput, month)
	}
	from, to := domain.MonthGrid(year, month)
	d, err := s.diary(ctx, from, to)
	if err != nil {
		return Diary{}, err
	}
	domain.MarkOutside(d.Days, month)
	d.Year, d.Month = year, month
	d.Weeks = domain.Weeks(d.Days)
	return d, nil
}

// DiaryRange lays out bookings day by day over [from, to].
func (s *BookingService) DiaryRange(ctx context.Context, from, to civil.Date) (Diary, error) {
	return s.diary(ctx, from, to)
}

func (s *BookingService) diary(ctx context.Context, from, to civil.Date) (Diary, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return Diary{}, err
	}
	if _, err := domain.DateRange(from, to); err != nil {
		return Diary{}, err
	}
	bookings, err := s.crm.ListBookings(ctx, scopeBookings(principal, domain.BookingQuery{From: from, To: to}))
	if err != nil {
		return Diary{}, fmt.Errorf("list bookings: %w", err)
	}
	days, err := domain.BuildDiary(from, to, bookings, principal.Role)
	if err != nil {
		return Diary{}, err
	}
	return Diary{From: from, To: to, Days: days}, nil
}
