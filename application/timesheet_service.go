package application

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"staffable/domain"
)

type TimesheetService struct {
	crm      TimesheetGateway
	workbook WorkbookWriter
}

func NewTimesheetService(crm TimesheetGateway, workbook WorkbookWriter) *TimesheetService {
	return &TimesheetService{crm: crm, workbook: workbook}
}

func scopeTimesheets(p domain.Principal, q domain.TimesheetQuery) domain.TimesheetQuery {
	switch p.Role {
	case domain.RoleClient:
		q.ClientID = p.ClientID
	case domain.RoleCandidate:
		q.CandidateID = p.CandidateID
	}
	return q
}

func (s *TimesheetService) List(ctx context.Context, status domain.TimesheetStatus, from, to civil.Date) ([]domain.Timesheet, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.crm.ListTimesheets(ctx, scopeTimesheets(principal, domain.TimesheetQuery{Status: status, From: from, To: to}))
	if err != nil {
		return nil, fmt.Errorf("list timesheets: %w", err)
	}
	if out == nil {
		out = []domain.Timesheet{}
	}
	return out, nil
}

// Submit sends a candidate's week for approval.
func (s *TimesheetService) Submit(ctx context.Context, t domain.Timesheet) (domain.Timesheet, error) {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return domain.Timesheet{}, err
	}
	if principal.Role != domain.RoleCandidate {
		return domain.Timesheet{}, fmt.Errorf("%w: only candidates submit timesheets", domain.ErrForbidden)
	}
	if err := t.Validate(); err != nil {
		return domain.Timesheet{}, err
	}

	b, err := s.crm.GetBooking(ctx, t.BookingID)
	if err != nil {
		return domain.Timesheet{}, fmt.Errorf("get booking: %w", err)
	}
	if !b.Involves(principal) {
		return domain.Timesheet{}, domain.ErrNotFound
	}
	if b.Status == domain.BookingCancelled {
		return domain.Timesheet{}, fmt.Errorf("%w: booking was cancelled", domain.ErrConflict)
	}

	t.ID = ""
	t.CandidateID = principal.CandidateID
	t.ClientID = b.ClientID
	t.Status = domain.TimesheetSubmitted
	out, err := s.crm.SubmitTimesheet(ctx, t)
	if err != nil {
		return domain.Timesheet{}, fmt.Errorf("submit timesheet: %w", err)
	}
	return out, nil
}

// submittedFor loads a timesheet the client may act on.
func (s *TimesheetService) submittedFor(ctx context.Context, id string) error {
	principal, err := domain.MustPrincipal(ctx)
	if err != nil {
		return err
	}
	if principal.Role != domain.RoleClient {
		return fmt.Errorf("%w: only schools approve timesheets", domain.ErrForbidden)
	}
	t, err := s.crm.GetTimesheet(ctx, id)
	if err != nil {
		return fmt.Errorf("get timesheet: %w", err)
	}
	if t.ClientID != principal.ClientID {
		return domain.ErrNotFound
	}
	if t.Status != domain.TimesheetSubmitted {
		return fmt.Errorf("%w: timesheet is %s", domain.ErrConflict, t.Status)
	}
	return nil
}

func (s *TimesheetService) Approve(ctx context.Context, id string) (domain.Timesheet, error) {
	if err := s.submittedFor(ctx, id); err != nil {
		return domain.Timesheet{}, err
	}
	out, err := s.crm.ApproveTimesheet(ctx, id)
	if err != nil {
		return domain.Timesheet{}, fmt.Errorf("approve timesheet: %w", err)
	}
	return out, nil
}

func (s *TimesheetService) Reject(ctx context.Context, id, reason string) (domain.Timesheet, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Timesheet{}, fmt.Errorf("%w: a reason is required to reject", domain.ErrInvalidInput)
	}
	if err := s.submittedFor(ctx, id); err != nil {
		return domain.Timesheet{}, err
	}
	out, err := s.crm.RejectTimesheet(ctx, id, reason)
	if err != nil {
		return domain.Timesheet{}, fmt.Errorf("reject timesheet: %w", err)
	}
	return out, nil
}

// Export renders the principal's timesheets for weeks starting in [from, to]
// as a spreadsheet.
func (s *TimesheetService) Export(ctx context.Context, from, to civil.Date) ([]byte, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: %s is before %s", domain.ErrInvalidInput, to, from)
	}
	sheets, err := s.List(ctx, "", from, to)
	if err != nil {
		return nil, err
	}
	return s.workbook(sheets)
}
