package application

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"staffable/domain"
)

// The interfaces below are the narrow slices of the CRM client, the stores
// and the AI stack each service depends on.

type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.Principal, error)
	AcceptInvitation(ctx context.Context, token, password string) (domain.Principal, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type CandidateDirectory interface {
	ListCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.Candidate, int, error)
	GetCandidate(ctx context.Context, id string) (domain.Candidate, error)
	CandidateAvailability(ctx context.Context, id string, from, to civil.Date) ([]domain.Unavailability, error)
	CandidateReviews(ctx context.Context, id string) ([]domain.Review, error)
}

type BookingGateway interface {
	CandidateAvailability(ctx context.Context, id string, from, to civil.Date) ([]domain.Unavailability, error)
	ListBookings(ctx context.Context, q domain.BookingQuery) ([]domain.Booking, error)
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	CancelBooking(ctx context.Context, id, reason string) (domain.Booking, error)
}

type JobGateway interface {
	ListJobs(ctx context.Context, status domain.JobStatus) ([]domain.Job, error)
	GetJob(ctx context.Context, id string) (domain.Job, error)
	ListApplications(ctx context.Context, jobID string) ([]domain.Application, error)
	GetApplication(ctx context.Context, id string) (domain.Application, error)
	UpdateApplicationStage(ctx context.Context, id string, stage domain.Stage) (domain.Application, error)
}

type ReviewGateway interface {
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	CreateReview(ctx context.Context, r domain.Review) (domain.Review, error)
}

type TimesheetGateway interface {
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	ListTimesheets(ctx context.Context, q domain.TimesheetQuery) ([]domain.Timesheet, error)
	GetTimesheet(ctx context.Context, id string) (domain.Timesheet, error)
	SubmitTimesheet(ctx context.Context, t domain.Timesheet) (domain.Timesheet, error)
	ApproveTimesheet(ctx context.Context, id string) (domain.Timesheet, error)
	RejectTimesheet(ctx context.Context, id, reason string) (domain.Timesheet, error)
}

type GenerationStore interface {
	Create(ctx context.Context, g *domain.Generation) error
	Get(ctx context.Context, id uint) (domain.Generation, error)
	MarkProcessing(ctx context.Context, id uint) error
	Complete(ctx context.Context, id uint, output string) error
	Fail(ctx context.Context, id uint, reason string) error
}

type JobPublisher interface {
	PublishJob(ctx context.Context, job domain.GenerationJob) error
}

type PromptRenderer interface {
	Render(name string, data any) (domain.Prompt, error)
}

type GenerationRecorder interface {
	ObserveGeneration(kind, status string)
}

// WorkbookWriter renders timesheets as a spreadsheet.
type WorkbookWriter func(sheets []domain.Timesheet) ([]byte, error)

// today is the current UTC calendar date.
func today(now func() time.Time) civil.Date {
	return civil.DateOf(now().UTC())
}
