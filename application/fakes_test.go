package application

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"

	"staffable/domain"
)

var fixedNow = time.Date(2024, time.September, 4, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func asClient(ctx context.Context) context.Context {
	return domain.WithPrincipal(ctx, domain.Principal{
		UserID: "u-client", Role: domain.RoleClient, Name: "Hill Primary", ClientID: "cl1", CRMToken: "t1",
	})
}

func asCandidate(ctx context.Context) context.Context {
	return domain.WithPrincipal(ctx, domain.Principal{
		UserID: "u-cand", Role: domain.RoleCandidate, Name: "Ada Lovelace", CandidateID: "c1", CRMToken: "t2",
	})
}

// fakeCRM serves every CRM gateway from in-memory records.
type fakeCRM struct {
	mu sync.Mutex

	principal domain.Principal
	loginErr  error

	candidates   []domain.Candidate
	total        int
	listErr      error
	lastFilter   domain.CandidateFilter
	reviews      []domain.Review
	reviewsErr   error
	unavailable  []domain.Unavailability
	availErr     error
	availRange   [2]civil.Date
	bookings     map[string]domain.Booking
	lastQuery    domain.BookingQuery
	created      []domain.Booking
	cancelled    []string
	jobs         map[string]domain.Job
	applications map[string]domain.Application
	moved        map[string]domain.Stage
	newReviews   []domain.Review
	timesheets   map[string]domain.Timesheet
	tsQuery      domain.TimesheetQuery
	submitted    []domain.Timesheet
	approved     []string
	rejected     []string
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		bookings:     map[string]domain.Booking{},
		jobs:         map[string]domain.Job{},
		applications: map[string]domain.Application{},
		moved:        map[string]domain.Stage{},
		timesheets:   map[string]domain.Timesheet{},
	}
}

func (f *fakeCRM) Login(_ context.Context, _, _ string) (domain.Principal, error) {
	return f.principal, f.loginErr
}

func (f *fakeCRM) AcceptInvitation(_ context.Context, _, _ string) (domain.Principal, error) {
	return f.principal, f.loginErr
}

func (f *fakeCRM) ListCandidates(_ context.Context, filter domain.CandidateFilter) ([]domain.Candidate, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	total := f.total
	if total == 0 {
		total = len(f.candidates)
	}
	return f.candidates, total, f.listErr
}

func (f *fakeCRM) GetCandidate(_ context.Context, id string) (domain.Candidate, error) {
	for _, c := range f.candidates {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Candidate{}, domain.ErrNotFound
}

func (f *fakeCRM) CandidateAvailability(_ context.Context, _ string, from, to civil.Date) ([]domain.Unavailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availRange = [2]civil.Date{from, to}
	return f.unavailable, f.availErr
}

func (f *fakeCRM) CandidateReviews(context.Context, string) ([]domain.Review, error) {
	return f.reviews, f.reviewsErr
}

func (f *fakeCRM) ListBookings(_ context.Context, q domain.BookingQuery) ([]domain.Booking, error) {
	f.lastQuery = q
	var out []domain.Booking
	for _, b := range f.bookings {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeCRM) GetBooking(_ context.Context, id string) (domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeCRM) CreateBooking(_ context.Context, b domain.Booking) (domain.Booking, error) {
	b.ID = "b-new"
	b.Status = domain.BookingPending
	f.created = append(f.created, b)
	return b, nil
}

func (f *fakeCRM) CancelBooking(_ context.Context, id, _ string) (domain.Booking, error) {
	f.cancelled = append(f.cancelled, id)
	b := f.bookings[id]
	b.Status = domain.BookingCancelled
	return b, nil
}

func (f *fakeCRM) ListJobs(context.Context, domain.JobStatus) ([]domain.Job, error) {
	var out []domain.Job
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeCRM) GetJob(_ context.Context, id string) (domain.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return j, nil
}

func (f *fakeCRM) ListApplications(_ context.Context, jobID string) ([]domain.Application, error) {
	var out []domain.Application
	for _, a := range f.applications {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeCRM) GetApplication(_ context.Context, id string) (domain.Application, error) {
	a, ok := f.applications[id]
	if !ok {
		return domain.Application{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeCRM) UpdateApplicationStage(_ context.Context, id string, stage domain.Stage) (domain.Application, error) {
	f.moved[id] = stage
	a := f.applications[id]
	a.Stage = stage
	return a, nil
}

func (f *fakeCRM) CreateReview(_ context.Context, r domain.Review) (domain.Review, error) {
	r.ID = "r-new"
	f.newReviews = append(f.newReviews, r)
	return r, nil
}

func (f *fakeCRM) ListTimesheets(_ context.Context, q domain.TimesheetQuery) ([]domain.Timesheet, error) {
	f.tsQuery = q
	var out []domain.Timesheet
	for _, t := range f.timesheets {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeCRM) GetTimesheet(_ context.Context, id string) (domain.Timesheet, error) {
	t, ok := f.timesheets[id]
	if !ok {
		return domain.Timesheet{}, domain.ErrNotFound
	}
	return t, nil
}

func (f *fakeCRM) SubmitTimesheet(_ context.Context, t domain.Timesheet) (domain.Timesheet, error) {
	t.ID = "ts-new"
	f.submitted = append(f.submitted, t)
	return t, nil
}

func (f *fakeCRM) ApproveTimesheet(_ context.Context, id string) (domain.Timesheet, error) {
	f.approved = append(f.approved, id)
	t := f.timesheets[id]
	t.Status = domain.TimesheetApproved
	return t, nil
}

func (f *fakeCRM) RejectTimesheet(_ context.Context, id, _ string) (domain.Timesheet, error) {
	f.rejected = append(f.rejected, id)
	t := f.timesheets[id]
	t.Status = domain.TimesheetRejected
	return t, nil
}

type fakeSessions struct {
	items   map[string]domain.Session
	deleted []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{items: map[string]domain.Session{}}
}

func (s *fakeSessions) Create(_ context.Context, sess *domain.Session) error {
	s.items[sess.ID] = *sess
	return nil
}

func (s *fakeSessions) Get(_ context.Context, id string) (domain.Session, error) {
	sess, ok := s.items[id]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *fakeSessions) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.items, id)
	return nil
}

func (s *fakeSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, sess := range s.items {
		if sess.Expired(now) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

type fakeGenerations struct {
	mu     sync.Mutex
	nextID uint
	items  map[uint]domain.Generation
}

func newFakeGenerations() *fakeGenerations {
	return &fakeGenerations{items: map[uint]domain.Generation{}}
}

func (s *fakeGenerations) Create(_ context.Context, g *domain.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	g.ID = s.nextID
	s.items[g.ID] = *g
	return nil
}

func (s *fakeGenerations) Get(_ context.Context, id uint) (domain.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.items[id]
	if !ok {
		return domain.Generation{}, domain.ErrNotFound
	}
	return g, nil
}

func (s *fakeGenerations) set(ctx context.Context, id uint, fn func(*domain.Generation)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&g)
	s.items[id] = g
	return nil
}

func (s *fakeGenerations) MarkProcessing(ctx context.Context, id uint) error {
	return s.set(ctx, id, func(g *domain.Generation) { g.Status = domain.GenerationProcessing })
}

func (s *fakeGenerations) Complete(ctx context.Context, id uint, output string) error {
	return s.set(ctx, id, func(g *domain.Generation) { g.Status, g.Output = domain.GenerationCompleted, output })
}

func (s *fakeGenerations) Fail(ctx context.Context, id uint, reason string) error {
	return s.set(ctx, id, func(g *domain.Generation) { g.Status, g.Error = domain.GenerationFailed, reason })
}

type fakeQueue struct {
	jobs []domain.GenerationJob
	err  error
}

func (q *fakeQueue) PublishJob(_ context.Context, job domain.GenerationJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type fakeGenerator struct {
	reply   string
	err     error
	prompts []domain.Prompt
	during  func()
}

func (g *fakeGenerator) Generate(_ context.Context, p domain.Prompt) (string, error) {
	g.prompts = append(g.prompts, p)
	if g.during != nil {
		g.during()
	}
	return g.reply, g.err
}

type fakeRecorder struct {
	events []string
}

func (r *fakeRecorder) ObserveGeneration(kind, status string) {
	r.events = append(r.events, kind+":"+status)
}
