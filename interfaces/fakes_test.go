package interfaces

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"staffable/application"
	"staffable/domain"
	"staffable/infrastructure"
)

const cookieName = "staffable_sid"

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var (
	clientSession = domain.Session{
		ID: "sid-client", UserID: "u-client", Role: domain.RoleClient, Name: "Hill Primary",
		Email: "office@hill.sch.uk", ClientID: "cl1", CRMToken: "crm-secret-1",
	}
	candidateSession = domain.Session{
		ID: "sid-cand", UserID: "u-cand", Role: domain.RoleCandidate, Name: "Ada Lovelace",
		Email: "ada@example.com", CandidateID: "c1", CRMToken: "crm-secret-2",
	}
)

type fakeAuth struct {
	sessions  map[string]domain.Session
	loginErr  error
	email     string
	loggedOut []string
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (domain.Session, error) {
	f.email = email
	if f.loginErr != nil {
		return domain.Session{}, f.loginErr
	}
	s := clientSession
	s.ExpiresAt = time.Now().Add(time.Hour)
	return s, nil
}

func (f *fakeAuth) AcceptInvitation(_ context.Context, _, password, confirm string) (domain.Session, error) {
	if password != confirm {
		return domain.Session{}, domain.ErrInvalidInput
	}
	s := candidateSession
	s.ExpiresAt = time.Now().Add(time.Hour)
	return s, nil
}

func (f *fakeAuth) Resolve(_ context.Context, id string) (domain.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrUnauthorized
	}
	return s, nil
}

func (f *fakeAuth) Logout(_ context.Context, id string) error {
	f.loggedOut = append(f.loggedOut, id)
	return nil
}

type fakeCandidates struct {
	filter    domain.CandidateFilter
	profileID string
	from, to  civil.Date
	err       error
}

func (f *fakeCandidates) Browse(_ context.Context, filter domain.CandidateFilter) (domain.Page[domain.Candidate], error) {
	f.filter = filter
	return domain.NewPage([]domain.Candidate{{ID: "c1", FirstName: "Ada"}}, 1, 12, 1), f.err
}

func (f *fakeCandidates) Profile(_ context.Context, id string, from, to civil.Date) (application.CandidateProfile, error) {
	f.profileID, f.from, f.to = id, from, to
	return application.CandidateProfile{Candidate: domain.Candidate{ID: id}}, f.err
}

type fakeBookings struct {
	created   application.BookingRequest
	cancelled string
	reason    string
	year      int
	month     time.Month
	from, to  civil.Date
	err       error
	panics    bool
}

func (f *fakeBookings) Preview(p domain.BookingPattern) ([]domain.BookingDay, error) {
	if f.panics {
		panic("preview exploded")
	}
	return p.Expand()
}

func (f *fakeBookings) Create(_ context.Context, req application.BookingRequest) (domain.Booking, error) {
	f.created = req
	return domain.Booking{ID: "b-new", CandidateID: req.CandidateID, Status: domain.BookingPending}, f.err
}

func (f *fakeBookings) List(_ context.Context, from, to civil.Date, _ domain.BookingStatus) ([]domain.Booking, error) {
	f.from, f.to = from, to
	return []domain.Booking{}, f.err
}

func (f *fakeBookings) Cancel(_ context.Context, id, reason string) (domain.Booking, error) {
	f.cancelled, f.reason = id, reason
	return domain.Booking{ID: id, Status: domain.BookingCancelled}, f.err
}

func (f *fakeBookings) DiaryMonth(_ context.Context, year int, month time.Month) (application.Diary, error) {
	f.year, f.month = year, month
	return application.Diary{Year: year, Month: month, Days: []domain.DiaryDay{}}, f.err
}

func (f *fakeBookings) DiaryRange(_ context.Context, from, to civil.Date) (application.Diary, error) {
	f.from, f.to = from, to
	return application.Diary{From: from, To: to, Days: []domain.DiaryDay{}}, f.err
}

type fakeJobs struct {
	moved domain.Stage
	err   error
}

func (f *fakeJobs) ListJobs(context.Context, domain.JobStatus) ([]domain.Job, error) {
	return []domain.Job{{ID: "j1", Title: "Maths teacher"}}, f.err
}

func (f *fakeJobs) Pipeline(_ context.Context, id string) (domain.Pipeline, error) {
	return domain.BuildPipeline(domain.Job{ID: id}, nil), f.err
}

func (f *fakeJobs) MoveApplication(_ context.Context, id string, to domain.Stage) (domain.Application, error) {
	f.moved = to
	return domain.Application{ID: id, Stage: to}, f.err
}

type fakeReviews struct {
	rating int
	err    error
}

func (f *fakeReviews) Submit(_ context.Context, bookingID string, rating int, comment string) (domain.Review, error) {
	f.rating = rating
	return domain.Review{ID: "r-new", BookingID: bookingID, Rating: rating, Comment: comment}, f.err
}

type fakeTimesheets struct {
	submitted domain.Timesheet
	rejected  string
	from, to  civil.Date
	err       error
}

func (f *fakeTimesheets) List(_ context.Context, _ domain.TimesheetStatus, from, to civil.Date) ([]domain.Timesheet, error) {
	f.from, f.to = from, to
	return []domain.Timesheet{}, f.err
}

func (f *fakeTimesheets) Submit(_ context.Context, t domain.Timesheet) (domain.Timesheet, error) {
	f.submitted = t
	t.ID = "ts-new"
	return t, f.err
}

func (f *fakeTimesheets) Approve(_ context.Context, id string) (domain.Timesheet, error) {
	return domain.Timesheet{ID: id, Status: domain.TimesheetApproved}, f.err
}

func (f *fakeTimesheets) Reject(_ context.Context, id, reason string) (domain.Timesheet, error) {
	f.rejected = reason
	return domain.Timesheet{ID: id, Status: domain.TimesheetRejected}, f.err
}

func (f *fakeTimesheets) Export(_ context.Context, from, to civil.Date) ([]byte, error) {
	f.from, f.to = from, to
	return []byte("PK-xlsx"), f.err
}

type fakeAssistant struct {
	history  []domain.ChatMessage
	match    application.MatchRequest
	filename string
	upload   string
	err      error
}

func (f *fakeAssistant) Chat(_ context.Context, history []domain.ChatMessage) (domain.ChatMessage, error) {
	f.history = history
	return domain.ChatMessage{Role: domain.ChatAssistant, Content: "Happy to help."}, f.err
}

func (f *fakeAssistant) Match(_ context.Context, req application.MatchRequest) (application.MatchResult, error) {
	f.match = req
	return application.MatchResult{Source: application.SourceHeuristic, Matches: []application.CandidateMatch{}}, f.err
}

func (f *fakeAssistant) DraftReview(_ context.Context, _ string, _ int, _ string) (domain.Generation, error) {
	return domain.Generation{ID: 7, Kind: domain.KindReviewDraft, Status: domain.GenerationQueued}, f.err
}

func (f *fakeAssistant) SummarizeProfile(_ context.Context, filename string, r io.Reader) (domain.Generation, error) {
	f.filename = filename
	b, err := io.ReadAll(r)
	if err != nil {
		return domain.Generation{}, err
	}
	f.upload = string(b)
	return domain.Generation{ID: 8, Kind: domain.KindProfileSummary, Status: domain.GenerationQueued}, f.err
}

func (f *fakeAssistant) Generation(_ context.Context, id uint) (domain.Generation, error) {
	if id != 7 {
		return domain.Generation{}, domain.ErrNotFound
	}
	return domain.Generation{ID: 7, Kind: domain.KindReviewDraft, Status: domain.GenerationCompleted, Output: "Ada was great."}, f.err
}

type harness struct {
	router     *gin.Engine
	auth       *fakeAuth
	candidates *fakeCandidates
	bookings   *fakeBookings
	jobs       *fakeJobs
	reviews    *fakeReviews
	timesheets *fakeTimesheets
	assistant  *fakeAssistant
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	authz, err := infrastructure.NewRoleAuthorizer(quietLogger())
	require.NoError(t, err)

	h := &harness{
		auth: &fakeAuth{sessions: map[string]domain.Session{
			clientSession.ID:    clientSession,
			candidateSession.ID: candidateSession,
		}},
		candidates: &fakeCandidates{},
		bookings:   &fakeBookings{},
		jobs:       &fakeJobs{},
		reviews:    &fakeReviews{},
		timesheets: &fakeTimesheets{},
		assistant:  &fakeAssistant{},
	}
	opts.CookieName = cookieName
	h.router = NewRouter(quietLogger(), "X-Request-ID", Services{
		Auth:       h.auth,
		Candidates: h.candidates,
		Bookings:   h.bookings,
		Jobs:       h.jobs,
		Reviews:    h.reviews,
		Timesheets: h.timesheets,
		Assistant:  h.assistant,
		Authorizer: authz,
	}, opts)
	return h
}

// do sends a request as the session sid ("" for anonymous).
func (h *harness) do(method, path, sid, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: sid})
	}
	return h.send(req)
}

func (h *harness) send(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}
