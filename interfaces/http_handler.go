package interfaces

import (
	"context"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"staffable/application"
	"staffable/domain"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (domain.Session, error)
	AcceptInvitation(ctx context.Context, token, password, confirm string) (domain.Session, error)
	Resolve(ctx context.Context, id string) (domain.Session, error)
	Logout(ctx context.Context, id string) error
}

type CandidateService interface {
	Browse(ctx context.Context, f domain.CandidateFilter) (domain.Page[domain.Candidate], error)
	Profile(ctx context.Context, id string, from, to civil.Date) (application.CandidateProfile, error)
}

type BookingService interface {
	Preview(p domain.BookingPattern) ([]domain.BookingDay, error)
	Create(ctx context.Context, req application.BookingRequest) (domain.Booking, error)
	List(ctx context.Context, from, to civil.Date, status domain.BookingStatus) ([]domain.Booking, error)
	Cancel(ctx context.Context, id, reason string) (domain.Booking, error)
	DiaryMonth(ctx context.Context, year int, month time.Month) (application.Diary, error)
	DiaryRange(ctx context.Context, from, to civil.Date) (application.Diary, error)
}

type JobService interface {
	ListJobs(ctx context.Context, status domain.JobStatus) ([]domain.Job, error)
	Pipeline(ctx context.Context, jobID string) (domain.Pipeline, error)
	MoveApplication(ctx context.Context, id string, to domain.Stage) (domain.Application, error)
}

type ReviewService interface {
	Submit(ctx context.Context, bookingID string, rating int, comment string) (domain.Review, error)
}

type TimesheetService interface {
	List(ctx context.Context, status domain.TimesheetStatus, from, to civil.Date) ([]domain.Timesheet, error)
	Submit(ctx context.Context, t domain.Timesheet) (domain.Timesheet, error)
	Approve(ctx context.Context, id string) (domain.Timesheet, error)
	Reject(ctx context.Context, id, reason string) (domain.Timesheet, error)
	Export(ctx context.Context, from, to civil.Date) ([]byte, error)
}

type AssistantService interface {
	Chat(ctx context.Context, history []domain.ChatMessage) (domain.ChatMessage, error)
	Match(ctx context.Context, req application.MatchRequest) (application.MatchResult, error)
	DraftReview(ctx context.Context, bookingID string, rating int, notes string) (domain.Generation, error)
	SummarizeProfile(ctx context.Context, filename string, r io.Reader) (domain.Generation, error)
	Generation(ctx context.Context, id uint) (domain.Generation, error)
}

// Authorizer decides whether a role may call a route pattern.
type Authorizer interface {
	Authorize(role domain.Role, route, method string) error
}

type Services struct {
	Auth       AuthService
	Candidates CandidateService
	Bookings   BookingService
	Jobs       JobService
	Reviews    ReviewService
	Timesheets TimesheetService
	Assistant  AssistantService
	Authorizer Authorizer
}

type Options struct {
	CookieName    string
	CookieSecure  bool
	MaxUploadSize int64
	// AssistantLimit guards the AI routes; nil disables rate limiting.
	AssistantLimit gin.HandlerFunc
	MetricsPath    string
	Metrics        http.Handler
}

type HTTPHandler struct {
	auth       AuthService
	candidates CandidateService
	bookings   BookingService
	jobs       JobService
	reviews    ReviewService
	timesheets TimesheetService
	assistant  AssistantService
	authz      Authorizer
	opts       Options
}

// NewRouter builds the gin engine with request logging, panic recovery and
// every route registered.
func NewRouter(log *logrus.Logger, requestIDHeader string, s Services, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(log, requestIDHeader), Recovery())
	router.NoRoute(func(c *gin.Context) { respondError(c, domain.ErrNotFound) })
	NewHTTPHandler(router, s, opts)
	return router
}

func NewHTTPHandler(router *gin.Engine, s Services, opts Options) *HTTPHandler {
	h := &HTTPHandler{
		auth:       s.Auth,
		candidates: s.Candidates,
		bookings:   s.Bookings,
		jobs:       s.Jobs,
		reviews:    s.Reviews,
		timesheets: s.Timesheets,
		assistant:  s.Assistant,
		authz:      s.Authorizer,
		opts:       opts,
	}

	router.GET("/health", h.Health)
	if opts.Metrics != nil && opts.MetricsPath != "" {
		router.GET(opts.MetricsPath, gin.WrapH(opts.Metrics))
	}

	api := router.Group("/api")
	api.POST("/auth/login", h.Login)
	api.POST("/auth/invitations/accept", h.AcceptInvitation)

	private := api.Group("", h.requireSession, h.authorize)
	private.POST("/auth/logout", h.Logout)
	private.GET("/me", h.Me)

	private.GET("/candidates", h.ListCandidates)
	private.GET("/candidates/:id", h.GetCandidate)

	private.POST("/bookings/preview", h.PreviewBooking)
	private.POST("/bookings", h.CreateBooking)
	private.GET("/bookings", h.ListBookings)
	private.POST("/bookings/:id/cancel", h.CancelBooking)
	private.GET("/diary", h.Diary)

	private.GET("/jobs", h.ListJobs)
	private.GET("/jobs/:id/pipeline", h.Pipeline)
	private.PATCH("/applications/:id", h.MoveApplication)
	private.POST("/reviews", h.SubmitReview)

	private.GET("/timesheets", h.ListTimesheets)
	private.POST("/timesheets", h.SubmitTimesheet)
	private.GET("/timesheets/export", h.ExportTimesheets)
	private.POST("/timesheets/:id/approve", h.ApproveTimesheet)
	private.POST("/timesheets/:id/reject", h.RejectTimesheet)

	assistant := private.Group("/assistant")
	private.GET("/assistant/generations/:id", h.GetGeneration)
	if opts.AssistantLimit != nil {
		assistant.Use(opts.AssistantLimit)
	}
	assistant.POST("/chat", h.Chat)
	assistant.POST("/match", h.Match)
	assistant.POST("/reviews/draft", h.DraftReview)
	assistant.POST("/profile-summary", h.SummarizeProfile)

	return h
}

func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bindJSON decodes the body, answering 400 on malformed input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, invalid("malformed request body: %v", err))
		return false
	}
	return true
}
