package infrastructure

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"staffable/domain"
)

func setDate(q url.Values, key string, d civil.Date) {
	if !d.IsZero() {
		q.Set(key, d.String())
	}
}

func (c *CRMClient) ListCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.Candidate, int, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("per_page", strconv.Itoa(f.PageSize))
	if f.Search != "" {
		q.Set("q", f.Search)
	}
	if len(f.Subjects) > 0 {
		q.Set("subjects", strings.Join(f.Subjects, ","))
	}
	if len(f.KeyStages) > 0 {
		q.Set("key_stages", strings.Join(f.KeyStages, ","))
	}
	if f.Location != "" {
		q.Set("location", f.Location)
	}
	setDate(q, "available_on", f.AvailableOn)
	if f.QTSOnly {
		q.Set("qts", "true")
	}
	if f.MinRating > 0 {
		q.Set("min_rating", strconv.FormatFloat(f.MinRating, 'f', -1, 64))
	}
	if f.Sort != "" {
		q.Set("sort", string(f.Sort))
	}

	var out []domain.Candidate
	meta, err := c.do(ctx, request{op: "list_candidates", method: http.MethodGet, path: "/candidates", query: q}, &out)
	if err != nil {
		return nil, 0, err
	}
	total := len(out)
	if meta != nil {
		total = meta.Total
	}
	return out, total, nil
}

func (c *CRMClient) GetCandidate(ctx context.Context, id string) (domain.Candidate, error) {
	var out domain.Candidate
	if err := requireID("get_candidate", id); err != nil {
		return out, err
	}
	_, err := c.do(ctx, request{op: "get_candidate", method: http.MethodGet, path: "/candidates/" + escape(id)}, &out)
	return out, err
}

// CandidateAvailability returns the slots in [from, to] where the candidate
// cannot be booked.
func (c *CRMClient) CandidateAvailability(ctx context.Context, id string, from, to civil.Date) ([]domain.Unavailability, error) {
	if err := requireID("candidate_availability", id); err != nil {
		return nil, err
	}
	q := url.Values{}
	setDate(q, "from", from)
	setDate(q, "to", to)
	var out []domain.Unavailability
	_, err := c.do(ctx, request{
		op: "candidate_availability", method: http.MethodGet,
		path: "/candidates/" + escape(id) + "/unavailability", query: q,
	}, &out)
	return out, err
}

func (c *CRMClient) CandidateReviews(ctx context.Context, id string) ([]domain.Review, error) {
	if err := requireID("candidate_reviews", id); err != nil {
		return nil, err
	}
	var out []domain.Review
	_, err := c.do(ctx, request{op: "candidate_reviews", method: http.MethodGet, path: "/candidates/" + escape(id) + "/reviews"}, &out)
	return out, err
}

func (c *CRMClient) ListBookings(ctx context.Context, bq domain.BookingQuery) ([]domain.Booking, error) {
	q := url.Values{}
	setDate(q, "from", bq.From)
	setDate(q, "to", bq.To)
	if bq.ClientID != "" {
		q.Set("client_id", bq.ClientID)
	}
	if bq.CandidateID != "" {
		q.Set("candidate_id", bq.CandidateID)
	}
	if bq.Status != "" {
		q.Set("status", string(bq.Status))
	}
	var out []domain.Booking
	_, err := c.do(ctx, request{op: "list_bookings", method: http.MethodGet, path: "/bookings", query: q}, &out)
	return out, err
}

func (c *CRMClient) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	var out domain.Booking
	if err := requireID("get_booking", id); err != nil {
		return out, err
	}
	_, err := c.do(ctx, request{op: "get_booking", method: http.MethodGet, path: "/bookings/" + escape(id)}, &out)
	return out, err
}

type createBookingBody struct {
	ClientID    string              `json:"client_id"`
	CandidateID string              `json:"candidate_id"`
	JobID       string              `json:"job_id,omitempty"`
	Days        []domain.BookingDay `json:"days"`
	Notes       string              `json:"notes,omitempty"`
}

func (c *CRMClient) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	var out domain.Booking
	_, err := c.do(ctx, request{
		op: "create_booking", method: http.MethodPost, path: "/bookings",
		body: createBookingBody{
			ClientID:    b.ClientID,
			CandidateID: b.CandidateID,
			JobID:       b.JobID,
			Days:        b.Days,
			Notes:       b.Notes,
		},
	}, &out)
	return out, err
}

func (c *CRMClient) CancelBooking(ctx context.Context, id, reason string) (domain.Booking, error) {
	var out domain.Booking
	if err := requireID("cancel_booking", id); err != nil {
		return out, err
	}
	_, err := c.do(ctx, request{
		op: "cancel_booking", method: http.MethodPost, path: "/bookings/" + escape(id) + "/cancel",
		body: map[string]string{"reason": reason},
	}, &out)
	return out, err
}

func (c *CRMClient) ListJobs(ctx context.Context, status domain.JobStatus) ([]domain.Job, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	var out []domain.Job
	_, err := c.do(ctx, request{op: "list_jobs", method: http.MethodGet, path: "/jobs", query: q}, &out)
	return out, err
}

func (c *CRMClient) GetJob(ctx context.Context, id string) (domain.Job, error) {
	var out domain.Job
	if err := requireID("get_job", id); err != nil {
		return out, err
	}
	_, err := c.do(ctx, request{op: "get_job", method: http.MethodGet, path: "/jobs/" + escape(id)}, &out)
	return out, err
}

func (c *CRMClient) ListApplications(ctx context.Context, jobID string) ([]domain.Application, error) {
	if err := requireID("list_applications", jobID); err != nil {
		return nil, err
	}
	var out []domain.Application
	_, err := c.do(ctx, request{op: "list_applications", method: http.MethodGet, path: "/jobs/" + escape(jobID) + "/applications"}, &out)
	return out, err
}

func (c *CRMClient) GetApplication(ctx context.Context, id string) (domain.Application, error) {
	var out domain.Application
	if err := requireID("get_application", id); err != nil {
		return out, err
	}
	_, err := c.do(ctx, request{op: "get_application", method: http.MethodGet, path: "/applications/" + escape(id)}, &out)
	return out, err
}

func (c *CRMClient) UpdateApplicationStage(ctx context.Context, id string, stage domain.Stage) (domain.Application, error) {
	var out domain.Application
	if err := requireID("update_application", id); err != nil {
		return out, err
	}
	_, err := c.do(ctx, request{
		op: "update_application", method: http.MethodPatch, path: "/applications/" + escape(id),
		body: map[string]domain.Stage{"stage": stage},
	}, &out)
	return out, err
}

func (c *CRMClient) CreateReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	var out domain.Review
	_, err := c.do(ctx, request{op: "create_review", method: http.MethodPost, path: "/reviews", body: r}, &out)
	return out, err
}

func (c *CRMClient) ListTimesheets(ctx context.Context, tq domain.TimesheetQuery) ([]domain.Timesheet, error) {
	q := url.Values{}
	if tq.ClientID != "" {
		q.Set("client_id", tq.ClientID)
	}
	if tq.CandidateID != "" {
		q.Set("candidate_id", tq.CandidateID)
	}
	if tq.Status != "" {
		q.Set("status", string(tq.Status))
	}
	setDate(q, "from", tq.From)
	setDate(q, "to", tq.To)
	var out []domain.Timesheet
	_, err := c.do(ctx, request{op: "list_timesheets", method: http.MethodGet, path: "/timesheets", query: q}, &out)
	return out, err
}

func (c *CRMClient) GetTimesheet(ctx context.Context, id string) (domain.Timesheet, error) {
	var out domain.Timesheet
	if err := requireID("get_timesheet", id); err != nil {
		return out, err
	}
	_, err := c.do(ctx, request{op: "get_timesheet", method: http.MethodGet, path: "/timesheets/" + escape(id)}, &out)
	return out, err
}

func (c *CRMClient) SubmitTimesheet(ctx context.Context, t domain.Timesheet) (domain.Timesheet, error) {
	var out domain.Timesheet
	_, err := c.do(ctx, request{op: "submit_timesheet", method: http.MethodPost, path: "/timesheets", body: t}, &out)
	return out, err
}

func (c *CRMClient) ApproveTimesheet(ctx context.Context, id string) (domain.Timesheet, error) {
	var out domain.Timesheet
	if err := requireID("approve_timesheet", id); err != nil {
		return out, err
	}
	_, err := c.do(ctx, request{op: "approve_timesheet", method: http.MethodPost, path: "/timesheets/" + escape(id) + "/approve"}, &out)
	return out, err
}

func (c *CRMClient) RejectTimesheet(ctx context.Context, id, reason string) (domain.Timesheet, error) {
	var out domain.Timesheet
	if err := requireID("reject_timesheet", id); err != nil {
		return out, err
	}
	_, err := c.do(ctx, request{
		op: "reject_timesheet", method: http.MethodPost, path: "/timesheets/" + escape(id) + "/reject",
		body: map[string]string{"reason": reason},
	}, &out)
	return out, err
}
