package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"staffable/domain"
)

// CRMClient talks to the recruitment CRM REST API on behalf of the signed-in
// user found in the request context.
type CRMClient struct {
	baseURL string
	client  *http.Client
	metrics *Metrics
}

func NewCRMClient(baseURL string, timeout time.Duration, metrics *Metrics) *CRMClient {
	return &CRMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		metrics: metrics,
	}
}

// APIError is a non-2xx reply from the CRM.
type APIError struct {
	Operation string
	Status    int
	Code      string
	Message   string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("crm %s: %d %s", e.Operation, e.Status, msg)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return domain.ErrForbidden
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Status == http.StatusConflict:
		return domain.ErrConflict
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	default:
		return domain.ErrUpstream
	}
}

type listMeta struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  *listMeta       `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

func (c *CRMClient) do(ctx context.Context, r request, out any) (*listMeta, error) {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("crm %s: marshal request: %w", r.op, err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("crm %s: build request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p, ok := domain.PrincipalFrom(ctx); ok && p.CRMToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.CRMToken)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.ObserveCRM(r.op, 0, time.Since(start))
		return nil, fmt.Errorf("crm %s: %w: %w", r.op, domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveCRM(r.op, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("crm %s: read response: %w", r.op, err)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("crm %s: %w: decode response: %w", r.op, domain.ErrUpstream, err)
		}
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Operation: r.op, Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("crm %s: %w: decode data: %w", r.op, domain.ErrUpstream, err)
		}
	}
	return env.Meta, nil
}

type crmUser struct {
	ID          string      `json:"id"`
	Role        domain.Role `json:"role"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	ClientID    string      `json:"client_id"`
	CandidateID string      `json:"candidate_id"`
}

type authReply struct {
	Token string  `json:"token"`
	User  crmUser `json:"user"`
}

func (a authReply) principal() (domain.Principal, error) {
	if a.Token == "" || a.User.ID == "" {
		return domain.Principal{}, fmt.Errorf("crm auth: %w: reply without token or user", domain.ErrUpstream)
	}
	if !a.User.Role.Valid() {
		return domain.Principal{}, fmt.Errorf("crm auth: %w: role %q is not supported", domain.ErrForbidden, a.User.Role)
	}
	return domain.Principal{
		UserID:      a.User.ID,
		Role:        a.User.Role,
		Name:        a.User.Name,
		Email:       a.User.Email,
		ClientID:    a.User.ClientID,
		CandidateID: a.User.CandidateID,
		CRMToken:    a.Token,
	}, nil
}

// Login exchanges credentials for a CRM token.
func (c *CRMClient) Login(ctx context.Context, email, password string) (domain.Principal, error) {
	var reply authReply
	_, err := c.do(ctx, request{
		op: "login", method: http.MethodPost, path: "/auth/login",
		body: map[string]string{"email": email, "password": password},
	}, &reply)
	if err != nil {
		return domain.Principal{}, err
	}
	return reply.principal()
}

// AcceptInvitation sets the password for an invited user and signs them in.
func (c *CRMClient) AcceptInvitation(ctx context.Context, token, password string) (domain.Principal, error) {
	var reply authReply
	_, err := c.do(ctx, request{
		op: "accept_invitation", method: http.MethodPost, path: "/auth/invitations/accept",
		body: map[string]string{"token": token, "password": password},
	}, &reply)
	if err != nil {
		return domain.Principal{}, err
	}
	return reply.principal()
}

func escape(id string) string {
	return url.PathEscape(id)
}

var errMissingID = errors.New("missing id")

func requireID(op, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("crm %s: %w: %w", op, domain.ErrInvalidInput, errMissingID)
	}
	return nil
}
