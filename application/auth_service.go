package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"staffable/domain"
)

const MinPasswordLength = 8

type AuthService struct {
	crm      Authenticator
	sessions SessionStore
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthService(crm Authenticator, sessions SessionStore, ttl time.Duration) *AuthService {
	return &AuthService{crm: crm, sessions: sessions, ttl: ttl, now: time.Now}
}

// Login signs in against the CRM and opens a local session for the cookie.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.Session{}, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	p, err := s.crm.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
		}
		return domain.Session{}, err
	}
	return s.open(ctx, p)
}

// AcceptInvitation sets the invited user's password and signs them in.
func (s *AuthService) AcceptInvitation(ctx context.Context, token, password, confirm string) (domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, fmt.Errorf("%w: invitation token is required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return domain.Session{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, MinPasswordLength)
	}
	if password != confirm {
		return domain.Session{}, fmt.Errorf("%w: passwords do not match", domain.ErrInvalidInput)
	}

	p, err := s.crm.AcceptInvitation(ctx, token, password)
	if err != nil {
		return domain.Session{}, err
	}
	return s.open(ctx, p)
}

func (s *AuthService) open(ctx context.Context, p domain.Principal) (domain.Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		Role:        p.Role,
		Name:        p.Name,
		Email:       p.Email,
		ClientID:    p.ClientID,
		CandidateID: p.CandidateID,
		CRMToken:    p.CRMToken,
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}
	if err := s.sessions.Create(ctx, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	UseLogger(ctx).WithFields(logrus.Fields{"user": p.UserID, "role": p.Role}).Info("signed in")
	return sess, nil
}

// Resolve returns the live session for a cookie value.
func (s *AuthService) Resolve(ctx context.Context, id string) (domain.Session, error) {
	if id == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, id); err != nil {
			UseLogger(ctx).WithError(err).Warn("delete expired session")
		}
		return domain.Session{}, fmt.Errorf("%w: session expired", domain.ErrUnauthorized)
	}
	return sess, nil
}

// Logout removes the session. Unknown ids are not an error.
func (s *AuthService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.sessions.Delete(ctx, id)
}

// PurgeExpired deletes every expired session.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}
