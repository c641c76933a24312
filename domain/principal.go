package domain

import "context"

type Role string

const (
	RoleClient    Role = "client"
	RoleCandidate Role = "candidate"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleCandidate
}

// Principal is the signed-in user as known to the CRM.
type Principal struct {
	UserID      string
	Role        Role
	Name        string
	Email       string
	ClientID    string
	CandidateID string
	CRMToken    string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// MustPrincipal returns ErrUnauthorized when the context carries no principal.
func MustPrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok || p.UserID == "" {
		return Principal{}, ErrUnauthorized
	}
	return p, nil
}
