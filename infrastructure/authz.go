package infrastructure

import (
	"embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/sirupsen/logrus"

	"staffable/domain"
)

//go:embed authz/model.conf authz/policy.csv
var authzFiles embed.FS

// RoleAuthorizer decides which roles may call which API routes.
type RoleAuthorizer struct {
	enforcer *casbin.Enforcer
	log      *logrus.Entry
}

func NewRoleAuthorizer(log *logrus.Logger) (*RoleAuthorizer, error) {
	modelText, err := authzFiles.ReadFile("authz/model.conf")
	if err != nil {
		return nil, err
	}
	policy, err := authzFiles.ReadFile("authz/policy.csv")
	if err != nil {
		return nil, err
	}

	m, err := model.NewModelFromString(string(modelText))
	if err != nil {
		return nil, fmt.Errorf("authz: parse model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(string(policy)))
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}
	return &RoleAuthorizer{enforcer: enf, log: log.WithField("component", "authz")}, nil
}

// Authorize returns ErrForbidden unless role may perform method on route.
// route is the registered pattern, e.g. /api/bookings/:id/cancel.
func (a *RoleAuthorizer) Authorize(role domain.Role, route, method string) error {
	ok, err := a.enforcer.Enforce(string(role), route, method)
	if err != nil {
		return fmt.Errorf("authz: enforce failed: %w", err)
	}
	if !ok {
		a.log.WithFields(logrus.Fields{"role": role, "route": route, "method": method}).Warn("authz denied request")
		return fmt.Errorf("%w: %s may not %s %s", domain.ErrForbidden, role, method, route)
	}
	return nil
}
