package auth

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const rbacModel = `[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.act == p.act
`

// Authorizer answers permission checks from an in-memory casbin policy.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

func NewAuthorizer(policy map[string][]string) (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	for role, perms := range policy {
		for _, perm := range perms {
			if _, err := enforcer.AddPolicy(roleSubject(role), perm); err != nil {
				return nil, fmt.Errorf("add policy %s/%s: %w", role, perm, err)
			}
		}
	}
	return &Authorizer{enforcer: enforcer}, nil
}

func NewDefaultAuthorizer() (*Authorizer, error) {
	return NewAuthorizer(RolePermissions)
}

func roleSubject(role string) string {
	return "role:" + role
}

// HasPermission reports whether role is granted permission.
func (a *Authorizer) HasPermission(_ context.Context, role, permission string) (bool, error) {
	if role == "" {
		return false, nil
	}
	return a.enforcer.Enforce(roleSubject(role), permission)
}
