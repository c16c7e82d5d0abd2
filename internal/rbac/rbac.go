// Package rbac decides which staff role may perform which action on which
// part of the admin.
package rbac

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

type Role string
type Action string
type Resource string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

const (
	ResourceContent   Resource = "content"
	ResourceTexts     Resource = "texts"
	ResourceInquiries Resource = "inquiries"
	ResourceAssets    Resource = "assets"
	ResourceUsers     Resource = "users"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// DefaultPolicy is loaded when no policy file is configured. Editors inherit
// viewer rights and admins inherit editor rights.
var DefaultPolicy = [][]string{
	{"viewer", "*", "read"},
	{"editor", "content", "write"},
	{"editor", "content", "delete"},
	{"editor", "texts", "write"},
	{"editor", "inquiries", "write"},
	{"editor", "assets", "write"},
	{"editor", "assets", "delete"},
	{"admin", "*", "*"},
}

var defaultGrouping = [][]string{
	{"editor", "viewer"},
	{"admin", "editor"},
}

type Enforcer struct {
	casbin *casbin.Enforcer
}

// New builds an enforcer. An empty policyPath loads DefaultPolicy; otherwise
// the CSV file at policyPath ("p, role, resource, action" and "g, role,
// parent" lines) replaces it.
func New(policyPath string) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}
	if strings.TrimSpace(policyPath) != "" {
		e, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
		if err != nil {
			return nil, fmt.Errorf("load rbac policy %s: %w", policyPath, err)
		}
		return &Enforcer{casbin: e}, nil
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}
	if _, err := e.AddPolicies(DefaultPolicy); err != nil {
		return nil, fmt.Errorf("rbac default policy: %w", err)
	}
	if _, err := e.AddGroupingPolicies(defaultGrouping); err != nil {
		return nil, fmt.Errorf("rbac default roles: %w", err)
	}
	return &Enforcer{casbin: e}, nil
}

// Can reports whether role may perform action on resource. Unknown roles and
// enforcement errors deny.
func (e *Enforcer) Can(role Role, resource Resource, action Action) bool {
	if _, ok := ParseRole(string(role)); !ok {
		return false
	}
	allowed, err := e.casbin.Enforce(string(role), string(resource), string(action))
	if err != nil {
		return false
	}
	return allowed
}

// ParseRole accepts the known roles case-insensitively.
func ParseRole(value string) (Role, bool) {
	switch role := Role(strings.ToLower(strings.TrimSpace(value))); role {
	case RoleViewer, RoleEditor, RoleAdmin:
		return role, true
	default:
		return "", false
	}
}

// Normalize maps unknown roles to viewer.
func Normalize(value string) Role {
	if role, ok := ParseRole(value); ok {
		return role
	}
	return RoleViewer
}
