// Package authz decides whether an identity may perform an action. The
// allow table is a Casbin RBAC policy over three roles; turning a deny into
// an unauthenticated or forbidden error is done here.
package authz

import (
	_ "embed"
	"fmt"

	"culturetech/internal/models"
	"culturetech/internal/observability"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var casbinModelContent string

// Roles, from least to most privileged. Each role inherits the one before it.
const (
	RoleAnonymous = "anonymous"
	RoleMember    = "member"
	RoleAdmin     = "admin"
)

// Action is a resource/verb pair checked against the policy.
type Action struct {
	Object string
	Verb   string
}

func (a Action) String() string { return a.Object + ":" + a.Verb }

var (
	ReadPost       = Action{"post", "read"}
	CreatePost     = Action{"post", "create"}
	ReadComment    = Action{"comment", "read"}
	CreateComment  = Action{"comment", "create"}
	CreateBookmark = Action{"bookmark", "create"}
	DeleteBookmark = Action{"bookmark", "delete"}
	ListBookmarks  = Action{"bookmark", "list"}
	ReadSelf       = Action{"user", "read"}
)

var defaultPolicy = [][]string{
	{RoleAnonymous, "post", "read"},
	{RoleAnonymous, "comment", "read"},
	{RoleMember, "comment", "create"},
	{RoleMember, "bookmark", "create"},
	{RoleMember, "bookmark", "delete"},
	{RoleMember, "bookmark", "list"},
	{RoleMember, "user", "read"},
	{RoleAdmin, "post", "create"},
}

var roleHierarchy = [][]string{
	{RoleMember, RoleAnonymous},
	{RoleAdmin, RoleMember},
}

// Identity is the resolved caller of a request. The zero value is anonymous.
type Identity struct {
	UserID  uint
	IsAdmin bool
}

// Anonymous is the identity of a request without a valid session.
var Anonymous = Identity{}

// IsAuthenticated reports whether the identity belongs to a user.
func (i Identity) IsAuthenticated() bool { return i.UserID != 0 }

// Role maps the identity onto a policy subject.
func (i Identity) Role() string {
	switch {
	case !i.IsAuthenticated():
		return RoleAnonymous
	case i.IsAdmin:
		return RoleAdmin
	default:
		return RoleMember
	}
}

// Rules evaluates actions against the loaded policy. Safe for concurrent use.
type Rules struct {
	enforcer *casbin.SyncedEnforcer
}

// NewRules builds an enforcer from the embedded model and the built-in policy.
func NewRules() (*Rules, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if _, err := enforcer.AddPolicies(defaultPolicy); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicies(roleHierarchy); err != nil {
		return nil, fmt.Errorf("load casbin role hierarchy: %w", err)
	}

	return &Rules{enforcer: enforcer}, nil
}

// Authorize returns nil when id may perform act. Anonymous callers that are
// denied get an unauthenticated error; signed-in callers get forbidden.
func (r *Rules) Authorize(id Identity, act Action) error {
	ok, err := r.enforcer.Enforce(id.Role(), act.Object, act.Verb)
	if err != nil {
		return models.NewInternalError(fmt.Errorf("evaluate %s: %w", act, err))
	}
	if ok {
		return nil
	}

	var denied *models.AppError
	if !id.IsAuthenticated() {
		denied = models.NewUnauthenticatedError("Authentication required")
	} else {
		denied = models.NewForbiddenError("Admin access required")
	}
	observability.AuthzDenials.WithLabelValues(act.String(), denied.Code).Inc()
	return denied
}
