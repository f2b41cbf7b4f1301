package principal

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Role describes the caller's role as asserted by the upstream gateway.
type Role string

const (
	RoleTeacher    Role = "teacher"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Principal identifies the authenticated caller for a request. SchoolID is
// always set; UserID is zero for school-level service calls.
type Principal struct {
	SchoolID snowflake.ID
	UserID   snowflake.ID
	Role     Role
}

// SchoolContextKey is the request context key for the active school ID.
type SchoolContextKey struct{}

// PrincipalContextKey is the request context key for the full principal.
type PrincipalContextKey struct{}

// WithPrincipal stores the caller identity in the context, including the
// school ID under its own key for log correlation.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, SchoolContextKey{}, int64(p.SchoolID))
	return context.WithValue(ctx, PrincipalContextKey{}, p)
}

// FromContext returns the caller identity, if set.
func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(PrincipalContextKey{}).(Principal)
	return p, ok
}

// SchoolIDFromContext returns the school ID from context, if set.
func SchoolIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	value := ctx.Value(SchoolContextKey{})
	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}

	if p, ok := FromContext(ctx); ok {
		return p.SchoolID, true
	}
	return 0, false
}

// ParseRole normalizes a role header value. Unknown values default to teacher,
// the least privileged role.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleSuperAdmin):
		return RoleSuperAdmin
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleTeacher
	}
}

// IsAdmin reports whether the role can manage school-level settings.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}
