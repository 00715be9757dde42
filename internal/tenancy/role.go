package tenancy

import (
	"notes-saas/internal/apperr"
	"notes-saas/internal/model"
)

var (
	ErrInsufficientPermissions = &apperr.Error{
		Code: apperr.EForbidden,
		Msg:  "Insufficient permissions.",
	}
	ErrTenantAccessDenied = &apperr.Error{
		Code: apperr.EForbidden,
		Msg:  "Access denied to this tenant.",
	}
	errNoScope = &apperr.Error{
		Code: apperr.EUnauthorized,
		Msg:  "Access denied. No token provided.",
	}
)

// RequireRole passes only when the scope's user holds one of roles. A nil
// scope is unauthenticated: the role gate never runs without a resolved
// tenant.
func RequireRole(s *Scope, roles ...model.Role) error {
	if s == nil || s.User == nil || s.Tenant == nil {
		return errNoScope
	}
	for _, r := range roles {
		if s.User.Role == r {
			return nil
		}
	}
	return ErrInsufficientPermissions
}

// RequireTenantSlug rejects requests addressing a tenant other than the
// scope's own.
func RequireTenantSlug(s *Scope, slug string) error {
	if s == nil || s.Tenant == nil {
		return errNoScope
	}
	if slug != s.Tenant.Slug {
		return ErrTenantAccessDenied
	}
	return nil
}
