// Package tenancy resolves the acting tenant of a request and carries it as
// an isolation scope. Every tenant-owned read or write takes its tenant id
// from a Scope, never from caller input.
package tenancy

import (
	"context"

	"github.com/google/uuid"

	"notes-saas/internal/model"
)

// Scope is the isolation context of one request.
type Scope struct {
	Tenant *model.Tenant
	User   *model.User
}

func (s *Scope) TenantID() uuid.UUID {
	return s.Tenant.ID
}

func (s *Scope) UserID() uuid.UUID {
	return s.User.ID
}

type contextKey string

const scopeKey contextKey = "tenancy_scope"

func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// FromContext returns the request scope, or nil when the request was never
// authenticated.
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey).(*Scope)
	return s
}
