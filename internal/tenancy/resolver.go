package tenancy

import (
	"context"

	"github.com/google/uuid"

	"notes-saas/internal/apperr"
	"notes-saas/internal/model"
)

// Directory looks up identities. Implementations return an ENotFound
// *apperr.Error for unknown ids.
type Directory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
}

var (
	ErrInvalidUser = &apperr.Error{
		Code: apperr.EUnauthorized,
		Msg:  "Invalid or inactive user.",
	}
	ErrUserInactive = &apperr.Error{
		Code: apperr.EUserInactive,
		Msg:  "Invalid or inactive user.",
	}
	ErrTenantInactive = &apperr.Error{
		Code: apperr.ETenantInactive,
		Msg:  "Tenant account is inactive.",
	}
)

type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve turns a verified user id into a scope. The user and its tenant are
// re-read on every call so deactivation takes effect immediately.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (*Scope, error) {
	user, err := r.dir.GetUserByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.ENotFound) {
			return nil, ErrInvalidUser
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	tenant, err := r.dir.GetTenantByID(ctx, user.TenantID)
	if err != nil {
		if apperr.Is(err, apperr.ENotFound) {
			return nil, ErrInvalidUser
		}
		return nil, err
	}
	if !tenant.IsActive {
		return nil, ErrTenantInactive
	}

	return &Scope{Tenant: tenant, User: user}, nil
}
