package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"notes-saas/internal/apperr"
	"notes-saas/internal/model"
)

type mapDirectory struct {
	users   map[uuid.UUID]*model.User
	tenants map[uuid.UUID]*model.Tenant
	err     error
}

func (d *mapDirectory) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	u, ok := d.users[id]
	if !ok {
		return nil, apperr.New(apperr.ENotFound, "user not found")
	}
	return u, nil
}

func (d *mapDirectory) GetTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	t, ok := d.tenants[id]
	if !ok {
		return nil, apperr.New(apperr.ENotFound, "tenant not found")
	}
	return t, nil
}

func fixture() (*mapDirectory, *model.Tenant, *model.User) {
	tenant := &model.Tenant{ID: uuid.New(), Slug: "acme", IsActive: true}
	user := &model.User{ID: uuid.New(), TenantID: tenant.ID, Role: model.RoleMember, IsActive: true}
	dir := &mapDirectory{
		users:   map[uuid.UUID]*model.User{user.ID: user},
		tenants: map[uuid.UUID]*model.Tenant{tenant.ID: tenant},
	}
	return dir, tenant, user
}

func TestResolve(t *testing.T) {
	dir, tenant, user := fixture()
	r := NewResolver(dir)

	s, err := r.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, tenant.ID, s.TenantID())
	require.Equal(t, user.ID, s.UserID())

	ctx := WithScope(context.Background(), s)
	require.Same(t, s, FromContext(ctx))
	require.Nil(t, FromContext(context.Background()))
}

func TestResolveRejections(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		dir, _, _ := fixture()
		_, err := NewResolver(dir).Resolve(context.Background(), uuid.New())
		require.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(err))
	})

	t.Run("inactive user", func(t *testing.T) {
		dir, _, user := fixture()
		user.IsActive = false
		_, err := NewResolver(dir).Resolve(context.Background(), user.ID)
		require.Equal(t, apperr.EUserInactive, apperr.ErrorCode(err))
	})

	t.Run("inactive tenant", func(t *testing.T) {
		dir, tenant, user := fixture()
		tenant.IsActive = false
		_, err := NewResolver(dir).Resolve(context.Background(), user.ID)
		require.Equal(t, apperr.ETenantInactive, apperr.ErrorCode(err))
	})

	t.Run("store failure", func(t *testing.T) {
		dir, _, user := fixture()
		dir.err = apperr.Internal("test", errors.New("boom"))
		_, err := NewResolver(dir).Resolve(context.Background(), user.ID)
		require.Equal(t, apperr.EInternal, apperr.ErrorCode(err))
	})
}

func TestRequireRole(t *testing.T) {
	_, tenant, user := fixture()
	s := &Scope{Tenant: tenant, User: user}

	require.Equal(t, apperr.EForbidden, apperr.ErrorCode(RequireRole(s, model.RoleAdmin)))
	require.NoError(t, RequireRole(s, model.RoleAdmin, model.RoleMember))

	user.Role = model.RoleAdmin
	require.NoError(t, RequireRole(s, model.RoleAdmin))

	require.Equal(t, apperr.EUnauthorized, apperr.ErrorCode(RequireRole(nil, model.RoleAdmin)))
}

func TestRequireTenantSlug(t *testing.T) {
	_, tenant, user := fixture()
	s := &Scope{Tenant: tenant, User: user}

	require.NoError(t, RequireTenantSlug(s, "acme"))
	require.Equal(t, apperr.EForbidden, apperr.ErrorCode(RequireTenantSlug(s, "globex")))
}
