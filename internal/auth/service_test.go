package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notes-saas/internal/apperr"
	"notes-saas/internal/model"
	"notes-saas/internal/storage"
	"notes-saas/internal/tenancy"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, e model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type env struct {
	store  *storage.MemoryStore
	svc    *Service
	tokens *TokenManager
	events *recordingPublisher
	tenant *model.Tenant
	admin  *model.User
	member *model.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	hasher := NewPasswordHasher(4)
	tokens, err := NewTokenManager("secret", time.Hour)
	require.NoError(t, err)
	events := &recordingPublisher{}

	tenant := &model.Tenant{ID: uuid.New(), Name: "Acme", Slug: "acme", Subscription: model.SubscriptionFree,
		Settings: model.TenantSettings{MaxNotes: 3}, IsActive: true}
	require.NoError(t, store.CreateTenant(ctx, tenant))

	hash, err := hasher.Hash("password")
	require.NoError(t, err)
	mkUser := func(email string, role model.Role) *model.User {
		u := &model.User{ID: uuid.New(), Email: email, PasswordHash: hash, Role: role, TenantID: tenant.ID, IsActive: true}
		require.NoError(t, store.CreateUser(ctx, u))
		return u
	}

	return &env{
		store:  store,
		svc:    NewService(store, tokens, hasher, events, "password", zap.NewNop()),
		tokens: tokens,
		events: events,
		tenant: tenant,
		admin:  mkUser("admin@acme.test", model.RoleAdmin),
		member: mkUser("user@acme.test", model.RoleMember),
	}
}

func (e *env) scope(u *model.User) *tenancy.Scope {
	return &tenancy.Scope{Tenant: e.tenant, User: u}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.svc.Login(ctx, LoginRequest{Email: "  ADMIN@acme.test ", Password: "password"})
	require.NoError(t, err)
	require.Equal(t, e.admin.ID, res.User.ID)
	require.Equal(t, "acme", res.User.Tenant.Slug)
	require.Equal(t, model.SubscriptionFree, res.User.Tenant.Subscription)

	claims, err := e.tokens.ValidateToken(res.Token)
	require.NoError(t, err)
	require.Equal(t, e.admin.ID.String(), claims.UserID)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		setup    func(e *env)
		req      LoginRequest
		wantCode string
	}{
		{name: "missing password", req: LoginRequest{Email: "admin@acme.test"}, wantCode: apperr.EInvalid},
		{name: "missing email", req: LoginRequest{Password: "password"}, wantCode: apperr.EInvalid},
		{name: "unknown email", req: LoginRequest{Email: "nobody@acme.test", Password: "password"}, wantCode: apperr.EUnauthorized},
		{name: "wrong password", req: LoginRequest{Email: "admin@acme.test", Password: "nope"}, wantCode: apperr.EUnauthorized},
		{
			name:     "inactive user",
			setup:    func(e *env) { e.store.SetUserActive(e.admin.ID, false) },
			req:      LoginRequest{Email: "admin@acme.test", Password: "password"},
			wantCode: apperr.EUnauthorized,
		},
		{
			name:     "inactive tenant with correct password",
			setup:    func(e *env) { e.store.SetTenantActive(e.tenant.ID, false) },
			req:      LoginRequest{Email: "admin@acme.test", Password: "password"},
			wantCode: apperr.ETenantInactive,
		},
		{
			name:     "inactive tenant with wrong password",
			setup:    func(e *env) { e.store.SetTenantActive(e.tenant.ID, false) },
			req:      LoginRequest{Email: "admin@acme.test", Password: "nope"},
			wantCode: apperr.EUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			if tt.setup != nil {
				tt.setup(e)
			}
			_, err := e.svc.Login(ctx, tt.req)
			require.Equal(t, tt.wantCode, apperr.ErrorCode(err))
		})
	}
}

func TestInvite(t *testing.T) {
	ctx := context.Background()

	t.Run("member is rejected regardless of payload", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.Invite(ctx, e.scope(e.member), InviteRequest{})
		require.Equal(t, apperr.EForbidden, apperr.ErrorCode(err))
	})

	t.Run("admin invites into own tenant", func(t *testing.T) {
		e := newEnv(t)
		view, err := e.svc.Invite(ctx, e.scope(e.admin), InviteRequest{Email: "New@Acme.test"})
		require.NoError(t, err)
		require.Equal(t, "new@acme.test", view.Email)
		require.Equal(t, model.RoleMember, view.Role)

		stored, err := e.store.GetUserByID(ctx, view.ID)
		require.NoError(t, err)
		require.Equal(t, e.tenant.ID, stored.TenantID)

		res, err := e.svc.Login(ctx, LoginRequest{Email: "new@acme.test", Password: "password"})
		require.NoError(t, err, "invitee logs in with the default password")
		require.Equal(t, view.ID, res.User.ID)

		require.Len(t, e.events.events, 1)
		require.Equal(t, model.EventUserInvited, e.events.events[0].Type)
		require.Equal(t, e.tenant.ID, e.events.events[0].TenantID)
	})

	t.Run("validation", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.Invite(ctx, e.scope(e.admin), InviteRequest{Email: "  "})
		require.Equal(t, apperr.EInvalid, apperr.ErrorCode(err))

		_, err = e.svc.Invite(ctx, e.scope(e.admin), InviteRequest{Email: "x@acme.test", Role: "owner"})
		require.Equal(t, apperr.EInvalid, apperr.ErrorCode(err))

		_, err = e.svc.Invite(ctx, e.scope(e.admin), InviteRequest{Email: "USER@acme.test"})
		require.Equal(t, apperr.EConflict, apperr.ErrorCode(err))
		require.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))
	})
}

func TestProfileCarriesQuota(t *testing.T) {
	e := newEnv(t)
	view := e.svc.Profile(e.scope(e.member))
	require.Equal(t, e.member.ID, view.ID)
	require.Equal(t, 3, *view.Tenant.MaxNotes)
}

func TestAuthenticateMiddleware(t *testing.T) {
	e := newEnv(t)
	mw := NewMiddleware(e.tokens, tenancy.NewResolver(e.store))

	var got *tenancy.Scope
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = tenancy.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := e.tokens.GenerateToken(e.member)
	require.NoError(t, err)

	do := func(header string) int {
		got = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, do("Bearer "+token))
	require.NotNil(t, got)
	require.Equal(t, e.tenant.ID, got.TenantID())

	require.Equal(t, http.StatusUnauthorized, do(""))
	require.Equal(t, http.StatusUnauthorized, do("Bearer garbage"))
	require.Equal(t, http.StatusUnauthorized, do("Basic "+token))

	e.store.SetTenantActive(e.tenant.ID, false)
	require.Equal(t, http.StatusForbidden, do("Bearer "+token), "valid token for an inactive tenant")
	e.store.SetTenantActive(e.tenant.ID, true)

	e.store.SetUserActive(e.member.ID, false)
	require.Equal(t, http.StatusUnauthorized, do("Bearer "+token), "valid token for an inactive user")
	require.Nil(t, got)
}

func TestRequireRoleMiddleware(t *testing.T) {
	e := newEnv(t)
	handler := RequireRole(model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(s *tenancy.Scope) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if s != nil {
			req = req.WithContext(tenancy.WithScope(req.Context(), s))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, do(e.scope(e.admin)))
	require.Equal(t, http.StatusForbidden, do(e.scope(e.member)))
	require.Equal(t, http.StatusUnauthorized, do(nil))
}
