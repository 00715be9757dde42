package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notes-saas/internal/auth"
	"notes-saas/internal/manager"
	"notes-saas/internal/model"
	"notes-saas/internal/storage"
	"notes-saas/internal/worker"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()
	store := storage.NewMemoryStore()
	pool := worker.NewWorkerPool(1, 16, log)
	pool.Start()
	t.Cleanup(pool.Stop)
	tm := manager.NewTenantManager(nil, store, pool, 1, log)
	hasher := auth.NewPasswordHasher(4)

	seeded, err := Run(ctx, store, tm, hasher, log)
	require.NoError(t, err)
	require.True(t, seeded)

	tenants, err := store.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	for _, tn := range tenants {
		require.Equal(t, model.SubscriptionFree, tn.Subscription)
		require.Equal(t, 3, tn.Settings.MaxNotes)
	}

	admin, err := store.GetUserByEmail(ctx, "admin@acme.test")
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, admin.Role)
	require.True(t, hasher.Compare(admin.PasswordHash, DemoPassword))

	member, err := store.GetUserByEmail(ctx, "user@globex.test")
	require.NoError(t, err)
	require.Equal(t, model.RoleMember, member.Role)
	require.NotEqual(t, admin.TenantID, member.TenantID)

	seeded, err = Run(ctx, store, tm, hasher, log)
	require.NoError(t, err)
	require.False(t, seeded)
	n, err := store.CountTenants(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
