// Package seed loads demo tenants and users into an empty store.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notes-saas/internal/auth"
	"notes-saas/internal/manager"
	"notes-saas/internal/model"
	"notes-saas/internal/storage"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password"

type tenantSeed struct {
	Name string
	Slug string
}

var demoTenants = []tenantSeed{
	{Name: "Acme", Slug: "acme"},
	{Name: "Globex", Slug: "globex"},
}

// Run creates the demo tenants on the free plan, each with an admin
// (admin@<slug>.test) and a member (user@<slug>.test). It does nothing when
// the store already holds a tenant and reports whether it seeded.
func Run(ctx context.Context, store storage.Store, tm *manager.TenantManager, hasher *auth.PasswordHasher, log *zap.Logger) (bool, error) {
	n, err := store.CountTenants(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		log.Info("store already has tenants, skipping seed", zap.Int("tenants", n))
		return false, nil
	}

	hash, err := hasher.Hash(DemoPassword)
	if err != nil {
		return false, fmt.Errorf("hash demo password: %w", err)
	}

	for _, ts := range demoTenants {
		t, err := tm.Onboard(ctx, ts.Name, ts.Slug)
		if err != nil {
			return false, fmt.Errorf("seed tenant %s: %w", ts.Slug, err)
		}

		users := []struct {
			email string
			role  model.Role
		}{
			{"admin@" + ts.Slug + ".test", model.RoleAdmin},
			{"user@" + ts.Slug + ".test", model.RoleMember},
		}
		for _, u := range users {
			now := time.Now().UTC()
			if err := store.CreateUser(ctx, &model.User{
				ID:           uuid.New(),
				Email:        u.email,
				PasswordHash: hash,
				Role:         u.role,
				TenantID:     t.ID,
				IsActive:     true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}); err != nil {
				return false, fmt.Errorf("seed user %s: %w", u.email, err)
			}
		}
		log.Info("seeded tenant", zap.String("slug", t.Slug), zap.Stringer("tenant_id", t.ID))
	}
	return true, nil
}
