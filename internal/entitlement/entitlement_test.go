package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"notes-saas/internal/apperr"
	"notes-saas/internal/model"
)

type countingStub struct {
	n     int
	err   error
	calls int
}

func (c *countingStub) CountTenantNotes(ctx context.Context, tenantID uuid.UUID) (int, error) {
	c.calls++
	return c.n, c.err
}

func TestDeriveQuota(t *testing.T) {
	require.Equal(t, Quota{MaxNotes: 3}, DeriveQuota(model.SubscriptionFree))
	require.Equal(t, Quota{MaxNotes: model.Unlimited}, DeriveQuota(model.SubscriptionPro))
	require.True(t, DeriveQuota(model.SubscriptionPro).Unlimited())
	require.Equal(t, FreeMaxNotes, DeriveQuota("bogus").MaxNotes)
}

func TestApplySubscriptionRecomputesQuota(t *testing.T) {
	tenant := &model.Tenant{Subscription: model.SubscriptionFree, Settings: model.TenantSettings{MaxNotes: 3}}

	ApplySubscription(tenant, model.SubscriptionPro)
	require.Equal(t, model.SubscriptionPro, tenant.Subscription)
	require.Equal(t, model.Unlimited, tenant.Settings.MaxNotes)

	ApplySubscription(tenant, model.SubscriptionFree)
	require.Equal(t, 3, tenant.Settings.MaxNotes)
}

func TestCheckNoteCreate(t *testing.T) {
	tests := []struct {
		name      string
		sub       model.Subscription
		count     int
		countErr  error
		wantCode  string
		wantCalls int
	}{
		{name: "free under quota", sub: model.SubscriptionFree, count: 2, wantCalls: 1},
		{name: "free at quota", sub: model.SubscriptionFree, count: 3, wantCode: apperr.EEntitlement, wantCalls: 1},
		{name: "free over quota", sub: model.SubscriptionFree, count: 5, wantCode: apperr.EEntitlement, wantCalls: 1},
		{name: "pro skips count", sub: model.SubscriptionPro, count: 1000, wantCalls: 0},
		{name: "count failure", sub: model.SubscriptionFree, countErr: errors.New("db down"), wantCode: apperr.EInternal, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &countingStub{n: tt.count, err: tt.countErr}
			engine := NewEngine(stub)
			tenant := &model.Tenant{ID: uuid.New()}
			ApplySubscription(tenant, tt.sub)

			err := engine.CheckNoteCreate(context.Background(), tenant)
			require.Equal(t, tt.wantCalls, stub.calls)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, tt.wantCode, apperr.ErrorCode(err))
			if tt.wantCode == apperr.EEntitlement {
				require.True(t, apperr.UpgradeRequired(err))
			}
		})
	}
}

func TestUsage(t *testing.T) {
	engine := NewEngine(&countingStub{n: 2})
	tenant := &model.Tenant{ID: uuid.New()}
	ApplySubscription(tenant, model.SubscriptionFree)

	u, err := engine.Usage(context.Background(), tenant)
	require.NoError(t, err)
	require.Equal(t, Usage{Subscription: model.SubscriptionFree, MaxNotes: 3, CurrentNotes: 2}, u)
}
