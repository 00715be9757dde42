// Package entitlement derives per-tenant quotas from the subscription tier
// and enforces them when notes are created.
package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"notes-saas/internal/apperr"
	"notes-saas/internal/model"
)

// FreeMaxNotes is the note quota of the free tier.
const FreeMaxNotes = 3

// Quota is the resource limit derived from a subscription.
type Quota struct {
	MaxNotes int
}

func (q Quota) Unlimited() bool {
	return q.MaxNotes == model.Unlimited
}

// DeriveQuota maps a subscription tier to its quota. Unknown tiers get the
// free quota.
func DeriveQuota(sub model.Subscription) Quota {
	switch sub {
	case model.SubscriptionPro:
		return Quota{MaxNotes: model.Unlimited}
	default:
		return Quota{MaxNotes: FreeMaxNotes}
	}
}

// ApplySubscription sets the tenant's tier and recomputes the derived
// settings. It is the only way a subscription should change.
func ApplySubscription(t *model.Tenant, sub model.Subscription) {
	t.Subscription = sub
	t.Settings.MaxNotes = DeriveQuota(sub).MaxNotes
}

// NoteCounter counts the notes owned by one tenant.
type NoteCounter interface {
	CountTenantNotes(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// ErrNoteLimit is returned when a free tenant has used its quota.
var ErrNoteLimit = &apperr.Error{
	Code:            apperr.EEntitlement,
	Msg:             "Note limit reached. Upgrade to Pro for unlimited notes.",
	UpgradeRequired: true,
}

type Engine struct {
	counter NoteCounter
}

func NewEngine(counter NoteCounter) *Engine {
	return &Engine{counter: counter}
}

// CheckNoteCreate permits or rejects the creation of one more note. Pro
// tenants never trigger a count. The check and the later insert are not
// atomic; concurrent creations may overshoot the free quota slightly.
func (e *Engine) CheckNoteCreate(ctx context.Context, t *model.Tenant) error {
	quota := DeriveQuota(t.Subscription)
	if quota.Unlimited() {
		return nil
	}

	n, err := e.counter.CountTenantNotes(ctx, t.ID)
	if err != nil {
		return apperr.Internal("entitlement.CheckNoteCreate", fmt.Errorf("count notes: %w", err))
	}
	if n >= quota.MaxNotes {
		return ErrNoteLimit
	}
	return nil
}

// Usage reports a tenant's note usage against its quota.
type Usage struct {
	Subscription model.Subscription `json:"subscription"`
	MaxNotes     int                `json:"maxNotes"`
	CurrentNotes int                `json:"currentNotes"`
}

func (e *Engine) Usage(ctx context.Context, t *model.Tenant) (Usage, error) {
	n, err := e.counter.CountTenantNotes(ctx, t.ID)
	if err != nil {
		return Usage{}, apperr.Internal("entitlement.Usage", fmt.Errorf("count notes: %w", err))
	}
	return Usage{
		Subscription: t.Subscription,
		MaxNotes:     DeriveQuota(t.Subscription).MaxNotes,
		CurrentNotes: n,
	}, nil
}
