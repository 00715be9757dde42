// internal/model/tenant.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type Subscription string

const (
	SubscriptionFree Subscription = "free"
	SubscriptionPro  Subscription = "pro"
)

func (s Subscription) Valid() bool {
	return s == SubscriptionFree || s == SubscriptionPro
}

// Unlimited is the MaxNotes sentinel for tiers without a note quota.
const Unlimited = -1

type TenantSettings struct {
	MaxNotes int    `json:"maxNotes"`
	Theme    string `json:"theme"`
}

type Tenant struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Slug         string         `db:"slug" json:"slug"`
	Subscription Subscription   `db:"subscription" json:"subscription"`
	Settings     TenantSettings `json:"settings"`
	IsActive     bool           `db:"is_active" json:"isActive"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}
