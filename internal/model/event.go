// internal/model/event.go
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventNoteCreated    EventType = "note.created"
	EventNoteUpdated    EventType = "note.updated"
	EventNoteDeleted    EventType = "note.deleted"
	EventUserInvited    EventType = "user.invited"
	EventTenantUpgraded EventType = "tenant.upgraded"
)

// Event is a tenant-scoped audit record, published on the tenant's queue and
// persisted by the consumer.
type Event struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	TenantID   uuid.UUID       `db:"tenant_id" json:"tenantId"`
	ActorID    uuid.UUID       `db:"actor_id" json:"actorId"`
	Type       EventType       `db:"type" json:"type"`
	ResourceID uuid.UUID       `db:"resource_id" json:"resourceId"`
	Payload    json.RawMessage `db:"payload" json:"payload,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

func NewEvent(tenantID, actorID uuid.UUID, typ EventType, resourceID uuid.UUID, payload any) Event {
	var raw json.RawMessage
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			raw = b
		}
	}
	return Event{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ActorID:    actorID,
		Type:       typ,
		ResourceID: resourceID,
		Payload:    raw,
		CreatedAt:  time.Now().UTC(),
	}
}
