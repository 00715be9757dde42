// internal/model/note.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Note struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	Tags       []string  `db:"tags" json:"tags"`
	Priority   Priority  `db:"priority" json:"priority"`
	TenantID   uuid.UUID `db:"tenant_id" json:"tenantId"`
	CreatedBy  uuid.UUID `db:"created_by" json:"-"`
	IsArchived bool      `db:"is_archived" json:"isArchived"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`

	// Populated on reads; not a stored column.
	Creator *NoteCreator `json:"createdBy,omitempty"`
}

type NoteCreator struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// NoteFilter narrows a tenant's notes. It never carries a tenant id; the
// tenant is always passed separately by the caller holding the scope.
type NoteFilter struct {
	Search   string
	Priority Priority
	Archived bool
	Offset   int
	Limit    int
}
