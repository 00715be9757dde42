// internal/storage/store.go
package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"notes-saas/internal/apperr"
	"notes-saas/internal/model"
)

// Store is the persistence contract shared by the PostgreSQL and in-memory
// backends. Every note and event method takes the owning tenant id as an
// explicit argument and filters on it; there is no unscoped accessor.
type Store interface {
	CreateTenant(ctx context.Context, t *model.Tenant) error
	GetTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	CountTenants(ctx context.Context) (int, error)
	UpdateTenantSubscription(ctx context.Context, id uuid.UUID, slug string, sub model.Subscription, maxNotes int) (*model.Tenant, error)

	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateNote(ctx context.Context, n *model.Note) error
	CountTenantNotes(ctx context.Context, tenantID uuid.UUID) (int, error)
	ListNotes(ctx context.Context, tenantID uuid.UUID, f model.NoteFilter) ([]model.Note, int, error)
	GetNote(ctx context.Context, tenantID, id uuid.UUID) (*model.Note, error)
	UpdateNote(ctx context.Context, n *model.Note) error
	DeleteNote(ctx context.Context, tenantID, id uuid.UUID) error

	EnsurePartition(ctx context.Context, tenantID uuid.UUID) error
	InsertEvent(ctx context.Context, e *model.Event) error
	ListEventsPaginated(ctx context.Context, tenantID uuid.UUID, cursor string, limit int) ([]model.Event, string, error)

	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrTenantNotFound = &apperr.Error{Code: apperr.ENotFound, Msg: "Tenant not found."}
	ErrUserNotFound   = &apperr.Error{Code: apperr.ENotFound, Msg: "User not found."}
	ErrNoteNotFound   = &apperr.Error{Code: apperr.ENotFound, Msg: "Note not found."}
	ErrEmailTaken     = &apperr.Error{Code: apperr.EConflict, Msg: "User with this email already exists."}
	ErrSlugTaken      = &apperr.Error{Code: apperr.EConflict, Msg: "Tenant with this slug already exists."}
	ErrInvalidCursor  = &apperr.Error{Code: apperr.EInvalid, Msg: "Invalid cursor."}
)

// noteMatches reports whether a note satisfies the search and priority parts
// of f. Search is a case-insensitive substring match on title, content or
// any tag.
func noteMatches(n *model.Note, f model.NoteFilter) bool {
	if n.IsArchived != f.Archived {
		return false
	}
	if f.Priority != "" && n.Priority != f.Priority {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// likePattern escapes s for use inside an ILIKE '%s%' pattern.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
