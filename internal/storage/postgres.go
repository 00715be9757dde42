// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"notes-saas/internal/apperr"
	"notes-saas/internal/model"
)

const pgUniqueViolation = "23505"

type Storage struct {
	DB *sql.DB
}

var _ Store = (*Storage)(nil)

func NewStorage(dsn string) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{DB: db}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

const tenantColumns = `id, name, slug, subscription, max_notes, theme, is_active, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }) (*model.Tenant, error) {
	var t model.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Subscription, &t.Settings.MaxNotes,
		&t.Settings.Theme, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Storage) CreateTenant(ctx context.Context, t *model.Tenant) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.Name, t.Slug, t.Subscription, t.Settings.MaxNotes, t.Settings.Theme,
		t.IsActive, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return apperr.Internal("storage.CreateTenant", err)
	}
	return nil
}

func (s *Storage) GetTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	t, err := scanTenant(s.DB.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, apperr.Internal("storage.GetTenantByID", err)
	}
	return t, nil
}

func (s *Storage) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, apperr.Internal("storage.ListTenants", err)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, apperr.Internal("storage.ListTenants", err)
		}
		tenants = append(tenants, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("storage.ListTenants", err)
	}
	return tenants, nil
}

func (s *Storage) CountTenants(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&n); err != nil {
		return 0, apperr.Internal("storage.CountTenants", err)
	}
	return n, nil
}

// UpdateTenantSubscription matches on both id and slug, so a slug naming a
// different tenant updates nothing.
func (s *Storage) UpdateTenantSubscription(ctx context.Context, id uuid.UUID, slug string, sub model.Subscription, maxNotes int) (*model.Tenant, error) {
	t, err := scanTenant(s.DB.QueryRowContext(ctx, `
		UPDATE tenants
		SET subscription = $1, max_notes = $2, updated_at = $3
		WHERE id = $4 AND slug = $5
		RETURNING `+tenantColumns,
		sub, maxNotes, time.Now().UTC(), id, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, apperr.Internal("storage.UpdateTenantSubscription", err)
	}
	return t, nil
}

const userColumns = `id, email, password_hash, role, tenant_id, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.TenantID,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Storage) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, model.NormalizeEmail(u.Email), u.PasswordHash, u.Role, u.TenantID,
		u.IsActive, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return apperr.Internal("storage.CreateUser", err)
	}
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Internal("storage.GetUserByID", err)
	}
	return u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, model.NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Internal("storage.GetUserByEmail", err)
	}
	return u, nil
}

const noteSelect = `
	SELECT n.id, n.title, n.content, n.tags, n.priority, n.tenant_id, n.created_by,
	       n.is_archived, n.created_at, n.updated_at, COALESCE(u.email, '')
	FROM notes n
	LEFT JOIN users u ON u.id = n.created_by`

func scanNote(row interface{ Scan(...any) error }) (*model.Note, error) {
	var n model.Note
	var email string
	err := row.Scan(&n.ID, &n.Title, &n.Content, pq.Array(&n.Tags), &n.Priority, &n.TenantID,
		&n.CreatedBy, &n.IsArchived, &n.CreatedAt, &n.UpdatedAt, &email)
	if err != nil {
		return nil, err
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	n.Creator = &model.NoteCreator{ID: n.CreatedBy, Email: email}
	return &n, nil
}

func (s *Storage) CreateNote(ctx context.Context, n *model.Note) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, tags, priority, tenant_id, created_by, is_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, n.ID, n.Title, n.Content, pq.Array(n.Tags), n.Priority, n.TenantID, n.CreatedBy,
		n.IsArchived, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return apperr.Internal("storage.CreateNote", err)
	}
	return nil
}

func (s *Storage) CountTenantNotes(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE tenant_id = $1`, tenantID).Scan(&n)
	if err != nil {
		return 0, apperr.Internal("storage.CountTenantNotes", err)
	}
	return n, nil
}

// noteWhere builds the filter clause; $1 is always the tenant id.
func noteWhere(tenantID uuid.UUID, f model.NoteFilter) (string, []any) {
	conds := []string{"n.tenant_id = $1", "n.is_archived = $2"}
	args := []any{tenantID, f.Archived}

	if f.Priority != "" {
		args = append(args, f.Priority)
		conds = append(conds, fmt.Sprintf("n.priority = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		p := len(args)
		conds = append(conds, fmt.Sprintf(
			`(n.title ILIKE $%d OR n.content ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(n.tags) AS tag WHERE tag ILIKE $%d))`,
			p, p, p))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Storage) ListNotes(ctx context.Context, tenantID uuid.UUID, f model.NoteFilter) ([]model.Note, int, error) {
	where, args := noteWhere(tenantID, f)

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes n`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Internal("storage.ListNotes", err)
	}

	offset := max(f.Offset, 0)
	if offset >= total {
		return []model.Note{}, total, nil
	}

	args = append(args, f.Limit, offset)
	query := noteSelect + where +
		fmt.Sprintf(" ORDER BY n.created_at DESC, n.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Internal("storage.ListNotes", err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, apperr.Internal("storage.ListNotes", err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Internal("storage.ListNotes", err)
	}
	return notes, total, nil
}

func (s *Storage) GetNote(ctx context.Context, tenantID, id uuid.UUID) (*model.Note, error) {
	n, err := scanNote(s.DB.QueryRowContext(ctx,
		noteSelect+` WHERE n.id = $1 AND n.tenant_id = $2`, id, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, apperr.Internal("storage.GetNote", err)
	}
	return n, nil
}

func (s *Storage) UpdateNote(ctx context.Context, n *model.Note) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE notes
		SET title = $1, content = $2, tags = $3, priority = $4, is_archived = $5, updated_at = $6
		WHERE id = $7 AND tenant_id = $8
	`, n.Title, n.Content, pq.Array(n.Tags), n.Priority, n.IsArchived, n.UpdatedAt, n.ID, n.TenantID)
	if err != nil {
		return apperr.Internal("storage.UpdateNote", err)
	}
	return expectOneRow(res, "storage.UpdateNote")
}

func (s *Storage) DeleteNote(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return apperr.Internal("storage.DeleteNote", err)
	}
	return expectOneRow(res, "storage.DeleteNote")
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(op, err)
	}
	if n == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// EnsurePartition creates the tenant's events partition if not exists
func (s *Storage) EnsurePartition(ctx context.Context, tenantID uuid.UUID) error {
	partitionName := pq.QuoteIdentifier("events_" + strings.ReplaceAll(tenantID.String(), "-", ""))
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s PARTITION OF events
		FOR VALUES IN (%s)`, partitionName, pq.QuoteLiteral(tenantID.String()))

	if _, err := s.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}
	return nil
}

// InsertEvent inserts an event into the tenant's partition
func (s *Storage) InsertEvent(ctx context.Context, e *model.Event) error {
	payload := []byte(e.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO events (id, tenant_id, actor_id, type, resource_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`, e.ID, e.TenantID, e.ActorID, e.Type, e.ResourceID, payload, e.CreatedAt)
	if err != nil {
		return apperr.Internal("storage.InsertEvent", err)
	}
	return nil
}

// ListEventsPaginated returns a tenant's events oldest first. The cursor is
// the id of the last event of the previous page.
func (s *Storage) ListEventsPaginated(ctx context.Context, tenantID uuid.UUID, cursor string, limit int) ([]model.Event, string, error) {
	var after any
	if cursor != "" {
		id, err := uuid.Parse(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
		after = id
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, tenant_id, actor_id, type, resource_id, payload, created_at
		FROM events
		WHERE tenant_id = $1
		  AND ($2::uuid IS NULL OR (created_at, id) > (
		      SELECT created_at, id FROM events WHERE tenant_id = $1 AND id = $2::uuid))
		ORDER BY created_at, id
		LIMIT $3
	`, tenantID, after, limit)
	if err != nil {
		return nil, "", apperr.Internal("storage.ListEventsPaginated", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		var payload []byte
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Type, &e.ResourceID, &payload, &e.CreatedAt); err != nil {
			return nil, "", apperr.Internal("storage.ListEventsPaginated", err)
		}
		e.Payload = payload
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", apperr.Internal("storage.ListEventsPaginated", err)
	}

	nextCursor := ""
	if len(events) == limit {
		nextCursor = events[len(events)-1].ID.String()
	}
	return events, nextCursor, nil
}
