// internal/storage/memory.go
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"notes-saas/internal/model"
)

// MemoryStore keeps everything in process memory. It backs local runs
// without a DATABASE_URL and the handler tests, with the same tenant
// filtering and error semantics as Storage.
type MemoryStore struct {
	mu sync.RWMutex

	seq     int64
	tenants map[uuid.UUID]*model.Tenant
	users   map[uuid.UUID]*model.User
	notes   map[uuid.UUID]*memNote
	events  map[uuid.UUID][]*memEvent
}

type memNote struct {
	seq  int64
	note model.Note
}

type memEvent struct {
	seq   int64
	event model.Event
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[uuid.UUID]*model.Tenant),
		users:   make(map[uuid.UUID]*model.User),
		notes:   make(map[uuid.UUID]*memNote),
		events:  make(map[uuid.UUID][]*memEvent),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) nextSeq() int64 {
	m.seq++
	return m.seq
}

func (m *MemoryStore) CreateTenant(ctx context.Context, t *model.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.tenants {
		if existing.Slug == t.Slug {
			return ErrSlugTaken
		}
	}
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tenants := make([]model.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		tenants = append(tenants, *t)
	}
	sort.Slice(tenants, func(i, j int) bool {
		return tenants[i].CreatedAt.Before(tenants[j].CreatedAt)
	})
	return tenants, nil
}

func (m *MemoryStore) CountTenants(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tenants), nil
}

func (m *MemoryStore) UpdateTenantSubscription(ctx context.Context, id uuid.UUID, slug string, sub model.Subscription, maxNotes int) (*model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok || t.Slug != slug {
		return nil, ErrTenantNotFound
	}
	t.Subscription = sub
	t.Settings.MaxNotes = maxNotes
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := model.NormalizeEmail(u.Email)
	for _, existing := range m.users {
		if existing.Email == email {
			return ErrEmailTaken
		}
	}
	cp := *u
	cp.Email = email
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = model.NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// SetUserActive and SetTenantActive toggle the active flags; there is no
// HTTP surface for them.
func (m *MemoryStore) SetUserActive(id uuid.UUID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.IsActive = active
	}
}

func (m *MemoryStore) SetTenantActive(id uuid.UUID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tenants[id]; ok {
		t.IsActive = active
	}
}

func copyNote(n model.Note) model.Note {
	n.Tags = append([]string{}, n.Tags...)
	return n
}

// withCreator must be called with m.mu held.
func (m *MemoryStore) withCreator(n model.Note) model.Note {
	n = copyNote(n)
	creator := &model.NoteCreator{ID: n.CreatedBy}
	if u, ok := m.users[n.CreatedBy]; ok {
		creator.Email = u.Email
	}
	n.Creator = creator
	return n
}

func (m *MemoryStore) CreateNote(ctx context.Context, n *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := copyNote(*n)
	stored.Creator = nil
	m.notes[n.ID] = &memNote{seq: m.nextSeq(), note: stored}
	return nil
}

func (m *MemoryStore) CountTenantNotes(ctx context.Context, tenantID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, mn := range m.notes {
		if mn.note.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) ListNotes(ctx context.Context, tenantID uuid.UUID, f model.NoteFilter) ([]model.Note, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*memNote
	for _, mn := range m.notes {
		if mn.note.TenantID == tenantID && noteMatches(&mn.note, f) {
			matched = append(matched, mn)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.note.CreatedAt.Equal(b.note.CreatedAt) {
			return a.note.CreatedAt.After(b.note.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(matched)
	notes := []model.Note{}
	for i := max(f.Offset, 0); i < total && (f.Limit <= 0 || len(notes) < f.Limit); i++ {
		notes = append(notes, m.withCreator(matched[i].note))
	}
	return notes, total, nil
}

func (m *MemoryStore) GetNote(ctx context.Context, tenantID, id uuid.UUID) (*model.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mn, ok := m.notes[id]
	if !ok || mn.note.TenantID != tenantID {
		return nil, ErrNoteNotFound
	}
	n := m.withCreator(mn.note)
	return &n, nil
}

func (m *MemoryStore) UpdateNote(ctx context.Context, n *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mn, ok := m.notes[n.ID]
	if !ok || mn.note.TenantID != n.TenantID {
		return ErrNoteNotFound
	}
	mn.note.Title = n.Title
	mn.note.Content = n.Content
	mn.note.Tags = append([]string{}, n.Tags...)
	mn.note.Priority = n.Priority
	mn.note.IsArchived = n.IsArchived
	mn.note.UpdatedAt = n.UpdatedAt
	return nil
}

func (m *MemoryStore) DeleteNote(ctx context.Context, tenantID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mn, ok := m.notes[id]
	if !ok || mn.note.TenantID != tenantID {
		return ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *MemoryStore) EnsurePartition(ctx context.Context, tenantID uuid.UUID) error {
	return nil
}

func (m *MemoryStore) InsertEvent(ctx context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.events[e.TenantID] {
		if existing.event.ID == e.ID {
			return nil
		}
	}
	list := append(m.events[e.TenantID], &memEvent{seq: m.nextSeq(), event: *e})
	// Keep creation order; workers may record events out of order.
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.event.CreatedAt.Equal(b.event.CreatedAt) {
			return a.event.CreatedAt.Before(b.event.CreatedAt)
		}
		return a.seq < b.seq
	})
	m.events[e.TenantID] = list
	return nil
}

func (m *MemoryStore) ListEventsPaginated(ctx context.Context, tenantID uuid.UUID, cursor string, limit int) ([]model.Event, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.events[tenantID]
	start := 0
	if cursor != "" {
		id, err := uuid.Parse(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
		start = len(all)
		for i, me := range all {
			if me.event.ID == id {
				start = i + 1
				break
			}
		}
	}

	events := []model.Event{}
	for i := start; i < len(all) && len(events) < limit; i++ {
		events = append(events, all[i].event)
	}

	nextCursor := ""
	if len(events) == limit {
		nextCursor = events[len(events)-1].ID.String()
	}
	return events, nextCursor, nil
}
