package storage

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"notes-saas/internal/apperr"
	"notes-saas/internal/model"
)

type fixture struct {
	tenant *model.Tenant
	user   *model.User
}

func seedTenant(t *testing.T, s Store, slug string) fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	tenant := &model.Tenant{
		ID:           uuid.New(),
		Name:         slug + " corp",
		Slug:         slug,
		Subscription: model.SubscriptionFree,
		Settings:     model.TenantSettings{MaxNotes: 3, Theme: "light"},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateTenant(ctx, tenant))

	user := &model.User{
		ID:           uuid.New(),
		Email:        "Admin@" + slug + ".test",
		PasswordHash: "hash",
		Role:         model.RoleAdmin,
		TenantID:     tenant.ID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateUser(ctx, user))
	return fixture{tenant: tenant, user: user}
}

func newNote(f fixture, title string, tags []string, at time.Time) *model.Note {
	return &model.Note{
		ID:        uuid.New(),
		Title:     title,
		Content:   "content of " + title,
		Tags:      tags,
		Priority:  model.PriorityMedium,
		TenantID:  f.tenant.ID,
		CreatedBy: f.user.ID,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// testStoreContract exercises the behaviour every Store must share.
func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	acme := seedTenant(t, s, "acme-"+suffix)
	globex := seedTenant(t, s, "globex-"+suffix)

	t.Run("users", func(t *testing.T) {
		u, err := s.GetUserByEmail(ctx, "ADMIN@acme-"+suffix+".test")
		require.NoError(t, err)
		require.Equal(t, acme.user.ID, u.ID)
		require.Equal(t, "admin@acme-"+suffix+".test", u.Email)

		dup := *acme.user
		dup.ID = uuid.New()
		require.Equal(t, apperr.EConflict, apperr.ErrorCode(s.CreateUser(ctx, &dup)))

		_, err = s.GetUserByID(ctx, uuid.New())
		require.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
	})

	t.Run("notes are tenant scoped", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Millisecond)
		first := newNote(acme, "Groceries", []string{"home"}, base)
		second := newNote(acme, "Quarterly report", []string{"work", "urgent"}, base.Add(time.Second))
		other := newNote(globex, "Globex secret", nil, base)
		other.Tags = []string{}
		for _, n := range []*model.Note{first, second, other} {
			require.NoError(t, s.CreateNote(ctx, n))
		}

		n, err := s.CountTenantNotes(ctx, acme.tenant.ID)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		_, err = s.GetNote(ctx, acme.tenant.ID, other.ID)
		require.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))

		cross := *other
		cross.TenantID = acme.tenant.ID
		cross.Title = "hijacked"
		require.Equal(t, apperr.ENotFound, apperr.ErrorCode(s.UpdateNote(ctx, &cross)))
		require.Equal(t, apperr.ENotFound, apperr.ErrorCode(s.DeleteNote(ctx, acme.tenant.ID, other.ID)))

		got, err := s.GetNote(ctx, globex.tenant.ID, other.ID)
		require.NoError(t, err)
		require.Equal(t, "Globex secret", got.Title)
		require.Equal(t, "admin@globex-"+suffix+".test", got.Creator.Email)

		notes, total, err := s.ListNotes(ctx, acme.tenant.ID, model.NoteFilter{Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Equal(t, second.ID, notes[0].ID, "newest first")
		require.Equal(t, first.ID, notes[1].ID)

		notes, total, err = s.ListNotes(ctx, acme.tenant.ID, model.NoteFilter{Search: "URG", Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, second.ID, notes[0].ID)

		notes, total, err = s.ListNotes(ctx, acme.tenant.ID, model.NoteFilter{Search: "groc", Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, first.ID, notes[0].ID)

		_, total, err = s.ListNotes(ctx, acme.tenant.ID, model.NoteFilter{Search: "secret", Limit: 10})
		require.NoError(t, err)
		require.Zero(t, total)

		notes, total, err = s.ListNotes(ctx, acme.tenant.ID, model.NoteFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Len(t, notes, 1)
		require.Equal(t, first.ID, notes[0].ID)

		notes, total, err = s.ListNotes(ctx, acme.tenant.ID, model.NoteFilter{Limit: 10, Offset: math.MaxInt - 5})
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Empty(t, notes)

		notes, _, err = s.ListNotes(ctx, acme.tenant.ID, model.NoteFilter{Limit: 10, Offset: -20})
		require.NoError(t, err)
		require.Len(t, notes, 2)

		first.IsArchived = true
		first.Priority = model.PriorityHigh
		first.UpdatedAt = base.Add(time.Minute)
		require.NoError(t, s.UpdateNote(ctx, first))

		_, total, err = s.ListNotes(ctx, acme.tenant.ID, model.NoteFilter{Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		_, total, err = s.ListNotes(ctx, acme.tenant.ID, model.NoteFilter{Archived: true, Priority: model.PriorityHigh, Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)

		require.NoError(t, s.DeleteNote(ctx, acme.tenant.ID, first.ID))
		_, err = s.GetNote(ctx, acme.tenant.ID, first.ID)
		require.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
	})

	t.Run("subscription update requires matching slug", func(t *testing.T) {
		_, err := s.UpdateTenantSubscription(ctx, acme.tenant.ID, globex.tenant.Slug, model.SubscriptionPro, model.Unlimited)
		require.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))

		updated, err := s.UpdateTenantSubscription(ctx, acme.tenant.ID, acme.tenant.Slug, model.SubscriptionPro, model.Unlimited)
		require.NoError(t, err)
		require.Equal(t, model.SubscriptionPro, updated.Subscription)
		require.Equal(t, model.Unlimited, updated.Settings.MaxNotes)

		reloaded, err := s.GetTenantByID(ctx, acme.tenant.ID)
		require.NoError(t, err)
		require.Equal(t, model.Unlimited, reloaded.Settings.MaxNotes)
	})

	t.Run("events paginate per tenant", func(t *testing.T) {
		require.NoError(t, s.EnsurePartition(ctx, acme.tenant.ID))
		require.NoError(t, s.EnsurePartition(ctx, globex.tenant.ID))

		base := time.Now().UTC().Truncate(time.Millisecond)
		// Inserted newest first, as concurrent workers may record them.
		for i := 2; i >= 0; i-- {
			e := model.NewEvent(acme.tenant.ID, acme.user.ID, model.EventNoteCreated, uuid.New(), map[string]int{"i": i})
			e.CreatedAt = base.Add(time.Duration(i) * time.Second)
			require.NoError(t, s.InsertEvent(ctx, &e))
		}
		foreign := model.NewEvent(globex.tenant.ID, globex.user.ID, model.EventNoteCreated, uuid.New(), nil)
		require.NoError(t, s.InsertEvent(ctx, &foreign))

		page, cursor, err := s.ListEventsPaginated(ctx, acme.tenant.ID, "", 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.NotEmpty(t, cursor)
		require.JSONEq(t, `{"i":0}`, string(page[0].Payload))
		require.JSONEq(t, `{"i":1}`, string(page[1].Payload))

		rest, cursor, err := s.ListEventsPaginated(ctx, acme.tenant.ID, cursor, 2)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		require.Empty(t, cursor)
		require.JSONEq(t, `{"i":2}`, string(rest[0].Payload))

		_, _, err = s.ListEventsPaginated(ctx, acme.tenant.ID, "not-a-uuid", 2)
		require.Equal(t, apperr.EInvalid, apperr.ErrorCode(err))
	})

	t.Run("tenants", func(t *testing.T) {
		dup := *acme.tenant
		dup.ID = uuid.New()
		require.Equal(t, apperr.EConflict, apperr.ErrorCode(s.CreateTenant(ctx, &dup)))

		n, err := s.CountTenants(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 2)

		tenants, err := s.ListTenants(ctx)
		require.NoError(t, err)
		slugs := make([]string, 0, len(tenants))
		for _, tn := range tenants {
			slugs = append(slugs, tn.Slug)
		}
		require.Contains(t, slugs, fmt.Sprintf("globex-%s", suffix))
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestLikePattern(t *testing.T) {
	require.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
	require.Equal(t, `%a\\b%`, likePattern(`a\b`))
}
