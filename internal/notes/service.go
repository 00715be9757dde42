// Package notes is the tenant-scoped note access layer. Every operation
// takes the request's isolation scope and filters by its tenant id; tenant
// ids supplied by callers are never consulted.
package notes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notes-saas/internal/apperr"
	"notes-saas/internal/entitlement"
	"notes-saas/internal/messaging"
	"notes-saas/internal/metrics"
	"notes-saas/internal/model"
	"notes-saas/internal/tenancy"
)

type Store interface {
	CreateNote(ctx context.Context, n *model.Note) error
	ListNotes(ctx context.Context, tenantID uuid.UUID, f model.NoteFilter) ([]model.Note, int, error)
	GetNote(ctx context.Context, tenantID, id uuid.UUID) (*model.Note, error)
	UpdateNote(ctx context.Context, n *model.Note) error
	DeleteNote(ctx context.Context, tenantID, id uuid.UUID) error
}

var ErrNoteNotFound = &apperr.Error{Code: apperr.ENotFound, Msg: "Note not found."}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalNotes  int  `json:"totalNotes"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// NewPagination derives the page metadata from a total and page geometry.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalNotes:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

type ListResult struct {
	Notes      []model.Note
	Pagination Pagination
	Usage      entitlement.Usage
}

type Service struct {
	store  Store
	quota  *entitlement.Engine
	events messaging.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store Store, quota *entitlement.Engine, events messaging.Publisher, log *zap.Logger) *Service {
	return &Service{
		store:  store,
		quota:  quota,
		events: events,
		log:    log.Named("notes"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, scope *tenancy.Scope, req CreateNoteRequest) (*model.Note, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.quota.CheckNoteCreate(ctx, scope.Tenant); err != nil {
		if apperr.Is(err, apperr.EEntitlement) {
			metrics.EntitlementRejections.WithLabelValues(scope.TenantID().String()).Inc()
		}
		return nil, err
	}

	now := s.now()
	n := &model.Note{
		ID:        uuid.New(),
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		Priority:  req.Priority,
		TenantID:  scope.TenantID(),
		CreatedBy: scope.UserID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	n.Creator = &model.NoteCreator{ID: scope.UserID(), Email: scope.User.Email}

	metrics.NotesCreated.WithLabelValues(n.TenantID.String()).Inc()
	s.emit(ctx, scope, model.EventNoteCreated, n.ID, map[string]string{"title": n.Title})
	return n, nil
}

func (s *Service) List(ctx context.Context, scope *tenancy.Scope, req ListNotesRequest) (*ListResult, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	notes, total, err := s.store.ListNotes(ctx, scope.TenantID(), req.Filter())
	if err != nil {
		return nil, err
	}
	usage, err := s.quota.Usage(ctx, scope.Tenant)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Notes:      notes,
		Pagination: NewPagination(req.Page, req.Limit, total),
		Usage:      usage,
	}, nil
}

func (s *Service) Get(ctx context.Context, scope *tenancy.Scope, id uuid.UUID) (*model.Note, error) {
	n, err := s.store.GetNote(ctx, scope.TenantID(), id)
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

// Update applies the supplied fields only. The quota is not re-checked.
func (s *Service) Update(ctx context.Context, scope *tenancy.Scope, id uuid.UUID, req UpdateNoteRequest) (*model.Note, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n, err := s.store.GetNote(ctx, scope.TenantID(), id)
	if err != nil {
		return nil, notFound(err)
	}
	if req.Empty() {
		return n, nil
	}

	req.Apply(n)
	n.UpdatedAt = s.now()
	if err := s.store.UpdateNote(ctx, n); err != nil {
		return nil, notFound(err)
	}

	s.emit(ctx, scope, model.EventNoteUpdated, n.ID, nil)
	return n, nil
}

func (s *Service) Delete(ctx context.Context, scope *tenancy.Scope, id uuid.UUID) error {
	if err := s.store.DeleteNote(ctx, scope.TenantID(), id); err != nil {
		return notFound(err)
	}
	s.emit(ctx, scope, model.EventNoteDeleted, id, nil)
	return nil
}

func (s *Service) emit(ctx context.Context, scope *tenancy.Scope, typ model.EventType, resourceID uuid.UUID, payload any) {
	e := model.NewEvent(scope.TenantID(), scope.UserID(), typ, resourceID, payload)
	if err := s.events.PublishEvent(ctx, e); err != nil {
		s.log.Warn("failed to publish event",
			zap.Stringer("tenant_id", e.TenantID),
			zap.String("type", string(typ)),
			zap.Error(err))
	}
}

// notFound maps every not-found flavour to the same caller-facing error so
// a foreign tenant's note is indistinguishable from a missing one.
func notFound(err error) error {
	if apperr.Is(err, apperr.ENotFound) {
		return ErrNoteNotFound
	}
	return err
}
