// internal/manager/tenant_manager.go
package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"notes-saas/internal/apperr"
	"notes-saas/internal/consumer"
	"notes-saas/internal/entitlement"
	"notes-saas/internal/messaging"
	"notes-saas/internal/model"
	"notes-saas/internal/storage"
	"notes-saas/internal/tenancy"
	"notes-saas/internal/worker"
)

// TenantManager owns the tenant lifecycle: onboarding, subscription changes
// and the per-tenant event pipeline. With a nil RabbitMQ client events are
// recorded directly on the worker pool instead of going through a queue.
type TenantManager struct {
	rabbitConn *amqp.Connection
	rabbit     *messaging.RabbitClient
	storage    storage.Store
	pool       *worker.WorkerPool
	prefetch   int
	log        *zap.Logger

	mu        sync.RWMutex
	tenants   map[uuid.UUID]struct{}
	consumers map[uuid.UUID]*consumer.Consumer
}

var _ messaging.Publisher = (*TenantManager)(nil)

func NewTenantManager(
	rabbit *messaging.RabbitClient,
	storage storage.Store,
	pool *worker.WorkerPool,
	prefetch int,
	log *zap.Logger,
) *TenantManager {
	tm := &TenantManager{
		rabbit:    rabbit,
		storage:   storage,
		pool:      pool,
		prefetch:  prefetch,
		log:       log.Named("tenant_manager"),
		tenants:   make(map[uuid.UUID]struct{}),
		consumers: make(map[uuid.UUID]*consumer.Consumer),
	}
	if rabbit != nil {
		tm.rabbitConn = rabbit.GetConnection()
	}
	return tm
}

// AddTenant prepares a tenant's event partition and, when RabbitMQ is
// enabled, its queue and consumer. It is idempotent.
func (tm *TenantManager) AddTenant(ctx context.Context, tenantID uuid.UUID) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.tenants[tenantID]; exists {
		return nil
	}

	if err := tm.storage.EnsurePartition(ctx, tenantID); err != nil {
		return err
	}

	if tm.rabbit != nil {
		if err := tm.rabbit.DeclareQueue(tenantID.String()); err != nil {
			return err
		}

		c, err := consumer.StartConsumer(tm.rabbitConn, tenantID.String(), tm.prefetch, tm.handleEvent, tm.log)
		if err != nil {
			return err
		}
		tm.consumers[tenantID] = c
	}

	tm.tenants[tenantID] = struct{}{}
	tm.log.Info("tenant registered", zap.Stringer("tenant_id", tenantID))
	return nil
}

// Onboard creates a free-tier tenant and registers it.
func (tm *TenantManager) Onboard(ctx context.Context, name, slug string) (*model.Tenant, error) {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" || slug == "" {
		return nil, apperr.New(apperr.EInvalid, "Tenant name and slug are required.")
	}

	now := time.Now().UTC()
	t := &model.Tenant{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		Settings:  model.TenantSettings{Theme: "light"},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entitlement.ApplySubscription(t, model.SubscriptionFree)

	if err := tm.storage.CreateTenant(ctx, t); err != nil {
		return nil, err
	}
	if err := tm.AddTenant(ctx, t.ID); err != nil {
		return nil, fmt.Errorf("register tenant %s: %w", slug, err)
	}
	return t, nil
}

// Upgrade moves the scope's tenant to the pro tier. The slug must name the
// acting tenant and the actor must be an admin.
func (tm *TenantManager) Upgrade(ctx context.Context, scope *tenancy.Scope, slug string) (*model.Tenant, error) {
	if err := tenancy.RequireRole(scope, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := tenancy.RequireTenantSlug(scope, slug); err != nil {
		return nil, err
	}

	quota := entitlement.DeriveQuota(model.SubscriptionPro)
	t, err := tm.storage.UpdateTenantSubscription(ctx, scope.TenantID(), slug, model.SubscriptionPro, quota.MaxNotes)
	if err != nil {
		return nil, err
	}

	tm.log.Info("tenant upgraded",
		zap.Stringer("tenant_id", t.ID),
		zap.String("subscription", string(t.Subscription)))

	from := scope.Tenant.Subscription
	scope.Tenant = t
	tm.emit(ctx, model.NewEvent(t.ID, scope.UserID(), model.EventTenantUpgraded, t.ID,
		map[string]string{"from": string(from), "to": string(t.Subscription)}))
	return t, nil
}

// ListEvents returns the scope tenant's audit trail. Admin only.
func (tm *TenantManager) ListEvents(ctx context.Context, scope *tenancy.Scope, cursor string, limit int) ([]model.Event, string, error) {
	if err := tenancy.RequireRole(scope, model.RoleAdmin); err != nil {
		return nil, "", err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return tm.storage.ListEventsPaginated(ctx, scope.TenantID(), cursor, limit)
}

// PublishEvent routes e to its tenant's queue, or records it directly when
// RabbitMQ is disabled.
func (tm *TenantManager) PublishEvent(ctx context.Context, e model.Event) error {
	if tm.rabbit != nil {
		return tm.rabbit.PublishEvent(ctx, e)
	}
	if !tm.pool.Submit(tm.recordTask(e)) {
		return fmt.Errorf("event pipeline stopped")
	}
	return nil
}

// emit publishes and logs failures; events never fail the request.
func (tm *TenantManager) emit(ctx context.Context, e model.Event) {
	if err := tm.PublishEvent(ctx, e); err != nil {
		tm.log.Warn("failed to publish event",
			zap.Stringer("tenant_id", e.TenantID),
			zap.String("type", string(e.Type)),
			zap.Error(err))
	}
}

func (tm *TenantManager) recordTask(e model.Event) worker.Task {
	return worker.Task{
		TenantID: e.TenantID.String(),
		Run: func(ctx context.Context) error {
			return tm.storage.InsertEvent(ctx, &e)
		},
	}
}

// handleEvent records a consumed event on the worker pool and settles its
// delivery once the insert finishes.
func (tm *TenantManager) handleEvent(e model.Event, ack consumer.Ack) bool {
	task := tm.recordTask(e)
	run := task.Run
	task.Run = func(ctx context.Context) error {
		err := run(ctx)
		ack(err)
		return err
	}
	return tm.pool.Submit(task)
}

// ListTenantIDs returns all currently registered tenant UUIDs
func (tm *TenantManager) ListTenantIDs() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	ids := make([]string, 0, len(tm.tenants))
	for id := range tm.tenants {
		ids = append(ids, id.String())
	}
	return ids
}

// ShutdownAll stops every tenant consumer, drains the worker pool so queued
// events are recorded and acknowledged, then closes the consumer channels.
func (tm *TenantManager) ShutdownAll() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for _, c := range tm.consumers {
		c.Stop()
	}
	tm.pool.Stop()
	for id, c := range tm.consumers {
		if err := c.Close(); err != nil {
			tm.log.Warn("failed to close consumer channel", zap.Stringer("tenant_id", id), zap.Error(err))
		}
	}
	tm.consumers = make(map[uuid.UUID]*consumer.Consumer)
	tm.log.Info("event pipeline stopped")
}
