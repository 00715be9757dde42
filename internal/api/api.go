package api

import (
	"time"

	"go.uber.org/zap"

	"notes-saas/internal/auth"
	"notes-saas/internal/config"
	"notes-saas/internal/manager"
	"notes-saas/internal/notes"
	"notes-saas/internal/storage"
)

// API holds the services the HTTP handlers delegate to. Handlers only decode
// requests and render results; tenant isolation, role checks and quotas live
// in the services.
type API struct {
	Auth       *auth.Service
	Middleware *auth.Middleware
	Notes      *notes.Service
	TenantMgr  *manager.TenantManager
	Storage    storage.Store
	Cfg        *config.Config

	log     *zap.Logger
	started time.Time
}

func NewAPI(
	authSvc *auth.Service,
	mw *auth.Middleware,
	notesSvc *notes.Service,
	tm *manager.TenantManager,
	db storage.Store,
	cfg *config.Config,
	log *zap.Logger,
) *API {
	return &API{
		Auth:       authSvc,
		Middleware: mw,
		Notes:      notesSvc,
		TenantMgr:  tm,
		Storage:    db,
		Cfg:        cfg,
		log:        log.Named("api"),
		started:    time.Now(),
	}
}
