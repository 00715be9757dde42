package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"notes-saas/internal/api/render"
	"notes-saas/internal/apperr"
	"notes-saas/internal/auth"
	"notes-saas/internal/logger"
	"notes-saas/internal/model"
	"notes-saas/internal/tenancy"
)

var errBadBody = apperr.New(apperr.EInvalid, "Invalid request body.")

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

func tenantView(t *model.Tenant) auth.TenantView {
	maxNotes := t.Settings.MaxNotes
	return auth.TenantView{
		ID:           t.ID,
		Name:         t.Name,
		Slug:         t.Slug,
		Subscription: t.Subscription,
		MaxNotes:     &maxNotes,
	}
}

// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body auth.LoginRequest true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400,401,403,429 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	res, err := a.Auth.Login(r.Context(), req)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.OK(w, http.StatusOK, render.M{
		"message": "Login successful.",
		"token":   res.Token,
		"user":    res.User,
	})
}

// Logout is a no-op: tokens are stateless and the client discards its copy.
//
// @Summary Log out
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	render.OK(w, http.StatusOK, render.M{"message": "Logout successful."})
}

// @Summary Current user profile
// @Tags Auth
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/profile [get]
func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	scope := tenancy.FromContext(r.Context())
	render.OK(w, http.StatusOK, render.M{"user": a.Auth.Profile(scope)})
}

// @Summary Invite a user into the caller's tenant
// @Tags Auth
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body auth.InviteRequest true "Invitee"
// @Success 201 {object} map[string]interface{}
// @Failure 400,403 {object} map[string]interface{}
// @Router /api/auth/invite [post]
func (a *API) Invite(w http.ResponseWriter, r *http.Request) {
	var req auth.InviteRequest
	if err := decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	user, err := a.Auth.Invite(r.Context(), tenancy.FromContext(r.Context()), req)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.OK(w, http.StatusCreated, render.M{
		"message": "User invited successfully.",
		"user":    user,
	})
}

// @Summary Tenant information
// @Tags Tenants
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/tenants/info [get]
func (a *API) TenantInfo(w http.ResponseWriter, r *http.Request) {
	scope := tenancy.FromContext(r.Context())
	render.OK(w, http.StatusOK, render.M{"tenant": tenantView(scope.Tenant)})
}

// @Summary Upgrade the caller's tenant to pro
// @Tags Tenants
// @Security ApiKeyAuth
// @Produce json
// @Param slug path string true "Tenant slug"
// @Success 200 {object} map[string]interface{}
// @Failure 403,404 {object} map[string]interface{}
// @Router /api/tenants/{slug}/upgrade [post]
func (a *API) UpgradeTenant(w http.ResponseWriter, r *http.Request) {
	scope := tenancy.FromContext(r.Context())
	t, err := a.TenantMgr.Upgrade(r.Context(), scope, chi.URLParam(r, "slug"))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.OK(w, http.StatusOK, render.M{
		"message": "Tenant upgraded to Pro successfully.",
		"tenant":  tenantView(t),
	})
}

// @Summary List the tenant's audit events
// @Tags Tenants
// @Security ApiKeyAuth
// @Produce json
// @Param cursor query string false "Pagination cursor"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /api/tenants/events [get]
func (a *API) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	events, next, err := a.TenantMgr.ListEvents(r.Context(), tenancy.FromContext(r.Context()), q.Get("cursor"), limit)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.OK(w, http.StatusOK, render.M{
		"events":     events,
		"nextCursor": next,
	})
}

// @Summary Liveness
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, http.StatusOK, render.M{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(a.started).Seconds(),
	})
}

// @Summary Readiness
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.Storage.Ping(r.Context()); err != nil {
		logger.FromContext(r.Context()).Warn("store not ready", zap.Error(err))
		render.JSON(w, http.StatusServiceUnavailable, render.M{"status": "unavailable"})
		return
	}
	render.JSON(w, http.StatusOK, render.M{"status": "ready"})
}
