package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"notes-saas/internal/api/render"
	"notes-saas/internal/apperr"
	"notes-saas/internal/auth"
	_ "notes-saas/internal/docs"
	"notes-saas/internal/metrics"
	"notes-saas/internal/model"
)

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(a.log),
		instrument,
		recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   a.Cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Error(w, r, apperr.New(apperr.ENotFound, "Route not found."))
	})

	// Public
	r.Get("/health", a.Health)
	r.Get("/ready", a.Ready)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	limiter := newIPLimiter(a.Cfg.RateLimit.RPS, a.Cfg.RateLimit.Burst)

	r.Route("/api", func(r chi.Router) {
		r.With(limiter.Limit).Post("/auth/login", a.Login)
		r.Post("/auth/logout", a.Logout)

		// Secured
		r.Group(func(r chi.Router) {
			r.Use(a.Middleware.Authenticate)

			r.Get("/auth/profile", a.Profile)
			r.With(auth.RequireRole(model.RoleAdmin)).Post("/auth/invite", a.Invite)

			r.Route("/notes", func(r chi.Router) {
				r.Post("/", a.CreateNote)
				r.Get("/", a.ListNotes)
				r.Get("/{id}", a.GetNote)
				r.Put("/{id}", a.UpdateNote)
				r.Delete("/{id}", a.DeleteNote)
			})

			r.Get("/tenants/info", a.TenantInfo)
			r.With(auth.RequireRole(model.RoleAdmin)).Get("/tenants/events", a.ListEvents)
			r.With(auth.RequireRole(model.RoleAdmin)).Post("/tenants/{slug}/upgrade", a.UpgradeTenant)
		})
	})

	return r
}
