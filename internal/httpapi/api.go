// Package httpapi exposes the authentication and administration
// surface over HTTP. Handlers translate transport concerns into
// service calls; all policy decisions live in the auth and admin
// packages.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gatehouse.org/internal/admin"
	"gatehouse.org/internal/auth"
	"gatehouse.org/internal/obs"
)

// API holds the wired services behind the HTTP surface.
type API struct {
	auth    *auth.Service
	admin   *admin.Service
	db      *sql.DB
	version string

	rateBurst     int
	ratePerSecond int
}

// Option tweaks API construction.
type Option func(*API)

// WithRateLimit overrides the default per-client request budget.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		a.rateBurst = burst
		a.ratePerSecond = perSecond
	}
}

// New builds the API. db may be nil; readiness then reports only
// process liveness.
func New(authSvc *auth.Service, adminSvc *admin.Service, db *sql.DB, version string, opts ...Option) *API {
	a := &API{
		auth:          authSvc,
		admin:         adminSvc,
		db:            db,
		version:       version,
		rateBurst:     20,
		ratePerSecond: 10,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler assembles the router with the full middleware chain.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logging)
	r.Use(SecurityHeaders)
	r.Use(func(next http.Handler) http.Handler { return obs.Instrument(next) })

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return RateLimit(next, a.rateBurst, a.ratePerSecond)
		})

		r.Post("/auth/login", a.handleLogin)
		r.Post("/auth/refresh", a.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth)

			r.Get("/auth/me", a.handleMe)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", a.handleListUsers)
				r.Post("/", a.handleCreateUser)
				r.Get("/{id}", a.handleGetUser)
				r.Put("/{id}/password", a.handleUpdatePassword)
				r.Put("/{id}/role", a.handleChangeRole)
				r.Put("/{id}/status", a.handleSetStatus)
				r.Delete("/{id}", a.handleDeleteUser)
			})

			r.Get("/audit", a.handleAuditQuery)
		})
	})

	return r
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": a.version})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(ctx); err != nil {
			obs.SetReady(false)
			writeError(w, r, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
