// Package httpapi exposes the auth core over HTTP: session endpoints for
// clients, admin endpoints for the user-management collaborator, and the usual
// health/metrics plumbing.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"askhub.org/internal/auth"
	"askhub.org/internal/obs"
)

// ReadyProbe checks the dependencies the service cannot serve without.
type ReadyProbe struct {
	DB *sql.DB
}

// Check pings the identity store when one is configured.
func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	router     chi.Router
	auth       *auth.Service
	logger     *zap.Logger
	readyProbe ReadyProbe
	version    string
}

// New wires the router. Auth endpoints are rate limited per client IP; every
// admin route requires an access token with the admin role.
func New(svc *auth.Service, rp ReadyProbe, logger *zap.Logger, version string) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &API{
		router:     chi.NewRouter(),
		auth:       svc,
		logger:     logger,
		readyProbe: rp,
		version:    version,
	}

	r := a.router
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders)
	r.Use(RequestLogging(logger))

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		r.Use(RateLimit(20, 10))
		r.Post("/login", a.handleLogin)
		r.Post("/register", a.handleRegister)
		r.Post("/logout", a.handleLogout)
		r.Post("/refresh", a.handleRefresh)
		r.Post("/verify-email", a.handleVerifyEmail)
		r.With(a.withAuth).Get("/me", a.handleMe)
	})

	r.Route("/v1/admin/users/{id}", func(r chi.Router) {
		r.Use(a.withAuth)
		r.Use(a.requireRole(auth.RoleAdmin))
		r.Put("/role", a.handleChangeRole)
		r.Put("/active", a.handleSetActive)
		r.Post("/revoke", a.handleRevoke)
	})

	return a
}

// Handler returns the instrumented root handler.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "askhub-api",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
