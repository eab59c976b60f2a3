package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mosaic-cms/mosaic-auth/internal/acl"
	"github.com/mosaic-cms/mosaic-auth/internal/auth"
	"github.com/mosaic-cms/mosaic-auth/internal/authz"
	"github.com/mosaic-cms/mosaic-auth/internal/observability"
	"github.com/mosaic-cms/mosaic-auth/internal/platform/httpx"
	"github.com/mosaic-cms/mosaic-auth/internal/token"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthHandler    *auth.Handler
	ACLHandler     *acl.Handler
	AuthMiddleware auth.Middleware
	Tokens         *token.Service
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if params.Tokens != nil {
			if ok, err := params.Tokens.StorageReady(ctx); err != nil || !ok {
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	if params.ACLHandler != nil {
		r.Route("/acl", func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequirePrivileges(authz.Global("acl.view")))
			params.ACLHandler.MountRoutes(r)
		})
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
