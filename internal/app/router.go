package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/masterdata"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	ProcurementHandler *procurement.Handler
	MasterDataHandler  *masterdata.Handler
	TenantHandler      *tenant.Handler
	JobHandler         *jobs.Handler
	TenantMiddleware   tenant.Middleware
}

// NewRouter constructs the chi router. Login is the only open endpoint
// besides health; everything else runs behind the tenant middleware.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountPublicRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.TenantMiddleware.Require)
		r.Route("/auth/session", params.AuthHandler.MountProtectedRoutes)
		if params.TenantHandler != nil {
			r.Route("/tenant", params.TenantHandler.MountRoutes)
		}
		params.ProcurementHandler.MountRoutes(r)
		if params.MasterDataHandler != nil {
			r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
