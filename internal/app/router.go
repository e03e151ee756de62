package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tahiry-mg/tahiry/internal/accounts"
	"github.com/tahiry-mg/tahiry/internal/columns"
	"github.com/tahiry-mg/tahiry/internal/fiscal"
	"github.com/tahiry-mg/tahiry/internal/geography"
	"github.com/tahiry-mg/tahiry/internal/observability"
	"github.com/tahiry-mg/tahiry/internal/projects"
	tablehttp "github.com/tahiry-mg/tahiry/internal/table/http"
	"github.com/tahiry-mg/tahiry/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	TableHandler     *tablehttp.Handler
	FiscalHandler    *fiscal.Handler
	AccountsHandler  *accounts.Handler
	ColumnsHandler   *columns.Handler
	GeographyHandler *geography.Handler
	ProjectsHandler  *projects.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.GeographyHandler != nil {
			params.GeographyHandler.MountRoutes(r)
		}
		if params.FiscalHandler != nil {
			params.FiscalHandler.MountRoutes(r)
		}
		if params.AccountsHandler != nil {
			params.AccountsHandler.MountRoutes(r)
		}
		if params.ColumnsHandler != nil {
			params.ColumnsHandler.MountRoutes(r)
		}
		if params.ProjectsHandler != nil {
			params.ProjectsHandler.MountRoutes(r)
		}
		if params.TableHandler != nil {
			params.TableHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}
