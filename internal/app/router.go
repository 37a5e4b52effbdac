package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/multilazos/multilazos/internal/installments"
	"github.com/multilazos/multilazos/internal/observability"
	"github.com/multilazos/multilazos/internal/payments"
	"github.com/multilazos/multilazos/internal/reconciliation"
	"github.com/multilazos/multilazos/internal/sales"
	"github.com/multilazos/multilazos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger                *slog.Logger
	Config                *Config
	SalesHandler          *sales.Handler
	InstallmentsHandler   *installments.Handler
	PaymentsHandler       *payments.Handler
	ReconciliationHandler *reconciliation.Handler
	JobHandler            *jobs.Handler
	Metrics               *observability.Metrics
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

	if params.SalesHandler != nil {
		r.Route("/sales", params.SalesHandler.MountRoutes)
	}
	if params.InstallmentsHandler != nil {
		r.Route("/installments", func(r chi.Router) {
			params.InstallmentsHandler.MountRoutes(r)
			if params.PaymentsHandler != nil {
				r.Post("/{id}/payments", params.PaymentsHandler.AssignToInstallment)
			}
		})
	}
	if params.PaymentsHandler != nil {
		r.Route("/payments", params.PaymentsHandler.MountRoutes)
	}
	if params.ReconciliationHandler != nil {
		r.Route("/installment-status", params.ReconciliationHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
