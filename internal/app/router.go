package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shopledger/shopledger/internal/analytics"
	"github.com/shopledger/shopledger/internal/auth"
	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/invoices"
	"github.com/shopledger/shopledger/internal/ledger"
	"github.com/shopledger/shopledger/internal/observability"
	"github.com/shopledger/shopledger/internal/products"
	"github.com/shopledger/shopledger/internal/rbac"
	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler       *auth.Handler
	CustomerHandler   *customers.Handler
	LedgerHandler     *ledger.Handler
	InvoiceHandler    *invoices.Handler
	ProductHandler    *products.Handler
	AnalyticsHandler  *analytics.Handler
	PermissionHandler *rbac.Handler
	JobHandler        *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with shopledger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountAuthRoutes)
	r.Route("/users", params.AuthHandler.MountUserRoutes)
	r.Route("/customers", func(r chi.Router) {
		params.CustomerHandler.MountRoutes(r)
		params.LedgerHandler.MountRoutes(r)
	})
	r.Route("/invoices", params.InvoiceHandler.MountRoutes)
	r.Route("/products", params.ProductHandler.MountRoutes)
	r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
	r.Route("/permissions", params.PermissionHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
