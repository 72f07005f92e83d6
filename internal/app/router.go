package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockpit-erp/stockpit-erp/internal/closing"
	"github.com/stockpit-erp/stockpit-erp/internal/ledger"
	"github.com/stockpit-erp/stockpit-erp/internal/masterdata"
	"github.com/stockpit-erp/stockpit-erp/internal/observability"
	"github.com/stockpit-erp/stockpit-erp/internal/pos"
	"github.com/stockpit-erp/stockpit-erp/internal/revenue"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	LedgerHandler     *ledger.Handler
	PosHandler        *pos.Handler
	ClosingHandler    *closing.Handler
	RevenueHandler    *revenue.Handler
	MasterDataHandler *masterdata.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Stockpit defaults.
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

	r.Route("/api/v1", func(api chi.Router) {
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(api)
		}
		if params.PosHandler != nil {
			params.PosHandler.MountRoutes(api)
		}
		if params.ClosingHandler != nil {
			params.ClosingHandler.MountRoutes(api)
		}
		if params.RevenueHandler != nil {
			params.RevenueHandler.MountRoutes(api)
		}
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(api)
		}
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	return r
}
