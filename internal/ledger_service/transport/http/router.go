package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/loyaltyworks/points-platform/internal/ledger_service/middleware"
)

// NewRouter wires the full HTTP surface: a health probe, the authenticated
// user surface, and the admin surface behind RequireAdmin.
func NewRouter(
	ledgerHandler *LedgerHandler,
	redemptionHandler *RedemptionHandler,
	adminHandler *AdminHandler,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(logger))
		ledgerHandler.RegisterRoutes(r)
		redemptionHandler.RegisterRoutes(r)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logger))
			adminHandler.RegisterRoutes(r)
		})
	})

	return r
}
