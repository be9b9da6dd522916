/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/tenants/*     Resident management, ledgers, arrears
  /api/landlords/*   Landlord deduction breakdowns
  /api/payments/*    Payment lifecycle
  /api/properties/*  Unit catalog
  /api/notify/*      Notification feeds
  /api/admin/*       Cache rebuild and audit
  /health            Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. CORS origins
// default to local dashboard development when none are given.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Tenant routes
		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", h.ListTenants)
			r.Post("/", h.CreateTenant)
			r.Get("/{id}", h.GetTenant)
			r.Put("/{id}", h.UpdateTenant)
			r.Post("/{id}/archive", h.ArchiveTenant)
			r.Get("/{id}/arrears", h.GetTenantArrears)
			r.Get("/{id}/ledger", h.GetTenantLedger)
			r.Get("/{id}/ledger/export", h.ExportTenantLedger)
			r.Get("/{id}/projection", h.GetTenantProjection)
			r.Get("/{id}/payments", h.ListTenantPayments)
		})

		// Landlord routes
		r.Route("/landlords", func(r chi.Router) {
			r.Get("/{id}/arrears", h.GetLandlordArrears)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.RecordPayment)
			r.Post("/{id}/confirm", h.ConfirmPayment)
			r.Post("/{id}/void", h.VoidPayment)
		})

		// Property routes
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", h.ListProperties)
			r.Post("/", h.CreateProperty)
			r.Get("/{id}", h.GetProperty)
			r.Post("/{id}/units", h.AddUnit)
			r.Put("/{id}/units/{name}", h.UpdateUnit)
			r.Get("/{id}/floors", h.GetPropertyFloors)
		})

		// Notification feeds
		r.Route("/notify", func(r chi.Router) {
			r.Get("/arrears", h.NotifyArrears)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/rebuild-balances", h.RebuildBalances)
			r.Get("/balance-audit", h.BalanceAudit)
		})
	})

	r.Get("/health", h.Health)

	return r
}
