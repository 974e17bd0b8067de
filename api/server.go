/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/stock/*      Stock ledger and additions
  /api/proposals/*  Withdrawal proposal workflow
  /api/history      Transaction history
  /api/reports/*    Aggregation and reconstruction reports
  /api/reconcile    Replay-identity check
  /api/scenarios/*  Demo scenarios (dev only)

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

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Stock routes
		r.Route("/stock", func(r chi.Router) {
			r.Get("/", h.ListStock)
			r.Post("/additions", h.AddStock)
		})

		// Proposal routes
		r.Route("/proposals", func(r chi.Router) {
			r.Get("/", h.ListProposals)
			r.Post("/", h.SubmitProposal)
			r.Get("/{id}", h.GetProposal)
			r.Post("/{id}/approve", h.ApproveProposal)
			r.Post("/{id}/reject", h.RejectProposal)
		})

		// History
		r.Get("/history", h.History)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", h.Summary)
			r.Get("/stock-card", h.StockCard)
			r.Get("/monthly-flow", h.MonthlyFlow)
			r.Get("/proposal-status", h.ProposalStatusCounts)
			r.Get("/top-items", h.TopItems)
			r.Get("/top-departments", h.TopDepartments)
		})

		// Reconciliation
		r.Get("/reconcile", h.Reconcile)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
