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
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through the logrus logger
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend (origins from config)

ROUTE GROUPS:
  /api/stores/*         Stores, goals, results, locks, per-store analytics
  /api/weights/*        Weight rebalancing
  /api/dashboard/*      Network dashboard
  /api/evaluations/*    Evaluation review
  /api/imports/*        Spreadsheet imports
  /api/scenarios/*      Demo scenarios
  /api/admin/*          Admin operations

SECURITY NOTE:
  No authentication middleware. The X-User and X-User-Role headers are
  trusted as sent; put the server behind an authenticating proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: h.Log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", headerUser, headerRole},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Store routes
		r.Route("/stores", func(r chi.Router) {
			r.Get("/", h.ListStores)
			r.Post("/", h.CreateStore)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetStore)
				r.Get("/audit", h.GetAudit)

				r.Get("/goals/{period}", h.GetGoals)
				r.Put("/goals/{period}", h.SaveGoals)
				r.Get("/results/{period}", h.GetResults)
				r.Put("/results/{period}", h.SaveResults)
				r.Put("/collaborator-results/{period}", h.SaveCollaboratorResults)
				r.Put("/locks/{period}", h.SetLock)

				r.Get("/score/{period}", h.GetScore)
				r.Get("/gaps/{period}", h.GetGaps)
				r.Get("/history/{period}", h.GetHistory)
				r.Get("/pillars/{period}", h.GetPillars)
				r.Get("/occupancy/{period}", h.GetOccupancy)
				r.Put("/occupancy/{period}", h.SaveOccupancy)

				r.Get("/evaluations", h.ListEvaluations)
				r.Post("/evaluations", h.CreateEvaluation)
			})
		})

		// Weight routes
		r.Post("/weights/rebalance", h.Rebalance)

		// Dashboard routes
		r.Get("/dashboard/{period}", h.GetDashboard)

		// Evaluation review routes
		r.Route("/evaluations", func(r chi.Router) {
			r.Post("/{id}/approve", h.ApproveEvaluation)
			r.Post("/{id}/reject", h.RejectEvaluation)
		})

		// Import routes
		r.Route("/imports", func(r chi.Router) {
			r.Get("/", h.ListImports)
			r.Post("/{kind}", h.Import)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/lock-results", h.RunLockScheduler)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Store Performance Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Store Performance Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/stores">/api/stores</a> - List stores</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
<li><a href="/api/imports">/api/imports</a> - Import history</li>
</ul>
</body>
</html>`))
	})

	return r
}
