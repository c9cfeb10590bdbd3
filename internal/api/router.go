package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/crafting-profit/internal/api/handlers"
	"github.com/ramonehamilton/crafting-profit/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	d := s.deps

	// Dashboard
	s.router.Method(http.MethodGet, "/", handlers.NewDashboardHandler(d.Refresher, d.Preferences, d.Defaults))

	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint (no JSON content-type requirement)
	s.router.Get("/ws", s.wsHub.ServeWs)

	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Profit routes
		profitsHandler := handlers.NewProfitsHandler(d.Refresher)
		r.Route("/profits", func(r chi.Router) {
			r.Get("/", profitsHandler.GetProfits)
			r.Get("/export", profitsHandler.ExportProfits)
		})
		r.Get("/professions", profitsHandler.GetProfessions)

		// Item routes
		itemsHandler := handlers.NewItemsHandler(d.Refresher, d.Chart)
		r.Route("/items/{itemID}", func(r chi.Router) {
			r.Get("/history", itemsHandler.GetHistory)
			r.Get("/chart", itemsHandler.GetChart)
		})

		// System routes
		systemHandler := handlers.NewSystemHandler(d.Refresher, d.Upstream)
		r.Get("/status", systemHandler.GetStatus)
		r.Post("/refresh", systemHandler.Refresh)
		r.Get("/version", systemHandler.GetVersion)

		// Settings routes
		if d.Preferences != nil {
			settingsHandler := handlers.NewSettingsHandler(d.Refresher, d.Preferences, d.Dispatcher, d.Defaults)
			r.Route("/settings", func(r chi.Router) {
				r.Get("/", settingsHandler.GetSettings)
				r.Put("/", settingsHandler.UpdateSettings)
			})
		}
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "crafting-profit",
		"clients": s.wsHub.ClientCount(),
	})
}
