package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rebalance planning routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rebalance", func(r chi.Router) {
		r.Post("/plan", h.HandlePlan)
		r.Get("/history", h.HandleHistory)
	})
}
