package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Campaigns
		r.Get("/campaigns", h.ListCampaigns)
		r.Post("/campaigns", h.CreateCampaign)
		r.Get("/campaigns/{id}", h.GetCampaign)
		r.Get("/campaigns/{id}/stats", h.CampaignStats)

		// Negotiations (nested under campaigns)
		r.Get("/campaigns/{id}/negotiations", h.ListNegotiations)
		r.Post("/campaigns/{id}/negotiations", h.StartOutreach)

		// Negotiations (direct access)
		r.Get("/negotiations/{id}", h.GetNegotiation)
	})
}
