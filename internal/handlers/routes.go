package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/ping", h.PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		r.Get("/ai/health", h.AIHealthHandler)

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", h.ListVendorsHandler)
			r.Post("/", h.CreateVendorHandler)
			r.Get("/{id}", h.GetVendorHandler)
			r.Put("/{id}", h.UpdateVendorHandler)
			r.Patch("/{id}/active", h.SetVendorActiveHandler)
		})

		r.Route("/rfps", func(r chi.Router) {
			r.Get("/", h.ListRFPsHandler)
			r.Post("/", h.CreateRFPHandler)
			r.Get("/{id}", h.GetRFPHandler)
			r.Put("/{id}", h.UpdateRFPHandler)
			r.Delete("/{id}", h.DeleteRFPHandler)
			r.Patch("/{id}/status", h.ChangeRFPStatusHandler)
		})

		r.Route("/proposals", func(r chi.Router) {
			r.Get("/", h.ListProposalsHandler)
			r.Post("/", h.CreateProposalHandler)
			r.Get("/{id}", h.GetProposalHandler)
			r.Put("/{id}", h.UpdateProposalHandler)
			r.Patch("/{id}/status", h.ChangeProposalStatusHandler)
			r.Post("/{id}/analyze", h.AnalyzeProposalHandler)
		})

		r.Post("/email-webhook", h.EmailWebhookHandler)
	})
}
