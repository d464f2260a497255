package handlers

import (
	"net/http"

	"procurement/internal/apperr"
	"procurement/internal/intake"
)

// EmailWebhookHandler handles POST /api/email-webhook. It answers 201
// when the email produced a new proposal and 200 when it replaced one.
func (h *Handler) EmailWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var e intake.Email
	if err := decode(w, r, &e); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, created, err := h.svc.Intake.Receive(r.Context(), e)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnexpected {
			err = apperr.Unexpected("Failed to process email", err)
		}
		h.writeError(w, r, err)
		return
	}
	if created {
		respond(w, http.StatusCreated, "Proposal created from email", p)
		return
	}
	respond(w, http.StatusOK, "Proposal updated from email", p)
}
