package handlers

import (
	"net/http"
	"strconv"

	"procurement/internal/apperr"
	"procurement/models"

	"github.com/go-chi/chi/v5"
)

// ListRFPsHandler handles GET /api/rfps with status, search and paging.
func (h *Handler) ListRFPsHandler(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePageParams(r)
	f := models.RFPFilter{
		Status: models.RFPStatus(statusFilter(r)),
		Search: r.URL.Query().Get("search"),
	}
	rfps, pg, err := h.svc.RFPs.List(r.Context(), f, page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: rfps, Pagination: &pg})
}

// CreateRFPHandler handles POST /api/rfps. New RFPs always start as drafts.
func (h *Handler) CreateRFPHandler(w http.ResponseWriter, r *http.Request) {
	var in models.RFPInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	rfp, err := h.svc.RFPs.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "RFP created successfully", rfp)
}

// GetRFPHandler handles GET /api/rfps/{id}. Proposals are included unless
// proposals=false is passed.
func (h *Handler) GetRFPHandler(w http.ResponseWriter, r *http.Request) {
	withDetails := true
	if v := r.URL.Query().Get("proposals"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			withDetails = b
		}
	}
	rfp, err := h.svc.RFPs.Get(r.Context(), chi.URLParam(r, "id"), withDetails)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", rfp)
}

func (h *Handler) UpdateRFPHandler(w http.ResponseWriter, r *http.Request) {
	var p models.RFPPatch
	if err := decode(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	rfp, err := h.svc.RFPs.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "RFP updated successfully", rfp)
}

func (h *Handler) DeleteRFPHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RFPs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "RFP deleted successfully", nil)
}

// ChangeRFPStatusHandler handles PATCH /api/rfps/{id}/status.
func (h *Handler) ChangeRFPStatusHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.RFPStatus `json:"status"`
	}
	if err := decode(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if !body.Status.Valid() {
		h.writeError(w, r, apperr.Validation("Valid status is required: draft, sent, in_progress, or closed"))
		return
	}
	rfp, err := h.svc.RFPs.ChangeStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "RFP status updated to "+string(body.Status), rfp)
}
