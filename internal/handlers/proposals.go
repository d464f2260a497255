package handlers

import (
	"net/http"

	"procurement/models"

	"github.com/go-chi/chi/v5"
)

// ListProposalsHandler handles GET /api/proposals. Results are ranked by
// AI score, then by most recently received.
func (h *Handler) ListProposalsHandler(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePageParams(r)
	q := r.URL.Query()
	f := models.ProposalFilter{
		RFPID:    q.Get("rfpId"),
		VendorID: q.Get("vendorId"),
		Status:   models.ProposalStatus(statusFilter(r)),
	}
	list, pg, err := h.svc.Proposals.List(r.Context(), f, page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: list, Pagination: &pg})
}

func (h *Handler) CreateProposalHandler(w http.ResponseWriter, r *http.Request) {
	var in models.ProposalInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.svc.Proposals.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Proposal created successfully", p)
}

func (h *Handler) GetProposalHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Proposals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", p)
}

func (h *Handler) UpdateProposalHandler(w http.ResponseWriter, r *http.Request) {
	var patch models.ProposalPatch
	if err := decode(w, r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.svc.Proposals.UpdateFields(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Proposal updated successfully", p)
}

// ChangeProposalStatusHandler handles PATCH /api/proposals/{id}/status.
func (h *Handler) ChangeProposalStatusHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status         models.ProposalStatus `json:"status"`
		EvaluatorNotes string                `json:"evaluatorNotes"`
	}
	if err := decode(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.svc.Proposals.ChangeStatus(r.Context(), chi.URLParam(r, "id"), body.Status, body.EvaluatorNotes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Proposal status updated to "+string(body.Status), p)
}

// AnalyzeProposalHandler handles POST /api/proposals/{id}/analyze.
func (h *Handler) AnalyzeProposalHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Proposals.Analyze(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Proposal analyzed successfully", p)
}
