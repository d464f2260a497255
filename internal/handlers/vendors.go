package handlers

import (
	"net/http"

	"procurement/internal/apperr"
	"procurement/models"

	"github.com/go-chi/chi/v5"
)

// ListVendorsHandler handles GET /api/vendors. Only active vendors are
// listed unless active=false is passed.
func (h *Handler) ListVendorsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.VendorFilter{
		ActiveOnly: q.Get("active") != "false",
		Category:   q.Get("category"),
		Search:     q.Get("search"),
	}
	vendors, err := h.svc.Vendors.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	count := len(vendors)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: vendors, Count: &count})
}

// CreateVendorHandler handles POST /api/vendors.
func (h *Handler) CreateVendorHandler(w http.ResponseWriter, r *http.Request) {
	var in models.VendorInput
	if err := decode(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Vendors.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Vendor created successfully", v)
}

func (h *Handler) GetVendorHandler(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Vendors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", v)
}

func (h *Handler) UpdateVendorHandler(w http.ResponseWriter, r *http.Request) {
	var p models.VendorPatch
	if err := decode(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.Vendors.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Vendor updated successfully", v)
}

// SetVendorActiveHandler handles PATCH /api/vendors/{id}/active.
func (h *Handler) SetVendorActiveHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsActive *bool `json:"isActive"`
	}
	if err := decode(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.IsActive == nil {
		h.writeError(w, r, apperr.Validation("isActive is required"))
		return
	}
	v, err := h.svc.Vendors.SetActive(r.Context(), chi.URLParam(r, "id"), *body.IsActive)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	message := "Vendor deactivated"
	if v.IsActive {
		message = "Vendor activated"
	}
	respond(w, http.StatusOK, message, v)
}
