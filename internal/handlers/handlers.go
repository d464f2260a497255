package handlers

import (
	"net/http"
	"time"

	"procurement/internal/apperr"

	"go.uber.org/zap"
)

// Handler serves the procurement API on top of the domain services.
type Handler struct {
	svc        Services
	logger     *zap.Logger
	production bool
}

// NewHandler creates a Handler. production hides the causes of internal
// errors from responses.
func NewHandler(svc Services, logger *zap.Logger, production bool) *Handler {
	return &Handler{svc: svc, logger: logger, production: production}
}

// PingHandler answers "ok" to show the process is up.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// HealthHandler handles GET /api/health by pinging the database.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Store.Ping(r.Context()); err != nil {
		h.writeError(w, r, apperr.Unexpected("Database connection failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Database connected successfully",
		"timestamp": time.Now().UTC(),
	})
}

// AIHealthHandler handles GET /api/ai/health.
func (h *Handler) AIHealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.svc.AI == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"message": "AI service is not configured",
		})
		return
	}
	health := h.svc.AI.HealthCheck(r.Context())
	if !health.Healthy {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "AI service health check failed",
			"data":    health,
		})
		return
	}
	respond(w, http.StatusOK, "AI service is working!", health)
}
