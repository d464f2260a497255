package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"procurement/internal/apperr"
	"procurement/models"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 1 << 20

	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

type envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	Data       any                `json:"data,omitempty"`
	Count      *int               `json:"count,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeError renders err with the status its kind maps to. Causes of
// unexpected failures are only shown outside production.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := map[string]any{"success": false}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body["message"] = appErr.Message
		if len(appErr.Errors) > 0 {
			body["errors"] = appErr.Errors
		}
		for k, v := range appErr.Details {
			body[k] = v
		}
		if appErr.Existing != nil {
			body["data"] = appErr.Existing
		}
	} else {
		body["message"] = "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		if !h.production {
			cause := err
			if appErr != nil && appErr.Err != nil {
				cause = appErr.Err
			}
			body["error"] = cause.Error()
		}
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body of at most maxBodyBytes into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("Request body too large")
		}
		return apperr.Validation("Failed to read request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperr.Validation("Invalid JSON format")
	}
	return nil
}

// parsePageParams reads page and limit from the query, falling back to
// the defaults for missing or malformed values.
func parsePageParams(r *http.Request) (page, limit int) {
	page, limit = defaultPage, defaultLimit
	q := r.URL.Query()
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		limit = l
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	return page, limit
}

// statusFilter treats "all" as no filter.
func statusFilter(r *http.Request) string {
	s := r.URL.Query().Get("status")
	if s == "all" {
		return ""
	}
	return s
}
