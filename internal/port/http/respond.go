package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/platform/metrics"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps the domain error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a 500 with no internals leaked.
func respondError(w http.ResponseWriter, r *http.Request, err error, log logger.Logger, m *metrics.Manager) {
	var (
		status int
		code   string
		msg    = err.Error()
	)

	switch {
	case errors.Is(err, entity.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, entity.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, entity.ErrUserDisabled):
		status, code = http.StatusForbidden, "USER_DISABLED"
	case errors.Is(err, entity.ErrInvalidTransition):
		status, code = http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, entity.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, entity.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	default:
		status, code = http.StatusInternalServerError, "INTERNAL"
		msg = "internal server error"
		log.Errorf("unhandled error on %s %s: %v", r.Method, r.URL.Path, err)
	}

	if m != nil {
		m.APIErrorsTotal.WithLabelValues(r.URL.Path, code).Inc()
	}
	respondJSON(w, status, errorResponse{Code: code, Message: msg})
}
