package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Isheboy/SoilSense-AI/internal/analysis"
)

// Error codes returned in the error envelope.
const (
	codeInvalidRequest      = "invalid_request"
	codeBodyTooLarge        = "body_too_large"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeStoreDisabled       = "store_disabled"
	codeNotFound            = "not_found"
	codeInternal            = "internal_error"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// writeServiceError maps analysis errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, analysis.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, analysis.ErrStoreDisabled):
		writeError(w, http.StatusServiceUnavailable, codeStoreDisabled, err.Error())
	case errors.Is(err, analysis.ErrUpstreamUnavailable):
		logger.Warn("upstream unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, codeUpstreamUnavailable, err.Error())
	default:
		logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "an unexpected error occurred")
	}
}
