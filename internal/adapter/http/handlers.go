package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"

	"github.com/Isheboy/SoilSense-AI/internal/analysis"
	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

// maxBodyBytes caps request bodies on the API routes.
const maxBodyBytes = 1 << 20

// AnalysisService is the slice of analysis.Service the API exposes.
type AnalysisService interface {
	Analyze(ctx context.Context, req analysis.AnalysisRequest) (analysis.AnalysisResult, error)
	Predict(ctx context.Context, req analysis.AnalysisRequest) (analysis.PredictionResult, error)
	Recommend(ctx context.Context, summary domain.RecommendationSummary) (domain.RecommendationResult, error)
	TimeSeries(ctx context.Context, req analysis.AnalysisRequest) (analysis.TimeSeriesResult, error)
	Locations(ctx context.Context) ([]domain.Location, error)
	History(ctx context.Context, locationID int64, limit int) ([]domain.AnalysisRecord, error)
}

// Handler serves the /api routes.
type Handler struct {
	svc    AnalysisService
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc AnalysisService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the API endpoints on r. Responses are gzip
// compressed when the client accepts it.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

	r.Get("/health", h.Health)
	r.Post("/analyze", h.Analyze)
	r.Post("/predict", h.Predict)
	r.Post("/recommendations", h.Recommendations)
	r.Post("/time-series", h.TimeSeries)
	r.Get("/locations", h.Locations)
	r.Get("/location/{id}/history", h.History)
}

// Health is the public liveness probe.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "SoilSense AI"})
}

// Analyze handles POST /api/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analysis.AnalysisRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Predict handles POST /api/predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req analysis.AnalysisRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Predict(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Recommendations handles POST /api/recommendations. The body is an
// assessment, typically the response of /api/analyze.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	var summary domain.RecommendationSummary
	if !h.decode(w, r, &summary) {
		return
	}
	res, err := h.svc.Recommend(r.Context(), summary)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TimeSeries handles POST /api/time-series.
func (h *Handler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	var req analysis.AnalysisRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.TimeSeries(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Locations handles GET /api/locations.
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.svc.Locations(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

// History handles GET /api/location/{id}/history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "location id must be an integer")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "limit must be an integer")
			return
		}
	}

	records, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// decode reads a JSON body into dst, writing a 400 or 413 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, codeBodyTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "request body is empty")
	default:
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON: "+err.Error())
	}
	return false
}
