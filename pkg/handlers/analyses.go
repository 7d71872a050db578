package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
	"github.com/cloneforge/cloneforge-engine/pkg/services"
)

// CreateAnalysisRequest for POST /api/analyses.
type CreateAnalysisRequest struct {
	URL  string `json:"url"`
	Goal string `json:"goal,omitempty"`
}

// AddImprovementRequest for POST /api/analyses/{id}/improvements.
type AddImprovementRequest struct {
	Text string `json:"text"`
}

// AnalysisListResponse for GET /api/analyses.
type AnalysisListResponse struct {
	Analyses []*models.Analysis `json:"analyses"`
	Total    int                `json:"total"`
}

// AnalysisHandler handles analysis lifecycle HTTP requests.
type AnalysisHandler struct {
	analyses       services.AnalysisService
	exposeInternal bool
	logger         *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analyses services.AnalysisService, exposeInternal bool, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyses:       analyses,
		exposeInternal: exposeInternal,
		logger:         logger,
	}
}

// RegisterRoutes registers the analysis routes on the given router.
func (h *AnalysisHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/analyses", h.Create)
	r.Get("/api/analyses", h.List)
	r.Get("/api/analyses/{id}", h.Get)
	r.Delete("/api/analyses/{id}", h.Delete)
	r.Post("/api/analyses/{id}/improvements", h.AddImprovement)
}

// Create handles POST /api/analyses.
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.URL == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "url is required")
		return
	}

	analysis, err := h.analyses.Create(r.Context(), userID(r), req.URL, req.Goal)
	if err != nil {
		h.logger.Warn("analysis creation failed", zap.String("url", req.URL), zap.Error(err))
		_ = WriteAppError(w, err, h.exposeInternal)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, analysis); err != nil {
		h.logger.Error("Failed to encode analysis response", zap.Error(err))
	}
}

// List handles GET /api/analyses.
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	analyses, err := h.analyses.List(r.Context(), userID(r))
	if err != nil {
		_ = WriteAppError(w, err, h.exposeInternal)
		return
	}

	if err := WriteJSON(w, http.StatusOK, AnalysisListResponse{Analyses: analyses, Total: len(analyses)}); err != nil {
		h.logger.Error("Failed to encode analysis list", zap.Error(err))
	}
}

// Get handles GET /api/analyses/{id}.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := analysisID(w, r)
	if !ok {
		return
	}

	analysis, err := h.analyses.Get(r.Context(), userID(r), id)
	if err != nil {
		_ = WriteAppError(w, err, h.exposeInternal)
		return
	}

	if err := WriteJSON(w, http.StatusOK, analysis); err != nil {
		h.logger.Error("Failed to encode analysis response", zap.Error(err))
	}
}

// Delete handles DELETE /api/analyses/{id}.
func (h *AnalysisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := analysisID(w, r)
	if !ok {
		return
	}

	if err := h.analyses.Delete(r.Context(), userID(r), id); err != nil {
		_ = WriteAppError(w, err, h.exposeInternal)
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"}); err != nil {
		h.logger.Error("Failed to encode delete response", zap.Error(err))
	}
}

// AddImprovement handles POST /api/analyses/{id}/improvements.
func (h *AnalysisHandler) AddImprovement(w http.ResponseWriter, r *http.Request) {
	id, ok := analysisID(w, r)
	if !ok {
		return
	}

	var req AddImprovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	analysis, err := h.analyses.AddImprovement(r.Context(), userID(r), id, req.Text)
	if err != nil {
		_ = WriteAppError(w, err, h.exposeInternal)
		return
	}

	if err := WriteJSON(w, http.StatusOK, analysis); err != nil {
		h.logger.Error("Failed to encode analysis response", zap.Error(err))
	}
}

// analysisID parses the {id} path parameter, writing a 400 on failure.
func analysisID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "invalid analysis id")
		return uuid.Nil, false
	}
	return id, true
}

// userID identifies the caller. Authentication is out of scope; ownership
// scoping rides on the client-supplied identity header.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}
