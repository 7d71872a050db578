package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
	"github.com/cloneforge/cloneforge-engine/pkg/services"
	"github.com/cloneforge/cloneforge-engine/pkg/workflow"
)

// GenerateStageRequest for POST /api/analyses/{id}/stages. Regenerate must
// be set to replace an already completed stage; without it such a request
// is rejected.
type GenerateStageRequest struct {
	StageNumber int  `json:"stage_number"`
	Regenerate  bool `json:"regenerate"`
}

// GenerateStageResponse for POST /api/analyses/{id}/stages. NextStage is
// omitted once all six stages are completed.
type GenerateStageResponse struct {
	*models.StageRecord
	NextStage int `json:"next_stage,omitempty"`
}

// StageListResponse for GET /api/analyses/{id}/stages.
type StageListResponse struct {
	Stages  []*models.StageRecord `json:"stages"`
	Current int                   `json:"current_stage"`
}

// DraftResponse for GET /api/analyses/{id}/stages/{n}/draft.
type DraftResponse struct {
	Draft string `json:"draft"`
}

// StageHandler handles plan-stage HTTP requests.
type StageHandler struct {
	stages         services.StageService
	exposeInternal bool
	logger         *zap.Logger
}

// NewStageHandler creates a new stage handler.
func NewStageHandler(stages services.StageService, exposeInternal bool, logger *zap.Logger) *StageHandler {
	return &StageHandler{
		stages:         stages,
		exposeInternal: exposeInternal,
		logger:         logger,
	}
}

// RegisterRoutes registers the stage routes on the given router.
func (h *StageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/analyses/{id}/stages", h.Generate)
	r.Get("/api/analyses/{id}/stages", h.List)
	r.Get("/api/analyses/{id}/stages/{stage}/draft", h.RecoverDraft)
}

// Generate handles POST /api/analyses/{id}/stages.
func (h *StageHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := analysisID(w, r)
	if !ok {
		return
	}

	var req GenerateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	result, err := h.stages.Generate(r.Context(), userID(r), id, req.StageNumber, req.Regenerate)
	if err != nil {
		h.logger.Warn("stage generation failed",
			zap.String("analysis_id", id.String()),
			zap.Int("stage", req.StageNumber),
			zap.Error(err))
		_ = WriteAppError(w, err, h.exposeInternal)
		return
	}

	response := GenerateStageResponse{StageRecord: result.Stage, NextStage: result.NextStage}
	if err := WriteJSON(w, http.StatusCreated, response); err != nil {
		h.logger.Error("Failed to encode stage response", zap.Error(err))
	}
}

// List handles GET /api/analyses/{id}/stages.
func (h *StageHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := analysisID(w, r)
	if !ok {
		return
	}

	stages, err := h.stages.List(r.Context(), userID(r), id)
	if err != nil {
		_ = WriteAppError(w, err, h.exposeInternal)
		return
	}

	byNumber := make(map[int]*models.StageRecord, len(stages))
	for _, stage := range stages {
		byNumber[stage.StageNumber] = stage
	}

	response := StageListResponse{
		Stages:  stages,
		Current: workflow.CurrentStage(byNumber),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode stage list", zap.Error(err))
	}
}

// RecoverDraft handles GET /api/analyses/{id}/stages/{stage}/draft. It
// returns the last checkpointed raw output for a stage whose generation
// failed validation.
func (h *StageHandler) RecoverDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := analysisID(w, r)
	if !ok {
		return
	}

	stageNumber, err := strconv.Atoi(chi.URLParam(r, "stage"))
	if err != nil || !models.IsValidStageNumber(stageNumber) {
		_ = ErrorResponse(w, http.StatusBadRequest, "BAD_REQUEST", "invalid stage number")
		return
	}

	draft, found := h.stages.RecoverDraft(userID(r), id, stageNumber)
	if !found {
		_ = ErrorResponse(w, http.StatusNotFound, "NOT_FOUND", "no draft available for this stage")
		return
	}

	if err := WriteJSON(w, http.StatusOK, DraftResponse{Draft: draft}); err != nil {
		h.logger.Error("Failed to encode draft response", zap.Error(err))
	}
}
