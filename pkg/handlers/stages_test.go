package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/apperrors"
	"github.com/cloneforge/cloneforge-engine/pkg/models"
	"github.com/cloneforge/cloneforge-engine/pkg/services"
)

func stageRouter(svc *mockStageService) chi.Router {
	r := chi.NewRouter()
	NewStageHandler(svc, false, zap.NewNop()).RegisterRoutes(r)
	return r
}

func completedStage(t *testing.T, n int) *models.StageRecord {
	t.Helper()
	record, err := models.NewStageRecord(n, map[string]any{"k": "v"}, time.Now())
	require.NoError(t, err)
	return record
}

func TestStageGenerateEndpoint(t *testing.T) {
	t.Run("success returns 201 with next stage", func(t *testing.T) {
		svc := &mockStageService{
			GenerateFunc: func(ctx context.Context, userID string, analysisID uuid.UUID, stageNumber int, regenerate bool) (*services.StageResult, error) {
				assert.Equal(t, 2, stageNumber)
				assert.False(t, regenerate)
				return &services.StageResult{Stage: completedStage(t, 2), NextStage: 3}, nil
			},
		}

		body := bytes.NewBufferString(`{"stage_number": 2}`)
		req := httptest.NewRequest(http.MethodPost, "/api/analyses/"+uuid.NewString()+"/stages", body)
		rec := httptest.NewRecorder()
		stageRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var response GenerateStageResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 2, response.StageNumber)
		assert.Equal(t, "Filter", response.StageName)
		assert.Equal(t, 3, response.NextStage)
	})

	t.Run("regenerate flag reaches the service", func(t *testing.T) {
		svc := &mockStageService{
			GenerateFunc: func(ctx context.Context, userID string, analysisID uuid.UUID, stageNumber int, regenerate bool) (*services.StageResult, error) {
				assert.True(t, regenerate)
				return &services.StageResult{Stage: completedStage(t, 2), NextStage: 3}, nil
			},
		}

		body := bytes.NewBufferString(`{"stage_number": 2, "regenerate": true}`)
		req := httptest.NewRequest(http.MethodPost, "/api/analyses/"+uuid.NewString()+"/stages", body)
		rec := httptest.NewRecorder()
		stageRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("final stage omits next stage", func(t *testing.T) {
		svc := &mockStageService{
			GenerateFunc: func(ctx context.Context, userID string, analysisID uuid.UUID, stageNumber int, regenerate bool) (*services.StageResult, error) {
				return &services.StageResult{Stage: completedStage(t, 6)}, nil
			},
		}

		body := bytes.NewBufferString(`{"stage_number": 6}`)
		req := httptest.NewRequest(http.MethodPost, "/api/analyses/"+uuid.NewString()+"/stages", body)
		rec := httptest.NewRecorder()
		stageRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NotContains(t, rec.Body.String(), "next_stage")
	})

	t.Run("ordering violation returns 400", func(t *testing.T) {
		svc := &mockStageService{
			GenerateFunc: func(ctx context.Context, userID string, analysisID uuid.UUID, stageNumber int, regenerate bool) (*services.StageResult, error) {
				return nil, apperrors.New(apperrors.CodeBadRequest, "stage 4 requires stage 3 (MVP Planning) to be completed first")
			},
		}

		body := bytes.NewBufferString(`{"stage_number": 4}`)
		req := httptest.NewRequest(http.MethodPost, "/api/analyses/"+uuid.NewString()+"/stages", body)
		rec := httptest.NewRecorder()
		stageRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var errBody map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
		assert.Contains(t, errBody["message"], "stage 3")
	})

	t.Run("quality rejection returns 422", func(t *testing.T) {
		svc := &mockStageService{
			GenerateFunc: func(ctx context.Context, userID string, analysisID uuid.UUID, stageNumber int, regenerate bool) (*services.StageResult, error) {
				return nil, apperrors.New(apperrors.CodeAIQualityError, "stage 2 content rejected: content contains generic phrase")
			},
		}

		body := bytes.NewBufferString(`{"stage_number": 2}`)
		req := httptest.NewRequest(http.MethodPost, "/api/analyses/"+uuid.NewString()+"/stages", body)
		rec := httptest.NewRecorder()
		stageRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("invalid JSON returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/analyses/"+uuid.NewString()+"/stages", bytes.NewBufferString(`{`))
		rec := httptest.NewRecorder()
		stageRouter(&mockStageService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStageListEndpoint(t *testing.T) {
	svc := &mockStageService{
		ListFunc: func(ctx context.Context, userID string, analysisID uuid.UUID) ([]*models.StageRecord, error) {
			return []*models.StageRecord{
				completedStage(t, 1),
				completedStage(t, 2),
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/"+uuid.NewString()+"/stages", nil)
	rec := httptest.NewRecorder()
	stageRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response StageListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Len(t, response.Stages, 2)
	assert.Equal(t, 3, response.Current, "with stages 1 and 2 done the plan is on stage 3")
}

func TestStageDraftEndpoint(t *testing.T) {
	t.Run("draft available", func(t *testing.T) {
		svc := &mockStageService{
			RecoverDraftFunc: func(userID string, analysisID uuid.UUID, stageNumber int) (string, bool) {
				return `{"partial": true}`, true
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/analyses/"+uuid.NewString()+"/stages/3/draft", nil)
		rec := httptest.NewRecorder()
		stageRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response DraftResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, `{"partial": true}`, response.Draft)
	})

	t.Run("no draft returns 404", func(t *testing.T) {
		svc := &mockStageService{
			RecoverDraftFunc: func(userID string, analysisID uuid.UUID, stageNumber int) (string, bool) {
				return "", false
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/analyses/"+uuid.NewString()+"/stages/3/draft", nil)
		rec := httptest.NewRecorder()
		stageRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid stage number returns 400", func(t *testing.T) {
		for _, stage := range []string{"0", "7", "abc"} {
			req := httptest.NewRequest(http.MethodGet, "/api/analyses/"+uuid.NewString()+"/stages/"+stage+"/draft", nil)
			rec := httptest.NewRecorder()
			stageRouter(&mockStageService{}).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, "stage %s", stage)
		}
	})
}
