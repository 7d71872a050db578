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
)

func analysisRouter(svc *mockAnalysisService) chi.Router {
	r := chi.NewRouter()
	NewAnalysisHandler(svc, false, zap.NewNop()).RegisterRoutes(r)
	return r
}

func sampleAnalysis(userID string) *models.Analysis {
	return &models.Analysis{
		ID:        uuid.New(),
		UserID:    userID,
		URL:       "https://example.com",
		Summary:   "A summary.",
		CreatedAt: time.Now(),
	}
}

func TestAnalysisCreate(t *testing.T) {
	t.Run("success returns 201", func(t *testing.T) {
		var gotUser, gotURL string
		svc := &mockAnalysisService{
			CreateFunc: func(ctx context.Context, userID, rawURL, goal string) (*models.Analysis, error) {
				gotUser, gotURL = userID, rawURL
				return sampleAnalysis(userID), nil
			},
		}

		body := bytes.NewBufferString(`{"url": "example.com", "goal": "clone it"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/analyses", body)
		req.Header.Set("X-User-ID", "user-42")
		rec := httptest.NewRecorder()
		analysisRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "user-42", gotUser)
		assert.Equal(t, "example.com", gotURL)

		var analysis models.Analysis
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&analysis))
		assert.Equal(t, "https://example.com", analysis.URL)
	})

	t.Run("missing identity header defaults to anonymous", func(t *testing.T) {
		var gotUser string
		svc := &mockAnalysisService{
			CreateFunc: func(ctx context.Context, userID, rawURL, goal string) (*models.Analysis, error) {
				gotUser = userID
				return sampleAnalysis(userID), nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewBufferString(`{"url": "example.com"}`))
		rec := httptest.NewRecorder()
		analysisRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, "anonymous", gotUser)
	})

	t.Run("invalid JSON returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewBufferString(`{not json`))
		rec := httptest.NewRecorder()
		analysisRouter(&mockAnalysisService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing url returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewBufferString(`{"goal": "x"}`))
		rec := httptest.NewRecorder()
		analysisRouter(&mockAnalysisService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("capacity rejection maps to 429", func(t *testing.T) {
		svc := &mockAnalysisService{
			CreateFunc: func(ctx context.Context, userID, rawURL, goal string) (*models.Analysis, error) {
				return nil, apperrors.New(apperrors.CodeRateLimited, "too many analyses in progress, try again shortly")
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewBufferString(`{"url": "example.com"}`))
		rec := httptest.NewRecorder()
		analysisRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "RATE_LIMITED", body["error"])
	})

	t.Run("provider outage maps to 502", func(t *testing.T) {
		svc := &mockAnalysisService{
			CreateFunc: func(ctx context.Context, userID, rawURL, goal string) (*models.Analysis, error) {
				return nil, apperrors.New(apperrors.CodeAIProviderDown, "analysis providers are unavailable")
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/api/analyses", bytes.NewBufferString(`{"url": "example.com"}`))
		rec := httptest.NewRecorder()
		analysisRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestAnalysisGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		analysis := sampleAnalysis("anonymous")
		svc := &mockAnalysisService{
			GetFunc: func(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, error) {
				assert.Equal(t, analysis.ID, id)
				return analysis, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/analyses/"+analysis.ID.String(), nil)
		rec := httptest.NewRecorder()
		analysisRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		svc := &mockAnalysisService{
			GetFunc: func(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, error) {
				return nil, apperrors.New(apperrors.CodeNotFound, "analysis not found")
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/analyses/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		analysisRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/analyses/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		analysisRouter(&mockAnalysisService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAnalysisList(t *testing.T) {
	svc := &mockAnalysisService{
		ListFunc: func(ctx context.Context, userID string) ([]*models.Analysis, error) {
			return []*models.Analysis{sampleAnalysis(userID), sampleAnalysis(userID)}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)
	rec := httptest.NewRecorder()
	analysisRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response AnalysisListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, 2, response.Total)
	assert.Len(t, response.Analyses, 2)
}

func TestAnalysisDelete(t *testing.T) {
	deleted := false
	svc := &mockAnalysisService{
		DeleteFunc: func(ctx context.Context, userID string, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/analyses/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	analysisRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, deleted)
}

func TestAnalysisAddImprovement(t *testing.T) {
	svc := &mockAnalysisService{
		AddImprovementFunc: func(ctx context.Context, userID string, id uuid.UUID, text string) (*models.Analysis, error) {
			analysis := sampleAnalysis(userID)
			analysis.Improvements = []models.Improvement{{Text: text, CreatedAt: time.Now()}}
			return analysis, nil
		},
	}

	body := bytes.NewBufferString(`{"text": "focus on the checkout flow"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyses/"+uuid.NewString()+"/improvements", body)
	rec := httptest.NewRecorder()
	analysisRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var analysis models.Analysis
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&analysis))
	require.Len(t, analysis.Improvements, 1)
	assert.Equal(t, "focus on the checkout flow", analysis.Improvements[0].Text)
}
