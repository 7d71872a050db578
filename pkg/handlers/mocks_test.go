package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
	"github.com/cloneforge/cloneforge-engine/pkg/services"
)

// mockAnalysisService is a configurable mock for handler tests. Set the
// function fields to control behavior.
type mockAnalysisService struct {
	CreateFunc         func(ctx context.Context, userID, rawURL, goal string) (*models.Analysis, error)
	GetFunc            func(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, error)
	ListFunc           func(ctx context.Context, userID string) ([]*models.Analysis, error)
	DeleteFunc         func(ctx context.Context, userID string, id uuid.UUID) error
	AddImprovementFunc func(ctx context.Context, userID string, id uuid.UUID, text string) (*models.Analysis, error)
}

func (m *mockAnalysisService) Create(ctx context.Context, userID, rawURL, goal string) (*models.Analysis, error) {
	return m.CreateFunc(ctx, userID, rawURL, goal)
}

func (m *mockAnalysisService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, error) {
	return m.GetFunc(ctx, userID, id)
}

func (m *mockAnalysisService) List(ctx context.Context, userID string) ([]*models.Analysis, error) {
	return m.ListFunc(ctx, userID)
}

func (m *mockAnalysisService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return m.DeleteFunc(ctx, userID, id)
}

func (m *mockAnalysisService) AddImprovement(ctx context.Context, userID string, id uuid.UUID, text string) (*models.Analysis, error) {
	return m.AddImprovementFunc(ctx, userID, id, text)
}

// mockStageService is a configurable mock for handler tests.
type mockStageService struct {
	GenerateFunc     func(ctx context.Context, userID string, analysisID uuid.UUID, stageNumber int, regenerate bool) (*services.StageResult, error)
	ListFunc         func(ctx context.Context, userID string, analysisID uuid.UUID) ([]*models.StageRecord, error)
	RecoverDraftFunc func(userID string, analysisID uuid.UUID, stageNumber int) (string, bool)
}

func (m *mockStageService) Generate(ctx context.Context, userID string, analysisID uuid.UUID, stageNumber int, regenerate bool) (*services.StageResult, error) {
	return m.GenerateFunc(ctx, userID, analysisID, stageNumber, regenerate)
}

func (m *mockStageService) List(ctx context.Context, userID string, analysisID uuid.UUID) ([]*models.StageRecord, error) {
	return m.ListFunc(ctx, userID, analysisID)
}

func (m *mockStageService) RecoverDraft(userID string, analysisID uuid.UUID, stageNumber int) (string, bool) {
	return m.RecoverDraftFunc(userID, analysisID, stageNumber)
}
