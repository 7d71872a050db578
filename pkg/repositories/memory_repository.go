package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloneforge/cloneforge-engine/pkg/apperrors"
	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

// memoryAnalysisRepository is an AnalysisRepository backed by a map. It is
// the default store for local development and the store used by tests.
type memoryAnalysisRepository struct {
	mu       sync.RWMutex
	analyses map[uuid.UUID]*models.Analysis
}

// NewMemoryAnalysisRepository creates an in-memory analysis repository.
func NewMemoryAnalysisRepository() AnalysisRepository {
	return &memoryAnalysisRepository{
		analyses: make(map[uuid.UUID]*models.Analysis),
	}
}

func (r *memoryAnalysisRepository) Create(_ context.Context, analysis *models.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	if _, exists := r.analyses[analysis.ID]; exists {
		return apperrors.ErrConflict
	}

	now := time.Now()
	analysis.CreatedAt = now
	analysis.UpdatedAt = now

	stored, err := cloneAnalysis(analysis)
	if err != nil {
		return err
	}
	r.analyses[analysis.ID] = stored
	return nil
}

func (r *memoryAnalysisRepository) Get(_ context.Context, userID string, id uuid.UUID) (*models.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.analyses[id]
	if !ok || stored.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return cloneAnalysis(stored)
}

func (r *memoryAnalysisRepository) List(_ context.Context, userID string) ([]*models.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var analyses []*models.Analysis
	for _, stored := range r.analyses {
		if stored.UserID != userID {
			continue
		}
		copied, err := cloneAnalysis(stored)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, copied)
	}

	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.After(analyses[j].CreatedAt)
	})
	return analyses, nil
}

func (r *memoryAnalysisRepository) Update(_ context.Context, analysis *models.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.analyses[analysis.ID]
	if !ok || stored.UserID != analysis.UserID {
		return apperrors.ErrNotFound
	}

	analysis.UpdatedAt = time.Now()
	copied, err := cloneAnalysis(analysis)
	if err != nil {
		return err
	}
	copied.CreatedAt = stored.CreatedAt
	r.analyses[analysis.ID] = copied
	return nil
}

func (r *memoryAnalysisRepository) Delete(_ context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.analyses[id]
	if !ok || stored.UserID != userID {
		return apperrors.ErrNotFound
	}
	delete(r.analyses, id)
	return nil
}

// cloneAnalysis deep-copies via JSON so callers cannot mutate stored state.
func cloneAnalysis(analysis *models.Analysis) (*models.Analysis, error) {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to copy analysis: %w", err)
	}
	var copied models.Analysis
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil, fmt.Errorf("failed to copy analysis: %w", err)
	}
	return &copied, nil
}

var _ AnalysisRepository = (*memoryAnalysisRepository)(nil)
