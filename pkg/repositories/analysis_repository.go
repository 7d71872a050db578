// Package repositories provides data access for analyses.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cloneforge/cloneforge-engine/pkg/apperrors"
	"github.com/cloneforge/cloneforge-engine/pkg/database"
	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

// AnalysisRepository defines the interface for analysis data access.
// All reads and writes are scoped by owner: an analysis is only visible
// to the user that created it.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *models.Analysis) error
	Get(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, error)
	List(ctx context.Context, userID string) ([]*models.Analysis, error)
	Update(ctx context.Context, analysis *models.Analysis) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

// analysisRepository implements AnalysisRepository using PostgreSQL.
type analysisRepository struct {
	db *database.DB
}

// NewAnalysisRepository creates a PostgreSQL-backed analysis repository.
func NewAnalysisRepository(db *database.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

// analysisRow bundles the JSONB columns during scanning.
type analysisRow struct {
	structured   []byte
	stages       []byte
	insights     []byte
	improvements []byte
}

// Create inserts a new analysis.
func (r *analysisRepository) Create(ctx context.Context, analysis *models.Analysis) error {
	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}

	now := time.Now()
	analysis.CreatedAt = now
	analysis.UpdatedAt = now

	structured, stages, insights, improvements, err := marshalAnalysisColumns(analysis)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO analyses (id, user_id, url, goal, summary, structured, stages, insights, improvements, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		analysis.ID,
		analysis.UserID,
		analysis.URL,
		analysis.Goal,
		analysis.Summary,
		structured,
		stages,
		insights,
		improvements,
		analysis.CreatedAt,
		analysis.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}

	return nil
}

// Get retrieves an analysis by ID, scoped to its owner.
func (r *analysisRepository) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, error) {
	query := `
		SELECT id, user_id, url, goal, summary, structured, stages, insights, improvements, created_at, updated_at
		FROM analyses
		WHERE id = $1 AND user_id = $2`

	var analysis models.Analysis
	var row analysisRow

	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&analysis.ID,
		&analysis.UserID,
		&analysis.URL,
		&analysis.Goal,
		&analysis.Summary,
		&row.structured,
		&row.stages,
		&row.insights,
		&row.improvements,
		&analysis.CreatedAt,
		&analysis.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	if err := unmarshalAnalysisColumns(&analysis, &row); err != nil {
		return nil, err
	}

	return &analysis, nil
}

// List retrieves all analyses owned by a user, newest first.
func (r *analysisRepository) List(ctx context.Context, userID string) ([]*models.Analysis, error) {
	query := `
		SELECT id, user_id, url, goal, summary, structured, stages, insights, improvements, created_at, updated_at
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.Analysis
	for rows.Next() {
		var analysis models.Analysis
		var row analysisRow

		err := rows.Scan(
			&analysis.ID,
			&analysis.UserID,
			&analysis.URL,
			&analysis.Goal,
			&analysis.Summary,
			&row.structured,
			&row.stages,
			&row.insights,
			&row.improvements,
			&analysis.CreatedAt,
			&analysis.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		if err := unmarshalAnalysisColumns(&analysis, &row); err != nil {
			return nil, err
		}
		analyses = append(analyses, &analysis)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analyses: %w", err)
	}

	return analyses, nil
}

// Update persists stage, insight, and improvement changes.
func (r *analysisRepository) Update(ctx context.Context, analysis *models.Analysis) error {
	analysis.UpdatedAt = time.Now()

	structured, stages, insights, improvements, err := marshalAnalysisColumns(analysis)
	if err != nil {
		return err
	}

	query := `
		UPDATE analyses
		SET summary = $3, structured = $4, stages = $5, insights = $6, improvements = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(ctx, query,
		analysis.ID,
		analysis.UserID,
		analysis.Summary,
		structured,
		stages,
		insights,
		improvements,
		analysis.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes an analysis, scoped to its owner.
func (r *analysisRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	query := `DELETE FROM analyses WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func marshalAnalysisColumns(analysis *models.Analysis) (structured, stages, insights, improvements []byte, err error) {
	structured, err = json.Marshal(analysis.Structured)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal structured analysis: %w", err)
	}
	stages, err = json.Marshal(analysis.Stages)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal stages: %w", err)
	}
	insights, err = json.Marshal(analysis.Insights)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal insights: %w", err)
	}
	improvements, err = json.Marshal(analysis.Improvements)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal improvements: %w", err)
	}
	return structured, stages, insights, improvements, nil
}

func unmarshalAnalysisColumns(analysis *models.Analysis, row *analysisRow) error {
	if err := json.Unmarshal(row.structured, &analysis.Structured); err != nil {
		return fmt.Errorf("failed to unmarshal structured analysis: %w", err)
	}
	if err := json.Unmarshal(row.stages, &analysis.Stages); err != nil {
		return fmt.Errorf("failed to unmarshal stages: %w", err)
	}
	if err := json.Unmarshal(row.insights, &analysis.Insights); err != nil {
		return fmt.Errorf("failed to unmarshal insights: %w", err)
	}
	if err := json.Unmarshal(row.improvements, &analysis.Improvements); err != nil {
		return fmt.Errorf("failed to unmarshal improvements: %w", err)
	}
	return nil
}

// Ensure analysisRepository implements AnalysisRepository at compile time.
var _ AnalysisRepository = (*analysisRepository)(nil)
