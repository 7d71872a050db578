package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/apperrors"
	"github.com/cloneforge/cloneforge-engine/pkg/llm"
	"github.com/cloneforge/cloneforge-engine/pkg/models"
	"github.com/cloneforge/cloneforge-engine/pkg/prompts"
	"github.com/cloneforge/cloneforge-engine/pkg/repositories"
	"github.com/cloneforge/cloneforge-engine/pkg/retry"
	"github.com/cloneforge/cloneforge-engine/pkg/scoring"
	"github.com/cloneforge/cloneforge-engine/pkg/validation"
	"github.com/cloneforge/cloneforge-engine/pkg/workflow"
)

// StageService defines the interface for plan-stage operations.
type StageService interface {
	// Generate produces content for one stage of the cloning plan. Stage
	// ordering is enforced. Replacing an already completed stage requires
	// the regenerate flag and preserves the stage's original generation
	// instant.
	Generate(ctx context.Context, userID string, analysisID uuid.UUID, stageNumber int, regenerate bool) (*StageResult, error)

	// List returns the analysis' stage records in stage order.
	List(ctx context.Context, userID string, analysisID uuid.UUID) ([]*models.StageRecord, error)

	// RecoverDraft returns the last raw AI output checkpointed for a stage
	// whose generation ultimately failed, if any.
	RecoverDraft(userID string, analysisID uuid.UUID, stageNumber int) (string, bool)
}

// StageResult pairs a freshly generated stage with the stage to work on
// next. NextStage is 0 once all six stages are completed.
type StageResult struct {
	Stage     *models.StageRecord
	NextStage int
}

// StageServiceConfig carries the tunables for stage generation.
type StageServiceConfig struct {
	MaxTokens   int
	Temperature float64
	Retry       *retry.Config
}

// stageService implements StageService.
type stageService struct {
	repo        repositories.AnalysisRepository
	ai          llm.ContentClient
	validator   *validation.Validator
	checkpoints *retry.CheckpointStore
	cfg         StageServiceConfig
	logger      *zap.Logger
}

// NewStageService creates the stage service.
func NewStageService(
	repo repositories.AnalysisRepository,
	ai llm.ContentClient,
	validator *validation.Validator,
	checkpoints *retry.CheckpointStore,
	cfg StageServiceConfig,
	logger *zap.Logger,
) StageService {
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultConfig()
	}
	return &stageService{
		repo:        repo,
		ai:          ai,
		validator:   validator,
		checkpoints: checkpoints,
		cfg:         cfg,
		logger:      logger.Named("stages"),
	}
}

// Generate implements StageService.
func (s *stageService) Generate(ctx context.Context, userID string, analysisID uuid.UUID, stageNumber int, regenerate bool) (*StageResult, error) {
	analysis, err := s.repo.Get(ctx, userID, analysisID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if err := workflow.CanGenerate(analysis.Stages, stageNumber); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, err.Error(), err)
	}
	if analysis.Stages[stageNumber].IsCompleted() && !regenerate {
		return nil, apperrors.New(apperrors.CodeBadRequest,
			fmt.Sprintf("stage %d (%s) is already completed; set regenerate to replace it",
				stageNumber, models.StageName(stageNumber)))
	}

	content, err := s.generateContent(ctx, analysis, stageNumber)
	if err != nil {
		return nil, err
	}

	stage, err := workflow.ApplyGenerated(analysis.Stages, stageNumber, content, time.Now())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to record stage", err)
	}

	s.refreshClonability(analysis)
	s.checkpoints.Clear(checkpointKey(analysisID, stageNumber))

	if err := s.repo.Update(ctx, analysis); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("stage generated",
		zap.String("analysis_id", analysisID.String()),
		zap.Int("stage", stageNumber),
		zap.String("stage_name", stage.StageName))

	next, _ := workflow.NextStage(analysis.Stages)
	return &StageResult{Stage: stage, NextStage: next}, nil
}

// generateContent runs the generate-parse-validate loop under the retry
// policy. Transport errors retry; malformed or low-quality content does not,
// the caller regenerates instead. Raw output is checkpointed before
// validation so a failed run's draft stays recoverable.
func (s *stageService) generateContent(ctx context.Context, analysis *models.Analysis, stageNumber int) (map[string]any, error) {
	prompt := prompts.BuildStagePrompt(analysis, stageNumber)
	key := checkpointKey(analysis.ID, stageNumber)

	result := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) (map[string]any, error) {
		resp, err := s.ai.GenerateContent(ctx, llm.GenerateRequest{
			Prompt:        prompt,
			SystemMessage: prompts.AnalysisSystemMessage,
			Temperature:   s.cfg.Temperature,
			MaxTokens:     s.cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}

		s.checkpoints.Save(key, resp.Content)

		var content map[string]any
		if err := json.Unmarshal([]byte(StripJSONFence(resp.Content)), &content); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeAIValidationError,
				fmt.Sprintf("stage %d response was not valid JSON", stageNumber), err)
		}

		verdict := s.validator.Validate(stageNumber, content, validation.BusinessContext{
			URL:          analysis.URL,
			BusinessName: analysis.Goal,
		})
		if !verdict.Valid {
			return nil, apperrors.Wrap(apperrors.CodeAIQualityError,
				fmt.Sprintf("stage %d content rejected: %s", stageNumber, strings.Join(verdict.Errors, "; ")),
				fmt.Errorf("quality score %.2f", verdict.Score))
		}
		return content, nil
	})
	if !result.Success {
		var appErr *apperrors.AppError
		if errors.As(result.Err, &appErr) {
			return nil, appErr
		}
		if llm.GetErrorType(result.Err) == llm.ErrorTypeTimeout {
			return nil, apperrors.Wrap(apperrors.CodeGatewayTimeout,
				fmt.Sprintf("stage %d generation timed out after %d attempts", stageNumber, result.Attempts), result.Err)
		}
		return nil, apperrors.Wrap(apperrors.CodeAIProviderDown,
			fmt.Sprintf("stage %d generation failed after %d attempts", stageNumber, result.Attempts), result.Err)
	}
	return result.Data, nil
}

// refreshClonability rescores clonability once stage content supplies real
// resource and timing estimates.
func (s *stageService) refreshClonability(analysis *models.Analysis) {
	if analysis.Insights == nil || analysis.Insights.Complexity == nil {
		return
	}

	input := scoring.ClonabilityInput{Complexity: analysis.Insights.Complexity}

	if mvp, ok := analysis.Stages[3]; ok && mvp.IsCompleted() {
		resources := &scoring.ResourceEstimates{
			DevelopmentCost: stringField(mvp.Content, "estimated_cost"),
		}
		if scale, ok := analysis.Stages[5]; ok && scale.IsCompleted() {
			resources.InfrastructureCost = stringField(scale.Content, "infrastructure_cost")
		}
		input.Resources = resources
		if weeks := numberField(mvp.Content, "development_weeks"); weeks > 0 {
			input.RealisticTimeline = fmt.Sprintf("%d weeks", weeks)
		}
	}

	analysis.Insights.Clonability = scoring.ComputeClonability(input)
}

// List implements StageService.
func (s *stageService) List(ctx context.Context, userID string, analysisID uuid.UUID) ([]*models.StageRecord, error) {
	analysis, err := s.repo.Get(ctx, userID, analysisID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	stages := make([]*models.StageRecord, 0, len(analysis.Stages))
	for _, stage := range analysis.Stages {
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool {
		return stages[i].StageNumber < stages[j].StageNumber
	})
	return stages, nil
}

// RecoverDraft implements StageService.
func (s *stageService) RecoverDraft(_ string, analysisID uuid.UUID, stageNumber int) (string, bool) {
	return s.checkpoints.Recover(checkpointKey(analysisID, stageNumber))
}

func checkpointKey(analysisID uuid.UUID, stageNumber int) string {
	return fmt.Sprintf("%s:stage:%d", analysisID, stageNumber)
}

func stringField(content map[string]any, key string) string {
	if v, ok := content[key].(string); ok {
		return v
	}
	return ""
}

func numberField(content map[string]any, key string) int {
	switch v := content[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return 0
}

var _ StageService = (*stageService)(nil)
