package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/apperrors"
	"github.com/cloneforge/cloneforge-engine/pkg/cache"
	"github.com/cloneforge/cloneforge-engine/pkg/llm"
	"github.com/cloneforge/cloneforge-engine/pkg/models"
	"github.com/cloneforge/cloneforge-engine/pkg/prompts"
	"github.com/cloneforge/cloneforge-engine/pkg/repositories"
	"github.com/cloneforge/cloneforge-engine/pkg/retry"
	"github.com/cloneforge/cloneforge-engine/pkg/scoring"
	"github.com/cloneforge/cloneforge-engine/pkg/scraper"
	"github.com/cloneforge/cloneforge-engine/pkg/techdetect"
)

// AnalysisService defines the interface for analysis lifecycle operations.
type AnalysisService interface {
	// Create runs the full analysis pipeline for a target URL and persists
	// the resulting record. Identical concurrent requests share one run.
	Create(ctx context.Context, userID, rawURL, goal string) (*models.Analysis, error)

	// Get returns an analysis by ID, scoped to its owner.
	Get(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, error)

	// List returns all analyses owned by a user, newest first.
	List(ctx context.Context, userID string) ([]*models.Analysis, error)

	// Delete removes an analysis, scoped to its owner.
	Delete(ctx context.Context, userID string, id uuid.UUID) error

	// AddImprovement appends refinement text to an analysis.
	AddImprovement(ctx context.Context, userID string, id uuid.UUID, text string) (*models.Analysis, error)
}

// AnalysisServiceConfig carries the tunables for the analysis pipeline.
type AnalysisServiceConfig struct {
	AITimeout            time.Duration
	TechDetectTimeout    time.Duration
	TechDetectionEnabled bool
	MaxTokens            int
	Temperature          float64
	Retry                *retry.Config
}

// analysisService implements AnalysisService.
type analysisService struct {
	repo         repositories.AnalysisRepository
	ai           llm.ContentClient
	scraper      scraper.MetadataScraper
	detector     techdetect.Detector
	insights     cache.InsightsCache
	orchestrator *Orchestrator
	cfg          AnalysisServiceConfig
	logger       *zap.Logger
}

// NewAnalysisService creates the analysis service.
func NewAnalysisService(
	repo repositories.AnalysisRepository,
	ai llm.ContentClient,
	pageScraper scraper.MetadataScraper,
	detector techdetect.Detector,
	insights cache.InsightsCache,
	orchestrator *Orchestrator,
	cfg AnalysisServiceConfig,
	logger *zap.Logger,
) AnalysisService {
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 60 * time.Second
	}
	if cfg.TechDetectTimeout <= 0 {
		cfg.TechDetectTimeout = 15 * time.Second
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultConfig()
	}
	return &analysisService{
		repo:         repo,
		ai:           ai,
		scraper:      pageScraper,
		detector:     detector,
		insights:     insights,
		orchestrator: orchestrator,
		cfg:          cfg,
		logger:       logger.Named("analysis"),
	}
}

// NormalizeURL trims the input, defaults the scheme to https, and rejects
// anything that is not an http(s) URL with a host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q: only http and https are allowed", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url has no host")
	}
	return u.String(), nil
}

// Create implements AnalysisService.
func (s *analysisService) Create(ctx context.Context, userID, rawURL, goal string) (*models.Analysis, error) {
	targetURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid target url", err)
	}

	// The scrape runs before admission so the dedup key can include whether
	// first-party data exists: a run with page data is not interchangeable
	// with one without.
	meta := s.scrapeMetadata(ctx, targetURL)
	key := targetURL + "|firstparty:" + strconv.FormatBool(meta.HasContent())

	result, err := s.orchestrator.Run(ctx, key, func(ctx context.Context) (any, error) {
		return s.runPipeline(ctx, userID, targetURL, goal, meta)
	})
	if err != nil {
		return nil, err
	}

	analysis, ok := result.(*models.Analysis)
	if !ok {
		return nil, apperrors.New(apperrors.CodeInternal, "unexpected pipeline result")
	}
	return analysis, nil
}

func (s *analysisService) scrapeMetadata(ctx context.Context, targetURL string) *models.PageMetadata {
	meta, err := s.scraper.Scrape(ctx, targetURL)
	if err != nil {
		// Missing first-party data degrades the prompt, it never fails
		// the analysis.
		s.logger.Warn("metadata scrape failed", zap.String("url", targetURL), zap.Error(err))
		return &models.PageMetadata{}
	}
	return meta
}

// aiOutcome is the AI branch settlement.
type aiOutcome struct {
	summary    string
	structured *models.StructuredAnalysis
	err        error
}

// detectOutcome is the technology-detection branch settlement.
type detectOutcome struct {
	technologies []models.DetectedTechnology
	status       models.DetectionStatus
}

// runPipeline races AI generation against technology detection, merges the
// branches, and persists the record. An AI failure fails the run; a
// detection failure only degrades it.
func (s *analysisService) runPipeline(ctx context.Context, userID, targetURL, goal string, meta *models.PageMetadata) (*models.Analysis, error) {
	aiCh := make(chan aiOutcome, 1)
	detectCh := make(chan detectOutcome, 1)

	go func() {
		aiCtx, cancel := context.WithTimeout(ctx, s.cfg.AITimeout)
		defer cancel()
		aiCh <- s.runAIBranch(aiCtx, targetURL, goal, meta)
	}()

	go func() {
		detectCh <- s.runDetectBranch(ctx, targetURL)
	}()

	ai := <-aiCh
	detect := <-detectCh

	if ai.err != nil {
		return nil, s.mapAIError(ai.err)
	}

	now := time.Now()
	analysis := &models.Analysis{
		ID:         uuid.New(),
		UserID:     userID,
		URL:        targetURL,
		Goal:       goal,
		Summary:    ai.summary,
		Structured: ai.structured,
		Stages:     make(map[int]*models.StageRecord),
	}

	// Stage 1 (Discovery) is the analysis itself; it completes with creation.
	discovery, err := models.NewStageRecord(models.FirstStage, map[string]any{
		"summary": ai.summary,
	}, now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to record discovery stage", err)
	}
	analysis.Stages[models.FirstStage] = discovery

	analysis.Insights = s.buildInsights(ctx, analysis.ID, detect)

	if err := s.repo.Create(ctx, analysis); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to save analysis", err)
	}

	s.logger.Info("analysis created",
		zap.String("analysis_id", analysis.ID.String()),
		zap.String("url", targetURL),
		zap.String("detection_status", string(detect.status)),
		zap.Int("technologies", len(detect.technologies)))

	return analysis, nil
}

// runAIBranch produces the summary and the structured analysis through the
// provider chain, with transport-level retries around each call.
func (s *analysisService) runAIBranch(ctx context.Context, targetURL, goal string, meta *models.PageMetadata) aiOutcome {
	summary, err := s.generate(ctx, prompts.BuildSummaryPrompt(targetURL, goal, meta))
	if err != nil {
		return aiOutcome{err: err}
	}

	structuredRaw, err := s.generate(ctx, prompts.BuildStructuredPrompt(targetURL, goal, summary))
	if err != nil {
		return aiOutcome{err: err}
	}

	structured, err := parseStructuredAnalysis(structuredRaw)
	if err != nil {
		return aiOutcome{err: apperrors.Wrap(apperrors.CodeAIValidationError,
			"analysis response was not in the expected format", err)}
	}

	return aiOutcome{summary: summary, structured: structured}
}

// generate runs one chain call under the retry policy.
func (s *analysisService) generate(ctx context.Context, prompt string) (string, error) {
	result := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) (string, error) {
		resp, err := s.ai.GenerateContent(ctx, llm.GenerateRequest{
			Prompt:        prompt,
			SystemMessage: prompts.AnalysisSystemMessage,
			Temperature:   s.cfg.Temperature,
			MaxTokens:     s.cfg.MaxTokens,
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	})
	if !result.Success {
		return "", result.Err
	}
	return result.Data, nil
}

// runDetectBranch runs technology detection under its own timeout. Every
// failure mode maps to a status; the branch never fails the pipeline.
func (s *analysisService) runDetectBranch(ctx context.Context, targetURL string) detectOutcome {
	if !s.cfg.TechDetectionEnabled || s.detector == nil {
		return detectOutcome{status: models.DetectionStatusDisabled}
	}

	detectCtx, cancel := context.WithTimeout(ctx, s.cfg.TechDetectTimeout)
	defer cancel()

	technologies, err := s.detector.Detect(detectCtx, targetURL)
	if err != nil {
		status := models.DetectionStatusFailed
		if detectCtx.Err() == context.DeadlineExceeded {
			status = models.DetectionStatusTimeout
		}
		s.logger.Warn("technology detection degraded",
			zap.String("url", targetURL),
			zap.String("status", string(status)),
			zap.Error(err))
		return detectOutcome{status: status}
	}
	return detectOutcome{technologies: technologies, status: models.DetectionStatusSuccess}
}

// buildInsights scores the detected technology set, reusing a cached bundle
// when the identical set was scored before.
func (s *analysisService) buildInsights(ctx context.Context, analysisID uuid.UUID, detect detectOutcome) *models.TechnologyInsights {
	degraded := detect.status == models.DetectionStatusFailed || detect.status == models.DetectionStatusTimeout

	if detect.status != models.DetectionStatusSuccess {
		return &models.TechnologyInsights{
			DetectionStatus: detect.status,
			Degraded:        degraded,
		}
	}

	key := cache.Key(models.TechnologyNames(detect.technologies))
	if cached, ok := s.insights.Get(ctx, key); ok {
		return &models.TechnologyInsights{
			Technologies:    detect.technologies,
			DetectionStatus: detect.status,
			Complexity:      cached.Complexity,
			Clonability:     cached.Clonability,
		}
	}

	complexity := scoring.ComputeComplexity(detect.technologies)
	clonability := scoring.ComputeClonability(scoring.ClonabilityInput{Complexity: complexity})

	insights := &models.TechnologyInsights{
		Technologies:    detect.technologies,
		DetectionStatus: detect.status,
		Complexity:      complexity,
		Clonability:     clonability,
	}
	s.insights.Set(ctx, key, insights, analysisID)
	return insights
}

// mapAIError converts branch errors into boundary errors.
func (s *analysisService) mapAIError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch llm.GetErrorType(err) {
	case llm.ErrorTypeTimeout:
		return apperrors.Wrap(apperrors.CodeGatewayTimeout, "analysis timed out", err)
	case llm.ErrorTypeRateLimit:
		return apperrors.Wrap(apperrors.CodeRateLimited, "provider rate limit reached", err)
	case llm.ErrorTypeAuth, llm.ErrorTypeModel, llm.ErrorTypeEndpoint:
		return apperrors.Wrap(apperrors.CodeAIProviderDown, "analysis providers are unavailable", err)
	default:
		return apperrors.Wrap(apperrors.CodeAIProviderDown, "analysis generation failed", err)
	}
}

// parseStructuredAnalysis decodes the structured-analysis JSON, tolerating
// a fenced code block around it.
func parseStructuredAnalysis(raw string) (*models.StructuredAnalysis, error) {
	cleaned := StripJSONFence(raw)
	var structured models.StructuredAnalysis
	if err := json.Unmarshal([]byte(cleaned), &structured); err != nil {
		return nil, fmt.Errorf("parse structured analysis: %w", err)
	}
	if structured.Overview == "" && structured.Market == "" && structured.Technical == "" {
		return nil, fmt.Errorf("structured analysis is empty")
	}
	return &structured, nil
}

// StripJSONFence removes a markdown code fence wrapping a JSON payload.
// Models regularly add one despite instructions not to.
func StripJSONFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// Get implements AnalysisService.
func (s *analysisService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, error) {
	analysis, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return analysis, nil
}

// List implements AnalysisService.
func (s *analysisService) List(ctx context.Context, userID string) ([]*models.Analysis, error) {
	analyses, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return analyses, nil
}

// Delete implements AnalysisService.
func (s *analysisService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// AddImprovement implements AnalysisService.
func (s *analysisService) AddImprovement(ctx context.Context, userID string, id uuid.UUID, text string) (*models.Analysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.New(apperrors.CodeBadRequest, "improvement text is required")
	}

	analysis, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	analysis.Improvements = append(analysis.Improvements, models.Improvement{
		Text:      text,
		CreatedAt: time.Now(),
	})
	if err := s.repo.Update(ctx, analysis); err != nil {
		return nil, mapRepoError(err)
	}
	return analysis, nil
}

var _ AnalysisService = (*analysisService)(nil)
