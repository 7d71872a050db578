package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/cache"
	"github.com/cloneforge/cloneforge-engine/pkg/llm"
	"github.com/cloneforge/cloneforge-engine/pkg/models"
	"github.com/cloneforge/cloneforge-engine/pkg/repositories"
	"github.com/cloneforge/cloneforge-engine/pkg/retry"
)

// mockScraper is a configurable metadata scraper for tests.
type mockScraper struct {
	ScrapeFunc  func(ctx context.Context, targetURL string) (*models.PageMetadata, error)
	ScrapeCalls int
}

func (m *mockScraper) Scrape(ctx context.Context, targetURL string) (*models.PageMetadata, error) {
	m.ScrapeCalls++
	if m.ScrapeFunc != nil {
		return m.ScrapeFunc(ctx, targetURL)
	}
	return &models.PageMetadata{Title: "Example Page"}, nil
}

// mockDetector is a configurable technology detector for tests.
type mockDetector struct {
	DetectFunc  func(ctx context.Context, targetURL string) ([]models.DetectedTechnology, error)
	DetectCalls int
}

func (m *mockDetector) Detect(ctx context.Context, targetURL string) ([]models.DetectedTechnology, error) {
	m.DetectCalls++
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, targetURL)
	}
	return nil, nil
}

// scriptedClient returns canned AI responses in call order, then repeats the
// last one.
func scriptedClient(responses ...string) *llm.MockContentClient {
	client := llm.NewMockContentClient()
	call := 0
	client.GenerateContentFunc = func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
		i := call
		if i >= len(responses) {
			i = len(responses) - 1
		}
		call++
		return &llm.GenerateResult{Content: responses[i], Provider: "mock"}, nil
	}
	return client
}

// fastRetry keeps retry delays out of the test runtime.
func fastRetry() *retry.Config {
	return &retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Millisecond,
	}
}

// testAnalysisFixture bundles the service with its collaborators so tests can
// reach through to them.
type testAnalysisFixture struct {
	service  AnalysisService
	repo     repositories.AnalysisRepository
	ai       *llm.MockContentClient
	scraper  *mockScraper
	detector *mockDetector
	insights *cache.MemoryCache
}

func newAnalysisFixture(ai *llm.MockContentClient, detector *mockDetector) *testAnalysisFixture {
	repo := repositories.NewMemoryAnalysisRepository()
	pageScraper := &mockScraper{}
	insights := cache.NewMemoryCache(24 * time.Hour)

	service := NewAnalysisService(repo, ai, pageScraper, detector, insights,
		NewOrchestrator(5, zap.NewNop()),
		AnalysisServiceConfig{
			AITimeout:            5 * time.Second,
			TechDetectTimeout:    time.Second,
			TechDetectionEnabled: detector != nil,
			Retry:                fastRetry(),
		},
		zap.NewNop())

	return &testAnalysisFixture{
		service:  service,
		repo:     repo,
		ai:       ai,
		scraper:  pageScraper,
		detector: detector,
		insights: insights,
	}
}
