// Package scraper extracts first-party page metadata from a target URL.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

// MetadataScraper fetches a page's title and description.
type MetadataScraper interface {
	Scrape(ctx context.Context, targetURL string) (*models.PageMetadata, error)
}

// HTTPScraper is the default scraper implementation.
type HTTPScraper struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPScraper creates a scraper with the given request timeout.
func NewHTTPScraper(timeout time.Duration, logger *zap.Logger) *HTTPScraper {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPScraper{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("scraper"),
	}
}

// Scrape implements MetadataScraper. Missing title or description is not an
// error; callers check PageMetadata.HasContent.
func (s *HTTPScraper) Scrape(ctx context.Context, targetURL string) (*models.PageMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "cloneforge-engine/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", targetURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", targetURL, err)
	}

	meta := &models.PageMetadata{
		Title: doc.Find("title").First().Text(),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		meta.Description = desc
	} else if ogDesc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		meta.Description = ogDesc
	}

	s.logger.Debug("scraped page metadata",
		zap.String("url", targetURL),
		zap.Bool("has_title", meta.Title != ""),
		zap.Bool("has_description", meta.Description != ""))

	return meta, nil
}

var _ MetadataScraper = (*HTTPScraper)(nil)
