// Package techdetect identifies the technologies behind a target URL using
// fingerprint rules over the page's DOM, headers, and markup.
package techdetect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

// Detector is the technology-detection collaborator. The orchestration core
// consumes its typed results and does not depend on how detection is done.
type Detector interface {
	Detect(ctx context.Context, targetURL string) ([]models.DetectedTechnology, error)
}

// FingerprintDetector matches fingerprint rules against a fetched page.
type FingerprintDetector struct {
	rules  []Fingerprint
	client *http.Client
	logger *zap.Logger
}

// NewFingerprintDetector creates a detector with the given rules. Pass the
// result of LoadFingerprints or DefaultFingerprints.
func NewFingerprintDetector(rules []Fingerprint, timeout time.Duration, logger *zap.Logger) *FingerprintDetector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FingerprintDetector{
		rules:  rules,
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("techdetect"),
	}
}

// Detect implements Detector. It fetches the page once and evaluates every
// fingerprint against the response.
func (d *FingerprintDetector) Detect(ctx context.Context, targetURL string) ([]models.DetectedTechnology, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "cloneforge-engine/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", targetURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", targetURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", targetURL, err)
	}

	page := &pageEvidence{
		html:    strings.ToLower(string(body)),
		doc:     doc,
		headers: resp.Header,
	}

	detected := d.Match(page)
	d.logger.Info("technology detection completed",
		zap.String("url", targetURL),
		zap.Int("technologies", len(detected)))
	return detected, nil
}

// pageEvidence is everything a fingerprint can match against.
type pageEvidence struct {
	html    string
	doc     *goquery.Document
	headers http.Header
}

// Match evaluates the rule set against collected page evidence.
func (d *FingerprintDetector) Match(page *pageEvidence) []models.DetectedTechnology {
	var detected []models.DetectedTechnology
	for _, rule := range d.rules {
		if confidence := rule.match(page); confidence > 0 {
			detected = append(detected, models.DetectedTechnology{
				Name:       rule.Name,
				Categories: rule.Categories,
				Confidence: confidence,
				Vendor:     rule.Vendor,
			})
		}
	}
	return detected
}

// match returns the rule's confidence when any of its probes hit, else 0.
func (f *Fingerprint) match(page *pageEvidence) int {
	for _, marker := range f.HTML {
		if strings.Contains(page.html, strings.ToLower(marker)) {
			return f.Confidence
		}
	}
	for _, selector := range f.Selectors {
		if page.doc.Find(selector).Length() > 0 {
			return f.Confidence
		}
	}
	for header, marker := range f.Headers {
		value := page.headers.Get(header)
		if value != "" && (marker == "" || strings.Contains(strings.ToLower(value), strings.ToLower(marker))) {
			return f.Confidence
		}
	}
	if f.MetaGenerator != "" {
		if gen, ok := page.doc.Find(`meta[name="generator"]`).Attr("content"); ok {
			if strings.Contains(strings.ToLower(gen), strings.ToLower(f.MetaGenerator)) {
				return f.Confidence
			}
		}
	}
	return 0
}

var _ Detector = (*FingerprintDetector)(nil)
