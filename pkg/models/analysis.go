package models

import (
	"time"

	"github.com/google/uuid"
)

// Analysis is a single business-cloning analysis of a target URL.
// It is created once on the first successful AI analysis and afterwards
// mutated only by appending/replacing stage data or improvement data.
type Analysis struct {
	ID           uuid.UUID            `json:"id"`
	UserID       string               `json:"user_id"`
	URL          string               `json:"url"`
	Goal         string               `json:"goal,omitempty"`
	Summary      string               `json:"summary"`
	Structured   *StructuredAnalysis  `json:"structured,omitempty"`
	Stages       map[int]*StageRecord `json:"stages,omitempty"`
	Insights     *TechnologyInsights  `json:"insights,omitempty"`
	Improvements []Improvement        `json:"improvements,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// StructuredAnalysis is the multi-section analysis produced by the AI pass.
type StructuredAnalysis struct {
	Overview  string   `json:"overview"`
	Market    string   `json:"market"`
	Technical string   `json:"technical"`
	Data      string   `json:"data"`
	Synthesis string   `json:"synthesis"`
	Sources   []string `json:"sources,omitempty"`
}

// Improvement records user-driven refinement appended to an analysis.
type Improvement struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TechnologyInsights bundles the technology-detection output with the
// scores derived from it.
type TechnologyInsights struct {
	Technologies    []DetectedTechnology `json:"technologies,omitempty"`
	DetectionStatus DetectionStatus      `json:"detection_status"`
	Degraded        bool                 `json:"degraded,omitempty"`
	Complexity      *ComplexityResult    `json:"complexity,omitempty"`
	Clonability     *ClonabilityScore    `json:"clonability,omitempty"`
}

// DetectionStatus describes how the technology-detection branch settled.
type DetectionStatus string

const (
	DetectionStatusSuccess  DetectionStatus = "success"
	DetectionStatusFailed   DetectionStatus = "failed"
	DetectionStatusTimeout  DetectionStatus = "timeout"
	DetectionStatusDisabled DetectionStatus = "disabled"
)

// PageMetadata is the first-party extraction result for a target URL.
type PageMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// HasContent reports whether any first-party data was extracted.
func (m *PageMetadata) HasContent() bool {
	return m != nil && (m.Title != "" || m.Description != "")
}
