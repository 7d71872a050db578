package models

import (
	"fmt"
	"time"
)

// StageStatus represents the lifecycle state of a single plan stage.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusFailed     StageStatus = "failed"
)

// The cloning plan always has exactly six ordered stages.
const (
	FirstStage = 1
	LastStage  = 6
)

// stageNames maps stage numbers to their fixed names.
var stageNames = map[int]string{
	1: "Discovery",
	2: "Filter",
	3: "MVP Planning",
	4: "Demand Testing",
	5: "Scaling",
	6: "Automation Mapping",
}

// StageName returns the fixed name for a stage number, or an empty string
// for out-of-range numbers.
func StageName(n int) string {
	return stageNames[n]
}

// IsValidStageNumber reports whether n is within the six-stage plan.
func IsValidStageNumber(n int) bool {
	return n >= FirstStage && n <= LastStage
}

// StageRecord holds the generated content and lifecycle timestamps for one
// stage of the cloning plan. Content is an opaque payload whose shape varies
// per stage number.
//
// Invariants: CompletedAt is set if and only if Status is completed, and
// GeneratedAt is preserved across regenerations of the same stage.
type StageRecord struct {
	StageNumber int            `json:"stage_number"`
	StageName   string         `json:"stage_name"`
	Status      StageStatus    `json:"status"`
	Content     map[string]any `json:"content,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewStageRecord creates a completed stage record with the current time as
// both generation and completion instant.
func NewStageRecord(stageNumber int, content map[string]any, now time.Time) (*StageRecord, error) {
	if !IsValidStageNumber(stageNumber) {
		return nil, fmt.Errorf("invalid stage number %d: must be between %d and %d", stageNumber, FirstStage, LastStage)
	}
	completed := now
	return &StageRecord{
		StageNumber: stageNumber,
		StageName:   StageName(stageNumber),
		Status:      StageStatusCompleted,
		Content:     content,
		GeneratedAt: now,
		CompletedAt: &completed,
	}, nil
}

// Regenerate replaces the stage content and completion instant while
// preserving the original generation instant.
func (s *StageRecord) Regenerate(content map[string]any, now time.Time) {
	completed := now
	s.Content = content
	s.Status = StageStatusCompleted
	s.CompletedAt = &completed
}

// IsCompleted reports whether the stage has completed content.
func (s *StageRecord) IsCompleted() bool {
	return s != nil && s.Status == StageStatusCompleted
}
