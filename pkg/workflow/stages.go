// Package workflow enforces the stage-progression rules of the six-stage
// cloning plan.
package workflow

import (
	"fmt"
	"time"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

// StageError reports an illegal stage transition with a human-readable
// reason naming the missing prerequisite.
type StageError struct {
	StageNumber int
	Reason      string
}

func (e *StageError) Error() string {
	return e.Reason
}

// CanGenerate reports whether stage n may be generated given the current
// stage map. Generating stage n is legal when n is already completed (a
// regeneration, always allowed) or when stage n-1 is completed. Stage 1 is
// auto-completed at analysis time and never separately generated.
func CanGenerate(stages map[int]*models.StageRecord, n int) error {
	if n < 2 || n > models.LastStage {
		return &StageError{
			StageNumber: n,
			Reason:      fmt.Sprintf("stage number %d is out of range: only stages 2-%d can be generated", n, models.LastStage),
		}
	}

	// Regeneration of a completed stage is always allowed and does not
	// affect other stages.
	if stages[n].IsCompleted() {
		return nil
	}

	if !stages[n-1].IsCompleted() {
		return &StageError{
			StageNumber: n,
			Reason: fmt.Sprintf("stage %d (%s) cannot be generated yet: stage %d (%s) must be completed first",
				n, models.StageName(n), n-1, models.StageName(n-1)),
		}
	}
	return nil
}

// HighestCompleted returns the highest completed stage number, or 0 when no
// stage is completed.
func HighestCompleted(stages map[int]*models.StageRecord) int {
	highest := 0
	for n := models.FirstStage; n <= models.LastStage; n++ {
		if stages[n].IsCompleted() && n > highest {
			highest = n
		}
	}
	return highest
}

// CurrentStage returns min(6, 1 + highest completed stage number).
func CurrentStage(stages map[int]*models.StageRecord) int {
	current := HighestCompleted(stages) + 1
	if current > models.LastStage {
		return models.LastStage
	}
	return current
}

// NextStage returns the next stage to generate, or ok=false when all six
// stages are completed.
func NextStage(stages map[int]*models.StageRecord) (int, bool) {
	if HighestCompleted(stages) == models.LastStage {
		return 0, false
	}
	return CurrentStage(stages), true
}

// ApplyGenerated records freshly generated content for stage n in the stage
// map. A new stage gets the current time as its generation instant; a
// regenerated stage keeps its original one while its content and completion
// instant are replaced.
func ApplyGenerated(stages map[int]*models.StageRecord, n int, content map[string]any, now time.Time) (*models.StageRecord, error) {
	if existing, ok := stages[n]; ok && existing.IsCompleted() {
		existing.Regenerate(content, now)
		return existing, nil
	}

	record, err := models.NewStageRecord(n, content, now)
	if err != nil {
		return nil, err
	}
	stages[n] = record
	return record, nil
}
