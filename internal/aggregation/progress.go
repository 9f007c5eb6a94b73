// Package aggregation routes per-item completion events into the job's
// per-item slots and derives progress from the populated slot counts.
// All operations are idempotent: duplicate delivery of a completion event
// re-reads the already-populated slot and returns the same answer without
// mutating state, and phase transitions fire exactly once per job because
// only the arrival that populates the final slot crosses the threshold.
package aggregation

import (
	"fmt"
	"math"

	"github.com/fairlens/fairlens/internal/domain"
)

// collectionPhaseCeiling caps collection-phase progress: automated jobs map
// collected/total onto 0-50% and evaluation onto 50-100%.
const collectionPhaseCeiling = 50

// ProgressModel selects how completions map onto percent-complete.
type ProgressModel int

const (
	// SinglePhase maps evaluated/total directly onto 0-100%.
	SinglePhase ProgressModel = iota

	// TwoPhase maps collection onto 0-50% and evaluation onto 50-100%.
	TwoPhase
)

// ModelForJobType returns the progress model a job type uses.
func ModelForJobType(t domain.JobType) ProgressModel {
	if t == domain.JobTypeAutomatedEndpointTest {
		return TwoPhase
	}
	return SinglePhase
}

// Percent computes percent-complete for a phase under the given model.
// Derived solely from the populated slot count and the total; clamped to
// [0,100] and monotonic within a phase because completed never decreases.
func Percent(model ProgressModel, phase domain.Phase, completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}

	ratio := float64(completed) / float64(total)

	var pct int
	switch {
	case model == SinglePhase:
		pct = int(math.Round(ratio * 100))
	case phase == domain.PhaseCollection:
		pct = int(math.Round(ratio * collectionPhaseCeiling))
	default:
		pct = collectionPhaseCeiling + int(math.Round(ratio*(100-collectionPhaseCeiling)))
	}

	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ProgressString formats the human-readable "completed/total" counter.
func ProgressString(completed, total int) string {
	if completed > total {
		completed = total
	}
	return fmt.Sprintf("%d/%d", completed, total)
}
