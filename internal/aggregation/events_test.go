package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairlens/fairlens/internal/domain"
)

func TestItemCompletedIdempotencyKey(t *testing.T) {
	t.Run("deterministic across calls", func(t *testing.T) {
		a := ItemCompletedIdempotencyKey("job-1", domain.PhaseCollection, 3)
		b := ItemCompletedIdempotencyKey("job-1", domain.PhaseCollection, 3)
		assert.Equal(t, a, b)
	})

	t.Run("distinct per job, phase and index", func(t *testing.T) {
		base := ItemCompletedIdempotencyKey("job-1", domain.PhaseCollection, 3)
		assert.NotEqual(t, base, ItemCompletedIdempotencyKey("job-2", domain.PhaseCollection, 3))
		assert.NotEqual(t, base, ItemCompletedIdempotencyKey("job-1", domain.PhaseEvaluation, 3))
		assert.NotEqual(t, base, ItemCompletedIdempotencyKey("job-1", domain.PhaseCollection, 4))
	})
}
