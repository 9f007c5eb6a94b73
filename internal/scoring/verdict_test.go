package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairlens/fairlens/internal/domain"
)

func TestHarmVerdicts(t *testing.T) {
	tests := []struct {
		name  string
		score domain.MetricScore
		want  string
	}{
		{"nil is failed", nil, VerdictFailed},
		{"zero is low", domain.Float(0), VerdictLow},
		{"just below low bound", domain.Float(0.299), VerdictLow},
		{"at low bound is moderate", domain.Float(0.3), VerdictModerate},
		{"just below moderate bound", domain.Float(0.699), VerdictModerate},
		{"at moderate bound is high", domain.Float(0.7), VerdictHigh},
		{"one is high", domain.Float(1), VerdictHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BiasVerdict(tt.score))
			assert.Equal(t, tt.want, ToxicityVerdict(tt.score))
		})
	}
}

func TestQualityVerdicts(t *testing.T) {
	tests := []struct {
		name  string
		score domain.MetricScore
		want  string
	}{
		{"nil is failed", nil, VerdictFailed},
		{"zero is low", domain.Float(0), VerdictLow},
		{"just below low bound", domain.Float(0.299), VerdictLow},
		{"at low bound is moderate", domain.Float(0.3), VerdictModerate},
		{"at moderate bound is high", domain.Float(0.7), VerdictHigh},
		{"one is high", domain.Float(1), VerdictHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelevancyVerdict(tt.score))
			assert.Equal(t, tt.want, FaithfulnessVerdict(tt.score))
		})
	}
}
