package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlens/fairlens/internal/domain"
)

func TestBlendBias(t *testing.T) {
	tests := []struct {
		name       string
		judge      domain.MetricScore
		stereotype domain.MetricScore
		want       domain.MetricScore
	}{
		{
			name: "both nil yields nil",
		},
		{
			name:       "judge only passes through",
			judge:      domain.Float(0.6),
			stereotype: nil,
			want:       domain.Float(0.6),
		},
		{
			name:       "stereotype only passes through",
			judge:      nil,
			stereotype: domain.Float(0.4),
			want:       domain.Float(0.4),
		},
		{
			name:       "below threshold uses base weight",
			judge:      domain.Float(0.5),
			stereotype: domain.Float(0.2),
			// 0.8*0.5 + 0.2*0.2
			want: domain.Float(0.44),
		},
		{
			name:       "at threshold still uses base weight",
			judge:      domain.Float(0.5),
			stereotype: domain.Float(0.3),
			// 0.8*0.5 + 0.2*0.3
			want: domain.Float(0.46),
		},
		{
			name:       "above threshold steps to material weight",
			judge:      domain.Float(0.5),
			stereotype: domain.Float(0.31),
			// 0.6*0.5 + 0.4*0.31
			want: domain.Float(0.424),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlendBias(tt.judge, tt.stereotype)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestBlendToxicity(t *testing.T) {
	t.Run("both present weights secondary higher", func(t *testing.T) {
		// 0.4*0.5 + 0.6*0.9
		got := BlendToxicity(domain.Float(0.5), domain.Float(0.9))
		require.NotNil(t, got)
		assert.InDelta(t, 0.74, *got, 1e-9)
	})

	t.Run("single source passes through", func(t *testing.T) {
		got := BlendToxicity(domain.Float(0.5), nil)
		require.NotNil(t, got)
		assert.InDelta(t, 0.5, *got, 1e-9)

		got = BlendToxicity(nil, domain.Float(0.9))
		require.NotNil(t, got)
		assert.InDelta(t, 0.9, *got, 1e-9)
	})

	t.Run("both nil yields nil", func(t *testing.T) {
		assert.Nil(t, BlendToxicity(nil, nil))
	})
}

func TestOverall(t *testing.T) {
	t.Run("all four metrics", func(t *testing.T) {
		// mean of (1-0.2), (1-0.4), 0.8, 0.6 = (0.8+0.6+0.8+0.6)/4
		got := Overall(domain.Float(0.2), domain.Float(0.4), domain.Float(0.8), domain.Float(0.6))
		require.NotNil(t, got)
		assert.InDelta(t, 0.7, *got, 1e-9)
	})

	t.Run("nil metrics are skipped not zeroed", func(t *testing.T) {
		// mean of (1-0.2) and 0.6 only
		got := Overall(domain.Float(0.2), nil, nil, domain.Float(0.6))
		require.NotNil(t, got)
		assert.InDelta(t, 0.7, *got, 1e-9)
	})

	t.Run("all nil yields nil", func(t *testing.T) {
		assert.Nil(t, Overall(nil, nil, nil, nil))
	})
}

func TestBlend(t *testing.T) {
	t.Run("full bundle rounds at output boundary", func(t *testing.T) {
		judge := domain.JudgeResult{
			Bias:               domain.Float(1.0 / 3.0),
			Toxicity:           domain.Float(0.1),
			Relevancy:          domain.Float(2.0 / 3.0),
			Faithfulness:       domain.Float(0.9),
			BiasReason:         "mild framing bias",
			RelevancyReason:    "on topic",
			FaithfulnessReason: "grounded",
		}
		fairness := domain.FairnessResult{
			Stereotype: domain.Float(0.2),
			Toxicity:   domain.Float(0.05),
		}

		bundle := Blend(judge, fairness)

		require.NotNil(t, bundle.Bias)
		// 0.8*(1/3) + 0.2*0.2 = 0.30666... rounds to 0.307
		assert.InDelta(t, 0.307, *bundle.Bias, 1e-9)

		require.NotNil(t, bundle.Toxicity)
		// 0.4*0.1 + 0.6*0.05 = 0.07
		assert.InDelta(t, 0.07, *bundle.Toxicity, 1e-9)

		require.NotNil(t, bundle.Relevancy)
		assert.InDelta(t, 0.667, *bundle.Relevancy, 1e-9)

		assert.Equal(t, VerdictModerate, bundle.BiasVerdict)
		assert.Equal(t, VerdictLow, bundle.ToxicityVerdict)
		assert.Equal(t, VerdictModerate, bundle.RelevancyVerdict)
		assert.Equal(t, VerdictHigh, bundle.FaithfulnessVerdict)
		assert.False(t, bundle.Degraded)
	})

	t.Run("fairness reason joins bias and toxicity reasons", func(t *testing.T) {
		judge := domain.JudgeResult{
			Bias:       domain.Float(0.1),
			BiasReason: "no bias observed",
		}
		fairness := domain.FairnessResult{Reason: "fairness service timed out after 15s"}

		bundle := Blend(judge, fairness)
		assert.Equal(t, "no bias observed; fairness service timed out after 15s", bundle.BiasReason)
		assert.Equal(t, "fairness service timed out after 15s", bundle.ToxicityReason)
	})

	t.Run("nil scores carry failed verdicts", func(t *testing.T) {
		bundle := Blend(domain.JudgeResult{}, domain.FairnessResult{})

		assert.Nil(t, bundle.Bias)
		assert.Nil(t, bundle.Overall)
		assert.Equal(t, VerdictFailed, bundle.BiasVerdict)
		assert.Equal(t, VerdictFailed, bundle.ToxicityVerdict)
		assert.Equal(t, VerdictFailed, bundle.RelevancyVerdict)
		assert.Equal(t, VerdictFailed, bundle.FaithfulnessVerdict)
	})

	t.Run("degraded judge flags bundle", func(t *testing.T) {
		judge := domain.JudgeResult{
			Bias:     domain.Float(0.5),
			Toxicity: domain.Float(0.5),
			Degraded: true,
		}
		bundle := Blend(judge, domain.FairnessResult{})
		assert.True(t, bundle.Degraded)
	})

	t.Run("scores stay within unit interval", func(t *testing.T) {
		judge := domain.JudgeResult{
			Bias:         domain.Float(1.0),
			Toxicity:     domain.Float(1.0),
			Relevancy:    domain.Float(0.0),
			Faithfulness: domain.Float(0.0),
		}
		fairness := domain.FairnessResult{
			Stereotype: domain.Float(1.0),
			Toxicity:   domain.Float(1.0),
		}

		bundle := Blend(judge, fairness)
		for _, s := range []domain.MetricScore{bundle.Bias, bundle.Toxicity, bundle.Relevancy, bundle.Faithfulness, bundle.Overall} {
			require.NotNil(t, s)
			assert.GreaterOrEqual(t, *s, 0.0)
			assert.LessOrEqual(t, *s, 1.0)
		}
	})
}
