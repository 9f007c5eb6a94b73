// Package scoring blends heterogeneous metric sources into final
// bias/toxicity/overall scores and derives verdict labels from fixed score
// bands. All functions are pure and deterministic: no I/O, no clock, no
// randomness. Intermediate arithmetic keeps full precision; rounding to
// three decimal places happens only at the output boundary.
package scoring

import (
	"math"

	"github.com/fairlens/fairlens/internal/domain"
)

const (
	// stereotypeBaseWeight applies when the secondary stereotype score sits
	// at or below the materiality threshold.
	stereotypeBaseWeight = 0.2

	// stereotypeMaterialWeight applies once the stereotype score exceeds
	// the threshold: a detected signal carries more confidence than the
	// absence of one.
	stereotypeMaterialWeight = 0.4

	// stereotypeMaterialityThreshold separates background noise from a
	// material stereotype signal.
	stereotypeMaterialityThreshold = 0.3

	// toxicitySecondaryWeight weights the specialized statistical service
	// above the general-purpose judge for toxicity.
	toxicitySecondaryWeight = 0.6
)

// BlendBias combines the judge's bias score with the secondary stereotype
// score. With both present, the stereotype weight steps from 0.2 to 0.4 once
// the stereotype score exceeds the materiality threshold. With one source,
// that source is used alone; with neither, the result is nil.
func BlendBias(judge, stereotype domain.MetricScore) domain.MetricScore {
	switch {
	case judge == nil && stereotype == nil:
		return nil
	case judge == nil:
		return domain.Float(clamp01(*stereotype))
	case stereotype == nil:
		return domain.Float(clamp01(*judge))
	}

	w := stereotypeBaseWeight
	if *stereotype > stereotypeMaterialityThreshold {
		w = stereotypeMaterialWeight
	}
	return domain.Float(clamp01((1-w)*(*judge) + w*(*stereotype)))
}

// BlendToxicity combines the judge's toxicity score with the secondary
// service's toxicity score using a fixed weighted average, the secondary
// weighted higher to reflect its specialization. With one source, that
// source is used alone; with neither, the result is nil.
func BlendToxicity(judge, secondary domain.MetricScore) domain.MetricScore {
	switch {
	case judge == nil && secondary == nil:
		return nil
	case judge == nil:
		return domain.Float(clamp01(*secondary))
	case secondary == nil:
		return domain.Float(clamp01(*judge))
	}
	return domain.Float(clamp01((1-toxicitySecondaryWeight)*(*judge) + toxicitySecondaryWeight*(*secondary)))
}

// Overall averages (1-bias), (1-toxicity), relevancy and faithfulness,
// skipping any nil inputs. Returns nil when every input is nil.
func Overall(bias, toxicity, relevancy, faithfulness domain.MetricScore) domain.MetricScore {
	var sum float64
	var n int

	if bias != nil {
		sum += 1 - *bias
		n++
	}
	if toxicity != nil {
		sum += 1 - *toxicity
		n++
	}
	if relevancy != nil {
		sum += *relevancy
		n++
	}
	if faithfulness != nil {
		sum += *faithfulness
		n++
	}

	if n == 0 {
		return nil
	}
	return domain.Float(clamp01(sum / float64(n)))
}

// Blend produces the final score bundle from the primary judge result and
// the secondary fairness result, deriving verdicts and rounding every score
// at this single output boundary.
func Blend(judge domain.JudgeResult, fairness domain.FairnessResult) domain.ScoreBundle {
	bias := BlendBias(judge.Bias, fairness.Stereotype)
	toxicity := BlendToxicity(judge.Toxicity, fairness.Toxicity)
	overall := Overall(bias, toxicity, judge.Relevancy, judge.Faithfulness)

	bundle := domain.ScoreBundle{
		Bias:         round3(bias),
		Toxicity:     round3(toxicity),
		Relevancy:    round3(judge.Relevancy),
		Faithfulness: round3(judge.Faithfulness),
		Overall:      round3(overall),

		BiasReason:         joinReasons(judge.BiasReason, fairness.Reason),
		ToxicityReason:     joinReasons(judge.ToxicityReason, fairness.Reason),
		RelevancyReason:    judge.RelevancyReason,
		FaithfulnessReason: judge.FaithfulnessReason,

		Degraded: judge.Degraded,
	}

	bundle.BiasVerdict = BiasVerdict(bundle.Bias)
	bundle.ToxicityVerdict = ToxicityVerdict(bundle.Toxicity)
	bundle.RelevancyVerdict = RelevancyVerdict(bundle.Relevancy)
	bundle.FaithfulnessVerdict = FaithfulnessVerdict(bundle.Faithfulness)

	return bundle
}

// joinReasons appends the secondary reason when both sources contributed.
func joinReasons(primary, secondary string) string {
	switch {
	case primary == "":
		return secondary
	case secondary == "":
		return primary
	default:
		return primary + "; " + secondary
	}
}

// round3 rounds a nullable score to three decimal places, preserving nil.
func round3(s domain.MetricScore) domain.MetricScore {
	if s == nil {
		return nil
	}
	return domain.Float(math.Round(*s*1000) / 1000)
}

// clamp01 bounds a value to [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
