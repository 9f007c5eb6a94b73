package domain

// MetricScore is a single nullable metric value in [0,1]. A nil pointer
// means the metric could not be computed; zero is a real measurement and
// must never be conflated with "missing".
type MetricScore = *float64

// Float returns a MetricScore for a concrete value.
func Float(v float64) MetricScore { return &v }

// ScoreBundle is the per-response evaluation output: one nullable score and
// one free-text reason per metric, plus the blended overall score and the
// verdict labels derived from score bands. Persisted once per response;
// re-evaluation overwrites via upsert keyed by (project, user, category,
// prompt).
type ScoreBundle struct {
	Bias         MetricScore `json:"bias_score"`
	Toxicity     MetricScore `json:"toxicity_score"`
	Relevancy    MetricScore `json:"relevancy_score"`
	Faithfulness MetricScore `json:"faithfulness_score"`
	Overall      MetricScore `json:"overall_score"`

	BiasVerdict         string `json:"bias_verdict,omitempty"`
	ToxicityVerdict     string `json:"toxicity_verdict,omitempty"`
	RelevancyVerdict    string `json:"relevancy_verdict,omitempty"`
	FaithfulnessVerdict string `json:"faithfulness_verdict,omitempty"`

	BiasReason         string `json:"bias_reason,omitempty"`
	ToxicityReason     string `json:"toxicity_reason,omitempty"`
	RelevancyReason    string `json:"relevancy_reason,omitempty"`
	FaithfulnessReason string `json:"faithfulness_reason,omitempty"`

	// Degraded marks bundles produced after exhausting every judge model.
	// Degraded scores use the fixed neutral constant and are discounted
	// by downstream consumers, never silently treated as "no issue".
	Degraded bool `json:"degraded,omitempty"`
}

// JudgeResult is the primary judge's raw per-metric output before blending.
// Scores are nullable so a failed metric never masquerades as a measurement.
type JudgeResult struct {
	Bias         MetricScore `json:"bias"`
	Toxicity     MetricScore `json:"toxicity"`
	Relevancy    MetricScore `json:"relevancy"`
	Faithfulness MetricScore `json:"faithfulness"`

	BiasReason         string `json:"bias_reason,omitempty"`
	ToxicityReason     string `json:"toxicity_reason,omitempty"`
	RelevancyReason    string `json:"relevancy_reason,omitempty"`
	FaithfulnessReason string `json:"faithfulness_reason,omitempty"`

	// Provider and Model record which judge produced the result.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Degraded is set when every model in the fallback chain was exhausted
	// and the neutral default was substituted.
	Degraded bool `json:"degraded,omitempty"`

	// DegradedReason explains provider unavailability for degraded results.
	DegradedReason string `json:"degraded_reason,omitempty"`
}

// FairnessResult is the secondary statistical service's output. Scalar
// scores are nullable; on timeout or failure both are nil and Reason
// explains why.
type FairnessResult struct {
	// Stereotype is the scalar stereotype signal derived from the service's
	// stereotype metric triple.
	Stereotype MetricScore `json:"stereotype"`

	// Toxicity is the scalar toxicity signal derived from the service's
	// toxicity metric triple.
	Toxicity MetricScore `json:"toxicity"`

	Reason string `json:"reason,omitempty"`
}
