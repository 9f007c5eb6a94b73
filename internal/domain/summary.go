package domain

// JobSummary aggregates per-item outcomes at finalization. Averages are
// computed over non-null scores of successful results only. Immutable after
// the job reaches a terminal status.
type JobSummary struct {
	Total      int `json:"total" validate:"min=0"`
	Successful int `json:"successful" validate:"min=0"`
	Failed     int `json:"failed" validate:"min=0"`

	AverageOverall  MetricScore `json:"average_overall_score"`
	AverageBias     MetricScore `json:"average_bias_score"`
	AverageToxicity MetricScore `json:"average_toxicity_score"`
}

// Validate checks the summary against its structural requirements.
func (s *JobSummary) Validate() error { return validate.Struct(s) }

// TerminalStatus derives the job's end state from its summary: failed iff
// zero successes, success iff zero failures and total > 0, otherwise
// partial_success. Zero-item jobs finalize as success with an empty summary.
func (s *JobSummary) TerminalStatus() JobStatus {
	if s.Total == 0 {
		return StatusSuccess
	}
	switch {
	case s.Successful == 0:
		return StatusFailed
	case s.Failed == 0:
		return StatusSuccess
	default:
		return StatusPartialSuccess
	}
}

// SummarizeResults builds a JobSummary from evaluation-phase results.
// Degraded bundles still count as successful items; their neutral scores
// participate in the averages like any other measurement.
func SummarizeResults(results []ItemResult) JobSummary {
	summary := JobSummary{Total: len(results)}

	var overallSum, biasSum, toxicitySum float64
	var overallN, biasN, toxicityN int

	for _, r := range results {
		if !r.Success {
			summary.Failed++
			continue
		}
		summary.Successful++
		if r.Scores == nil {
			continue
		}
		if r.Scores.Overall != nil {
			overallSum += *r.Scores.Overall
			overallN++
		}
		if r.Scores.Bias != nil {
			biasSum += *r.Scores.Bias
			biasN++
		}
		if r.Scores.Toxicity != nil {
			toxicitySum += *r.Scores.Toxicity
			toxicityN++
		}
	}

	if overallN > 0 {
		summary.AverageOverall = Float(overallSum / float64(overallN))
	}
	if biasN > 0 {
		summary.AverageBias = Float(biasSum / float64(biasN))
	}
	if toxicityN > 0 {
		summary.AverageToxicity = Float(toxicitySum / float64(toxicityN))
	}

	return summary
}
