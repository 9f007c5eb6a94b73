package domain

// Phase identifies which fan-out round an item result belongs to.
// Automated jobs run two phases; manual jobs only the evaluation phase.
type Phase string

const (
	// PhaseCollection is the endpoint-call round of automated jobs.
	PhaseCollection Phase = "collection"

	// PhaseEvaluation is the scoring round common to both job types.
	PhaseEvaluation Phase = "evaluation"
)

// WorkItem is one prompt/category pair. Immutable once enqueued; Index is
// the stable position used as the aggregation key across both phases.
type WorkItem struct {
	Index      int    `json:"index" validate:"min=0"`
	Category   string `json:"category" validate:"required"`
	PromptText string `json:"prompt_text" validate:"required"`

	// Response carries the answer to evaluate. For manual jobs it is the
	// caller-supplied response; for automated jobs it is populated from the
	// collection phase before evaluation dispatch.
	Response string `json:"response,omitempty"`
}

// Validate checks the work item against its structural requirements.
func (w *WorkItem) Validate() error { return validate.Struct(w) }

// ItemResult is one per-item completion, keyed by Index within a phase.
// Exactly one of Output/Scores (success) or Error (failure) is meaningful.
// Each index transitions from absent to present exactly once; duplicate
// arrivals are idempotent no-ops at the store layer.
type ItemResult struct {
	Index    int    `json:"index" validate:"min=0"`
	Category string `json:"category,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	Success  bool   `json:"success"`

	// Output is the extracted endpoint answer for collection results.
	Output string `json:"output,omitempty"`

	// Scores is the evaluation bundle for evaluation results.
	Scores *ScoreBundle `json:"scores,omitempty"`

	// Error is the human-readable failure message for failed items.
	// Raw provider stack traces are never surfaced here.
	Error string `json:"error,omitempty"`
}

// Validate checks the item result against its structural requirements.
func (r *ItemResult) Validate() error { return validate.Struct(r) }
