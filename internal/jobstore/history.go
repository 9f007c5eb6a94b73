package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fairlens/fairlens/internal/domain"
)

// HistoryReport is the immutable historical record persisted for automated
// endpoint jobs at finalization, upserted by job id. Config has secret-like
// fields redacted before persistence.
type HistoryReport struct {
	JobID         string              `json:"job_id"`
	TotalPrompts  int                 `json:"total_prompts"`
	SuccessCount  int                 `json:"success_count"`
	FailureCount  int                 `json:"failure_count"`
	AverageScores domain.JobSummary   `json:"average_scores"`
	Results       []domain.ItemResult `json:"results"`
	Errors        []string            `json:"errors"`
	Config        map[string]any      `json:"config,omitempty"`
}

// UpsertHistoryReport persists the report keyed by job id. Callers must
// redact the config before handing the report over; the store persists what
// it is given.
func (s *Store) UpsertHistoryReport(ctx context.Context, report HistoryReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding history report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history_reports (job_id, report, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(job_id) DO UPDATE SET report = excluded.report, updated_at = CURRENT_TIMESTAMP`,
		report.JobID, string(data))
	if err != nil {
		return fmt.Errorf("upserting history report: %w", err)
	}
	return nil
}

// GetHistoryReport loads the persisted report for a job, or nil when none
// exists.
func (s *Store) GetHistoryReport(ctx context.Context, jobID string) (*HistoryReport, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM history_reports WHERE job_id = ?`, jobID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying history report: %w", err)
	}

	var report HistoryReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("decoding history report: %w", err)
	}
	return &report, nil
}
