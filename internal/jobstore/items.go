package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fairlens/fairlens/internal/domain"
)

// InsertWorkItems stores a job's immutable work items. Insertion is
// idempotent per (job, index) so redelivered setup steps are harmless.
func (s *Store) InsertWorkItems(ctx context.Context, jobID string, items []domain.WorkItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning work item transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO work_items (job_id, idx, category, prompt, response) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(job_id, idx) DO NOTHING`,
			jobID, item.Index, item.Category, item.PromptText, item.Response); err != nil {
			return fmt.Errorf("inserting work item %d: %w", item.Index, err)
		}
	}
	return tx.Commit()
}

// ListWorkItems returns a job's work items ordered by index.
func (s *Store) ListWorkItems(ctx context.Context, jobID string) ([]domain.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, category, prompt, response FROM work_items WHERE job_id = ? ORDER BY idx`, jobID)
	if err != nil {
		return nil, fmt.Errorf("querying work items: %w", err)
	}
	defer rows.Close()

	var items []domain.WorkItem
	for rows.Next() {
		var item domain.WorkItem
		if err := rows.Scan(&item.Index, &item.Category, &item.PromptText, &item.Response); err != nil {
			return nil, fmt.Errorf("scanning work item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SeedPrompts replaces the shared prompt set used by automated jobs.
func (s *Store) SeedPrompts(ctx context.Context, items []domain.WorkItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning prompt transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM prompts`); err != nil {
		return fmt.Errorf("clearing prompts: %w", err)
	}
	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO prompts (position, category, prompt) VALUES (?, ?, ?)`,
			item.Index, item.Category, item.PromptText); err != nil {
			return fmt.Errorf("inserting prompt %d: %w", item.Index, err)
		}
	}
	return tx.Commit()
}

// ListPrompts returns the shared prompt set ordered by position.
func (s *Store) ListPrompts(ctx context.Context) ([]domain.WorkItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, category, prompt FROM prompts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying prompts: %w", err)
	}
	defer rows.Close()

	var items []domain.WorkItem
	for rows.Next() {
		var item domain.WorkItem
		if err := rows.Scan(&item.Index, &item.Category, &item.PromptText); err != nil {
			return nil, fmt.Errorf("scanning prompt: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MergeItemResult merges one per-item completion into its slot. The merge
// is keyed by (job, phase, index): the first arrival populates the slot and
// every subsequent arrival is a no-op, making duplicate delivery safe.
// Returns whether this call populated the slot and the phase's populated
// slot count after the merge.
func (s *Store) MergeItemResult(
	ctx context.Context,
	jobID string,
	phase domain.Phase,
	result domain.ItemResult,
) (inserted bool, completed int, err error) {
	scores, err := marshalNullable(result.Scores)
	if err != nil {
		return false, 0, fmt.Errorf("encoding item scores: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	res, err := tx.ExecContext(ctx,
		`INSERT INTO item_results (job_id, phase, idx, success, category, prompt, output, scores, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_id, phase, idx) DO NOTHING`,
		jobID, string(phase), result.Index, boolToInt(result.Success),
		result.Category, result.Prompt, result.Output, scores, result.Error)
	if err != nil {
		return false, 0, fmt.Errorf("merging item result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("checking merge result: %w", err)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_results WHERE job_id = ? AND phase = ?`,
		jobID, string(phase)).Scan(&completed); err != nil {
		return false, 0, fmt.Errorf("counting item results: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("committing merge: %w", err)
	}
	return n > 0, completed, nil
}

// CountItemResults returns the populated and failed slot counts for a phase.
func (s *Store) CountItemResults(ctx context.Context, jobID string, phase domain.Phase) (total, failed int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		 FROM item_results WHERE job_id = ? AND phase = ?`,
		jobID, string(phase)).Scan(&total, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("counting item results: %w", err)
	}
	return total, failed, nil
}

// ListItemResults returns a phase's results ordered by original item index,
// making downstream consumption independent of completion order.
func (s *Store) ListItemResults(ctx context.Context, jobID string, phase domain.Phase) ([]domain.ItemResult, error) {
	return s.listResults(ctx,
		`SELECT idx, success, category, prompt, output, scores, error
		 FROM item_results WHERE job_id = ? AND phase = ? ORDER BY idx`,
		jobID, string(phase))
}

// ListSuccessfulResults returns only the successful results of a phase,
// ordered by original item index.
func (s *Store) ListSuccessfulResults(ctx context.Context, jobID string, phase domain.Phase) ([]domain.ItemResult, error) {
	return s.listResults(ctx,
		`SELECT idx, success, category, prompt, output, scores, error
		 FROM item_results WHERE job_id = ? AND phase = ? AND success = 1 ORDER BY idx`,
		jobID, string(phase))
}

func (s *Store) listResults(ctx context.Context, query string, args ...any) ([]domain.ItemResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying item results: %w", err)
	}
	defer rows.Close()

	var results []domain.ItemResult
	for rows.Next() {
		var r domain.ItemResult
		var success int
		var scores sql.NullString
		if err := rows.Scan(&r.Index, &success, &r.Category, &r.Prompt, &r.Output, &scores, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning item result: %w", err)
		}
		r.Success = success != 0
		if scores.Valid && scores.String != "" {
			var bundle domain.ScoreBundle
			if err := unmarshalString(scores.String, &bundle); err != nil {
				return nil, fmt.Errorf("decoding item scores: %w", err)
			}
			r.Scores = &bundle
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// marshalNullable encodes a value to JSON, mapping nil pointers to SQL NULL.
func marshalNullable(v any) (any, error) {
	switch val := v.(type) {
	case *domain.EndpointConfig:
		if val == nil {
			return nil, nil
		}
	case *domain.ScoreBundle:
		if val == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalString(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
