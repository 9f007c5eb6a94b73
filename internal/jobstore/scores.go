package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fairlens/fairlens/internal/domain"
)

// UpsertEvaluationScore persists a score bundle keyed by (project, user,
// category, prompt). Re-evaluation overwrites the previous bundle.
func (s *Store) UpsertEvaluationScore(
	ctx context.Context,
	projectID, userID, category, prompt string,
	bundle domain.ScoreBundle,
) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encoding score bundle: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluation_scores (project_id, user_id, category, prompt, scores, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(project_id, user_id, category, prompt)
		 DO UPDATE SET scores = excluded.scores, updated_at = CURRENT_TIMESTAMP`,
		projectID, userID, category, prompt, string(data))
	if err != nil {
		return fmt.Errorf("upserting evaluation score: %w", err)
	}
	return nil
}

// GetEvaluationScore loads the persisted bundle for one response, or nil
// when none has been stored.
func (s *Store) GetEvaluationScore(
	ctx context.Context,
	projectID, userID, category, prompt string,
) (*domain.ScoreBundle, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT scores FROM evaluation_scores
		 WHERE project_id = ? AND user_id = ? AND category = ? AND prompt = ?`,
		projectID, userID, category, prompt).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying evaluation score: %w", err)
	}

	var bundle domain.ScoreBundle
	if err := json.Unmarshal([]byte(data), &bundle); err != nil {
		return nil, fmt.Errorf("decoding evaluation score: %w", err)
	}
	return &bundle, nil
}
