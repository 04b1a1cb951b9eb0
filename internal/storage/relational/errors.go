package relational

import (
	"context"
	"encoding/json"
	"fmt"
)

// UpsertErrorPattern inserts a new Error Pattern or, when errorID
// already exists, increments occurrence_count, bumps last_seen_at, and
// refreshes error_message/solution/solution_confidence/block_level to
// whatever the caller resolved them to, matching the §3 "at most one
// record per error_id" invariant. Firewall.RecordError already decides
// whether to keep the prior solution or adopt a newly supplied one
// before calling this, so e.Solution here is always the value that
// should win.
func (s *Store) UpsertErrorPattern(ctx context.Context, e ErrorPattern) error {
	features, err := json.Marshal(e.FeatureMap)
	if err != nil {
		return fmt.Errorf("relational: marshal feature map: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO error_patterns
			(error_id, error_type, error_scene, feature_map, error_message, solution, solution_confidence, block_level, occurrence_count, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, now(), now())
		ON CONFLICT (error_id) DO UPDATE SET
			occurrence_count = error_patterns.occurrence_count + 1,
			last_seen_at = now(),
			error_message = EXCLUDED.error_message,
			solution = EXCLUDED.solution,
			solution_confidence = EXCLUDED.solution_confidence,
			block_level = EXCLUDED.block_level
	`, e.ErrorID, e.ErrorType, e.ErrorScene, features, e.ErrorMessage, e.Solution, e.SolutionConfidence, e.BlockLevel)
	if err != nil {
		return fmt.Errorf("relational: upsert error pattern %s: %w", e.ErrorID, err)
	}
	return nil
}

// GetErrorPattern returns the error pattern by id, or pgx.ErrNoRows.
func (s *Store) GetErrorPattern(ctx context.Context, errorID string) (*ErrorPattern, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT error_id, error_type, error_scene, feature_map, error_message, solution, solution_confidence, block_level, occurrence_count, created_at, last_seen_at
		FROM error_patterns WHERE error_id = $1
	`, errorID)
	return scanErrorPatternRow(row)
}

// AllErrorPatterns returns every stored error pattern, for the firewall's
// in-memory feature-overlap matching pass (§4.F).
func (s *Store) AllErrorPatterns(ctx context.Context) ([]ErrorPattern, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT error_id, error_type, error_scene, feature_map, error_message, solution, solution_confidence, block_level, occurrence_count, created_at, last_seen_at
		FROM error_patterns
	`)
	if err != nil {
		return nil, fmt.Errorf("relational: list error patterns: %w", err)
	}
	defer rows.Close()

	var out []ErrorPattern
	for rows.Next() {
		e, err := scanErrorPatternRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanErrorPatternRow(row rowScanner) (*ErrorPattern, error) {
	var e ErrorPattern
	var features []byte
	if err := row.Scan(&e.ErrorID, &e.ErrorType, &e.ErrorScene, &features, &e.ErrorMessage, &e.Solution, &e.SolutionConfidence, &e.BlockLevel, &e.OccurrenceCount, &e.CreatedAt, &e.LastSeenAt); err != nil {
		return nil, fmt.Errorf("relational: scan error pattern: %w", err)
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &e.FeatureMap); err != nil {
			return nil, fmt.Errorf("relational: unmarshal feature map: %w", err)
		}
	}
	return &e, nil
}
