package relational

import (
	"context"
	"fmt"
)

// InsertMemory persists a mid- or long-tier memory record. Short-tier
// records never reach this store (§4.E). Importance defaults to 0.8
// when unset, matching §3's write-time invariant; callers supplying a
// value in [0,1] are passed through unchanged.
func (s *Store) InsertMemory(ctx context.Context, m Memory) error {
	importance := m.Importance
	if importance == 0 {
		importance = 0.8
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO memories (memory_id, project_id, tier, content, category, importance, tags, creator, created_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (memory_id) DO NOTHING
	`, m.MemoryID, m.ProjectID, m.Tier, m.Content, m.Category, importance, m.Tags, m.Creator, m.CreatedAt, toFloat64Slice(m.Embedding))
	if err != nil {
		return fmt.Errorf("relational: insert memory %s: %w", m.MemoryID, err)
	}
	return nil
}

// MemoriesByProject returns every durable memory for projectID in the
// given tier ("mid" or "long"), newest first.
func (s *Store) MemoriesByProject(ctx context.Context, projectID, tier string) ([]Memory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT memory_id, project_id, tier, content, category, importance, tags, creator, created_at, embedding
		FROM memories WHERE project_id = $1 AND tier = $2
		ORDER BY created_at DESC
	`, projectID, tier)
	if err != nil {
		return nil, fmt.Errorf("relational: memories by project %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		var embedding []float64
		if err := rows.Scan(&m.MemoryID, &m.ProjectID, &m.Tier, &m.Content, &m.Category, &m.Importance, &m.Tags, &m.Creator, &m.CreatedAt, &embedding); err != nil {
			return nil, err
		}
		m.Embedding = toFloat32Slice(embedding)
		out = append(out, m)
	}
	return out, rows.Err()
}

// TopMemoriesByImportance returns up to limit rows for projectID/tier
// ordered by importance DESC, the long-tier candidate set of §4.E's
// recall algorithm.
func (s *Store) TopMemoriesByImportance(ctx context.Context, projectID, tier string, limit int) ([]Memory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT memory_id, project_id, tier, content, category, importance, tags, creator, created_at, embedding
		FROM memories WHERE project_id = $1 AND tier = $2
		ORDER BY importance DESC, created_at DESC
		LIMIT $3
	`, projectID, tier, limit)
	if err != nil {
		return nil, fmt.Errorf("relational: top memories by importance %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		var embedding []float64
		if err := rows.Scan(&m.MemoryID, &m.ProjectID, &m.Tier, &m.Content, &m.Category, &m.Importance, &m.Tags, &m.Creator, &m.CreatedAt, &embedding); err != nil {
			return nil, err
		}
		m.Embedding = toFloat32Slice(embedding)
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecentMemories returns up to limit rows for projectID/tier ordered
// by recency, used when no keywords can be extracted from a query.
func (s *Store) RecentMemories(ctx context.Context, projectID, tier string, limit int) ([]Memory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT memory_id, project_id, tier, content, category, importance, tags, creator, created_at, embedding
		FROM memories WHERE project_id = $1 AND tier = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, projectID, tier, limit)
	if err != nil {
		return nil, fmt.Errorf("relational: recent memories %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		var embedding []float64
		if err := rows.Scan(&m.MemoryID, &m.ProjectID, &m.Tier, &m.Content, &m.Category, &m.Importance, &m.Tags, &m.Creator, &m.CreatedAt, &embedding); err != nil {
			return nil, err
		}
		m.Embedding = toFloat32Slice(embedding)
		out = append(out, m)
	}
	return out, rows.Err()
}

// AllMidTierEmbeddings loads every mid-tier memory's embedding for
// projectID, for components that maintain their own in-memory vector
// index instead of delegating to the external vector store.
func (s *Store) AllMidTierEmbeddings(ctx context.Context, projectID string) ([]Memory, error) {
	return s.MemoriesByProject(ctx, projectID, "mid")
}

func toFloat64Slice(in []float32) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func toFloat32Slice(in []float64) []float32 {
	if in == nil {
		return nil
	}
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
