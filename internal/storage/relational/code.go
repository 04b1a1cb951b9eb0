package relational

import (
	"context"
	"encoding/json"
	"fmt"
)

// Code-knowledge tables (SPEC_FULL.md §3) are populated entirely by an
// external Analyzer; this store never parses source itself.

func (s *Store) InsertCodeEntity(ctx context.Context, e CodeEntity) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("relational: marshal entity metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO code_entities (entity_id, project_id, kind, name, path, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity_id) DO UPDATE SET
			kind = EXCLUDED.kind, name = EXCLUDED.name, path = EXCLUDED.path, metadata = EXCLUDED.metadata
	`, e.EntityID, e.ProjectID, e.Kind, e.Name, e.Path, meta, e.CreatedAt)
	return err
}

func (s *Store) InsertCodeRelation(ctx context.Context, r CodeRelation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO code_relations (relation_id, project_id, from_id, to_id, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (relation_id) DO NOTHING
	`, r.RelationID, r.ProjectID, r.FromID, r.ToID, r.Kind, r.CreatedAt)
	return err
}

// FindEntity looks up entities by project and exact name, used by the
// `find-entity` tool.
func (s *Store) FindEntity(ctx context.Context, projectID, name string) ([]CodeEntity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT entity_id, project_id, kind, name, path, metadata, created_at
		FROM code_entities WHERE project_id = $1 AND name = $2
	`, projectID, name)
	if err != nil {
		return nil, fmt.Errorf("relational: find entity %s: %w", name, err)
	}
	defer rows.Close()
	return scanCodeEntities(rows)
}

// ModulesByProject returns every entity of kind "package" or "module",
// used by the `modules` tool.
func (s *Store) ModulesByProject(ctx context.Context, projectID string) ([]CodeEntity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT entity_id, project_id, kind, name, path, metadata, created_at
		FROM code_entities WHERE project_id = $1 AND kind IN ('package', 'module')
		ORDER BY name
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("relational: modules by project %s: %w", projectID, err)
	}
	defer rows.Close()
	return scanCodeEntities(rows)
}

// RelationsFrom returns every relation originating at entityID, used by
// `trace-calls` and `dependencies`.
func (s *Store) RelationsFrom(ctx context.Context, entityID string) ([]CodeRelation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT relation_id, project_id, from_id, to_id, kind, created_at
		FROM code_relations WHERE from_id = $1
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("relational: relations from %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []CodeRelation
	for rows.Next() {
		var r CodeRelation
		if err := rows.Scan(&r.RelationID, &r.ProjectID, &r.FromID, &r.ToID, &r.Kind, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EntitiesByProject returns every code entity recorded for a project,
// unfiltered by kind, used by `list-entities`.
func (s *Store) EntitiesByProject(ctx context.Context, projectID string) ([]CodeEntity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT entity_id, project_id, kind, name, path, metadata, created_at
		FROM code_entities WHERE project_id = $1
		ORDER BY name
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("relational: entities by project %s: %w", projectID, err)
	}
	defer rows.Close()
	return scanCodeEntities(rows)
}

// RelationsTo returns every relation terminating at entityID, the
// reverse direction of RelationsFrom, used by `dependents`.
func (s *Store) RelationsTo(ctx context.Context, entityID string) ([]CodeRelation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT relation_id, project_id, from_id, to_id, kind, created_at
		FROM code_relations WHERE to_id = $1
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("relational: relations to %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []CodeRelation
	for rows.Next() {
		var r CodeRelation
		if err := rows.Scan(&r.RelationID, &r.ProjectID, &r.FromID, &r.ToID, &r.Kind, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SearchEntitiesByPattern does a case-insensitive substring search over
// entity names, used by `search-pattern`. The core spec's Non-goals
// exclude NLU or AST-level pattern matching; this is plain SQL ILIKE.
func (s *Store) SearchEntitiesByPattern(ctx context.Context, projectID, pattern string) ([]CodeEntity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT entity_id, project_id, kind, name, path, metadata, created_at
		FROM code_entities WHERE project_id = $1 AND name ILIKE '%' || $2 || '%'
		ORDER BY name
	`, projectID, pattern)
	if err != nil {
		return nil, fmt.Errorf("relational: search entities %s: %w", pattern, err)
	}
	defer rows.Close()
	return scanCodeEntities(rows)
}

// CountEntitiesAndRelations backs the `quality_report` tool's aggregate
// metrics (entity count, relation count, average in-degree).
func (s *Store) CountEntitiesAndRelations(ctx context.Context, projectID string) (entities, relations int64, err error) {
	row := s.pool.QueryRow(ctx, `SELECT count(*) FROM code_entities WHERE project_id = $1`, projectID)
	if err = row.Scan(&entities); err != nil {
		return 0, 0, fmt.Errorf("relational: count entities: %w", err)
	}
	row = s.pool.QueryRow(ctx, `SELECT count(*) FROM code_relations WHERE project_id = $1`, projectID)
	if err = row.Scan(&relations); err != nil {
		return 0, 0, fmt.Errorf("relational: count relations: %w", err)
	}
	return entities, relations, nil
}

func scanCodeEntities(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]CodeEntity, error) {
	var out []CodeEntity
	for rows.Next() {
		var e CodeEntity
		var meta []byte
		if err := rows.Scan(&e.EntityID, &e.ProjectID, &e.Kind, &e.Name, &e.Path, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("relational: unmarshal entity metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
