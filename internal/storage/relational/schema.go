package relational

import "context"

// schema creates every table this adapter uses if absent. The server
// runs this once at startup rather than shipping a separate migration
// tool, matching the scale of the teacher's own database package.
const schema = `
CREATE TABLE IF NOT EXISTS projects (
	project_id  TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	owner       TEXT NOT NULL DEFAULT '',
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS memories (
	memory_id  TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(project_id),
	tier       TEXT NOT NULL,
	content    TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	importance DOUBLE PRECISION NOT NULL DEFAULT 0.8,
	tags       TEXT[] NOT NULL DEFAULT '{}',
	creator    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	embedding  DOUBLE PRECISION[]
);
CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_id);

CREATE TABLE IF NOT EXISTS error_patterns (
	error_id            TEXT PRIMARY KEY,
	error_type          TEXT NOT NULL,
	error_scene         TEXT NOT NULL DEFAULT '',
	feature_map         JSONB NOT NULL DEFAULT '{}',
	error_message       TEXT NOT NULL DEFAULT '',
	solution            TEXT NOT NULL DEFAULT '',
	solution_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	block_level         TEXT NOT NULL DEFAULT 'none',
	occurrence_count    BIGINT NOT NULL DEFAULT 1,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(project_id),
	summary    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS todos (
	todo_id    TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(project_id),
	text       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'open',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notes (
	note_id    TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(project_id),
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS decisions (
	decision_id TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL REFERENCES projects(project_id),
	title       TEXT NOT NULL,
	rationale   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS code_entities (
	entity_id  TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(project_id),
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	path       TEXT NOT NULL DEFAULT '',
	metadata   JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_code_entities_project ON code_entities(project_id);

CREATE TABLE IF NOT EXISTS code_relations (
	relation_id TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL REFERENCES projects(project_id),
	from_id     TEXT NOT NULL REFERENCES code_entities(entity_id),
	to_id       TEXT NOT NULL REFERENCES code_entities(entity_id),
	kind        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_code_relations_project ON code_relations(project_id);
`

// Migrate applies schema. Safe to call on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}
