package relational

import (
	"context"
	"fmt"
)

// Project-context tables support the supplemented session/TODO/note/
// decision tool group (SPEC_FULL.md §3). CRUD is intentionally simple:
// these are append-mostly records owned by a project, not a separate
// subsystem with its own invariants.

func (s *Store) InsertSession(ctx context.Context, sess Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, project_id, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, sess.SessionID, sess.ProjectID, sess.Summary, sess.CreatedAt)
	return err
}

func (s *Store) ListSessions(ctx context.Context, projectID string) ([]Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, project_id, summary, created_at, updated_at
		FROM sessions WHERE project_id = $1 ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("relational: list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.SessionID, &sess.ProjectID, &sess.Summary, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) InsertTodo(ctx context.Context, t Todo) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO todos (todo_id, project_id, text, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, t.TodoID, t.ProjectID, t.Text, t.Status, t.CreatedAt)
	return err
}

func (s *Store) UpdateTodoStatus(ctx context.Context, todoID, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE todos SET status = $2, updated_at = now() WHERE todo_id = $1
	`, todoID, status)
	return err
}

func (s *Store) ListTodos(ctx context.Context, projectID string) ([]Todo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT todo_id, project_id, text, status, created_at, updated_at
		FROM todos WHERE project_id = $1 ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("relational: list todos: %w", err)
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.TodoID, &t.ProjectID, &t.Text, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) InsertNote(ctx context.Context, n Note) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notes (note_id, project_id, content, created_at)
		VALUES ($1, $2, $3, $4)
	`, n.NoteID, n.ProjectID, n.Content, n.CreatedAt)
	return err
}

func (s *Store) ListNotes(ctx context.Context, projectID string) ([]Note, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT note_id, project_id, content, created_at
		FROM notes WHERE project_id = $1 ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("relational: list notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.NoteID, &n.ProjectID, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) InsertDecision(ctx context.Context, d Decision) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO decisions (decision_id, project_id, title, rationale, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, d.DecisionID, d.ProjectID, d.Title, d.Rationale, d.CreatedAt)
	return err
}

func (s *Store) ListDecisions(ctx context.Context, projectID string) ([]Decision, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT decision_id, project_id, title, rationale, created_at
		FROM decisions WHERE project_id = $1 ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("relational: list decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.DecisionID, &d.ProjectID, &d.Title, &d.Rationale, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
