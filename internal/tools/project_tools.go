package tools

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mcpenterprise/server/internal/registry"
	"github.com/mcpenterprise/server/internal/storage/relational"
)

// ProjectContextStore is the narrow relational dependency the
// project-context tool group needs: CRUD over sessions, TODOs, notes,
// and design decisions, all owned by a Project (SPEC_FULL.md §3).
type ProjectContextStore interface {
	EnsureProject(ctx context.Context, projectID, name string) error
	InsertSession(ctx context.Context, sess relational.Session) error
	ListSessions(ctx context.Context, projectID string) ([]relational.Session, error)
	InsertTodo(ctx context.Context, t relational.Todo) error
	UpdateTodoStatus(ctx context.Context, todoID, status string) error
	ListTodos(ctx context.Context, projectID string) ([]relational.Todo, error)
	InsertNote(ctx context.Context, n relational.Note) error
	ListNotes(ctx context.Context, projectID string) ([]relational.Note, error)
	InsertDecision(ctx context.Context, d relational.Decision) error
	ListDecisions(ctx context.Context, projectID string) ([]relational.Decision, error)
}

// RegisterProjectTools wires the session/TODO/note/decision CRUD tools
// onto reg, backed by store.
func RegisterProjectTools(reg *registry.Registry, store ProjectContextStore) {
	reg.Register(registry.Tool{
		Name:        "create_session",
		Description: "Record a project session summary.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
			"summary":    {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			summary, err := requiredStringArg(args, "summary")
			if err != nil {
				return nil, err
			}
			if err := store.EnsureProject(ctx, projectID, projectID); err != nil {
				return nil, err
			}
			sessionID := uuid.NewString()
			if err := store.InsertSession(ctx, relational.Session{
				SessionID: sessionID, ProjectID: projectID, Summary: summary, CreatedAt: time.Now(),
			}); err != nil {
				return nil, err
			}
			return map[string]any{"session_id": sessionID}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "list_sessions",
		Description: "List recorded sessions for a project, newest first.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			sessions, err := store.ListSessions(ctx, projectID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"sessions": sessions}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "create_todo",
		Description: "Add a TODO item to a project.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
			"text":       {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			text, err := requiredStringArg(args, "text")
			if err != nil {
				return nil, err
			}
			if err := store.EnsureProject(ctx, projectID, projectID); err != nil {
				return nil, err
			}
			todoID := uuid.NewString()
			if err := store.InsertTodo(ctx, relational.Todo{
				TodoID: todoID, ProjectID: projectID, Text: text, Status: "open", CreatedAt: time.Now(),
			}); err != nil {
				return nil, err
			}
			return map[string]any{"todo_id": todoID}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "update_todo_status",
		Description: "Update a TODO's status (e.g. open, done).",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"todo_id": {Type: registry.TypeString, Required: true},
			"status":  {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			todoID, err := requiredStringArg(args, "todo_id")
			if err != nil {
				return nil, err
			}
			status, err := requiredStringArg(args, "status")
			if err != nil {
				return nil, err
			}
			if err := store.UpdateTodoStatus(ctx, todoID, status); err != nil {
				return nil, err
			}
			return map[string]any{"todo_id": todoID, "status": status}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "list_todos",
		Description: "List TODO items for a project, newest first.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			todos, err := store.ListTodos(ctx, projectID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"todos": todos}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "create_note",
		Description: "Attach a free-form note to a project.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
			"content":    {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			content, err := requiredStringArg(args, "content")
			if err != nil {
				return nil, err
			}
			if err := store.EnsureProject(ctx, projectID, projectID); err != nil {
				return nil, err
			}
			noteID := uuid.NewString()
			if err := store.InsertNote(ctx, relational.Note{
				NoteID: noteID, ProjectID: projectID, Content: content, CreatedAt: time.Now(),
			}); err != nil {
				return nil, err
			}
			return map[string]any{"note_id": noteID}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "list_notes",
		Description: "List notes attached to a project, newest first.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			notes, err := store.ListNotes(ctx, projectID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"notes": notes}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "create_decision",
		Description: "Record a design decision and its rationale for a project.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
			"title":      {Type: registry.TypeString, Required: true},
			"rationale":  {Type: registry.TypeString},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			title, err := requiredStringArg(args, "title")
			if err != nil {
				return nil, err
			}
			if err := store.EnsureProject(ctx, projectID, projectID); err != nil {
				return nil, err
			}
			decisionID := uuid.NewString()
			if err := store.InsertDecision(ctx, relational.Decision{
				DecisionID: decisionID, ProjectID: projectID, Title: title,
				Rationale: stringArg(args, "rationale", ""), CreatedAt: time.Now(),
			}); err != nil {
				return nil, err
			}
			return map[string]any{"decision_id": decisionID}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "list_decisions",
		Description: "List design decisions recorded for a project, newest first.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			decisions, err := store.ListDecisions(ctx, projectID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"decisions": decisions}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "project_statistics",
		Description: "Summarize a project's sessions, TODOs, notes, and decisions.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: handleProjectStatistics(store),
	})
}

// handleProjectStatistics aggregates counts across the four
// project-context tables rather than adding a dedicated SQL
// aggregation method, since the existing List* calls already return
// everything needed and a project's context is small enough that
// summing in Go costs nothing worth optimizing away.
func handleProjectStatistics(store ProjectContextStore) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		projectID, err := requiredStringArg(args, "project_id")
		if err != nil {
			return nil, err
		}

		sessions, err := store.ListSessions(ctx, projectID)
		if err != nil {
			return nil, err
		}
		todos, err := store.ListTodos(ctx, projectID)
		if err != nil {
			return nil, err
		}
		notes, err := store.ListNotes(ctx, projectID)
		if err != nil {
			return nil, err
		}
		decisions, err := store.ListDecisions(ctx, projectID)
		if err != nil {
			return nil, err
		}

		todosByStatus := make(map[string]int)
		for _, t := range todos {
			todosByStatus[t.Status]++
		}

		return map[string]any{
			"project_id":      projectID,
			"session_count":   len(sessions),
			"todo_count":      len(todos),
			"todos_by_status": todosByStatus,
			"note_count":      len(notes),
			"decision_count":  len(decisions),
		}, nil
	}
}
