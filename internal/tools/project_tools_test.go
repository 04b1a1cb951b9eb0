package tools

import (
	"context"
	"testing"

	"github.com/mcpenterprise/server/internal/storage/relational"
)

type fakeProjectStore struct {
	sessions  []relational.Session
	todos     []relational.Todo
	notes     []relational.Note
	decisions []relational.Decision
}

func (f *fakeProjectStore) EnsureProject(ctx context.Context, projectID, name string) error {
	return nil
}

func (f *fakeProjectStore) InsertSession(ctx context.Context, sess relational.Session) error {
	f.sessions = append(f.sessions, sess)
	return nil
}

func (f *fakeProjectStore) ListSessions(ctx context.Context, projectID string) ([]relational.Session, error) {
	return f.sessions, nil
}

func (f *fakeProjectStore) InsertTodo(ctx context.Context, t relational.Todo) error {
	f.todos = append(f.todos, t)
	return nil
}

func (f *fakeProjectStore) UpdateTodoStatus(ctx context.Context, todoID, status string) error {
	for i := range f.todos {
		if f.todos[i].TodoID == todoID {
			f.todos[i].Status = status
		}
	}
	return nil
}

func (f *fakeProjectStore) ListTodos(ctx context.Context, projectID string) ([]relational.Todo, error) {
	return f.todos, nil
}

func (f *fakeProjectStore) InsertNote(ctx context.Context, n relational.Note) error {
	f.notes = append(f.notes, n)
	return nil
}

func (f *fakeProjectStore) ListNotes(ctx context.Context, projectID string) ([]relational.Note, error) {
	return f.notes, nil
}

func (f *fakeProjectStore) InsertDecision(ctx context.Context, d relational.Decision) error {
	f.decisions = append(f.decisions, d)
	return nil
}

func (f *fakeProjectStore) ListDecisions(ctx context.Context, projectID string) ([]relational.Decision, error) {
	return f.decisions, nil
}

func TestCreateAndListTodos(t *testing.T) {
	store := &fakeProjectStore{}
	reg := newTestRegistry()
	RegisterProjectTools(reg, store)

	create, _ := reg.Get("create_todo")
	result, err := create.Handler(context.Background(), map[string]any{"project_id": "p1", "text": "write tests"})
	if err != nil {
		t.Fatalf("create_todo: %v", err)
	}
	todoID := result.(map[string]any)["todo_id"].(string)
	if todoID == "" {
		t.Fatal("expected a todo_id")
	}

	update, _ := reg.Get("update_todo_status")
	if _, err := update.Handler(context.Background(), map[string]any{"todo_id": todoID, "status": "done"}); err != nil {
		t.Fatalf("update_todo_status: %v", err)
	}

	list, _ := reg.Get("list_todos")
	result, err = list.Handler(context.Background(), map[string]any{"project_id": "p1"})
	if err != nil {
		t.Fatalf("list_todos: %v", err)
	}
	todos := result.(map[string]any)["todos"].([]relational.Todo)
	if len(todos) != 1 || todos[0].Status != "done" {
		t.Fatalf("expected one done todo, got %+v", todos)
	}
}

func TestProjectStatisticsCountsAcrossTables(t *testing.T) {
	store := &fakeProjectStore{
		sessions: []relational.Session{{SessionID: "s1", ProjectID: "p1"}},
		todos: []relational.Todo{
			{TodoID: "t1", ProjectID: "p1", Status: "open"},
			{TodoID: "t2", ProjectID: "p1", Status: "done"},
			{TodoID: "t3", ProjectID: "p1", Status: "open"},
		},
		notes:     []relational.Note{{NoteID: "n1", ProjectID: "p1"}},
		decisions: []relational.Decision{{DecisionID: "d1", ProjectID: "p1"}, {DecisionID: "d2", ProjectID: "p1"}},
	}
	reg := newTestRegistry()
	RegisterProjectTools(reg, store)

	tool, ok := reg.Get("project_statistics")
	if !ok {
		t.Fatal("project_statistics not registered")
	}
	result, err := tool.Handler(context.Background(), map[string]any{"project_id": "p1"})
	if err != nil {
		t.Fatalf("project_statistics: %v", err)
	}
	payload := result.(map[string]any)
	if payload["session_count"] != 1 {
		t.Fatalf("expected session_count 1, got %+v", payload["session_count"])
	}
	if payload["todo_count"] != 3 {
		t.Fatalf("expected todo_count 3, got %+v", payload["todo_count"])
	}
	if payload["note_count"] != 1 {
		t.Fatalf("expected note_count 1, got %+v", payload["note_count"])
	}
	if payload["decision_count"] != 2 {
		t.Fatalf("expected decision_count 2, got %+v", payload["decision_count"])
	}
	byStatus := payload["todos_by_status"].(map[string]int)
	if byStatus["open"] != 2 || byStatus["done"] != 1 {
		t.Fatalf("expected 2 open/1 done, got %+v", byStatus)
	}
}

func TestCreateSessionRequiresSummary(t *testing.T) {
	store := &fakeProjectStore{}
	reg := newTestRegistry()
	RegisterProjectTools(reg, store)

	create, _ := reg.Get("create_session")
	if _, err := create.Handler(context.Background(), map[string]any{"project_id": "p1"}); err == nil {
		t.Fatal("expected error for missing summary")
	}
}
