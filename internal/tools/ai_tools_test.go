package tools

import (
	"context"
	"testing"

	"github.com/mcpenterprise/server/internal/memory"
)

type fakeAIClient struct {
	lastPrompt string
	response   string
}

func (f *fakeAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.response, nil
}

func TestAIAnalyzeSkippedWhenClientNil(t *testing.T) {
	reg := newTestRegistry()
	store := memory.New(nil, nil, nil, &fakeRelational{}, nil)
	RegisterAITools(reg, nil, store)

	if _, ok := reg.Get("ai_analyze"); ok {
		t.Fatal("expected ai_analyze to be absent without a client")
	}
}

func TestAIAnalyzeSummarizesRecalledMemories(t *testing.T) {
	reg := newTestRegistry()
	rel := &fakeRelational{}
	store := memory.New(nil, nil, nil, rel, nil)
	client := &fakeAIClient{response: "summary text"}
	RegisterAITools(reg, client, store)

	store.Store(context.Background(), memory.StoreInput{ProjectID: "p1", Tier: memory.TierLong, Content: "uses Go and Postgres"})

	tool, ok := reg.Get("ai_analyze")
	if !ok {
		t.Fatal("expected ai_analyze registered with a client")
	}
	result, err := tool.Handler(context.Background(), map[string]any{"project_id": "p1", "query": "Go Postgres"})
	if err != nil {
		t.Fatalf("ai_analyze: %v", err)
	}
	if result.(map[string]any)["summary"] != "summary text" {
		t.Fatalf("expected summarized response, got %+v", result)
	}
	if client.lastPrompt == "" {
		t.Fatal("expected a prompt to be built from recalled memories")
	}
}
