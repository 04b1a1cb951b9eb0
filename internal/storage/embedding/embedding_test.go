package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcpenterprise/server/internal/config"
)

func TestEmbedOfflineReturnsDeterministicVector(t *testing.T) {
	c := New(config.EmbeddingModel{Offline: true, Dimensions: 16})
	v1, err := c.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	v2, err := c.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v1) != 16 {
		t.Fatalf("expected 16 dims, got %d", len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("expected deterministic embedding, differs at %d", i)
		}
	}
}

func TestEmbedBatchCallsConfiguredEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := embedResponse{Embeddings: make([][]float32, len(req.Inputs))}
		for i := range req.Inputs {
			resp.Embeddings[i] = []float32{1, 2, 3}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(config.EmbeddingModel{Endpoint: srv.URL, Dimensions: 3})
	vectors, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 3 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestEmbedBatchRejectsMismatchedCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1}}})
	}))
	defer srv.Close()

	c := New(config.EmbeddingModel{Endpoint: srv.URL})
	if _, err := c.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on vector-count mismatch")
	}
}
