// Package vector adapts the mid-tier embedding index (§4.E) onto
// Weaviate, using HNSW (M=32, efConstruction=400, cosine distance) per
// the embedding_model section of §4.A. Naming follows the
// VectorDatabase/WeaviateConfig convention used across the retrieval
// pack's vector storage packages.
package vector

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/mcpenterprise/server/internal/config"
)

const className = "MemoryRecord"

// Match is a single nearest-neighbor result.
type Match struct {
	MemoryID   string
	ProjectID  string
	Content    string
	Category   string
	Importance float64
	Distance   float32
}

// Store is the vector index adapter. One collection ("class" in
// Weaviate's terminology) holds every project's mid-tier memories,
// filtered by project_id at query time.
type Store struct {
	client *weaviate.Client
}

// New connects to Weaviate and ensures the collection schema exists.
func New(ctx context.Context, cfg config.VectorIndex) (*Store, error) {
	wcfg := weaviate.Config{
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("vector: new client: %w", err)
	}

	s := &Store{client: client}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
	if err != nil {
		return fmt.Errorf("vector: check schema: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      className,
		Vectorizer: "none",
		VectorIndexConfig: map[string]interface{}{
			"distance":       "cosine",
			"maxConnections": 32,
			"efConstruction": 400,
		},
		Properties: []*models.Property{
			{Name: "memory_id", DataType: []string{"text"}},
			{Name: "project_id", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "category", DataType: []string{"text"}},
			{Name: "importance", DataType: []string{"number"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("vector: create schema: %w", err)
	}
	return nil
}

// Upsert inserts a memory's embedding and metadata under an object id
// derived from memoryID. It creates a new object only; an object that
// already exists under that id is not replaced and Weaviate returns an
// error.
func (s *Store) Upsert(ctx context.Context, memoryID, projectID, content, category string, importance float64, embedding []float32) error {
	props := map[string]interface{}{
		"memory_id":  memoryID,
		"project_id": projectID,
		"content":    content,
		"category":   category,
		"importance": importance,
	}

	_, err := s.client.Data().Creator().
		WithClassName(className).
		WithID(weaviateID(memoryID)).
		WithProperties(props).
		WithVector(embedding).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("vector: upsert %s: %w", memoryID, err)
	}
	return nil
}

// Search performs a nearest-neighbor query scoped to projectID. The
// efSearch argument is accepted but not applied: the query runs with
// the collection's configured ef, not a per-query value.
func (s *Store) Search(ctx context.Context, projectID string, embedding []float32, limit int, efSearch int) ([]Match, error) {
	where := filters.Where().
		WithPath([]string{"project_id"}).
		WithOperator(filters.Equal).
		WithValueText(projectID)

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(embedding)

	fields := []graphql.Field{
		{Name: "memory_id"},
		{Name: "project_id"},
		{Name: "content"},
		{Name: "category"},
		{Name: "importance"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector: search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("vector: search: %s", result.Errors[0].Message)
	}

	return parseMatches(result)
}

// Delete removes a memory's embedding by id.
func (s *Store) Delete(ctx context.Context, memoryID string) error {
	if err := s.client.Data().Deleter().
		WithClassName(className).
		WithID(weaviateID(memoryID)).
		Do(ctx); err != nil {
		return fmt.Errorf("vector: delete %s: %w", memoryID, err)
	}
	return nil
}

// Ready checks cluster readiness, used by the health endpoint.
func (s *Store) Ready(ctx context.Context) (bool, error) {
	ok, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("vector: ready check: %w", err)
	}
	return ok, nil
}
