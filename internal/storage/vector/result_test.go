package vector

import (
	"testing"

	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

func TestWeaviateIDIsDeterministic(t *testing.T) {
	id1 := weaviateID("mem_20260730120000_abcd1234")
	id2 := weaviateID("mem_20260730120000_abcd1234")
	if id1 != id2 {
		t.Fatalf("expected deterministic id, got %s and %s", id1, id2)
	}

	other := weaviateID("mem_20260730120000_ffff0000")
	if id1 == other {
		t.Fatal("expected distinct memory ids to map to distinct Weaviate ids")
	}
}

func TestParseMatchesExtractsFields(t *testing.T) {
	result := &graphql.GraphQLResponse{
		Data: map[string]interface{}{
			"Get": map[string]interface{}{
				className: []interface{}{
					map[string]interface{}{
						"memory_id":  "mem_1",
						"project_id": "proj-1",
						"content":    "hello",
						"category":   "note",
						"importance": float64(0.9),
						"_additional": map[string]interface{}{
							"distance": float64(0.12),
						},
					},
				},
			},
		},
	}

	matches, err := parseMatches(result)
	if err != nil {
		t.Fatalf("parseMatches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.MemoryID != "mem_1" || m.ProjectID != "proj-1" || m.Importance != 0.9 {
		t.Fatalf("unexpected match: %+v", m)
	}
	if m.Distance <= 0.11 || m.Distance >= 0.13 {
		t.Fatalf("unexpected distance: %v", m.Distance)
	}
}

func TestParseMatchesEmptyResultIsNilNotError(t *testing.T) {
	result := &graphql.GraphQLResponse{Data: map[string]interface{}{}}
	matches, err := parseMatches(result)
	if err != nil {
		t.Fatalf("parseMatches: %v", err)
	}
	if matches != nil {
		t.Fatalf("expected nil matches, got %v", matches)
	}
}
