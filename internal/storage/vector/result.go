package vector

import (
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

// memoryNamespace anchors the deterministic UUID derivation below so
// the same memory_id always maps to the same Weaviate object id.
var memoryNamespace = uuid.MustParse("6f3f7b2a-6e0a-4e49-9d8f-3a1a9e7c9b10")

func weaviateID(memoryID string) string {
	return uuid.NewSHA1(memoryNamespace, []byte(memoryID)).String()
}

func parseMatches(result *graphql.GraphQLResponse) ([]Match, error) {
	get, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	rows, ok := get[className].([]interface{})
	if !ok {
		return nil, nil
	}

	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		m := Match{
			MemoryID:   stringField(obj, "memory_id"),
			ProjectID:  stringField(obj, "project_id"),
			Content:    stringField(obj, "content"),
			Category:   stringField(obj, "category"),
			Importance: floatField(obj, "importance"),
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			m.Distance = float32(floatField(additional, "distance"))
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func stringField(obj map[string]interface{}, key string) string {
	v, _ := obj[key].(string)
	return v
}

func floatField(obj map[string]interface{}, key string) float64 {
	switch v := obj[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	default:
		return 0
	}
}
