package tools

import (
	"context"

	"github.com/mcpenterprise/server/internal/registry"
)

// QualityStore is the narrow relational dependency quality_report
// needs: aggregate entity/relation counts, no NLU (Non-goals).
type QualityStore interface {
	CountEntitiesAndRelations(ctx context.Context, projectID string) (entities, relations int64, err error)
}

// RegisterQualityTools wires quality_report onto reg.
func RegisterQualityTools(reg *registry.Registry, store QualityStore) {
	reg.Register(registry.Tool{
		Name:        "quality_report",
		Description: "Report simple aggregate code-knowledge metrics for a project: entity count, relation count, average in-degree.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			entities, relations, err := store.CountEntitiesAndRelations(ctx, projectID)
			if err != nil {
				return nil, err
			}
			avgInDegree := 0.0
			if entities > 0 {
				avgInDegree = float64(relations) / float64(entities)
			}
			return map[string]any{
				"entity_count":   entities,
				"relation_count": relations,
				"avg_in_degree":  avgInDegree,
			}, nil
		},
	})
}
