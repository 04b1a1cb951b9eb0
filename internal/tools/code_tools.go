package tools

import (
	"context"

	"github.com/mcpenterprise/server/internal/registry"
	"github.com/mcpenterprise/server/internal/storage/relational"
)

// CodeStore is the narrow relational dependency the code-knowledge
// tool group needs. This store never parses source itself (§3); all
// entities/relations arrive pre-extracted via Analyzer.Analyze.
type CodeStore interface {
	InsertCodeEntity(ctx context.Context, e relational.CodeEntity) error
	InsertCodeRelation(ctx context.Context, r relational.CodeRelation) error
	FindEntity(ctx context.Context, projectID, name string) ([]relational.CodeEntity, error)
	ModulesByProject(ctx context.Context, projectID string) ([]relational.CodeEntity, error)
	RelationsFrom(ctx context.Context, entityID string) ([]relational.CodeRelation, error)
	RelationsTo(ctx context.Context, entityID string) ([]relational.CodeRelation, error)
	EntitiesByProject(ctx context.Context, projectID string) ([]relational.CodeEntity, error)
	SearchEntitiesByPattern(ctx context.Context, projectID, pattern string) ([]relational.CodeEntity, error)
	CountEntitiesAndRelations(ctx context.Context, projectID string) (entities, relations int64, err error)
}

// Analyzer is the external collaborator that turns a project's source
// tree into entities and relations (SPEC_FULL.md §3). No in-process
// parsing is implemented; a nil Analyzer simply makes the `analyze`
// tool unavailable for registration.
type Analyzer interface {
	Analyze(ctx context.Context, projectID, path string) ([]relational.CodeEntity, []relational.CodeRelation, error)
}

// RegisterCodeTools wires the code-knowledge tool group onto reg.
// analyzer may be nil, in which case `analyze` is skipped and the
// remaining read-only tools still register over whatever entities and
// relations are already stored.
func RegisterCodeTools(reg *registry.Registry, store CodeStore, analyzer Analyzer) {
	if analyzer != nil {
		reg.Register(registry.Tool{
			Name:        "analyze",
			Description: "Analyze a project's source tree and persist the extracted entities and relations.",
			InputSchema: registry.Schema{Properties: map[string]registry.Field{
				"project_id": {Type: registry.TypeString, Required: true},
				"path":       {Type: registry.TypeString, Required: true},
			}},
			Handler: handleAnalyze(store, analyzer),
		})
	}

	reg.Register(registry.Tool{
		Name:        "query",
		Description: "Summarize a project's stored code knowledge: module list and aggregate counts.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: handleCodeQuery(store),
	})

	reg.Register(registry.Tool{
		Name:        "find-entity",
		Description: "Find entities by exact name within a project.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
			"name":       {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			name, err := requiredStringArg(args, "name")
			if err != nil {
				return nil, err
			}
			entities, err := store.FindEntity(ctx, projectID, name)
			if err != nil {
				return nil, err
			}
			return map[string]any{"entities": entities}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "trace-calls",
		Description: "List relations originating at an entity (e.g. calls, imports).",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"entity_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: handleRelationsFrom(store),
	})

	reg.Register(registry.Tool{
		Name:        "dependencies",
		Description: "List an entity's outgoing dependency relations.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"entity_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: handleRelationsFrom(store),
	})

	reg.Register(registry.Tool{
		Name:        "modules",
		Description: "List package/module entities known for a project.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			modules, err := store.ModulesByProject(ctx, projectID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"modules": modules}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "list-entities",
		Description: "List every code entity recorded for a project, unfiltered by kind.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			entities, err := store.EntitiesByProject(ctx, projectID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"entities": entities}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "entity-relations",
		Description: "Show both incoming and outgoing relations for an entity.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"entity_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			entityID, err := requiredStringArg(args, "entity_id")
			if err != nil {
				return nil, err
			}
			outgoing, err := store.RelationsFrom(ctx, entityID)
			if err != nil {
				return nil, err
			}
			incoming, err := store.RelationsTo(ctx, entityID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"outgoing": outgoing, "incoming": incoming}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "dependents",
		Description: "List relations terminating at an entity (what depends on it).",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"entity_id": {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			entityID, err := requiredStringArg(args, "entity_id")
			if err != nil {
				return nil, err
			}
			relations, err := store.RelationsTo(ctx, entityID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"relations": relations}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "search-pattern",
		Description: "Case-insensitive substring search over entity names in a project.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
			"pattern":    {Type: registry.TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			projectID, err := requiredStringArg(args, "project_id")
			if err != nil {
				return nil, err
			}
			pattern, err := requiredStringArg(args, "pattern")
			if err != nil {
				return nil, err
			}
			entities, err := store.SearchEntitiesByPattern(ctx, projectID, pattern)
			if err != nil {
				return nil, err
			}
			return map[string]any{"entities": entities}, nil
		},
	})
}

func handleAnalyze(store CodeStore, analyzer Analyzer) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		projectID, err := requiredStringArg(args, "project_id")
		if err != nil {
			return nil, err
		}
		path, err := requiredStringArg(args, "path")
		if err != nil {
			return nil, err
		}

		entities, relations, err := analyzer.Analyze(ctx, projectID, path)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			if err := store.InsertCodeEntity(ctx, e); err != nil {
				return nil, err
			}
		}
		for _, r := range relations {
			if err := store.InsertCodeRelation(ctx, r); err != nil {
				return nil, err
			}
		}
		return map[string]any{
			"entities_found":  len(entities),
			"relations_found": len(relations),
		}, nil
	}
}

func handleCodeQuery(store CodeStore) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		projectID, err := requiredStringArg(args, "project_id")
		if err != nil {
			return nil, err
		}
		modules, err := store.ModulesByProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		entities, relations, err := store.CountEntitiesAndRelations(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"modules":        modules,
			"entity_count":   entities,
			"relation_count": relations,
		}, nil
	}
}

func handleRelationsFrom(store CodeStore) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		entityID, err := requiredStringArg(args, "entity_id")
		if err != nil {
			return nil, err
		}
		relations, err := store.RelationsFrom(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"relations": relations}, nil
	}
}
