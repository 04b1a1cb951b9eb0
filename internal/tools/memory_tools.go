package tools

import (
	"context"
	"sort"

	"github.com/mcpenterprise/server/internal/auth"
	"github.com/mcpenterprise/server/internal/memory"
	"github.com/mcpenterprise/server/internal/registry"
)

// RegisterMemoryTools wires store_memory, retrieve_memory, and
// memory_stats onto reg, backed by store.
func RegisterMemoryTools(reg *registry.Registry, store *memory.Store) {
	reg.Register(registry.Tool{
		Name:        "store_memory",
		Description: "Store a memory at a given tier (short, mid, or long) for a project.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id":   {Type: registry.TypeString, Required: true},
			"content":      {Type: registry.TypeString, Required: true},
			"memory_level": {Type: registry.TypeString},
			"category":     {Type: registry.TypeString},
			"importance":   {Type: registry.TypeNumber},
			"tags":         {Type: registry.TypeArray},
		}},
		Handler: handleStoreMemory(store),
	})

	reg.Register(registry.Tool{
		Name:        "retrieve_memory",
		Description: "Recall memories relevant to a query across all three tiers.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id": {Type: registry.TypeString, Required: true},
			"query":      {Type: registry.TypeString, Required: true},
			"top_k":      {Type: registry.TypeNumber},
		}},
		Handler: handleRetrieveMemory(store),
	})

	reg.Register(registry.Tool{
		Name:        "memory_stats",
		Description: "Report rolling mid-tier search latency percentiles and counts.",
		InputSchema: registry.Schema{},
		Handler:     handleMemoryStats(store),
	})

	reg.Register(registry.Tool{
		Name:        "list_memories",
		Description: "List durable (mid or long tier) memories for a project without relevance scoring.",
		InputSchema: registry.Schema{Properties: map[string]registry.Field{
			"project_id":   {Type: registry.TypeString, Required: true},
			"memory_level": {Type: registry.TypeString},
		}},
		Handler: handleListMemories(store),
	})
}

func handleListMemories(store *memory.Store) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		projectID, err := requiredStringArg(args, "project_id")
		if err != nil {
			return nil, err
		}
		tier := memory.Tier(stringArg(args, "memory_level", string(memory.TierLong)))

		records, err := store.ListMemories(ctx, projectID, tier)
		if err != nil {
			return nil, err
		}
		memories := make([]map[string]any, 0, len(records))
		for _, m := range records {
			memories = append(memories, map[string]any{
				"memory_id":  m.MemoryID,
				"project_id": m.ProjectID,
				"tier":       string(m.Tier),
				"content":    m.Content,
				"category":   m.Category,
				"importance": m.Importance,
				"tags":       m.Tags,
				"created_at": m.CreatedAt,
			})
		}
		return map[string]any{"memories": memories}, nil
	}
}

func handleStoreMemory(store *memory.Store) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		projectID, err := requiredStringArg(args, "project_id")
		if err != nil {
			return nil, err
		}
		content, err := requiredStringArg(args, "content")
		if err != nil {
			return nil, err
		}

		tier := memory.Tier(stringArg(args, "memory_level", string(memory.TierLong)))
		creator := "unknown"
		if p := auth.PrincipalFromContext(ctx); p != nil {
			creator = p.ID
		}

		memoryID, err := store.Store(ctx, memory.StoreInput{
			ProjectID:  projectID,
			Tier:       tier,
			Content:    content,
			Category:   stringArg(args, "category", ""),
			Importance: floatArg(args, "importance", 0),
			Tags:       stringSliceArg(args, "tags"),
			Creator:    creator,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"memory_id": memoryID, "tier": string(tier)}, nil
	}
}

func handleRetrieveMemory(store *memory.Store) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		projectID, err := requiredStringArg(args, "project_id")
		if err != nil {
			return nil, err
		}
		query, err := requiredStringArg(args, "query")
		if err != nil {
			return nil, err
		}
		topK := intArg(args, "top_k", 5)

		result, err := store.Recall(ctx, projectID, query, topK)
		if err != nil {
			return nil, err
		}

		memories := make([]map[string]any, 0, len(result.Memories))
		for _, m := range result.Memories {
			memories = append(memories, map[string]any{
				"memory_id":       m.MemoryID,
				"project_id":      m.ProjectID,
				"tier":            string(m.Tier),
				"content":         m.Content,
				"category":        m.Category,
				"importance":      m.Importance,
				"tags":            m.Tags,
				"relevance_score": m.Score,
				"created_at":      m.CreatedAt,
			})
		}
		return map[string]any{
			"memories":          memories,
			"total_token_saved": result.TotalTokenSaved,
		}, nil
	}
}

func handleMemoryStats(store *memory.Store) registry.Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		stats := store.Stats()
		durations := make([]float64, 0, len(stats))
		successes := 0
		for _, s := range stats {
			durations = append(durations, s.DurationMs)
			if s.Success {
				successes++
			}
		}
		sort.Float64s(durations)

		return map[string]any{
			"total_searches": len(stats),
			"successes":      successes,
			"p50_ms":         percentile(durations, 50),
			"p95_ms":         percentile(durations, 95),
			"p99_ms":         percentile(durations, 99),
		}, nil
	}
}

// percentile returns the p-th percentile of a sorted slice as the
// element at index floor((len-1)*p/100), without interpolation; an
// empty slice yields 0.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
