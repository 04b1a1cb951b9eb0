package tools

import (
	"context"

	"github.com/mcpenterprise/server/internal/registry"
	"github.com/mcpenterprise/server/internal/stats"
)

// UnifiedStats is the narrow dependency the system tool group needs:
// the same snapshot builder backing the HTTP /api/v1/stats endpoint
// and its legacy aliases, so a client can pull these figures over MCP
// without a separate HTTP round trip.
type UnifiedStats interface {
	Snapshot(sections ...string) stats.UnifiedStatsResponse
}

// RegisterSystemTools wires server_stats, pool_stats, and vector_stats
// onto reg, each reading from the same collector/pool/vector
// collaborators as the unified stats HTTP endpoint.
func RegisterSystemTools(reg *registry.Registry, unified UnifiedStats) {
	reg.Register(registry.Tool{
		Name:        "server_stats",
		Description: "Report request counters, active connections, pool utilization, and vector search latency in one call.",
		InputSchema: registry.Schema{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return unified.Snapshot(), nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "pool_stats",
		Description: "Report database connection pool size, utilization, and query throughput.",
		InputSchema: registry.Schema{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return unified.Snapshot("pool"), nil
		},
	})

	reg.Register(registry.Tool{
		Name:        "vector_stats",
		Description: "Report vector-index availability and rolling mid-tier search latency percentiles.",
		InputSchema: registry.Schema{},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return unified.Snapshot("vector"), nil
		},
	})
}
