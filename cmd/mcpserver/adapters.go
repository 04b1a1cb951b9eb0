package main

import (
	"context"
	"time"

	"github.com/mcpenterprise/server/internal/firewall"
	"github.com/mcpenterprise/server/internal/memory"
	"github.com/mcpenterprise/server/internal/pool"
	"github.com/mcpenterprise/server/internal/stats"
	"github.com/mcpenterprise/server/internal/storage/relational"
	"github.com/mcpenterprise/server/internal/storage/vector"
)

// memoryRelationalAdapter satisfies memory.Relational over a
// *relational.Store. The two packages declare independent record types
// (memory.RelationalMemory vs. relational.Memory) so internal/memory
// never has to import the storage package, which means the wiring
// that bridges them lives here, at the composition root.
type memoryRelationalAdapter struct {
	store *relational.Store
}

func (a *memoryRelationalAdapter) EnsureProject(ctx context.Context, projectID, name string) error {
	return a.store.EnsureProject(ctx, projectID, name)
}

func (a *memoryRelationalAdapter) InsertMemory(ctx context.Context, m memory.RelationalMemory) error {
	return a.store.InsertMemory(ctx, relational.Memory{
		MemoryID:   m.MemoryID,
		ProjectID:  m.ProjectID,
		Tier:       m.Tier,
		Content:    m.Content,
		Category:   m.Category,
		Importance: m.Importance,
		Tags:       m.Tags,
		Creator:    m.Creator,
		CreatedAt:  m.CreatedAt,
	})
}

func (a *memoryRelationalAdapter) TopMemoriesByImportance(ctx context.Context, projectID, tier string, limit int) ([]memory.RelationalMemory, error) {
	rows, err := a.store.TopMemoriesByImportance(ctx, projectID, tier, limit)
	if err != nil {
		return nil, err
	}
	return toRelationalMemories(rows), nil
}

func (a *memoryRelationalAdapter) RecentMemories(ctx context.Context, projectID, tier string, limit int) ([]memory.RelationalMemory, error) {
	rows, err := a.store.RecentMemories(ctx, projectID, tier, limit)
	if err != nil {
		return nil, err
	}
	return toRelationalMemories(rows), nil
}

func (a *memoryRelationalAdapter) MemoriesByProject(ctx context.Context, projectID, tier string) ([]memory.RelationalMemory, error) {
	rows, err := a.store.MemoriesByProject(ctx, projectID, tier)
	if err != nil {
		return nil, err
	}
	return toRelationalMemories(rows), nil
}

func toRelationalMemories(rows []relational.Memory) []memory.RelationalMemory {
	out := make([]memory.RelationalMemory, 0, len(rows))
	for _, r := range rows {
		out = append(out, memory.RelationalMemory{
			MemoryID:   r.MemoryID,
			ProjectID:  r.ProjectID,
			Tier:       r.Tier,
			Content:    r.Content,
			Category:   r.Category,
			Importance: r.Importance,
			Tags:       r.Tags,
			Creator:    r.Creator,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out
}

// firewallRelationalAdapter satisfies firewall.Relational over a
// *relational.Store, translating between firewall.Pattern and
// relational.ErrorPattern (identical fields, distinct BlockLevel
// types) the same way memoryRelationalAdapter does for memories.
type firewallRelationalAdapter struct {
	store *relational.Store
}

func (a *firewallRelationalAdapter) UpsertErrorPattern(ctx context.Context, e firewall.Pattern) error {
	return a.store.UpsertErrorPattern(ctx, relational.ErrorPattern{
		ErrorID:            e.ErrorID,
		ErrorType:          e.ErrorType,
		ErrorScene:         e.ErrorScene,
		FeatureMap:         e.FeatureMap,
		ErrorMessage:       e.ErrorMessage,
		Solution:           e.Solution,
		SolutionConfidence: e.SolutionConfidence,
		BlockLevel:         string(e.BlockLevel),
		OccurrenceCount:    e.OccurrenceCount,
		CreatedAt:          e.CreatedAt,
		LastSeenAt:         e.LastSeenAt,
	})
}

func (a *firewallRelationalAdapter) AllErrorPatterns(ctx context.Context) ([]firewall.Pattern, error) {
	rows, err := a.store.AllErrorPatterns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]firewall.Pattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, firewall.Pattern{
			ErrorID:            r.ErrorID,
			ErrorType:          r.ErrorType,
			ErrorScene:         r.ErrorScene,
			FeatureMap:         r.FeatureMap,
			ErrorMessage:       r.ErrorMessage,
			Solution:           r.Solution,
			SolutionConfidence: r.SolutionConfidence,
			BlockLevel:         firewall.BlockLevel(r.BlockLevel),
			OccurrenceCount:    r.OccurrenceCount,
			CreatedAt:          r.CreatedAt,
			LastSeenAt:         r.LastSeenAt,
		})
	}
	return out, nil
}

// poolStatsAdapter satisfies stats.PoolProber over a *pool.Controller.
type poolStatsAdapter struct {
	controller *pool.Controller
}

func (a *poolStatsAdapter) PoolSnapshot() stats.PoolSnapshot {
	snap := a.controller.Snapshot()
	return stats.PoolSnapshot{
		Size:            snap.Size,
		CheckedOut:      snap.CheckedOut,
		CheckedIn:       snap.CheckedIn,
		Overflow:        snap.Overflow,
		Utilization:     snap.Utilization,
		QPS:             snap.QPS,
		MeanQueryTimeMs: snap.MeanQueryTimeMs,
		TotalQueries:    snap.TotalQueries,
	}
}

// vectorStatsAdapter satisfies stats.VectorProber over the mid-tier
// search latency buffer kept by *memory.Store, plus a liveness probe
// of the underlying *vector.Store (nil when the index is degraded).
type vectorStatsAdapter struct {
	memStore    *memory.Store
	vectorStore *vector.Store
}

func (a *vectorStatsAdapter) VectorSnapshot() stats.VectorSnapshot {
	percentiles := a.memStore.LatencyPercentiles()
	available := a.vectorStore != nil
	if available {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if ok, err := a.vectorStore.Ready(ctx); err != nil || !ok {
			available = false
		}
	}
	return stats.VectorSnapshot{
		Available: available,
		Count:     percentiles.Count,
		P50Ms:     percentiles.P50Ms,
		P95Ms:     percentiles.P95Ms,
		P99Ms:     percentiles.P99Ms,
	}
}
