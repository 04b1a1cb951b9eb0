package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// PoolSnapshot is the db_pool_stats half of the unified endpoint. It
// carries eight of the numeric fields of internal/pool.Controller.
// Snapshot's return type under the same JSON names (PotentialLeaks and
// Timestamp are not included); kept as this package's own type so it
// doesn't need to import internal/pool just to read eight numbers.
type PoolSnapshot struct {
	Size            int     `json:"pool_size"`
	CheckedOut      int     `json:"active_connections"`
	CheckedIn       int     `json:"idle_connections"`
	Overflow        int     `json:"overflow_connections"`
	Utilization     float64 `json:"utilization"`
	QPS             float64 `json:"qps"`
	MeanQueryTimeMs float64 `json:"avg_query_time"`
	TotalQueries    int64   `json:"total_queries"`
}

// PoolProber reports the current pool snapshot, satisfied by a thin
// adapter over *pool.Controller.Snapshot.
type PoolProber interface {
	PoolSnapshot() PoolSnapshot
}

// VectorSnapshot is the vector-index half of the unified endpoint:
// whether the index is reachable plus the rolling mid-tier search
// latency percentiles.
type VectorSnapshot struct {
	Available bool    `json:"available"`
	Count     int     `json:"sample_count"`
	P50Ms     float64 `json:"p50_ms"`
	P95Ms     float64 `json:"p95_ms"`
	P99Ms     float64 `json:"p99_ms"`
}

// VectorProber reports the current vector-search latency summary,
// satisfied by a thin adapter over *memory.Store.LatencyPercentiles
// plus a vector.Store.Ready probe.
type VectorProber interface {
	VectorSnapshot() VectorSnapshot
}

// UnifiedStatsResponse is GET /api/v1/stats' body: each section is
// present only when requested via ?include= (all three when it is
// absent), and pool/vector additionally only when wired at construction.
type UnifiedStatsResponse struct {
	System *StatsResponse  `json:"system,omitempty"`
	Pool   *PoolSnapshot   `json:"pool,omitempty"`
	Vector *VectorSnapshot `json:"vector,omitempty"`
}

// UnifiedStatsHandler serves GET /api/v1/stats and the legacy
// single-section aliases (/api/overview/stats, /api/pool/stats,
// /api/vector/stats), all reading from the same collaborators as
// StatsHandler/MetricsHandler/HealthHandler so there is exactly one
// source of truth for each figure.
type UnifiedStatsHandler struct {
	system  *StatsHandler
	pool    PoolProber
	vector  VectorProber
	metrics *MetricsHandler
}

// NewUnifiedStatsHandler builds an UnifiedStatsHandler. pool/vector may
// be nil when those collaborators are unavailable, in which case their
// section is always omitted regardless of ?include=.
func NewUnifiedStatsHandler(system *StatsHandler, metrics *MetricsHandler, pool PoolProber, vector VectorProber) *UnifiedStatsHandler {
	return &UnifiedStatsHandler{system: system, pool: pool, vector: vector, metrics: metrics}
}

// sections parses the ?include= query parameter into a lookup set,
// defaulting to every section when absent.
func sections(r *http.Request) map[string]bool {
	raw := r.URL.Query().Get("include")
	if raw == "" {
		return map[string]bool{"system": true, "pool": true, "vector": true}
	}
	want := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		want[strings.TrimSpace(part)] = true
	}
	return want
}

func (h *UnifiedStatsHandler) build(want map[string]bool) UnifiedStatsResponse {
	var resp UnifiedStatsResponse

	if want["system"] {
		snap := h.system.collector.Snapshot()
		s := StatsResponse{
			TotalRequests:      snap.Total,
			SuccessfulRequests: snap.Successful,
			FailedRequests:     snap.Failed,
			SuccessRate:        snap.SuccessRate,
			AvgResponseTimeS:   snap.AvgResponseTimeSeconds,
			ActiveConnections:  h.system.connections.Active(),
			RecentInvocations:  h.system.history.Recent(100),
		}
		resp.System = &s
	}
	if want["pool"] && h.pool != nil {
		p := h.pool.PoolSnapshot()
		resp.Pool = &p
	}
	if want["vector"] && h.vector != nil {
		v := h.vector.VectorSnapshot()
		resp.Vector = &v
	}
	return resp
}

// Snapshot builds a UnifiedStatsResponse for the given sections,
// exported for callers outside the HTTP handler (e.g. the stats MCP
// tool group). An empty sections map means "all available".
func (h *UnifiedStatsHandler) Snapshot(sections ...string) UnifiedStatsResponse {
	if len(sections) == 0 {
		return h.build(map[string]bool{"system": true, "pool": true, "vector": true})
	}
	want := make(map[string]bool, len(sections))
	for _, s := range sections {
		want[s] = true
	}
	return h.build(want)
}

// ServeHTTP implements GET /api/v1/stats?include=system,pool,vector&format=json|prometheus.
func (h *UnifiedStatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	resp := h.build(sections(r))

	if r.URL.Query().Get("format") == "prometheus" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte(h.expose(resp)))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *UnifiedStatsHandler) expose(resp UnifiedStatsResponse) string {
	var sb strings.Builder
	if resp.System != nil {
		sb.WriteString(h.metrics.Expose())
	}
	if resp.Pool != nil {
		fmt.Fprintf(&sb, "mcp_pool_size %d\n", resp.Pool.Size)
		fmt.Fprintf(&sb, "mcp_pool_active_connections %d\n", resp.Pool.CheckedOut)
		fmt.Fprintf(&sb, "mcp_pool_utilization %.4f\n", resp.Pool.Utilization)
	}
	if resp.Vector != nil {
		fmt.Fprintf(&sb, "mcp_vector_search_p95_ms %.3f\n", resp.Vector.P95Ms)
	}
	return sb.String()
}

// aliasHandler serves one fixed ?include= section as its own endpoint,
// for the legacy /api/overview/stats, /api/pool/stats, /api/vector/stats
// aliases.
type aliasHandler struct {
	unified *UnifiedStatsHandler
	section string
}

// NewOverviewStatsAlias serves GET /api/overview/stats (system section only).
func NewOverviewStatsAlias(unified *UnifiedStatsHandler) http.Handler {
	return &aliasHandler{unified: unified, section: "system"}
}

// NewPoolStatsAlias serves GET /api/pool/stats (pool section only).
func NewPoolStatsAlias(unified *UnifiedStatsHandler) http.Handler {
	return &aliasHandler{unified: unified, section: "pool"}
}

// NewVectorStatsAlias serves GET /api/vector/stats (vector section only).
func NewVectorStatsAlias(unified *UnifiedStatsHandler) http.Handler {
	return &aliasHandler{unified: unified, section: "vector"}
}

func (h *aliasHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := h.unified.build(map[string]bool{h.section: true})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
