package stats

import (
	"encoding/json"
	"net/http"
	"time"
)

// InvocationRecord is the public shape of one entry in GET /stats'
// "last 100 invocations" list, independent of registry.Invocation so
// this package doesn't need to import internal/registry just to
// reshape five fields.
type InvocationRecord struct {
	ToolName   string    `json:"tool_name"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// History is the narrow dependency StatsHandler needs from
// *registry.Dispatcher: its last N recorded invocations.
type History interface {
	Recent(n int) []InvocationRecord
}

// StatsResponse is GET /stats' body (§4.K).
type StatsResponse struct {
	TotalRequests      int64              `json:"total_requests"`
	SuccessfulRequests int64              `json:"successful_requests"`
	FailedRequests     int64              `json:"failed_requests"`
	SuccessRate        float64            `json:"success_rate"`
	AvgResponseTimeS   float64            `json:"avg_response_time_s"`
	ActiveConnections  int64              `json:"active_connections"`
	RecentInvocations  []InvocationRecord `json:"recent_invocations"`
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	collector   *Collector
	connections ConnectionCounter
	history     History
}

// NewStatsHandler builds a StatsHandler.
func NewStatsHandler(collector *Collector, connections ConnectionCounter, history History) *StatsHandler {
	return &StatsHandler{collector: collector, connections: connections, history: history}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := h.collector.Snapshot()
	resp := StatsResponse{
		TotalRequests:      snap.Total,
		SuccessfulRequests: snap.Successful,
		FailedRequests:     snap.Failed,
		SuccessRate:        snap.SuccessRate,
		AvgResponseTimeS:   snap.AvgResponseTimeSeconds,
		ActiveConnections:  h.connections.Active(),
		RecentInvocations:  h.history.Recent(100),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
