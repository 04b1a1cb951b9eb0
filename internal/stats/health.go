package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Prober checks one dependency's reachability, satisfied directly by
// internal/storage/relational.Store.Ping and
// internal/storage/kv.Store.Ping; ProbeFunc adapts anything else
// (internal/storage/vector.Store.Ready has a different signature) to
// the same interface.
type Prober interface {
	Ping(ctx context.Context) error
}

// ProbeFunc adapts a plain function to Prober.
type ProbeFunc func(ctx context.Context) error

// Ping implements Prober.
func (f ProbeFunc) Ping(ctx context.Context) error { return f(ctx) }

// ToolCounter reports how many tools are registered, satisfied
// directly by *registry.Registry.Count.
type ToolCounter interface {
	Count() int
}

// ConnectionCounter reports admitted connections, satisfied directly
// by *internal/server.Admission.Active.
type ConnectionCounter interface {
	Active() int64
}

// HealthResponse is GET /health's body (§4.K).
type HealthResponse struct {
	Status            string  `json:"status"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
	ToolCount         int     `json:"tool_count"`
	ActiveConnections int64   `json:"active_connections"`
	TotalRequests     int64   `json:"total_requests"`
}

// HealthHandler serves GET /health, grounded on the teacher's
// handleHealthz: a synchronous probe of every configured dependency,
// degraded rather than failing outright if one is unreachable.
type HealthHandler struct {
	collector    *Collector
	tools        ToolCounter
	connections  ConnectionCounter
	deps         map[string]Prober
	probeTimeout time.Duration
}

// NewHealthHandler builds a HealthHandler. deps maps a dependency name
// (e.g. "relational", "kv", "vector") to its Prober; any entry whose
// Ping fails marks the response degraded.
func NewHealthHandler(collector *Collector, tools ToolCounter, connections ConnectionCounter, deps map[string]Prober) *HealthHandler {
	return &HealthHandler{
		collector:    collector,
		tools:        tools,
		connections:  connections,
		deps:         deps,
		probeTimeout: 3 * time.Second,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := "healthy"
	ctx, cancel := context.WithTimeout(r.Context(), h.probeTimeout)
	defer cancel()

	for _, probe := range h.deps {
		if err := probe.Ping(ctx); err != nil {
			status = "degraded"
			break
		}
	}

	snap := h.collector.Snapshot()
	resp := HealthResponse{
		Status:            status,
		UptimeSeconds:     h.collector.Uptime().Seconds(),
		ToolCount:         h.tools.Count(),
		ActiveConnections: h.connections.Active(),
		TotalRequests:     snap.Total,
	}

	w.Header().Set("Content-Type", "application/json")
	if status == "degraded" {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(resp)
}
