package stats

import (
	"fmt"
	"net/http"
	"strings"
)

// MetricsHandler serves GET /metrics in Prometheus text exposition
// format, grounded on the teacher's internal/metrics.Collector.Expose
// (HELP/TYPE header pairs followed by one sample line per series) but
// emitting exactly the gauges/counters/histogram-summary §4.K names,
// rather than the teacher's per-scenario/per-operation label sets.
type MetricsHandler struct {
	collector   *Collector
	connections ConnectionCounter
}

// NewMetricsHandler builds a MetricsHandler.
func NewMetricsHandler(collector *Collector, connections ConnectionCounter) *MetricsHandler {
	return &MetricsHandler{collector: collector, connections: connections}
}

func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(h.Expose()))
}

// Expose renders the current counters as Prometheus text.
func (h *MetricsHandler) Expose() string {
	snap := h.collector.Snapshot()
	var sb strings.Builder

	sb.WriteString("# HELP mcp_uptime_seconds Time elapsed since the server started.\n")
	sb.WriteString("# TYPE mcp_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "mcp_uptime_seconds %.3f\n", h.collector.Uptime().Seconds())

	sb.WriteString("# HELP mcp_active_connections Number of currently admitted connections.\n")
	sb.WriteString("# TYPE mcp_active_connections gauge\n")
	fmt.Fprintf(&sb, "mcp_active_connections %d\n", h.connections.Active())

	sb.WriteString("# HELP mcp_requests_total Total tool invocations dispatched.\n")
	sb.WriteString("# TYPE mcp_requests_total counter\n")
	fmt.Fprintf(&sb, "mcp_requests_total %d\n", snap.Total)

	sb.WriteString("# HELP mcp_requests_successful Tool invocations that completed without error.\n")
	sb.WriteString("# TYPE mcp_requests_successful counter\n")
	fmt.Fprintf(&sb, "mcp_requests_successful %d\n", snap.Successful)

	sb.WriteString("# HELP mcp_requests_failed Tool invocations that returned an error or timed out.\n")
	sb.WriteString("# TYPE mcp_requests_failed counter\n")
	fmt.Fprintf(&sb, "mcp_requests_failed %d\n", snap.Failed)

	sb.WriteString("# HELP mcp_response_time_avg Average tool invocation response time in seconds.\n")
	sb.WriteString("# TYPE mcp_response_time_avg summary\n")
	fmt.Fprintf(&sb, "mcp_response_time_avg %.6f\n", snap.AvgResponseTimeSeconds)

	return sb.String()
}
