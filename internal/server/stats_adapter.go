package server

import (
	"github.com/mcpenterprise/server/internal/registry"
	"github.com/mcpenterprise/server/internal/stats"
)

// DispatcherHistory adapts *registry.Dispatcher's Recent method to
// stats.History, reshaping registry.Invocation (which also carries an
// EndedAt timestamp) down to the duration-based InvocationRecord
// GET /stats reports.
type DispatcherHistory struct {
	dispatcher *registry.Dispatcher
}

// NewDispatcherHistory wraps dispatcher for use as a stats.History.
func NewDispatcherHistory(dispatcher *registry.Dispatcher) *DispatcherHistory {
	return &DispatcherHistory{dispatcher: dispatcher}
}

// Recent implements stats.History.
func (h *DispatcherHistory) Recent(n int) []stats.InvocationRecord {
	invocations := h.dispatcher.Recent(n)
	records := make([]stats.InvocationRecord, 0, len(invocations))
	for _, inv := range invocations {
		records = append(records, stats.InvocationRecord{
			ToolName:   inv.ToolName,
			StartedAt:  inv.StartedAt,
			DurationMs: inv.EndedAt.Sub(inv.StartedAt).Milliseconds(),
			Status:     inv.Status,
			Error:      inv.ErrorText,
		})
	}
	return records
}
