package server

import (
	"context"
	"time"
)

// RequestRecorder is the narrow dependency this wrapper needs from
// *stats.Collector: tally one completed invocation.
type RequestRecorder interface {
	RecordRequest(success bool, duration time.Duration)
}

// StatsDispatcher wraps a Dispatcher, recording every call's outcome
// and latency into a RequestRecorder before returning. Kept separate
// from registry.Dispatcher itself so that package stays ignorant of
// internal/stats, matching this package's existing narrow-adapter
// pattern (BusAdapter, DispatcherHistory).
type StatsDispatcher struct {
	next     Dispatcher
	recorder RequestRecorder
}

// NewStatsDispatcher wraps next so every Call is recorded on recorder.
func NewStatsDispatcher(next Dispatcher, recorder RequestRecorder) *StatsDispatcher {
	return &StatsDispatcher{next: next, recorder: recorder}
}

// Call implements Dispatcher.
func (d *StatsDispatcher) Call(ctx context.Context, toolName string, args map[string]any, clientDeadline time.Duration) (any, error) {
	start := time.Now()
	result, err := d.next.Call(ctx, toolName, args, clientDeadline)
	d.recorder.RecordRequest(err == nil, time.Since(start))
	return result, err
}
