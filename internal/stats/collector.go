// Package stats implements §4.K: request counters, a response-time
// average, and the GET /health, /stats, /metrics, and /info endpoints
// built on top of them.
//
// Grounded on the teacher's internal/metrics.Collector (a mutex-guarded
// set of maps feeding a Prometheus Expose method) and its
// controlplane/api handleHealthz/handleReadyz/handleMetrics trio. The
// teacher's maps are keyed per scenario/operation; this server's §4.K
// counters are global scalars, so they're kept as a small set of
// atomics instead — the same lock-free-over-mutex departure already
// used by internal/ratelimit.Limiter and internal/server.Admission for
// the same reason: no multi-field critical section to protect.
package stats

import (
	"sync/atomic"
	"time"
)

// Collector accumulates the request counters and response-time total
// §4.K's GET /stats and GET /metrics both read from.
type Collector struct {
	startedAt time.Time

	total      atomic.Int64
	successful atomic.Int64
	failed     atomic.Int64

	responseTimeSumMs atomic.Int64
}

// New builds a Collector whose uptime clock starts now.
func New() *Collector {
	return &Collector{startedAt: time.Now()}
}

// RecordRequest tallies one completed tool invocation.
func (c *Collector) RecordRequest(success bool, duration time.Duration) {
	c.total.Add(1)
	if success {
		c.successful.Add(1)
	} else {
		c.failed.Add(1)
	}
	c.responseTimeSumMs.Add(duration.Milliseconds())
}

// Uptime reports time elapsed since New.
func (c *Collector) Uptime() time.Duration { return time.Since(c.startedAt) }

// Total returns the running count of tool invocations dispatched.
func (c *Collector) Total() int64 { return c.total.Load() }

// Successful returns the running count of invocations that completed
// without error.
func (c *Collector) Successful() int64 { return c.successful.Load() }

// Failed returns the running count of invocations that errored or
// timed out.
func (c *Collector) Failed() int64 { return c.failed.Load() }

// AvgResponseTimeMs returns the mean invocation duration in
// milliseconds, 0 before the first invocation completes.
func (c *Collector) AvgResponseTimeMs() float64 {
	total := c.total.Load()
	if total == 0 {
		return 0
	}
	return float64(c.responseTimeSumMs.Load()) / float64(total)
}

// Snapshot is a consistent-enough read of the counters for a single
// response; each field is read with its own atomic load; a caller
// computing rates from a Snapshot taken mid-update may see counts a
// request or two stale relative to each other, not related to the
// rest of this server's locking.
type Snapshot struct {
	Total                  int64
	Successful             int64
	Failed                 int64
	SuccessRate            float64
	AvgResponseTimeSeconds float64
}

// Snapshot reads the current counters.
func (c *Collector) Snapshot() Snapshot {
	total := c.total.Load()
	successful := c.successful.Load()
	failed := c.failed.Load()
	sumMs := c.responseTimeSumMs.Load()

	snap := Snapshot{Total: total, Successful: successful, Failed: failed}
	if total > 0 {
		snap.SuccessRate = float64(successful) / float64(total)
		snap.AvgResponseTimeSeconds = (float64(sumMs) / float64(total)) / 1000.0
	}
	return snap
}
