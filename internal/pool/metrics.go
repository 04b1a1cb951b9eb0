package pool

import "time"

// Snapshot is the Pool Metrics Snapshot of §3, regenerated each
// sampling tick.
type Snapshot struct {
	Size            int       `json:"pool_size"`
	CheckedOut      int       `json:"active_connections"`
	CheckedIn       int       `json:"idle_connections"`
	Overflow        int       `json:"overflow_connections"`
	Utilization     float64   `json:"utilization"`
	QPS             float64   `json:"qps"`
	MeanQueryTimeMs float64   `json:"avg_query_time"`
	TotalQueries    int64     `json:"total_queries"`
	PotentialLeaks  int       `json:"potential_leaks"`
	Timestamp       time.Time `json:"timestamp"`
}

// ResizeEvent is published whenever the controller changes pool size,
// shaped to the pool_resized event payload: Action is "expand" when
// NewSize > OldSize, "shrink" otherwise.
type ResizeEvent struct {
	Action    string    `json:"action"`
	OldSize   int       `json:"from"`
	NewSize   int       `json:"to"`
	Reason    string    `json:"reason"`
	Metrics   Snapshot  `json:"metrics,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SaturationAlert fires when utilization exceeds saturationThreshold
// (0.90, fixed by §4.D) for two consecutive sampling ticks.
type SaturationAlert struct {
	Utilization float64
	Ticks       int
	Timestamp   time.Time
}

// LeakWarning is emitted every tick while potential leaks remain open,
// until the count clears (§4.D: "do not force-close").
type LeakWarning struct {
	Count     int
	Timestamp time.Time
}

// Publisher is the subset of the pub/sub bus the controller needs. It
// is narrowed to an interface so this package has no import-time
// dependency on internal/pubsub's concrete type.
type Publisher interface {
	Publish(channel string, payload any)
}
