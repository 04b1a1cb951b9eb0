package server

import "sync/atomic"

// Admission implements §4.J's admission control: a bound on
// concurrently active connections. A new connection (stdio session,
// HTTP request held open, or WebSocket session) calls TryAcquire before
// proceeding and Release when it ends; once the limit is hit or the
// server is shutting down, the caller responds 503 rather than
// accepting more work.
//
// Grounded on the teacher's own connection-counting in
// internal/controlplane/api.Server (an int guarded by its single
// mutex); reimplemented here with an atomic counter since this package
// has no other state that counting needs to share a lock with.
type Admission struct {
	max    int64
	active atomic.Int64
	closed atomic.Bool
}

// NewAdmission builds an Admission gate. max <= 0 means unbounded.
func NewAdmission(max int) *Admission {
	return &Admission{max: int64(max)}
}

// TryAcquire reports whether a new connection may proceed, incrementing
// the active count if so. Callers must call Release exactly once for
// every TryAcquire that returns true.
func (a *Admission) TryAcquire() bool {
	if a.closed.Load() {
		return false
	}
	if a.max <= 0 {
		a.active.Add(1)
		return true
	}

	for {
		current := a.active.Load()
		if current >= a.max {
			return false
		}
		if a.active.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release returns one admitted slot to the pool.
func (a *Admission) Release() {
	a.active.Add(-1)
}

// Active returns the current number of admitted connections.
func (a *Admission) Active() int64 { return a.active.Load() }

// Max returns the configured connection ceiling (0 means unbounded).
func (a *Admission) Max() int64 { return a.max }

// Close stops admitting any further connections; already-admitted
// connections are unaffected until they call Release themselves.
func (a *Admission) Close() { a.closed.Store(true) }
