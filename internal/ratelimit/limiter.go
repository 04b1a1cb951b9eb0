// Package ratelimit implements the per-source token bucket described in
// spec §4.J: lock-free refill, one successful compare-and-swap per
// admitted request. Elapsed time is taken from wall-clock nanoseconds
// (time.Time.UnixNano); the monotonic clock reading is not used. The
// teacher's original api/ratelimit.go guarded a single bucket struct
// with a mutex; the spec calls for the refill itself to be lock-free,
// so each bucket here keeps its token count and last-refill time in
// two atomic words instead of a mutex-guarded struct.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// Bucket is a single lock-free token bucket. Tokens are stored scaled by
// tokenScale so fractional refill amounts survive integer arithmetic.
type Bucket struct {
	state    atomic.Int64 // tokens (scaled) as of lastNano
	lastNano atomic.Int64
	capacity int64 // scaled
	refill   int64 // scaled tokens added per second
}

const tokenScale = 1000

func newBucket(ratePerSecond, burst float64, now time.Time) *Bucket {
	b := &Bucket{
		capacity: int64(burst * tokenScale),
		refill:   int64(ratePerSecond * tokenScale),
	}
	b.state.Store(b.capacity)
	b.lastNano.Store(now.UnixNano())
	return b
}

// Allow attempts to take one token, refilling first based on elapsed
// wall-clock time (now.UnixNano). It returns whether the request is admitted and, when
// not, a suggested retry-after duration.
func (b *Bucket) Allow(now time.Time) (bool, time.Duration) {
	nowNano := now.UnixNano()
	for {
		lastNano := b.lastNano.Load()
		current := b.state.Load()

		elapsed := nowNano - lastNano
		if elapsed < 0 {
			elapsed = 0
		}
		added := elapsed * b.refill / int64(time.Second)
		next := current + added
		if next > b.capacity {
			next = b.capacity
		}

		if next < tokenScale {
			// Not enough for one token; publish the refill progress so
			// concurrent callers don't all recompute from scratch, but
			// deny this request.
			if b.lastNano.CompareAndSwap(lastNano, nowNano) {
				b.state.Store(next)
			}
			if b.refill <= 0 {
				return false, time.Second
			}
			deficit := tokenScale - next
			wait := time.Duration(deficit*int64(time.Second)/b.refill) + time.Millisecond
			return false, wait
		}

		if b.state.CompareAndSwap(current, next-tokenScale) {
			b.lastNano.Store(nowNano)
			return true, 0
		}
		// Lost the race to a concurrent admit; retry with fresh values.
	}
}

// Limiter holds one Bucket per source key (remote IP, or "stdio"),
// created lazily on first use.
type Limiter struct {
	mu            sync.RWMutex
	buckets       map[string]*Bucket
	ratePerSecond float64
	burst         float64
}

// New builds a Limiter admitting ratePerSecond requests/sec per source,
// with a burst capacity equal to ratePerSecond (minimum 1) so up to a
// full second's worth of requests can be admitted simultaneously, per
// §4.J's E5 scenario (10 rps admits the first 10 near-simultaneous
// requests, rejects the 11th and 12th).
func New(ratePerSecond float64) *Limiter {
	burst := ratePerSecond
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets:       make(map[string]*Bucket),
		ratePerSecond: ratePerSecond,
		burst:         burst,
	}
}

// Allow admits or denies a request from source, creating its bucket on
// first use.
func (l *Limiter) Allow(source string) (bool, time.Duration) {
	return l.AllowAt(source, time.Now())
}

// AllowAt is Allow with an explicit clock, for deterministic tests.
func (l *Limiter) AllowAt(source string, now time.Time) (bool, time.Duration) {
	l.mu.RLock()
	b, ok := l.buckets[source]
	l.mu.RUnlock()
	if !ok {
		l.mu.Lock()
		b, ok = l.buckets[source]
		if !ok {
			b = newBucket(l.ratePerSecond, l.burst, now)
			l.buckets[source] = b
		}
		l.mu.Unlock()
	}
	return b.Allow(now)
}
