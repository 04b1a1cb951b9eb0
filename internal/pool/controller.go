package pool

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// RawStats is the subset of native pool statistics the controller
// needs each tick: live size and in-use connections.
type RawStats struct {
	Size       int
	CheckedOut int
}

// StatsSource reports the underlying pool's current raw statistics,
// satisfied by a thin wrapper around pgxpool.Pool.Stat().
type StatsSource interface {
	Stat() RawStats
}

// Resizer applies a new maximum pool size. Implementations typically
// build a replacement pgxpool.Pool at the new size and atomically swap
// it in, closing the old one only once the swap completes — the
// "atomic swap-and-dispose" procedure referenced by §4.D, since pgx's
// pool does not support resizing MaxConns in place.
type Resizer interface {
	Resize(ctx context.Context, newMax int) error
}

// checkout tracks an in-flight acquisition for leak detection.
type checkout struct {
	startedAt time.Time
}

// Controller runs the sampling loop, resize decision, and leak
// detection of §4.D. Checkout/Checkin instrument query latency into a
// rolling buffer and feed the QPS/mean-wait metrics in each snapshot.
type Controller struct {
	cfg       Config
	stats     StatsSource
	resizer   Resizer
	publisher Publisher
	log       *slog.Logger

	size atomic.Int64 // current logical pool size S

	mu           sync.Mutex
	checkouts    map[int64]checkout
	nextCheckout int64
	lastResize   time.Time
	highUtilRun  int

	durations   [1000]time.Duration
	durIdx      int
	durCount    int
	totalQuery  atomic.Int64
	windowStart time.Time
	windowCount atomic.Int64

	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
}

// New builds a Controller. stats/resizer may be nil in tests that only
// exercise checkout/leak tracking.
func New(cfg Config, stats StatsSource, resizer Resizer, publisher Publisher, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		cfg:         cfg.WithDefaults(),
		stats:       stats,
		resizer:     resizer,
		publisher:   publisher,
		log:         log,
		checkouts:   make(map[int64]checkout),
		windowStart: time.Now(),
	}
	c.size.Store(int64(c.cfg.Min))
	return c
}

// Start begins the background sampling loop, matching the teacher's
// retention.Manager Start/Stop/run ticker idiom.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.stoppedCh = make(chan struct{})
	c.mu.Unlock()

	go c.run(ctx)
}

// Stop signals the sampling loop to exit and waits for it.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stopCh := c.stopCh
	stoppedCh := c.stoppedCh
	c.mu.Unlock()

	close(stopCh)
	<-stoppedCh
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.stoppedCh)

	ticker := time.NewTicker(c.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.tick(ctx)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick performs one sampling iteration: refresh → publish → maybe
// resize → check alerts, per §4.D's sampling loop contract.
func (c *Controller) tick(ctx context.Context) {
	snap := c.Snapshot()
	c.publish("db_pool_stats", snap)

	if time.Since(c.lastResizeTime()) >= c.cfg.Cooldown {
		c.maybeResize(ctx, snap)
	}

	c.checkSaturation(snap)
	c.checkLeaks(snap)
}

// saturationThreshold is fixed by §4.D independent of HighUtilThreshold.
const saturationThreshold = 0.90

// Snapshot computes the current Pool Metrics Snapshot (§3).
func (c *Controller) Snapshot() Snapshot {
	size := int(c.size.Load())
	checkedOut := 0
	if c.stats != nil {
		raw := c.stats.Stat()
		size = raw.Size
		checkedOut = raw.CheckedOut
	} else {
		c.mu.Lock()
		checkedOut = len(c.checkouts)
		c.mu.Unlock()
	}

	overflow := 0
	if checkedOut > size {
		overflow = checkedOut - size
	}
	utilization := 0.0
	if size > 0 {
		utilization = float64(checkedOut) / float64(size)
	}

	return Snapshot{
		Size:            size,
		CheckedOut:      checkedOut,
		CheckedIn:       size - checkedOut,
		Overflow:        overflow,
		Utilization:     utilization,
		QPS:             c.qps(),
		MeanQueryTimeMs: c.meanQueryTimeMs(),
		TotalQueries:    c.totalQuery.Load(),
		PotentialLeaks:  c.potentialLeaks(),
		Timestamp:       time.Now(),
	}
}

// maybeResize applies the first matching rule of §4.D's resize table.
func (c *Controller) maybeResize(ctx context.Context, snap Snapshot) {
	oldSize := snap.Size
	var newSize int
	var reason string

	switch {
	case snap.Utilization > c.cfg.HighUtilThreshold:
		newSize = clamp(ceilMul(oldSize, c.cfg.ResizeStepUp), c.cfg.Min, c.cfg.Max)
		reason = "high-load expand"
	case snap.Overflow > 0:
		newSize = clamp(ceilMul(oldSize, 1.3), c.cfg.Min, c.cfg.Max)
		reason = "overflow expand"
	case snap.Utilization < c.cfg.LowUtilThreshold && oldSize > c.cfg.Min:
		newSize = clamp(floorMul(oldSize, c.cfg.ResizeStepDown), c.cfg.Min, c.cfg.Max)
		reason = "low-load shrink"
	default:
		return
	}

	if newSize == oldSize {
		return
	}

	if c.resizer != nil {
		if err := c.resizer.Resize(ctx, newSize); err != nil {
			c.log.Error("pool resize failed", "old_size", oldSize, "new_size", newSize, "reason", reason, "error", err)
			return
		}
	}

	c.size.Store(int64(newSize))
	c.mu.Lock()
	c.lastResize = time.Now()
	c.mu.Unlock()

	action := "shrink"
	if newSize > oldSize {
		action = "expand"
	}
	c.publish("db_pool_stats", ResizeEvent{
		Action:    action,
		OldSize:   oldSize,
		NewSize:   newSize,
		Reason:    reason,
		Metrics:   snap,
		Timestamp: time.Now(),
	})
}

func (c *Controller) checkSaturation(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snap.Utilization > saturationThreshold {
		c.highUtilRun++
	} else {
		c.highUtilRun = 0
	}

	if c.highUtilRun >= 2 {
		c.publish("db_pool_stats", SaturationAlert{
			Utilization: snap.Utilization,
			Ticks:       c.highUtilRun,
			Timestamp:   time.Now(),
		})
	}
}

// checkLeaks emits a warning every tick while potential leaks remain
// open; it never force-closes the underlying checkout.
func (c *Controller) checkLeaks(snap Snapshot) {
	if snap.PotentialLeaks == 0 {
		return
	}
	c.publish("db_pool_stats", LeakWarning{
		Count:     snap.PotentialLeaks,
		Timestamp: time.Now(),
	})
}

func (c *Controller) lastResizeTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResize
}

func (c *Controller) publish(channel string, payload any) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(channel, payload)
}

// Checkout records a new in-flight acquisition and returns a token
// used to report its completion via Checkin.
func (c *Controller) Checkout() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextCheckout++
	id := c.nextCheckout
	c.checkouts[id] = checkout{startedAt: time.Now()}
	return id
}

// Checkin reports completion of the checkout identified by id, adding
// its duration to the rolling sample buffer.
func (c *Controller) Checkin(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	co, ok := c.checkouts[id]
	if !ok {
		return
	}
	delete(c.checkouts, id)

	duration := time.Since(co.startedAt)
	c.durations[c.durIdx] = duration
	c.durIdx = (c.durIdx + 1) % len(c.durations)
	if c.durCount < len(c.durations) {
		c.durCount++
	}

	c.totalQuery.Add(1)
	c.windowCount.Add(1)
}

// potentialLeaks counts checkouts open longer than LeakThreshold
// (default 300s), matching §4.D's leak detection rule.
func (c *Controller) potentialLeaks() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	now := time.Now()
	for _, co := range c.checkouts {
		if now.Sub(co.startedAt) > c.cfg.LeakThreshold {
			n++
		}
	}
	return n
}

func (c *Controller) meanQueryTimeMs() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.durCount == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < c.durCount; i++ {
		total += c.durations[i]
	}
	return float64(total.Milliseconds()) / float64(c.durCount)
}

func (c *Controller) qps() float64 {
	c.mu.Lock()
	elapsed := time.Since(c.windowStart)
	c.mu.Unlock()

	if elapsed <= 0 {
		return 0
	}
	return float64(c.windowCount.Load()) / elapsed.Seconds()
}

// TotalQueries returns the lifetime count of completed checkouts.
func (c *Controller) TotalQueries() int64 { return c.totalQuery.Load() }

func ceilMul(n int, factor float64) int {
	return int(math.Ceil(float64(n) * factor))
}

func floorMul(n int, factor float64) int {
	return int(math.Floor(float64(n) * factor))
}

func clamp(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
