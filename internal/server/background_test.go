package server

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu      sync.Mutex
	channel string
	payload any
	calls   int
}

func (p *recordingPublisher) Publish(channel string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel = channel
	p.payload = payload
	p.calls++
}

func (p *recordingPublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeRequestStats struct{}

func (fakeRequestStats) Total() int64              { return 10 }
func (fakeRequestStats) Successful() int64         { return 9 }
func (fakeRequestStats) Failed() int64             { return 1 }
func (fakeRequestStats) AvgResponseTimeMs() float64 { return 12.5 }
func (fakeRequestStats) Uptime() time.Duration     { return time.Minute }

type fakeConnectionCounter struct{ n int64 }

func (c fakeConnectionCounter) Active() int64 { return c.n }

func TestCollectSystemStatsPopulatesTimestamp(t *testing.T) {
	sample := collectSystemStats(fakeRequestStats{}, fakeConnectionCounter{n: 3})
	if sample.Timestamp.IsZero() {
		t.Fatal("expected a non-zero timestamp")
	}
	if sample.TotalRequests != 10 || sample.ActiveConnections != 3 {
		t.Fatalf("expected counters to pass through, got %+v", sample)
	}
}

func TestSystemStatsTaskPublishesAndStopsOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	task := SystemStatsTask(pub, "system_stats", fakeRequestStats{}, fakeConnectionCounter{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		task(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected task to exit promptly after cancellation")
	}
}

type fakePoolController struct {
	started bool
	stopped bool
	mu      sync.Mutex
}

func (c *fakePoolController) Start(ctx context.Context) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
}

func (c *fakePoolController) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

func TestPoolControllerTaskStartsAndStopsController(t *testing.T) {
	controller := &fakePoolController{}
	task := PoolControllerTask(controller)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		task(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected task to exit after cancellation")
	}

	controller.mu.Lock()
	defer controller.mu.Unlock()
	if !controller.started || !controller.stopped {
		t.Fatalf("expected controller to be started and stopped, got started=%v stopped=%v", controller.started, controller.stopped)
	}
}
