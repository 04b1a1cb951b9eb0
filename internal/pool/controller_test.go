package pool

import (
	"context"
	"testing"
	"time"
)

type fakeStats struct {
	size       int
	checkedOut int
}

func (f fakeStats) Stat() RawStats { return RawStats{Size: f.size, CheckedOut: f.checkedOut} }

type fakeResizer struct {
	lastNewMax int
	calls      int
	err        error
}

func (f *fakeResizer) Resize(ctx context.Context, newMax int) error {
	f.calls++
	f.lastNewMax = newMax
	return f.err
}

type fakePublisher struct {
	events []struct {
		channel string
		payload any
	}
}

func (f *fakePublisher) Publish(channel string, payload any) {
	f.events = append(f.events, struct {
		channel string
		payload any
	}{channel, payload})
}

func TestSnapshotComputesUtilizationAndOverflow(t *testing.T) {
	c := New(Config{Min: 5, Max: 50}, fakeStats{size: 10, checkedOut: 9}, nil, nil, nil)
	snap := c.Snapshot()
	if snap.Utilization != 0.9 {
		t.Fatalf("expected utilization 0.9, got %v", snap.Utilization)
	}
	if snap.Overflow != 0 {
		t.Fatalf("expected no overflow, got %d", snap.Overflow)
	}
}

func TestMaybeResizeExpandsOnHighUtilization(t *testing.T) {
	resizer := &fakeResizer{}
	pub := &fakePublisher{}
	c := New(Config{Min: 5, Max: 50, HighUtilThreshold: 0.80}, fakeStats{size: 10, checkedOut: 9}, resizer, pub, nil)

	c.maybeResize(context.Background(), c.Snapshot())

	if resizer.calls != 1 {
		t.Fatalf("expected resize to be attempted once, got %d", resizer.calls)
	}
	if resizer.lastNewMax != 12 { // ceil(10*1.2)
		t.Fatalf("expected new size 12, got %d", resizer.lastNewMax)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one resize event published, got %d", len(pub.events))
	}
}

func TestMaybeResizeExpandsOnOverflow(t *testing.T) {
	resizer := &fakeResizer{}
	// Rules are checked in order and any overflow means utilization above
	// 1.0, so the high-load threshold is set above this test's 1.2 to make
	// the overflow rule the first match.
	c := New(Config{Min: 5, Max: 50, HighUtilThreshold: 1.5}, fakeStats{size: 10, checkedOut: 12}, resizer, nil, nil)

	c.maybeResize(context.Background(), c.Snapshot())

	if resizer.lastNewMax != 13 { // ceil(10*1.3)
		t.Fatalf("expected new size 13, got %d", resizer.lastNewMax)
	}
}

func TestMaybeResizeShrinksOnLowUtilization(t *testing.T) {
	resizer := &fakeResizer{}
	c := New(Config{Min: 5, Max: 50, LowUtilThreshold: 0.20, ResizeStepDown: 0.8}, fakeStats{size: 20, checkedOut: 1}, resizer, nil, nil)

	c.maybeResize(context.Background(), c.Snapshot())

	if resizer.lastNewMax != 16 { // floor(20*0.8)
		t.Fatalf("expected new size 16, got %d", resizer.lastNewMax)
	}
}

func TestMaybeResizeNeverShrinksBelowMin(t *testing.T) {
	resizer := &fakeResizer{}
	c := New(Config{Min: 5, Max: 50, LowUtilThreshold: 0.20, ResizeStepDown: 0.8}, fakeStats{size: 6, checkedOut: 0}, resizer, nil, nil)

	c.maybeResize(context.Background(), c.Snapshot())

	if resizer.lastNewMax < 5 {
		t.Fatalf("expected clamp to min 5, got %d", resizer.lastNewMax)
	}
}

func TestCheckoutCheckinTracksDurationAndLeak(t *testing.T) {
	c := New(Config{Min: 5, Max: 50, LeakThreshold: 50 * time.Millisecond}, nil, nil, nil, nil)

	id := c.Checkout()
	time.Sleep(5 * time.Millisecond)
	c.Checkin(id)

	if c.TotalQueries() != 1 {
		t.Fatalf("expected 1 total query, got %d", c.TotalQueries())
	}
	if c.meanQueryTimeMs() <= 0 {
		t.Fatal("expected positive mean query time")
	}

	leakID := c.Checkout()
	time.Sleep(60 * time.Millisecond)
	if c.potentialLeaks() != 1 {
		t.Fatalf("expected 1 potential leak, got %d", c.potentialLeaks())
	}
	c.Checkin(leakID)
	if c.potentialLeaks() != 0 {
		t.Fatal("expected leak to clear after checkin")
	}
}

func TestCheckSaturationRequiresTwoConsecutiveTicks(t *testing.T) {
	pub := &fakePublisher{}
	c := New(Config{Min: 5, Max: 50}, nil, nil, pub, nil)

	c.checkSaturation(Snapshot{Utilization: 0.95})
	if len(pub.events) != 0 {
		t.Fatal("expected no alert after a single high-utilization tick")
	}

	c.checkSaturation(Snapshot{Utilization: 0.95})
	if len(pub.events) != 1 {
		t.Fatalf("expected alert after two consecutive high-utilization ticks, got %d events", len(pub.events))
	}
}

func TestCheckSaturationResetsRunOnNormalUtilization(t *testing.T) {
	pub := &fakePublisher{}
	c := New(Config{Min: 5, Max: 50}, nil, nil, pub, nil)

	c.checkSaturation(Snapshot{Utilization: 0.95})
	c.checkSaturation(Snapshot{Utilization: 0.5})
	c.checkSaturation(Snapshot{Utilization: 0.95})

	if len(pub.events) != 0 {
		t.Fatalf("expected run to reset, got %d events", len(pub.events))
	}
}
