package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mcpenterprise/server/internal/transport"
)

type fakeDispatcher struct {
	result any
	err    error
	block  chan struct{}
	calls  int
}

func (d *fakeDispatcher) Call(ctx context.Context, toolName string, args map[string]any, deadline time.Duration) (any, error) {
	d.calls++
	if d.block != nil {
		<-d.block
	}
	return d.result, d.err
}

type fakeTools struct{ list []ToolDescriptor }

func (t *fakeTools) List() []ToolDescriptor { return t.list }

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func TestServerInitializeReturnsCapabilities(t *testing.T) {
	s := New(&fakeDispatcher{}, &fakeTools{}, 0, noopLogger{})
	result, err := s.Initialize(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected non-nil initialize result")
	}
}

func TestServerListToolsReturnsRegisteredTools(t *testing.T) {
	tools := &fakeTools{list: []ToolDescriptor{{Name: "echo", Description: "echoes"}}}
	s := New(&fakeDispatcher{}, tools, 0, noopLogger{})

	result, err := s.ListTools(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", result)
	}
	list, ok := payload["tools"].([]ToolDescriptor)
	if !ok || len(list) != 1 || list[0].Name != "echo" {
		t.Fatalf("expected one echo tool, got %+v", payload["tools"])
	}
}

func TestServerCallToolDelegatesToDispatcher(t *testing.T) {
	dispatcher := &fakeDispatcher{result: "pong"}
	s := New(dispatcher, &fakeTools{}, 0, noopLogger{})

	result, err := s.CallTool(context.Background(), transport.Call{ToolName: "ping"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "pong" {
		t.Fatalf("expected pong, got %v", result)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("expected dispatcher to be called once, got %d", dispatcher.calls)
	}
}

func TestServerCallToolRefusedAfterShutdownBegins(t *testing.T) {
	dispatcher := &fakeDispatcher{result: "ok"}
	s := New(dispatcher, &fakeTools{}, 0, noopLogger{})

	if err := s.Shutdown(context.Background(), time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	_, err := s.CallTool(context.Background(), transport.Call{ToolName: "ping"})
	if !errors.Is(err, ErrShuttingDown) && err != ErrShuttingDown {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
}

func TestServerShutdownWaitsForInFlightCalls(t *testing.T) {
	block := make(chan struct{})
	dispatcher := &fakeDispatcher{result: "ok", block: block}
	s := New(dispatcher, &fakeTools{}, 0, noopLogger{})

	callDone := make(chan struct{})
	go func() {
		s.CallTool(context.Background(), transport.Call{ToolName: "slow"})
		close(callDone)
	}()

	// Give the call a moment to register as in-flight before shutting down.
	time.Sleep(20 * time.Millisecond)

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- s.Shutdown(context.Background(), time.Second) }()

	select {
	case <-shutdownDone:
		t.Fatal("shutdown returned before in-flight call completed")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-callDone

	if err := <-shutdownDone; err != nil {
		t.Fatalf("expected clean shutdown once call drained, got %v", err)
	}
}

func TestServerShutdownTimesOutWhenGraceExceeded(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	dispatcher := &fakeDispatcher{result: "ok", block: block}
	s := New(dispatcher, &fakeTools{}, 0, noopLogger{})

	go s.CallTool(context.Background(), transport.Call{ToolName: "slow"})
	time.Sleep(20 * time.Millisecond)

	err := s.Shutdown(context.Background(), 30*time.Millisecond)
	if err == nil {
		t.Fatal("expected shutdown to report unfinished in-flight invocations")
	}
}

func TestServerUptimeIncreasesOverTime(t *testing.T) {
	s := New(&fakeDispatcher{}, &fakeTools{}, 0, noopLogger{})
	first := s.Uptime()
	time.Sleep(5 * time.Millisecond)
	if s.Uptime() <= first {
		t.Fatal("expected uptime to increase")
	}
}

func TestServerBackgroundTasksRunUntilCancelled(t *testing.T) {
	s := New(&fakeDispatcher{}, &fakeTools{}, 0, noopLogger{})

	ticks := make(chan struct{}, 1)
	s.RegisterBackgroundTask(func(ctx context.Context) {
		select {
		case ticks <- struct{}{}:
		default:
		}
		<-ctx.Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("expected background task to run")
	}
	cancel()
}
