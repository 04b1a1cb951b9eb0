// Package server implements the Server Core of §4.J: the
// transport.Router that every transport calls into, plus the
// lifecycle concerns no individual transport owns — admission
// control, graceful shutdown, and the background tasks listed in
// §4.J's final paragraph.
//
// Grounded on the teacher's own
// internal/controlplane/api.Server: a struct of long-lived
// collaborators guarded by one mutex, a running flag, and a
// Start/Shutdown pair driven by the caller (here, cmd/mcpserver)
// rather than by signal handling internal to this package.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcpenterprise/server/internal/transport"
)

// Dispatcher is the narrow dependency this package needs from
// internal/registry: call a tool by name and list the registered set.
type Dispatcher interface {
	Call(ctx context.Context, toolName string, args map[string]any, clientDeadline time.Duration) (any, error)
}

// ToolLister exposes the registered tool catalog for tools/list.
type ToolLister interface {
	List() []ToolDescriptor
}

// ToolDescriptor is the {name, description, input_schema} triple
// returned by tools/list (§6), independent of internal/registry's
// richer Tool record (which also carries the handler and timeout).
type ToolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema,omitempty"`
}

// ErrShuttingDown is returned by CallTool once Shutdown has begun;
// transport.ErrFromRPCError renders it as -32000.
var ErrShuttingDown = &transport.Error{Code: transport.CodeShuttingDown, Message: "server is shutting down"}

// Server implements transport.Router and owns the process lifecycle
// concerns of §4.J.
type Server struct {
	dispatcher Dispatcher
	tools      ToolLister
	log        Logger

	admission *Admission
	startedAt time.Time

	shuttingDown atomic.Bool
	inFlight     sync.WaitGroup

	mu      sync.Mutex
	bgTasks []func(context.Context)
}

// Logger is the minimal structured-logging surface this package needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// New builds a Server. maxConnections configures the admission
// counter (§4.J "Admission control").
func New(dispatcher Dispatcher, tools ToolLister, maxConnections int, log Logger) *Server {
	return &Server{
		dispatcher: dispatcher,
		tools:      tools,
		log:        log,
		admission:  NewAdmission(maxConnections),
		startedAt:  time.Now(),
	}
}

// Initialize implements transport.Router.
func (s *Server) Initialize(ctx context.Context) (any, error) {
	return map[string]any{
		"protocolVersion": "2.0",
		"serverInfo": map[string]any{
			"name":    "mcpenterprise-server",
			"version": "1.0.0",
		},
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
	}, nil
}

// ListTools implements transport.Router.
func (s *Server) ListTools(ctx context.Context) (any, error) {
	return map[string]any{"tools": s.tools.List()}, nil
}

// CallTool implements transport.Router: refuses new calls once
// shutdown has begun, otherwise tracks the call as in-flight so
// Shutdown can wait for it, and delegates to the dispatcher.
func (s *Server) CallTool(ctx context.Context, call transport.Call) (any, error) {
	if s.shuttingDown.Load() {
		return nil, ErrShuttingDown
	}

	s.inFlight.Add(1)
	defer s.inFlight.Done()

	return s.dispatcher.Call(ctx, call.ToolName, call.Arguments, call.Deadline)
}

// Uptime reports time elapsed since New, for §4.K's health/stats
// endpoints.
func (s *Server) Uptime() time.Duration { return time.Since(s.startedAt) }

// RegisterBackgroundTask adds a function run in its own goroutine from
// Start until its ctx (derived from the one passed to Start) is
// cancelled. Used to wire the system-stats publisher and the pool
// controller without this package importing either directly. Idle
// connections are reaped by the WebSocket transport itself, not by a
// task registered here.
func (s *Server) RegisterBackgroundTask(task func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bgTasks = append(s.bgTasks, task)
}

// Start launches every registered background task. It returns
// immediately; tasks run until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	s.mu.Lock()
	tasks := make([]func(context.Context), len(s.bgTasks))
	copy(tasks, s.bgTasks)
	s.mu.Unlock()

	for _, task := range tasks {
		go task(ctx)
	}
}

// Shutdown implements §4.J's graceful-shutdown sequence: stop
// admitting new connections, refuse new tool calls, wait up to grace
// for in-flight invocations, then return. Disposing pool/cache
// connections and flushing logs is the caller's responsibility
// (cmd/mcpserver), since this package has no handle on those
// collaborators.
func (s *Server) Shutdown(ctx context.Context, grace time.Duration) error {
	s.shuttingDown.Store(true)
	s.admission.Close()

	done := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("shutdown grace period (%s) elapsed with invocations still in flight", grace)
	case <-ctx.Done():
		return errors.Join(ctx.Err(), errors.New("shutdown context cancelled before in-flight invocations drained"))
	}
}

// Admission exposes the connection-admission counter so transports can
// check it before accepting a new connection (§4.J).
func (s *Server) Admission() *Admission { return s.admission }
