package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// JSON-RPC error codes the dispatcher returns (§4.H, §7).
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeTimeout        = -32000
)

// RPCError carries a JSON-RPC error code alongside a message.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string { return e.Message }

// RPCCode lets callers outside this package (internal/transport) map an
// RPCError back to a JSON-RPC error code without importing this type.
func (e *RPCError) RPCCode() int { return e.Code }

// Invocation is one entry in the bounded dispatch history ring buffer.
type Invocation struct {
	ToolName  string
	StartedAt time.Time
	EndedAt   time.Time
	Status    string // "ok", "error", "timeout"
	ErrorText string
}

const ringCapacity = 1000

// Dispatcher implements §4.H's call contract: lookup, schema
// validation, deadline acquisition, worker-pool execution, and
// invocation history recording.
type Dispatcher struct {
	registry *Registry
	workers  chan struct{}
	log      *slog.Logger

	mu   sync.Mutex
	ring []Invocation
}

// NewDispatcher builds a Dispatcher backed by reg. maxWorkers bounds
// concurrent synchronous handler execution (default 32); excess calls
// queue for a free slot.
func NewDispatcher(reg *Registry, maxWorkers int, log *slog.Logger) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 32
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		registry: reg,
		workers:  make(chan struct{}, maxWorkers),
		log:      log,
	}
}

type callResult struct {
	val any
	err error
}

// Call implements the dispatch contract of §4.H:
//  1. look up the handler (-32601 if missing)
//  2. validate arguments (-32602 if invalid)
//  3. acquire a deadline = min(clientDeadline, tool's default timeout)
//  4. run the handler on a worker-pool goroutine and wait
//  5. translate a handler error to -32603
//  6. record the invocation in the bounded ring buffer
//
// Rolling back a per-invocation database transaction on handler error
// is the handler's own responsibility (it alone knows whether it
// opened one); the dispatcher only guarantees the handler's context is
// cancelled on timeout so the handler can observe that and unwind.
func (d *Dispatcher) Call(ctx context.Context, toolName string, args map[string]any, clientDeadline time.Duration) (any, error) {
	tool, ok := d.registry.Get(toolName)
	if !ok {
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", toolName)}
	}

	if err := tool.InputSchema.Validate(args); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}

	timeout := d.registry.DefaultTimeout(toolName)
	if clientDeadline > 0 && clientDeadline < timeout {
		timeout = clientDeadline
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	select {
	case d.workers <- struct{}{}:
	case <-callCtx.Done():
		d.record(toolName, start, time.Now(), "timeout", "timeout")
		return nil, &RPCError{Code: CodeTimeout, Message: "timeout"}
	}

	resultCh := make(chan callResult, 1)
	go func() {
		defer func() { <-d.workers }()
		defer func() {
			if r := recover(); r != nil {
				resultCh <- callResult{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		val, err := tool.Handler(callCtx, args)
		resultCh <- callResult{val: val, err: err}
	}()

	select {
	case res := <-resultCh:
		end := time.Now()
		if res.err != nil {
			d.record(toolName, start, end, "error", res.err.Error())
			return nil, &RPCError{Code: CodeInternalError, Message: res.err.Error()}
		}
		d.record(toolName, start, end, "ok", "")
		return res.val, nil
	case <-callCtx.Done():
		end := time.Now()
		d.record(toolName, start, end, "timeout", "timeout")
		return nil, &RPCError{Code: CodeTimeout, Message: "timeout"}
	}
}

// record appends to the bounded ring buffer, evicting the oldest entry
// once full, matching the teacher's TelemetryStore eviction idiom.
func (d *Dispatcher) record(toolName string, start, end time.Time, status, errText string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ring = append(d.ring, Invocation{
		ToolName:  toolName,
		StartedAt: start,
		EndedAt:   end,
		Status:    status,
		ErrorText: errText,
	})
	if len(d.ring) > ringCapacity {
		d.ring = d.ring[len(d.ring)-ringCapacity:]
	}
}

// History returns a copy of the invocation ring buffer, oldest first.
func (d *Dispatcher) History() []Invocation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Invocation, len(d.ring))
	copy(out, d.ring)
	return out
}

// Recent returns up to n of the most recent invocations, for GET
// /stats' "last 100 invocations".
func (d *Dispatcher) Recent(n int) []Invocation {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n <= 0 || n > len(d.ring) {
		n = len(d.ring)
	}
	out := make([]Invocation, n)
	copy(out, d.ring[len(d.ring)-n:])
	return out
}
