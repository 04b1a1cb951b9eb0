package registry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func echoTool(name string) Tool {
	return Tool{
		Name: name,
		InputSchema: Schema{Properties: map[string]Field{
			"text": {Type: TypeString, Required: true},
		}},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	r.Register(echoTool("echo"))

	tool, ok := r.Get("echo")
	if !ok || tool.Name != "echo" {
		t.Fatalf("expected echo tool registered, got %+v ok=%v", tool, ok)
	}
}

func TestListIsSortedByName(t *testing.T) {
	r := New()
	r.Register(echoTool("zeta"))
	r.Register(echoTool("alpha"))

	names := r.List()
	if names[0].Name != "alpha" || names[1].Name != "zeta" {
		t.Fatalf("expected sorted order, got %+v", names)
	}
}

func TestSchemaValidateRequiresField(t *testing.T) {
	s := Schema{Properties: map[string]Field{"text": {Type: TypeString, Required: true}}}
	if err := s.Validate(map[string]any{}); err == nil {
		t.Fatal("expected missing required field to fail validation")
	}
	if err := s.Validate(map[string]any{"text": "hi"}); err != nil {
		t.Fatalf("expected valid args to pass, got %v", err)
	}
}

func TestSchemaValidateRejectsWrongType(t *testing.T) {
	s := Schema{Properties: map[string]Field{"count": {Type: TypeNumber}}}
	if err := s.Validate(map[string]any{"count": "not a number"}); err == nil {
		t.Fatal("expected type mismatch to fail validation")
	}
}

func TestDispatcherCallUnknownToolReturnsMethodNotFound(t *testing.T) {
	d := NewDispatcher(New(), 4, nil)
	_, err := d.Call(context.Background(), "missing", nil, 0)

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeMethodNotFound {
		t.Fatalf("expected -32601, got %v", err)
	}
}

func TestDispatcherCallInvalidArgsReturnsInvalidParams(t *testing.T) {
	r := New()
	r.Register(echoTool("echo"))
	d := NewDispatcher(r, 4, nil)

	_, err := d.Call(context.Background(), "echo", map[string]any{}, 0)

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeInvalidParams {
		t.Fatalf("expected -32602, got %v", err)
	}
}

func TestDispatcherCallSucceeds(t *testing.T) {
	r := New()
	r.Register(echoTool("echo"))
	d := NewDispatcher(r, 4, nil)

	result, err := d.Call(context.Background(), "echo", map[string]any{"text": "hi"}, 0)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result != "hi" {
		t.Fatalf("expected echoed value, got %v", result)
	}
	if len(d.Recent(10)) != 1 {
		t.Fatal("expected one recorded invocation")
	}
}

func TestDispatcherCallHandlerErrorReturnsInternalError(t *testing.T) {
	r := New()
	r.Register(Tool{
		Name: "fails",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("boom")
		},
	})
	d := NewDispatcher(r, 4, nil)

	_, err := d.Call(context.Background(), "fails", nil, 0)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeInternalError {
		t.Fatalf("expected -32603, got %v", err)
	}
}

func TestDispatcherCallTimesOut(t *testing.T) {
	r := New()
	r.Register(Tool{
		Name: "slow",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			select {
			case <-time.After(time.Second):
				return "too slow", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
		DefaultTimeoutMs: 10,
	})
	d := NewDispatcher(r, 4, nil)

	_, err := d.Call(context.Background(), "slow", nil, 0)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeTimeout {
		t.Fatalf("expected -32000 timeout, got %v", err)
	}
}

func TestDispatcherHandlerPanicBecomesInternalError(t *testing.T) {
	r := New()
	r.Register(Tool{
		Name: "panics",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			panic("kaboom")
		},
	})
	d := NewDispatcher(r, 4, nil)

	_, err := d.Call(context.Background(), "panics", nil, 0)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeInternalError {
		t.Fatalf("expected panic recovered as -32603, got %v", err)
	}
}

func TestRingBufferEvictsOldestBeyondCapacity(t *testing.T) {
	r := New()
	r.Register(echoTool("echo"))
	d := NewDispatcher(r, 8, nil)

	for i := 0; i < ringCapacity+10; i++ {
		d.Call(context.Background(), "echo", map[string]any{"text": "x"}, 0)
	}
	history := d.History()
	if len(history) != ringCapacity {
		t.Fatalf("expected ring capped at %d, got %d", ringCapacity, len(history))
	}
}
