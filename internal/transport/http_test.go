package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPHandlesInitialize(t *testing.T) {
	router := &fakeRouter{initResult: map[string]any{"ok": true}}
	h := NewHTTP(router, false, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHTTPToolsCallRoutesToRouter(t *testing.T) {
	router := &fakeRouter{callResult: "hi"}
	h := NewHTTP(router, false, nil)

	body := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Result != "hi" {
		t.Fatalf("expected routed result, got %+v", resp)
	}
}

func TestHTTPMalformedBodyReturnsParseError(t *testing.T) {
	h := NewHTTP(&fakeRouter{}, false, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Fatalf("expected parse error, got %+v", resp)
	}
}

func TestHTTPCORSHeadersWhenEnabled(t *testing.T) {
	h := NewHTTP(&fakeRouter{initResult: "ok"}, true, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected permissive CORS header, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestHTTPOptionsPreflightNoContent(t *testing.T) {
	h := NewHTTP(&fakeRouter{}, true, nil)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHTTPMountRegistersAdditionalHandler(t *testing.T) {
	h := NewHTTP(&fakeRouter{}, false, nil)
	h.Mount("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("expected mounted health handler to respond, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestHTTPRequestBodyTooLargeRejected(t *testing.T) {
	h := NewHTTP(&fakeRouter{}, false, nil)

	big := strings.Repeat("a", maxRequestBodyBytes+10)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":"`+big+`"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestHTTPUsesPrincipalFromRequestContext(t *testing.T) {
	var seenPrincipal string
	router := &routerFunc{
		callTool: func(ctx context.Context, call Call) (any, error) {
			if call.Principal != nil {
				seenPrincipal = call.Principal.ID
			}
			return nil, nil
		},
	}
	h := NewHTTP(router, false, nil)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seenPrincipal != "" {
		t.Fatalf("expected no principal on a bare request context, got %q", seenPrincipal)
	}
}

type routerFunc struct {
	initialize func(ctx context.Context) (any, error)
	listTools  func(ctx context.Context) (any, error)
	callTool   func(ctx context.Context, call Call) (any, error)
}

func (r *routerFunc) Initialize(ctx context.Context) (any, error) {
	if r.initialize != nil {
		return r.initialize(ctx)
	}
	return nil, nil
}

func (r *routerFunc) ListTools(ctx context.Context) (any, error) {
	if r.listTools != nil {
		return r.listTools(ctx)
	}
	return nil, nil
}

func (r *routerFunc) CallTool(ctx context.Context, call Call) (any, error) {
	if r.callTool != nil {
		return r.callTool(ctx, call)
	}
	return nil, nil
}
