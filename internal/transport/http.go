package transport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mcpenterprise/server/internal/auth"
)

// maxRequestBodyBytes bounds a single JSON-RPC request body, mirroring
// the teacher's defensive body-size limits on inbound payloads.
const maxRequestBodyBytes = 4 << 20 // 4 MiB

// HTTP implements §4.I's HTTP transport: POST / accepts a single
// JSON-RPC request body and returns a single response. Non-JSON-RPC
// GET endpoints (health, stats, metrics, info) are registered by the
// caller via Mount, keeping this package ignorant of §4.K's handlers.
//
// Routing is grounded on the teacher's own controlplane/api.Server,
// generalized from its stdlib http.ServeMux to chi.Mux so the rest of
// this transport's middleware (CORS) composes the way chi expects.
type HTTP struct {
	router Router
	mux    *chi.Mux
	log    *slog.Logger

	defaultDeadline time.Duration
}

// NewHTTP builds the HTTP transport. When corsEnabled, every response
// carries permissive CORS headers and OPTIONS preflights succeed.
func NewHTTP(router Router, corsEnabled bool, log *slog.Logger) *HTTP {
	if log == nil {
		log = slog.Default()
	}
	h := &HTTP{
		router:          router,
		mux:             chi.NewRouter(),
		log:             log,
		defaultDeadline: 30 * time.Second,
	}
	if corsEnabled {
		h.mux.Use(corsMiddleware)
	}
	h.mux.Post("/", h.handleRPC)
	h.mux.Options("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	return h
}

// Mount registers an additional handler (health, stats, metrics, info)
// on the transport's router, so internal/server can wire §4.K without
// this package depending on it.
func (h *HTTP) Mount(pattern string, handler http.Handler) {
	h.mux.Handle(pattern, handler)
}

// ServeHTTP lets HTTP be used directly as an http.Handler by whatever
// *http.Server internal/server constructs (auth, IP allow-listing, and
// rate limiting live there, one layer up, per §4.J).
func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HTTP) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes+1))
	if err != nil {
		h.writeJSON(w, http.StatusOK, Response{JSONRPC: "2.0", Error: &Error{Code: CodeParseError, Message: "failed to read body: " + err.Error()}})
		return
	}
	if len(body) > maxRequestBodyBytes {
		h.writeJSON(w, http.StatusRequestEntityTooLarge, Response{JSONRPC: "2.0", Error: &Error{Code: CodeInvalidRequest, Message: "request body too large"}})
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeJSON(w, http.StatusOK, Response{JSONRPC: "2.0", Error: &Error{Code: CodeParseError, Message: "parse error: " + err.Error()}})
		return
	}

	// The principal was already placed on the request context by
	// auth.Middleware.Wrap, one layer up in internal/server.
	principal := auth.PrincipalFromContext(r.Context())
	resp := Response{JSONRPC: "2.0", ID: req.ID}
	result, callErr := routeRequest(r.Context(), h.router, req, principal, h.defaultDeadline, "http")
	if callErr != nil {
		resp.Error = ErrFromRPCError(callErr)
	} else {
		resp.Result = result
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("http: failed to encode response", "error", err)
	}
}
