// Package transport implements the Transport Layer of §4.I: a JSON-RPC
// 2.0 envelope shared by stdio, HTTP, and WebSocket, each converting
// its incoming request to a normalized Call and routing to a Caller
// (the tool Dispatcher).
package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mcpenterprise/server/internal/auth"
)

// Request is a JSON-RPC 2.0 request envelope (§4.I), grounded on the
// teacher's own JSONRPCRequest client-side type.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object. It also satisfies the error and
// codedError interfaces so a transport can return one directly from its
// own routing logic (e.g. an unrecognized method) and pass it straight
// to ErrFromRPCError alongside dispatcher errors.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }
func (e *Error) RPCCode() int  { return e.Code }

// JSON-RPC error codes (§7). CodeMethodNotFound mirrors
// internal/registry.CodeMethodNotFound (same standard code, -32601);
// it is redeclared here so a transport can reject an unrecognized
// top-level method (initialize/tools/list/tools/call) before ever
// reaching the registry, which only knows about tool names.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeShuttingDown   = -32000
)

// ToolsCallParams is the params payload of a tools/call request.
type ToolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Call is the normalized request every transport produces before
// routing to a Router (§4.I "Uniform routing").
type Call struct {
	ToolName      string
	Arguments     map[string]any
	Principal     *auth.Principal
	Deadline      time.Duration
	TransportHint string
}

// Router is the narrow server-core dependency every transport needs:
// the three JSON-RPC methods of §6, independent of how the registry
// and dispatcher are wired together.
type Router interface {
	Initialize(ctx context.Context) (any, error)
	ListTools(ctx context.Context) (any, error)
	CallTool(ctx context.Context, call Call) (any, error)
}

// codedError is satisfied by internal/registry.RPCError without this
// package importing that one.
type codedError interface {
	error
	RPCCode() int
}

// ErrFromRPCError converts a dispatcher-style error into a transport
// Error; unrecognized errors fall back to -32603 internal_error.
func ErrFromRPCError(err error) *Error {
	if ce, ok := err.(codedError); ok {
		return &Error{Code: ce.RPCCode(), Message: ce.Error()}
	}
	return &Error{Code: -32603, Message: err.Error()}
}

// routeRequest implements the "uniform routing" rule of §4.I: every
// transport decodes the same three methods and normalizes tools/call
// into a Call before handing off to router. principal may be nil (the
// stdio transport always supplies auth.StdioPrincipal; HTTP and
// WebSocket supply whatever auth.Middleware placed on the context, also
// readable back out via auth.PrincipalFromContext).
func routeRequest(ctx context.Context, router Router, req Request, principal *auth.Principal, deadline time.Duration, transportHint string) (any, error) {
	switch req.Method {
	case "initialize":
		return router.Initialize(ctx)
	case "tools/list":
		return router.ListTools(ctx)
	case "tools/call":
		var params ToolsCallParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return nil, &Error{Code: CodeInvalidRequest, Message: "invalid params: " + err.Error()}
			}
		}
		call := Call{
			ToolName:      params.Name,
			Arguments:     params.Arguments,
			Principal:     principal,
			Deadline:      deadline,
			TransportHint: transportHint,
		}
		return router.CallTool(ctx, call)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}
