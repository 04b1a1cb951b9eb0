// Package auth authenticates non-stdio transports against the configured
// API key set (and, optionally, JWT bearer tokens) and enforces the IP
// allow-list described in spec §4.J.
package auth

import "context"

// Principal identifies the caller of a tool invocation. stdio connections
// are always authenticated by virtue of local invocation and carry the
// fixed ID "stdio".
type Principal struct {
	ID     string
	Source string // "api_key", "jwt", "stdio", or "none" (no authenticator enabled)
}

// AuthError carries the HTTP status and JSON-RPC-adjacent error fields
// the transport layer needs to render a response (§7).
type AuthError struct {
	StatusCode int
	ErrorType  string
	Message    string
}

func (e *AuthError) Error() string { return e.Message }

var (
	ErrMissingCredentials = &AuthError{StatusCode: 401, ErrorType: "auth_error", Message: "missing authentication credentials"}
	ErrInvalidCredentials = &AuthError{StatusCode: 401, ErrorType: "auth_error", Message: "invalid authentication credentials"}
	ErrForbiddenIP        = &AuthError{StatusCode: 403, ErrorType: "auth_error", Message: "remote address not in allow-list"}
)

type contextKey struct{ name string }

var principalKey = &contextKey{"principal"}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// StdioPrincipal is the fixed principal assigned to stdio transport calls.
var StdioPrincipal = &Principal{ID: "stdio", Source: "stdio"}
