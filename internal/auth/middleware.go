package auth

import (
	"net/http"
)

// Authenticator validates a request and returns the caller's principal.
type Authenticator interface {
	Enabled() bool
	Authenticate(r *http.Request) (*Principal, error)
}

// Middleware wires the API key authenticator, the optional JWT
// authenticator, and the IP allow-list into a single HTTP chain per
// spec §4.J. Paths in SkipPaths (health checks, readiness probes) bypass
// authentication but still pass through the IP allow-list.
type Middleware struct {
	APIKeys   Authenticator
	JWT       Authenticator
	AllowList *IPAllowList
	SkipPaths map[string]bool
}

// NewMiddleware builds a Middleware. jwtAuth may be nil to disable JWT.
func NewMiddleware(apiKeys *APIKeyAuthenticator, jwtAuth *JWTAuthenticator, allowList *IPAllowList, skipPaths []string) *Middleware {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	m := &Middleware{APIKeys: apiKeys, AllowList: allowList, SkipPaths: skip}
	if jwtAuth != nil {
		m.JWT = jwtAuth
	}
	return m
}

// Wrap returns next guarded by authentication and the IP allow-list.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.AllowList != nil && m.AllowList.Enabled() && !m.AllowList.AllowRequest(r) {
			writeAuthError(w, ErrForbiddenIP)
			return
		}

		if m.SkipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.authenticate(r)
		if err != nil {
			if ae, ok := err.(*AuthError); ok {
				writeAuthError(w, ae)
				return
			}
			writeAuthError(w, ErrInvalidCredentials)
			return
		}

		r = r.WithContext(WithPrincipal(r.Context(), principal))
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) authenticate(r *http.Request) (*Principal, error) {
	apiKeysEnabled := m.APIKeys != nil && m.APIKeys.Enabled()
	jwtEnabled := m.JWT != nil && m.JWT.Enabled()

	if !apiKeysEnabled && !jwtEnabled {
		return &Principal{ID: "anonymous", Source: "none"}, nil
	}

	var lastErr error
	if apiKeysEnabled {
		if p, err := m.APIKeys.Authenticate(r); err == nil {
			return p, nil
		} else {
			lastErr = err
		}
	}
	if jwtEnabled {
		if p, err := m.JWT.Authenticate(r); err == nil {
			return p, nil
		} else {
			lastErr = err
		}
	}
	return nil, lastErr
}

func writeAuthError(w http.ResponseWriter, ae *AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.StatusCode)
	_, _ = w.Write([]byte(`{"error":{"type":"` + ae.ErrorType + `","message":"` + ae.Message + `"}}`))
}
