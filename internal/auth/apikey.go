package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// APIKeyAuthenticator validates `Authorization: Bearer <key>` against a
// configured set of API keys using constant-time comparison, matching
// spec §4.J: non-stdio transports require the header when api_keys is
// non-empty.
type APIKeyAuthenticator struct {
	hashes map[string]bool
}

// NewAPIKeyAuthenticator builds an authenticator from the configured key
// set. An empty set means authentication is disabled for this server.
func NewAPIKeyAuthenticator(keys []string) *APIKeyAuthenticator {
	hashes := make(map[string]bool, len(keys))
	for _, k := range keys {
		hashes[hashKey(k)] = true
	}
	return &APIKeyAuthenticator{hashes: hashes}
}

// Enabled reports whether any API key is configured.
func (a *APIKeyAuthenticator) Enabled() bool { return len(a.hashes) > 0 }

// Authenticate extracts and validates the bearer token from r.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	token := extractBearer(r)
	if token == "" {
		return nil, ErrMissingCredentials
	}

	hash := hashKey(token)
	matched := false
	for stored := range a.hashes {
		if constantTimeEqual(hash, stored) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, ErrInvalidCredentials
	}

	return &Principal{ID: hash[:16], Source: "api_key"}, nil
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(h, prefix) {
		return strings.TrimPrefix(h, prefix)
	}
	return ""
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
