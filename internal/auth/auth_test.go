package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAPIKeyAuthenticatorAcceptsConfiguredKey(t *testing.T) {
	a := NewAPIKeyAuthenticator([]string{"secret-1", "secret-2"})
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer secret-2")

	p, err := a.Authenticate(r)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.Source != "api_key" {
		t.Fatalf("unexpected source: %q", p.Source)
	}
}

func TestAPIKeyAuthenticatorRejectsUnknownKey(t *testing.T) {
	a := NewAPIKeyAuthenticator([]string{"secret-1"})
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer wrong")

	if _, err := a.Authenticate(r); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAPIKeyAuthenticatorRejectsMissingHeader(t *testing.T) {
	a := NewAPIKeyAuthenticator([]string{"secret-1"})
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	if _, err := a.Authenticate(r); err != ErrMissingCredentials {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestJWTAuthenticatorAcceptsValidToken(t *testing.T) {
	secret := []byte("test-signing-secret")
	auth := NewJWTAuthenticator(secret, "mcpserver")

	claims := jwt.MapClaims{
		"sub": "user-42",
		"iss": "mcpserver",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signed)

	p, err := auth.Authenticate(r)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.ID != "user-42" || p.Source != "jwt" {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestJWTAuthenticatorRejectsWrongIssuer(t *testing.T) {
	secret := []byte("test-signing-secret")
	auth := NewJWTAuthenticator(secret, "mcpserver")

	claims := jwt.MapClaims{"sub": "user-42", "iss": "someone-else"}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString(secret)

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signed)

	if _, err := auth.Authenticate(r); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestIPAllowListExactMatch(t *testing.T) {
	l := NewIPAllowList([]string{"10.0.0.5"})
	if !l.Allow("10.0.0.5:54321") {
		t.Fatal("expected allowed IP to pass")
	}
	if l.Allow("10.0.0.6:54321") {
		t.Fatal("expected non-listed IP to be rejected")
	}
}

func TestIPAllowListEmptyDisablesCheck(t *testing.T) {
	l := NewIPAllowList(nil)
	if l.Enabled() {
		t.Fatal("expected empty allow-list to be disabled")
	}
	if !l.Allow("203.0.113.9:1") {
		t.Fatal("expected disabled allow-list to allow any address")
	}
}

func TestMiddlewareRejectsForbiddenIP(t *testing.T) {
	m := NewMiddleware(NewAPIKeyAuthenticator(nil), nil, NewIPAllowList([]string{"10.0.0.5"}), nil)
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/tools/call", nil)
	r.RemoteAddr = "203.0.113.9:1"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestMiddlewareSkipsAuthForHealthPath(t *testing.T) {
	m := NewMiddleware(NewAPIKeyAuthenticator([]string{"secret"}), nil, NewIPAllowList(nil), []string{"/health"})
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected skip path to bypass auth, got %d", w.Code)
	}
}

func TestMiddlewareRequiresCredentialsOnOtherPaths(t *testing.T) {
	m := NewMiddleware(NewAPIKeyAuthenticator([]string{"secret"}), nil, NewIPAllowList(nil), []string{"/health"})
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/tools/call", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMiddlewareSetsPrincipalInContext(t *testing.T) {
	m := NewMiddleware(NewAPIKeyAuthenticator([]string{"secret"}), nil, NewIPAllowList(nil), nil)
	var captured *Principal
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/tools/call", nil)
	r.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if captured == nil || captured.Source != "api_key" {
		t.Fatalf("expected principal in context, got %+v", captured)
	}
}
