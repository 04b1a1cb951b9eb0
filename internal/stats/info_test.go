package stats

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInfoHandlerRendersHTMLSummary(t *testing.T) {
	h := NewInfoHandler(New(), fakeToolCounter{count: 5}, fakeConnectionCounter{active: 1})

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("expected HTML content type, got %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Tool count") {
		t.Fatalf("expected rendered summary, got:\n%s", rec.Body.String())
	}
}
