package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")
	logger.Info("server_started", "addr", ":8443")

	out := buf.String()
	if !strings.Contains(out, `"msg":"server_started"`) {
		t.Fatalf("expected JSON msg field, got: %s", out)
	}
	if !strings.Contains(out, `"addr":":8443"`) {
		t.Fatalf("expected addr attribute, got: %s", out)
	}
}

func TestGlobalDefaultsToDiscard(t *testing.T) {
	SetGlobal(nil)
	a := Global()
	b := Global()
	if a == nil || b == nil {
		t.Fatal("expected non-nil discarding logger")
	}
}

func TestLevelFromStringFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")
	logger.Debug("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected debug line to be filtered, got: %s", buf.String())
	}
}

func TestLevelFromStringRecognizesWarningAndCritical(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"info":     slog.LevelInfo,
		"warn":     slog.LevelWarn,
		"warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"critical": LevelCritical,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFromStringCriticalNeverCollapsesToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "critical")
	logger.Log(context.Background(), slog.LevelError, "should be filtered")
	if buf.Len() != 0 {
		t.Fatalf("expected error line filtered below critical, got: %s", buf.String())
	}
	logger.Log(context.Background(), LevelCritical, "should appear")
	if buf.Len() == 0 {
		t.Fatal("expected critical line to be emitted")
	}
}
