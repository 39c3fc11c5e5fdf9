package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)
	logger.Info("test message", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "test message") {
		t.Errorf("expected 'test message' in output, got %q", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("expected 'key=value' in output, got %q", out)
	}
}

func TestNew_DebugSuppressed(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)
	logger.Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected no debug output at INFO level, got %q", buf.String())
	}
}

func TestNewWithLevel_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithLevel(&buf, slog.LevelDebug)
	logger.Debug("visible", "exit_code", 1)

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") {
		t.Errorf("expected DEBUG level in output, got %q", out)
	}
	if !strings.Contains(out, "exit_code=1") {
		t.Errorf("expected exit_code=1 in output, got %q", out)
	}
}

func TestDiscard(t *testing.T) {
	// Should not panic
	Discard().Error("dropped", "k", "v")
}
