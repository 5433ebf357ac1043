package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestComponentLogger_RespectsEnabledLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewComponentLoggerWithConfig(ComponentLoggerConfig{
		ComponentName: "TEST",
		Color:         color.FgRed,
		EnabledLevels: []LogLevel{INFO, ERROR},
		Output:        log.New(&buf, "", 0),
	})

	logger.Info("hello %s", "world")
	if out := buf.String(); !strings.Contains(out, "[TEST]") || !strings.Contains(out, "hello world") {
		t.Fatalf("expected component tag and message, got: %s", out)
	}

	buf.Reset()
	logger.Debug("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected DEBUG to be suppressed, got: %s", buf.String())
	}

	buf.Reset()
	logger.Error("boom")
	if !strings.Contains(buf.String(), "ERROR") {
		t.Fatalf("expected ERROR level in output, got: %s", buf.String())
	}
}

func TestOrNop(t *testing.T) {
	if !IsNil(OrNop(nil)) {
		t.Fatal("expected OrNop(nil) to be recognized as nil logger")
	}
	l := NewComponentLogger("X")
	if IsNil(OrNop(l)) {
		t.Fatal("expected a real logger to not be nil")
	}
	// OrNop(nil) must be safe to call without panicking.
	OrNop(nil).Info("no-op")
}
