package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	opts := *DefaultOptions
	opts.Level = level
	opts.NoColor = true
	opts.AddSource = false
	return slog.New(NewHandler(buf, &opts))
}

func TestHandlerWritesRequestIDAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, slog.LevelDebug)

	ctx := ContextWithRequestID(context.Background(), "0123456789abcdef")
	log.InfoContext(ctx, "resolved clips", "units", 3, Err(errors.New("boom")))

	line := buf.String()
	for _, want := range []string{"01234567 ", "INFO", "resolved clips", "units=3", "err=boom"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q does not contain %q", line, want)
		}
	}
	if strings.Contains(line, "\u001b[") {
		t.Errorf("expected ANSI sequences to be stripped, got %q", line)
	}
}

func TestHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, slog.LevelWarn)

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing, got %q", out)
	}
}

func TestHandlerGroupsAndSource(t *testing.T) {
	var buf bytes.Buffer
	opts := *DefaultOptions
	opts.NoColor = true
	log := slog.New(NewHandler(&buf, &opts)).WithGroup("publish").With("key", "videos/a.mp4")

	log.Warn("orphan")

	line := buf.String()
	for _, want := range []string{"WARN", "logger_test.go:", "| orphan", "publish.key=videos/a.mp4"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q does not contain %q", line, want)
		}
	}
}

func TestRequestIDFromContext(t *testing.T) {
	if _, ok := RequestIDFromContext(context.Background()); ok {
		t.Fatal("expected no request id on empty context")
	}
	if _, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), "")); ok {
		t.Fatal("expected empty request id to be ignored")
	}
	id, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), "abc"))
	if !ok || id != "abc" {
		t.Fatalf("got (%q, %v), want (\"abc\", true)", id, ok)
	}
}

func TestErrNil(t *testing.T) {
	if got := Err(nil).Value.String(); got != "<nil>" {
		t.Fatalf("Err(nil) = %q", got)
	}
}
