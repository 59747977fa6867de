package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.Name() != "test" {
		t.Errorf("expected name 'test', got %q", l.Name())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: "json", Output: "stderr"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	l.Warn("shown", Fields("pid", 7))
	m := decodeLine(t, &buf)
	if m["message"] != "shown" {
		t.Errorf("expected message 'shown', got %v", m["message"])
	}
	if m["pid"] != float64(7) {
		t.Errorf("expected pid 7, got %v", m["pid"])
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug").WithComponent("process")
	if l.Name() != "process" {
		t.Errorf("expected name 'process', got %q", l.Name())
	}
	l.Debug("launch")
	m := decodeLine(t, &buf)
	if m[FieldComponent] != "process" {
		t.Errorf("expected component=process, got %v", m[FieldComponent])
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug").
		WithFields(Fields(FieldDir, "/tmp")).
		WithError(errors.New("boom"))
	l.Error("failed")
	m := decodeLine(t, &buf)
	if m[FieldDir] != "/tmp" {
		t.Errorf("expected dir field, got %v", m[FieldDir])
	}
	if m["error"] != "boom" {
		t.Errorf("expected error field, got %v", m["error"])
	}
}

func TestWithContext_NoSpan(t *testing.T) {
	l := NewNop()
	if l.WithContext(context.Background()) != l {
		t.Error("expected the same logger when ctx carries no span")
	}
}

func TestWithContext_Span(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	NewWithWriter(&buf, "info").WithContext(ctx).Info("traced")
	m := decodeLine(t, &buf)
	if m[FieldTraceID] != span.SpanContext().TraceID().String() {
		t.Errorf("expected trace id, got %v", m[FieldTraceID])
	}
	if m[FieldSpanID] != span.SpanContext().SpanID().String() {
		t.Errorf("expected span id, got %v", m[FieldSpanID])
	}
}

func TestFields(t *testing.T) {
	f := Fields("a", 1, "b", "two", 3, "skipped", "dangling")
	if len(f) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(f), f)
	}
	if f["a"] != 1 || f["b"] != "two" {
		t.Errorf("unexpected fields %v", f)
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("chdir", errors.New("denied"))
	if ef[FieldOperation] != "chdir" || ef[FieldError] != "denied" {
		t.Errorf("unexpected error fields %v", ef)
	}
	df := DurationFields("wait", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", df[FieldDuration])
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"bad level", Config{Level: "loud", Format: "json", Output: "stderr"}, "logging.level"},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stderr"}, "logging.format"},
		{"bad output", Config{Level: "info", Format: "json", Output: "file"}, "logging.output"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	defer Reset()
	custom := NewNop().WithComponent("locks")
	Register("locks", custom)
	if Get("locks") != custom {
		t.Error("expected the registered logger")
	}
	if Get("other").Name() != "other" {
		t.Error("expected a derived component logger for unknown names")
	}
	Reset()
	if Get("locks") == custom {
		t.Error("expected registry to be cleared")
	}
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	var buf bytes.Buffer
	SetGlobalLogger(NewWithWriter(&buf, "info"))
	Info("global")
	m := decodeLine(t, &buf)
	if m["message"] != "global" {
		t.Errorf("expected global message, got %v", m["message"])
	}
}
