package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func renderLine(t *testing.T, format logFormat, ctx context.Context, component, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		format: format,
	})
	log := slog.New(handler).With("component", component)
	LogEvent(ctx, log, slog.LevelInfo, event, attrs...)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := renderLine(t, formatKV, ctx, "conversation", "registration.created",
		slog.String("student_id", "S123"),
		slog.String("status", "OK"),
	)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=conversation", "event=registration.created", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "student_id=S123"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")

	line := renderLine(t, formatJSON, ctx, "store", "store.register",
		slog.String("backend", "workbook"),
		slog.String("err", "boom"),
	)
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"INFO"`, `"component":"store"`, `"event":"store.register"`, `"rid":"rid-json"`, `"backend":"workbook"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := "123:456:789"
	ctx := WithRID(context.Background(), rawRID)

	kv := renderLine(t, formatKV, ctx, "app", "rid.test")
	if !strings.Contains(kv, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", kv)
	}
	if strings.Contains(kv, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", kv)
	}

	js := renderLine(t, formatJSON, ctx, "app", "rid.test")
	if !strings.Contains(js, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", js)
	}
	if !strings.Contains(js, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", js)
	}
}

func TestStructuredHandlerRedactsNames(t *testing.T) {
	line := renderLine(t, formatKV, context.Background(), "conversation", "registration.updated",
		slog.String("name", "Aria"),
		slog.String("new_name", "Aria3"),
		slog.String("student_id", "S123"),
	)
	if strings.Contains(line, "Aria") {
		t.Fatalf("name leaked into log: %s", line)
	}
	if !strings.Contains(line, "name="+redactedValue) {
		t.Fatalf("expected redaction marker, got %s", line)
	}
	if !strings.Contains(line, "student_id=S123") {
		t.Fatalf("student id should be kept, got %s", line)
	}
}

func TestStructuredHandlerDurationKeys(t *testing.T) {
	line := renderLine(t, formatKV, context.Background(), "db", "db.connect",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("backoff", 2*time.Second),
	)
	if !strings.Contains(line, "duration_ms=2") {
		t.Fatalf("expected duration_ms=2, got %s", line)
	}
	if !strings.Contains(line, "backoff_ms=2000") {
		t.Fatalf("expected backoff_ms=2000, got %s", line)
	}
}

func TestLoggingBeforeInitIsDiscarded(t *testing.T) {
	Info(context.Background(), "store", "store.created", slog.String("path", "x"))
	DB.Info("connected")
	if Component("conversation") == nil {
		t.Fatal("component logger must never be nil")
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	want := []bool{true, false, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Allow #%d = %v, want %v", i, got[i], want[i])
		}
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow everything")
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/10": {1, 10},
		"25":   {1, 25},
		"0":    {0, 0},
		"x/y":  {0, 0},
		"":     {0, 0},
	}
	for spec, want := range cases {
		num, den := parseRatioSpec(spec)
		if num != want[0] || den != want[1] {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, want %d/%d", spec, num, den, want[0], want[1])
		}
	}
}
