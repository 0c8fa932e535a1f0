package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode entry %q: %v", buf.String(), err)
	}
	return entry
}

func TestErrorCarriesOrderContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-9")
	ctx = log.WithStationaryID(ctx, "stationary-4")
	log.Error(ctx, "payments.verify_failed", errors.New("gateway timeout"))

	entry := decodeLine(t, buf)
	want := map[string]string{
		"service":         "api",
		FieldRequestID:    "req-123",
		FieldOrderID:      "order-9",
		FieldStationaryID: "stationary-4",
		"error":           "gateway timeout",
		"message":         "payments.verify_failed",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Fatalf("expected %s=%s, entry=%v", key, value, entry)
		}
	}
	if _, ok := entry["stack"]; !ok {
		t.Fatalf("errors must carry a stack")
	}
}

func TestScopedFieldsDoNotLeakToParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "worker", Output: buf})

	parent := log.WithUserID(context.Background(), "student-1")
	_ = log.WithFields(parent, map[string]any{"event_type": "order_paid"})
	log.Info(parent, "notifications.dispatched")

	entry := decodeLine(t, buf)
	if entry[FieldUserID] != "student-1" {
		t.Fatalf("parent field missing: %v", entry)
	}
	if _, ok := entry["event_type"]; ok {
		t.Fatalf("child field leaked into parent context: %v", entry)
	}
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf, WarnStack: true}).Warn(context.Background(), "payments.refund_required")
	if !bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack when warn stack enabled")
	}

	buf.Reset()
	New(Options{ServiceName: "test", Output: buf}).Warn(context.Background(), "payments.refund_required")
	if bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("unexpected stack with warn stack disabled")
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	log.Debug(log.WithStationaryID(context.Background(), "stationary-1"), "notifications.event_skipped")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be dropped at info level, got %s", buf.String())
	}
}

func TestConsoleOutputIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf, Console: true}).Info(context.Background(), "starting api")
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Fatalf("console writer should not emit JSON: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("starting api")) {
		t.Fatalf("message missing from console output: %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"invalid": zerolog.InfoLevel,
		" WARN ":  zerolog.WarnLevel,
		"debug":   zerolog.DebugLevel,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
