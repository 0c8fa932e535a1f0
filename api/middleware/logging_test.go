package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/campusprint/campusprint-backend/pkg/logger"
)

func captureLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: buf})
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	return entry
}

func TestLoggingRecordsRouteAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logg := captureLogger(&buf)
	r := chi.NewRouter()
	r.Use(RequestID(logg), Logging(logg))
	r.Get("/api/v1/orders/{orderId}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	entry := lastLogLine(t, &buf)
	if entry["route"] != "/api/v1/orders/{orderId}" {
		t.Fatalf("expected route pattern, got %v", entry["route"])
	}
	if entry[logger.FieldRequestID] != "req-123" {
		t.Fatalf("expected request id, got %v", entry[logger.FieldRequestID])
	}
	if entry["status"] != float64(200) || entry["bytes"] != float64(2) {
		t.Fatalf("unexpected status/bytes in %v", entry)
	}
}

func TestLoggingKeepsStreamingWriter(t *testing.T) {
	var buf bytes.Buffer
	flushed := false
	handler := Logging(captureLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatalf("wrapped writer lost http.Flusher")
		}
		_, _ = w.Write([]byte("data: hi\n\n"))
		f.Flush()
		flushed = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/owner/realtime", nil))
	if !flushed || !rec.Flushed {
		t.Fatalf("expected the stream to be flushed")
	}
}

func TestLoggingWarnsOnServerError(t *testing.T) {
	var buf bytes.Buffer
	handler := Logging(captureLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))

	if entry := lastLogLine(t, &buf); entry["level"] != "warn" {
		t.Fatalf("expected warn level, got %v", entry["level"])
	}
}

func TestRecovererReturnsInternalError(t *testing.T) {
	var buf bytes.Buffer
	handler := Recoverer(captureLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "nil map write") {
		t.Fatalf("panic value leaked to the client: %s", rec.Body.String())
	}
	if !strings.Contains(buf.String(), "nil map write") {
		t.Fatalf("panic value missing from logs")
	}
}

func TestRecovererLetsAbortThrough(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestIDReplacesUnusableValues(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	for _, in := range []string{"", strings.Repeat("a", maxRequestIDLen+1), "two words", "bad\nline"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, in)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		got := rec.Header().Get(requestIDHeader)
		if got == "" || got == in {
			t.Fatalf("input %q: expected a fresh id, got %q", in, got)
		}
	}
}
