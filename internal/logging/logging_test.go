package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// captureLogOutput reinitializes the logger to write JSON into a buffer,
// runs f, and restores the default logger afterwards.
func captureLogOutput(level Level, f func()) string {
	var buf bytes.Buffer
	InitLoggerTo(&buf, level, FormatJSON)
	defer InitLogger(LevelInfo, FormatText)
	f()
	return buf.String()
}

func decodeLines(t *testing.T, output string) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
	}{
		{"Debug level JSON format", LevelDebug, FormatJSON},
		{"Warn level JSON format", LevelWarn, FormatJSON},
		{"Info level Text format", LevelInfo, FormatText},
		{"Default level (invalid value)", Level(999), FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitLogger(tt.level, tt.format)
			if GetLogger() == nil {
				t.Error("Expected logger to be initialized, got nil")
			}
		})
	}
	InitLogger(LevelInfo, FormatText)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat("Text"); err != nil || f != FormatText {
		t.Errorf("ParseFormat(Text) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{"Context with request ID", WithRequestID(context.Background(), "test-id"), "test-id"},
		{"Context without request ID", context.Background(), ""},
		{"Context with wrong type value", context.WithValue(context.Background(), RequestIDKey, 12345), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetRequestID(tt.ctx); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	output := captureLogOutput(LevelWarn, func() {
		Debug("hidden debug")
		Info("hidden info")
		Warn("shown warn")
		Error("shown error", "error", errors.New("boom"))
	})

	entries := decodeLines(t, output)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %s", len(entries), output)
	}
	if entries[0]["msg"] != "shown warn" {
		t.Errorf("first entry msg = %v", entries[0]["msg"])
	}
	if entries[1]["error"] != "boom" {
		t.Errorf("second entry error = %v", entries[1]["error"])
	}
}

func TestContextHelpersAttachRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	output := captureLogOutput(LevelDebug, func() {
		DebugContext(ctx, "debug")
		InfoContext(ctx, "info")
		WarnContext(ctx, "warn")
		ErrorContext(ctx, "error")
	})

	entries := decodeLines(t, output)
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e["request_id"] != "req-42" {
			t.Errorf("entry %v missing request_id", e["msg"])
		}
	}
}

func TestDiagramHelpers(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	output := captureLogOutput(LevelInfo, func() {
		DiagramRendered(ctx, "dep", 11, false, "path", "/tmp/x.html")
		ColorizeDegraded(ctx, "no root element")
		ServerStartup("render_api", "http", 8080)
		WebSocketEvent("client_connected", "clients", 1)
	})

	entries := decodeLines(t, output)
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d: %s", len(entries), output)
	}

	rendered := entries[0]
	if rendered["msg"] != "diagram_rendered" || rendered["mode"] != "dep" || rendered["tokens"] != float64(11) {
		t.Errorf("unexpected diagram_rendered entry: %v", rendered)
	}
	if rendered["path"] != "/tmp/x.html" || rendered["request_id"] != "abc" {
		t.Errorf("extra args not attached: %v", rendered)
	}

	degraded := entries[1]
	if degraded["level"] != "WARN" || degraded["reason"] != "no root element" {
		t.Errorf("unexpected colorize_degraded entry: %v", degraded)
	}

	if entries[2]["port"] != float64(8080) {
		t.Errorf("unexpected server_startup entry: %v", entries[2])
	}
	if entries[3]["event"] != "client_connected" {
		t.Errorf("unexpected websocket_event entry: %v", entries[3])
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates uuid", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if _, err := uuid.Parse(seen); err != nil {
			t.Errorf("request id %q is not a uuid: %v", seen, err)
		}
		if w.Header().Get("X-Request-ID") != seen {
			t.Errorf("header %q does not match context %q", w.Header().Get("X-Request-ID"), seen)
		}
	})

	t.Run("keeps client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "client-supplied")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen != "client-supplied" {
			t.Errorf("expected client-supplied, got %q", seen)
		}
	})
}

func TestCombinedMiddlewareLogsStatus(t *testing.T) {
	handler := CombinedMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	output := captureLogOutput(LevelInfo, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/render", nil))
	})

	entries := decodeLines(t, output)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["msg"] != "http_request" || e["status_code"] != float64(http.StatusTeapot) || e["path"] != "/render" {
		t.Errorf("unexpected http_request entry: %v", e)
	}
	if e["request_id"] == "" || e["request_id"] == nil {
		t.Error("expected request_id on http_request entry")
	}
}

func TestResponseWriterHijackUnsupported(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("expected error when the underlying writer cannot hijack")
	}
	if rw.Unwrap() == nil {
		t.Error("Unwrap should return the underlying writer")
	}
}
