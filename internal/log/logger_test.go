package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dtmoney/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestNewHandlerFormats(t *testing.T) {
	for _, f := range []string{FormatText, FormatJSON, FormatConsole, ""} {
		if _, err := NewHandler(f, &bytes.Buffer{}, slog.LevelInfo); err != nil {
			t.Errorf("format %q: %v", f, err)
		}
	}
	if _, err := NewHandler("xml", nil, slog.LevelInfo); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Component: ComponentStore, Output: &buf})
	l.Info("hello", FieldCount, 2)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentStore || rec[FieldCount] != float64(2) {
		t.Fatalf("unexpected record %v", rec)
	}
	if l.Component() != ComponentStore {
		t.Fatalf("component = %q", l.Component())
	}
}

func TestMiddlewareAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: FormatJSON, Output: &buf})

	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("inside")
		}),
	))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Fatalf("request id missing from %s", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected default logger, got %+v", l)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: FormatJSON, Output: &buf, Level: slog.LevelDebug}))
	r := httptest.NewRequest(http.MethodPost, "/transactions", nil)

	sl.LogHTTPEnd(context.Background(), r, http.StatusBadGateway, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Fatalf("5xx should log at error: %s", buf.String())
	}
	buf.Reset()

	sl.LogTransactionCreated(context.Background(), core.Transaction{ID: 3, Type: core.Income, Price: core.Money{Cents: 100}})
	if !strings.Contains(buf.String(), `"transaction_id":3`) {
		t.Fatalf("transaction fields missing: %s", buf.String())
	}
	buf.Reset()

	sl.LogError(context.Background(), "boom", errors.New("bad"), OpFetch, nil)
	if !strings.Contains(buf.String(), `"error":"bad"`) || !strings.Contains(buf.String(), `"operation":"fetch"`) {
		t.Fatalf("error fields missing: %s", buf.String())
	}
}
