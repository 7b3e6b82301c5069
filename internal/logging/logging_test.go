package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, false)
	ctx := context.Background()

	log.Debug(ctx, "hidden")
	log.Info(ctx, "shown info", "n", 1)
	log.Warn(ctx, "shown warn")
	log.Error(ctx, "shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written below level: %s", out)
	}
	for _, want := range []string{"level=INFO", "msg=\"shown info\"", "n=1", "level=WARN", "level=ERROR"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSlogLogger_WithJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelDebug, true).With("component", "render")
	log.Warn(context.Background(), "entry rejected", "key", "k1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if rec["component"] != "render" || rec["key"] != "k1" || rec["msg"] != "entry rejected" {
		t.Errorf("record = %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelWarn, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
