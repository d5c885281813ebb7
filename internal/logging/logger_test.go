package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"transmute/internal/services"
)

func TestConsoleHandlerLayout(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl)).With(String(FieldComponent, "engine"))

	logger.Info("job started", Int64(FieldJobID, 7), String("filename", "game disc.cue"))

	line := buf.String()
	if !strings.Contains(line, "INFO engine: job started") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "job_id=7") {
		t.Fatalf("missing job_id attr: %q", line)
	}
	if !strings.Contains(line, `filename="game disc.cue"`) {
		t.Fatalf("expected quoted value with spaces: %q", line)
	}
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("dropped")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Fatal("info record should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Fatal("warn record missing")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWithContextAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, lvl))

	ctx := services.WithJobID(context.Background(), 3)
	ctx = services.WithStage(ctx, "convert")
	ctx = services.WithBatchID(ctx, "b-123")

	WithContext(ctx, base).Info("hello")

	line := buf.String()
	for _, want := range []string{"job_id=3", "stage=convert", "batch_id=b-123"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}
