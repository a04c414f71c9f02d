package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestGetBeforeInit(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get returned nil before Init")
	}
	// must not panic
	Get().Info(context.Background(), "dropped")
}

func TestInitWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	if err := Init("debug", &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() { _ = Init("info", nil) }()

	Named("label").Info(context.Background(), "applied", String("word", "HOUSE"), Int("n", 2))

	out := buf.String()
	for _, want := range []string{"applied", "component=label", "word=HOUSE", "n=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init("warn", &buf); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() { _ = Init("info", nil) }()

	ctx := context.Background()
	Get().Info(ctx, "hidden")
	Get().Warn(ctx, "shown", Error(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "boom") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestSetLevelString(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("SetLevelString(%q) failed: %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestNewIsIndependent(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelError)
	l.Warn(context.Background(), "nope")
	l.Error(context.Background(), "yes")
	if strings.Contains(buf.String(), "nope") || !strings.Contains(buf.String(), "yes") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
