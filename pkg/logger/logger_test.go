package logger

import (
	"context"
	"testing"
)

func TestInitAndLevels(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	l := Get()
	if l == nil {
		t.Fatal("expected global logger after Init")
	}

	// Named loggers must be independent instances.
	named := l.Named("watcher")
	if named == l {
		t.Error("Named should return a new logger")
	}

	// Logging must not panic at any level.
	ctx := context.Background()
	named.Debug(ctx, "debug line", String("k", "v"))
	named.Info(ctx, "info line", Int("n", 1))
	named.Warn(ctx, "warn line", Bool("flag", true))
	named.Error(ctx, "error line", Float64("f", 0.5))
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	for _, lvl := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("SetLevelString(%q) failed: %v", lvl, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
