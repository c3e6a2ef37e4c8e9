package gpustate

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
)

// captureLogger installs a debug text logger for the test and returns its
// output buffer.
func captureLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetLogger(l)
	return l, &buf
}

func TestDiscardHandler(t *testing.T) {
	var h slog.Handler = discard{}
	ctx := context.Background()

	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(ctx, level) {
			t.Errorf("Enabled(%v) = true", level)
		}
	}
	if err := h.Handle(ctx, slog.Record{}); err != nil {
		t.Errorf("Handle: %v", err)
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.Int("id", 1)}).(discard); !ok {
		t.Error("WithAttrs should stay silent")
	}
	if _, ok := h.WithGroup("native").(discard); !ok {
		t.Error("WithGroup should stay silent")
	}
}

func TestLogger_SilentByDefault(t *testing.T) {
	if Logger() != silent {
		t.Skip("another test left a logger installed")
	}
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger is enabled")
	}
}

func TestSetLogger(t *testing.T) {
	l, buf := captureLogger(t)
	if Logger() != l {
		t.Fatal("Logger() does not return the installed logger")
	}

	Logger().Debug("state: pipeline cache miss", "slot", 3)
	if out := buf.String(); !strings.Contains(out, "pipeline cache miss") || !strings.Contains(out, "slot=3") {
		t.Errorf("unexpected output %q", out)
	}

	SetLogger(nil)
	if Logger() != silent {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}

func TestLoggerOr(t *testing.T) {
	shared, _ := captureLogger(t)
	own := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	if LoggerOr(own) != own {
		t.Error("LoggerOr should prefer its argument")
	}
	if LoggerOr(nil) != shared {
		t.Error("LoggerOr(nil) should return the shared logger")
	}
}

func TestLogger_Concurrent(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	var g errgroup.Group
	for i := range 64 {
		g.Go(func() error {
			if i%2 == 0 {
				SetLogger(slog.Default())
				SetLogger(nil)
				return nil
			}
			Logger().Debug("texture: lock", "worker", i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if Logger() == nil {
		t.Error("Logger() returned nil")
	}
}

func BenchmarkLogger_DisabledDebug(b *testing.B) {
	l := Logger()
	b.ReportAllocs()
	for b.Loop() {
		l.Debug("state: pipeline cache hit", "id", 7)
	}
}
