package obscurance

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs(nil).(nopHandler); !ok {
		t.Error("nopHandler.WithAttrs() did not return a nopHandler")
	}
	if _, ok := h.WithGroup("g").(nopHandler); !ok {
		t.Error("nopHandler.WithGroup() did not return a nopHandler")
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	h := newFakeHost(forwardCaps)
	e := NewEffect(h)
	if err := e.OnEnable(); err != nil {
		t.Fatal(err)
	}
	e.OnFrame(colorSurface(500, 8, 8), colorSurface(501, 8, 8))

	out := buf.String()
	for _, want := range []string{"obscurance enabled", "obscurance rebuilt", "strategy=immediate"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("logger enabled after SetLogger(nil)")
	}
}
