package profiler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
)

func TestTickLogsEffectStats(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(WithInterval(0), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	if !p.Tick(obscurance.FrameStats{Strategy: obscurance.StrategyDeferred, Passes: 6, Rebuilds: 2}) {
		t.Fatal("Tick() = false with a zero interval")
	}
	out := buf.String()
	for _, want := range []string{"passes_per_frame=6", "strategy=deferred", "rebuilds=2", "fps="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q does not contain %q", out, want)
		}
	}
}

func TestTickWaitsForInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(WithInterval(time.Hour), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	for range 3 {
		if p.Tick(obscurance.FrameStats{Passes: 1}) {
			t.Fatal("Tick() = true before the interval elapsed")
		}
	}
	if buf.Len() != 0 {
		t.Errorf("logged %q before the interval elapsed", buf.String())
	}
}
