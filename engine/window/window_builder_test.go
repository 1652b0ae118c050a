package window

import "testing"

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{width: 1280, height: 720, resizable: true}
	for _, opt := range []WindowBuilderOption{
		WithTitle("frame"),
		WithSize(640, 0),
		WithSizeLimits(320, 240, 100, 2160),
		WithResizable(false),
	} {
		opt(w)
	}

	if w.title != "frame" {
		t.Errorf("title = %q, want %q", w.title, "frame")
	}
	if w.width != 640 || w.height != 720 {
		t.Errorf("size = %dx%d, want 640x720", w.width, w.height)
	}
	if w.maxWidth != 320 || w.maxHeight != 2160 {
		t.Errorf("max size = %dx%d, want 320x2160", w.maxWidth, w.maxHeight)
	}
	if w.resizable {
		t.Error("resizable = true, want false")
	}
}
