// Command aoview shows ambient obscurance applied to an EXR frame on the GPU.
//
// Drop an EXR of the same size onto the window to replace the colour input.
// Press S to save the presented frame next to the colour input.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-ao/engine"
	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/Carmen-Shannon/oxy-ao/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ao/engine/window"
	"github.com/mrjoshuak/go-openexr/exr"
)

const windowName = "aoview"

func main() {
	var (
		colorPath    = flag.String("color", "", "lit colour EXR (required)")
		geometryPath = flag.String("geometry", "", "normal (RGB) and linear depth (A) EXR (required)")
		fov          = flag.Float64("fov", 60, "vertical field of view in degrees")
		vsync        = flag.Bool("vsync", true, "wait for vertical sync")
		limit        = flag.Float64("fps", 0, "render frame cap (0 = uncapped)")
		software     = flag.Bool("fallback-adapter", false, "force the software WebGPU adapter")
		profile      = flag.Bool("profile", false, "log frame statistics every second")
		verbose      = flag.Bool("v", false, "log pass plans and rebuilds")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	obscurance.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *colorPath == "" || *geometryPath == "" {
		log.Fatalf("-color and -geometry are required")
	}
	color, err := exr.DecodeFile(*colorPath)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *colorPath, err)
	}
	geometry, err := exr.DecodeFile(*geometryPath)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *geometryPath, err)
	}
	size := color.Rect.Size()
	if geometry.Rect.Size() != size {
		log.Fatalf("Geometry is %v, colour is %v", geometry.Rect.Size(), size)
	}

	win := window.NewWindow(
		window.WithTitle(windowName),
		window.WithSize(size.X, size.Y),
		window.WithSizeLimits(min(size.X, 320), min(size.Y, 240), max(size.X*2, 1920), max(size.Y*2, 1080)),
	)

	presentMode := renderer.PresentModeUncapped
	if *vsync {
		presentMode = renderer.PresentModeVSync
	}
	r := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithFieldOfView(float32(*fov)),
		renderer.WithPresentMode(presentMode),
		renderer.WithForceSoftwareRenderer(*software),
	)

	src, dst, err := setup(r, color, geometry)
	if err != nil {
		log.Fatalf("Failed to set up surfaces: %v", err)
	}

	effect := obscurance.NewEffect(r)
	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithPresenter(r),
		engine.WithEffect(effect),
		engine.WithFrame(src, dst),
		engine.WithProfiling(*profile),
		engine.WithProfiler(profiler.NewProfiler(profiler.WithInterval(time.Second))),
		engine.WithRenderFrameLimit(*limit),
	)

	var shots atomic.Int32
	ctl := &controls{
		effect:    effect,
		profiling: *profile,
		profiler: func(enabled bool) {
			if enabled {
				eng.EnableProfiler()
			} else {
				eng.DisableProfiler()
			}
		},
		screenshot: func() {
			path := siblingPath(*colorPath, fmt.Sprintf("aoview%d", shots.Add(1)))
			if err := screenshot(r, dst, path); err != nil {
				obscurance.Logger().Warn("screenshot failed", "err", err)
				return
			}
			obscurance.Logger().Info("saved", "path", path)
		},
	}
	win.SetKeyDownCallback(ctl.handleKey)
	win.SetScrollCallback(ctl.handleScroll)
	win.SetDropCallback(func(paths []string) {
		for _, p := range paths {
			if err := replaceColor(r, src, p); err != nil {
				obscurance.Logger().Warn("dropped file ignored", "path", p, "err", err)
				continue
			}
			obscurance.Logger().Info("loaded", "path", p)
			return
		}
	})

	lastTitle := time.Now()
	win.SetUpdateCallback(func() {
		if time.Since(lastTitle) < 250*time.Millisecond {
			return
		}
		lastTitle = time.Now()
		win.SetTitle(ctl.title(windowName))
	})

	runErr := eng.Run()
	r.Release()
	_ = win.Close()
	if runErr != nil {
		log.Fatalf("Viewer stopped: %v", runErr)
	}
}

// setup uploads the inputs and creates the destination surface.
func setup(r renderer.Renderer, color, geometry *exr.RGBAImage) (obscurance.Surface, obscurance.Surface, error) {
	size := color.Rect.Size()
	src, err := r.NewColorSurface(size.X, size.Y)
	if err != nil {
		return obscurance.Surface{}, obscurance.Surface{}, err
	}
	if err := r.UploadColor(src, color); err != nil {
		return obscurance.Surface{}, obscurance.Surface{}, err
	}
	dst, err := r.NewColorSurface(size.X, size.Y)
	if err != nil {
		return obscurance.Surface{}, obscurance.Surface{}, err
	}
	if _, err := r.SetGeometry(geometry); err != nil {
		return obscurance.Surface{}, obscurance.Surface{}, err
	}
	return src, dst, nil
}

// replaceColor uploads a dropped EXR into the source surface.
func replaceColor(r renderer.Renderer, src obscurance.Surface, path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".exr") {
		return fmt.Errorf("not an EXR file")
	}
	img, err := exr.DecodeFile(path)
	if err != nil {
		return err
	}
	return r.UploadColor(src, img)
}

// screenshot reads the destination surface back and writes it as EXR.
func screenshot(r renderer.Renderer, dst obscurance.Surface, path string) error {
	img, err := r.ReadColor(dst)
	if err != nil {
		return err
	}
	return exr.EncodeFile(path, img)
}

// siblingPath inserts a suffix before the extension: frame.exr becomes frame.aoview1.exr.
func siblingPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + suffix + ext
}
