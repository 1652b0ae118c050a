// Command aobake applies ambient obscurance to an EXR frame on the CPU.
//
// The geometry file stores the view-space normal in RGB and linear depth in A. In forward mode the
// composited colour is written to -out. With -ambient-only the albedo and ambient buffers are
// darkened instead and written next to -out.
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-ao/common"
	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/Carmen-Shannon/oxy-ao/engine/software"
	"github.com/mrjoshuak/go-openexr/exr"
)

// bakeOptions holds everything a bake needs, gathered from the command line.
type bakeOptions struct {
	colorPath    string
	geometryPath string
	albedoPath   string
	ambientPath  string
	outPath      string
	config       obscurance.EffectConfig
	fieldOfView  float32
	workers      int
	fused        bool
}

func main() {
	var (
		colorPath    = flag.String("color", "", "lit colour EXR (required)")
		geometryPath = flag.String("geometry", "", "normal (RGB) and linear depth (A) EXR (required)")
		albedoPath   = flag.String("albedo", "", "albedo EXR, required with -ambient-only")
		ambientPath  = flag.String("ambient", "", "ambient lighting EXR, required with -ambient-only")
		outPath      = flag.String("out", "out.exr", "output EXR")
		intensity    = flag.Float64("intensity", 1, "occlusion intensity [0, 4]")
		radius       = flag.Float64("radius", 0.3, "sampling radius in view-space units")
		estimator    = flag.String("estimator", "angle", "estimator: angle or distance")
		density      = flag.String("density", "medium", "sample density: lowest, low, medium, high or variable")
		samples      = flag.Int("samples", 12, "sample count when -density=variable")
		blur         = flag.Int("blur", 1, "blur iterations [0, 4]")
		downsample   = flag.Bool("downsample", false, "estimate at half resolution")
		ambientOnly  = flag.Bool("ambient-only", false, "darken the albedo and ambient buffers instead of the colour")
		fov          = flag.Float64("fov", 60, "vertical field of view in degrees")
		workers      = flag.Int("workers", 0, "row workers per pass (0 = one less than the CPU count)")
		fused        = flag.Bool("fused", true, "fuse estimate and combine when nothing lies between them")
		verbose      = flag.Bool("v", false, "log pass plans and rebuilds")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	obscurance.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	mode, err := obscurance.ParseEstimatorMode(*estimator)
	if err != nil {
		log.Fatalf("Invalid -estimator: %v", err)
	}
	tier, err := obscurance.ParseSampleDensity(*density)
	if err != nil {
		log.Fatalf("Invalid -density: %v", err)
	}

	opts := bakeOptions{
		colorPath:    *colorPath,
		geometryPath: *geometryPath,
		albedoPath:   *albedoPath,
		ambientPath:  *ambientPath,
		outPath:      *outPath,
		config: obscurance.NewEffectConfig(
			obscurance.WithIntensity(float32(*intensity)),
			obscurance.WithRadius(float32(*radius)),
			obscurance.WithEstimator(mode),
			sampleOption(tier, *samples),
			obscurance.WithBlurIterations(*blur),
			obscurance.WithDownsample(*downsample),
			obscurance.WithAmbientOnly(*ambientOnly),
		),
		fieldOfView: float32(*fov),
		workers:     *workers,
		fused:       *fused,
	}

	written, err := bake(opts)
	if err != nil {
		log.Fatalf("Failed to bake: %v", err)
	}
	for _, path := range written {
		log.Printf("Wrote %s\n", path)
	}
}

// bake runs one frame of the effect over the input files and writes the results.
func bake(opts bakeOptions) ([]string, error) {
	if opts.colorPath == "" || opts.geometryPath == "" {
		return nil, fmt.Errorf("-color and -geometry are required")
	}
	if opts.fieldOfView <= 0 || opts.fieldOfView >= 180 {
		return nil, fmt.Errorf("field of view %v out of range (0, 180)", opts.fieldOfView)
	}

	opts.outPath = common.Coalesce(opts.outPath, "out.exr")

	color, err := decode(opts.colorPath)
	if err != nil {
		return nil, err
	}
	geometry, err := decode(opts.geometryPath)
	if err != nil {
		return nil, err
	}
	if geometry.Rect.Size() != color.Rect.Size() {
		return nil, fmt.Errorf("geometry is %v, colour is %v", geometry.Rect.Size(), color.Rect.Size())
	}

	hostOpts := []software.HostBuilderOption{software.WithFieldOfView(opts.fieldOfView)}
	if opts.workers > 0 {
		hostOpts = append(hostOpts, software.WithWorkers(opts.workers))
	}

	var albedo, ambient *exr.RGBAImage
	if opts.config.AmbientOnly {
		if opts.albedoPath == "" || opts.ambientPath == "" {
			return nil, fmt.Errorf("-ambient-only needs -albedo and -ambient")
		}
		if albedo, err = decode(opts.albedoPath); err != nil {
			return nil, err
		}
		if ambient, err = decode(opts.ambientPath); err != nil {
			return nil, err
		}
		hostOpts = append(hostOpts, software.WithCapabilities(obscurance.Capabilities{
			Path: obscurance.RenderPathDeferred,
			HDR:  true,
		}))
	}

	h := software.NewHost(hostOpts...)
	src := h.NewColorSurface(color)
	out := exr.NewRGBAImage(color.Rect)
	dst := h.NewColorSurface(out)
	if opts.config.AmbientOnly {
		h.SetGBuffer(geometry)
		h.SetAmbientTargets(h.NewColorSurface(albedo), h.NewColorSurface(ambient))
	} else {
		h.SetGeometry(geometry)
	}

	effect := obscurance.NewEffect(h,
		obscurance.WithConfig(opts.config),
		obscurance.WithFusedFastPath(opts.fused),
	)
	if err := effect.OnEnable(); err != nil {
		return nil, fmt.Errorf("failed to enable effect: %w", err)
	}
	defer effect.OnDisable()

	// the first frame records and attaches the deferred list; replaying it once applies it
	effect.OnFrame(src, dst)
	if err := h.ExecuteStage(obscurance.StageBeforeReflections, src, dst); err != nil {
		return nil, fmt.Errorf("failed to execute stage: %w", err)
	}

	stats := effect.Stats()
	obscurance.Logger().Info("baked",
		"size", color.Rect.Size(),
		"strategy", stats.Strategy,
		"passes", stats.Passes,
		"fused", stats.Fused,
		"fallbacks", stats.Fallbacks,
	)
	if stats.Fallbacks > 0 {
		return nil, fmt.Errorf("effect fell back to a pass-through copy")
	}

	if !opts.config.AmbientOnly {
		if err := exr.EncodeFile(opts.outPath, out); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", opts.outPath, err)
		}
		return []string{opts.outPath}, nil
	}

	albedoOut, ambientOut := siblingPath(opts.outPath, "albedo"), siblingPath(opts.outPath, "ambient")
	if err := exr.EncodeFile(albedoOut, albedo); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", albedoOut, err)
	}
	if err := exr.EncodeFile(ambientOut, ambient); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", ambientOut, err)
	}
	return []string{albedoOut, ambientOut}, nil
}

// sampleOption maps the -density and -samples flags onto the config. -samples only applies to
// the variable tier; the fixed tiers keep their built-in counts.
func sampleOption(tier obscurance.SampleDensity, samples int) obscurance.ConfigBuilderOption {
	if tier == obscurance.SampleDensityVariable {
		return obscurance.WithSampleCount(samples)
	}
	return func(c *obscurance.EffectConfig) {
		c.SampleDensity = tier
		c.SampleCountValue = samples
	}
}

// decode reads an EXR file and rebases it so its pixels start at the origin.
func decode(path string) (*exr.RGBAImage, error) {
	img, err := exr.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if img.Rect.Min == (image.Point{}) {
		return img, nil
	}
	rebased := exr.NewRGBAImage(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	for y := 0; y < img.Rect.Dy(); y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			r, g, b, a := img.RGBA(x+img.Rect.Min.X, y+img.Rect.Min.Y)
			rebased.SetRGBA(x, y, r, g, b, a)
		}
	}
	return rebased, nil
}

// siblingPath inserts a suffix before the extension: out.exr becomes out.albedo.exr.
func siblingPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + suffix + ext
}
