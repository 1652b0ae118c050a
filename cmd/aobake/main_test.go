package main

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/mrjoshuak/go-openexr/exr"
)

func writeFilled(t *testing.T, path string, w, h int, r, g, b, a float32) {
	t.Helper()
	img := exr.NewRGBAImage(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, r, g, b, a)
		}
	}
	if err := exr.EncodeFile(path, img); err != nil {
		t.Fatalf("EncodeFile(%s) error = %v", path, err)
	}
}

func TestBakeForward(t *testing.T) {
	dir := t.TempDir()
	color := filepath.Join(dir, "color.exr")
	geometry := filepath.Join(dir, "geometry.exr")
	out := filepath.Join(dir, "out.exr")
	writeFilled(t, color, 16, 16, 0.5, 0.5, 0.5, 1)
	writeFilled(t, geometry, 16, 16, 0, 0, -1, 4)

	written, err := bake(bakeOptions{
		colorPath:    color,
		geometryPath: geometry,
		outPath:      out,
		config:       obscurance.NewEffectConfig(),
		fieldOfView:  60,
		workers:      2,
		fused:        true,
	})
	if err != nil {
		t.Fatalf("bake() error = %v", err)
	}
	if len(written) != 1 || written[0] != out {
		t.Fatalf("bake() wrote %v, want [%s]", written, out)
	}

	img, err := exr.DecodeFile(out)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if img.Rect.Size() != (image.Point{X: 16, Y: 16}) {
		t.Fatalf("output size = %v, want 16x16", img.Rect.Size())
	}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if r, _, _, _ := img.RGBA(x, y); r > 0.5+1e-3 {
				t.Fatalf("pixel (%d, %d) red = %v, brighter than the source", x, y, r)
			}
		}
	}
}

func TestBakeAmbientOnlyWritesSiblings(t *testing.T) {
	dir := t.TempDir()
	paths := map[string]string{}
	for _, name := range []string{"color", "geometry", "albedo", "ambient"} {
		paths[name] = filepath.Join(dir, name+".exr")
	}
	writeFilled(t, paths["color"], 16, 16, 0.5, 0.5, 0.5, 1)
	writeFilled(t, paths["geometry"], 16, 16, 0, 0, -1, 4)
	writeFilled(t, paths["albedo"], 16, 16, 0.8, 0.8, 0.8, 1)
	writeFilled(t, paths["ambient"], 16, 16, 0.2, 0.2, 0.2, 1)

	written, err := bake(bakeOptions{
		colorPath:    paths["color"],
		geometryPath: paths["geometry"],
		albedoPath:   paths["albedo"],
		ambientPath:  paths["ambient"],
		outPath:      filepath.Join(dir, "out.exr"),
		config:       obscurance.NewEffectConfig(obscurance.WithAmbientOnly(true)),
		fieldOfView:  60,
	})
	if err != nil {
		t.Fatalf("bake() error = %v", err)
	}
	want := []string{filepath.Join(dir, "out.albedo.exr"), filepath.Join(dir, "out.ambient.exr")}
	if len(written) != 2 || written[0] != want[0] || written[1] != want[1] {
		t.Errorf("bake() wrote %v, want %v", written, want)
	}
}

func TestBakeRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	color := filepath.Join(dir, "color.exr")
	geometry := filepath.Join(dir, "geometry.exr")
	writeFilled(t, color, 16, 16, 0.5, 0.5, 0.5, 1)
	writeFilled(t, geometry, 8, 8, 0, 0, -1, 4)

	tests := []struct {
		name string
		opts bakeOptions
	}{
		{"missing colour", bakeOptions{geometryPath: geometry, fieldOfView: 60}},
		{"size mismatch", bakeOptions{colorPath: color, geometryPath: geometry, fieldOfView: 60}},
		{"bad field of view", bakeOptions{colorPath: color, geometryPath: color, fieldOfView: 180}},
		{"ambient-only without targets", bakeOptions{
			colorPath:    color,
			geometryPath: color,
			fieldOfView:  60,
			config:       obscurance.NewEffectConfig(obscurance.WithAmbientOnly(true)),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := bake(tt.opts); err == nil {
				t.Error("bake() error = nil")
			}
		})
	}
}

func TestSiblingPath(t *testing.T) {
	if got := siblingPath("/tmp/frame.exr", "albedo"); got != "/tmp/frame.albedo.exr" {
		t.Errorf("siblingPath() = %q, want %q", got, "/tmp/frame.albedo.exr")
	}
}

func TestSampleOption(t *testing.T) {
	tests := []struct {
		name        string
		tier        obscurance.SampleDensity
		samples     int
		wantDensity obscurance.SampleDensity
		wantCount   int
	}{
		{"lowest keeps its tier", obscurance.SampleDensityLowest, 12, obscurance.SampleDensityLowest, 3},
		{"low keeps its tier", obscurance.SampleDensityLow, 12, obscurance.SampleDensityLow, 6},
		{"high keeps its tier", obscurance.SampleDensityHigh, 5, obscurance.SampleDensityHigh, 20},
		{"variable uses samples", obscurance.SampleDensityVariable, 9, obscurance.SampleDensityVariable, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := obscurance.NewEffectConfig(sampleOption(tt.tier, tt.samples))
			if got := cfg.EffectiveSampleDensity(); got != tt.wantDensity {
				t.Errorf("EffectiveSampleDensity() = %v, want %v", got, tt.wantDensity)
			}
			if got := cfg.EffectiveSampleCount(); got != tt.wantCount {
				t.Errorf("EffectiveSampleCount() = %d, want %d", got, tt.wantCount)
			}
		})
	}
}
