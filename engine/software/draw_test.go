package software

import (
	"image"
	"testing"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
)

func estimateMask(t *testing.T, h Host, geometry obscurance.Surface, w, ht int, cfg obscurance.EffectConfig) *image.Gray {
	t.Helper()
	p, err := h.LoadProgram(obscurance.ProgramName)
	if err != nil {
		t.Fatal(err)
	}
	mask, err := h.AcquireSurface(obscurance.SurfaceDescriptor{Width: w, Height: ht, Format: obscurance.SurfaceFormatR8Linear})
	if err != nil {
		t.Fatal(err)
	}
	plan := obscurance.BuildPasses(cfg, w, ht, h.Capabilities())

	var b obscurance.Bindings
	b[obscurance.SlotGeometry] = geometry
	b[obscurance.SlotMask] = mask
	if err := h.Draw(p, plan.Passes[0], b); err != nil {
		t.Fatalf("Draw(estimate) error = %v", err)
	}
	img, _ := h.MaskImage(mask)
	return img
}

func TestEstimateFlatPlaneUnoccluded(t *testing.T) {
	for _, mode := range []obscurance.EstimatorMode{obscurance.EstimatorAngleBased, obscurance.EstimatorDistanceBased} {
		h := NewHost(WithWorkers(3))
		geo := h.SetGeometry(flatGeometry(24, 16, 2))
		mask := estimateMask(t, h, geo, 24, 16, obscurance.NewEffectConfig(obscurance.WithEstimator(mode)))
		for i, v := range mask.Pix {
			if v != 0 {
				t.Fatalf("estimator %d: mask[%d] = %d, want 0 on a flat plane", mode, i, v)
			}
		}
	}
}

func TestEstimateStepOccludes(t *testing.T) {
	for _, mode := range []obscurance.EstimatorMode{obscurance.EstimatorAngleBased, obscurance.EstimatorDistanceBased} {
		h := NewHost()
		geo := h.SetGeometry(stepGeometry(32, 32, 1, 2))
		cfg := obscurance.NewEffectConfig(obscurance.WithEstimator(mode), obscurance.WithRadius(0.5), obscurance.WithSampleDensity(obscurance.SampleDensityHigh))
		mask := estimateMask(t, h, geo, 32, 32, cfg)

		crease := mask.GrayAt(17, 16).Y
		open := mask.GrayAt(31, 16).Y
		if crease == 0 {
			t.Errorf("estimator %d: occlusion next to the step = 0, want > 0", mode)
		}
		if open != 0 {
			t.Errorf("estimator %d: occlusion far from the step = %d, want 0", mode, open)
		}
	}
}

func TestEstimateBackgroundUnoccluded(t *testing.T) {
	h := NewHost()
	geo := h.SetGeometry(filledImage(8, 8, 0, 0, -1, 0))
	mask := estimateMask(t, h, geo, 8, 8, obscurance.NewEffectConfig())
	for i, v := range mask.Pix {
		if v != 0 {
			t.Fatalf("mask[%d] = %d, want 0 for background", i, v)
		}
	}
}

func TestEstimateIntensityZero(t *testing.T) {
	h := NewHost()
	geo := h.SetGeometry(stepGeometry(32, 32, 1, 2))
	mask := estimateMask(t, h, geo, 32, 32, obscurance.NewEffectConfig(obscurance.WithIntensity(0), obscurance.WithRadius(0.5)))
	for i, v := range mask.Pix {
		if v != 0 {
			t.Fatalf("mask[%d] = %d, want 0 at zero intensity", i, v)
		}
	}
}

func TestEstimateUsesPushedParameters(t *testing.T) {
	h := NewHost()
	geo := h.SetGeometry(stepGeometry(32, 32, 1, 2))
	p, _ := h.LoadProgram(obscurance.ProgramName)
	cfg := obscurance.NewEffectConfig(obscurance.WithRadius(0.5))
	plan := obscurance.BuildPasses(cfg, 32, 32, h.Capabilities())

	params := plan.Passes[0].Parameters
	params.Intensity = 0
	if err := h.PushParameters(p, params); err != nil {
		t.Fatal(err)
	}
	mask, _ := h.AcquireSurface(obscurance.SurfaceDescriptor{Width: 32, Height: 32, Format: obscurance.SurfaceFormatR8Linear})
	var b obscurance.Bindings
	b[obscurance.SlotGeometry] = geo
	b[obscurance.SlotMask] = mask
	if err := h.Draw(p, plan.Passes[0], b); err != nil {
		t.Fatal(err)
	}
	img, _ := h.MaskImage(mask)
	if v := img.GrayAt(17, 16).Y; v != 0 {
		t.Errorf("occlusion = %d, want 0 after pushing zero intensity", v)
	}
}

func TestDrawUnknownProgram(t *testing.T) {
	h := NewHost()
	plan := obscurance.BuildPasses(obscurance.NewEffectConfig(), 4, 4, h.Capabilities())
	if err := h.Draw(obscurance.Program{ID: 42}, plan.Passes[0], obscurance.Bindings{}); err == nil {
		t.Error("Draw() with an unknown program error = nil")
	}
}

func TestDrawUnboundSlot(t *testing.T) {
	h := NewHost()
	p, _ := h.LoadProgram(obscurance.ProgramName)
	plan := obscurance.BuildPasses(obscurance.NewEffectConfig(), 4, 4, h.Capabilities())
	if err := h.Draw(p, plan.Passes[0], obscurance.Bindings{}); err == nil {
		t.Error("Draw() with unbound slots error = nil")
	}
}

func blurOnce(t *testing.T, h Host, src *image.Gray, vector [2]float32) *image.Gray {
	t.Helper()
	w, ht := src.Rect.Dx(), src.Rect.Dy()
	p, _ := h.LoadProgram(obscurance.ProgramName)

	in, _ := h.AcquireSurface(obscurance.SurfaceDescriptor{Width: w, Height: ht, Format: obscurance.SurfaceFormatR8Linear})
	out, _ := h.AcquireSurface(obscurance.SurfaceDescriptor{Width: w, Height: ht, Format: obscurance.SurfaceFormatR8Linear})
	inImg, _ := h.MaskImage(in)
	copy(inImg.Pix, src.Pix)

	var b obscurance.Bindings
	b[obscurance.SlotGeometry], _ = h.GeometrySurface(obscurance.SourceDepthNormals)
	b[obscurance.SlotMask] = in
	b[obscurance.SlotBlurScratch] = out
	pass := obscurance.Pass{
		Kind:       obscurance.PassBlurHorizontal,
		Inputs:     []obscurance.Slot{obscurance.SlotMask},
		Outputs:    []obscurance.Slot{obscurance.SlotBlurScratch},
		Width:      w,
		Height:     ht,
		BlurVector: vector,
	}
	if err := h.Draw(p, pass, b); err != nil {
		t.Fatalf("Draw(blur) error = %v", err)
	}
	img, _ := h.MaskImage(out)
	return img
}

func TestBlurUniformUnchanged(t *testing.T) {
	h := NewHost()
	h.SetGeometry(flatGeometry(12, 12, 1))
	src := image.NewGray(image.Rect(0, 0, 12, 12))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	out := blurOnce(t, h, src, [2]float32{1, 0})
	for i, v := range out.Pix {
		if v != 200 {
			t.Fatalf("blurred[%d] = %d, want 200", i, v)
		}
	}
}

func TestBlurDirection(t *testing.T) {
	h := NewHost()
	h.SetGeometry(flatGeometry(15, 15, 1))
	src := image.NewGray(image.Rect(0, 0, 15, 15))
	src.Pix[7*src.Stride+7] = 255

	out := blurOnce(t, h, src, [2]float32{1, 0})
	if out.GrayAt(8, 7).Y == 0 || out.GrayAt(6, 7).Y == 0 {
		t.Error("horizontal blur did not spread along the row")
	}
	if out.GrayAt(7, 8).Y != 0 || out.GrayAt(7, 6).Y != 0 {
		t.Error("horizontal blur spread across rows")
	}
	if out.GrayAt(7, 7).Y >= 255 {
		t.Errorf("centre = %d, want < 255", out.GrayAt(7, 7).Y)
	}

	out = blurOnce(t, h, src, [2]float32{0, 2})
	if out.GrayAt(7, 9).Y == 0 {
		t.Error("vertical blur with spacing 2 did not reach two rows away")
	}
	if out.GrayAt(7, 8).Y != 0 {
		t.Errorf("vertical blur with spacing 2 reached the adjacent row: %d", out.GrayAt(7, 8).Y)
	}
}

func TestBlurStopsAtCreases(t *testing.T) {
	h := NewHost()
	geo := flatGeometry(16, 4, 1)
	for y := 0; y < 4; y++ {
		for x := 8; x < 16; x++ {
			geo.SetRGBA(x, y, 1, 0, 0, 1)
		}
	}
	h.SetGeometry(geo)
	src := image.NewGray(image.Rect(0, 0, 16, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			src.Pix[y*src.Stride+x] = 255
		}
	}

	out := blurOnce(t, h, src, [2]float32{1, 0})
	if v := out.GrayAt(8, 1).Y; v != 0 {
		t.Errorf("occlusion leaked across the crease: %d", v)
	}
	if v := out.GrayAt(7, 1).Y; v != 255 {
		t.Errorf("occlusion beside the crease = %d, want 255", v)
	}
}

func TestCombineDarkens(t *testing.T) {
	h := NewHost()
	p, _ := h.LoadProgram(obscurance.ProgramName)
	srcImg := filledImage(4, 4, 1, 0.5, 0.25, 0.75)
	dstImg := filledImage(4, 4, 0, 0, 0, 0)
	src, dst := h.NewColorSurface(srcImg), h.NewColorSurface(dstImg)

	mask, _ := h.AcquireSurface(obscurance.SurfaceDescriptor{Width: 4, Height: 4, Format: obscurance.SurfaceFormatR8Linear})
	maskImg, _ := h.MaskImage(mask)
	for i := range maskImg.Pix {
		maskImg.Pix[i] = 255
	}
	maskImg.Pix[0] = 0

	plan := obscurance.BuildPasses(obscurance.NewEffectConfig(obscurance.WithBlurIterations(0)), 4, 4, h.Capabilities())
	var b obscurance.Bindings
	b[obscurance.SlotSource] = src
	b[obscurance.SlotMask] = mask
	b[obscurance.SlotDestination] = dst
	if err := h.Draw(p, plan.Passes[1], b); err != nil {
		t.Fatal(err)
	}

	if r, g, bl, a := dstImg.RGBA(0, 0); r != 1 || g != 0.5 || bl != 0.25 || a != 0.75 {
		t.Errorf("unoccluded pixel = %v %v %v %v, want the source", r, g, bl, a)
	}
	if r, g, bl, a := dstImg.RGBA(2, 2); r != 0 || g != 0 || bl != 0 || a != 0.75 {
		t.Errorf("occluded pixel = %v %v %v %v, want black with source alpha", r, g, bl, a)
	}
}

func TestCombineUpsamplesHalfResolutionMask(t *testing.T) {
	h := NewHost()
	p, _ := h.LoadProgram(obscurance.ProgramName)
	srcImg := filledImage(8, 8, 1, 1, 1, 1)
	dstImg := filledImage(8, 8, 0, 0, 0, 0)
	src, dst := h.NewColorSurface(srcImg), h.NewColorSurface(dstImg)

	mask, _ := h.AcquireSurface(obscurance.SurfaceDescriptor{Width: 4, Height: 4, Format: obscurance.SurfaceFormatR8Linear})
	maskImg, _ := h.MaskImage(mask)
	for i := range maskImg.Pix {
		maskImg.Pix[i] = 128
	}

	plan := obscurance.BuildPasses(obscurance.NewEffectConfig(obscurance.WithDownsample(true), obscurance.WithBlurIterations(0)), 8, 8, h.Capabilities())
	combine := plan.Passes[len(plan.Passes)-1]
	var b obscurance.Bindings
	b[obscurance.SlotSource] = src
	b[obscurance.SlotMask] = mask
	b[obscurance.SlotDestination] = dst
	if err := h.Draw(p, combine, b); err != nil {
		t.Fatal(err)
	}

	want := 1 - float32(128)/255
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			r, _, _, _ := dstImg.RGBA(x, y)
			if d := r - want; d > 0.01 || d < -0.01 {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, r, want)
			}
		}
	}
}

func TestCombineAmbientTargets(t *testing.T) {
	h := NewHost(WithCapabilities(obscurance.Capabilities{Path: obscurance.RenderPathDeferred, HDR: true}))
	p, _ := h.LoadProgram(obscurance.ProgramName)
	albedoImg := filledImage(4, 4, 0.5, 0.5, 0.5, 1)
	ambientImg := filledImage(4, 4, 2, 2, 2, 1)
	albedo, ambient := h.NewColorSurface(albedoImg), h.NewColorSurface(ambientImg)

	mask, _ := h.AcquireSurface(obscurance.SurfaceDescriptor{Width: 4, Height: 4, Format: obscurance.SurfaceFormatR8Linear})
	maskImg, _ := h.MaskImage(mask)
	for i := range maskImg.Pix {
		maskImg.Pix[i] = 255
	}

	cfg := obscurance.NewEffectConfig(obscurance.WithAmbientOnly(true), obscurance.WithBlurIterations(0))
	plan := obscurance.BuildPasses(cfg, 4, 4, h.Capabilities())
	var b obscurance.Bindings
	b[obscurance.SlotMask] = mask
	b[obscurance.SlotAlbedoTarget] = albedo
	b[obscurance.SlotAmbientTarget] = ambient
	if err := h.Draw(p, plan.Passes[len(plan.Passes)-1], b); err != nil {
		t.Fatal(err)
	}

	if r, _, _, a := albedoImg.RGBA(1, 1); r != 0.5 || a != 0 {
		t.Errorf("albedo = %v alpha %v, want colour kept and alpha 0", r, a)
	}
	if r, _, _, a := ambientImg.RGBA(1, 1); r != 0 || a != 1 {
		t.Errorf("ambient = %v alpha %v, want colour 0 and alpha kept", r, a)
	}
}

func TestDrawReusesScratch(t *testing.T) {
	h := NewHost()
	p, _ := h.LoadProgram(obscurance.ProgramName)
	geometry := h.SetGeometry(stepGeometry(8, 8, 1, 2))
	src := h.NewColorSurface(filledImage(8, 8, 1, 1, 1, 1))
	dst := h.NewColorSurface(filledImage(8, 8, 0, 0, 0, 0))

	plan := obscurance.BuildPasses(obscurance.NewEffectConfig(obscurance.WithBlurIterations(0)), 8, 8, h.Capabilities())
	var b obscurance.Bindings
	b[obscurance.SlotGeometry] = geometry
	b[obscurance.SlotSource] = src
	b[obscurance.SlotDestination] = dst

	impl := h.(*host)
	if err := h.Draw(p, plan.FusedPass(), b); err != nil {
		t.Fatal(err)
	}
	mask, kernel := impl.fusedMask, impl.kernel
	if mask == nil || len(kernel) == 0 {
		t.Fatal("fused draw left no scratch behind")
	}
	if err := h.Draw(p, plan.FusedPass(), b); err != nil {
		t.Fatal(err)
	}
	if impl.fusedMask != mask {
		t.Error("second fused draw allocated a new mask")
	}
	if &impl.kernel[0] != &kernel[0] {
		t.Error("second fused draw regenerated the kernel")
	}

	if got := scratchGray(&impl.fusedMask, 4, 4); got == mask || got.Rect.Dx() != 4 {
		t.Errorf("scratchGray() at a new size = %v, want a fresh 4x4 mask", got.Rect)
	}
}
