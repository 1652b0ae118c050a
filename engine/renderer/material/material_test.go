package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
)

var testProgram = obscurance.Program{ID: 1, Name: obscurance.ProgramName}

func TestNewMaterialDefaults(t *testing.T) {
	m := NewMaterial(WithProgram(testProgram))
	if m.Name() != obscurance.ProgramName {
		t.Errorf("Name() = %q, want %q", m.Name(), obscurance.ProgramName)
	}
	if _, ok := m.Parameters(); ok {
		t.Error("Parameters() ok = true before any push")
	}
	if m.PipelineKey("estimate") != "" {
		t.Errorf("PipelineKey() = %q before SetPipelineKey", m.PipelineKey("estimate"))
	}
	m.SetPipelineKey("estimate", "ao/estimate")
	if m.PipelineKey("estimate") != "ao/estimate" {
		t.Errorf("PipelineKey() = %q, want ao/estimate", m.PipelineKey("estimate"))
	}
}

func TestNewMaterialWithoutProgramPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewMaterial() without a program did not panic")
		}
	}()
	NewMaterial(WithName("orphan"))
}

func TestUniformTakesCosmeticValuesFromPush(t *testing.T) {
	m := NewMaterial(WithProgram(testProgram), WithFieldOfView(90))
	pass := obscurance.Pass{
		Kind:       obscurance.PassBlurVertical,
		Width:      200,
		Height:     100,
		BlurVector: [2]float32{0, 2},
		Parameters: obscurance.ProgramParameters{
			Intensity:   1,
			Radius:      1,
			SampleCount: 0,
			Downsample:  true,
		},
	}

	u := m.Uniform(pass)
	if u.SampleCount != 1 {
		t.Errorf("SampleCount = %d, want 1", u.SampleCount)
	}
	if u.Downsample != 1 || u.AmbientOnly != 0 {
		t.Errorf("Downsample, AmbientOnly = %d, %d, want 1, 0", u.Downsample, u.AmbientOnly)
	}
	if u.Aspect != 2 || u.TargetSize != [2]float32{200, 100} {
		t.Errorf("Aspect, TargetSize = %v, %v", u.Aspect, u.TargetSize)
	}
	if u.BlurVector != pass.BlurVector {
		t.Errorf("BlurVector = %v, want %v", u.BlurVector, pass.BlurVector)
	}
	if math.Abs(float64(u.TanHalfFOV)-1) > 1e-6 {
		t.Errorf("TanHalfFOV = %v, want 1", u.TanHalfFOV)
	}

	m.SetParameters(obscurance.ProgramParameters{
		Intensity:   3,
		Radius:      0.25,
		Estimator:   obscurance.EstimatorDistanceBased,
		SampleCount: 12,
		Downsample:  false,
	})
	u = m.Uniform(pass)
	if u.Intensity != 3 || u.Radius != 0.25 || u.SampleCount != 12 || u.Estimator != 1 {
		t.Errorf("Uniform() after push = %+v", u)
	}
	if u.Downsample != 1 {
		t.Error("Uniform() took the structural downsample flag from the push")
	}
}

func TestWithFieldOfViewIgnoresInvalid(t *testing.T) {
	want := NewMaterial(WithProgram(testProgram)).Uniform(obscurance.Pass{Width: 1, Height: 1}).TanHalfFOV
	for _, fov := range []float32{0, -10, 180, 270} {
		got := NewMaterial(WithProgram(testProgram), WithFieldOfView(fov)).Uniform(obscurance.Pass{Width: 1, Height: 1}).TanHalfFOV
		if got != want {
			t.Errorf("WithFieldOfView(%v) TanHalfFOV = %v, want default %v", fov, got, want)
		}
	}
}

func TestGPUObscuranceParamsLayout(t *testing.T) {
	g := GPUObscuranceParams{
		Intensity:   1.5,
		SampleCount: 16,
		BlurVector:  [2]float32{0, 2},
		TargetSize:  [2]float32{640, 360},
	}
	if g.Size() != 64 {
		t.Fatalf("Size() = %d, want 64", g.Size())
	}
	buf := g.Marshal()
	if len(buf) != g.Size() {
		t.Fatalf("len(Marshal()) = %d, want %d", len(buf), g.Size())
	}

	f32At := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	if f32At(0) != 1.5 {
		t.Errorf("intensity at 0 = %v", f32At(0))
	}
	if binary.LittleEndian.Uint32(buf[20:]) != 16 {
		t.Errorf("sample_count at 20 = %d", binary.LittleEndian.Uint32(buf[20:]))
	}
	if f32At(36) != 2 {
		t.Errorf("blur_vector.y at 36 = %v", f32At(36))
	}
	if f32At(48) != 640 || f32At(52) != 360 {
		t.Errorf("target_size at 48 = %v, %v", f32At(48), f32At(52))
	}
}
