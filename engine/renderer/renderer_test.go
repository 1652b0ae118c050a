package renderer

import (
	"image"
	"testing"

	"github.com/Carmen-Shannon/oxy-ao/engine/obscurance"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/mrjoshuak/go-openexr/exr"
)

func TestVariantFor(t *testing.T) {
	tests := []struct {
		name string
		pass obscurance.Pass
		want string
	}{
		{"estimate", obscurance.Pass{Kind: obscurance.PassEstimate}, variantEstimate},
		{"blur horizontal", obscurance.Pass{Kind: obscurance.PassBlurHorizontal}, variantBlur},
		{"blur vertical", obscurance.Pass{Kind: obscurance.PassBlurVertical}, variantBlur},
		{"combine", obscurance.Pass{Kind: obscurance.PassCombine}, variantCombine},
		{"combine ambient", obscurance.Pass{Kind: obscurance.PassCombine, Parameters: obscurance.ProgramParameters{AmbientOnly: true}}, variantCombineAmbient},
		{"fused", obscurance.Pass{Kind: obscurance.PassEstimateCombine}, variantEstimateCombine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := variantFor(tt.pass)
			if err != nil || got != tt.want {
				t.Errorf("variantFor() = %q, %v, want %q", got, err, tt.want)
			}
		})
	}

	if _, err := variantFor(obscurance.Pass{Kind: obscurance.PassCopy}); err == nil {
		t.Error("variantFor(copy) error = nil")
	}
}

func TestEveryVariantBuildsAPipeline(t *testing.T) {
	lib := shader.NewLibrary()
	for _, variant := range programVariants {
		t.Run(variant, func(t *testing.T) {
			vs, fs, err := lib.Variant(obscurance.ProgramName, variant)
			if err != nil {
				t.Fatalf("Variant() error = %v", err)
			}
			opts := append([]pipeline.PipelineBuilderOption{
				pipeline.WithVertexShader(vs),
				pipeline.WithFragmentShader(fs),
			}, variantTargets(variant)...)
			p := pipeline.NewPipeline(pipelineKey(obscurance.ProgramName, variant), opts...)

			want := maskFormat
			if variant != variantEstimate && variant != variantBlur {
				want = colorFormat
			}
			for i, target := range p.Targets() {
				if target.Format != want {
					t.Errorf("Targets()[%d].Format = %v, want %v", i, target.Format, want)
				}
			}
		})
	}
}

func TestEveryDeclarationResolves(t *testing.T) {
	lib := shader.NewLibrary()
	passes := map[string]obscurance.Pass{
		variantEstimate:        {Kind: obscurance.PassEstimate, Inputs: []obscurance.Slot{obscurance.SlotGeometry}},
		variantBlur:            {Kind: obscurance.PassBlurVertical, Inputs: []obscurance.Slot{obscurance.SlotBlurScratch}},
		variantCombine:         {Kind: obscurance.PassCombine, Inputs: []obscurance.Slot{obscurance.SlotSource, obscurance.SlotMask}},
		variantCombineAmbient:  {Kind: obscurance.PassCombine, Inputs: []obscurance.Slot{obscurance.SlotSource, obscurance.SlotMask}},
		variantEstimateCombine: {Kind: obscurance.PassEstimateCombine, Inputs: []obscurance.Slot{obscurance.SlotSource, obscurance.SlotGeometry}},
	}
	for variant, pass := range passes {
		_, fs, err := lib.Variant(obscurance.ProgramName, variant)
		if err != nil {
			t.Fatalf("Variant(%s) error = %v", variant, err)
		}
		for _, decl := range fs.Declarations() {
			if decl.Type != shader.AnnotationTypeProvider || decl.Args[0] != shader.AnnotationArgSurface {
				continue
			}
			if _, err := inputSlot(decl.Role(), pass); err != nil {
				t.Errorf("%s: inputSlot(%s) error = %v", variant, decl.Role(), err)
			}
		}
	}
}

func TestInputSlotOcclusionFollowsPassInput(t *testing.T) {
	horizontal := obscurance.Pass{Kind: obscurance.PassBlurHorizontal, Inputs: []obscurance.Slot{obscurance.SlotMask}}
	if got, _ := inputSlot(shader.AnnotationArgOcclusion, horizontal); got != obscurance.SlotMask {
		t.Errorf("inputSlot(horizontal) = %v, want %v", got, obscurance.SlotMask)
	}
	vertical := obscurance.Pass{Kind: obscurance.PassBlurVertical, Inputs: []obscurance.Slot{obscurance.SlotBlurScratch}}
	if got, _ := inputSlot(shader.AnnotationArgOcclusion, vertical); got != obscurance.SlotBlurScratch {
		t.Errorf("inputSlot(vertical) = %v, want %v", got, obscurance.SlotBlurScratch)
	}
	estimate := obscurance.Pass{Kind: obscurance.PassEstimate, Inputs: []obscurance.Slot{obscurance.SlotGeometry}}
	if _, err := inputSlot(shader.AnnotationArgOcclusion, estimate); err == nil {
		t.Error("inputSlot() without a scratch input error = nil")
	}
}

func TestTextureFormat(t *testing.T) {
	if f, n, err := textureFormat(obscurance.SurfaceFormatColor); err != nil || f != colorFormat || n != 8 {
		t.Errorf("textureFormat(color) = %v, %d, %v", f, n, err)
	}
	if f, n, err := textureFormat(obscurance.SurfaceFormatR8Linear); err != nil || f != maskFormat || n != 1 {
		t.Errorf("textureFormat(r8) = %v, %d, %v", f, n, err)
	}
	if _, _, err := textureFormat(obscurance.SurfaceFormat(9)); err == nil {
		t.Error("textureFormat(9) error = nil")
	}
}

func TestColorTexelsRoundTrip(t *testing.T) {
	img := exr.NewRGBAImage(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetRGBA(x, y, float32(x)*0.5, float32(y)*0.25, 2, 1)
		}
	}
	data := encodeColor(img)
	if len(data) != 3*2*colorBytesPerPixel {
		t.Fatalf("len(encodeColor()) = %d, want %d", len(data), 3*2*colorBytesPerPixel)
	}
	got, err := decodeColor(data, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	// these values are exact in half precision
	for i := range img.Pix {
		if got.Pix[i] != img.Pix[i] {
			t.Fatalf("Pix[%d] = %v, want %v", i, got.Pix[i], img.Pix[i])
		}
	}

	if _, err := decodeColor(data[:4], 3, 2); err == nil {
		t.Error("decodeColor() of a short buffer error = nil")
	}
}

func TestDecodeMask(t *testing.T) {
	m, err := decodeMask([]byte{0, 64, 128, 255}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.GrayAt(1, 1).Y; got != 255 {
		t.Errorf("GrayAt(1, 1) = %d, want 255", got)
	}
	if _, err := decodeMask([]byte{0}, 2, 2); err == nil {
		t.Error("decodeMask() of a short buffer error = nil")
	}
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vertex := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageVertex}}},
	}
	fragment := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 2, Visibility: wgpu.ShaderStageFragment},
			{Binding: 0, Visibility: wgpu.ShaderStageFragment},
		}},
		1: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageFragment}}},
	}

	merged := mergeBindGroupLayouts(vertex, fragment)
	if len(merged) != 2 {
		t.Fatalf("len(merged) = %d, want 2", len(merged))
	}
	entries := merged[0].Entries
	if len(entries) != 2 || entries[0].Binding != 0 || entries[1].Binding != 2 {
		t.Fatalf("merged[0].Entries = %+v", entries)
	}
	if entries[0].Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Errorf("merged visibility = %v, want vertex|fragment", entries[0].Visibility)
	}
}

func TestCommandListRecording(t *testing.T) {
	r := &renderer{}
	cl := r.NewCommandList("ao")
	if cl.Name() != "ao" {
		t.Errorf("Name() = %q, want ao", cl.Name())
	}
	cl.AcquireTemporary(obscurance.SlotMask, obscurance.SurfaceDescriptor{Width: 4, Height: 4})
	cl.Draw(obscurance.Program{ID: 1}, obscurance.Pass{Kind: obscurance.PassEstimate})
	cl.Copy(obscurance.SlotSource, obscurance.SlotDestination)
	cl.ReleaseTemporary(obscurance.SlotMask)
	if cl.Len() != 4 {
		t.Errorf("Len() = %d, want 4", cl.Len())
	}

	cl.Release()
	cl.Copy(obscurance.SlotSource, obscurance.SlotDestination)
	if cl.Len() != 0 {
		t.Errorf("Len() after Release = %d, want 0", cl.Len())
	}
}
