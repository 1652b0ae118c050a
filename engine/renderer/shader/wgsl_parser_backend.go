package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslPrimitiveLayoutMap maps the WGSL scalar and vector types a uniform block may hold to their
// byte size and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},
}

func init() {
	for _, scalar := range []struct {
		name, suffix string
	}{{"f32", "f"}, {"i32", "i"}, {"u32", "u"}} {
		for n, layout := range map[int]wgslTypeLayout{2: {8, 8}, 3: {12, 16}, 4: {16, 16}} {
			wgslPrimitiveLayoutMap[fmt.Sprintf("vec%d<%s>", n, scalar.name)] = layout
			wgslPrimitiveLayoutMap[fmt.Sprintf("vec%d%s", n, scalar.suffix)] = layout
		}
	}
	wgslPrimitiveLayoutMap["mat4x4<f32>"] = wgslTypeLayout{64, 16}
	wgslPrimitiveLayoutMap["mat4x4f"] = wgslTypeLayout{64, 16}
}

// roundUpAlign rounds value up to the next multiple of alignment, which must be a power of two.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout resolves a WGSL type name to its size and alignment from the primitive table,
// previously laid out structs, or a fixed-size array<T, N>. Uniform blocks cannot hold
// runtime-sized arrays, so those are reported unresolved.
//
// Parameters:
//   - typeName: the WGSL type name, e.g. "f32", "ObscuranceParams", "array<vec4<f32>, 4>"
//   - knownTypes: already laid out struct types
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false for unknown types and runtime-sized arrays
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := knownTypes[typeName]; ok {
		return layout, true
	}

	base, params := splitTypeParams(typeName)
	if base != "array" {
		return wgslTypeLayout{}, false
	}
	elemType, countStr, sized := strings.Cut(params, ",")
	if !sized {
		return wgslTypeLayout{}, false
	}
	elem, ok := resolveTypeLayout(strings.TrimSpace(elemType), knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	count, err := strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	// uniform array elements are aligned to 16 bytes
	align := roundUpAlign(16, elem.align)
	return wgslTypeLayout{count * roundUpAlign(align, elem.size), align}, true
}

// computeStructLayout places each field at its next aligned offset and rounds the total up to the
// largest field alignment.
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)
	for _, field := range ps.fields {
		layout, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(layout.align, offset) + layout.size
		maxAlign = max(maxAlign, layout.align)
	}
	return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// computeStructSizes lays out every parsed struct, repeating passes until structs that embed
// other structs resolve. Structs that never resolve are left out of the result.
//
// Parameters:
//   - structs: all parsed struct blocks from the WGSL source
//
// Returns:
//   - map[string]wgslTypeLayout: struct name to layout
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)
	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if layout, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}

// classifyResource builds the layout entry for one declaration. A fullscreen pass reads uniform
// blocks, samplers and 2D textures; anything else is rejected.
//
// Parameters:
//   - binding: the binding index from @binding(N)
//   - visibility: the shader stage visibility flag
//   - addressSpace: the var<...> qualifier, empty for handle types
//   - typeName: the WGSL type string, e.g. "ObscuranceParams", "texture_2d<f32>", "sampler"
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the populated layout entry
//   - error: error if the resource kind cannot be bound by a fullscreen pass
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) (wgpu.BindGroupLayoutEntry, error) {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	if addressSpace != "" {
		if addressSpace != "uniform" {
			return entry, fmt.Errorf("unsupported address space %q", addressSpace)
		}
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry, nil
	}

	switch typeName {
	case "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		return entry, nil
	case "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
		return entry, nil
	}

	base, param := splitTypeParams(typeName)
	dim, ok := wgslTextureDimMap[base]
	if !ok {
		return entry, fmt.Errorf("unsupported resource type %q", typeName)
	}
	entry.Texture.ViewDimension = dim
	if base == "texture_depth_2d" {
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		return entry, nil
	}
	sampleType, ok := wgslSampleTypeMap[param]
	if !ok {
		return entry, fmt.Errorf("unsupported texel type %q", param)
	}
	entry.Texture.SampleType = sampleType
	return entry, nil
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32"). Types without angle
// brackets return an empty parameter string.
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// stripComments removes line comments and nested block comments from WGSL source.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch source[i : i+2] {
			case "/*":
				depth++
				i++
				continue
			case "*/":
				if depth > 0 {
					depth--
					i++
					continue
				}
			case "//":
				if depth == 0 {
					for i < len(source) && source[i] != '\n' {
						i++
					}
					if i < len(source) {
						sb.WriteByte('\n')
					}
					continue
				}
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// splitAtTopLevelCommas splits a struct body at commas outside angle brackets, so
// array<T, N> stays one field.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
