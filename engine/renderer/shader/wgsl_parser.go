package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslTextureDimMap maps the sampled texture base names a fullscreen pass may read to their view dimension
var wgslTextureDimMap = map[string]wgpu.TextureViewDimension{
	"texture_2d":       wgpu.TextureViewDimension2D,
	"texture_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_depth_2d": wgpu.TextureViewDimension2D,
}

// wgslSampleTypeMap maps WGSL scalar type parameters to their wgpu texture sample type
var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var (
	// structBlockRegex captures the name and body of a struct
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex captures N of @location(N)
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// fieldRegex captures name and type of a struct member after any attributes; the type may be array<T, N>
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// fragmentReturnRegex captures an optional direct @location(N) and the return type of a fragment entry point
	fragmentReturnRegex = regexp.MustCompile(`(?s)@fragment\s+fn\s+\w+\s*\(.*?\)\s*->\s*(@location\(\d+\)\s*)?(\w+(?:<[^>]*>)?)`)

	// bindGroupDeclRegex captures group, binding, address space, name and type of a resource:
	//   @group(0) @binding(0) var<uniform> params: AoParams;
	//   @group(0) @binding(2) var geometry: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseBindGroupLayouts extracts all @group(N) @binding(M) resource declarations from WGSL
// source and returns them as wgpu.BindGroupLayoutDescriptor values grouped by group index.
// Each descriptor's entries are sorted by binding index and carry the given stage visibility.
// Uniform buffers get a MinBindingSize from the bound struct's layout.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - visibility: the shader stage visibility flag to set on each entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index
//   - error: error if a declaration is not something a fullscreen pass can bind
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string, error) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)
	cleaned := stripComments(source)
	structSizes := computeStructSizes(parseStructBlocks(cleaned))

	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		entry, err := classifyResource(uint32(binding), visibility, addressSpace, typeName)
		if err != nil {
			return nil, nil, fmt.Errorf("%s at @group(%d) @binding(%d): %w", varName, group, binding, err)
		}
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			layout, ok := resolveTypeLayout(typeName, structSizes)
			if !ok {
				return nil, nil, fmt.Errorf("%s: cannot lay out uniform type %s", varName, typeName)
			}
			entry.Buffer.MinBindingSize = layout.size
		}

		groups[group] = append(groups[group], entry)
		if varNames[group] == nil {
			varNames[group] = make(map[int]string)
		}
		varNames[group][binding] = varName
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result, varNames, nil
}

// parseFragmentTargets counts the colour targets written by the fragment entry point: one for a
// directly located return value, otherwise the @location fields of the returned struct.
// Returns 0 when the source has no fragment entry point.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - int: the number of colour targets
func parseFragmentTargets(source string) int {
	cleaned := stripComments(source)
	match := fragmentReturnRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return 0
	}
	if match[1] != "" {
		return 1
	}
	for _, ps := range parseStructBlocks(cleaned) {
		if ps.name != match[2] {
			continue
		}
		n := 0
		for _, f := range ps.fields {
			if f.location >= 0 {
				n++
			}
		}
		return n
	}
	return 0
}

// entryRegexes finds the entry point name of each shader stage.
var entryRegexes = map[ShaderType]*regexp.Regexp{
	ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
	ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
}

// parseEntryPoint returns the name of the first function annotated for shaderType, or "".
func parseEntryPoint(source string, shaderType ShaderType) string {
	re, ok := entryRegexes[shaderType]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(stripComments(source)); m != nil {
		return m[1]
	}
	return ""
}

// parseStructBlocks parses every struct of comment-free WGSL. Fields without a @location get -1.
func parseStructBlocks(source string) []parsedStruct {
	var structs []parsedStruct
	for _, m := range structBlockRegex.FindAllStringSubmatch(source, -1) {
		ps := parsedStruct{name: m[1]}
		for _, decl := range splitAtTopLevelCommas(m[2]) {
			if f, ok := parseField(strings.TrimSpace(decl)); ok {
				ps.fields = append(ps.fields, f)
			}
		}
		structs = append(structs, ps)
	}
	return structs
}

// parseField parses one "@location(N) name: type" member.
func parseField(decl string) (parsedField, bool) {
	fm := fieldRegex.FindStringSubmatch(decl)
	if decl == "" || fm == nil {
		return parsedField{}, false
	}
	f := parsedField{name: fm[1], typeName: strings.TrimSpace(fm[2]), location: -1}
	if lm := locationRegex.FindStringSubmatch(decl); lm != nil {
		f.location, _ = strconv.Atoi(lm[1])
	}
	return f, true
}
