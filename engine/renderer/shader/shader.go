package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies which render stage a shader serves.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for the fullscreen triangle of every pass.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used in pair with a vertex shader.
	ShaderTypeFragment
)

// String returns the stage name of the shader type.
func (t ShaderType) String() string {
	if t == ShaderTypeFragment {
		return "fragment"
	}
	return "vertex"
}

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and resource binding.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	fragmentTargets            int
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation
}

// Shader defines the interface for a loaded and parsed WGSL shader. It exposes the shader's
// unique key, processed source code, entry point, bind group layout descriptors, colour target
// count, and pre-processor declarations needed for pipeline creation and resource binding.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader with all annotations expanded
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor for the group, or an empty descriptor if not set
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors.
	// These are the CPU-side descriptors extracted from the shader source which can be
	// used by the renderer to create the actual wgpu.BindGroupLayout GPU objects.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name associated with the group and binding, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "fs_main")
	EntryPoint() string

	// FragmentTargets returns the number of colour targets the fragment entry point writes.
	// Returns 0 for vertex shaders.
	//
	// Returns:
	//   - int: the colour target count
	FragmentTargets() int

	// Module returns the wgpu.ShaderModuleDescriptor for this shader.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the type of the shader (vertex or fragment).
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// Declarations returns the group and provider annotations parsed from the shader source.
	// The renderer resolves every binding of a draw through these.
	//
	// Returns:
	//   - []Annotation: the binding annotations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader creates a new Shader from raw WGSL source and panics if the source cannot be processed.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the render stage of the shader
//   - source: the raw WGSL source, which may contain @oxy: annotations
//
// Returns:
//   - Shader: the parsed shader
func NewShader(key string, shaderType ShaderType, source string) Shader {
	s, err := parseShader(key, shaderType, source)
	if err != nil {
		panic(fmt.Sprintf("shader: %v", err))
	}
	return s
}

// parseShader runs the pre-processor over source and extracts the entry point, bind group
// layouts, and colour target count.
func parseShader(key string, shaderType ShaderType, source string) (*shader, error) {
	if source == "" {
		return nil, fmt.Errorf("%s has no source", key)
	}
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("failed to pre-process %s: %w", key, err)
	}

	s := &shader{
		key:          key,
		source:       processed,
		shaderType:   shaderType,
		entryPoint:   parseEntryPoint(processed, shaderType),
		declarations: append([]Annotation(nil), pp.Declarations()...),
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: processed,
			},
		},
	}
	if s.entryPoint == "" {
		return nil, fmt.Errorf("%s has no %s entry point", key, shaderType)
	}

	visibility := wgpu.ShaderStageVertex
	if shaderType == ShaderTypeFragment {
		visibility = wgpu.ShaderStageFragment
		s.fragmentTargets = parseFragmentTargets(processed)
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames, err = parseBindGroupLayouts(processed, visibility)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	for _, d := range s.declarations {
		if s.BindGroupVarName(*d.Group, *d.Binding) == "" {
			return nil, fmt.Errorf("%s: line %d annotates @group(%d) @binding(%d) but nothing is declared there", key, d.Line, *d.Group, *d.Binding)
		}
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) FragmentTargets() int {
	return s.fragmentTargets
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
