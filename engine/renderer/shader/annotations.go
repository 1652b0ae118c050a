// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @oxy: that inject shared source, declare the parameter uniform, and name the
// role of every texture and sampler binding so the renderer can bind pass slots to a
// program without looking at variable names.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects a registered WGSL snippet at the annotation site.
	// It produces no declaration.
	//
	// Syntax: //@oxy:include <snippet>
	//
	// Example: //@oxy:include params
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration for a
	// registered struct and records a declaration for it.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 0 uniform params params
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider records which resource fills a hand-written binding. The WGSL
	// declaration stays in the source directly below the annotation.
	//
	// Syntax: //@oxy:provider <group> <binding> <provider_identity> <binding_role>
	//
	// Examples:
	//   //@oxy:provider 0 1 sampler linear
	//   //@oxy:provider 0 2 surface geometry
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed (include, group, or provider).
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = snippet key (e.g. "params")
	//   - group:    [0] = address space, [1] = var name, [2] = struct type key
	//   - provider: [0] = provider identity ("surface" or "sampler"), [1] = binding role
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source where this annotation was found.
	Line int

	// Group is the @group index for group and provider annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil for include annotations.
	Binding *int
}

// Role returns the binding role of a provider annotation, or an empty argument for other types.
//
// Returns:
//   - AnnotationArg: the binding role
func (a Annotation) Role() AnnotationArg {
	if a.Type != AnnotationTypeProvider || len(a.Args) < 2 {
		return ""
	}
	return a.Args[1]
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// Snippet arguments, accepted by include. The struct snippets are also accepted as the type of a
// group annotation.
const (
	// AnnotationArgParams identifies the ObscuranceParams uniform struct.
	// Source: engine/renderer/material/assets/obscurance_params.wgsl
	AnnotationArgParams AnnotationArg = "params"

	// annotationArgFullscreen identifies the FullscreenOutput struct passed from the fullscreen
	// vertex stage to every fragment stage.
	// Source: engine/renderer/shader/assets/include/fullscreen.wgsl
	annotationArgFullscreen AnnotationArg = "fullscreen"

	// annotationArgGeometry identifies the geometry helpers that read normals and linear depth and
	// move between screen and view space.
	// Source: engine/renderer/shader/assets/include/geometry.wgsl
	annotationArgGeometry AnnotationArg = "geometry"

	// annotationArgOcclusion identifies the occlusion estimator shared by the estimate passes.
	// Source: engine/renderer/shader/assets/include/occlusion.wgsl
	annotationArgOcclusion AnnotationArg = "occlusion"
)

// Address space arguments, accepted by group.
const (
	// annotationArgUniform maps to var<uniform> in WGSL.
	annotationArgUniform AnnotationArg = "uniform"
)

// Provider identity arguments, accepted by provider.
const (
	// AnnotationArgSurface binds a host surface, selected by the binding role, as a sampled texture.
	AnnotationArgSurface AnnotationArg = "surface"

	// AnnotationArgSampler binds one of the renderer's samplers, selected by the binding role.
	AnnotationArgSampler AnnotationArg = "sampler"
)

// Binding role arguments, accepted as the fourth provider argument.
const (
	// AnnotationArgColor is the colour input of the pass.
	AnnotationArgColor AnnotationArg = "color"

	// AnnotationArgGeometry is the depth/normal surface or G-buffer.
	AnnotationArgGeometry AnnotationArg = "geometry"

	// AnnotationArgOcclusion is the occlusion mask read by the pass.
	AnnotationArgOcclusion AnnotationArg = "occlusion"

	// AnnotationArgLinear is a bilinear, edge-clamped sampler.
	AnnotationArgLinear AnnotationArg = "linear"
)

var validSnippets = []AnnotationArg{
	AnnotationArgParams,
	annotationArgFullscreen,
	annotationArgGeometry,
	annotationArgOcclusion,
}

var validStructTypes = []AnnotationArg{
	AnnotationArgParams,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgUniform,
}

// validBindingRoles lists the roles accepted for each provider identity.
var validBindingRoles = map[AnnotationArg][]AnnotationArg{
	AnnotationArgSurface: {AnnotationArgColor, AnnotationArgGeometry, AnnotationArgOcclusion},
	AnnotationArgSampler: {AnnotationArgLinear},
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validSnippets, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown snippet %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires exactly five arguments (group, binding, address space, var name, struct type)", lineNum)
		}
		group, binding, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[5])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	case string(AnnotationTypeProvider):
		if len(args) != 5 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires four arguments (group, binding, provider identity, binding role)", lineNum)
		}
		group, binding, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		roles, ok := validBindingRoles[AnnotationArg(args[3])]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @oxy provider annotation", lineNum, args[3])
		}
		if !slices.Contains(roles, AnnotationArg(args[4])) {
			return nil, fmt.Errorf("line %d: unknown binding role %q for provider %q", lineNum, args[4], args[3])
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}

func parseGroupBinding(groupArg, bindingArg string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(groupArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q: %w", lineNum, groupArg, err)
	}
	binding, err := strconv.Atoi(bindingArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q: %w", lineNum, bindingArg, err)
	}
	return group, binding, nil
}
