// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for @oxy: annotations, replaces them with injected snippets or generated
// WGSL declarations, and collects a declarations list that the renderer uses to bind
// pass surfaces, samplers, and the parameter uniform by role instead of by variable name.
//
// The pre-processor maintains two registries:
//   - snippetRegistry: maps AnnotationArg keys to embedded WGSL snippets and, for struct
//     snippets, their resolved type names. Used by @oxy:include (to inject the source) and
//     @oxy:group (to resolve the WGSL type name in the generated declaration).
//   - addressSpaceRegistry: maps address space argument keys to WGSL var<> syntax strings.
package shader

import (
	"embed"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-ao/engine/renderer/material"
)

//go:embed assets/include/*.wgsl
var includeAssets embed.FS

// registryEntry pairs a WGSL snippet (embedded from a .wgsl asset file) with the WGSL type name
// used in generated @group/@binding declarations. Type is empty for function-only snippets.
type registryEntry struct {
	// Source is the raw WGSL text injected by @oxy:include.
	Source string

	// Type is the WGSL type name emitted in @oxy:group declarations (e.g. "ObscuranceParams").
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// snippetRegistry maps snippet argument keys to their embedded WGSL source and type name.
	snippetRegistry map[AnnotationArg]registryEntry

	// addressSpaceRegistry maps address space argument keys to WGSL var<> syntax strings.
	addressSpaceRegistry map[AnnotationArg]string

	// declarations accumulates annotations of type AnnotationTypeBindingGroup and
	// AnnotationTypeProvider during a Process call. Reset at the start of each Process invocation.
	declarations []Annotation
}

// PreProcessor processes raw WGSL shader source code containing @oxy: annotations,
// replacing them with injected snippets or generated declarations while collecting
// a declarations list for downstream resource wiring by the renderer.
type PreProcessor interface {
	// Process takes raw WGSL shader source code and pre-processes it by replacing
	// @oxy: annotations with their corresponding WGSL output. @oxy:include annotations
	// are replaced with the registered snippet, each snippet at most once per source.
	// @oxy:group annotations are replaced with generated @group/@binding variable declarations.
	// @oxy:provider annotations produce no WGSL output but are recorded in the declarations list.
	//
	// The declarations list is reset at the start of each call and can be retrieved
	// via Declarations() after Process returns.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//
	// Returns:
	//   - string: the processed WGSL shader source code with annotations replaced
	//   - error: an error if any annotation is malformed, references an unknown snippet, or
	//     reuses a group/binding pair
	Process(source string) (string, error)

	// Declarations returns the list of AnnotationTypeBindingGroup and AnnotationTypeProvider
	// annotations collected during the most recent call to Process, in source-order.
	// Returns nil if Process has not been called.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with all registered snippets and address space
// mappings pre-populated.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		snippetRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgParams:     {Source: material.GPUObscuranceParamsSource, Type: "ObscuranceParams"},
			annotationArgFullscreen: {Source: mustInclude("fullscreen.wgsl"), Type: "FullscreenOutput"},
			annotationArgGeometry:   {Source: mustInclude("geometry.wgsl")},
			annotationArgOcclusion:  {Source: mustInclude("occlusion.wgsl")},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgUniform: "var<uniform>",
		},
	}
}

func mustInclude(name string) string {
	data, err := includeAssets.ReadFile("assets/include/" + name)
	if err != nil {
		panic(fmt.Sprintf("shader: missing embedded include %q: %v", name, err))
	}
	return string(data)
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	included := make(map[AnnotationArg]bool)
	bound := make(map[[2]int]int)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		if a.Group != nil {
			key := [2]int{*a.Group, *a.Binding}
			if prev, ok := bound[key]; ok {
				return "", fmt.Errorf("line %d: @group(%d) @binding(%d) already annotated on line %d", i+1, key[0], key[1], prev)
			}
			bound[key] = i + 1
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.snippetRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
			}
			if included[a.Args[0]] {
				continue
			}
			included[a.Args[0]] = true
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			entry := p.snippetRegistry[a.Args[2]]
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, a.Args[1], entry.Type))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
