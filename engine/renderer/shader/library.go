package shader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sync"
)

//go:embed assets/fullscreen.wgsl assets/present.wgsl assets/programs
var programAssets embed.FS

const (
	fullscreenFile = "fullscreen.wgsl"
	presentFile    = "present.wgsl"
	programsDir    = "programs"
)

// ErrNotFound is returned when a program or one of its variants is missing from the library.
var ErrNotFound = errors.New("shader: not found")

// library is the implementation of the Library interface.
type library struct {
	mu    *sync.Mutex
	fsys  fs.FS
	cache map[string]Shader
}

// Library is the registry of WGSL programs. Each program is a directory of fragment variants,
// one file per variant, all drawn with the shared fullscreen vertex shader.
type Library interface {
	// Has reports whether a program directory exists.
	//
	// Parameters:
	//   - program: the program name
	//
	// Returns:
	//   - bool: true if the program exists
	Has(program string) bool

	// Programs lists the available program names in lexical order.
	//
	// Returns:
	//   - []string: the program names
	Programs() []string

	// Variant loads and parses one variant of a program. Parsed shaders are cached.
	//
	// Parameters:
	//   - program: the program name
	//   - variant: the variant name (e.g. "estimate")
	//
	// Returns:
	//   - Shader: the fullscreen vertex shader
	//   - Shader: the variant's fragment shader
	//   - error: ErrNotFound if the variant is missing, or a parse error
	Variant(program, variant string) (Shader, Shader, error)

	// Present loads the shaders that draw a colour surface to the window.
	//
	// Returns:
	//   - Shader: the fullscreen vertex shader
	//   - Shader: the present fragment shader
	//   - error: an error if either shader is missing or invalid
	Present() (Shader, Shader, error)
}

var _ Library = &library{}

// NewLibrary creates a Library over the embedded program assets, or over the file system
// given with WithFS.
//
// Parameters:
//   - options: variadic list of LibraryBuilderOption functions to configure the library
//
// Returns:
//   - Library: the new library
func NewLibrary(options ...LibraryBuilderOption) Library {
	l := &library{
		mu:    &sync.Mutex{},
		cache: make(map[string]Shader),
	}
	for _, opt := range options {
		opt(l)
	}
	if l.fsys == nil {
		sub, err := fs.Sub(programAssets, "assets")
		if err != nil {
			panic(fmt.Sprintf("shader: embedded assets: %v", err))
		}
		l.fsys = sub
	}
	return l
}

func (l *library) Has(program string) bool {
	info, err := fs.Stat(l.fsys, path.Join(programsDir, program))
	return err == nil && info.IsDir()
}

func (l *library) Programs() []string {
	entries, err := fs.ReadDir(l.fsys, programsDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

func (l *library) Variant(program, variant string) (Shader, Shader, error) {
	if !l.Has(program) {
		return nil, nil, fmt.Errorf("program %q: %w", program, ErrNotFound)
	}
	return l.pair(path.Join(programsDir, program, variant+".wgsl"))
}

func (l *library) Present() (Shader, Shader, error) {
	return l.pair(presentFile)
}

func (l *library) pair(fragmentPath string) (Shader, Shader, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	vs, err := l.load(fullscreenFile, ShaderTypeVertex)
	if err != nil {
		return nil, nil, err
	}
	frag, err := l.load(fragmentPath, ShaderTypeFragment)
	if err != nil {
		return nil, nil, err
	}
	return vs, frag, nil
}

func (l *library) load(name string, shaderType ShaderType) (Shader, error) {
	if s, ok := l.cache[name]; ok {
		return s, nil
	}
	data, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	s, err := parseShader(name, shaderType, string(data))
	if err != nil {
		return nil, err
	}
	l.cache[name] = s
	return s, nil
}
