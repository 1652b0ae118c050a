package shader

import "io/fs"

// LibraryBuilderOption is a function that configures a library instance during construction.
type LibraryBuilderOption func(*library)

// WithFS is an option builder that replaces the embedded assets with another file system.
// The file system holds fullscreen.wgsl, present.wgsl, and one directory per program under programs/.
//
// Parameters:
//   - fsys: the file system to read programs from
//
// Returns:
//   - LibraryBuilderOption: a function that applies the file system option to a library
func WithFS(fsys fs.FS) LibraryBuilderOption {
	return func(l *library) {
		l.fsys = fsys
	}
}
