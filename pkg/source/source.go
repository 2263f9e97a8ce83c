package source

import (
	"path/filepath"
	"strings"
)

// File represents a unit of source text tracked by the engine, primarily so
// that error positions and module resolution have something stable to point
// at. The core never reads or parses this content itself (that is the
// compiler's job); it only carries the path around.
type File struct {
	Name    string // display name (e.g. "main.ts", "<eval>")
	Path    string // canonical path used as the module cache key; empty for eval
	Content string
	lines   []string // cached split lines
}

// NewFile creates a source file record for a resolved module.
func NewFile(name, path, content string) *File {
	return &File{Name: name, Path: path, Content: content}
}

// NewEvalFile creates a source record for a dynamic eval() invocation.
func NewEvalFile(content string) *File {
	return &File{Name: "<eval>", Content: content}
}

// Lines returns the source split into lines, cached after first call.
func (f *File) Lines() []string {
	if f.lines == nil {
		f.lines = strings.Split(f.Content, "\n")
	}
	return f.lines
}

// DisplayPath prefers the canonical path, falling back to the display name.
func (f *File) DisplayPath() string {
	if f.Path != "" {
		return f.Path
	}
	return f.Name
}

// IsModule reports whether this source came from a resolved module path
// (as opposed to eval/REPL input).
func (f *File) IsModule() bool {
	return f.Path != ""
}

// FromPath builds a source record from a resolved file path.
func FromPath(path, content string) *File {
	return NewFile(filepath.Base(path), path, content)
}
