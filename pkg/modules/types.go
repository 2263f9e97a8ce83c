// Package modules resolves ES module specifiers to source text and caches
// the resulting module records. It intentionally stops at "bytes in, a
// cached record out": parsing a module's source into bytecode and wiring
// its exports is the compiler's job, out of this core's scope.
package modules

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ModuleState tracks a module record through resolution and evaluation.
type ModuleState int

const (
	StateUnresolved ModuleState = iota
	StateResolved
	StateLoaded
	StateEvaluating
	StateEvaluated
	StateErrored
)

func (s ModuleState) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolved:
		return "resolved"
	case StateLoaded:
		return "loaded"
	case StateEvaluating:
		return "evaluating"
	case StateEvaluated:
		return "evaluated"
	case StateErrored:
		return "errored"
	default:
		return "invalid"
	}
}

// Record is one module's cache entry: its resolved identity, its raw
// source, its evaluation state, and (once evaluated) its exported
// bindings. ExportValues/Namespace are left as `any` here so this package
// never has to import the vm package back — pkg/vm's Realm type-asserts
// them to vm.Value when it populates and reads this record.
type Record struct {
	Specifier    string
	ResolvedPath string
	Source       string
	State        ModuleState
	Err          error

	ExportValues map[string]any
	DefaultValue any
	Namespace    any

	LoadedAt time.Time
}

// ModuleFS is the minimal filesystem surface a FileResolver needs.
type ModuleFS interface {
	fs.FS
	fs.ReadFileFS
}

// osFS adapts the OS filesystem, rooted at a base directory, to ModuleFS.
type osFS struct{ baseDir string }

func (o *osFS) Open(name string) (fs.File, error) {
	return os.Open(filepath.Join(o.baseDir, name))
}
func (o *osFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(o.baseDir, name))
}

// registryState is the shared mutable state behind Registry, split out so
// Registry's exported methods stay small.
type registryState struct {
	mu      sync.RWMutex
	records map[string]*Record
}
