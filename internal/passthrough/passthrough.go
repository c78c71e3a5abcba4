// Package passthrough forwards calls to a system library loaded from a
// configurable path, standing in for it when it cannot be loaded.
package passthrough

import (
	"os"
	"strings"
	"sync"

	"github.com/apex/log"

	"github.com/k2io/wrench/internal/config"
	"github.com/k2io/wrench/internal/logging"
)

// ErrorDeviceNotConnected is returned by calls to procedures the library
// does not provide.
const ErrorDeviceNotConnected = 1167

// Module is a loaded library.
type Module interface {
	Proc(name string) (uintptr, error)
	Ordinal(n uint16) (uintptr, error)
}

// Loader loads libraries by path.
type Loader interface {
	Load(path string) (Module, error)
}

// Caller calls native code.
type Caller func(addr uintptr, args ...uintptr) uintptr

// Import names a procedure. Procedures without exported names are imported
// by ordinal.
type Import struct {
	Name    string
	Ordinal uint16
}

// Library resolves its imports on first use. A failed load is not retried.
type Library struct {
	path    string
	imports []Import
	loader  Loader
	call    Caller
	log     log.Interface

	once   sync.Once
	loaded bool
	procs  map[string]uintptr
}

// New returns a library at path forwarding imports.
func New(path string, imports []Import, loader Loader, call Caller, l log.Interface) *Library {
	return &Library{
		path:    path,
		imports: imports,
		loader:  loader,
		call:    call,
		log:     l,
	}
}

// ConfiguredPath reads the library path from key, falling back to def, and
// expands environment references in it.
func ConfiguredPath(cfg *config.Config, def string, key ...string) string {
	return Expand(cfg.GetDefault(def, key...), os.LookupEnv)
}

// Path returns the path the library is loaded from.
func (lib *Library) Path() string {
	return lib.path
}

// Loaded reports whether a load succeeded.
func (lib *Library) Loaded() bool {
	lib.once.Do(lib.load)
	return lib.loaded
}

func (lib *Library) load() {
	l := logging.Func(lib.log, "Load")
	lib.procs = make(map[string]uintptr, len(lib.imports))
	if lib.path == "" {
		l.Errorf("No library path")
		return
	}
	mod, err := lib.loader.Load(lib.path)
	if err != nil {
		l.Errorf("Could not load %s: %v", lib.path, err)
		return
	}
	lib.loaded = true

	for _, imp := range lib.imports {
		var addr uintptr
		if imp.Ordinal != 0 {
			addr, err = mod.Ordinal(imp.Ordinal)
		} else {
			addr, err = mod.Proc(imp.Name)
		}
		if err != nil {
			l.Warnf("%s not found in %s", imp.Name, lib.path)
			continue
		}
		lib.procs[imp.Name] = addr
	}
}

// Proc returns the address of an import, or zero.
func (lib *Library) Proc(name string) uintptr {
	lib.once.Do(lib.load)
	return lib.procs[name]
}

// Call forwards to an import. Missing imports answer
// ErrorDeviceNotConnected.
func (lib *Library) Call(name string, args ...uintptr) uintptr {
	addr := lib.Proc(name)
	if addr == 0 {
		return ErrorDeviceNotConnected
	}
	return lib.call(addr, args...)
}

// Expand replaces %NAME% references found by lookup. Unknown references are
// kept as written.
func Expand(s string, lookup func(string) (string, bool)) string {
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '%')
		if i < 0 {
			break
		}
		j := strings.IndexByte(s[i+1:], '%')
		if j < 0 {
			break
		}
		end := i + 1 + j
		b.WriteString(s[:i])
		if v, ok := lookup(s[i+1 : end]); ok && j > 0 {
			b.WriteString(v)
		} else {
			b.WriteString(s[i : end+1])
		}
		s = s[end+1:]
	}
	b.WriteString(s)
	return b.String()
}
