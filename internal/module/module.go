// Package module implements Raccoon's module registry: the cache and
// loader that backs `import`. Namespaces come from three sources: native
// registrars (the "std:" prefix), a virtual runtime-introspection
// namespace, and user scripts loaded through a FileLoader supplied by the
// evaluator once it exists (internal/evaluator can't be imported here
// without creating an import cycle, so the registry depends on that
// narrow callback instead of the evaluator package directly).
package module

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/raccoon-lang/raccoon/internal/value"
)

// Namespace is what `import` binds: a resolved module's exported names.
// Exports is typed `any` rather than value.Value so this package can be
// imported by code that doesn't otherwise depend on internal/value's
// concrete types (the evaluator type-asserts on the way out).
type Namespace struct {
	Name    string
	ID      string // uuid, distinguishes reloaded/dynamically-built namespaces in stack traces
	Exports map[string]any
}

// Registrar lazily builds a native namespace. It only runs the first time
// its namespace is imported, not at registry construction, so a program
// that never imports "std:crypto" never pays for wiring it.
type Registrar func() (*Namespace, error)

// FileLoader evaluates a user module (a script referenced by a relative
// or absolute import path) and returns its exported bindings. Set via
// SetFileLoader once the evaluator that will run it exists.
type FileLoader func(path string) (map[string]value.Value, error)

type Registry struct {
	mu         sync.Mutex
	cache      map[string]*Namespace
	registrars map[string]Registrar
	loading    map[string]bool
	loadStack  []string // DFS path of the in-progress import chain, for cycle messages
	group      singleflight.Group
	fileLoader FileLoader
}

func NewRegistry() *Registry {
	r := &Registry{
		cache:      make(map[string]*Namespace),
		registrars: make(map[string]Registrar),
		loading:    make(map[string]bool),
	}
	r.Register("std:runtime", r.buildRuntimeNamespace)
	registerMath(r)
	registerStringLib(r)
	return r
}

// Register installs a lazy native namespace. Callers outside this package
// (internal/stdlib) use this to wire up ecosystem-backed namespaces
// without internal/module needing to import them back.
func (r *Registry) Register(name string, build Registrar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrars[name] = build
}

// SetFileLoader wires the evaluator's script loader in after construction,
// breaking what would otherwise be an evaluator<->module import cycle.
func (r *Registry) SetFileLoader(loader FileLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fileLoader = loader
}

// Load resolves name to a Namespace, from cache, a registered native
// registrar, or the file loader, in that order. Concurrent Loads of the
// same name (possible once async/await lets more than one import resolve
// in the same scheduler drain) collapse onto a single underlying build via
// singleflight; a name still being built further up the same call chain is
// reported as an import cycle rather than deadlocking.
func (r *Registry) Load(name string) (*Namespace, error) {
	r.mu.Lock()
	if ns, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return ns, nil
	}
	if r.loading[name] {
		cycle := append(append([]string{}, r.loadStack...), name)
		r.mu.Unlock()
		return nil, fmt.Errorf("import cycle detected: %s", strings.Join(cycle, " -> "))
	}
	r.loading[name] = true
	r.loadStack = append(r.loadStack, name)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.loading, name)
		r.loadStack = r.loadStack[:len(r.loadStack)-1]
		r.mu.Unlock()
	}()

	v, err, _ := r.group.Do(name, func() (any, error) {
		return r.build(name)
	})
	if err != nil {
		return nil, err
	}
	ns := v.(*Namespace)

	r.mu.Lock()
	r.cache[name] = ns
	r.mu.Unlock()
	return ns, nil
}

func (r *Registry) build(name string) (*Namespace, error) {
	r.mu.Lock()
	registrar, isNative := r.registrars[name]
	loader := r.fileLoader
	r.mu.Unlock()

	if isNative {
		ns, err := registrar()
		if err != nil {
			return nil, fmt.Errorf("loading module '%s': %w", name, err)
		}
		if ns.ID == "" {
			ns.ID = uuid.NewString()
		}
		return ns, nil
	}

	if loader == nil {
		return nil, fmt.Errorf("module '%s' not found", name)
	}
	exports, err := loader(name)
	if err != nil {
		return nil, fmt.Errorf("loading module '%s': %w", name, err)
	}
	out := make(map[string]any, len(exports))
	for k, v := range exports {
		out[k] = v
	}
	return &Namespace{Name: name, ID: uuid.NewString(), Exports: out}, nil
}

// Invalidate drops a cached namespace, forcing the next Load to rebuild
// it. Used by a REPL-style host reloading a user module after an edit; no
// Raccoon surface triggers this on its own.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, name)
}

func (r *Registry) buildRuntimeNamespace() (*Namespace, error) {
	return &Namespace{
		Name: "std:runtime",
		Exports: map[string]any{
			"goVersion": value.String(runtime.Version()),
			"os":        value.String(runtime.GOOS),
			"arch":      value.String(runtime.GOARCH),
			"numCPU":    value.Int(runtime.NumCPU()),
		},
	}, nil
}
