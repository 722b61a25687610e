// Package stdlib provides the Ember builtin functions, builtin modules and
// std structs.
package stdlib

import (
	"sort"

	"github.com/emberlang/ember/pkg/evaluator"
)

// Fn represents a builtin function.
type Fn struct {
	Name    string
	Doc     string
	Execute evaluator.BuiltinFunc
}

// Module is a builtin module made available through `import name;`.
type Module struct {
	Name string
	Doc  string
	Load evaluator.ModuleLoader
}

// Entry describes one registered item for listings.
type Entry struct {
	Kind string // "function", "module" or "struct"
	Name string
	Doc  string
}

// Registry holds registered builtins.
type Registry struct {
	fns     map[string]*Fn
	modules map[string]*Module
	structs map[string]*evaluator.StdStruct
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fns:     make(map[string]*Fn),
		modules: make(map[string]*Module),
		structs: make(map[string]*evaluator.StdStruct),
	}
}

// Register adds a builtin function to the registry.
func (r *Registry) Register(fn Fn) {
	r.fns[fn.Name] = &fn
}

// RegisterModule adds a builtin module.
func (r *Registry) RegisterModule(m Module) {
	r.modules[m.Name] = &m
}

// RegisterStruct adds a std struct.
func (r *Registry) RegisterStruct(st *evaluator.StdStruct) {
	r.structs[st.Name] = st
}

// Get retrieves a builtin function by name.
func (r *Registry) Get(name string) *Fn {
	return r.fns[name]
}

// Module retrieves a builtin module by name.
func (r *Registry) Module(name string) *Module {
	return r.modules[name]
}

// Builtins returns the functions in the form the interpreter expects.
func (r *Registry) Builtins() map[string]evaluator.BuiltinFunc {
	out := make(map[string]evaluator.BuiltinFunc, len(r.fns))
	for name, fn := range r.fns {
		out[name] = fn.Execute
	}
	return out
}

// Modules returns the module loaders in the form the interpreter expects.
func (r *Registry) Modules() map[string]evaluator.ModuleLoader {
	out := make(map[string]evaluator.ModuleLoader, len(r.modules))
	for name, m := range r.modules {
		out[name] = m.Load
	}
	return out
}

// Structs returns the std structs.
func (r *Registry) Structs() map[string]*evaluator.StdStruct {
	out := make(map[string]*evaluator.StdStruct, len(r.structs))
	for name, st := range r.structs {
		out[name] = st
	}
	return out
}

// Entries lists everything registered, ordered by kind then name.
func (r *Registry) Entries() []Entry {
	var entries []Entry
	for _, fn := range r.fns {
		entries = append(entries, Entry{Kind: "function", Name: fn.Name, Doc: fn.Doc})
	}
	for _, m := range r.modules {
		entries = append(entries, Entry{Kind: "module", Name: m.Name, Doc: m.Doc})
	}
	for _, st := range r.structs {
		entries = append(entries, Entry{Kind: "struct", Name: st.Name, Doc: st.Doc})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Default returns a registry with every builtin registered.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
