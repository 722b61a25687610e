package evaluator

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/emberlang/ember/pkg/diagnostics"
)

// discard is the universal wildcard name. Binding it stores nothing.
const discard = "_"

// Environment is one lexical scope: a set of storage cells, the names in
// it that are constant, and a link to the enclosing scope.
type Environment struct {
	values    map[string]*Value
	constants mapset.Set[string]
	parent    *Environment
}

// NewEnvironment creates a new scope with an optional parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values:    make(map[string]*Value),
		constants: mapset.NewThreadUnsafeSet[string](),
		parent:    parent,
	}
}

// Child creates a new scope whose parent is this environment.
func (e *Environment) Child() *Environment {
	return NewEnvironment(e)
}

// Parent returns the enclosing scope, or nil at the root.
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Define binds name in this scope. Shadowing a parent binding is allowed;
// rebinding a name already present in this scope is not.
func (e *Environment) Define(name string, v Value) error {
	if name == discard {
		return nil
	}
	if _, ok := e.values[name]; ok {
		return newError(diagnostics.EDuplicateIdentifier, "'%s' is already declared in this scope", name)
	}
	cell := v
	e.values[name] = &cell
	return nil
}

// DeclareConstant binds name in this scope and marks it constant.
func (e *Environment) DeclareConstant(name string, v Value) error {
	if err := e.Define(name, v); err != nil {
		return err
	}
	if name != discard {
		e.constants.Add(name)
	}
	return nil
}

// resolve finds the scope that binds name.
func (e *Environment) resolve(name string) *Environment {
	for scope := e; scope != nil; scope = scope.parent {
		if _, ok := scope.values[name]; ok {
			return scope
		}
	}
	return nil
}

// Assign updates an existing binding in the nearest scope that has it.
func (e *Environment) Assign(name string, v Value) error {
	if name == discard {
		return nil
	}
	scope := e.resolve(name)
	if scope == nil {
		return newError(diagnostics.EUndefinedValue, "cannot assign to undeclared variable '%s'", name)
	}
	if scope.constants.Contains(name) {
		return newError(diagnostics.EConstReassign, "cannot reassign constant '%s'", name)
	}
	*scope.values[name] = v
	return nil
}

// Get looks up name through the scope chain.
func (e *Environment) Get(name string) (Value, error) {
	if name == discard {
		return Nil{}, nil
	}
	scope := e.resolve(name)
	if scope == nil {
		return nil, newError(diagnostics.EUndefinedValue, "undefined value '%s'", name)
	}
	return *scope.values[name], nil
}

// Has reports whether name resolves anywhere in the chain.
func (e *Environment) Has(name string) bool {
	return e.resolve(name) != nil
}

// HasLocal reports whether name is bound in this scope itself.
func (e *Environment) HasLocal(name string) bool {
	_, ok := e.values[name]
	return ok
}

// Cell returns the storage cell for name, for taking references.
func (e *Environment) Cell(name string) (*Value, error) {
	scope := e.resolve(name)
	if scope == nil {
		return nil, newError(diagnostics.EUndefinedValue, "undefined value '%s'", name)
	}
	return scope.values[name], nil
}

// MakeConstant marks an existing binding constant where it resolves.
func (e *Environment) MakeConstant(name string) error {
	if name == discard {
		return nil
	}
	scope := e.resolve(name)
	if scope == nil {
		return newError(diagnostics.EUndefinedValue, "undefined value '%s'", name)
	}
	scope.constants.Add(name)
	return nil
}

// StripConstant makes a binding writable again.
func (e *Environment) StripConstant(name string) {
	if scope := e.resolve(name); scope != nil {
		scope.constants.Remove(name)
	}
}

// IsConstant reports whether name resolves to a constant binding.
func (e *Environment) IsConstant(name string) bool {
	scope := e.resolve(name)
	return scope != nil && scope.constants.Contains(name)
}

// Remove deletes the binding where it resolves and returns its value.
func (e *Environment) Remove(name string) (Value, error) {
	if name == discard {
		return Nil{}, nil
	}
	scope := e.resolve(name)
	if scope == nil {
		return nil, newError(diagnostics.EUndefinedValue, "undefined value '%s'", name)
	}
	v := *scope.values[name]
	delete(scope.values, name)
	scope.constants.Remove(name)
	return v, nil
}

// Names returns the names bound in this scope, sorted.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
