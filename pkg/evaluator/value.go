// Package evaluator implements the Ember tree-walking interpreter.
package evaluator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/emberlang/ember/pkg/ast"
)

// Value is the interface for all Ember runtime values.
// The sealed marker method restricts implementations to this package.
type Value interface {
	emberValue() // sealed marker
}

// Number is a 64-bit float.
type Number struct {
	Value float64
}

// String is an immutable string.
type String struct {
	Value string
}

// Boolean is true or false.
type Boolean struct {
	Value bool
}

// Nil is the absent value.
type Nil struct{}

// Array is an ordered, growable sequence with reference semantics.
type Array struct {
	Elements []Value
}

// Object is a string-keyed map. A non-nil Struct marks a struct instance;
// member lookups that miss the field map fall back to its methods.
type Object struct {
	Fields map[string]Value
	Struct *Struct
}

// Function is a closure over the environment it was declared in.
type Function struct {
	Name       string
	Params     []ast.Param
	ReturnType ast.TypeExpr
	Body       *ast.BlockStmt
	Closure    *Environment
}

// Struct is a user-declared struct type.
type Struct struct {
	Name    string
	Fields  []ast.Field
	Methods map[string]*ast.FunctionDecl
	Ctor    *ast.FunctionDecl
	Closure *Environment
}

// Reference aliases a storage cell without owning it.
type Reference struct {
	Target *Value
}

// Typed is a value carrying its declared type annotation.
type Typed struct {
	Value Value
	Type  ast.TypeExpr
}

// Pair holds two values; typeof returns one.
type Pair struct {
	First  Value
	Second Value
}

// BoundMethod is a struct method paired with the instance it was read from.
type BoundMethod struct {
	Instance *Object
	Method   *ast.FunctionDecl
}

// Native is a builtin function used as a value.
type Native struct {
	Name string
	Fn   BuiltinFunc
}

// StdInstance is an instance of a native std struct such as Set.
type StdInstance struct {
	Type *StdStruct
	Data any
}

// StdMethod is a std struct method bound to its instance.
type StdMethod struct {
	Instance *StdInstance
	Name     string
	Fn       StdMethodFunc
}

// Break, Continue and Return are control-flow signals. They travel as
// ordinary results until a loop or call consumes them.
type Break struct{}

type Continue struct{}

type Return struct {
	Value Value
}

func (Number) emberValue()       {}
func (String) emberValue()       {}
func (Boolean) emberValue()      {}
func (Nil) emberValue()          {}
func (*Array) emberValue()       {}
func (*Object) emberValue()      {}
func (*Function) emberValue()    {}
func (*Struct) emberValue()      {}
func (*Reference) emberValue()   {}
func (Typed) emberValue()        {}
func (Pair) emberValue()         {}
func (*BoundMethod) emberValue() {}
func (*Native) emberValue()      {}
func (*StdInstance) emberValue() {}
func (*StdMethod) emberValue()   {}
func (Break) emberValue()        {}
func (Continue) emberValue()     {}
func (Return) emberValue()       {}

// NewArray creates an array value.
func NewArray(elems []Value) *Array {
	return &Array{Elements: elems}
}

// NewObject creates a plain object value.
func NewObject(fields map[string]Value) *Object {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return &Object{Fields: fields}
}

// NewReference creates a reference to a fresh cell holding v.
func NewReference(v Value) *Reference {
	cell := v
	return &Reference{Target: &cell}
}

// IsSignal reports whether v is Break, Continue or Return.
func IsSignal(v Value) bool {
	switch v.(type) {
	case Break, Continue, Return:
		return true
	}
	return false
}

// Deref follows exactly one Reference.
func Deref(v Value) Value {
	if ref, ok := v.(*Reference); ok && ref.Target != nil {
		return *ref.Target
	}
	return v
}

// Raw strips every Reference and Typed layer.
func Raw(v Value) Value {
	for {
		switch val := v.(type) {
		case *Reference:
			if val.Target == nil {
				return Nil{}
			}
			v = *val.Target
		case Typed:
			v = val.Value
		default:
			return v
		}
	}
}

// TypeName returns the specific type name of a value.
func TypeName(v Value) string {
	switch val := v.(type) {
	case Number:
		return "Number"
	case String:
		return "String"
	case Boolean:
		return "Boolean"
	case Nil:
		return "Nil"
	case *Array:
		return "Array"
	case *Object:
		if val.Struct != nil {
			return val.Struct.Name
		}
		return "Object"
	case *Function, *BoundMethod, *Native, *StdMethod:
		return "Function"
	case *Struct:
		return "Struct"
	case *Reference:
		return "Reference"
	case Typed:
		return val.Type.String()
	case Pair:
		return "Pair"
	case *StdInstance:
		return val.Type.Name
	case Break:
		return "Break"
	case Continue:
		return "Continue"
	case Return:
		return "Return"
	}
	return "Unknown"
}

// TypeOf returns the two-tier typeof result: a coarse category paired
// with the specific type name.
func TypeOf(v Value) Pair {
	switch val := v.(type) {
	case Typed:
		return Pair{First: String{"typed_val"}, Second: String{val.Type.String()}}
	case *StdInstance:
		return Pair{First: String{"std_instance"}, Second: String{val.Type.Name}}
	case *Reference:
		return Pair{First: String{"ambiguous"}, Second: String{TypeName(Deref(val))}}
	}
	return Pair{First: String{"any"}, Second: String{TypeName(v)}}
}

// Equal is structural equality. References and typed values are compared
// by what they hold.
func Equal(a, b Value) bool {
	a, b = Raw(a), Raw(b)
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		return ok && x.Value == y.Value
	case String:
		y, ok := b.(String)
		return ok && x.Value == y.Value
	case Boolean:
		y, ok := b.(Boolean)
		return ok && x.Value == y.Value
	case Nil:
		_, ok := b.(Nil)
		return ok
	case *Array:
		y, ok := b.(*Array)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		for i := range x.Elements {
			if !Equal(x.Elements[i], y.Elements[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Struct != y.Struct || len(x.Fields) != len(y.Fields) {
			return false
		}
		for k, v := range x.Fields {
			w, ok := y.Fields[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case Pair:
		y, ok := b.(Pair)
		return ok && Equal(x.First, y.First) && Equal(x.Second, y.Second)
	}
	return a == b
}

// typeRank orders values of different types: Nil < Boolean < Number <
// String < everything else.
func typeRank(v Value) int {
	switch v.(type) {
	case Nil:
		return 0
	case Boolean:
		return 1
	case Number:
		return 2
	case String:
		return 3
	}
	return 4
}

// Compare returns -1, 0 or 1. Numbers, strings and booleans compare by
// value; other values of the same rank compare equal.
func Compare(a, b Value) int {
	a, b = Raw(a), Raw(b)
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case Number:
		y := b.(Number)
		switch {
		case x.Value < y.Value:
			return -1
		case x.Value > y.Value:
			return 1
		}
	case String:
		return strings.Compare(x.Value, b.(String).Value)
	case Boolean:
		y := b.(Boolean)
		if x.Value == y.Value {
			return 0
		}
		if !x.Value {
			return -1
		}
		return 1
	}
	return 0
}

// CoerceToBool applies the truthiness rules that need no interpreter.
// Numbers are true only when greater than zero. Interpreter.Truthy
// consults the size hook of instances before falling back to this.
func CoerceToBool(v Value) bool {
	switch val := Raw(v).(type) {
	case Boolean:
		return val.Value
	case Number:
		return val.Value > 0
	case String:
		return val.Value != ""
	case *Array:
		return len(val.Elements) > 0
	case Nil:
		return false
	case Pair:
		return CoerceToBool(val.First) && CoerceToBool(val.Second)
	case Break, Return, *Struct:
		return false
	}
	return true
}

// strHook renders a struct or std instance through its str method.
// handled is false when the value has no such hook.
type strHook func(v Value) (s string, handled bool, err error)

// ToString renders a value without calling user hooks.
func ToString(v Value) string {
	s, _ := render(v, false, nil)
	return s
}

func render(v Value, nested bool, hook strHook) (string, error) {
	if hook != nil {
		s, handled, err := hook(v)
		if err != nil {
			return "", err
		}
		if handled {
			return s, nil
		}
	}
	switch val := v.(type) {
	case Number:
		return FormatNumber(val.Value), nil
	case String:
		if nested {
			return fmt.Sprintf("%q", val.Value), nil
		}
		return val.Value, nil
	case Boolean:
		if val.Value {
			return "true", nil
		}
		return "false", nil
	case Nil:
		return "nil", nil
	case *Array:
		parts := make([]string, len(val.Elements))
		for i, el := range val.Elements {
			s, err := render(el, true, hook)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case *Object:
		keys := make([]string, 0, len(val.Fields))
		for k := range val.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			s, err := render(val.Fields[k], true, hook)
			if err != nil {
				return "", err
			}
			parts[i] = k + ": " + s
		}
		body := "{" + strings.Join(parts, ", ") + "}"
		if val.Struct != nil {
			return val.Struct.Name + " " + body, nil
		}
		return body, nil
	case *Function:
		name := val.Name
		if name == "" {
			name = "anonymous"
		}
		return fmt.Sprintf("<fn %s(%d params), %d stmts>", name, len(val.Params), len(val.Body.Body)), nil
	case *Struct:
		return fmt.Sprintf("<struct %s(%d fields, %d methods)>", val.Name, len(val.Fields), len(val.Methods)), nil
	case *Reference:
		s, err := render(Deref(val), true, hook)
		if err != nil {
			return "", err
		}
		return "References Val: " + s, nil
	case Typed:
		s, err := render(val.Value, nested, hook)
		if err != nil {
			return "", err
		}
		return s + ", type " + val.Type.String(), nil
	case Pair:
		a, err := render(val.First, true, hook)
		if err != nil {
			return "", err
		}
		b, err := render(val.Second, true, hook)
		if err != nil {
			return "", err
		}
		return "(" + a + ", " + b + ")", nil
	case *BoundMethod:
		return fmt.Sprintf("<method %s.%s>", val.Instance.Struct.Name, val.Method.Name), nil
	case *Native:
		return fmt.Sprintf("<builtin %s>", val.Name), nil
	case *StdInstance:
		return fmt.Sprintf("<%s>", val.Type.Name), nil
	case *StdMethod:
		return fmt.Sprintf("<method %s.%s>", val.Instance.Type.Name, val.Name), nil
	case Break:
		return "<break>", nil
	case Continue:
		return "<continue>", nil
	case Return:
		s, err := render(val.Value, true, hook)
		if err != nil {
			return "", err
		}
		return "<return " + s + ">", nil
	}
	return "<unknown>", nil
}

// runeAt returns the i-th character of s as a string.
func runeAt(s string, i int) (string, bool) {
	if i < 0 {
		return "", false
	}
	for idx := range s {
		if i == 0 {
			_, size := utf8.DecodeRuneInString(s[idx:])
			return s[idx : idx+size], true
		}
		i--
	}
	return "", false
}
