package stdlib

import (
	"math"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

// variadic marks a builtin without an upper arity bound.
const variadic = -1

// args are the evaluated arguments of one builtin call.
type args struct {
	name string
	vals []evaluator.Value
}

type nativeFunc func(in *evaluator.Interpreter, a args) (evaluator.Value, error)

// eager adapts a function over evaluated arguments to a builtin.
func eager(name string, min, max int, fn nativeFunc) evaluator.BuiltinFunc {
	return func(in *evaluator.Interpreter, exprs []ast.Expr, env *evaluator.Environment) (evaluator.Value, error) {
		if err := checkArity(name, min, max, len(exprs)); err != nil {
			return nil, err
		}
		vals, err := in.EvalArgs(exprs, env)
		if err != nil {
			return nil, err
		}
		return fn(in, args{name: name, vals: vals})
	}
}

// native wraps fn as a function value for a module object.
func native(name string, min, max int, fn nativeFunc) *evaluator.Native {
	return &evaluator.Native{Name: name, Fn: eager(name, min, max, fn)}
}

// method adapts fn to a std struct method with an arity check.
func method(name string, min, max int, fn func(in *evaluator.Interpreter, self *evaluator.StdInstance, a args) (evaluator.Value, error)) evaluator.StdMethodFunc {
	return func(in *evaluator.Interpreter, self *evaluator.StdInstance, vals []evaluator.Value) (evaluator.Value, error) {
		qualified := self.Type.Name + "." + name
		if err := checkArity(qualified, min, max, len(vals)); err != nil {
			return nil, err
		}
		return fn(in, self, args{name: qualified, vals: vals})
	}
}

func checkArity(name string, min, max, got int) error {
	switch {
	case max == variadic && got < min:
		return evaluator.Errorf(diagnostics.EArityMismatch, "%s expects at least %d argument(s), got %d", name, min, got)
	case max != variadic && min == max && got != min:
		return evaluator.Errorf(diagnostics.EArityMismatch, "%s expects %d argument(s), got %d", name, min, got)
	case max != variadic && (got < min || got > max):
		return evaluator.Errorf(diagnostics.EArityMismatch, "%s expects %d to %d arguments, got %d", name, min, max, got)
	}
	return nil
}

func (a args) len() int { return len(a.vals) }

func (a args) has(i int) bool { return i < len(a.vals) }

func (a args) value(i int) evaluator.Value {
	return evaluator.Raw(a.vals[i])
}

func (a args) mismatch(i int, want string) error {
	return evaluator.Errorf(diagnostics.ETypeMismatch, "%s: argument %d must be %s, got %s",
		a.name, i+1, want, evaluator.TypeName(a.value(i)))
}

func (a args) number(i int) (float64, error) {
	n, ok := a.value(i).(evaluator.Number)
	if !ok {
		return 0, a.mismatch(i, "a Number")
	}
	return n.Value, nil
}

func (a args) integer(i int) (int, error) {
	n, err := a.number(i)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) {
		return 0, a.mismatch(i, "an integer")
	}
	return int(n), nil
}

func (a args) str(i int) (string, error) {
	s, ok := a.value(i).(evaluator.String)
	if !ok {
		return "", a.mismatch(i, "a String")
	}
	return s.Value, nil
}

func (a args) array(i int) (*evaluator.Array, error) {
	arr, ok := a.value(i).(*evaluator.Array)
	if !ok {
		return nil, a.mismatch(i, "an Array")
	}
	return arr, nil
}

func (a args) object(i int) (*evaluator.Object, error) {
	obj, ok := a.value(i).(*evaluator.Object)
	if !ok {
		return nil, a.mismatch(i, "an Object")
	}
	return obj, nil
}

func num(n float64) evaluator.Value { return evaluator.Number{Value: n} }

func str(s string) evaluator.Value { return evaluator.String{Value: s} }

func boolean(b bool) evaluator.Value { return evaluator.Boolean{Value: b} }

func stringArray(ss []string) *evaluator.Array {
	elems := make([]evaluator.Value, len(ss))
	for i, s := range ss {
		elems[i] = str(s)
	}
	return evaluator.NewArray(elems)
}
