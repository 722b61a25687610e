package stdlib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

// RegisterDefaults adds all builtin functions, modules and std structs.
func RegisterDefaults(r *Registry) {
	// Output
	r.Register(Fn{Name: "print", Doc: "print(values...) writes values separated by spaces", Execute: eager("print", 0, variadic, stdlibPrint)})
	r.Register(Fn{Name: "println", Doc: "println(values...) writes values and a newline", Execute: eager("println", 0, variadic, stdlibPrintln)})

	// Values
	r.Register(Fn{Name: "len", Doc: "len(x) length of an array, string, object or sized instance", Execute: eager("len", 1, 1, stdlibLen)})
	r.Register(Fn{Name: "str", Doc: "str(x) string form of a value", Execute: eager("str", 1, 1, stdlibStr)})
	r.Register(Fn{Name: "num", Doc: "num(x) converts a string or boolean to a number", Execute: eager("num", 1, 1, stdlibNum)})
	r.Register(Fn{Name: "ref", Doc: "ref(name) reference to a variable's storage", Execute: stdlibRef})
	r.Register(Fn{Name: "deref", Doc: "deref(r) value a reference points at", Execute: eager("deref", 1, 1, stdlibDeref)})
	r.Register(Fn{Name: "range", Doc: "range([start,] end [, step]) numbers up to end, exclusive", Execute: eager("range", 1, 3, stdlibRange)})

	// Collections
	r.Register(Fn{Name: "push", Doc: "push(arr, values...) appends in place", Execute: eager("push", 2, variadic, stdlibPush)})
	r.Register(Fn{Name: "pop", Doc: "pop(arr) removes and returns the last element", Execute: eager("pop", 1, 1, stdlibPop)})
	r.Register(Fn{Name: "keys", Doc: "keys(obj) sorted field names", Execute: eager("keys", 1, 1, stdlibKeys)})
	r.Register(Fn{Name: "values", Doc: "values(obj) field values in key order", Execute: eager("values", 1, 1, stdlibValues)})
	r.Register(Fn{Name: "sort", Doc: "sort(arr [, less]) sorted copy", Execute: eager("sort", 1, 2, stdlibSort)})
	r.Register(Fn{Name: "map", Doc: "map(arr, fn) applies fn to each element", Execute: eager("map", 2, 2, stdlibMap)})
	r.Register(Fn{Name: "filter", Doc: "filter(arr, fn) elements for which fn is truthy", Execute: eager("filter", 2, 2, stdlibFilter)})

	registerModules(r)
	registerStructs(r)
}

func stdlibPrint(in *evaluator.Interpreter, a args) (evaluator.Value, error) {
	return write(in, a, "")
}

func stdlibPrintln(in *evaluator.Interpreter, a args) (evaluator.Value, error) {
	return write(in, a, "\n")
}

func write(in *evaluator.Interpreter, a args, end string) (evaluator.Value, error) {
	parts := make([]string, a.len())
	for i, v := range a.vals {
		s, err := in.Stringify(v)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	if _, err := fmt.Fprint(in.Stdout(), strings.Join(parts, " ")+end); err != nil {
		return nil, evaluator.Errorf(diagnostics.EIO, "%s: %v", a.name, err)
	}
	return evaluator.Nil{}, nil
}

func stdlibLen(in *evaluator.Interpreter, a args) (evaluator.Value, error) {
	n, err := in.Len(a.vals[0])
	if err != nil {
		return nil, err
	}
	return num(float64(n)), nil
}

func stdlibStr(in *evaluator.Interpreter, a args) (evaluator.Value, error) {
	s, err := in.Stringify(a.vals[0])
	if err != nil {
		return nil, err
	}
	return str(s), nil
}

func stdlibNum(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	switch v := a.value(0).(type) {
	case evaluator.Number:
		return v, nil
	case evaluator.Boolean:
		if v.Value {
			return num(1), nil
		}
		return num(0), nil
	case evaluator.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
		if err != nil {
			return nil, evaluator.Errorf(diagnostics.ETypeMismatch, "num: cannot convert %q to a Number", v.Value)
		}
		return num(f), nil
	}
	return nil, a.mismatch(0, "a String, Number or Boolean")
}

// stdlibRef receives its argument unevaluated so a bare variable name can
// be aliased instead of copied.
func stdlibRef(in *evaluator.Interpreter, exprs []ast.Expr, env *evaluator.Environment) (evaluator.Value, error) {
	if err := checkArity("ref", 1, 1, len(exprs)); err != nil {
		return nil, err
	}
	if id, ok := exprs[0].(*ast.Identifier); ok {
		cell, err := env.Cell(id.Name)
		if err != nil {
			return nil, err
		}
		if ref, isRef := (*cell).(*evaluator.Reference); isRef {
			return ref, nil
		}
		return &evaluator.Reference{Target: cell}, nil
	}
	v, err := in.EvalExpr(exprs[0], env)
	if err != nil {
		return nil, err
	}
	return evaluator.NewReference(v), nil
}

func stdlibDeref(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	return evaluator.Deref(a.vals[0]), nil
}

// stdlibRange builds numbers from start up to, not including, end.
func stdlibRange(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	var start, end, step float64 = 0, 0, 1
	var err error
	switch a.len() {
	case 1:
		end, err = a.number(0)
	default:
		if start, err = a.number(0); err != nil {
			return nil, err
		}
		if end, err = a.number(1); err != nil {
			return nil, err
		}
		if a.has(2) {
			step, err = a.number(2)
		}
	}
	if err != nil {
		return nil, err
	}
	if step == 0 {
		return nil, evaluator.Errorf(diagnostics.EInvalidStep, "range: step must not be zero")
	}
	if (step > 0 && start > end) || (step < 0 && start < end) {
		return nil, evaluator.Errorf(diagnostics.EInvalidRange, "range: cannot go from %s to %s with step %s",
			evaluator.FormatNumber(start), evaluator.FormatNumber(end), evaluator.FormatNumber(step))
	}
	arr := evaluator.NewArray(nil)
	for n := start; (step > 0 && n < end) || (step < 0 && n > end); n += step {
		arr.Elements = append(arr.Elements, num(n))
	}
	return arr, nil
}
