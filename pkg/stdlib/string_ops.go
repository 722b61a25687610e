package stdlib

import (
	"strings"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

func loadString(_ *evaluator.Interpreter) *evaluator.Object {
	return evaluator.NewObject(map[string]evaluator.Value{
		"upper":    native("string.upper", 1, 1, mapString(strings.ToUpper)),
		"lower":    native("string.lower", 1, 1, mapString(strings.ToLower)),
		"trim":     native("string.trim", 1, 1, mapString(strings.TrimSpace)),
		"split":    native("string.split", 2, 2, stdlibStrSplit),
		"join":     native("string.join", 2, 2, stdlibStrJoin),
		"contains": native("string.contains", 2, 2, testString(strings.Contains)),
		"starts":   native("string.starts", 2, 2, testString(strings.HasPrefix)),
		"ends":     native("string.ends", 2, 2, testString(strings.HasSuffix)),
		"replace":  native("string.replace", 3, 3, stdlibStrReplace),
		"repeat":   native("string.repeat", 2, 2, stdlibStrRepeat),
	})
}

func mapString(fn func(string) string) nativeFunc {
	return func(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
		s, err := a.str(0)
		if err != nil {
			return nil, err
		}
		return str(fn(s)), nil
	}
}

func testString(fn func(s, sub string) bool) nativeFunc {
	return func(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
		s, err := a.str(0)
		if err != nil {
			return nil, err
		}
		sub, err := a.str(1)
		if err != nil {
			return nil, err
		}
		return boolean(fn(s, sub)), nil
	}
}

// string.split(s, sep) → list
func stdlibStrSplit(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	s, err := a.str(0)
	if err != nil {
		return nil, err
	}
	sep, err := a.str(1)
	if err != nil {
		return nil, err
	}
	return stringArray(strings.Split(s, sep)), nil
}

// string.join(list, sep) → string
func stdlibStrJoin(in *evaluator.Interpreter, a args) (evaluator.Value, error) {
	arr, err := a.array(0)
	if err != nil {
		return nil, err
	}
	sep, err := a.str(1)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(arr.Elements))
	for i, el := range arr.Elements {
		if parts[i], err = in.Stringify(el); err != nil {
			return nil, err
		}
	}
	return str(strings.Join(parts, sep)), nil
}

// string.replace(s, old, new) → string, every occurrence
func stdlibStrReplace(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	s, err := a.str(0)
	if err != nil {
		return nil, err
	}
	old, err := a.str(1)
	if err != nil {
		return nil, err
	}
	repl, err := a.str(2)
	if err != nil {
		return nil, err
	}
	return str(strings.ReplaceAll(s, old, repl)), nil
}

// string.repeat(s, n) → string
func stdlibStrRepeat(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	s, err := a.str(0)
	if err != nil {
		return nil, err
	}
	n, err := a.integer(1)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, evaluator.Errorf(diagnostics.EOutOfRange, "string.repeat: count must not be negative")
	}
	return str(strings.Repeat(s, n)), nil
}
