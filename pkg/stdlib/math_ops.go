package stdlib

import (
	"math"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

func loadMath(_ *evaluator.Interpreter) *evaluator.Object {
	return evaluator.NewObject(map[string]evaluator.Value{
		"pi":    num(math.Pi),
		"e":     num(math.E),
		"sqrt":  native("math.sqrt", 1, 1, unary(math.Sqrt)),
		"floor": native("math.floor", 1, 1, unary(math.Floor)),
		"ceil":  native("math.ceil", 1, 1, unary(math.Ceil)),
		"abs":   native("math.abs", 1, 1, unary(math.Abs)),
		"round": native("math.round", 1, 1, unary(math.Round)),
		"pow":   native("math.pow", 2, 2, stdlibMathPow),
		"min":   native("math.min", 1, variadic, stdlibMathMin),
		"max":   native("math.max", 1, variadic, stdlibMathMax),
	})
}

func unary(fn func(float64) float64) nativeFunc {
	return func(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
		n, err := a.number(0)
		if err != nil {
			return nil, err
		}
		return num(fn(n)), nil
	}
}

// math.pow(x, y) → number
func stdlibMathPow(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	x, err := a.number(0)
	if err != nil {
		return nil, err
	}
	y, err := a.number(1)
	if err != nil {
		return nil, err
	}
	return num(math.Pow(x, y)), nil
}

// math.max(numbers...) or math.max(list) → number
func stdlibMathMax(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	return fold(a, math.Inf(-1), math.Max)
}

// math.min(numbers...) or math.min(list) → number
func stdlibMathMin(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	return fold(a, math.Inf(1), math.Min)
}

func fold(a args, start float64, pick func(x, y float64) float64) (evaluator.Value, error) {
	items := a.vals
	if a.len() == 1 {
		if arr, ok := a.value(0).(*evaluator.Array); ok {
			items = arr.Elements
		}
	}
	if len(items) == 0 {
		return nil, evaluator.Errorf(diagnostics.EArityMismatch, "%s: list must not be empty", a.name)
	}
	acc := start
	for _, item := range items {
		n, ok := evaluator.Raw(item).(evaluator.Number)
		if !ok {
			return nil, evaluator.Errorf(diagnostics.ETypeMismatch, "%s: all elements must be numbers", a.name)
		}
		acc = pick(acc, n.Value)
	}
	return num(acc), nil
}
