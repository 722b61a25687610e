package stdlib

import (
	"sort"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

// push(arr, values...) appends in place and returns the array.
func stdlibPush(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	arr, err := a.array(0)
	if err != nil {
		return nil, err
	}
	for _, v := range a.vals[1:] {
		arr.Elements = append(arr.Elements, plainValue(v))
	}
	return arr, nil
}

// pop(arr) removes and returns the last element.
func stdlibPop(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	arr, err := a.array(0)
	if err != nil {
		return nil, err
	}
	if len(arr.Elements) == 0 {
		return nil, evaluator.Errorf(diagnostics.EIndexOutOfBounds, "pop: array is empty")
	}
	last := arr.Elements[len(arr.Elements)-1]
	arr.Elements = arr.Elements[:len(arr.Elements)-1]
	return last, nil
}

// sort(arr [, less]) returns a sorted copy. Without less, values order by
// type then value; less(a, b) returns a Boolean or a Number below zero
// when a sorts first.
func stdlibSort(in *evaluator.Interpreter, a args) (evaluator.Value, error) {
	arr, err := a.array(0)
	if err != nil {
		return nil, err
	}
	sorted := make([]evaluator.Value, len(arr.Elements))
	copy(sorted, arr.Elements)

	if !a.has(1) {
		sort.SliceStable(sorted, func(i, j int) bool {
			return evaluator.Compare(sorted[i], sorted[j]) < 0
		})
		return evaluator.NewArray(sorted), nil
	}

	less := a.vals[1]
	var callErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		if callErr != nil {
			return false
		}
		res, err := in.CallValue(less, []evaluator.Value{sorted[i], sorted[j]})
		if err != nil {
			callErr = err
			return false
		}
		switch r := evaluator.Raw(res).(type) {
		case evaluator.Boolean:
			return r.Value
		case evaluator.Number:
			return r.Value < 0
		}
		callErr = evaluator.Errorf(diagnostics.ETypeMismatch, "sort: comparator must return a Boolean or Number, got %s",
			evaluator.TypeName(evaluator.Raw(res)))
		return false
	})
	if callErr != nil {
		return nil, callErr
	}
	return evaluator.NewArray(sorted), nil
}

// map(arr, fn) returns fn applied to each element. fn may take the index
// as a second parameter.
func stdlibMap(in *evaluator.Interpreter, a args) (evaluator.Value, error) {
	arr, err := a.array(0)
	if err != nil {
		return nil, err
	}
	out := make([]evaluator.Value, 0, len(arr.Elements))
	for i, el := range snapshot(arr) {
		v, err := callWithIndex(in, a.vals[1], el, i)
		if err != nil {
			return nil, err
		}
		out = append(out, plainValue(v))
	}
	return evaluator.NewArray(out), nil
}

// filter(arr, fn) returns the elements for which fn is truthy.
func stdlibFilter(in *evaluator.Interpreter, a args) (evaluator.Value, error) {
	arr, err := a.array(0)
	if err != nil {
		return nil, err
	}
	out := make([]evaluator.Value, 0, len(arr.Elements))
	for i, el := range snapshot(arr) {
		v, err := callWithIndex(in, a.vals[1], el, i)
		if err != nil {
			return nil, err
		}
		keep, err := in.Truthy(v)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, el)
		}
	}
	return evaluator.NewArray(out), nil
}

func snapshot(arr *evaluator.Array) []evaluator.Value {
	out := make([]evaluator.Value, len(arr.Elements))
	copy(out, arr.Elements)
	return out
}

// callWithIndex passes the index too when fn is a user function that
// declares two parameters.
func callWithIndex(in *evaluator.Interpreter, fn, el evaluator.Value, i int) (evaluator.Value, error) {
	if f, ok := evaluator.Raw(fn).(*evaluator.Function); ok && len(f.Params) == 2 {
		return in.CallValue(fn, []evaluator.Value{el, num(float64(i))})
	}
	return in.CallValue(fn, []evaluator.Value{el})
}

func plainValue(v evaluator.Value) evaluator.Value {
	if t, ok := v.(evaluator.Typed); ok {
		return t.Value
	}
	return v
}
