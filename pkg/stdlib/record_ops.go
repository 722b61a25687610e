package stdlib

import (
	"sort"

	"github.com/emberlang/ember/pkg/evaluator"
)

// keys(obj) → sorted field names
func stdlibKeys(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	obj, err := a.object(0)
	if err != nil {
		return nil, err
	}
	return stringArray(sortedKeys(obj)), nil
}

// values(obj) → field values ordered by key
func stdlibValues(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	obj, err := a.object(0)
	if err != nil {
		return nil, err
	}
	keys := sortedKeys(obj)
	vals := make([]evaluator.Value, len(keys))
	for i, k := range keys {
		vals[i] = obj.Fields[k]
	}
	return evaluator.NewArray(vals), nil
}

func sortedKeys(obj *evaluator.Object) []string {
	keys := make([]string, 0, len(obj.Fields))
	for k := range obj.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
