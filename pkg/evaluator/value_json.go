package evaluator

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/emberlang/ember/pkg/diagnostics"
)

// ValueToJSON marshals a value to JSON. Object keys come out sorted.
// Whole numbers are written without a decimal point.
func ValueToJSON(v Value) ([]byte, error) {
	raw, err := valueToRaw(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

func valueToRaw(v Value) (any, error) {
	switch val := Raw(v).(type) {
	case Nil:
		return nil, nil
	case Boolean:
		return val.Value, nil
	case Number:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return nil, newError(diagnostics.ETypeMismatch, "cannot encode %s as JSON", FormatNumber(val.Value))
		}
		if val.Value == math.Trunc(val.Value) && math.Abs(val.Value) < 1<<53 {
			return int64(val.Value), nil
		}
		return val.Value, nil
	case String:
		return val.Value, nil
	case *Array:
		items := make([]any, len(val.Elements))
		for i, el := range val.Elements {
			item, err := valueToRaw(el)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil
	case *Object:
		fields := make(map[string]any, len(val.Fields))
		for k, el := range val.Fields {
			item, err := valueToRaw(el)
			if err != nil {
				return nil, err
			}
			fields[k] = item
		}
		return fields, nil
	case Pair:
		first, err := valueToRaw(val.First)
		if err != nil {
			return nil, err
		}
		second, err := valueToRaw(val.Second)
		if err != nil {
			return nil, err
		}
		return []any{first, second}, nil
	}
	return nil, newError(diagnostics.ETypeMismatch, "cannot encode %s as JSON", TypeName(Raw(v)))
}

// JSONToValue parses JSON text into a value.
func JSONToValue(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newError(diagnostics.EParseFailure, "invalid JSON: %v", err)
	}
	return anyToValue(raw), nil
}

func anyToValue(v any) Value {
	switch val := v.(type) {
	case bool:
		return Boolean{val}
	case float64:
		return Number{val}
	case string:
		return String{val}
	case []any:
		elems := make([]Value, len(val))
		for i, item := range val {
			elems[i] = anyToValue(item)
		}
		return NewArray(elems)
	case map[string]any:
		fields := make(map[string]Value, len(val))
		for k, item := range val {
			fields[k] = anyToValue(item)
		}
		return NewObject(fields)
	}
	return Nil{}
}

// FormatNumber formats a float64 as an integer string if it's a whole number.
func FormatNumber(n float64) string {
	if n == 0 {
		return "0"
	}
	if n == math.Trunc(n) && !math.IsInf(n, 0) && math.Abs(n) < 1e21 {
		return strconv.FormatFloat(n, 'f', 0, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
