package stdlib

import (
	"bytes"
	"encoding/json"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

func loadJSON(_ *evaluator.Interpreter) *evaluator.Object {
	return evaluator.NewObject(map[string]evaluator.Value{
		"parse":     native("json.parse", 1, 1, stdlibJSONParse),
		"stringify": native("json.stringify", 1, 2, stdlibJSONStringify),
	})
}

// json.parse(text) → any
func stdlibJSONParse(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	text, err := a.str(0)
	if err != nil {
		return nil, err
	}
	return evaluator.JSONToValue([]byte(text))
}

// json.stringify(value, indent?) → string
func stdlibJSONStringify(_ *evaluator.Interpreter, a args) (evaluator.Value, error) {
	out, err := evaluator.ValueToJSON(a.vals[0])
	if err != nil {
		return nil, err
	}
	if a.has(1) {
		indent, err := a.integer(1)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", string(bytes.Repeat([]byte(" "), indent))); err != nil {
			return nil, evaluator.Errorf(diagnostics.EParseFailure, "json.stringify: %s", err)
		}
		out = buf.Bytes()
	}
	return str(string(out)), nil
}
