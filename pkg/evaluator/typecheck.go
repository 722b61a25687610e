package evaluator

import (
	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
)

// checkType fails with E_TYPE_MISMATCH when v does not conform to t.
// Nil conforms to every annotation. Names that are neither builtin types,
// std structs nor structs visible from env are not checked.
func (in *Interpreter) checkType(v Value, t ast.TypeExpr, env *Environment) error {
	if in.conforms(Raw(v), t, env) {
		return nil
	}
	return newError(diagnostics.ETypeMismatch, "expected %s, got %s", t.String(), TypeName(Raw(v)))
}

func (in *Interpreter) conforms(v Value, t ast.TypeExpr, env *Environment) bool {
	if _, ok := v.(Nil); ok {
		return true
	}
	switch tt := t.(type) {
	case *ast.ListType:
		arr, ok := v.(*Array)
		if !ok {
			return false
		}
		for _, el := range arr.Elements {
			if !in.conforms(Raw(el), tt.Elem, env) {
				return false
			}
		}
		return true
	case *ast.NamedType:
		return in.conformsNamed(v, tt.Name, env)
	}
	return true
}

func (in *Interpreter) conformsNamed(v Value, name string, env *Environment) bool {
	switch name {
	case "any":
		return true
	case "Number":
		_, ok := v.(Number)
		return ok
	case "String":
		_, ok := v.(String)
		return ok
	case "Boolean":
		_, ok := v.(Boolean)
		return ok
	case "Nil":
		return false
	case "Array":
		_, ok := v.(*Array)
		return ok
	case "Object":
		_, ok := v.(*Object)
		return ok
	case "Function":
		switch v.(type) {
		case *Function, *BoundMethod, *Native, *StdMethod:
			return true
		}
		return false
	case "Pair":
		_, ok := v.(Pair)
		return ok
	}
	if st, ok := in.StdStruct(name); ok {
		inst, isInst := v.(*StdInstance)
		return isInst && inst.Type == st
	}
	if obj, ok := v.(*Object); ok && obj.Struct != nil && obj.Struct.Name == name {
		return true
	}
	if env != nil {
		if decl, err := env.Get(name); err == nil {
			if _, isStruct := Raw(decl).(*Struct); isStruct {
				return false
			}
		}
	}
	return true
}
