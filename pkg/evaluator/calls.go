package evaluator

import (
	"strconv"
	"unicode/utf8"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
)

// EvalArgs evaluates argument expressions left to right.
func (in *Interpreter) EvalArgs(args []ast.Expr, env *Environment) ([]Value, error) {
	vals := make([]Value, len(args))
	for i, arg := range args {
		v, err := in.EvalExpr(arg, env)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// evalCall resolves a bare builtin name before any binding of the same
// name, so builtins cannot be shadowed as call targets.
func (in *Interpreter) evalCall(e *ast.CallExpr, env *Environment) (Value, error) {
	if id, ok := e.Callee.(*ast.Identifier); ok {
		if fn, ok := in.Builtin(id.Name); ok {
			in.log.Debug("call builtin", "name", id.Name, "args", len(e.Args))
			return fn(in, e.Args, env)
		}
	}
	callee, err := in.EvalExpr(e.Callee, env)
	if err != nil {
		return nil, err
	}
	args, err := in.EvalArgs(e.Args, env)
	if err != nil {
		return nil, err
	}
	return in.CallValue(callee, args)
}

// CallValue calls a callable value with already evaluated arguments.
func (in *Interpreter) CallValue(callee Value, args []Value) (Value, error) {
	switch fn := Raw(callee).(type) {
	case *Function:
		name := fn.Name
		if name == "" {
			name = "anonymous"
		}
		return in.callFunction(name, fn.Params, fn.ReturnType, fn.Body, fn.Closure.Child(), args)
	case *BoundMethod:
		scope, err := in.thisScope(fn.Instance)
		if err != nil {
			return nil, err
		}
		m := fn.Method
		return in.callFunction(fn.Instance.Struct.Name+"."+m.Name, m.Params, m.ReturnType, m.Body, scope, args)
	case *Native:
		return in.callNative(fn, args)
	case *StdMethod:
		return fn.Fn(in, fn.Instance, args)
	case *Struct:
		return nil, &RuntimeError{
			Code:    diagnostics.EInvalidCallTarget,
			Message: "struct '" + fn.Name + "' is not callable",
			Hint:    "construct instances with `new " + fn.Name + "(...)`",
		}
	}
	return nil, newError(diagnostics.EInvalidCallTarget, "%s is not callable", TypeName(Raw(callee)))
}

// thisScope builds the scope a method body runs in: `this` is a constant
// reference to the instance, seeded ahead of the parameters.
func (in *Interpreter) thisScope(obj *Object) (*Environment, error) {
	scope := NewEnvironment(obj.Struct.Closure)
	if err := scope.DeclareConstant("this", NewReference(obj)); err != nil {
		return nil, err
	}
	return scope.Child(), nil
}

func (in *Interpreter) callFunction(name string, params []ast.Param, ret ast.TypeExpr, body *ast.BlockStmt, scope *Environment, args []Value) (Value, error) {
	if len(args) != len(params) {
		return nil, newError(diagnostics.EArityMismatch, "%s expects %d argument(s), got %d", name, len(params), len(args))
	}
	for i, p := range params {
		v := plain(args[i])
		if p.Type != nil {
			if err := in.checkType(v, p.Type, scope); err != nil {
				return nil, err
			}
			v = Typed{Value: Raw(v), Type: p.Type}
		}
		if err := scope.Define(p.Name, v); err != nil {
			return nil, err
		}
	}
	in.log.Debug("call", "fn", name, "args", len(args))
	result, err := in.execStmts(body.Body, scope)
	if err != nil {
		return nil, err
	}
	result = unwrapSignal(result)
	if ret != nil {
		if err := in.checkType(result, ret, scope); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// callNative hands evaluated values to a builtin, which expects argument
// expressions, by binding them in a scratch scope.
func (in *Interpreter) callNative(fn *Native, args []Value) (Value, error) {
	scope := NewEnvironment(nil)
	exprs := make([]ast.Expr, len(args))
	for i, v := range args {
		name := "$" + strconv.Itoa(i)
		if err := scope.Define(name, v); err != nil {
			return nil, err
		}
		exprs[i] = &ast.Identifier{Name: name}
	}
	return fn.Fn(in, exprs, scope)
}

func (in *Interpreter) evalNew(e *ast.NewExpr, env *Environment) (Value, error) {
	call := e.Call
	if id, ok := call.Callee.(*ast.Identifier); ok {
		if st, ok := in.StdStruct(id.Name); ok {
			args, err := in.EvalArgs(call.Args, env)
			if err != nil {
				return nil, err
			}
			inst, err := in.NewStdInstance(st, args)
			if err != nil {
				return nil, err
			}
			return inst, nil
		}
	}
	callee, err := in.EvalExpr(call.Callee, env)
	if err != nil {
		return nil, err
	}
	st, ok := Raw(callee).(*Struct)
	if !ok {
		return nil, newError(diagnostics.EInvalidConstructor, "cannot construct %s; `new` needs a struct", TypeName(Raw(callee)))
	}
	args, err := in.EvalArgs(call.Args, env)
	if err != nil {
		return nil, err
	}
	obj, err := in.Instantiate(st, args)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// NewStdInstance constructs a std struct instance.
func (in *Interpreter) NewStdInstance(st *StdStruct, args []Value) (*StdInstance, error) {
	var data any
	if st.Ctor != nil {
		var err error
		if data, err = st.Ctor(in, args); err != nil {
			return nil, err
		}
	}
	return &StdInstance{Type: st, Data: data}, nil
}

// Instantiate creates an instance of a user struct. Declared fields start
// as nil; the ctor, if any, fills them in through `this`.
func (in *Interpreter) Instantiate(st *Struct, args []Value) (*Object, error) {
	obj := &Object{Fields: make(map[string]Value, len(st.Fields)), Struct: st}
	for _, f := range st.Fields {
		obj.Fields[f.Name] = Nil{}
	}
	want := 0
	if st.Ctor != nil {
		want = len(st.Ctor.Params)
	}
	if len(args) != want {
		return nil, newError(diagnostics.EInvalidConstructorArity, "%s constructor expects %d argument(s), got %d", st.Name, want, len(args))
	}
	if st.Ctor == nil {
		return obj, nil
	}
	scope, err := in.thisScope(obj)
	if err != nil {
		return nil, err
	}
	in.log.Debug("constructor", "struct", st.Name, "args", len(args))
	if _, err := in.callFunction(st.Name+".ctor", st.Ctor.Params, nil, st.Ctor.Body, scope, args); err != nil {
		return nil, err
	}
	return obj, nil
}

// callHook calls the named method on a struct or std instance.
// ok is false when the value has no such method.
func (in *Interpreter) callHook(v Value, name string) (result Value, ok bool, err error) {
	switch o := Raw(v).(type) {
	case *Object:
		if o.Struct == nil {
			return nil, false, nil
		}
		m, found := o.Struct.Methods[name]
		if !found {
			return nil, false, nil
		}
		result, err = in.CallValue(&BoundMethod{Instance: o, Method: m}, nil)
		return result, true, err
	case *StdInstance:
		fn, found := o.Type.Methods[name]
		if !found {
			return nil, false, nil
		}
		result, err = fn(in, o, nil)
		return result, true, err
	}
	return nil, false, nil
}

// Truthy reports whether v counts as true in a condition. A struct
// instance is true only when it has a zero-argument size method returning
// a non-zero number. Std instances use their size hook the same way.
func (in *Interpreter) Truthy(v Value) (bool, error) {
	switch val := Raw(v).(type) {
	case *Object:
		if val.Struct == nil {
			break
		}
		m, found := val.Struct.Methods["size"]
		if !found || len(m.Params) != 0 {
			return false, nil
		}
		size, err := in.CallValue(&BoundMethod{Instance: val, Method: m}, nil)
		if err != nil {
			return false, err
		}
		return nonZero(size), nil
	case *StdInstance:
		size, ok, err := in.callHook(val, "size")
		if err != nil || !ok {
			return false, err
		}
		return nonZero(size), nil
	case Pair:
		a, err := in.Truthy(val.First)
		if err != nil || !a {
			return false, err
		}
		return in.Truthy(val.Second)
	}
	return CoerceToBool(v), nil
}

func nonZero(v Value) bool {
	n, ok := Raw(v).(Number)
	return ok && n.Value != 0
}

// Len returns the length of an array, string (in characters) or plain
// object, or the size hook of an instance.
func (in *Interpreter) Len(v Value) (int, error) {
	switch val := Raw(v).(type) {
	case *Array:
		return len(val.Elements), nil
	case String:
		return utf8.RuneCountInString(val.Value), nil
	case *Object:
		if val.Struct == nil {
			return len(val.Fields), nil
		}
	}
	size, ok, err := in.callHook(v, "size")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, newError(diagnostics.ETypeMismatch, "%s has no length", TypeName(Raw(v)))
	}
	n, isNum := Raw(size).(Number)
	if !isNum {
		return 0, newError(diagnostics.ETypeMismatch, "size() must return a Number, got %s", TypeName(Raw(size)))
	}
	return int(n.Value), nil
}

// Stringify renders v for output, calling str hooks on instances.
func (in *Interpreter) Stringify(v Value) (string, error) {
	return render(v, false, in.renderHook)
}

func (in *Interpreter) renderHook(v Value) (string, bool, error) {
	switch v.(type) {
	case *Object, *StdInstance:
	default:
		return "", false, nil
	}
	s, ok, err := in.callHook(v, "str")
	if err != nil || !ok {
		return "", ok, err
	}
	return ToString(Raw(s)), true, nil
}
