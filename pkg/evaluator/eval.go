package evaluator

import (
	"math"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
)

// EvalExpr evaluates an expression to a value.
func (in *Interpreter) EvalExpr(expr ast.Expr, env *Environment) (Value, error) {
	v, err := in.evalExpr(expr, env)
	return v, atNode(expr, err)
}

func (in *Interpreter) evalExpr(expr ast.Expr, env *Environment) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return Number{e.Value}, nil
	case *ast.StringLiteral:
		return String{e.Value}, nil
	case *ast.BoolLiteral:
		return Boolean{e.Value}, nil
	case *ast.NilLiteral:
		return Nil{}, nil
	case *ast.Identifier:
		return in.evalIdentifier(e, env)
	case *ast.ArrayLiteral:
		elems := make([]Value, 0, len(e.Elements))
		for _, el := range e.Elements {
			v, err := in.EvalExpr(el, env)
			if err != nil {
				return nil, err
			}
			elems = append(elems, plain(v))
		}
		return NewArray(elems), nil
	case *ast.ObjectLiteral:
		fields := make(map[string]Value, len(e.Entries))
		for _, entry := range e.Entries {
			v, err := in.EvalExpr(entry.Value, env)
			if err != nil {
				return nil, err
			}
			fields[entry.Key] = plain(v)
		}
		return NewObject(fields), nil
	case *ast.PrefixExpr:
		return in.evalPrefix(e, env)
	case *ast.BinaryExpr:
		return in.evalBinary(e, env)
	case *ast.AssignExpr:
		return in.evalAssign(e, env)
	case *ast.PostfixExpr:
		return in.evalPostfix(e, env)
	case *ast.RangeExpr:
		return in.evalRange(e, env)
	case *ast.MemberExpr:
		obj, err := in.EvalExpr(e.Object, env)
		if err != nil {
			return nil, err
		}
		return in.GetMember(obj, e.Property)
	case *ast.IndexExpr:
		obj, err := in.EvalExpr(e.Object, env)
		if err != nil {
			return nil, err
		}
		idx, err := in.EvalExpr(e.Index, env)
		if err != nil {
			return nil, err
		}
		return in.GetIndex(obj, idx)
	case *ast.CallExpr:
		return in.evalCall(e, env)
	case *ast.NewExpr:
		return in.evalNew(e, env)
	case *ast.FunctionExpr:
		return &Function{Params: e.Params, ReturnType: e.ReturnType, Body: e.Body, Closure: env}, nil
	case *ast.MatchExpr:
		v, err := in.evalMatch(e, env)
		if err != nil {
			return nil, err
		}
		switch v.(type) {
		case Break, Continue:
			return nil, &loopSignal{signal: v}
		}
		return unwrapSignal(v), nil
	}
	return nil, newError(diagnostics.ETypeMismatch, "unsupported expression %s", expr.Kind())
}

func (in *Interpreter) evalIdentifier(e *ast.Identifier, env *Environment) (Value, error) {
	v, err := env.Get(e.Name)
	if err == nil {
		return v, nil
	}
	if fn, ok := in.Builtin(e.Name); ok {
		return &Native{Name: e.Name, Fn: fn}, nil
	}
	return nil, err
}

// plain drops a Typed wrapper so a copied value does not carry the
// annotation of the binding it was read from.
func plain(v Value) Value {
	if t, ok := v.(Typed); ok {
		return t.Value
	}
	return v
}

func (in *Interpreter) evalPrefix(e *ast.PrefixExpr, env *Environment) (Value, error) {
	if e.Op == "delete" {
		return in.evalDelete(e.Operand, env)
	}
	v, err := in.EvalExpr(e.Operand, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "-":
		n, ok := Raw(v).(Number)
		if !ok {
			return nil, newError(diagnostics.ETypeMismatch, "unary '-' requires a Number, got %s", TypeName(Raw(v)))
		}
		return Number{-n.Value}, nil
	case "!":
		ok, err := in.Truthy(v)
		if err != nil {
			return nil, err
		}
		return Boolean{!ok}, nil
	case "typeof":
		return TypeOf(v), nil
	}
	return nil, newError(diagnostics.ETypeMismatch, "unknown prefix operator '%s'", e.Op)
}

func (in *Interpreter) evalBinary(e *ast.BinaryExpr, env *Environment) (Value, error) {
	left, err := in.EvalExpr(e.Left, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "&&", "||":
		l, err := in.Truthy(left)
		if err != nil {
			return nil, err
		}
		if (e.Op == "&&") != l {
			return Boolean{l}, nil
		}
		right, err := in.EvalExpr(e.Right, env)
		if err != nil {
			return nil, err
		}
		r, err := in.Truthy(right)
		if err != nil {
			return nil, err
		}
		return Boolean{r}, nil
	case "??":
		if _, isNil := Raw(left).(Nil); !isNil {
			return left, nil
		}
		return in.EvalExpr(e.Right, env)
	}
	right, err := in.EvalExpr(e.Right, env)
	if err != nil {
		return nil, err
	}
	return in.BinaryOp(e.Op, left, right)
}

// BinaryOp applies a non-short-circuit binary operator to two values.
func (in *Interpreter) BinaryOp(op string, left, right Value) (Value, error) {
	a, b := Raw(left), Raw(right)
	switch op {
	case "==":
		return Boolean{Equal(a, b)}, nil
	case "!=":
		return Boolean{!Equal(a, b)}, nil
	case "+":
		switch x := a.(type) {
		case Number:
			if y, ok := b.(Number); ok {
				return Number{x.Value + y.Value}, nil
			}
		case String:
			s, err := in.Stringify(b)
			if err != nil {
				return nil, err
			}
			return String{x.Value + s}, nil
		case *Array:
			if y, ok := b.(*Array); ok {
				elems := make([]Value, 0, len(x.Elements)+len(y.Elements))
				elems = append(elems, x.Elements...)
				return NewArray(append(elems, y.Elements...)), nil
			}
		}
		return nil, operandError(op, a, b)
	case "<", "<=", ">", ">=":
		if !orderable(a, b) {
			return nil, operandError(op, a, b)
		}
		c := Compare(a, b)
		switch op {
		case "<":
			return Boolean{c < 0}, nil
		case "<=":
			return Boolean{c <= 0}, nil
		case ">":
			return Boolean{c > 0}, nil
		default:
			return Boolean{c >= 0}, nil
		}
	}

	x, xok := a.(Number)
	y, yok := b.(Number)
	if !xok || !yok {
		return nil, operandError(op, a, b)
	}
	switch op {
	case "-":
		return Number{x.Value - y.Value}, nil
	case "*":
		return Number{x.Value * y.Value}, nil
	case "/":
		if y.Value == 0 {
			return nil, newError(diagnostics.EDivisionByZero, "division by zero")
		}
		return Number{x.Value / y.Value}, nil
	case "%":
		if y.Value == 0 {
			return nil, newError(diagnostics.EDivisionByZero, "modulo by zero")
		}
		return Number{math.Mod(x.Value, y.Value)}, nil
	case "**":
		return Number{math.Pow(x.Value, y.Value)}, nil
	case "&":
		return Number{float64(int64(x.Value) & int64(y.Value))}, nil
	case "|":
		return Number{float64(int64(x.Value) | int64(y.Value))}, nil
	case "^":
		return Number{float64(int64(x.Value) ^ int64(y.Value))}, nil
	}
	return nil, newError(diagnostics.ETypeMismatch, "unknown operator '%s'", op)
}

func orderable(a, b Value) bool {
	switch a.(type) {
	case Number:
		_, ok := b.(Number)
		return ok
	case String:
		_, ok := b.(String)
		return ok
	}
	return false
}

func operandError(op string, a, b Value) error {
	return newError(diagnostics.ETypeMismatch, "operator '%s' cannot be applied to %s and %s", op, TypeName(a), TypeName(b))
}

func (in *Interpreter) evalRange(e *ast.RangeExpr, env *Environment) (Value, error) {
	start, err := in.EvalExpr(e.Start, env)
	if err != nil {
		return nil, err
	}
	end, err := in.EvalExpr(e.End, env)
	if err != nil {
		return nil, err
	}
	lo, lok := Raw(start).(Number)
	hi, hok := Raw(end).(Number)
	if !lok || !hok {
		return nil, operandError("..", Raw(start), Raw(end))
	}
	arr := NewArray(nil)
	for n := lo.Value; n < hi.Value; n++ {
		arr.Elements = append(arr.Elements, Number{n})
	}
	return arr, nil
}

// place is an assignable location: a variable, a field or an element.
type place struct {
	get func() (Value, error)
	set func(Value) error
}

func (in *Interpreter) placeOf(target ast.Expr, env *Environment) (place, error) {
	switch t := target.(type) {
	case *ast.Identifier:
		return place{
			get: func() (Value, error) { return env.Get(t.Name) },
			set: func(v Value) error { return in.assignName(t.Name, v, env) },
		}, nil
	case *ast.MemberExpr:
		obj, err := in.EvalExpr(t.Object, env)
		if err != nil {
			return place{}, err
		}
		return place{
			get: func() (Value, error) { return in.GetMember(obj, t.Property) },
			set: func(v Value) error { return in.SetMember(obj, t.Property, v) },
		}, nil
	case *ast.IndexExpr:
		obj, err := in.EvalExpr(t.Object, env)
		if err != nil {
			return place{}, err
		}
		idx, err := in.EvalExpr(t.Index, env)
		if err != nil {
			return place{}, err
		}
		return place{
			get: func() (Value, error) { return in.GetIndex(obj, idx) },
			set: func(v Value) error { return in.SetIndex(obj, idx, v) },
		}, nil
	}
	return place{}, newError(diagnostics.EInvalidAssignTarget, "cannot assign to %s", target.Kind())
}

// assignName stores v in a variable. A variable holding a reference is
// written through; a typed variable checks and keeps its annotation.
func (in *Interpreter) assignName(name string, v Value, env *Environment) error {
	if !env.Has(name) || env.IsConstant(name) {
		return env.Assign(name, v)
	}
	cur, err := env.Get(name)
	if err != nil {
		return err
	}
	if ref, ok := cur.(*Reference); ok && ref.Target != nil {
		nv, err := in.retype(*ref.Target, v, env)
		if err != nil {
			return err
		}
		*ref.Target = nv
		return nil
	}
	nv, err := in.retype(cur, v, env)
	if err != nil {
		return err
	}
	return env.Assign(name, nv)
}

func (in *Interpreter) retype(old, v Value, env *Environment) (Value, error) {
	t, ok := old.(Typed)
	if !ok {
		return plain(v), nil
	}
	if err := in.checkType(v, t.Type, env); err != nil {
		return nil, err
	}
	return Typed{Value: Raw(v), Type: t.Type}, nil
}

var compoundOps = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "/=": "/", "%=": "%",
}

func (in *Interpreter) evalAssign(e *ast.AssignExpr, env *Environment) (Value, error) {
	p, err := in.placeOf(e.Target, env)
	if err != nil {
		return nil, err
	}
	var v Value
	switch e.Op {
	case "=":
		if v, err = in.EvalExpr(e.Value, env); err != nil {
			return nil, err
		}
	case "??=":
		cur, err := p.get()
		if err != nil {
			return nil, err
		}
		if _, isNil := Raw(cur).(Nil); !isNil {
			return cur, nil
		}
		if v, err = in.EvalExpr(e.Value, env); err != nil {
			return nil, err
		}
	default:
		op, ok := compoundOps[e.Op]
		if !ok {
			return nil, newError(diagnostics.EInvalidAssignTarget, "unknown assignment operator '%s'", e.Op)
		}
		cur, err := p.get()
		if err != nil {
			return nil, err
		}
		rhs, err := in.EvalExpr(e.Value, env)
		if err != nil {
			return nil, err
		}
		if v, err = in.BinaryOp(op, cur, rhs); err != nil {
			return nil, err
		}
	}
	if err := p.set(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (in *Interpreter) evalPostfix(e *ast.PostfixExpr, env *Environment) (Value, error) {
	p, err := in.placeOf(e.Target, env)
	if err != nil {
		return nil, err
	}
	cur, err := p.get()
	if err != nil {
		return nil, err
	}
	n, ok := Raw(cur).(Number)
	if !ok {
		return nil, newError(diagnostics.ETypeMismatch, "'%s' requires a Number, got %s", e.Op, TypeName(Raw(cur)))
	}
	next := n.Value + 1
	if e.Op == "--" {
		next = n.Value - 1
	}
	if err := p.set(Number{next}); err != nil {
		return nil, err
	}
	return n, nil
}

func (in *Interpreter) evalDelete(target ast.Expr, env *Environment) (Value, error) {
	switch t := target.(type) {
	case *ast.Identifier:
		if env.IsConstant(t.Name) {
			return nil, newError(diagnostics.EConstReassign, "cannot delete constant '%s'", t.Name)
		}
		return env.Remove(t.Name)
	case *ast.MemberExpr:
		obj, err := in.EvalExpr(t.Object, env)
		if err != nil {
			return nil, err
		}
		return deleteField(obj, t.Property)
	case *ast.IndexExpr:
		obj, err := in.EvalExpr(t.Object, env)
		if err != nil {
			return nil, err
		}
		idx, err := in.EvalExpr(t.Index, env)
		if err != nil {
			return nil, err
		}
		if arr, ok := Raw(obj).(*Array); ok {
			i, err := arrayIndex(arr, idx)
			if err != nil {
				return nil, err
			}
			removed := arr.Elements[i]
			arr.Elements = append(arr.Elements[:i], arr.Elements[i+1:]...)
			return removed, nil
		}
		key, ok := Raw(idx).(String)
		if !ok {
			return nil, newError(diagnostics.ETypeMismatch, "cannot delete %s key from %s", TypeName(Raw(idx)), TypeName(Raw(obj)))
		}
		return deleteField(obj, key.Value)
	}
	return nil, newError(diagnostics.EInvalidAssignTarget, "cannot delete %s", target.Kind())
}

func deleteField(obj Value, name string) (Value, error) {
	o, ok := Raw(obj).(*Object)
	if !ok {
		return nil, newError(diagnostics.ETypeMismatch, "cannot delete property '%s' of %s", name, TypeName(Raw(obj)))
	}
	v, ok := o.Fields[name]
	if !ok {
		return nil, newError(diagnostics.EPropertyNotFound, "property '%s' not found", name)
	}
	delete(o.Fields, name)
	return v, nil
}

// GetMember reads obj.name. Struct instances fall back to their methods,
// std instances expose their native methods.
func (in *Interpreter) GetMember(obj Value, name string) (Value, error) {
	switch o := Raw(obj).(type) {
	case *Object:
		if v, ok := o.Fields[name]; ok {
			return v, nil
		}
		if o.Struct != nil {
			if m, ok := o.Struct.Methods[name]; ok {
				return &BoundMethod{Instance: o, Method: m}, nil
			}
		}
		return nil, newError(diagnostics.EPropertyNotFound, "property '%s' not found on %s", name, TypeName(o))
	case Pair:
		switch name {
		case "first":
			return o.First, nil
		case "second":
			return o.Second, nil
		}
		return nil, newError(diagnostics.EPropertyNotFound, "a Pair has only 'first' and 'second', not '%s'", name)
	case *StdInstance:
		if fn, ok := o.Type.Methods[name]; ok {
			return &StdMethod{Instance: o, Name: name, Fn: fn}, nil
		}
		return nil, newError(diagnostics.EPropertyNotFound, "%s has no method '%s'", o.Type.Name, name)
	}
	return nil, newError(diagnostics.EPropertyNotFound, "cannot read property '%s' of %s", name, TypeName(Raw(obj)))
}

// SetMember writes obj.name. Declared typed fields of a struct instance
// are checked.
func (in *Interpreter) SetMember(obj Value, name string, v Value) error {
	o, ok := Raw(obj).(*Object)
	if !ok {
		return newError(diagnostics.ETypeMismatch, "cannot set property '%s' on %s", name, TypeName(Raw(obj)))
	}
	if o.Struct != nil {
		for _, f := range o.Struct.Fields {
			if f.Name == name && f.Type != nil {
				if err := in.checkType(v, f.Type, o.Struct.Closure); err != nil {
					return err
				}
			}
		}
	}
	o.Fields[name] = plain(v)
	return nil
}

// GetIndex reads obj[idx].
func (in *Interpreter) GetIndex(obj, idx Value) (Value, error) {
	switch o := Raw(obj).(type) {
	case *Array:
		i, err := arrayIndex(o, idx)
		if err != nil {
			return nil, err
		}
		return o.Elements[i], nil
	case String:
		n, ok := Raw(idx).(Number)
		if !ok || n.Value != math.Trunc(n.Value) {
			return nil, newError(diagnostics.ETypeMismatch, "string index must be an integer, got %s", ToString(Raw(idx)))
		}
		s, ok := runeAt(o.Value, int(n.Value))
		if !ok {
			return nil, newError(diagnostics.EIndexOutOfBounds, "index %d out of bounds", int(n.Value))
		}
		return String{s}, nil
	case *Object, Pair, *StdInstance:
		key, ok := Raw(idx).(String)
		if !ok {
			return nil, newError(diagnostics.ETypeMismatch, "cannot index %s with %s", TypeName(o), TypeName(Raw(idx)))
		}
		return in.GetMember(o, key.Value)
	}
	return nil, newError(diagnostics.ETypeMismatch, "cannot index %s", TypeName(Raw(obj)))
}

// SetIndex writes obj[idx].
func (in *Interpreter) SetIndex(obj, idx, v Value) error {
	switch o := Raw(obj).(type) {
	case *Array:
		i, err := arrayIndex(o, idx)
		if err != nil {
			return err
		}
		o.Elements[i] = plain(v)
		return nil
	case *Object:
		key, ok := Raw(idx).(String)
		if !ok {
			return newError(diagnostics.ETypeMismatch, "object keys must be String, got %s", TypeName(Raw(idx)))
		}
		return in.SetMember(o, key.Value, v)
	}
	return newError(diagnostics.ETypeMismatch, "cannot assign into %s", TypeName(Raw(obj)))
}

func arrayIndex(arr *Array, idx Value) (int, error) {
	n, ok := Raw(idx).(Number)
	if !ok || n.Value != math.Trunc(n.Value) {
		return 0, newError(diagnostics.ETypeMismatch, "array index must be an integer, got %s", ToString(Raw(idx)))
	}
	if n.Value < 0 || n.Value >= float64(len(arr.Elements)) {
		return 0, newError(diagnostics.EIndexOutOfBounds, "index %s out of bounds for array of length %d", FormatNumber(n.Value), len(arr.Elements))
	}
	return int(n.Value), nil
}
