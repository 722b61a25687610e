package evaluator

import (
	"errors"
	"sort"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
)

// EvalStmt evaluates one statement. Break, Continue and Return come back
// as values for the enclosing loop or call to consume.
func (in *Interpreter) EvalStmt(stmt ast.Stmt, env *Environment) (Value, error) {
	v, err := in.evalStmt(stmt, env)
	return v, atNode(stmt, err)
}

func (in *Interpreter) evalStmt(stmt ast.Stmt, env *Environment) (Value, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return in.EvalExpr(s.Expr, env)
	case *ast.BlockStmt:
		return in.execStmts(s.Body, env.Child())
	case *ast.VarDecl:
		return Nil{}, in.execVarDecl(s, env)
	case *ast.FunctionDecl:
		fn := &Function{Name: s.Name, Params: s.Params, ReturnType: s.ReturnType, Body: s.Body, Closure: env}
		return Nil{}, env.Define(s.Name, fn)
	case *ast.IfStmt:
		return in.execIf(s, env)
	case *ast.WhileStmt:
		return in.execWhile(s, env)
	case *ast.ForeachStmt:
		return in.execForeach(s, env)
	case *ast.ImportStmt:
		return Nil{}, in.execImport(s, env)
	case *ast.StructDecl:
		return Nil{}, env.Define(s.Name, newStruct(s, env))
	case *ast.EnumDecl:
		fields := make(map[string]Value, len(s.Members))
		for i, m := range s.Members {
			fields[m] = Number{float64(i)}
		}
		return Nil{}, env.DeclareConstant(s.Name, NewObject(fields))
	case *ast.MatchStmt:
		return in.evalMatch(s.Match, env)
	case *ast.BreakStmt:
		return Break{}, nil
	case *ast.ContinueStmt:
		return Continue{}, nil
	case *ast.ReturnStmt:
		if s.Value == nil {
			return Return{Value: Nil{}}, nil
		}
		v, err := in.EvalExpr(s.Value, env)
		if err != nil {
			return nil, err
		}
		return Return{Value: v}, nil
	}
	return nil, newError(diagnostics.ETypeMismatch, "unsupported statement %s", stmt.Kind())
}

// execStmts runs statements in order in env. Any signal stops the block
// and is returned as is; otherwise the result is the last statement's.
func (in *Interpreter) execStmts(stmts []ast.Stmt, env *Environment) (Value, error) {
	var result Value = Nil{}
	for _, stmt := range stmts {
		if err := in.interrupted(); err != nil {
			return nil, err
		}
		v, err := in.EvalStmt(stmt, env)
		if err != nil {
			var ls *loopSignal
			if !errors.As(err, &ls) {
				return nil, err
			}
			v = ls.signal
		}
		if IsSignal(v) {
			return v, nil
		}
		result = v
	}
	return result, nil
}

func (in *Interpreter) execVarDecl(s *ast.VarDecl, env *Environment) error {
	var v Value = Nil{}
	if s.Value != nil {
		var err error
		if v, err = in.EvalExpr(s.Value, env); err != nil {
			return err
		}
	}
	if s.Type != nil {
		if err := in.checkType(v, s.Type, env); err != nil {
			return err
		}
		v = Typed{Value: Raw(v), Type: s.Type}
	} else {
		v = plain(v)
	}
	if s.Const {
		return env.DeclareConstant(s.Name, v)
	}
	return env.Define(s.Name, v)
}

func newStruct(s *ast.StructDecl, env *Environment) *Struct {
	st := &Struct{
		Name:    s.Name,
		Fields:  s.Fields,
		Methods: make(map[string]*ast.FunctionDecl, len(s.Methods)),
		Closure: env,
	}
	for _, m := range s.Methods {
		if m.Name == "ctor" {
			st.Ctor = m
			continue
		}
		st.Methods[m.Name] = m
	}
	return st
}

func (in *Interpreter) execIf(s *ast.IfStmt, env *Environment) (Value, error) {
	cond, err := in.EvalExpr(s.Cond, env)
	if err != nil {
		return nil, err
	}
	ok, err := in.Truthy(cond)
	if err != nil {
		return nil, atNode(s.Cond, err)
	}
	if ok {
		return in.execStmts(s.Then.Body, env.Child())
	}
	if s.Else != nil {
		return in.EvalStmt(s.Else, env)
	}
	return Nil{}, nil
}

// loopStep interprets a body result. stop ends the loop; a non-nil out is
// the signal to hand upward.
func loopStep(v Value) (stop bool, out Value) {
	switch v.(type) {
	case Break:
		return true, nil
	case Return:
		return true, v
	}
	return false, nil
}

func (in *Interpreter) execWhile(s *ast.WhileStmt, env *Environment) (Value, error) {
	in.log.Debug("loop start", "kind", "while", "line", s.Span.Line)
	defer in.log.Debug("loop end", "kind", "while", "line", s.Span.Line)
	for {
		if err := in.interrupted(); err != nil {
			return nil, err
		}
		cond, err := in.EvalExpr(s.Cond, env)
		if err != nil {
			return nil, err
		}
		ok, err := in.Truthy(cond)
		if err != nil {
			return nil, atNode(s.Cond, err)
		}
		if !ok {
			return Nil{}, nil
		}
		v, err := in.execStmts(s.Body.Body, env.Child())
		if err != nil {
			return nil, err
		}
		if stop, out := loopStep(v); stop {
			if out != nil {
				return out, nil
			}
			return Nil{}, nil
		}
	}
}

func (in *Interpreter) execForeach(s *ast.ForeachStmt, env *Environment) (Value, error) {
	iterable, err := in.EvalExpr(s.Iterable, env)
	if err != nil {
		return nil, err
	}
	items, err := in.Iterate(iterable)
	if err != nil {
		return nil, atNode(s.Iterable, err)
	}
	in.log.Debug("loop start", "kind", "foreach", "line", s.Span.Line, "items", len(items))
	defer in.log.Debug("loop end", "kind", "foreach", "line", s.Span.Line)
	for i, item := range items {
		scope := env.Child()
		if err := scope.Define(s.Value, item); err != nil {
			return nil, err
		}
		if s.Index != "" {
			if err := scope.Define(s.Index, Number{float64(i)}); err != nil {
				return nil, err
			}
		}
		v, err := in.execStmts(s.Body.Body, scope)
		if err != nil {
			return nil, err
		}
		if stop, out := loopStep(v); stop {
			if out != nil {
				return out, nil
			}
			return Nil{}, nil
		}
	}
	return Nil{}, nil
}

// Iterate lists the values foreach visits: array elements, the characters
// of a string, the sorted keys of a plain object, or whatever an
// instance's items hook returns.
func (in *Interpreter) Iterate(v Value) ([]Value, error) {
	switch val := Raw(v).(type) {
	case *Array:
		out := make([]Value, len(val.Elements))
		copy(out, val.Elements)
		return out, nil
	case String:
		var out []Value
		for _, r := range val.Value {
			out = append(out, String{string(r)})
		}
		return out, nil
	case *Object:
		if val.Struct == nil {
			keys := NewArray(nil)
			for _, k := range sortedKeys(val) {
				keys.Elements = append(keys.Elements, String{k})
			}
			return keys.Elements, nil
		}
	}
	items, ok, err := in.callHook(v, "items")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(diagnostics.ETypeMismatch, "cannot iterate over %s", TypeName(Raw(v)))
	}
	arr, isArr := Raw(items).(*Array)
	if !isArr {
		return nil, newError(diagnostics.ETypeMismatch, "items() must return an Array, got %s", TypeName(Raw(items)))
	}
	return arr.Elements, nil
}

func (in *Interpreter) evalMatch(m *ast.MatchExpr, env *Environment) (Value, error) {
	subject, err := in.EvalExpr(m.Subject, env)
	if err != nil {
		return nil, err
	}
	for _, arm := range m.Arms {
		if !arm.IsWildcard() {
			pattern, err := in.EvalExpr(arm.Pattern, env)
			if err != nil {
				return nil, err
			}
			if !Equal(subject, pattern) {
				continue
			}
		}
		if block, ok := arm.Body.(*ast.BlockStmt); ok {
			return in.execStmts(block.Body, env.Child())
		}
		return in.EvalStmt(arm.Body, env)
	}
	return Nil{}, nil
}

func sortedKeys(o *Object) []string {
	keys := make([]string, 0, len(o.Fields))
	for k := range o.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

