// Package validator implements static checks over an Ember AST. It finds
// mistakes the interpreter would only report when execution reaches them.
package validator

import (
	"fmt"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
)

type scope struct {
	bindings map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[string]bool), parent: parent}
}

func (s *scope) hasLocal(name string) bool {
	return s.bindings[name]
}

func (s *scope) add(name string) {
	s.bindings[name] = true
}

type validator struct {
	diags []diagnostics.Diagnostic
	// loops counts the loops enclosing the current statement within the
	// current function body.
	loops int
}

// Validate checks a parsed program and returns its diagnostics in source
// order. An empty result means the program passed every check.
func Validate(program *ast.BlockStmt) []diagnostics.Diagnostic {
	v := &validator{}
	v.block(program.Body, newScope(nil))
	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, ""))
}

func (v *validator) declare(sc *scope, name string, span ast.Span) {
	if name == "" || name == "_" {
		return
	}
	if sc.hasLocal(name) {
		v.addDiag(diagnostics.EDuplicateIdentifier, fmt.Sprintf("'%s' is already declared in this scope", name), span)
		return
	}
	sc.add(name)
}

func (v *validator) block(stmts []ast.Stmt, sc *scope) {
	for _, stmt := range stmts {
		v.stmt(stmt, sc)
	}
}

func (v *validator) stmt(stmt ast.Stmt, sc *scope) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		v.expr(s.Expr, sc)

	case *ast.BlockStmt:
		v.block(s.Body, newScope(sc))

	case *ast.VarDecl:
		v.expr(s.Value, sc)
		v.declare(sc, s.Name, s.Span)

	case *ast.FunctionDecl:
		v.declare(sc, s.Name, s.Span)
		v.function(s.Params, s.Body, s.Span, sc)

	case *ast.IfStmt:
		v.expr(s.Cond, sc)
		v.block(s.Then.Body, newScope(sc))
		if s.Else != nil {
			v.stmt(s.Else, sc)
		}

	case *ast.WhileStmt:
		v.expr(s.Cond, sc)
		v.loop(s.Body, newScope(sc))

	case *ast.ForeachStmt:
		v.expr(s.Iterable, sc)
		body := newScope(sc)
		v.declare(body, s.Value, s.Span)
		v.declare(body, s.Index, s.Span)
		v.loop(s.Body, body)

	case *ast.ImportStmt:
		if !s.Wildcard {
			v.declare(sc, s.Name, s.Span)
		}

	case *ast.StructDecl:
		v.declare(sc, s.Name, s.Span)
		v.structDecl(s, sc)

	case *ast.EnumDecl:
		v.declare(sc, s.Name, s.Span)
		seen := make(map[string]bool, len(s.Members))
		for _, m := range s.Members {
			if seen[m] {
				v.addDiag(diagnostics.EDuplicateMember, fmt.Sprintf("enum '%s' declares '%s' twice", s.Name, m), s.Span)
			}
			seen[m] = true
		}

	case *ast.MatchStmt:
		v.match(s.Match, sc)

	case *ast.BreakStmt:
		if v.loops == 0 {
			v.addDiag(diagnostics.ELoopControl, "'break' outside of a loop", s.Span)
		}

	case *ast.ContinueStmt:
		if v.loops == 0 {
			v.addDiag(diagnostics.ELoopControl, "'continue' outside of a loop", s.Span)
		}

	case *ast.ReturnStmt:
		v.expr(s.Value, sc)
	}
}

func (v *validator) loop(body *ast.BlockStmt, sc *scope) {
	v.loops++
	v.block(body.Body, sc)
	v.loops--
}

// function checks a function body. Loop control does not cross a
// function boundary.
func (v *validator) function(params []ast.Param, body *ast.BlockStmt, span ast.Span, sc *scope) {
	fnScope := newScope(sc)
	for _, p := range params {
		v.declare(fnScope, p.Name, span)
	}
	saved := v.loops
	v.loops = 0
	v.block(body.Body, fnScope)
	v.loops = saved
}

func (v *validator) structDecl(s *ast.StructDecl, sc *scope) {
	members := make(map[string]bool, len(s.Fields)+len(s.Methods))
	for _, f := range s.Fields {
		if members[f.Name] {
			v.addDiag(diagnostics.EDuplicateMember, fmt.Sprintf("struct '%s' declares '%s' twice", s.Name, f.Name), s.Span)
		}
		members[f.Name] = true
	}
	for _, m := range s.Methods {
		if members[m.Name] {
			v.addDiag(diagnostics.EDuplicateMember, fmt.Sprintf("struct '%s' declares '%s' twice", s.Name, m.Name), m.Span)
		}
		members[m.Name] = true
		methodScope := newScope(sc)
		methodScope.add("this")
		v.function(m.Params, m.Body, m.Span, methodScope)
	}
}

func (v *validator) match(m *ast.MatchExpr, sc *scope) {
	v.expr(m.Subject, sc)
	for _, arm := range m.Arms {
		if !arm.IsWildcard() {
			v.expr(arm.Pattern, sc)
		}
		if block, ok := arm.Body.(*ast.BlockStmt); ok {
			v.block(block.Body, newScope(sc))
			continue
		}
		v.stmt(arm.Body, sc)
	}
}

func (v *validator) expr(expr ast.Expr, sc *scope) {
	if expr == nil {
		return
	}

	switch e := expr.(type) {
	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			v.expr(el, sc)
		}

	case *ast.ObjectLiteral:
		seen := make(map[string]bool, len(e.Entries))
		for _, entry := range e.Entries {
			if seen[entry.Key] {
				v.addDiag(diagnostics.EDuplicateMember, fmt.Sprintf("object literal sets '%s' twice", entry.Key), e.Span)
			}
			seen[entry.Key] = true
			v.expr(entry.Value, sc)
		}

	case *ast.PrefixExpr:
		v.expr(e.Operand, sc)

	case *ast.BinaryExpr:
		v.expr(e.Left, sc)
		v.expr(e.Right, sc)

	case *ast.AssignExpr:
		v.expr(e.Target, sc)
		v.expr(e.Value, sc)

	case *ast.PostfixExpr:
		v.expr(e.Target, sc)

	case *ast.RangeExpr:
		v.expr(e.Start, sc)
		v.expr(e.End, sc)

	case *ast.MemberExpr:
		v.expr(e.Object, sc)

	case *ast.IndexExpr:
		v.expr(e.Object, sc)
		v.expr(e.Index, sc)

	case *ast.CallExpr:
		v.expr(e.Callee, sc)
		for _, arg := range e.Args {
			v.expr(arg, sc)
		}

	case *ast.NewExpr:
		v.expr(e.Call, sc)

	case *ast.FunctionExpr:
		v.function(e.Params, e.Body, e.Span, sc)

	case *ast.MatchExpr:
		v.match(e, sc)
	}
}
