package runtime

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/evaluator"
	"github.com/emberlang/ember/pkg/parser"
	"github.com/emberlang/ember/pkg/validator"
)

// ReplFile is the file name REPL diagnostics point at.
const ReplFile = "<repl>"

// Session evaluates REPL input against one persistent interpreter, so
// bindings made by earlier input stay visible to later input.
type Session struct {
	interp  *evaluator.Interpreter
	pending strings.Builder
}

// NewSession starts a REPL session. Relative imports resolve against the
// configured base directory or the working directory.
func (rt *Runtime) NewSession() (*Session, error) {
	dir := rt.baseDir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	interp, err := rt.NewInterpreter(dir)
	if err != nil {
		return nil, err
	}
	return &Session{interp: interp}, nil
}

// Interpreter returns the session's interpreter.
func (s *Session) Interpreter() *evaluator.Interpreter {
	return s.interp
}

// Pending reports whether earlier lines are buffered waiting for the rest
// of a construct.
func (s *Session) Pending() bool {
	return s.pending.Len() > 0
}

// Reset drops buffered input.
func (s *Session) Reset() {
	s.pending.Reset()
}

// Feed adds one line of input. While the buffered input is an unfinished
// construct it returns more=true and evaluates nothing. Otherwise the
// buffer is evaluated and cleared. A lone expression without a trailing
// semicolon is evaluated as is.
func (s *Session) Feed(ctx context.Context, line string) (value evaluator.Value, more bool, err error) {
	if s.pending.Len() > 0 {
		s.pending.WriteByte('\n')
	}
	s.pending.WriteString(line)
	source := s.pending.String()
	if strings.TrimSpace(source) == "" {
		s.pending.Reset()
		return nil, false, nil
	}

	program, err := parser.Parse(source, ReplFile)
	if err != nil {
		var pe *parser.Error
		if !errors.As(err, &pe) || !pe.Incomplete() {
			s.pending.Reset()
			return nil, false, asDiagnosticError(err)
		}
		expr, exprErr := parser.ParseExpr(source, ReplFile)
		if exprErr != nil {
			return nil, true, nil
		}
		program = &ast.BlockStmt{
			Span: expr.NodeSpan(),
			Body: []ast.Stmt{&ast.ExprStmt{Span: expr.NodeSpan(), Expr: expr}},
		}
	}
	s.pending.Reset()

	if diags := validator.Validate(program); len(diags) > 0 {
		return nil, false, &DiagnosticError{Diagnostics: diags}
	}
	value, err = s.interp.RunContext(ctx, program)
	return value, false, err
}
