package evaluator

import (
	"errors"
	"fmt"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
)

// RuntimeError represents a failure during evaluation.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Hint    string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a diagnostic for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, e.Hint)
}

func newError(code, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Errorf creates a runtime error with the given code. Builtins use it so
// their failures carry a stable code.
func Errorf(code, format string, args ...any) error {
	return newError(code, format, args...)
}

// ErrorCode extracts the diagnostic code of a runtime error, or "" if err
// is not one.
func ErrorCode(err error) string {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// loopSignal carries a break or continue out of a match expression to
// the statement list running it, which hands it on to the nearest loop.
type loopSignal struct {
	signal Value
}

func (e *loopSignal) Error() string {
	if _, ok := e.signal.(Break); ok {
		return "'break' outside of a loop"
	}
	return "'continue' outside of a loop"
}

// atNode stamps the node's span onto a runtime error that has none yet.
// The innermost node to fail wins.
func atNode(node ast.Node, err error) error {
	if err == nil {
		return nil
	}
	var re *RuntimeError
	if errors.As(err, &re) && re.Span == nil {
		span := node.NodeSpan()
		re.Span = &span
	}
	return err
}
