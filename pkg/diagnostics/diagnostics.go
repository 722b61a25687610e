// Package diagnostics defines Ember diagnostic types for lex/parse/check/runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/emberlang/ember/pkg/ast"
)

// Diagnostic code constants.
const (
	// Lexical
	EUnrecognizedToken = "E_UNRECOGNIZED_TOKEN"
	EInvalidEscape     = "E_INVALID_ESCAPE"
	EUnterminated      = "E_UNTERMINATED_STRING"

	// Syntactic
	EExpectedNUD         = "E_EXPECTED_NUD"
	EExpectedLED         = "E_EXPECTED_LED"
	EExpectedKind        = "E_EXPECTED_KIND"
	EReservedIdentifier  = "E_RESERVED_IDENTIFIER"
	EInvalidConstructor  = "E_INVALID_CONSTRUCTOR"
	ELoopControl         = "E_LOOP_CONTROL"
	EDuplicateMember     = "E_DUPLICATE_MEMBER"

	// Runtime
	ETypeMismatch            = "E_TYPE_MISMATCH"
	EArityMismatch           = "E_ARITY_MISMATCH"
	EUndefinedValue          = "E_UNDEFINED_VALUE"
	EUndefinedIdentifier     = "E_UNDEFINED_IDENTIFIER"
	EDuplicateIdentifier     = "E_DUPLICATE_IDENTIFIER"
	EConstReassign           = "E_CONST_REASSIGN"
	EPropertyNotFound        = "E_PROPERTY_NOT_FOUND"
	EIndexOutOfBounds        = "E_INDEX_OUT_OF_BOUNDS"
	EInvalidAssignTarget     = "E_INVALID_ASSIGNMENT_TARGET"
	EInvalidCallTarget       = "E_INVALID_CALL_TARGET"
	EInvalidConstructorArity = "E_INVALID_CONSTRUCTOR_ARITY"
	EOutOfRange              = "E_OUT_OF_RANGE"
	EParseFailure            = "E_PARSE_FAILURE"
	EInvalidStep             = "E_INVALID_STEP"
	EInvalidRange            = "E_INVALID_RANGE"
	EDivisionByZero          = "E_DIVISION_BY_ZERO"
	EImportCycle             = "E_IMPORT_CYCLE"
	EModuleDenied            = "E_MODULE_DENIED"
	EIO                      = "E_IO"
)

// Diagnostic represents a lex, parse, check or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.Line, d.Span.Col)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatWithSource formats a diagnostic in pretty form followed by the
// offending source line and a caret under the reported column.
func FormatWithSource(d Diagnostic, source string) string {
	out := FormatDiagnostic(d, true)
	if d.Span == nil || d.Span.Line <= 0 {
		return out
	}
	lines := strings.Split(source, "\n")
	if d.Span.Line > len(lines) {
		return out
	}
	text := strings.TrimRight(lines[d.Span.Line-1], "\r")
	gutter := fmt.Sprintf("%d", d.Span.Line)
	pad := strings.Repeat(" ", len(gutter))
	col := d.Span.Col
	if col < 1 {
		col = 1
	}
	if col > len(text)+1 {
		col = len(text) + 1
	}
	out += fmt.Sprintf("\n %s |\n %s | %s\n %s | %s^", pad, gutter, text, pad, strings.Repeat(" ", col-1))
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
