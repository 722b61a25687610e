// Package runtime provides the top-level Ember runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/capabilities"
	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
	"github.com/emberlang/ember/pkg/formatter"
	"github.com/emberlang/ember/pkg/lexer"
	"github.com/emberlang/ember/pkg/parser"
	"github.com/emberlang/ember/pkg/stdlib"
	"github.com/emberlang/ember/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	Value evaluator.Value
}

// Runtime wires together all Ember components for program execution.
type Runtime struct {
	stdlib    *stdlib.Registry
	policy    *capabilities.Policy
	stdout    io.Writer
	stderr    io.Writer
	logger    *slog.Logger
	cacheSize int
	baseDir   string
	echo      bool
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdlib sets the stdlib registry.
func WithStdlib(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.stdlib = r
	}
}

// WithPolicy sets the module import policy.
func WithPolicy(p *capabilities.Policy) Option {
	return func(rt *Runtime) {
		rt.policy = p
	}
}

// WithStdout sets where print and println write.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithStderr sets where echoed runtime errors go.
func WithStderr(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stderr = w
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithImportCache bounds the number of parsed import files kept.
func WithImportCache(size int) Option {
	return func(rt *Runtime) {
		rt.cacheSize = size
	}
}

// WithBaseDir sets the directory relative imports resolve against. By
// default it is the directory of the file being run.
func WithBaseDir(dir string) Option {
	return func(rt *Runtime) {
		rt.baseDir = dir
	}
}

// WithEchoErrors makes the interpreter print runtime errors to stderr as
// they escape.
func WithEchoErrors() Option {
	return func(rt *Runtime) {
		rt.echo = true
	}
}

// New creates a new Runtime with the given options.
// By default the stdlib defaults are registered and every module is allowed.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdlib: stdlib.Default(),
		policy: capabilities.AllowAll(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Parse parses an Ember program. Syntax errors come back as a
// *DiagnosticError.
func (rt *Runtime) Parse(source, filename string) (*ast.BlockStmt, error) {
	program, err := parser.Parse(source, filename)
	if err != nil {
		return nil, asDiagnosticError(err)
	}
	return program, nil
}

// Run parses, validates, and executes an Ember program.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, err := rt.Parse(source, filename)
	if err != nil {
		return nil, err
	}
	if vDiags := validator.Validate(program); len(vDiags) > 0 {
		return nil, &DiagnosticError{Diagnostics: vDiags}
	}

	interp, err := rt.NewInterpreter(rt.dirFor(filename))
	if err != nil {
		return nil, err
	}
	rt.logger.Debug("running program", "file", filename, "statements", len(program.Body))
	value, err := interp.RunContext(ctx, program)
	if err != nil {
		rt.logger.Debug("program failed", "file", filename, "err", err)
		return nil, err
	}
	return &Result{Value: value}, nil
}

// Check parses and validates an Ember program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, err := rt.Parse(source, filename)
	if err != nil {
		return Diagnostics(err)
	}
	return validator.Validate(program)
}

// Format parses and formats an Ember program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, err := rt.Parse(source, filename)
	if err != nil {
		return "", err
	}
	return formatter.Format(program), nil
}

// NewInterpreter builds an interpreter from the runtime's configuration.
// dir resolves relative imports when no base directory was configured.
func (rt *Runtime) NewInterpreter(dir string) (*evaluator.Interpreter, error) {
	opts := evaluator.Options{
		Builtins:        rt.stdlib.Builtins(),
		Modules:         rt.stdlib.Modules(),
		StdStructs:      rt.stdlib.Structs(),
		Stdout:          rt.stdout,
		Stderr:          rt.stderr,
		Logger:          rt.logger,
		BaseDir:         dir,
		ImportCacheSize: rt.cacheSize,
		EchoErrors:      rt.echo,
	}
	// A nil *Policy stored in the interface would not compare equal to nil.
	if rt.policy != nil {
		opts.Policy = rt.policy
	} else {
		opts.Policy = capabilities.DenyAll()
	}
	return evaluator.New(opts)
}

func (rt *Runtime) dirFor(filename string) string {
	if rt.baseDir != "" {
		return rt.baseDir
	}
	if filename == "" || strings.HasPrefix(filename, "<") {
		return ""
	}
	return filepath.Dir(filename)
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

func asDiagnosticError(err error) error {
	var pe *parser.Error
	if errors.As(err, &pe) {
		return &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{pe.Diag}}
	}
	return err
}

// Diagnostics extracts the diagnostics carried by err: the list of a
// *DiagnosticError, the single diagnostic of a lex, parse or runtime error,
// or nil for anything else.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Diagnostics
	}
	var pe *parser.Error
	if errors.As(err, &pe) {
		return []diagnostics.Diagnostic{pe.Diag}
	}
	var le *lexer.Error
	if errors.As(err, &le) {
		return []diagnostics.Diagnostic{le.Diag}
	}
	var re *evaluator.RuntimeError
	if errors.As(err, &re) {
		return []diagnostics.Diagnostic{re.Diagnostic()}
	}
	return nil
}

// Process exit codes used by the ember command.
const (
	ExitOK          = 0
	ExitFailure     = 1 // usage and I/O errors
	ExitDiagnostics = 2 // lex, parse and check failures
	ExitRuntime     = 3
)

// ExitCode maps an error returned by Run, Check or Format to the exit code
// the ember command reports for it.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var de *DiagnosticError
	var pe *parser.Error
	var le *lexer.Error
	var re *evaluator.RuntimeError
	switch {
	case errors.As(err, &de), errors.As(err, &pe), errors.As(err, &le):
		return ExitDiagnostics
	case errors.As(err, &re), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ExitRuntime
	}
	return ExitFailure
}
