package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
)

// BuiltinFunc is a native function. It receives its argument expressions
// unevaluated and evaluates them itself through the interpreter.
type BuiltinFunc func(in *Interpreter, args []ast.Expr, env *Environment) (Value, error)

// ModuleLoader builds a builtin module object whose fields are usually
// *Native values.
type ModuleLoader func(in *Interpreter) *Object

// StdMethodFunc implements one method of a std struct.
type StdMethodFunc func(in *Interpreter, self *StdInstance, args []Value) (Value, error)

// StdStruct is a native struct type constructed with `new Name(args)`.
// The methods size, items and str act as hooks for len, foreach and
// printing.
type StdStruct struct {
	Name    string
	Doc     string
	Ctor    func(in *Interpreter, args []Value) (any, error)
	Methods map[string]StdMethodFunc
}

// ModulePolicy decides which builtin modules a program may import.
type ModulePolicy interface {
	Allows(module string) bool
}

// DefaultImportCacheSize bounds the parsed-file cache when Options leaves
// it unset.
const DefaultImportCacheSize = 64

// Options configures an Interpreter.
type Options struct {
	Builtins   map[string]BuiltinFunc
	Modules    map[string]ModuleLoader
	StdStructs map[string]*StdStruct

	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// BaseDir resolves relative import paths. Empty means the working directory.
	BaseDir         string
	ImportCacheSize int
	Policy          ModulePolicy

	// EchoErrors writes a one-line diagnostic to Stderr before Run returns an error.
	EchoErrors bool
}

// Interpreter evaluates Ember programs against a persistent global scope.
type Interpreter struct {
	opts      Options
	globals   *Environment
	log       *slog.Logger
	cache     *lru.Cache
	importing mapset.Set[string]
	// dir resolves relative imports; it follows the file being imported.
	dir string
	ctx context.Context
}

// New creates an interpreter.
func New(opts Options) (*Interpreter, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.ImportCacheSize <= 0 {
		opts.ImportCacheSize = DefaultImportCacheSize
	}
	cache, err := lru.New(opts.ImportCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating import cache: %w", err)
	}
	return &Interpreter{
		opts:      opts,
		globals:   NewEnvironment(nil),
		log:       opts.Logger,
		cache:     cache,
		importing: mapset.NewThreadUnsafeSet[string](),
		dir:       opts.BaseDir,
		ctx:       context.Background(),
	}, nil
}

// Globals returns the top-level scope.
func (in *Interpreter) Globals() *Environment {
	return in.globals
}

// Stdout returns the writer print builtins write to.
func (in *Interpreter) Stdout() io.Writer {
	return in.opts.Stdout
}

// Logger returns the interpreter's logger.
func (in *Interpreter) Logger() *slog.Logger {
	return in.log
}

// Builtin returns the registered native function with the given name.
func (in *Interpreter) Builtin(name string) (BuiltinFunc, bool) {
	fn, ok := in.opts.Builtins[name]
	return fn, ok
}

// StdStruct returns the registered std struct with the given name.
func (in *Interpreter) StdStruct(name string) (*StdStruct, bool) {
	st, ok := in.opts.StdStructs[name]
	return st, ok
}

// ModuleNames lists the registered builtin modules, sorted.
func (in *Interpreter) ModuleNames() []string {
	names := make([]string, 0, len(in.opts.Modules))
	for name := range in.opts.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run evaluates a program in the global scope. A top-level return ends the
// program with its value; a stray break or continue yields nil.
func (in *Interpreter) Run(program *ast.BlockStmt) (Value, error) {
	return in.RunContext(context.Background(), program)
}

// RunContext is Run with cancellation. Evaluation stops before the next
// statement or loop iteration once ctx is done.
func (in *Interpreter) RunContext(ctx context.Context, program *ast.BlockStmt) (Value, error) {
	in.ctx = ctx
	defer func() { in.ctx = context.Background() }()
	result, err := in.execStmts(program.Body, in.globals)
	if err != nil {
		if in.opts.EchoErrors {
			in.echo(err)
		}
		return nil, err
	}
	return unwrapSignal(result), nil
}

// Context is the context of the current run.
func (in *Interpreter) Context() context.Context { return in.ctx }

// interrupted returns a non-nil error once the run's context is done.
func (in *Interpreter) interrupted() error {
	if err := in.ctx.Err(); err != nil {
		return fmt.Errorf("evaluation stopped: %w", err)
	}
	return nil
}

func (in *Interpreter) echo(err error) {
	var re *RuntimeError
	if errors.As(err, &re) {
		fmt.Fprintln(in.opts.Stderr, diagnostics.FormatDiagnostic(re.Diagnostic(), true))
		return
	}
	fmt.Fprintf(in.opts.Stderr, "error: %v\n", err)
}

// unwrapSignal turns a signal that reached a call or program boundary
// into a plain value.
func unwrapSignal(v Value) Value {
	switch sig := v.(type) {
	case Return:
		if sig.Value == nil {
			return Nil{}
		}
		return sig.Value
	case Break, Continue:
		return Nil{}
	case nil:
		return Nil{}
	}
	return v
}
