package evaluator

import (
	"os"
	"path/filepath"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/parser"
)

func (in *Interpreter) execImport(s *ast.ImportStmt, env *Environment) error {
	if s.Path == "" {
		return in.importModule(s.Name, env)
	}

	path, err := in.resolveImport(s.Path)
	if err != nil {
		return err
	}
	if in.importing.Contains(path) {
		return &RuntimeError{
			Code:    diagnostics.EImportCycle,
			Message: "import cycle through " + s.Path,
			Hint:    "move the shared declarations into a file both can import",
		}
	}
	program, err := in.loadFile(path)
	if err != nil {
		return err
	}
	in.log.Debug("import", "path", path, "name", s.Name, "wildcard", s.Wildcard)

	in.importing.Add(path)
	prevDir := in.dir
	in.dir = filepath.Dir(path)
	defer func() {
		in.importing.Remove(path)
		in.dir = prevDir
	}()

	modEnv := NewEnvironment(nil)
	for _, stmt := range program.Body {
		switch stmt.(type) {
		case *ast.VarDecl, *ast.FunctionDecl, *ast.StructDecl, *ast.EnumDecl, *ast.ImportStmt:
		default:
			continue
		}
		if _, err := in.EvalStmt(stmt, modEnv); err != nil {
			return err
		}
		if !s.Wildcard && modEnv.HasLocal(s.Name) {
			break
		}
	}

	if !s.Wildcard {
		if !modEnv.HasLocal(s.Name) {
			return newError(diagnostics.EUndefinedIdentifier, "'%s' is not declared in %s", s.Name, s.Path)
		}
		return importBinding(modEnv, env, s.Name)
	}
	for _, name := range modEnv.Names() {
		if err := importBinding(modEnv, env, name); err != nil {
			return err
		}
	}
	return nil
}

func importBinding(from, to *Environment, name string) error {
	v, err := from.Get(name)
	if err != nil {
		return err
	}
	if err := to.Define(name, v); err != nil {
		return err
	}
	return to.MakeConstant(name)
}

func (in *Interpreter) importModule(name string, env *Environment) error {
	loader, ok := in.opts.Modules[name]
	if !ok {
		return newError(diagnostics.EUndefinedIdentifier, "unknown module '%s'", name)
	}
	if in.opts.Policy != nil && !in.opts.Policy.Allows(name) {
		return &RuntimeError{
			Code:    diagnostics.EModuleDenied,
			Message: "module '" + name + "' is not allowed by the module policy",
			Hint:    "add it to [modules] allow in ember.toml",
		}
	}
	in.log.Debug("import module", "module", name)
	return env.DeclareConstant(name, loader(in))
}

func (in *Interpreter) resolveImport(path string) (string, error) {
	if !filepath.IsAbs(path) {
		base := in.dir
		if base == "" {
			wd, err := os.Getwd()
			if err != nil {
				return "", newError(diagnostics.EIO, "resolving %s: %v", path, err)
			}
			base = wd
		}
		path = filepath.Join(base, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", newError(diagnostics.EIO, "resolving %s: %v", path, err)
	}
	return abs, nil
}

// loadFile parses an imported file, once per path while it stays in the
// cache.
func (in *Interpreter) loadFile(path string) (*ast.BlockStmt, error) {
	if cached, ok := in.cache.Get(path); ok {
		in.log.Debug("import cache hit", "path", path)
		return cached.(*ast.BlockStmt), nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(diagnostics.EIO, "reading %s: %v", path, err)
	}
	program, err := parser.Parse(string(src), path)
	if err != nil {
		return nil, newError(diagnostics.EParseFailure, "parsing %s: %v", path, err)
	}
	in.cache.Add(path, program)
	return program, nil
}
