package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/emberlang/ember/pkg/config"
	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
	"github.com/emberlang/ember/pkg/formatter"
	"github.com/emberlang/ember/pkg/lexer"
	"github.com/emberlang/ember/pkg/runtime"
	"github.com/emberlang/ember/pkg/stdlib"
)

var (
	allowFlag = cli.StringSliceFlag{
		Name:  "allow",
		Usage: "builtin module the program may import (repeatable, \"*\" for all); replaces modules.allow",
	}
	denyFlag = cli.StringSliceFlag{
		Name:  "deny",
		Usage: "builtin module the program may not import (repeatable); replaces modules.deny",
	}
	resultFlag = cli.BoolFlag{
		Name:  "result",
		Usage: "print the value of the last statement",
	}
	writeFlag = cli.BoolFlag{
		Name:  "write, w",
		Usage: "write the result to the source file instead of stdout",
	}
	checkFlag = cli.BoolFlag{
		Name:  "check",
		Usage: "exit with status 1 if the file is not formatted",
	}
	tokensFlag = cli.BoolFlag{
		Name:  "tokens",
		Usage: "list tokens instead of dumping the syntax tree",
	}
)

func (d *driver) commands() []cli.Command {
	return []cli.Command{
		{
			Action:    d.action(d.runCmd),
			Name:      "run",
			Usage:     "Run an Ember program",
			ArgsUsage: "<file|->",
			Flags:     []cli.Flag{allowFlag, denyFlag, resultFlag},
			Category:  "PROGRAM COMMANDS",
			Description: `
Runs the program after parsing and checking it. Use "-" to read the
program from stdin. Relative imports resolve next to the file unless
imports.base_dir is configured.`,
		},
		{
			Action:    d.action(d.checkCmd),
			Name:      "check",
			Usage:     "Parse and check a program without running it",
			ArgsUsage: "<file|->",
			Category:  "PROGRAM COMMANDS",
		},
		{
			Action:    d.action(d.fmtCmd),
			Name:      "fmt",
			Usage:     "Print a program in canonical form",
			ArgsUsage: "<file>",
			Flags:     []cli.Flag{writeFlag, checkFlag},
			Category:  "PROGRAM COMMANDS",
			Description: `
Comments are not preserved; fmt warns when the source has any.`,
		},
		{
			Action:    d.action(d.parseCmd),
			Name:      "parse",
			Usage:     "Dump the syntax tree or tokens of a program",
			ArgsUsage: "<file|->",
			Flags:     []cli.Flag{tokensFlag},
			Category:  "PROGRAM COMMANDS",
		},
		{
			Action:   d.action(d.replCmd),
			Name:     "repl",
			Usage:    "Start an interactive session",
			Flags:    []cli.Flag{allowFlag, denyFlag},
			Category: "INTERACTIVE COMMANDS",
			Description: `
Lines are evaluated as they complete; an unfinished construct continues
on the next line. Type :quit to leave and :reset to drop pending input.`,
		},
		{
			Action:   d.action(d.modulesCmd),
			Name:     "modules",
			Usage:    "List builtin functions, modules and std structs",
			Flags:    []cli.Flag{allowFlag, denyFlag},
			Category: "MISCELLANEOUS COMMANDS",
		},
		{
			Action:    d.action(d.configCmd),
			Name:      "dumpconfig",
			Usage:     "Show configuration values",
			ArgsUsage: "[file]",
			Category:  "MISCELLANEOUS COMMANDS",
			Description: `The dumpconfig command shows the effective configuration as TOML.`,
		},
	}
}

// readSource reads the program named by the first argument. "-" is stdin.
func (d *driver) readSource(ctx *cli.Context) (source, filename string, err error) {
	file := ctx.Args().First()
	if file == "" {
		fmt.Fprintf(d.stderr, "usage: ember %s %s\n", ctx.Command.Name, ctx.Command.ArgsUsage)
		return "", "", &exitError{code: runtime.ExitFailure}
	}
	var data []byte
	if file == "-" {
		data, err = io.ReadAll(d.stdin)
		file = "<stdin>"
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		d.out.message(diagnostics.EIO, "cannot read %s: %v", file, err)
		return "", "", &exitError{code: runtime.ExitFailure, err: err}
	}
	return string(data), file, nil
}

// report prints err with the best rendering available and returns the
// matching exit error.
func (d *driver) report(err error, source string) error {
	if diags := runtime.Diagnostics(err); len(diags) > 0 {
		d.out.diagnostics(diags, source)
	} else {
		fmt.Fprintln(d.stderr, "ember:", err)
	}
	return exit(err)
}

func (d *driver) runCmd(ctx *cli.Context) error {
	source, filename, err := d.readSource(ctx)
	if err != nil {
		return err
	}
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := d.newRuntime(ctx).Run(runCtx, source, filename)
	if err != nil {
		return d.report(err, source)
	}
	if ctx.Bool(resultFlag.Name) {
		fmt.Fprintln(d.stdout, evaluator.ToString(res.Value))
	}
	return nil
}

func (d *driver) checkCmd(ctx *cli.Context) error {
	source, filename, err := d.readSource(ctx)
	if err != nil {
		return err
	}
	diags := d.newRuntime(ctx).Check(source, filename)
	if len(diags) > 0 {
		d.out.diagnostics(diags, source)
		return &exitError{code: runtime.ExitDiagnostics, err: &runtime.DiagnosticError{Diagnostics: diags}}
	}
	if d.out.pretty {
		fmt.Fprintln(d.stdout, "No errors found.")
	} else {
		fmt.Fprintln(d.stdout, "[]")
	}
	return nil
}

func (d *driver) fmtCmd(ctx *cli.Context) error {
	source, filename, err := d.readSource(ctx)
	if err != nil {
		return err
	}
	formatted, err := d.newRuntime(ctx).Format(source, filename)
	if err != nil {
		return d.report(err, source)
	}
	if formatter.HasComments(source) {
		fmt.Fprintln(d.stderr, "warning: comments are not preserved by the formatter")
	}

	switch {
	case ctx.Bool(checkFlag.Name):
		if formatted != source {
			fmt.Fprintln(d.stdout, filename)
			return &exitError{code: runtime.ExitFailure}
		}
	case ctx.Bool("write"):
		if filename == "<stdin>" {
			fmt.Fprintln(d.stderr, "ember: cannot write formatted output back to stdin")
			return &exitError{code: runtime.ExitFailure}
		}
		if err := os.WriteFile(filename, []byte(formatted), 0o644); err != nil {
			d.out.message(diagnostics.EIO, "cannot write %s: %v", filename, err)
			return &exitError{code: runtime.ExitFailure, err: err}
		}
		d.logger.Info("formatted file", "file", filename)
	default:
		fmt.Fprint(d.stdout, formatted)
	}
	return nil
}

func (d *driver) parseCmd(ctx *cli.Context) error {
	source, filename, err := d.readSource(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(tokensFlag.Name) {
		tokens, err := lexer.Tokenize(source, filename)
		if err != nil {
			return d.report(err, source)
		}
		table := tablewriter.NewWriter(d.stdout)
		table.SetHeader([]string{"Line", "Col", "Kind", "Value"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		for _, tok := range tokens {
			table.Append([]string{
				strconv.Itoa(tok.Span.Line),
				strconv.Itoa(tok.Span.Col),
				tok.Kind.String(),
				tok.Value,
			})
		}
		table.Render()
		return nil
	}

	program, err := d.newRuntime(ctx).Parse(source, filename)
	if err != nil {
		return d.report(err, source)
	}
	dumper := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		DisableMethods:          true,
	}
	dumper.Fdump(d.stdout, program)
	return nil
}

func (d *driver) modulesCmd(ctx *cli.Context) error {
	reg := stdlib.Default()
	policy := d.policy(ctx)

	table := tablewriter.NewWriter(d.stdout)
	table.SetHeader([]string{"Kind", "Name", "Importable", "Description"})
	table.SetAutoWrapText(false)
	for _, e := range reg.Entries() {
		importable := "-"
		if e.Kind == "module" {
			importable = "no"
			if policy.Allows(e.Name) {
				importable = "yes"
			}
		}
		table.Append([]string{e.Kind, e.Name, importable, e.Doc})
	}
	table.Render()
	return nil
}

// configCmd is the dumpconfig command.
func (d *driver) configCmd(ctx *cli.Context) error {
	var comment string
	if d.cfgPath != "" {
		comment = "# Loaded from " + d.cfgPath + "\n\n"
	} else {
		comment = "# No configuration file found; these are the defaults.\n\n"
	}

	dump := d.stdout
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return d.report(err, "")
		}
		defer f.Close()
		dump = f
	}
	if _, err := io.WriteString(dump, comment); err != nil {
		return d.report(err, "")
	}
	if err := config.Encode(dump, d.cfg); err != nil {
		return d.report(err, "")
	}
	return nil
}

// modulesLine is the policy summary shown in the REPL banner.
func modulesLine(allowed []string) string {
	if len(allowed) == 0 {
		return "no builtin modules importable"
	}
	return "modules: " + strings.Join(allowed, ", ")
}
