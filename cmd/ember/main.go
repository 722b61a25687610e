// Command ember is the Ember language command-line driver.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/emberlang/ember/pkg/capabilities"
	"github.com/emberlang/ember/pkg/config"
	"github.com/emberlang/ember/pkg/runtime"
	"github.com/emberlang/ember/pkg/stdlib"
)

const version = "0.3.0"

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file (default: ./ember.toml, then ~/.ember/config.toml)",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "override log.level: debug, info, warn or error",
	}
	colorFlag = cli.StringFlag{
		Name:  "color",
		Usage: "override output.color: auto, always or never",
	}
	prettyFlag = cli.BoolFlag{
		Name:  "pretty",
		Usage: "render diagnostics for humans",
	}
	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "render diagnostics as JSON",
	}
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// exitError carries the process exit code out of a command action.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// exit wraps err with the exit code it maps to. The error has already been
// reported when this is called.
func exit(err error) error {
	return &exitError{code: runtime.ExitCode(err), err: err}
}

// driver holds what every command needs: streams, configuration and the
// logger built from it.
type driver struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger
	out     *printer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	d := &driver{stdin: stdin, stdout: stdout, stderr: stderr}
	app := d.newApp()
	err := app.Run(args)
	if err == nil {
		return runtime.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Flag parsing errors land here.
	fmt.Fprintln(stderr, "ember:", err)
	return runtime.ExitFailure
}

func (d *driver) newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ember"
	app.Usage = "the Ember scripting language"
	app.Version = version
	app.Writer = d.stdout
	app.ErrWriter = d.stderr
	app.Flags = []cli.Flag{
		configFileFlag,
		logLevelFlag,
		colorFlag,
		prettyFlag,
		jsonFlag,
	}
	app.Commands = d.commands()
	return app
}

// action wraps a command action so configuration is loaded first.
func (d *driver) action(fn func(*cli.Context) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		if err := d.setup(ctx); err != nil {
			fmt.Fprintln(d.stderr, "ember:", err)
			return &exitError{code: runtime.ExitFailure, err: err}
		}
		return fn(ctx)
	}
}

// setup loads configuration and applies the global flag overrides.
func (d *driver) setup(ctx *cli.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, path, err := config.Load(ctx.GlobalString(configFileFlag.Name), cwd)
	if err != nil {
		return err
	}
	if level := ctx.GlobalString(logLevelFlag.Name); level != "" {
		cfg.Log.Level = level
	}
	if c := ctx.GlobalString(colorFlag.Name); c != "" {
		cfg.Output.Color = c
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.cfg, d.cfgPath = cfg, path
	d.logger = cfg.NewLogger(d.stderr)
	if path != "" {
		d.logger.Debug("loaded configuration", "path", path)
	}

	var pretty bool
	switch {
	case ctx.GlobalBool(jsonFlag.Name):
		pretty = false
	case ctx.GlobalBool(prettyFlag.Name):
		pretty = true
	default:
		pretty = isTerminal(d.stderr)
	}
	d.out = newPrinter(d.stderr, pretty, useColor(cfg.Output.Color, d.stderr))
	return nil
}

// policy builds the module policy from config, letting command flags
// replace either list.
func (d *driver) policy(ctx *cli.Context) *capabilities.Policy {
	allow, deny := d.cfg.Modules.Allow, d.cfg.Modules.Deny
	if ctx.IsSet(allowFlag.Name) {
		allow = ctx.StringSlice(allowFlag.Name)
	}
	if ctx.IsSet(denyFlag.Name) {
		deny = ctx.StringSlice(denyFlag.Name)
	}
	return capabilities.New(allow, deny)
}

// newRuntime builds a runtime from config and command flags.
func (d *driver) newRuntime(ctx *cli.Context, opts ...runtime.Option) *runtime.Runtime {
	base := []runtime.Option{
		runtime.WithStdlib(stdlib.Default()),
		runtime.WithStdout(d.stdout),
		runtime.WithStderr(d.stderr),
		runtime.WithLogger(d.logger),
		runtime.WithPolicy(d.policy(ctx)),
		runtime.WithImportCache(d.cfg.Imports.CacheSize),
	}
	if d.cfg.Imports.BaseDir != "" {
		base = append(base, runtime.WithBaseDir(d.cfg.Imports.BaseDir))
	}
	return runtime.New(append(base, opts...)...)
}
