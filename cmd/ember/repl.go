package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/emberlang/ember/pkg/evaluator"
	"github.com/emberlang/ember/pkg/runtime"
)

// lineReader is the part of liner.State the REPL loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// scanReader reads lines without editing when stdin is not a terminal.
type scanReader struct {
	s *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.s.Scan() {
		return r.s.Text(), nil
	}
	if err := r.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (d *driver) replCmd(ctx *cli.Context) error {
	session, err := d.newRuntime(ctx).NewSession()
	if err != nil {
		return d.report(err, "")
	}
	allowed := d.policy(ctx).Filter(session.Interpreter().ModuleNames())

	f, ok := d.stdin.(*os.File)
	if !ok || !isTerminal(f) {
		return d.repl(session, &scanReader{s: bufio.NewScanner(d.stdin)}, nil)
	}

	fmt.Fprintf(d.stdout, "Ember %s (%s)\nType :quit to exit.\n", version, modulesLine(allowed))
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := d.cfg.HistoryPath()
	if histPath != "" {
		if hf, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(hf)
			hf.Close()
		}
		defer func() {
			if err := os.MkdirAll(filepath.Dir(histPath), 0o755); err != nil {
				d.logger.Warn("cannot create history directory", "path", histPath, "err", err)
				return
			}
			hf, err := os.Create(histPath)
			if err != nil {
				d.logger.Warn("cannot save history", "path", histPath, "err", err)
				return
			}
			_, _ = ln.WriteHistory(hf)
			hf.Close()
		}()
	}
	return d.repl(session, ln, ln.AppendHistory)
}

// repl reads and evaluates input until EOF or :quit. Errors are reported
// and the session continues.
func (d *driver) repl(session *runtime.Session, in lineReader, remember func(string)) error {
	prompt := d.cfg.Repl.Prompt
	cont := strings.Repeat(".", len(strings.TrimRight(prompt, " "))) + " "
	var chunk []string

	for {
		p := prompt
		if session.Pending() {
			p = cont
		}
		line, err := in.Prompt(p)
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			session.Reset()
			chunk = chunk[:0]
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return d.report(err, "")
		}

		switch strings.TrimSpace(line) {
		case ":quit", ":q":
			return nil
		case ":reset":
			session.Reset()
			chunk = chunk[:0]
			continue
		}
		if remember != nil && strings.TrimSpace(line) != "" {
			remember(line)
		}

		chunk = append(chunk, line)
		evalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		value, more, err := session.Feed(evalCtx, line)
		stop()
		if more {
			continue
		}
		source := strings.Join(chunk, "\n")
		chunk = chunk[:0]

		if err != nil {
			if diags := runtime.Diagnostics(err); len(diags) > 0 {
				d.out.diagnostics(diags, source)
			} else {
				fmt.Fprintln(d.stderr, "error:", err)
			}
			continue
		}
		if value == nil {
			continue
		}
		if _, isNil := evaluator.Raw(value).(evaluator.Nil); isNil {
			continue
		}
		s, err := session.Interpreter().Stringify(value)
		if err != nil {
			fmt.Fprintln(d.stderr, "error:", err)
			continue
		}
		d.out.value(d.stdout, s)
	}
}
