package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/emberlang/ember/pkg/diagnostics"
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// useColor resolves the output.color setting against the stream.
func useColor(setting string, w io.Writer) bool {
	switch setting {
	case "always":
		return true
	case "never":
		return false
	}
	return isTerminal(w) && os.Getenv("NO_COLOR") == ""
}

// printer renders diagnostics and REPL values. Pretty output shows the
// source line under each diagnostic; otherwise one JSON array per report.
type printer struct {
	w      io.Writer
	pretty bool

	errorColor *color.Color
	arrowColor *color.Color
	hintColor  *color.Color
	valueColor *color.Color
}

func newPrinter(w io.Writer, pretty, colored bool) *printer {
	p := &printer{
		w:          w,
		pretty:     pretty,
		errorColor: color.New(color.FgRed, color.Bold),
		arrowColor: color.New(color.FgBlue),
		hintColor:  color.New(color.FgCyan),
		valueColor: color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.errorColor, p.arrowColor, p.hintColor, p.valueColor} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// diagnostics reports diags found in source.
func (p *printer) diagnostics(diags []diagnostics.Diagnostic, source string) {
	if !p.pretty {
		fmt.Fprintln(p.w, diagnostics.FormatDiagnostics(diags, false))
		return
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = p.paint(diagnostics.FormatWithSource(d, source))
	}
	fmt.Fprintln(p.w, strings.Join(parts, "\n\n"))
}

// paint colours the header, location and hint lines of a pretty diagnostic.
func (p *printer) paint(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case i == 0:
			lines[i] = p.errorColor.Sprint(line)
		case strings.HasPrefix(trimmed, "-->"):
			lines[i] = p.arrowColor.Sprint(line)
		case strings.HasPrefix(trimmed, "hint:"):
			lines[i] = p.hintColor.Sprint(line)
		}
	}
	return strings.Join(lines, "\n")
}

// message reports an error that carries no diagnostic, such as an I/O
// failure, in the same shape as diagnostics.
func (p *printer) message(code, format string, args ...any) {
	d := diagnostics.MakeDiag(code, fmt.Sprintf(format, args...), nil, "")
	p.diagnostics([]diagnostics.Diagnostic{d}, "")
}

// value prints a REPL result.
func (p *printer) value(w io.Writer, text string) {
	fmt.Fprintln(w, p.valueColor.Sprint(text))
}
