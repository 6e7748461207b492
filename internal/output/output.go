// Package output provides formatted output utilities for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AndreyAkinshin/nightowl/internal/report"
)

// Writer prints nightowl's console output: the end-of-run table and the
// few messages the CLI shows outside the log.
type Writer struct {
	out   io.Writer
	err   io.Writer
	color bool
	quiet bool
}

// New returns a Writer on the process streams, colored when stdout is a
// terminal.
func New() *Writer {
	return NewWithWriters(os.Stdout, os.Stderr, isTerminal())
}

// NewWithWriters returns a Writer on the given streams.
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{out: out, err: err, color: color}
}

// SetQuiet suppresses Info messages and the run table.
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// Color reports whether output is colored. The CLI uses it for the logger
// too, so console logs and the table agree.
func (w *Writer) Color() bool {
	return w.color
}

func (w *Writer) stdout(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// paint applies colors when enabled.
func (w *Writer) paint(c text.Colors, s string) string {
	if !w.color {
		return s
	}
	return c.Sprint(s)
}

// Info prints a message to stdout unless quiet.
func (w *Writer) Info(format string, args ...interface{}) {
	if w.quiet {
		return
	}
	w.stdout(format, args...)
}

// Warning prints "warning: ..." to stderr, also in quiet mode.
func (w *Writer) Warning(format string, args ...interface{}) {
	fmt.Fprintln(w.err, w.paint(text.Colors{text.FgYellow}, "warning: "+fmt.Sprintf(format, args...)))
}

// ErrorPrefix prints "error: ..." to stderr with the prefix in red.
func (w *Writer) ErrorPrefix(format string, args ...interface{}) {
	fmt.Fprintf(w.err, "%s %s\n", w.paint(text.Colors{text.FgRed}, "error:"), fmt.Sprintf(format, args...))
}

// StatusLabel renders a buildout status for people: "passed" -> "Passed".
func StatusLabel(status string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(status, "_", " "))
}

// RunSummary prints one table row per buildout and a totals footer
// (skipped in quiet mode).
func (w *Writer) RunSummary(s *report.Summary) {
	if w.quiet {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w.out)
	t.SetTitle("nightowl %s", s.ID)
	t.AppendHeader(table.Row{"BUILDOUT", "STATUS", "PATTERN", "TESTS", "FAILURES", "ERRORS", "NOTIFIED"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "TESTS", Align: text.AlignRight},
		{Name: "FAILURES", Align: text.AlignRight},
		{Name: "ERRORS", Align: text.AlignRight},
	})

	var tests, failures, errs, notified int
	for _, b := range s.Buildouts {
		status := w.paint(statusColor(b), StatusLabel(b.Status))
		t.AppendRow(table.Row{b.Name, status, b.Pattern, b.Tests, b.Failures, b.Errors, yesNo(b.Notified)})

		tests += b.Tests
		failures += b.Failures
		errs += b.Errors
		if b.Notified {
			notified++
		}
	}

	failed := len(s.Failed())
	overall := "Passed"
	if failed > 0 {
		overall = fmt.Sprintf("%d Failed", failed)
	}
	t.AppendFooter(table.Row{"TOTAL", overall, "", tests, failures, errs, notified})

	if w.color {
		t.SetStyle(table.StyleLight)
	}
	t.Render()
	w.stdout("report: %s", s.Directory)
}

func statusColor(b report.BuildoutResult) text.Colors {
	switch b.Status {
	case "passed":
		return text.Colors{text.FgGreen}
	case "unparseable":
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgRed}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// isTerminal returns true if stdout is a terminal.
func isTerminal() bool {
	if fi, _ := os.Stdout.Stat(); fi != nil {
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}
