package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// statusPrinter writes one-line status messages, colored when w is a terminal.
type statusPrinter struct {
	w       io.Writer
	success *color.Color
	warn    *color.Color
	failure *color.Color
	info    *color.Color
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	p := &statusPrinter{
		w:       w,
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		failure: color.New(color.FgRed, color.Bold),
		info:    color.New(color.FgCyan),
	}
	if !isTerminal(w) {
		for _, c := range []*color.Color{p.success, p.warn, p.failure, p.info} {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *statusPrinter) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.success.Sprintf(format, args...))
}

func (p *statusPrinter) Warn(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.warn.Sprintf(format, args...))
}

func (p *statusPrinter) Failure(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.failure.Sprintf(format, args...))
}

func (p *statusPrinter) Info(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.info.Sprintf(format, args...))
}
