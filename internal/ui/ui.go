// Package ui prints operator-facing messages. Diagnostics for later
// debugging belong in internal/log instead.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

var (
	msgOut io.Writer = os.Stderr

	colorOut = colorCapable(os.Stdout)
	colorMsg = colorCapable(os.Stderr)
)

func colorCapable(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetWriter redirects messages; nil restores stderr.
func SetWriter(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	msgOut = w
}

// SetColor forces color on or off for both streams.
func SetColor(enabled bool) {
	colorOut = enabled
	colorMsg = enabled
}

func paint(enabled bool, code, s string) string {
	if !enabled {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Bold styles s for stdout.
func Bold(s string) string { return paint(colorOut, "1", s) }

// Dim styles s for stdout.
func Dim(s string) string { return paint(colorOut, "2", s) }

// Path styles a filesystem path for stdout.
func Path(s string) string { return paint(colorOut, "36", s) }

// OKTag marks a healthy row.
func OKTag() string { return paint(colorOut, "32", "✓") }

// FailTag marks a broken row.
func FailTag() string { return paint(colorOut, "31", "✗") }

// Warn prints a warning.
func Warn(msg string) {
	fmt.Fprintln(msgOut, paint(colorMsg, "33", "Warning:"), msg)
}

// Warnf prints a formatted warning.
func Warnf(format string, args ...any) {
	Warn(fmt.Sprintf(format, args...))
}

// Error prints an error.
func Error(msg string) {
	fmt.Fprintln(msgOut, paint(colorMsg, "31", "Error:"), msg)
}

// Errorf prints a formatted error.
func Errorf(format string, args ...any) {
	Error(fmt.Sprintf(format, args...))
}

// Info prints a plain progress line.
func Info(msg string) {
	fmt.Fprintln(msgOut, msg)
}

// Infof prints a formatted progress line.
func Infof(format string, args ...any) {
	Info(fmt.Sprintf(format, args...))
}
