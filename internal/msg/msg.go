// Package msg prints colored diagnostics. Everything goes to stderr so that
// machine-readable output (e.g. a printed build plan) owns stdout.
package msg

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Out is the diagnostic sink, swappable in tests.
var Out io.Writer = os.Stderr

func emit(label, format string, a ...any) {
	fmt.Fprint(Out, label, ": ")
	fmt.Fprintf(Out, format, a...)
	fmt.Fprint(Out, "\n")
}

func Error(format string, a ...any) {
	emit(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	emit(color.YellowString("warn"), format, a...)
}

func Info(format string, a ...any) {
	emit(color.HiGreenString("info"), format, a...)
}

func Fatal(format string, a ...any) {
	emit(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

// IndentWriter indents every line written through it. Used to offset
// subprocess and clone output from our own diagnostics.
type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if !w.didIndent {
			w.W.Write([]byte(w.Indent))
			w.didIndent = true
		}
		w.W.Write([]byte{c})
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return len(p), nil
}
