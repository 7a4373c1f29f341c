// Package ui prints colored status output for one-shot runs. Everything
// goes to stderr so stdout stays clean for the rewritten code.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/youruser/mend/internal/diff"
)

var (
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
)

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, format+"\n", a...)
}

// PrintSummary reports what a rewrite did: the line-level diff counts and
// any per-edit warnings.
func PrintSummary(s diff.Summary, applied, failed int, warnings []string) {
	if s.IsZero() && applied == 0 && failed == 0 {
		Info("No changes.")
	} else {
		Success("+%d -%d ~%d (%d applied, %d skipped)", s.Additions, s.Deletions, s.Changes, applied, failed)
	}
	for _, w := range warnings {
		Warning("  %s", w)
	}
}

// PrintExplanation prints the model's explanation, if any, indented under
// a header.
func PrintExplanation(text string) {
	if text == "" {
		return
	}
	InfoColor.Fprintln(os.Stderr, "--- Explanation ---")
	fmt.Fprintln(os.Stderr, text)
}
