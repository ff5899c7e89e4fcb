package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/swaggen/internal/contract"
)

// reporter writes progress, diagnostics and failures to the error stream.
type reporter struct {
	w       io.Writer
	verbose bool
}

func newReporter(w io.Writer, verbose bool) reporter {
	return reporter{w: w, verbose: verbose}
}

// Infof prints only in verbose mode.
func (r reporter) Infof(format string, args ...any) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.w, "[INFO] "+format+"\n", args...)
}

func (r reporter) Diagnostic(d contract.Diagnostic) {
	fmt.Fprintf(r.w, "[WARN] %s\n", d)
}

func (r reporter) Failure(f contract.Failure) {
	target := f.Path
	if f.Verb != "" {
		target = strings.ToUpper(f.Verb) + " " + f.Path
	}
	fmt.Fprintf(r.w, "[ERROR] %s %s: %s\n", f.Code, target, f.Message)
}

// Build reports everything a build produced and returns the failure count.
func (r reporter) Build(res contract.BuildResult) int {
	for _, d := range res.Diagnostics() {
		r.Diagnostic(d)
	}
	for _, f := range res.Failures {
		r.Failure(f)
	}
	r.Infof("built %d endpoint contracts (%d failed, %d schemas referenced)", len(res.Models), len(res.Failures), len(res.Referenced()))
	return len(res.Failures)
}
