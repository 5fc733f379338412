package driver

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/robert-at-pretension-io/veridec/internal/diag"
	"github.com/robert-at-pretension-io/veridec/internal/facts"
	"github.com/robert-at-pretension-io/veridec/internal/policy"
	"github.com/robert-at-pretension-io/veridec/internal/validator"
)

// File statuses in a build report.
const (
	StatusCompiled = "compiled"
	StatusCached   = "cached"
	StatusFailed   = "failed"
)

// BuildResult is the structured result of a build.
// This can be serialized to JSON for programmatic consumption.
type BuildResult struct {
	// Per-file outcome, in source order
	Files []FileResult `json:"files"`

	// Violations found by policy evaluation
	Violations []policy.Violation `json:"violations"`

	// Summary counts
	Summary Summary `json:"summary"`

	// Merged fact tables of every file that compiled
	Facts facts.Tables `json:"-"`
}

// FileResult is the outcome for one source file.
type FileResult struct {
	Path        string            `json:"path"`
	Output      string            `json:"output,omitempty"`
	Status      string            `json:"status"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`

	source string
}

// Summary provides aggregate counts
type Summary struct {
	Files       int `json:"files"`
	Compiled    int `json:"compiled"`
	Cached      int `json:"cached"`
	Failed      int `json:"failed"`
	Diagnostics int `json:"diagnostics"`
	Violations  int `json:"violations"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
	Info        int `json:"info"`
}

// Failed reports whether the build should exit non-zero: a file did not
// compile or a violation has error severity.
func (r *BuildResult) Failed() bool {
	return r.Summary.Failed > 0 || r.Summary.Errors > 0
}

// Diagnostics returns every file's diagnostics in report order.
func (r *BuildResult) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, f := range r.Files {
		out = append(out, f.Diagnostics...)
	}
	return out
}

func summarize(files []FileResult, violations []policy.Violation) Summary {
	s := Summary{Files: len(files), Violations: len(violations)}
	for _, f := range files {
		switch f.Status {
		case StatusCompiled:
			s.Compiled++
		case StatusCached:
			s.Cached++
		case StatusFailed:
			s.Failed++
		}
		s.Diagnostics += len(f.Diagnostics)
	}
	ps := policy.Summarize(violations)
	s.Errors, s.Warnings, s.Info = ps.Errors, ps.Warnings, ps.Info
	return s
}

// Report writes the result in the configured format. JSON reports are
// checked against the output schema before anything is written.
func (d *Driver) Report(result *BuildResult) error {
	if d.JSONOutput {
		return writeJSONReport(d.Stdout, result)
	}
	d.writeTextReport(result)
	return nil
}

func writeJSONReport(w io.Writer, result *BuildResult) error {
	v, err := validator.NewOutputValidator()
	if err != nil {
		return fmt.Errorf("loading output schema: %w", err)
	}
	if err := v.Validate(result); err != nil {
		return fmt.Errorf("build report violates the output schema: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

func (d *Driver) writeTextReport(result *BuildResult) {
	if ds := result.Diagnostics(); len(ds) > 0 {
		f := diag.NewFormatter(d.Stderr, d.Color)
		for _, fr := range result.Files {
			f.AddSource(fr.Path, fr.source)
		}
		f.FormatAll(ds)
	}

	w := d.Stdout
	if len(result.Violations) > 0 {
		fmt.Fprintf(w, "\n=== Policy Violations ===\n")
		for _, v := range result.Violations {
			icon := "ℹ"
			if v.Severity == "error" {
				icon = "✗"
			} else if v.Severity == "warning" {
				icon = "⚠"
			}
			fmt.Fprintf(w, "%s [%s] %s:%d:%d - %s\n", icon, v.Rule, v.File, v.Line, v.Column, v.Message)
		}
	}

	s := result.Summary
	fmt.Fprintf(w, "\n=== Build Summary ===\n")
	fmt.Fprintf(w, "  Files:    %d\n", s.Files)
	fmt.Fprintf(w, "  Compiled: %d\n", s.Compiled)
	fmt.Fprintf(w, "  Cached:   %d\n", s.Cached)
	fmt.Fprintf(w, "  Failed:   %d\n", s.Failed)

	fmt.Fprintf(w, "\n=== Policy Summary ===\n")
	fmt.Fprintf(w, "  Errors:   %d\n", s.Errors)
	fmt.Fprintf(w, "  Warnings: %d\n", s.Warnings)
	fmt.Fprintf(w, "  Info:     %d\n", s.Info)
}
