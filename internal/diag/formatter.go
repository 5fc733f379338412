package diag

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiBlue  = "\x1b[34m"
	ansiCyan  = "\x1b[36m"
	ansiYel   = "\x1b[33m"
)

// Formatter renders diagnostics with the offending source line and a caret
// underline, rustc style:
//
//	error[PARSER_UNEXPECTED_TOKEN]: expected ";", found "^"
//	 --> top.vd:3:11
//	  |
//	3 |     q = a ^ b;
//	  |           ^
type Formatter struct {
	w       io.Writer
	color   bool
	sources map[string]string // filename -> source text
}

// NewFormatter creates a formatter writing to w. color enables ANSI escapes.
func NewFormatter(w io.Writer, color bool) *Formatter {
	return &Formatter{w: w, color: color, sources: make(map[string]string)}
}

// AddSource registers the source text used to render snippets for filename.
func (f *Formatter) AddSource(filename, src string) {
	f.sources[filename] = src
}

func (f *Formatter) paint(code, s string) string {
	if !f.color {
		return s
	}
	return code + s + ansiReset
}

func (f *Formatter) severityColor(s Severity) string {
	switch s {
	case SeverityWarning:
		return ansiYel
	case SeverityNote:
		return ansiCyan
	}
	return ansiRed
}

// Format writes one diagnostic.
func (f *Formatter) Format(d Diagnostic) {
	severity := string(d.Severity)
	if severity == "" {
		severity = string(SeverityError)
	}
	header := severity
	if d.Code != "" {
		header = fmt.Sprintf("%s[%s]", severity, d.Code)
	}
	fmt.Fprintf(f.w, "%s: %s\n", f.paint(ansiBold+f.severityColor(d.Severity), header), f.paint(ansiBold, d.Message))

	src, ok := f.sources[d.Span.Filename]
	if !ok || !d.Span.IsValid() {
		if d.Span.IsValid() {
			fmt.Fprintf(f.w, "  %s %s\n", f.paint(ansiBlue, "-->"), d.Span)
		}
		f.printHelp(d)
		return
	}

	lines := strings.Split(src, "\n")
	if d.Span.Line > len(lines) {
		f.printHelp(d)
		return
	}
	content := strings.TrimRight(lines[d.Span.Line-1], "\r")
	num := fmt.Sprintf("%d", d.Span.Line)
	pad := strings.Repeat(" ", len(num))

	fmt.Fprintf(f.w, "%s%s %s\n", pad, f.paint(ansiBlue, "-->"), d.Span)
	fmt.Fprintf(f.w, "%s %s\n", pad, f.paint(ansiBlue, "|"))
	fmt.Fprintf(f.w, "%s %s %s\n", f.paint(ansiBlue, num), f.paint(ansiBlue, "|"), content)
	fmt.Fprintf(f.w, "%s %s %s%s\n", pad, f.paint(ansiBlue, "|"),
		strings.Repeat(" ", d.Span.Column-1),
		f.paint(ansiBold+f.severityColor(d.Severity), strings.Repeat("^", caretWidth(src, d.Span, content))))
	f.printHelp(d)
}

// FormatAll writes every diagnostic followed by a summary line.
func (f *Formatter) FormatAll(ds []Diagnostic) {
	errors := 0
	for _, d := range ds {
		f.Format(d)
		fmt.Fprintln(f.w)
		if d.Severity == SeverityError {
			errors++
		}
	}
	if errors > 0 {
		noun := "errors"
		if errors == 1 {
			noun = "error"
		}
		fmt.Fprintf(f.w, "%s\n", f.paint(ansiBold+ansiRed, fmt.Sprintf("%d %s emitted", errors, noun)))
	}
}

func (f *Formatter) printHelp(d Diagnostic) {
	if d.Help != "" {
		fmt.Fprintf(f.w, "  = %s: %s\n", f.paint(ansiBold, "help"), d.Help)
	}
}

// caretWidth is the number of runes the span covers on its first line,
// at least one so zero-width spans (end of input) still get a caret.
func caretWidth(src string, s Span, content string) int {
	end := s.End
	if end > len(src) {
		end = len(src)
	}
	start := s.Start
	if start > end {
		start = end
	}
	covered := src[start:end]
	if i := strings.IndexByte(covered, '\n'); i >= 0 {
		covered = covered[:i]
	}
	n := utf8.RuneCountInString(covered)
	if room := utf8.RuneCountInString(content) - (s.Column - 1); n > room && room > 0 {
		n = room
	}
	if n < 1 {
		n = 1
	}
	return n
}
