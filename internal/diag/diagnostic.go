package diag

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Stage identifies which compiler phase produced the diagnostic.
type Stage string

const (
	StageLexer  Stage = "lexer"
	StageParser Stage = "parser"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Code is a stable identifier for a diagnostic.
type Code string

const (
	// Lexer errors
	CodeLexerIllegalCharacter    Code = "LEXER_ILLEGAL_CHARACTER"
	CodeLexerUnterminatedComment Code = "LEXER_UNTERMINATED_BLOCK_COMMENT"
	CodeLexerUnterminatedString  Code = "LEXER_UNTERMINATED_STRING"
	CodeLexerIntegerOverflow     Code = "LEXER_INTEGER_OVERFLOW"

	// Parser errors
	CodeParserUnexpectedToken  Code = "PARSER_UNEXPECTED_TOKEN"
	CodeParserMissingToken     Code = "PARSER_MISSING_TOKEN"
	CodeParserEmptySwitch      Code = "PARSER_EMPTY_SWITCH"
	CodeParserDuplicateDefault Code = "PARSER_DUPLICATE_DEFAULT"
	CodeParserInvalidWidth     Code = "PARSER_INVALID_WIDTH"
	CodeParserNestingTooDeep   Code = "PARSER_NESTING_TOO_DEEP"
)

// Span represents a location in source code. Start and End are byte
// offsets; Line and Column are 1-based and derived from Start.
type Span struct {
	Filename string `json:"file,omitempty"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsValid returns true if the span has valid location information.
func (s Span) IsValid() bool {
	return s.Line > 0 && s.Column > 0
}

// Locate computes the 1-based line and column of byte offset in src.
// Columns count runes, so a multi-byte character advances by one.
func Locate(src string, offset int) (line, column int) {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	before := src[:offset]
	line = strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	column = utf8.RuneCountInString(before[lineStart:]) + 1
	return line, column
}

// NewSpan builds a located span for the byte range [start, end) of src.
func NewSpan(filename, src string, start, end int) Span {
	line, col := Locate(src, start)
	return Span{Filename: filename, Line: line, Column: col, Start: start, End: end}
}

// Diagnostic is a compiler diagnostic surfaced to end-users.
type Diagnostic struct {
	Stage    Stage    `json:"stage"`
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	Span     Span     `json:"span"`
	Help     string   `json:"help,omitempty"`
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Message)
}

// WithHelp adds help text to the diagnostic.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// Sort orders diagnostics by span start. The sort is stable, so entries
// that share a start offset keep their relative order.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Span.Start < ds[j].Span.Start
	})
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
