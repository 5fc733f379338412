// Package compiler wires the lexer, parser and code generator into a single
// per-file pipeline and converts stage errors into diagnostics.
package compiler

import (
	"fmt"

	"github.com/robert-at-pretension-io/veridec/internal/ast"
	"github.com/robert-at-pretension-io/veridec/internal/codegen"
	"github.com/robert-at-pretension-io/veridec/internal/diag"
	"github.com/robert-at-pretension-io/veridec/internal/lexer"
	"github.com/robert-at-pretension-io/veridec/internal/parser"
	"github.com/robert-at-pretension-io/veridec/internal/token"
)

// Unit is the result of compiling one source file. Exactly one of Verilog
// and Diagnostics is non-empty after Compile.
type Unit struct {
	Filename    string
	Source      string
	Module      *ast.Module // nil when Diagnostics is non-empty
	Verilog     string
	Diagnostics []diag.Diagnostic
}

// OK reports whether the unit has no diagnostics.
func (u *Unit) OK() bool { return len(u.Diagnostics) == 0 }

type options struct {
	maxDepth int
	indent   int
}

// Option configures a compilation.
type Option func(*options)

// WithMaxDepth bounds statement nesting in the parser.
func WithMaxDepth(n int) Option { return func(o *options) { o.maxDepth = n } }

// WithIndent sets the output indentation width.
func WithIndent(n int) Option { return func(o *options) { o.indent = n } }

func collect(opts []Option) options {
	o := options{maxDepth: parser.DefaultMaxDepth, indent: codegen.DefaultIndent}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Parse runs the front end only. On success Module is set; otherwise
// Diagnostics holds every lexer and parser error ordered by position.
func Parse(filename, src string, opts ...Option) *Unit {
	o := collect(opts)
	u := &Unit{Filename: filename, Source: src}

	toks, lexErrs := lexer.Tokenize(src)
	m, parseErrs := parser.Parse(toks, parser.WithMaxDepth(o.maxDepth))

	ds := make([]diag.Diagnostic, 0, len(lexErrs)+len(parseErrs))
	for _, e := range lexErrs {
		ds = append(ds, fromLexer(filename, src, e))
	}
	for _, e := range parseErrs {
		ds = append(ds, fromParser(filename, src, e))
	}
	diag.Sort(ds)
	if len(ds) > 0 {
		u.Diagnostics = ds
		return u
	}
	u.Module = m
	return u
}

// Generate renders the unit's module. It is a no-op for units with
// diagnostics.
func Generate(u *Unit, opts ...Option) {
	if !u.OK() || u.Module == nil {
		return
	}
	o := collect(opts)
	u.Verilog = codegen.Generate(u.Module, codegen.WithIndent(o.indent))
}

// Compile turns Veride source into Verilog text or diagnostics.
func Compile(filename, src string, opts ...Option) *Unit {
	u := Parse(filename, src, opts...)
	Generate(u, opts...)
	return u
}

func fromLexer(filename, src string, e lexer.Error) diag.Diagnostic {
	d := diag.Diagnostic{
		Stage:    diag.StageLexer,
		Severity: diag.SeverityError,
		Message:  e.Kind.String(),
		Span:     diag.NewSpan(filename, src, e.Span.Start, e.Span.End),
	}
	switch e.Kind {
	case lexer.IllegalCharacter:
		d.Code = diag.CodeLexerIllegalCharacter
		d.Message = fmt.Sprintf("illegal character %q", e.Char)
	case lexer.UnterminatedComment:
		d.Code = diag.CodeLexerUnterminatedComment
		d = d.WithHelp(`close the comment with "*/"`)
	case lexer.UnterminatedString:
		d.Code = diag.CodeLexerUnterminatedString
	case lexer.IntegerOverflow:
		d.Code = diag.CodeLexerIntegerOverflow
	}
	return d
}

var unsupportedOperators = map[token.Kind]bool{
	token.EQ:          true,
	token.SHL:         true,
	token.NONBLOCKING: true,
	token.XOR:         true,
}

func fromParser(filename, src string, e parser.Error) diag.Diagnostic {
	d := diag.Diagnostic{
		Stage:    diag.StageParser,
		Severity: diag.SeverityError,
		Message:  e.Message,
		Span:     diag.NewSpan(filename, src, e.Span.Start, e.Span.End),
	}
	switch e.Kind {
	case parser.UnexpectedToken:
		d.Code = diag.CodeParserUnexpectedToken
		if e.Found.Kind == token.EOF {
			d.Code = diag.CodeParserMissingToken
		}
		if unsupportedOperators[e.Found.Kind] {
			d = d.WithHelp(fmt.Sprintf("operator %q is not supported in expressions; use +, -, & or |", e.Found.Text))
		}
	case parser.InvalidWidth:
		d.Code = diag.CodeParserInvalidWidth
	case parser.EmptySwitch:
		d.Code = diag.CodeParserEmptySwitch
	case parser.DuplicateDefault:
		d.Code = diag.CodeParserDuplicateDefault
	case parser.TooDeep:
		d.Code = diag.CodeParserNestingTooDeep
	}
	return d
}
