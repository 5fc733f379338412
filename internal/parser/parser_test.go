package parser

import (
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/veridec/internal/ast"
	"github.com/robert-at-pretension-io/veridec/internal/lexer"
)

func parse(t *testing.T, src string, opts ...Option) (*ast.Module, []Error) {
	t.Helper()
	toks, lexErrs := lexer.Tokenize(src)
	if len(lexErrs) > 0 {
		t.Fatalf("unexpected lexer errors: %v", lexErrs)
	}
	return Parse(toks, opts...)
}

func mustParse(t *testing.T, src string) *ast.Module {
	t.Helper()
	m, errs := parse(t, src)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if m == nil {
		t.Fatal("nil module without errors")
	}
	return m
}

func TestParseTree(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "ports and combinatorial",
			src:  "module m { port input clk [1]; port output reg q [1]; combinatorial { q = clk; } }",
			want: `Module{name:"m", declarations:[Port{input,false,"clk",1}, Port{output,true,"q",1}, ` +
				`Combinatorial([Assignment{"q", Identifier("clk")}])]}`,
		},
		{
			name: "width defaults to one",
			src:  "module m { port input a; port output b [8]; }",
			want: `Module{name:"m", declarations:[Port{input,false,"a",1}, Port{output,false,"b",8}]}`,
		},
		{
			name: "empty module",
			src:  "module empty { }",
			want: `Module{name:"empty", declarations:[]}`,
		},
		{
			name: "nets",
			src:  "module m { wire carry [4]; reg r; }",
			want: `Module{name:"m", declarations:[Net{wire,"carry",4}, Net{reg,"r",1}]}`,
		},
		{
			name: "left associative operators",
			src:  "module m { combinatorial { q = a + b & c; } }",
			want: `Module{name:"m", declarations:[Combinatorial([Assignment{"q", ` +
				`BinaryOp(BinaryOp(Identifier("a"), Plus, Identifier("b")), BitAnd, Identifier("c"))}])]}`,
		},
		{
			name: "switch with default",
			src:  "module m { combinatorial { switch (s) { case A: q = a; default: q = 'b0; } } }",
			want: `Module{name:"m", declarations:[Combinatorial([Switch{Identifier("s"), ` +
				`cases:[(Identifier("A"), Assignment{"q", Identifier("a")})], ` +
				`default:Assignment{"q", Literal("'b0")}}])]}`,
		},
		{
			name: "default only switch",
			src:  "module m { combinatorial { switch (s) { default: q = a; } } }",
			want: `Module{name:"m", declarations:[Combinatorial([Switch{Identifier("s"), cases:[], ` +
				`default:Assignment{"q", Identifier("a")}}])]}`,
		},
		{
			name: "nested switch",
			src:  "module m { combinatorial { switch (s) { case A: switch (t) { case B: q = a | b; } } } }",
			want: `Module{name:"m", declarations:[Combinatorial([Switch{Identifier("s"), cases:[(Identifier("A"), ` +
				`Switch{Identifier("t"), cases:[(Identifier("B"), Assignment{"q", BinaryOp(Identifier("a"), BitOr, Identifier("b"))})], default:None})], ` +
				`default:None}])]}`,
		},
		{
			name: "gen if",
			src:  "module m { gen if (FLAG) { case X: q = a; } }",
			want: `Module{name:"m", declarations:[ConditionalBlock{condition:"FLAG", declarations:[` +
				`Combinatorial([Switch{Identifier(""), cases:[(Identifier("X"), Assignment{"q", Identifier("a")})], default:None}])]}]}`,
		},
		{
			name: "gen if without cases",
			src:  "module m { gen if (F) { } }",
			want: `Module{name:"m", declarations:[ConditionalBlock{condition:"F", declarations:[]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.src).String()
			if got != tt.want {
				t.Fatalf("tree mismatch\ngot:  %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestSpans(t *testing.T) {
	src := "module m { port input a; }"
	m := mustParse(t, src)
	if m.Span.Start != 0 || m.Span.End != len(src) {
		t.Fatalf("module span = %v, want 0..%d", m.Span, len(src))
	}
	port := m.Declarations[0]
	if got := src[port.Pos().Start:port.Pos().End]; got != "port input a;" {
		t.Fatalf("port span covers %q", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		kinds    []ErrorKind
		contains string
	}{
		{
			name:     "zero width",
			src:      "module m { port input a [0]; }",
			kinds:    []ErrorKind{InvalidWidth},
			contains: "width must be between 1 and",
		},
		{
			name:     "width too large",
			src:      "module m { port input a [4294967296]; }",
			kinds:    []ErrorKind{InvalidWidth},
			contains: "found 4294967296",
		},
		{
			name:     "empty switch",
			src:      "module m { combinatorial { switch (s) { } } }",
			kinds:    []ErrorKind{EmptySwitch},
			contains: "at least one case or a default",
		},
		{
			name:     "unsupported operator",
			src:      "module m { combinatorial { q = a ^ b; } }",
			kinds:    []ErrorKind{UnexpectedToken},
			contains: `expected ";", found "^"`,
		},
		{
			name:     "trailing tokens",
			src:      "module m { } extra",
			kinds:    []ErrorKind{UnexpectedToken},
			contains: `expected end of input, found identifier "extra"`,
		},
		{
			name:     "missing closing brace",
			src:      "module m { port input a;",
			kinds:    []ErrorKind{UnexpectedToken},
			contains: `expected "}", found end of input`,
		},
		{
			name:     "duplicate default",
			src:      "module m { combinatorial { switch (s) { default: q = a; default: q = b; } } }",
			kinds:    []ErrorKind{DuplicateDefault},
			contains: "more than one default",
		},
		{
			name:     "case after default",
			src:      "module m { combinatorial { switch (s) { default: q = a; case A: q = b; } } }",
			kinds:    []ErrorKind{UnexpectedToken},
			contains: "case arm after default",
		},
		{
			name:     "bad direction",
			src:      "module m { port inout a; }",
			kinds:    []ErrorKind{UnexpectedToken},
			contains: `expected "input" or "output", found identifier "inout"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := parse(t, tt.src)
			if len(errs) != len(tt.kinds) {
				t.Fatalf("got %d errors, want %d: %v", len(errs), len(tt.kinds), errs)
			}
			for i, kind := range tt.kinds {
				if errs[i].Kind != kind {
					t.Errorf("error %d kind = %s, want %s", i, errs[i].Kind, kind)
				}
			}
			if !strings.Contains(errs[0].Message, tt.contains) {
				t.Errorf("message %q does not contain %q", errs[0].Message, tt.contains)
			}
		})
	}
}

func TestEmptySwitchDroppedFromTree(t *testing.T) {
	m, errs := parse(t, "module m { combinatorial { switch (s) { } q = a; } }")
	if len(errs) != 1 || errs[0].Kind != EmptySwitch {
		t.Fatalf("errors = %v", errs)
	}
	want := `Module{name:"m", declarations:[Combinatorial([Assignment{"q", Identifier("a")}])]}`
	if m.String() != want {
		t.Fatalf("got %s", m)
	}
}

func TestMultipleErrorsCollected(t *testing.T) {
	src := `module m {
    port inptu a;
    port output q
    combinatorial { q = ; }
}`
	m, errs := parse(t, src)
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), errs)
	}
	for i := 1; i < len(errs); i++ {
		if errs[i].Span.Start <= errs[i-1].Span.Start {
			t.Errorf("errors out of source order: %v", errs)
		}
	}
	if m == nil {
		t.Fatal("expected best-effort module")
	}
	if got := m.String(); got != `Module{name:"m", declarations:[Combinatorial([])]}` {
		t.Fatalf("best-effort tree = %s", got)
	}
}

func TestRecoveryStopsAtNextDeclaration(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "reg after missing semicolon",
			src:  "module m { wire a [4] reg x; }",
			want: `Module{name:"m", declarations:[Net{reg,"x",1}]}`,
		},
		{
			name: "wire after missing semicolon",
			src:  "module m { reg a [4] wire x; }",
			want: `Module{name:"m", declarations:[Net{wire,"x",1}]}`,
		},
		{
			name: "port after missing semicolon",
			src:  "module m { reg a port input x; }",
			want: `Module{name:"m", declarations:[Port{input,false,"x",1}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, errs := parse(t, tt.src)
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
			}
			if got := m.String(); got != tt.want {
				t.Fatalf("best-effort tree = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMissingHeaderReturnsNil(t *testing.T) {
	m, errs := parse(t, "combinatorial { q = a; }")
	if m != nil {
		t.Fatalf("module = %s, want nil", m)
	}
	if len(errs) != 1 || errs[0].Expected != `"module"` {
		t.Fatalf("errors = %v", errs)
	}
}

func TestRecoveryAlwaysProgresses(t *testing.T) {
	m, errs := parse(t, "module m { ] ] ) ; ( }")
	if m == nil {
		t.Fatal("expected module")
	}
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
}

func TestMaxDepth(t *testing.T) {
	src := "module m { combinatorial { " +
		"switch (a) { case b: switch (a) { case b: switch (a) { case b: switch (a) { case b: q = a; } } } } " +
		"} }"

	if _, errs := parse(t, src); len(errs) != 0 {
		t.Fatalf("default depth rejected shallow nesting: %v", errs)
	}

	m, errs := parse(t, src, WithMaxDepth(3))
	if len(errs) != 1 || errs[0].Kind != TooDeep {
		t.Fatalf("errors = %v, want one %s", errs, TooDeep)
	}
	if got := m.String(); got != `Module{name:"m", declarations:[Combinatorial([])]}` {
		t.Fatalf("best-effort tree = %s", got)
	}
}

func TestDeepNestingDoesNotOverflow(t *testing.T) {
	const levels = 5000
	var b strings.Builder
	b.WriteString("module m { combinatorial { ")
	for i := 0; i < levels; i++ {
		b.WriteString("switch (a) { case b: ")
	}
	b.WriteString("q = a;")
	b.WriteString(strings.Repeat(" }", levels))
	b.WriteString(" } }")

	_, errs := parse(t, b.String())
	if len(errs) != 1 || errs[0].Kind != TooDeep {
		t.Fatalf("got %d errors, want one %s", len(errs), TooDeep)
	}
}

func TestParseAddsMissingEOF(t *testing.T) {
	toks, _ := lexer.Tokenize("module m { }")
	m, errs := Parse(toks[:len(toks)-1])
	if len(errs) != 0 || m == nil {
		t.Fatalf("Parse without EOF: module=%v errs=%v", m, errs)
	}
}
