package compiler

import (
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/veridec/internal/diag"
)

func TestCompileRoundTrip(t *testing.T) {
	src := "module m { port input clk [1]; port output reg q [1]; combinatorial { q = clk; } }"
	u := Compile("m.vd", src)
	if !u.OK() {
		t.Fatalf("unexpected diagnostics: %v", u.Diagnostics)
	}
	want := `Module{name:"m", declarations:[Port{input,false,"clk",1}, Port{output,true,"q",1}, ` +
		`Combinatorial([Assignment{"q", Identifier("clk")}])]}`
	if got := u.Module.String(); got != want {
		t.Fatalf("tree = %s", got)
	}
	for _, line := range []string{"module m (clk, q);", "input clk;", "output reg q;", "always @* begin", "q = clk;", "endmodule"} {
		if !strings.Contains(u.Verilog, line) {
			t.Errorf("verilog missing %q:\n%s", line, u.Verilog)
		}
	}
}

func TestCompileDeterministic(t *testing.T) {
	src := `module alu {
    port input a [8];
    port input b [8];
    port input op [2];
    port output reg y [8];
    combinatorial {
        switch (op) {
            case 'b00: y = a + b;
            case 'b01: y = a - b;
            case 'b10: y = a & b;
            default: y = a | b;
        }
    }
}`
	first := Compile("alu.vd", src)
	if !first.OK() {
		t.Fatalf("diagnostics: %v", first.Diagnostics)
	}
	for i := 0; i < 5; i++ {
		if got := Compile("alu.vd", src); got.Verilog != first.Verilog {
			t.Fatalf("compile %d produced different output", i)
		}
	}
}

func TestDiagnosticsReplaceOutput(t *testing.T) {
	u := Compile("bad.vd", "module m { combinatorial { q = a ^ b; } }")
	if u.OK() || u.Verilog != "" || u.Module != nil {
		t.Fatalf("expected diagnostics only, got verilog=%q module=%v", u.Verilog, u.Module)
	}
	d := u.Diagnostics[0]
	if d.Stage != diag.StageParser || d.Code != diag.CodeParserUnexpectedToken {
		t.Fatalf("diagnostic = %+v", d)
	}
	if d.Span.Line != 1 || d.Span.Column != 34 {
		t.Fatalf("span = %s, want 1:34", d.Span)
	}
	if !strings.Contains(d.Help, `"^"`) {
		t.Fatalf("help = %q", d.Help)
	}
}

func TestDiagnosticsOrderedByPosition(t *testing.T) {
	src := "module m {\n  port input a [0];\n  $\n}"
	u := Compile("order.vd", src)
	if len(u.Diagnostics) != 2 {
		t.Fatalf("got %d diagnostics: %v", len(u.Diagnostics), u.Diagnostics)
	}
	if u.Diagnostics[0].Stage != diag.StageParser || u.Diagnostics[0].Code != diag.CodeParserInvalidWidth {
		t.Errorf("first = %+v", u.Diagnostics[0])
	}
	if u.Diagnostics[1].Stage != diag.StageLexer || u.Diagnostics[1].Code != diag.CodeLexerIllegalCharacter {
		t.Errorf("second = %+v", u.Diagnostics[1])
	}
	if u.Diagnostics[1].Span.Line != 3 || u.Diagnostics[1].Span.Column != 3 {
		t.Errorf("lexer span = %s", u.Diagnostics[1].Span)
	}
}

func TestUnterminatedCommentDiagnostics(t *testing.T) {
	u := Compile("c.vd", "module m { /* never closed")
	var lexerErrs int
	for _, d := range u.Diagnostics {
		if d.Stage == diag.StageLexer {
			lexerErrs++
			if d.Code != diag.CodeLexerUnterminatedComment {
				t.Errorf("code = %s", d.Code)
			}
			if d.Help != `close the comment with "*/"` {
				t.Errorf("help = %q", d.Help)
			}
		}
	}
	if lexerErrs != 1 {
		t.Fatalf("got %d lexer diagnostics, want 1: %v", lexerErrs, u.Diagnostics)
	}
	if u.Diagnostics[0].Stage != diag.StageLexer {
		t.Fatalf("lexer diagnostic should come first: %v", u.Diagnostics)
	}
	last := u.Diagnostics[len(u.Diagnostics)-1]
	if last.Code != diag.CodeParserMissingToken {
		t.Fatalf("last = %+v", last)
	}
}

func TestCompileOptions(t *testing.T) {
	src := "module m { combinatorial { switch (a) { case b: switch (a) { case b: q = a; } } } }"
	if u := Compile("d.vd", src, WithMaxDepth(1)); u.OK() {
		t.Fatal("expected nesting diagnostic")
	} else if u.Diagnostics[0].Code != diag.CodeParserNestingTooDeep {
		t.Fatalf("code = %s", u.Diagnostics[0].Code)
	}

	u := Compile("i.vd", "module m { port input a; combinatorial { b = a; } }", WithIndent(2))
	if !strings.Contains(u.Verilog, "\n  input a;\n") {
		t.Fatalf("indent not applied:\n%s", u.Verilog)
	}
}
