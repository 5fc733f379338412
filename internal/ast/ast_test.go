package ast

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleModule() *Module {
	return &Module{
		Name: "m",
		Declarations: []Declaration{
			&Port{Direction: Input, Name: "a", Width: 1},
			&Port{Direction: Output, IsReg: true, Name: "q", Width: 4},
			&ConditionalBlock{
				Condition: "FLAG",
				Declarations: []Declaration{
					&Combinatorial{Statements: []Statement{
						&Switch{
							Subject: &Identifier{},
							Cases: []Case{{
								Match: &Identifier{Name: "X"},
								Body: &Assignment{Target: "q", Expr: &BinaryOp{
									Left:  &Identifier{Name: "a"},
									Op:    BitOr,
									Right: &Literal{Text: "'b1"},
								}},
							}},
						},
					}},
				},
			},
		},
	}
}

func TestString(t *testing.T) {
	got := sampleModule().String()
	want := `Module{name:"m", declarations:[Port{input,false,"a",1}, Port{output,true,"q",4}, ` +
		`ConditionalBlock{condition:"FLAG", declarations:[Combinatorial([Switch{Identifier(""), ` +
		`cases:[(Identifier("X"), Assignment{"q", BinaryOp(Identifier("a"), BitOr, Literal("'b1"))})], default:None}])]}]}`
	if got != want {
		t.Fatalf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestMarshalJSONKinds(t *testing.T) {
	data, err := json.Marshal(sampleModule())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`"kind":"port"`,
		`"direction":"output"`,
		`"kind":"conditional_block"`,
		`"kind":"switch"`,
		`"kind":"binary_op"`,
		`"op":"|"`,
		`"kind":"literal"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, `"default"`) {
		t.Errorf("nil default should be omitted: %s", out)
	}
}

func TestInspectOrder(t *testing.T) {
	var seen []string
	Inspect(sampleModule(), func(n Node) bool {
		switch n := n.(type) {
		case *Port:
			seen = append(seen, "port:"+n.Name)
		case *Identifier:
			seen = append(seen, "id:"+n.Name)
		case *Assignment:
			seen = append(seen, "assign:"+n.Target)
		}
		return true
	})
	want := []string{"port:a", "port:q", "id:", "id:X", "assign:q", "id:a"}
	if strings.Join(seen, " ") != strings.Join(want, " ") {
		t.Fatalf("visit order %v, want %v", seen, want)
	}
}

func TestIdentifiersSkipsPlaceholderAndLiterals(t *testing.T) {
	e := &BinaryOp{
		Left:  &BinaryOp{Left: &Identifier{Name: "a"}, Op: Plus, Right: &Literal{Text: "'d1"}},
		Op:    Minus,
		Right: &Identifier{Name: "b"},
	}
	got := Identifiers(e)
	if strings.Join(got, ",") != "a,b" {
		t.Fatalf("Identifiers = %v", got)
	}
	if !IsPlaceholder(&Identifier{}) || IsPlaceholder(&Identifier{Name: "x"}) || IsPlaceholder(&Literal{}) {
		t.Fatal("IsPlaceholder misclassified")
	}
}
