package codegen

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/veridec/internal/ast"
)

// DefaultIndent is the number of spaces per nesting level.
const DefaultIndent = 4

// Option configures Generate.
type Option func(*generator)

// WithIndent sets the number of spaces per nesting level.
func WithIndent(n int) Option {
	return func(g *generator) {
		if n > 0 {
			g.unit = strings.Repeat(" ", n)
		}
	}
}

type generator struct {
	out  strings.Builder
	unit string
}

// Generate renders m as Verilog-2001 source text. The module must come from
// a parse with no errors; a tree that breaks the AST invariants (empty
// switch, zero width, missing names) panics.
func Generate(m *ast.Module, opts ...Option) string {
	g := &generator{unit: strings.Repeat(" ", DefaultIndent)}
	for _, opt := range opts {
		opt(g)
	}
	g.module(m)
	return g.out.String()
}

func (g *generator) line(level int, format string, args ...any) {
	g.out.WriteString(strings.Repeat(g.unit, level))
	fmt.Fprintf(&g.out, format, args...)
	g.out.WriteByte('\n')
}

func (g *generator) module(m *ast.Module) {
	if m == nil {
		panic("codegen: nil module")
	}
	if m.Name == "" {
		panic("codegen: module without a name")
	}

	var ports []string
	for _, d := range m.Declarations {
		if p, ok := d.(*ast.Port); ok {
			ports = append(ports, p.Name)
		}
	}
	if len(ports) == 0 {
		g.line(0, "module %s;", m.Name)
	} else {
		g.line(0, "module %s (%s);", m.Name, strings.Join(ports, ", "))
	}

	g.declarations(m.Declarations, 1, newScope(nil, m.Declarations), false)
	g.line(0, "endmodule")
}

// declarations emits decls at the given level. inGenerate is set once the
// output is already inside a generate region.
func (g *generator) declarations(decls []ast.Declaration, level int, sc *scope, inGenerate bool) {
	for _, d := range decls {
		switch d := d.(type) {
		case *ast.Port:
			if inGenerate {
				panic(fmt.Sprintf("codegen: port %q inside a generate block", d.Name))
			}
			reg := ""
			if d.IsReg {
				reg = "reg "
			}
			g.line(level, "%s %s%s%s;", d.Direction, reg, width(d.Width), name(d.Name))
		case *ast.Net:
			g.line(level, "%s %s%s;", d.Kind, width(d.Width), name(d.Name))
		case *ast.Combinatorial:
			g.implicit(d, level, sc)
			g.line(level, "always @* begin")
			for _, s := range d.Statements {
				g.statement(s, level+1)
			}
			g.line(level, "end")
		case *ast.ConditionalBlock:
			if d.Condition == "" {
				panic("codegen: generate block without a condition")
			}
			inner := level
			if !inGenerate {
				g.line(level, "generate")
				inner = level + 1
			}
			g.line(inner, "if (%s) begin", d.Condition)
			g.declarations(d.Declarations, inner+1, newScope(sc, d.Declarations), true)
			g.line(inner, "end")
			if !inGenerate {
				g.line(level, "endgenerate")
			}
		default:
			panic(fmt.Sprintf("codegen: unexpected declaration %T", d))
		}
	}
}

// implicit declares every name used by c that no enclosing scope knows
// about. Names assigned anywhere in the scope become reg, even when this
// block only reads them; names never assigned become wire. Declarations
// follow first appearance.
func (g *generator) implicit(c *ast.Combinatorial, level int, sc *scope) {
	var order []string
	kinds := make(map[string]string)
	note := func(n, kind string) {
		if sc.lookup(n) {
			return
		}
		if prev, seen := kinds[n]; seen {
			if kind == "reg" && prev != "reg" {
				kinds[n] = "reg"
			}
			return
		}
		kinds[n] = kind
		order = append(order, n)
	}
	for _, s := range c.Statements {
		ast.Inspect(s, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.Assignment:
				note(name(n.Target), "reg")
			case *ast.Identifier:
				if n.Name == "" {
					break
				}
				if sc.driven(n.Name) {
					note(n.Name, "reg")
				} else {
					note(n.Name, "wire")
				}
			}
			return true
		})
	}
	for _, n := range order {
		g.line(level, "%s %s;", kinds[n], n)
		sc.declare(n, kinds[n])
	}
}

func (g *generator) statement(s ast.Statement, level int) {
	switch s := s.(type) {
	case *ast.Assignment:
		g.line(level, "%s", assignment(s))
	case *ast.Switch:
		if len(s.Cases) == 0 && s.Default == nil {
			panic("codegen: switch without cases or default")
		}
		g.line(level, "case (%s)", expr(s.Subject))
		for _, c := range s.Cases {
			g.arm(expr(c.Match), c.Body, level+1)
		}
		if s.Default != nil {
			g.arm("default", s.Default, level+1)
		}
		g.line(level, "endcase")
	default:
		panic(fmt.Sprintf("codegen: unexpected statement %T", s))
	}
}

// arm emits one case item. Single assignments stay on the label line.
func (g *generator) arm(label string, body ast.Statement, level int) {
	if a, ok := body.(*ast.Assignment); ok {
		g.line(level, "%s: %s", label, assignment(a))
		return
	}
	g.line(level, "%s: begin", label)
	g.statement(body, level+1)
	g.line(level, "end")
}

func assignment(a *ast.Assignment) string {
	return fmt.Sprintf("%s = %s;", name(a.Target), expr(a.Expr))
}

func expr(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Identifier:
		if e.Name == "" {
			return "/* unresolved */"
		}
		return e.Name
	case *ast.Literal:
		if e.Text == "" {
			panic("codegen: empty literal")
		}
		return e.Text
	case *ast.BinaryOp:
		right := expr(e.Right)
		if _, nested := e.Right.(*ast.BinaryOp); nested {
			// operators share one level and fold left; a right-nested
			// operand only comes from hand-built trees
			right = "(" + right + ")"
		}
		return fmt.Sprintf("%s %s %s", expr(e.Left), e.Op.Symbol(), right)
	}
	panic(fmt.Sprintf("codegen: unexpected expression %T", e))
}

func width(w int) string {
	switch {
	case w < 1:
		panic(fmt.Sprintf("codegen: invalid width %d", w))
	case w == 1:
		return ""
	}
	return fmt.Sprintf("[%d:0] ", w-1)
}

func name(n string) string {
	if n == "" {
		panic("codegen: empty name")
	}
	return n
}
