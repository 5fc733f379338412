package ast

import "fmt"

// Inspect traverses the tree rooted at n in depth-first order. It calls
// f(node) for each node; if f returns false the children of that node are
// skipped. Switch arms are visited as match expression then body.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *Module:
		for _, d := range n.Declarations {
			Inspect(d, f)
		}
	case *ConditionalBlock:
		for _, d := range n.Declarations {
			Inspect(d, f)
		}
	case *Combinatorial:
		for _, s := range n.Statements {
			Inspect(s, f)
		}
	case *Assignment:
		Inspect(n.Expr, f)
	case *Switch:
		Inspect(n.Subject, f)
		for _, c := range n.Cases {
			Inspect(c.Match, f)
			Inspect(c.Body, f)
		}
		if n.Default != nil {
			Inspect(n.Default, f)
		}
	case *BinaryOp:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *Port, *Net, *Identifier, *Literal:
	default:
		panic(fmt.Sprintf("ast.Inspect: unexpected node type %T", n))
	}
}

// Identifiers returns the names read by e in left-to-right order,
// excluding the unresolved placeholder.
func Identifiers(e Expr) []string {
	var names []string
	Inspect(e, func(n Node) bool {
		if id, ok := n.(*Identifier); ok && id.Name != "" {
			names = append(names, id.Name)
		}
		return true
	})
	return names
}
