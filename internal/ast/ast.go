package ast

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/veridec/internal/token"
)

// Node is implemented by every tree node.
type Node interface {
	Pos() token.Span
	String() string
}

// Module is the root of a compilation unit.
//
//	module counter { ... }
//	       ^^^^^^^  Name
type Module struct {
	Name         string        `json:"name"`
	Declarations []Declaration `json:"declarations"`
	Span         token.Span    `json:"span"`
}

func (m *Module) Pos() token.Span { return m.Span }
func (m *Module) String() string {
	return fmt.Sprintf("Module{name:%q, declarations:%s}", m.Name, joinNodes(m.Declarations))
}

//  Declarations

// Declaration is a module-level item.
type Declaration interface {
	Node
	declNode()
}

// Direction is the direction of a port.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Port declares a module port.
//
//	port output reg q [8];
//	     ^^^^^^ ^^^ ^  ^
//	     |      |   |  Width
//	     |      |   Name
//	     |      IsReg
//	     Direction
type Port struct {
	Direction Direction  `json:"direction"`
	IsReg     bool       `json:"is_reg"`
	Name      string     `json:"name"`
	Width     int        `json:"width"`
	Span      token.Span `json:"span"`
}

func (*Port) declNode()         {}
func (p *Port) Pos() token.Span { return p.Span }
func (p *Port) String() string {
	return fmt.Sprintf("Port{%s,%t,%q,%d}", p.Direction, p.IsReg, p.Name, p.Width)
}

// NetKind is the storage class of a module-level net.
type NetKind int

const (
	Wire NetKind = iota
	Reg
)

func (k NetKind) String() string {
	if k == Reg {
		return "reg"
	}
	return "wire"
}

func (k NetKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Net declares an internal wire or reg.
//
//	wire carry [4];
type Net struct {
	Kind  NetKind    `json:"net_kind"`
	Name  string     `json:"name"`
	Width int        `json:"width"`
	Span  token.Span `json:"span"`
}

func (*Net) declNode()         {}
func (n *Net) Pos() token.Span { return n.Span }
func (n *Net) String() string {
	return fmt.Sprintf("Net{%s,%q,%d}", n.Kind, n.Name, n.Width)
}

// Combinatorial is a block of logic without internal state.
type Combinatorial struct {
	Statements []Statement `json:"statements"`
	Span       token.Span  `json:"span"`
}

func (*Combinatorial) declNode()         {}
func (c *Combinatorial) Pos() token.Span { return c.Span }
func (c *Combinatorial) String() string {
	return fmt.Sprintf("Combinatorial(%s)", joinNodes(c.Statements))
}

// ConditionalBlock is a generate-time conditional over nested declarations.
type ConditionalBlock struct {
	Condition    string        `json:"condition"`
	Declarations []Declaration `json:"declarations"`
	Span         token.Span    `json:"span"`
}

func (*ConditionalBlock) declNode()         {}
func (c *ConditionalBlock) Pos() token.Span { return c.Span }
func (c *ConditionalBlock) String() string {
	return fmt.Sprintf("ConditionalBlock{condition:%q, declarations:%s}", c.Condition, joinNodes(c.Declarations))
}

//  Statements

// Statement appears inside combinatorial blocks and switch arms.
type Statement interface {
	Node
	stmtNode()
}

// Assignment drives Target with the value of Expr.
type Assignment struct {
	Target string     `json:"target"`
	Expr   Expr       `json:"expr"`
	Span   token.Span `json:"span"`
}

func (*Assignment) stmtNode()         {}
func (a *Assignment) Pos() token.Span { return a.Span }
func (a *Assignment) String() string {
	return fmt.Sprintf("Assignment{%q, %s}", a.Target, a.Expr)
}

// Case is one arm of a Switch. Arms keep source order.
type Case struct {
	Match Expr      `json:"match"`
	Body  Statement `json:"body"`
}

// Switch selects one arm by comparing Subject against each Case.Match.
// A valid Switch has at least one case or a default.
type Switch struct {
	Subject Expr       `json:"switch_expr"`
	Cases   []Case     `json:"cases"`
	Default Statement  `json:"default,omitempty"`
	Span    token.Span `json:"span"`
}

func (*Switch) stmtNode()         {}
func (s *Switch) Pos() token.Span { return s.Span }
func (s *Switch) String() string {
	cases := make([]string, 0, len(s.Cases))
	for _, c := range s.Cases {
		cases = append(cases, fmt.Sprintf("(%s, %s)", c.Match, c.Body))
	}
	def := "None"
	if s.Default != nil {
		def = s.Default.String()
	}
	return fmt.Sprintf("Switch{%s, cases:[%s], default:%s}", s.Subject, strings.Join(cases, ", "), def)
}

//  Expressions

// Expr is implemented by every value-producing node.
type Expr interface {
	Node
	exprNode()
}

// Identifier reads a named signal. The empty name is the unresolved
// placeholder produced for gen-if switch subjects.
type Identifier struct {
	Name string     `json:"name"`
	Span token.Span `json:"span"`
}

func (*Identifier) exprNode()         {}
func (i *Identifier) Pos() token.Span { return i.Span }
func (i *Identifier) String() string  { return fmt.Sprintf("Identifier(%q)", i.Name) }

// IsPlaceholder reports whether e is the unresolved switch subject.
func IsPlaceholder(e Expr) bool {
	id, ok := e.(*Identifier)
	return ok && id.Name == ""
}

// Literal is raw literal text such as '4b1010, kept verbatim.
type Literal struct {
	Text string     `json:"text"`
	Span token.Span `json:"span"`
}

func (*Literal) exprNode()         {}
func (l *Literal) Pos() token.Span { return l.Span }
func (l *Literal) String() string  { return fmt.Sprintf("Literal(%q)", l.Text) }

// Op is a binary operator. All operators share one precedence level.
type Op int

const (
	Plus Op = iota
	Minus
	BitAnd
	BitOr
)

// Symbol returns the Verilog spelling of the operator.
func (o Op) Symbol() string {
	switch o {
	case Plus:
		return "+"
	case Minus:
		return "-"
	case BitAnd:
		return "&"
	case BitOr:
		return "|"
	}
	panic(fmt.Sprintf("ast: unknown operator %d", int(o)))
}

func (o Op) String() string {
	switch o {
	case Plus:
		return "Plus"
	case Minus:
		return "Minus"
	case BitAnd:
		return "BitAnd"
	case BitOr:
		return "BitOr"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

func (o Op) MarshalText() ([]byte, error) { return []byte(o.Symbol()), nil }

// BinaryOp is Left Op Right.
//
//	a + b & c   parses as   BinaryOp(BinaryOp(a, Plus, b), BitAnd, c)
type BinaryOp struct {
	Left  Expr       `json:"left"`
	Op    Op         `json:"op"`
	Right Expr       `json:"right"`
	Span  token.Span `json:"span"`
}

func (*BinaryOp) exprNode()         {}
func (b *BinaryOp) Pos() token.Span { return b.Span }
func (b *BinaryOp) String() string {
	return fmt.Sprintf("BinaryOp(%s, %s, %s)", b.Left, b.Op, b.Right)
}

func joinNodes[T Node](nodes []T) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, n.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
