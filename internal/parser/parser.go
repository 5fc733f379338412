package parser

import (
	"fmt"
	"math"

	"github.com/robert-at-pretension-io/veridec/internal/ast"
	"github.com/robert-at-pretension-io/veridec/internal/token"
)

// Parser consumes the token slice produced by the lexer and builds an AST.
//
// Grammar:
//
//	module        = "module" IDENT "{" declaration* "}" EOF
//	declaration   = portDecl | netDecl | combinatorial | genIf
//	portDecl      = "port" ("input" | "output") "reg"? IDENT ("[" INTEGER "]")? ";"
//	netDecl       = ("wire" | "reg") IDENT ("[" INTEGER "]")? ";"
//	combinatorial = "combinatorial" "{" statement* "}"
//	genIf         = "gen" "if" "(" IDENT ")" "{" ("case" expr ":" statement)* "}"
//	statement     = assignment | switch
//	assignment    = IDENT "=" expr ";"
//	switch        = "switch" "(" expr ")" "{" ("case" expr ":" statement)* ("default" ":" statement)? "}"
//	expr          = atom (("+" | "-" | "&" | "|") atom)*
//	atom          = IDENT | BITVECTOR
//
// All binary operators share one precedence level and associate to the left.
//
// Every parse method returns (node, ok). ok == false means an error was
// recorded and the caller must resynchronise. A nil node with ok == true
// means the construct was consumed cleanly but rejected (an error has been
// recorded) and must be left out of the tree.
type Parser struct {
	tokens   []token.Token
	pos      int
	errs     []Error
	depth    int
	maxDepth int
}

// DefaultMaxDepth bounds statement nesting.
const DefaultMaxDepth = 256

// MaxWidth is the largest accepted port or net width.
const MaxWidth = math.MaxInt32

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth caps statement nesting at n levels.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// Parse builds a Module from tokens. It collects every syntax error it can
// find, resynchronising at statement and declaration boundaries. When errs
// is non-empty the returned module is a best-effort tree and must not be
// handed to code generation. The module is nil only if the module header
// itself could not be read.
func Parse(tokens []token.Token, opts ...Option) (*ast.Module, []Error) {
	p := &Parser{tokens: tokens, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	if n := len(p.tokens); n == 0 || p.tokens[n-1].Kind != token.EOF {
		end := 0
		if n > 0 {
			end = p.tokens[n-1].Span.End
		}
		p.tokens = append(p.tokens[:n:n], token.Token{Kind: token.EOF, Span: token.Span{Start: end, End: end}})
	}
	m := p.parseModule()
	return m, p.errs
}

// peek returns the current token without consuming it.
func (p *Parser) peek() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) at(kind token.Kind) bool {
	return p.peek().Kind == kind
}

// advance consumes and returns the current token. EOF is never consumed.
func (p *Parser) advance() token.Token {
	tok := p.peek()
	if tok.Kind != token.EOF {
		p.pos++
	}
	return tok
}

// accept consumes the current token if it has the given kind.
func (p *Parser) accept(kind token.Kind) (token.Token, bool) {
	if p.at(kind) {
		return p.advance(), true
	}
	return token.Token{}, false
}

// expect consumes a token of the given kind or records an error without
// consuming anything.
func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	if tok, ok := p.accept(kind); ok {
		return tok, true
	}
	p.unexpected(describeKind(kind))
	return token.Token{}, false
}

func (p *Parser) expectIdent(what string) (token.Token, bool) {
	if tok, ok := p.accept(token.IDENTIFIER); ok {
		return tok, true
	}
	p.unexpected(what)
	return token.Token{}, false
}

// unexpected records that the current token is not what the grammar wants.
func (p *Parser) unexpected(expected string) {
	tok := p.peek()
	p.errs = append(p.errs, Error{
		Kind:     UnexpectedToken,
		Expected: expected,
		Found:    tok,
		Span:     tok.Span,
		Message:  fmt.Sprintf("expected %s, found %s", expected, tok.Describe()),
	})
}

func (p *Parser) errorAt(kind ErrorKind, tok token.Token, span token.Span, format string, args ...any) {
	p.errs = append(p.errs, Error{
		Kind:    kind,
		Found:   tok,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	})
}

func describeKind(kind token.Kind) string {
	switch kind {
	case token.IDENTIFIER, token.INTEGER, token.BITVECTOR, token.STRING:
		return kind.String()
	}
	return fmt.Sprintf("%q", kind.String())
}

// synchronize skips tokens up to the next boundary at the current nesting
// level: just past a ';', just past a balanced '{ }' group, or before the
// '}' that closes the enclosing block. Tokens listed in stops also end the
// skip without being consumed.
func (p *Parser) synchronize(stops ...token.Kind) {
	depth := 0
	for {
		tok := p.peek()
		switch tok.Kind {
		case token.EOF:
			return
		case token.LBRACE:
			depth++
		case token.RBRACE:
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		case token.SEMICOLON:
			if depth == 0 {
				p.advance()
				return
			}
		default:
			if depth == 0 && containsKind(stops, tok.Kind) {
				return
			}
		}
		p.advance()
	}
}

// recover resynchronises after a failed item and guarantees progress.
func (p *Parser) recover(start int, stops ...token.Kind) {
	p.synchronize(stops...)
	if p.pos == start && !p.at(token.RBRACE) && !p.at(token.EOF) {
		p.advance()
	}
}

func containsKind(kinds []token.Kind, k token.Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}

func (p *Parser) enter() bool {
	if p.depth >= p.maxDepth {
		tok := p.peek()
		p.errorAt(TooDeep, tok, tok.Span, "nesting exceeds the maximum depth of %d", p.maxDepth)
		return false
	}
	p.depth++
	return true
}

func (p *Parser) leave() { p.depth-- }

//  Module and declarations

func (p *Parser) parseModule() *ast.Module {
	start, ok := p.expect(token.MODULE)
	if !ok {
		return nil
	}
	name, ok := p.expectIdent("module name")
	if !ok {
		return nil
	}
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil
	}

	m := &ast.Module{Name: name.Text}
	m.Declarations = p.parseDeclarations()

	end, ok := p.expect(token.RBRACE)
	if !ok {
		m.Span = start.Span.Join(p.peek().Span)
		return m
	}
	m.Span = start.Span.Join(end.Span)
	if !p.at(token.EOF) {
		p.unexpected("end of input")
	}
	return m
}

var declarationStarts = []token.Kind{token.PORT, token.WIRE, token.REG, token.COMBINATORIAL, token.GEN}

// parseDeclarations reads declarations up to (not including) the closing '}'.
func (p *Parser) parseDeclarations() []ast.Declaration {
	decls := []ast.Declaration{}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		start := p.pos
		var (
			decl ast.Declaration
			ok   bool
		)
		switch p.peek().Kind {
		case token.PORT:
			decl, ok = p.parsePort()
		case token.WIRE, token.REG:
			decl, ok = p.parseNet()
		case token.COMBINATORIAL:
			decl, ok = p.parseCombinatorial()
		case token.GEN:
			decl, ok = p.parseGenIf()
		default:
			p.unexpected("declaration (port, wire, reg, combinatorial or gen)")
		}
		if !ok {
			p.recover(start, declarationStarts...)
			continue
		}
		if decl != nil {
			decls = append(decls, decl)
		}
	}
	return decls
}

func (p *Parser) parsePort() (ast.Declaration, bool) {
	start := p.advance() // port

	port := &ast.Port{Width: 1}
	switch p.peek().Kind {
	case token.INPUT:
		port.Direction = ast.Input
	case token.OUTPUT:
		port.Direction = ast.Output
	default:
		p.unexpected(`"input" or "output"`)
		return nil, false
	}
	p.advance()

	_, port.IsReg = p.accept(token.REG)

	name, ok := p.expectIdent("port name")
	if !ok {
		return nil, false
	}
	port.Name = name.Text

	if width, present, ok := p.parseWidthClause(); !ok {
		return nil, false
	} else if present {
		port.Width = width
	}

	end, ok := p.expect(token.SEMICOLON)
	if !ok {
		return nil, false
	}
	port.Span = start.Span.Join(end.Span)
	return port, true
}

func (p *Parser) parseNet() (ast.Declaration, bool) {
	start := p.advance() // wire | reg

	net := &ast.Net{Kind: ast.Wire, Width: 1}
	if start.Kind == token.REG {
		net.Kind = ast.Reg
	}

	name, ok := p.expectIdent(start.Text + " name")
	if !ok {
		return nil, false
	}
	net.Name = name.Text

	if width, present, ok := p.parseWidthClause(); !ok {
		return nil, false
	} else if present {
		net.Width = width
	}

	end, ok := p.expect(token.SEMICOLON)
	if !ok {
		return nil, false
	}
	net.Span = start.Span.Join(end.Span)
	return net, true
}

// parseWidthClause reads an optional "[" INTEGER "]".
func (p *Parser) parseWidthClause() (width int, present bool, ok bool) {
	if _, found := p.accept(token.LBRACKET); !found {
		return 0, false, true
	}
	lit, ok := p.expect(token.INTEGER)
	if !ok {
		return 0, true, false
	}
	if lit.Int < 1 || lit.Int > MaxWidth {
		p.errorAt(InvalidWidth, lit, lit.Span, "width must be between 1 and %d, found %d", MaxWidth, lit.Int)
		return 0, true, false
	}
	if _, ok := p.expect(token.RBRACKET); !ok {
		return 0, true, false
	}
	return int(lit.Int), true, true
}

func (p *Parser) parseCombinatorial() (ast.Declaration, bool) {
	start := p.advance() // combinatorial
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil, false
	}
	stmts := p.parseStatements()
	end, ok := p.expect(token.RBRACE)
	if !ok {
		return nil, false
	}
	return &ast.Combinatorial{Statements: stmts, Span: start.Span.Join(end.Span)}, true
}

// parseGenIf reads a generate conditional. Its case arms become a single
// Combinatorial holding one Switch whose subject is left unresolved.
func (p *Parser) parseGenIf() (ast.Declaration, bool) {
	start := p.advance() // gen
	if _, ok := p.expect(token.IF); !ok {
		return nil, false
	}
	if _, ok := p.expect(token.LPAREN); !ok {
		return nil, false
	}
	cond, ok := p.expectIdent("generate condition")
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.RPAREN); !ok {
		return nil, false
	}
	lbrace, ok := p.expect(token.LBRACE)
	if !ok {
		return nil, false
	}

	var cases []ast.Case
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		armStart := p.pos
		if !p.at(token.CASE) {
			p.unexpected(`"case" or "}"`)
			p.recover(armStart, token.CASE)
			continue
		}
		arm, ok := p.parseCaseArm()
		if !ok {
			p.recover(armStart, token.CASE)
			continue
		}
		if arm.Body != nil {
			cases = append(cases, arm)
		}
	}
	rbrace, ok := p.expect(token.RBRACE)
	if !ok {
		return nil, false
	}

	block := &ast.ConditionalBlock{
		Condition:    cond.Text,
		Declarations: []ast.Declaration{},
		Span:         start.Span.Join(rbrace.Span),
	}
	if len(cases) > 0 {
		body := lbrace.Span.Join(rbrace.Span)
		block.Declarations = append(block.Declarations, &ast.Combinatorial{
			Statements: []ast.Statement{&ast.Switch{
				Subject: &ast.Identifier{Span: token.Span{Start: lbrace.Span.Start, End: lbrace.Span.Start}},
				Cases:   cases,
				Span:    body,
			}},
			Span: body,
		})
	}
	return block, true
}

//  Statements

// parseStatements reads statements up to (not including) the closing '}'.
func (p *Parser) parseStatements() []ast.Statement {
	stmts := []ast.Statement{}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		start := p.pos
		stmt, ok := p.parseStatement()
		if !ok {
			p.recover(start, token.SWITCH)
			continue
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func (p *Parser) parseStatement() (ast.Statement, bool) {
	if !p.enter() {
		return nil, false
	}
	defer p.leave()

	switch p.peek().Kind {
	case token.IDENTIFIER:
		return p.parseAssignment()
	case token.SWITCH:
		return p.parseSwitch()
	}
	p.unexpected("statement (assignment or switch)")
	return nil, false
}

func (p *Parser) parseAssignment() (ast.Statement, bool) {
	target := p.advance()
	if _, ok := p.expect(token.ASSIGN); !ok {
		return nil, false
	}
	expr, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	end, ok := p.expect(token.SEMICOLON)
	if !ok {
		return nil, false
	}
	return &ast.Assignment{Target: target.Text, Expr: expr, Span: target.Span.Join(end.Span)}, true
}

func (p *Parser) parseSwitch() (ast.Statement, bool) {
	start := p.advance() // switch
	if _, ok := p.expect(token.LPAREN); !ok {
		return nil, false
	}
	subject, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.RPAREN); !ok {
		return nil, false
	}
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil, false
	}

	sw := &ast.Switch{Subject: subject, Cases: []ast.Case{}}
	sawDefault, sawArm := false, false
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		armStart := p.pos
		switch tok := p.peek(); tok.Kind {
		case token.CASE:
			sawArm = true
			if sawDefault {
				p.errorAt(UnexpectedToken, tok, tok.Span, "case arm after default")
				p.advance()
				p.recover(armStart, token.CASE, token.DEFAULT)
				continue
			}
			arm, ok := p.parseCaseArm()
			if !ok {
				p.recover(armStart, token.CASE, token.DEFAULT)
				continue
			}
			if arm.Body != nil {
				sw.Cases = append(sw.Cases, arm)
			}
		case token.DEFAULT:
			if sawDefault {
				p.errorAt(DuplicateDefault, tok, tok.Span, "switch has more than one default arm")
			}
			sawDefault, sawArm = true, true
			body, ok := p.parseDefaultArm()
			if !ok {
				p.recover(armStart, token.CASE, token.DEFAULT)
				continue
			}
			if sw.Default == nil {
				sw.Default = body
			}
		default:
			p.unexpected(`"case", "default" or "}"`)
			p.recover(armStart, token.CASE, token.DEFAULT)
		}
	}
	end, ok := p.expect(token.RBRACE)
	if !ok {
		return nil, false
	}
	sw.Span = start.Span.Join(end.Span)

	if len(sw.Cases) == 0 && sw.Default == nil {
		// arms that failed to parse have already been reported
		if !sawArm {
			p.errorAt(EmptySwitch, start, sw.Span, "switch must have at least one case or a default")
		}
		return nil, true
	}
	return sw, true
}

// parseCaseArm reads "case" expr ":" statement.
func (p *Parser) parseCaseArm() (ast.Case, bool) {
	p.advance() // case
	match, ok := p.parseExpr()
	if !ok {
		return ast.Case{}, false
	}
	if _, ok := p.expect(token.COLON); !ok {
		return ast.Case{}, false
	}
	body, ok := p.parseStatement()
	if !ok {
		return ast.Case{}, false
	}
	return ast.Case{Match: match, Body: body}, true
}

// parseDefaultArm reads "default" ":" statement.
func (p *Parser) parseDefaultArm() (ast.Statement, bool) {
	p.advance() // default
	if _, ok := p.expect(token.COLON); !ok {
		return nil, false
	}
	return p.parseStatement()
}

//  Expressions

func binaryOp(kind token.Kind) (ast.Op, bool) {
	switch kind {
	case token.PLUS:
		return ast.Plus, true
	case token.MINUS:
		return ast.Minus, true
	case token.AND:
		return ast.BitAnd, true
	case token.OR:
		return ast.BitOr, true
	}
	return 0, false
}

// parseExpr folds atoms left to right: a + b & c is (a + b) & c.
func (p *Parser) parseExpr() (ast.Expr, bool) {
	left, ok := p.parseAtom()
	if !ok {
		return nil, false
	}
	for {
		op, isOp := binaryOp(p.peek().Kind)
		if !isOp {
			return left, true
		}
		p.advance()
		right, ok := p.parseAtom()
		if !ok {
			return nil, false
		}
		left = &ast.BinaryOp{Left: left, Op: op, Right: right, Span: left.Pos().Join(right.Pos())}
	}
}

func (p *Parser) parseAtom() (ast.Expr, bool) {
	switch tok := p.peek(); tok.Kind {
	case token.IDENTIFIER:
		p.advance()
		return &ast.Identifier{Name: tok.Text, Span: tok.Span}, true
	case token.BITVECTOR:
		p.advance()
		return &ast.Literal{Text: tok.Text, Span: tok.Span}, true
	}
	p.unexpected("identifier or bit vector")
	return nil, false
}
