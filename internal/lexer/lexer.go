package lexer

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/robert-at-pretension-io/veridec/internal/token"
)

// ErrorKind classifies lexical errors.
type ErrorKind int

const (
	IllegalCharacter ErrorKind = iota
	UnterminatedComment
	UnterminatedString
	IntegerOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case IllegalCharacter:
		return "illegal character"
	case UnterminatedComment:
		return "unterminated block comment"
	case UnterminatedString:
		return "unterminated string literal"
	case IntegerOverflow:
		return "integer overflow"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a recoverable lexical error. Scanning always continues past it.
type Error struct {
	Kind ErrorKind
	Span token.Span
	Char rune // offending character for IllegalCharacter
}

func (e Error) Error() string {
	if e.Kind == IllegalCharacter {
		return fmt.Sprintf("%s %q at %s", e.Kind, e.Char, e.Span)
	}
	return fmt.Sprintf("%s at %s", e.Kind, e.Span)
}

// Lexer holds the mutable state of one scan over src.
type Lexer struct {
	src    string
	pos    int // byte offset of the next unread character
	tokens []token.Token
	errs   []Error
}

// Tokenize scans src into tokens. It never fails: unrecognised input is
// reported in the error slice and scanning resumes after it. The token
// slice always ends with an EOF token.
func Tokenize(src string) ([]token.Token, []Error) {
	l := &Lexer{src: src}
	l.run()
	return l.tokens, l.errs
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *Lexer) emit(kind token.Kind, start int) {
	l.tokens = append(l.tokens, token.Token{
		Kind: kind,
		Text: l.src[start:l.pos],
		Span: token.Span{Start: start, End: l.pos},
	})
}

func (l *Lexer) fail(kind ErrorKind, start, end int, ch rune) {
	l.errs = append(l.errs, Error{Kind: kind, Span: token.Span{Start: start, End: end}, Char: ch})
}

func (l *Lexer) run() {
	for {
		if !l.skipTrivia() {
			// unterminated block comment swallowed the rest of the input
			l.pos = len(l.src)
		}
		if l.pos >= len(l.src) {
			l.tokens = append(l.tokens, token.Token{
				Kind: token.EOF,
				Span: token.Span{Start: len(l.src), End: len(l.src)},
			})
			return
		}
		l.next()
	}
}

// skipTrivia discards whitespace and comments. It returns false when an
// unterminated block comment was found.
func (l *Lexer) skipTrivia() bool {
	for l.pos < len(l.src) {
		switch ch := l.peek(); {
		case isSpace(ch):
			l.pos++
		case ch == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.pos++
			}
		case ch == '/' && l.peekAt(1) == '*':
			start := l.pos
			l.pos += 2
			closed := false
			for l.pos < len(l.src) {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.pos += 2
					closed = true
					break
				}
				l.pos++
			}
			if !closed {
				l.fail(UnterminatedComment, start, start+2, 0)
				return false
			}
		default:
			return true
		}
	}
	return true
}

// next scans exactly one token or one error starting at l.pos.
func (l *Lexer) next() {
	start := l.pos
	ch := l.peek()

	switch {
	case isIdentStart(ch):
		l.scanIdent()
		return
	case isDigit(ch):
		l.scanInteger()
		return
	case ch == '\'':
		if !l.scanBitVector() {
			l.pos++
			l.fail(IllegalCharacter, start, l.pos, '\'')
		}
		return
	case ch == '"':
		l.scanString()
		return
	}

	if kind, width := punctuation(l.src[l.pos:]); width > 0 {
		l.pos += width
		l.emit(kind, start)
		return
	}

	r, width := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += width
	l.fail(IllegalCharacter, start, l.pos, r)
}

// punctuation matches the longest operator or delimiter at the head of s.
func punctuation(s string) (token.Kind, int) {
	if len(s) >= 2 {
		switch s[:2] {
		case "==":
			return token.EQ, 2
		case "<<":
			return token.SHL, 2
		case "<-":
			return token.NONBLOCKING, 2
		}
	}
	switch s[0] {
	case '{':
		return token.LBRACE, 1
	case '}':
		return token.RBRACE, 1
	case '[':
		return token.LBRACKET, 1
	case ']':
		return token.RBRACKET, 1
	case '(':
		return token.LPAREN, 1
	case ')':
		return token.RPAREN, 1
	case ':':
		return token.COLON, 1
	case ';':
		return token.SEMICOLON, 1
	case '=':
		return token.ASSIGN, 1
	case '+':
		return token.PLUS, 1
	case '-':
		return token.MINUS, 1
	case '&':
		return token.AND, 1
	case '|':
		return token.OR, 1
	case '^':
		return token.XOR, 1
	}
	return token.EOF, 0
}

func (l *Lexer) scanIdent() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.peek()) {
		l.pos++
	}
	l.emit(token.Lookup(l.src[start:l.pos]), start)
}

func (l *Lexer) scanInteger() {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.pos++
	}
	v, err := strconv.ParseInt(l.src[start:l.pos], 10, 64)
	if err != nil {
		l.fail(IntegerOverflow, start, l.pos, 0)
		return
	}
	l.emit(token.INTEGER, start)
	l.tokens[len(l.tokens)-1].Int = v
}

// scanBitVector matches '[0-9]*[bBhdD][0-9a-fA-F_xXzZ]+ at l.pos. On a
// mismatch it leaves l.pos untouched and returns false.
func (l *Lexer) scanBitVector() bool {
	start := l.pos
	i := l.pos + 1
	for i < len(l.src) && isDigit(l.src[i]) {
		i++
	}
	if i >= len(l.src) || !isBase(l.src[i]) {
		return false
	}
	i++
	digits := i
	for i < len(l.src) && isBitDigit(l.src[i]) {
		i++
	}
	if i == digits {
		return false
	}
	l.pos = i
	l.emit(token.BITVECTOR, start)
	return true
}

func (l *Lexer) scanString() {
	start := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.src) {
		if l.peek() == '"' {
			l.pos++
			l.emit(token.STRING, start)
			return
		}
		l.pos++
	}
	l.fail(UnterminatedString, start, l.pos, 0)
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }

func isBase(ch byte) bool {
	switch ch {
	case 'b', 'B', 'h', 'd', 'D':
		return true
	}
	return false
}

func isBitDigit(ch byte) bool {
	switch {
	case isDigit(ch), ch >= 'a' && ch <= 'f', ch >= 'A' && ch <= 'F':
		return true
	}
	switch ch {
	case '_', 'x', 'X', 'z', 'Z':
		return true
	}
	return false
}
