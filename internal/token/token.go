package token

import "fmt"

// Kind identifies the category of a lexed token.
type Kind int

const (
	EOF Kind = iota

	// Data tokens
	IDENTIFIER // clk, data_in
	INTEGER    // 8
	BITVECTOR  // '3b010, 'hff
	STRING     // "text"

	// Keywords
	MODULE
	PORT
	INPUT
	OUTPUT
	REG
	WIRE
	COMBINATORIAL
	SWITCH
	CASE
	DEFAULT
	GEN
	IF

	// Paired delimiters
	LBRACE   // {
	RBRACE   // }
	LBRACKET // [
	RBRACKET // ]
	LPAREN   // (
	RPAREN   // )

	// Punctuation
	COLON     // :
	SEMICOLON // ;

	// Operators (multi-character forms are matched before their prefixes)
	ASSIGN      // =
	EQ          // ==
	NONBLOCKING // <-
	SHL         // <<
	PLUS        // +
	MINUS       // -
	AND         // &
	OR          // |
	XOR         // ^
)

var kindNames = [...]string{
	EOF:           "EOF",
	IDENTIFIER:    "identifier",
	INTEGER:       "integer",
	BITVECTOR:     "bit vector",
	STRING:        "string",
	MODULE:        "module",
	PORT:          "port",
	INPUT:         "input",
	OUTPUT:        "output",
	REG:           "reg",
	WIRE:          "wire",
	COMBINATORIAL: "combinatorial",
	SWITCH:        "switch",
	CASE:          "case",
	DEFAULT:       "default",
	GEN:           "gen",
	IF:            "if",
	LBRACE:        "{",
	RBRACE:        "}",
	LBRACKET:      "[",
	RBRACKET:      "]",
	LPAREN:        "(",
	RPAREN:        ")",
	COLON:         ":",
	SEMICOLON:     ";",
	ASSIGN:        "=",
	EQ:            "==",
	NONBLOCKING:   "<-",
	SHL:           "<<",
	PLUS:          "+",
	MINUS:         "-",
	AND:           "&",
	OR:            "|",
	XOR:           "^",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	return k >= MODULE && k <= IF
}

var keywords = map[string]Kind{
	"module":        MODULE,
	"port":          PORT,
	"input":         INPUT,
	"output":        OUTPUT,
	"reg":           REG,
	"wire":          WIRE,
	"combinatorial": COMBINATORIAL,
	"switch":        SWITCH,
	"case":          CASE,
	"default":       DEFAULT,
	"gen":           GEN,
	"if":            IF,
}

// Lookup returns the keyword kind for word, or IDENTIFIER. Only exact
// matches are keywords: "module2" is an identifier.
func Lookup(word string) Kind {
	if k, ok := keywords[word]; ok {
		return k
	}
	return IDENTIFIER
}

// Span is a half-open byte range [Start, End) into the source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Join returns the smallest span covering s and other.
func (s Span) Join(other Span) Span {
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// Token is a single lexical unit.
type Token struct {
	Kind Kind
	Text string // exact source text that was matched
	Int  int64  // value of INTEGER tokens
	Span Span
}

func (t Token) String() string {
	switch t.Kind {
	case IDENTIFIER, BITVECTOR, STRING:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
	case INTEGER:
		return fmt.Sprintf("%s(%d)", t.Kind, t.Int)
	}
	return t.Kind.String()
}

// Describe renders the token the way parse errors quote it.
func (t Token) Describe() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case IDENTIFIER:
		return fmt.Sprintf("identifier %q", t.Text)
	case INTEGER, BITVECTOR, STRING:
		return fmt.Sprintf("%s %s", t.Kind, t.Text)
	}
	if t.Kind.IsKeyword() {
		return fmt.Sprintf("keyword %q", t.Text)
	}
	return fmt.Sprintf("%q", t.Kind.String())
}
