package parser

import "github.com/robert-at-pretension-io/veridec/internal/token"

// ErrorKind classifies syntax errors.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota
	InvalidWidth
	EmptySwitch
	DuplicateDefault
	TooDeep
)

var errorKindNames = [...]string{
	UnexpectedToken:  "unexpected_token",
	InvalidWidth:     "invalid_width",
	EmptySwitch:      "empty_switch",
	DuplicateDefault: "duplicate_default",
	TooDeep:          "nesting_too_deep",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "unknown"
}

// Error is a single syntax error.
type Error struct {
	Kind     ErrorKind
	Expected string // empty unless Kind == UnexpectedToken
	Found    token.Token
	Span     token.Span
	Message  string
}

func (e Error) Error() string { return e.Message }
