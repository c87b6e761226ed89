package parser

import "fmt"

// LexError reports malformed input found while tokenizing.
type LexError struct {
	Pos Position
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %v: %v", e.Pos, e.Msg)
}

type ParseErrorKind int

const (
	UnexpectedToken ParseErrorKind = iota + 1
	UnexpectedEnd
	UnbalancedGrouping
	UnsupportedJoinCondition
	UnsupportedConstruct
	TrailingInput
	TooDeep
	ValueCountMismatch
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "unexpected token"
	case UnexpectedEnd:
		return "unexpected end of input"
	case UnbalancedGrouping:
		return "unbalanced grouping"
	case UnsupportedJoinCondition:
		return "unsupported join condition"
	case UnsupportedConstruct:
		return "unsupported construct"
	case TrailingInput:
		return "trailing input"
	case TooDeep:
		return "expression nested too deeply"
	case ValueCountMismatch:
		return "value count mismatch"
	}
	return fmt.Sprintf("ParseErrorKind(%d)", int(k))
}

// ParseError reports a grammar violation. Two ParseErrors match under
// errors.Is when their kinds are equal, so the Err* values below can be used
// as sentinels.
type ParseError struct {
	Kind  ParseErrorKind
	Pos   Position
	Token string
	Msg   string
}

var (
	ErrUnexpectedToken          = &ParseError{Kind: UnexpectedToken}
	ErrUnexpectedEnd            = &ParseError{Kind: UnexpectedEnd}
	ErrUnbalancedGrouping       = &ParseError{Kind: UnbalancedGrouping}
	ErrUnsupportedJoinCondition = &ParseError{Kind: UnsupportedJoinCondition}
	ErrUnsupportedConstruct     = &ParseError{Kind: UnsupportedConstruct}
	ErrTrailingInput            = &ParseError{Kind: TrailingInput}
	ErrTooDeep                  = &ParseError{Kind: TooDeep}
	ErrValueCountMismatch       = &ParseError{Kind: ValueCountMismatch}
)

func (e *ParseError) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg = fmt.Sprintf("%v: %v", msg, e.Msg)
	}
	if e.Token != "" {
		return fmt.Sprintf("parse error at %v near [%v]: %v", e.Pos, e.Token, msg)
	}
	return fmt.Sprintf("parse error at %v: %v", e.Pos, msg)
}

func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}
