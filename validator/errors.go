package validator

import "fmt"

type ValidationErrorKind int

const (
	EmptyQuery ValidationErrorKind = iota + 1
	UnbalancedQuotes
	UnbalancedParentheses
	DestructiveStatement
	MutationNotAllowed
	MissingField
	InvalidField
	DialectRejected
)

func (k ValidationErrorKind) String() string {
	switch k {
	case EmptyQuery:
		return "empty query"
	case UnbalancedQuotes:
		return "unbalanced quotes"
	case UnbalancedParentheses:
		return "unbalanced parentheses"
	case DestructiveStatement:
		return "destructive statement"
	case MutationNotAllowed:
		return "mutation not allowed"
	case MissingField:
		return "missing field"
	case InvalidField:
		return "invalid field"
	case DialectRejected:
		return "rejected by MySQL grammar"
	}
	return fmt.Sprintf("ValidationErrorKind(%d)", int(k))
}

// ValidationError is a structural or safety rejection. Offset is the byte
// offset in the SQL text, or -1; Field is the offending document field.
// Two ValidationErrors match under errors.Is when their kinds are equal.
type ValidationError struct {
	Kind   ValidationErrorKind
	Field  string
	Offset int
	Msg    string
}

var (
	ErrEmptyQuery            = &ValidationError{Kind: EmptyQuery, Offset: -1}
	ErrUnbalancedQuotes      = &ValidationError{Kind: UnbalancedQuotes, Offset: -1}
	ErrUnbalancedParentheses = &ValidationError{Kind: UnbalancedParentheses, Offset: -1}
	ErrDestructiveStatement  = &ValidationError{Kind: DestructiveStatement, Offset: -1}
	ErrMutationNotAllowed    = &ValidationError{Kind: MutationNotAllowed, Offset: -1}
	ErrMissingField          = &ValidationError{Kind: MissingField, Offset: -1}
	ErrInvalidField          = &ValidationError{Kind: InvalidField, Offset: -1}
	ErrDialectRejected       = &ValidationError{Kind: DialectRejected, Offset: -1}
)

func (e *ValidationError) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg = fmt.Sprintf("%v: %v", msg, e.Msg)
	}
	switch {
	case e.Field != "":
		return fmt.Sprintf("validation failed for [%v]: %v", e.Field, msg)
	case e.Offset >= 0:
		return fmt.Sprintf("validation failed at offset %d: %v", e.Offset, msg)
	}
	return fmt.Sprintf("validation failed: %v", msg)
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

func newSQLError(kind ValidationErrorKind, offset int, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func newFieldError(kind ValidationErrorKind, field string, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Offset: -1, Msg: fmt.Sprintf(format, args...)}
}
