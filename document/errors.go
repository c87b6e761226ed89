package document

import "fmt"

// MaxFilterDepth bounds logical nesting in a filter.
const MaxFilterDepth = 32

// UnsupportedShapeError reports a well-formed document query that uses a
// stage, operator or nesting outside what can be expressed in SQL. Err holds
// the underlying cause, if any. All UnsupportedShapeErrors match
// ErrUnsupportedShape under errors.Is.
type UnsupportedShapeError struct {
	Path string
	Msg  string
	Err  error
}

var ErrUnsupportedShape = &UnsupportedShapeError{}

func (e *UnsupportedShapeError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%v: %v", msg, e.Err.Error())
		}
	}
	if e.Path == "" {
		return fmt.Sprintf("unsupported document shape: %v", msg)
	}
	return fmt.Sprintf("unsupported document shape at [%v]: %v", e.Path, msg)
}

func (e *UnsupportedShapeError) Is(target error) bool {
	_, ok := target.(*UnsupportedShapeError)
	return ok
}

func (e *UnsupportedShapeError) Unwrap() error {
	return e.Err
}
