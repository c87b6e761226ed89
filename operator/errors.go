package operator

import (
	"fmt"
	"strings"
)

type Side string

const (
	SideSQL   Side = "sql"
	SideMongo Side = "mongo"
)

// UnsupportedOperatorError is returned for an operator that has no entry in
// the mapping tables. All UnsupportedOperatorErrors match
// ErrUnsupportedOperator under errors.Is.
type UnsupportedOperatorError struct {
	Operator string
	Side     Side
	Valid    []string
}

var ErrUnsupportedOperator = &UnsupportedOperatorError{}

func (e *UnsupportedOperatorError) Error() string {
	if len(e.Valid) == 0 {
		return fmt.Sprintf("unsupported %v operator [%v]", e.Side, e.Operator)
	}
	return fmt.Sprintf("unsupported %v operator [%v], valid operators=[%v]", e.Side, e.Operator, strings.Join(e.Valid, ","))
}

func (e *UnsupportedOperatorError) Is(target error) bool {
	_, ok := target.(*UnsupportedOperatorError)
	return ok
}
