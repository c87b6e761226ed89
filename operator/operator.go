// Package operator holds the process-wide mapping between relational
// operators and document-query operators. The tables are built once at init
// and never written afterwards, so lookups are safe from any goroutine.
package operator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pingcap/tidb/parser/opcode"
	"golang.org/x/exp/maps"
)

const (
	Mongo_Operator_Eq    = "$eq"
	Mongo_Operator_Ne    = "$ne"
	Mongo_Operator_Gt    = "$gt"
	Mongo_Operator_Gte   = "$gte"
	Mongo_Operator_Lt    = "$lt"
	Mongo_Operator_Lte   = "$lte"
	Mongo_Operator_In    = "$in"
	Mongo_Operator_Nin   = "$nin"
	Mongo_Operator_Regex = "$regex"
	Mongo_Operator_And   = "$and"
	Mongo_Operator_Or    = "$or"
	Mongo_Operator_Not   = "$not"

	Mongo_Operator_Set = "$set"
	Mongo_Operator_Inc = "$inc"

	Mongo_Operator_Sum = "$sum"
	Mongo_Operator_Avg = "$avg"
	Mongo_Operator_Min = "$min"
	Mongo_Operator_Max = "$max"
)

type Arity int

const (
	Unary Arity = iota + 1
	Binary
	Variadic
)

// Shape constrains the value an operator accepts on the document side.
type Shape int

const (
	// Scalar is a single literal.
	Scalar Shape = iota + 1
	// List is an array of literals.
	List
	// Pattern is a string: a LIKE pattern on the relational side, an
	// anchored regular expression on the document side.
	Pattern
	// Clauses is an array of sub-filters for $and/$or, or an operator
	// document for $not.
	Clauses
)

type Mapping struct {
	Op      opcode.Op
	Negated bool
	SQL     string
	Mongo   string
	Arity   Arity
	Shape   Shape
}

// Logical reports whether the mapping combines other predicates.
func (m Mapping) Logical() bool {
	return m.Shape == Clauses
}

var mappings = []Mapping{
	{Op: opcode.EQ, SQL: "=", Mongo: Mongo_Operator_Eq, Arity: Binary, Shape: Scalar},
	{Op: opcode.NE, SQL: "<>", Mongo: Mongo_Operator_Ne, Arity: Binary, Shape: Scalar},
	{Op: opcode.GT, SQL: ">", Mongo: Mongo_Operator_Gt, Arity: Binary, Shape: Scalar},
	{Op: opcode.GE, SQL: ">=", Mongo: Mongo_Operator_Gte, Arity: Binary, Shape: Scalar},
	{Op: opcode.LT, SQL: "<", Mongo: Mongo_Operator_Lt, Arity: Binary, Shape: Scalar},
	{Op: opcode.LE, SQL: "<=", Mongo: Mongo_Operator_Lte, Arity: Binary, Shape: Scalar},
	{Op: opcode.In, SQL: "IN", Mongo: Mongo_Operator_In, Arity: Binary, Shape: List},
	{Op: opcode.In, Negated: true, SQL: "NOT IN", Mongo: Mongo_Operator_Nin, Arity: Binary, Shape: List},
	{Op: opcode.Like, SQL: "LIKE", Mongo: Mongo_Operator_Regex, Arity: Binary, Shape: Pattern},
	{Op: opcode.LogicAnd, SQL: "AND", Mongo: Mongo_Operator_And, Arity: Variadic, Shape: Clauses},
	{Op: opcode.LogicOr, SQL: "OR", Mongo: Mongo_Operator_Or, Arity: Variadic, Shape: Clauses},
	{Op: opcode.Not, SQL: "NOT", Mongo: Mongo_Operator_Not, Arity: Unary, Shape: Clauses},
}

type opKey struct {
	op      opcode.Op
	negated bool
}

var (
	bySQL    = map[string]Mapping{}
	byMongo  = map[string]Mapping{}
	byOpcode = map[opKey]Mapping{}
)

func init() {
	for _, m := range mappings {
		if _, ok := bySQL[m.SQL]; ok {
			panic(fmt.Sprintf("duplicate relational operator [%v]", m.SQL))
		}
		if _, ok := byMongo[m.Mongo]; ok {
			panic(fmt.Sprintf("duplicate document operator [%v]", m.Mongo))
		}
		key := opKey{op: m.Op, negated: m.Negated}
		if _, ok := byOpcode[key]; ok {
			panic(fmt.Sprintf("duplicate opcode [%v] negated=%v", m.Op, m.Negated))
		}
		bySQL[m.SQL] = m
		byMongo[m.Mongo] = m
		byOpcode[key] = m
	}
}

// All returns a copy of every comparison and logical mapping in table order.
func All() []Mapping {
	return slices.Clone(mappings)
}

// FromSQL looks up a relational symbol such as ">=" or "not in". "!=" is
// accepted as an alias of "<>".
func FromSQL(symbol string) (m Mapping, err error) {
	key := strings.Join(strings.Fields(strings.ToUpper(symbol)), " ")
	if key == "!=" {
		key = "<>"
	}
	m, ok := bySQL[key]
	if !ok {
		err = &UnsupportedOperatorError{Operator: symbol, Side: SideSQL, Valid: sortedKeys(bySQL)}
	}
	return
}

// FromMongo looks up a document operator such as "$gte".
func FromMongo(symbol string) (m Mapping, err error) {
	m, ok := byMongo[symbol]
	if !ok {
		err = &UnsupportedOperatorError{Operator: symbol, Side: SideMongo, Valid: sortedKeys(byMongo)}
	}
	return
}

// FromOpcode looks up the mapping for an AST operator.
func FromOpcode(op opcode.Op, negated bool) (m Mapping, err error) {
	m, ok := byOpcode[opKey{op: op, negated: negated}]
	if !ok {
		name := op.String()
		if negated {
			name = "not " + name
		}
		err = &UnsupportedOperatorError{Operator: name, Side: SideSQL, Valid: sortedKeys(bySQL)}
	}
	return
}

func sortedKeys(m map[string]Mapping) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
