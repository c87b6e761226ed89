package operator

import (
	"fmt"
	"strings"
)

type MutationKind int

const (
	// Assign is "SET col = value".
	Assign MutationKind = iota + 1
	// Increment is "SET col = col + n".
	Increment
)

type MutationMapping struct {
	Kind  MutationKind
	SQL   string
	Mongo string
}

var mutations = []MutationMapping{
	{Kind: Assign, SQL: "SET col = value", Mongo: Mongo_Operator_Set},
	{Kind: Increment, SQL: "SET col = col + n", Mongo: Mongo_Operator_Inc},
}

func Mutations() []MutationMapping {
	return append([]MutationMapping(nil), mutations...)
}

func MutationFromKind(kind MutationKind) (m MutationMapping, err error) {
	for _, m = range mutations {
		if m.Kind == kind {
			return
		}
	}
	err = &UnsupportedOperatorError{Operator: fmt.Sprintf("mutation(%d)", int(kind)), Side: SideSQL}
	return
}

func MutationFromMongo(symbol string) (m MutationMapping, err error) {
	for _, m = range mutations {
		if m.Mongo == symbol {
			return
		}
	}
	err = &UnsupportedOperatorError{Operator: symbol, Side: SideMongo, Valid: []string{Mongo_Operator_Set, Mongo_Operator_Inc}}
	return
}

// AccumulatorMapping maps an aggregate function to a $group accumulator.
// COUNT and SUM share $sum; COUNT is told apart by its argument.
type AccumulatorMapping struct {
	SQL   string
	Mongo string
}

var accumulators = []AccumulatorMapping{
	{SQL: "SUM", Mongo: Mongo_Operator_Sum},
	{SQL: "COUNT", Mongo: Mongo_Operator_Sum},
	{SQL: "AVG", Mongo: Mongo_Operator_Avg},
	{SQL: "MIN", Mongo: Mongo_Operator_Min},
	{SQL: "MAX", Mongo: Mongo_Operator_Max},
}

func Accumulators() []AccumulatorMapping {
	return append([]AccumulatorMapping(nil), accumulators...)
}

// IsAggregate reports whether fn names a supported aggregate function.
func IsAggregate(fn string) bool {
	_, err := AccumulatorFromSQL(fn)
	return err == nil
}

func AccumulatorFromSQL(fn string) (m AccumulatorMapping, err error) {
	fn = strings.ToUpper(fn)
	for _, m = range accumulators {
		if m.SQL == fn {
			return
		}
	}
	err = &UnsupportedOperatorError{Operator: fn, Side: SideSQL, Valid: []string{"COUNT", "SUM", "AVG", "MIN", "MAX"}}
	return
}

// AccumulatorFromMongo returns the first function mapped to symbol, so $sum
// resolves to SUM.
func AccumulatorFromMongo(symbol string) (m AccumulatorMapping, err error) {
	for _, m = range accumulators {
		if m.Mongo == symbol {
			return
		}
	}
	err = &UnsupportedOperatorError{Operator: symbol, Side: SideMongo, Valid: []string{Mongo_Operator_Sum, Mongo_Operator_Avg, Mongo_Operator_Min, Mongo_Operator_Max}}
	return
}
