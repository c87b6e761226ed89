package document

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Condition is one operator applied to a field, e.g. {$gte: 18}. A $not
// condition holds the negated operators in Not and has no Value.
type Condition struct {
	Operator string
	Value    any
	Not      []Condition
}

// FieldFilter collects every condition placed on one field. The conditions
// are implicitly AND-ed.
type FieldFilter struct {
	Field      string
	Conditions []Condition
}

// Has reports whether the field already carries op.
func (f *FieldFilter) Has(op string) bool {
	for _, c := range f.Conditions {
		if c.Operator == op {
			return true
		}
	}
	return false
}

// Clause is a logical combinator ($and / $or) over sub-filters.
type Clause struct {
	Operator string
	Filters  []*Filter
}

// Filter is a query document: field conditions and logical clauses, all
// AND-ed together. Order is kept so rendering is deterministic.
type Filter struct {
	Fields  []FieldFilter
	Clauses []Clause
}

func (f *Filter) Empty() bool {
	return f == nil || (len(f.Fields) == 0 && len(f.Clauses) == 0)
}

// Field returns the entry for name, or nil.
func (f *Filter) Field(name string) *FieldFilter {
	if f == nil {
		return nil
	}
	for i := range f.Fields {
		if f.Fields[i].Field == name {
			return &f.Fields[i]
		}
	}
	return nil
}

// Clause returns the clause for op, or nil.
func (f *Filter) Clause(op string) *Clause {
	if f == nil {
		return nil
	}
	for i := range f.Clauses {
		if f.Clauses[i].Operator == op {
			return &f.Clauses[i]
		}
	}
	return nil
}

// Depth is the number of nested filter levels, 1 for a flat filter.
func (f *Filter) Depth() int {
	if f == nil {
		return 0
	}
	depth := 1
	for _, clause := range f.Clauses {
		for _, sub := range clause.Filters {
			if d := sub.Depth() + 1; d > depth {
				depth = d
			}
		}
	}
	return depth
}

func (f *Filter) ToBSON() bson.D {
	doc := bson.D{}
	if f == nil {
		return doc
	}
	for _, field := range f.Fields {
		doc = append(doc, bson.E{Key: field.Field, Value: conditionsToBSON(field.Conditions)})
	}
	for _, clause := range f.Clauses {
		subs := bson.A{}
		for _, sub := range clause.Filters {
			subs = append(subs, sub.ToBSON())
		}
		doc = append(doc, bson.E{Key: clause.Operator, Value: subs})
	}
	return doc
}

func conditionsToBSON(conditions []Condition) bson.D {
	doc := bson.D{}
	for _, c := range conditions {
		if c.Not != nil {
			doc = append(doc, bson.E{Key: c.Operator, Value: conditionsToBSON(c.Not)})
			continue
		}
		doc = append(doc, bson.E{Key: c.Operator, Value: valueToBSON(c.Value)})
	}
	return doc
}

func valueToBSON(val any) any {
	if list, ok := val.([]any); ok {
		return bson.A(list)
	}
	return val
}
