package parser

import (
	"fmt"

	"github.com/pingcap/tidb/parser/opcode"
)

type StatementKind int

const (
	SelectKind StatementKind = iota + 1
	InsertKind
	UpdateKind
	DeleteKind
	CreateTableKind
	CreateIndexKind
)

func (k StatementKind) String() string {
	switch k {
	case SelectKind:
		return "SELECT"
	case InsertKind:
		return "INSERT"
	case UpdateKind:
		return "UPDATE"
	case DeleteKind:
		return "DELETE"
	case CreateTableKind:
		return "CREATE TABLE"
	case CreateIndexKind:
		return "CREATE INDEX"
	}
	return fmt.Sprintf("StatementKind(%d)", int(k))
}

// IsMutation reports whether statements of this kind modify documents.
func (k StatementKind) IsMutation() bool {
	return k == InsertKind || k == UpdateKind || k == DeleteKind
}

// ColumnRef names a column, optionally qualified by a table name or alias.
type ColumnRef struct {
	Table string
	Name  string
}

func (c ColumnRef) String() string {
	if c.Table != "" {
		return c.Table + "." + c.Name
	}
	return c.Name
}

type TableRef struct {
	Name  string
	Alias string
}

// Ref returns the name the rest of the statement uses for this table.
func (t TableRef) Ref() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// Expression is a node of a WHERE clause tree. Values held by leaves are
// nil, string, int64, float64 or bool.
type Expression interface {
	exprNode()
}

// Comparison is a binary predicate: EQ, NE, LT, LE, GT, GE or Like.
type Comparison struct {
	Field    ColumnRef
	Operator opcode.Op
	Value    any
}

type InSet struct {
	Field   ColumnRef
	Values  []any
	Negated bool
}

type Between struct {
	Field ColumnRef
	Low   any
	High  any
}

type And struct {
	Left, Right Expression
}

type Or struct {
	Left, Right Expression
}

type Not struct {
	Expr Expression
}

func (*Comparison) exprNode() {}
func (*InSet) exprNode()      {}
func (*Between) exprNode()    {}
func (*And) exprNode()        {}
func (*Or) exprNode()         {}
func (*Not) exprNode()        {}

type SelectItemType int

const (
	SelectWildcard SelectItemType = iota + 1
	SelectColumn
	SelectAggregate
)

const (
	AggCount = "COUNT"
	AggSum   = "SUM"
	AggAvg   = "AVG"
	AggMin   = "MIN"
	AggMax   = "MAX"
)

// SelectItem is one entry of the select list. Aggregate items carry the
// upper-cased function name; COUNT(*) has an empty Column.
type SelectItem struct {
	Type   SelectItemType
	Column ColumnRef
	Func   string
	Alias  string
}

// Name is the output name of the item.
func (i SelectItem) Name() string {
	switch i.Type {
	case SelectWildcard:
		return "*"
	case SelectAggregate:
		if i.Alias != "" {
			return i.Alias
		}
		if i.Column.Name == "" {
			return lower(i.Func)
		}
		return lower(i.Func) + "_" + i.Column.Name
	}
	return i.Column.String()
}

type JoinKind int

const (
	InnerJoin JoinKind = iota + 1
	LeftJoin
)

func (k JoinKind) String() string {
	if k == LeftJoin {
		return "LEFT JOIN"
	}
	return "INNER JOIN"
}

// JoinCondition is the single equality of an ON clause.
type JoinCondition struct {
	Left  ColumnRef
	Right ColumnRef
}

type Join struct {
	Kind  JoinKind
	Table TableRef
	On    JoinCondition
}

type OrderItem struct {
	Column ColumnRef
	Desc   bool
}

type SelectStatement struct {
	Table   TableRef
	Items   []SelectItem
	Joins   []Join
	Where   Expression
	GroupBy []ColumnRef
	OrderBy []OrderItem
	Limit   *int64
	Offset  *int64
}

// Wildcard reports whether the select list is "*".
func (s *SelectStatement) Wildcard() bool {
	for _, item := range s.Items {
		if item.Type == SelectWildcard {
			return true
		}
	}
	return false
}

// Aggregates returns the aggregate calls of the select list in order.
func (s *SelectStatement) Aggregates() (items []SelectItem) {
	for _, item := range s.Items {
		if item.Type == SelectAggregate {
			items = append(items, item)
		}
	}
	return
}

type InsertStatement struct {
	Table   TableRef
	Columns []string
	Values  []any
}

type AssignmentType int

const (
	// AssignValue is "col = literal".
	AssignValue AssignmentType = iota + 1
	// AssignIncrement is "col = col + n" or "col = col - n"; Value holds
	// the signed delta.
	AssignIncrement
)

type Assignment struct {
	Type   AssignmentType
	Column string
	Value  any
}

type UpdateStatement struct {
	Table       TableRef
	Assignments []Assignment
	Where       Expression
}

type DeleteStatement struct {
	Table TableRef
	Where Expression
}

// ColumnDef keeps a column definition as written: Type is the type name
// with its arguments, e.g. "VARCHAR(100)", and Constraints holds trailing
// clauses such as "PRIMARY KEY" or "NOT NULL".
type ColumnDef struct {
	Name        string
	Type        string
	Constraints []string
}

type CreateTableStatement struct {
	Table   string
	Columns []ColumnDef
}

type CreateIndexStatement struct {
	Name    string
	Table   string
	Unique  bool
	Columns []OrderItem
}

func (*SelectStatement) Kind() StatementKind      { return SelectKind }
func (*InsertStatement) Kind() StatementKind      { return InsertKind }
func (*UpdateStatement) Kind() StatementKind      { return UpdateKind }
func (*DeleteStatement) Kind() StatementKind      { return DeleteKind }
func (*CreateTableStatement) Kind() StatementKind { return CreateTableKind }
func (*CreateIndexStatement) Kind() StatementKind { return CreateIndexKind }

func (*SelectStatement) statementNode()      {}
func (*InsertStatement) statementNode()      {}
func (*UpdateStatement) statementNode()      {}
func (*DeleteStatement) statementNode()      {}
func (*CreateTableStatement) statementNode() {}
func (*CreateIndexStatement) statementNode() {}
