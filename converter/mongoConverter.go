package converter

import (
	"fmt"
	"slices"

	"github.com/pingcap/tidb/parser/opcode"
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sqlmongo/document"
	"github.com/tsfans/sqlmongo/operator"
	"github.com/tsfans/sqlmongo/parser"
	"github.com/tsfans/sqlmongo/validator"
	"go.mongodb.org/mongo-driver/bson"
)

// MongoQueryConverter builds document queries from parsed statements.
type MongoQueryConverter struct {
	stmt parser.Statement
	opts Options
}

func NewMongoQueryConverter(stmt parser.Statement, opts Options) QueryConverter {
	return &MongoQueryConverter{stmt: stmt, opts: opts}
}

func (conv *MongoQueryConverter) Convert() (query *document.Query, err error) {
	if conv.stmt == nil {
		err = &validator.ValidationError{Kind: validator.EmptyQuery, Offset: -1, Msg: "no statement to convert"}
		return
	}

	switch stmt := conv.stmt.(type) {
	case *parser.SelectStatement:
		query, err = conv.convertSelect(stmt)
	case *parser.InsertStatement:
		query, err = conv.convertInsert(stmt)
	case *parser.UpdateStatement:
		query, err = conv.convertUpdate(stmt)
	case *parser.DeleteStatement:
		query, err = conv.convertDelete(stmt)
	case *parser.CreateTableStatement:
		query = conv.convertCreateTable(stmt)
	case *parser.CreateIndexStatement:
		query = conv.convertCreateIndex(stmt)
	default:
		err = &validator.ValidationError{Kind: validator.InvalidField, Offset: -1, Msg: fmt.Sprintf("MongoQueryConverter can not convert [%T]", conv.stmt)}
	}
	if err != nil {
		return nil, err
	}

	if query.Filter.Depth() > document.MaxFilterDepth {
		return nil, &document.UnsupportedShapeError{Path: document.Key_Filter, Msg: fmt.Sprintf("filter nested deeper than %d levels", document.MaxFilterDepth)}
	}
	conv.opts.logger().WithFields(log.Fields{
		"collection": query.Collection,
		"operation":  query.Operation,
	}).Debugf("built document query %v", query)
	return
}

// scope resolves column references. Columns of the base table are top-level
// fields; columns of a joined table live under the join's output field.
type scope struct {
	base  map[string]bool
	joins map[string]string
}

func newScope(table parser.TableRef) *scope {
	sc := &scope{base: map[string]bool{table.Name: true}, joins: map[string]string{}}
	if table.Alias != "" {
		sc.base[table.Alias] = true
	}
	return sc
}

func (sc *scope) known(ref string) bool {
	_, joined := sc.joins[ref]
	return sc.base[ref] || joined
}

func (sc *scope) field(col parser.ColumnRef) (string, error) {
	if col.Table == "" || sc.base[col.Table] {
		return col.Name, nil
	}
	if as, ok := sc.joins[col.Table]; ok {
		return as + "." + col.Name, nil
	}
	return "", fieldError(col.String(), "unknown table [%v] in column [%v]", col.Table, col)
}

func (conv *MongoQueryConverter) convertSelect(stmt *parser.SelectStatement) (query *document.Query, err error) {
	query = &document.Query{
		Collection: conv.opts.collection(stmt.Table.Name),
		Operation:  document.Find,
	}

	sc := newScope(stmt.Table)
	for _, join := range stmt.Joins {
		var lookup *document.LookupStage
		lookup, err = conv.lookup(join, sc)
		if err != nil {
			return
		}
		query.Pipeline = append(query.Pipeline, lookup)
	}

	if stmt.Where != nil {
		query.Filter, err = buildFilter(stmt.Where, sc)
		if err != nil {
			return
		}
	}

	if err = buildColumns(stmt, sc, query); err != nil {
		return
	}

	for _, order := range stmt.OrderBy {
		var field string
		field, err = sc.field(order.Column)
		if err != nil {
			return
		}
		dir := document.Ascending
		if order.Desc {
			dir = document.Descending
		}
		query.Sort = append(query.Sort, document.SortField{Field: field, Direction: dir})
	}

	query.Limit = cloneCount(stmt.Limit)
	query.Skip = cloneCount(stmt.Offset)
	if len(query.Pipeline) > 0 {
		query.Operation = document.Aggregate
	}
	return
}

func cloneCount(n *int64) *int64 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

// lookup turns a join into a lookup stage. The side of the ON condition
// naming the joined table gives the foreign field; the other side must
// resolve against the tables already in scope.
func (conv *MongoQueryConverter) lookup(join parser.Join, sc *scope) (lookup *document.LookupStage, err error) {
	as := join.Table.Ref()
	if sc.known(as) {
		err = fieldError(as, "table [%v] joined more than once", as)
		return
	}
	joined := func(col parser.ColumnRef) bool {
		return col.Table == as || col.Table == join.Table.Name
	}

	local, foreign := join.On.Left, join.On.Right
	if joined(local) && !joined(foreign) {
		local, foreign = foreign, local
	}
	if foreign.Table != "" && !joined(foreign) {
		err = fieldError(foreign.String(), "join condition [%v = %v] does not reference [%v]", join.On.Left, join.On.Right, as)
		return
	}

	var localField string
	localField, err = sc.field(local)
	if err != nil {
		return
	}

	sc.joins[as] = as
	if !sc.base[join.Table.Name] {
		sc.joins[join.Table.Name] = as
	}
	lookup = &document.LookupStage{
		From:         conv.opts.collection(join.Table.Name),
		LocalField:   localField,
		ForeignField: foreign.Name,
		As:           as,
		Preserve:     join.Kind == parser.LeftJoin,
	}
	return
}

// buildColumns fills the projection, and the group stage when the select
// list aggregates or the statement groups.
func buildColumns(stmt *parser.SelectStatement, sc *scope, query *document.Query) (err error) {
	aggregates := stmt.Aggregates()
	if len(stmt.GroupBy) == 0 && len(aggregates) == 0 {
		for _, item := range stmt.Items {
			if item.Type != parser.SelectColumn {
				continue
			}
			var field string
			field, err = sc.field(item.Column)
			if err != nil {
				return
			}
			query.Projection = append(query.Projection, field)
		}
		return
	}

	group := &document.GroupStage{}
	for _, col := range stmt.GroupBy {
		var key string
		key, err = sc.field(col)
		if err != nil {
			return
		}
		group.Keys = append(group.Keys, key)
	}

	for _, item := range stmt.Items {
		switch item.Type {
		case parser.SelectColumn:
			var field string
			field, err = sc.field(item.Column)
			if err != nil {
				return
			}
			// Ungrouped columns stay in the projection, as MySQL accepts them
			// without ONLY_FULL_GROUP_BY.
			query.Projection = append(query.Projection, field)
		case parser.SelectAggregate:
			acc := document.Accumulator{Name: item.Name(), Func: item.Func}
			if item.Column.Name != "" {
				acc.Field, err = sc.field(item.Column)
				if err != nil {
					return
				}
			}
			group.Accumulators = append(group.Accumulators, acc)
			query.Projection = append(query.Projection, acc.Name)
		}
	}
	if len(group.Accumulators) == 0 {
		group.Accumulators = []document.Accumulator{{Name: defaultAccumulator, Func: parser.AggCount}}
	}
	query.Pipeline = append(query.Pipeline, group)
	return
}

func fieldError(field, format string, args ...any) error {
	return &validator.ValidationError{Kind: validator.InvalidField, Field: field, Offset: -1, Msg: fmt.Sprintf(format, args...)}
}

// defaultAccumulator names the count a group gets when nothing is aggregated.
const defaultAccumulator = "count"

func buildFilter(expr parser.Expression, sc *scope) (*document.Filter, error) {
	b := &filterBuilder{sc: sc}
	return b.build(expr, false)
}

// filterBuilder folds a WHERE tree into a filter. NOT is pushed down to the
// leaves, so $not only ever wraps a single field's conditions.
type filterBuilder struct {
	sc *scope
}

func (b *filterBuilder) build(expr parser.Expression, negate bool) (*document.Filter, error) {
	switch e := expr.(type) {
	case *parser.And:
		if negate {
			return b.either(e.Left, e.Right, true)
		}
		return b.both(e.Left, e.Right, false)
	case *parser.Or:
		if negate {
			return b.both(e.Left, e.Right, true)
		}
		return b.either(e.Left, e.Right, false)
	case *parser.Not:
		return b.build(e.Expr, !negate)
	case *parser.Comparison, *parser.InSet, *parser.Between:
		field, err := b.leaf(expr, negate)
		if err != nil {
			return nil, err
		}
		return &document.Filter{Fields: []document.FieldFilter{field}}, nil
	}
	return nil, fieldError("", "unsupported expression [%T]", expr)
}

func (b *filterBuilder) both(left, right parser.Expression, negate bool) (*document.Filter, error) {
	l, err := b.build(left, negate)
	if err != nil {
		return nil, err
	}
	r, err := b.build(right, negate)
	if err != nil {
		return nil, err
	}
	and, err := mongoOperator(opcode.LogicAnd, false)
	if err != nil {
		return nil, err
	}
	merge(l, r, and)
	return l, nil
}

func (b *filterBuilder) either(left, right parser.Expression, negate bool) (*document.Filter, error) {
	or, err := mongoOperator(opcode.LogicOr, false)
	if err != nil {
		return nil, err
	}
	clause := document.Clause{Operator: or}
	for _, side := range []parser.Expression{left, right} {
		sub, err := b.build(side, negate)
		if err != nil {
			return nil, err
		}
		if only := onlyClause(sub); only != nil && only.Operator == or {
			clause.Filters = append(clause.Filters, only.Filters...)
			continue
		}
		clause.Filters = append(clause.Filters, sub)
	}
	return &document.Filter{Clauses: []document.Clause{clause}}, nil
}

func onlyClause(f *document.Filter) *document.Clause {
	if len(f.Fields) == 0 && len(f.Clauses) == 1 {
		return &f.Clauses[0]
	}
	return nil
}

// merge ANDs src into dst. When src repeats an operator dst already holds
// on a field, or brings a second $or, it goes under an explicit $and.
func merge(dst, src *document.Filter, and string) {
	if conflicts(dst, src, and) {
		clause := andClause(dst, and)
		if only := onlyClause(src); only != nil && only.Operator == and {
			clause.Filters = append(clause.Filters, only.Filters...)
		} else {
			clause.Filters = append(clause.Filters, src)
		}
		return
	}

	for _, field := range src.Fields {
		if existing := dst.Field(field.Field); existing != nil {
			existing.Conditions = append(existing.Conditions, field.Conditions...)
			continue
		}
		dst.Fields = append(dst.Fields, field)
	}
	for _, clause := range src.Clauses {
		if existing := dst.Clause(clause.Operator); existing != nil && clause.Operator == and {
			existing.Filters = append(existing.Filters, clause.Filters...)
			continue
		}
		dst.Clauses = append(dst.Clauses, clause)
	}
}

func conflicts(dst, src *document.Filter, and string) bool {
	for _, field := range src.Fields {
		existing := dst.Field(field.Field)
		if existing == nil {
			continue
		}
		for _, c := range field.Conditions {
			if existing.Has(c.Operator) {
				return true
			}
		}
	}
	for _, clause := range src.Clauses {
		if existing := dst.Clause(clause.Operator); existing != nil && existing.Operator != and {
			return true
		}
	}
	return false
}

func andClause(f *document.Filter, and string) *document.Clause {
	if clause := f.Clause(and); clause != nil {
		return clause
	}
	f.Clauses = append(f.Clauses, document.Clause{Operator: and})
	return &f.Clauses[len(f.Clauses)-1]
}

func (b *filterBuilder) leaf(expr parser.Expression, negate bool) (field document.FieldFilter, err error) {
	switch e := expr.(type) {
	case *parser.Comparison:
		field.Field, err = b.sc.field(e.Field)
		if err != nil {
			return
		}
		var m operator.Mapping
		m, err = operator.FromOpcode(e.Operator, false)
		if err != nil {
			return
		}
		c := document.Condition{Operator: m.Mongo, Value: e.Value}
		switch m.Shape {
		case operator.Scalar:
		case operator.Pattern:
			pattern, ok := e.Value.(string)
			if !ok {
				err = fieldError(field.Field, "%v expects a string pattern, got [%v]", m.SQL, e.Value)
				return
			}
			c.Value = operator.LikeToRegex(pattern)
		default:
			err = &operator.UnsupportedOperatorError{Operator: m.SQL, Side: operator.SideSQL}
			return
		}
		field.Conditions, err = negated([]document.Condition{c}, negate)
	case *parser.InSet:
		field.Field, err = b.sc.field(e.Field)
		if err != nil {
			return
		}
		// NOT flips membership instead of wrapping it.
		var m operator.Mapping
		m, err = operator.FromOpcode(opcode.In, e.Negated != negate)
		if err != nil {
			return
		}
		field.Conditions = []document.Condition{{Operator: m.Mongo, Value: slices.Clone(e.Values)}}
	case *parser.Between:
		field.Field, err = b.sc.field(e.Field)
		if err != nil {
			return
		}
		var ge, le string
		if ge, err = mongoOperator(opcode.GE, false); err != nil {
			return
		}
		if le, err = mongoOperator(opcode.LE, false); err != nil {
			return
		}
		field.Conditions, err = negated([]document.Condition{
			{Operator: ge, Value: e.Low},
			{Operator: le, Value: e.High},
		}, negate)
	}
	return
}

func negated(conditions []document.Condition, negate bool) ([]document.Condition, error) {
	if !negate {
		return conditions, nil
	}
	not, err := mongoOperator(opcode.Not, false)
	if err != nil {
		return nil, err
	}
	return []document.Condition{{Operator: not, Not: conditions}}, nil
}

func mongoOperator(op opcode.Op, negated bool) (string, error) {
	m, err := operator.FromOpcode(op, negated)
	if err != nil {
		return "", err
	}
	return m.Mongo, nil
}

func (conv *MongoQueryConverter) convertInsert(stmt *parser.InsertStatement) (query *document.Query, err error) {
	if len(stmt.Columns) != len(stmt.Values) {
		err = &parser.ParseError{Kind: parser.ValueCountMismatch, Msg: fmt.Sprintf("INSERT has %d columns but %d values", len(stmt.Columns), len(stmt.Values))}
		return
	}
	doc := make(bson.D, 0, len(stmt.Columns))
	for i, col := range stmt.Columns {
		doc = append(doc, bson.E{Key: col, Value: stmt.Values[i]})
	}
	query = &document.Query{
		Collection: conv.opts.collection(stmt.Table.Name),
		Operation:  document.InsertOne,
		Document:   doc,
	}
	return
}

func (conv *MongoQueryConverter) convertUpdate(stmt *parser.UpdateStatement) (query *document.Query, err error) {
	query = &document.Query{
		Collection: conv.opts.collection(stmt.Table.Name),
		Operation:  document.UpdateMany,
	}

	payloads := map[operator.MutationKind]bson.D{}
	for _, a := range stmt.Assignments {
		kind := operator.Assign
		if a.Type == parser.AssignIncrement {
			kind = operator.Increment
		}
		payloads[kind] = append(payloads[kind], bson.E{Key: a.Column, Value: a.Value})
	}
	for _, m := range operator.Mutations() {
		if payload, ok := payloads[m.Kind]; ok {
			query.Update = append(query.Update, bson.E{Key: m.Mongo, Value: payload})
		}
	}

	if stmt.Where != nil {
		query.Filter, err = buildFilter(stmt.Where, newScope(stmt.Table))
	}
	return
}

func (conv *MongoQueryConverter) convertDelete(stmt *parser.DeleteStatement) (query *document.Query, err error) {
	query = &document.Query{
		Collection: conv.opts.collection(stmt.Table.Name),
		Operation:  document.DeleteMany,
	}
	if stmt.Where != nil {
		query.Filter, err = buildFilter(stmt.Where, newScope(stmt.Table))
	}
	return
}

func (conv *MongoQueryConverter) convertCreateTable(stmt *parser.CreateTableStatement) *document.Query {
	query := &document.Query{
		Collection: conv.opts.collection(stmt.Table),
		Operation:  document.CreateCollection,
	}
	for _, def := range stmt.Columns {
		query.Columns = append(query.Columns, document.Column{
			Name:        def.Name,
			Type:        def.Type,
			Constraints: slices.Clone(def.Constraints),
		})
	}
	return query
}

func (conv *MongoQueryConverter) convertCreateIndex(stmt *parser.CreateIndexStatement) *document.Query {
	index := &document.Index{Name: stmt.Name, Unique: stmt.Unique}
	for _, col := range stmt.Columns {
		dir := document.Ascending
		if col.Desc {
			dir = document.Descending
		}
		index.Keys = append(index.Keys, document.SortField{Field: col.Column.Name, Direction: dir})
	}
	return &document.Query{
		Collection: conv.opts.collection(stmt.Table),
		Operation:  document.CreateIndex,
		Index:      index,
	}
}
