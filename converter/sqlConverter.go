package converter

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/pingcap/tidb/parser/opcode"
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sqlmongo/document"
	"github.com/tsfans/sqlmongo/operator"
	"github.com/tsfans/sqlmongo/parser"
	"go.mongodb.org/mongo-driver/bson"
)

// identifiers matching this are written bare unless they are reserved words
var identRegex = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// SQLQueryConverter renders typed document queries as SQL text.
type SQLQueryConverter struct {
	query  *document.Query
	opts   Options
	tables map[string]string
}

func NewSQLQueryConverter(query *document.Query, opts Options) SQLConverter {
	return &SQLQueryConverter{query: query, opts: opts, tables: opts.tables()}
}

func (conv *SQLQueryConverter) Convert() (sql string, err error) {
	q := conv.query
	if q == nil {
		err = &document.UnsupportedShapeError{Msg: "no document query to convert"}
		return
	}
	if q.Collection == "" {
		err = &document.UnsupportedShapeError{Path: document.Key_Collection, Msg: "empty collection"}
		return
	}

	switch q.Operation {
	case document.Find, document.Aggregate:
		sql, err = conv.buildSelect()
	case document.InsertOne:
		sql, err = conv.buildInsert()
	case document.UpdateMany:
		sql, err = conv.buildUpdate()
	case document.DeleteMany:
		sql, err = conv.buildDelete()
	case document.CreateCollection:
		sql, err = conv.buildCreateTable()
	case document.CreateIndex:
		sql, err = conv.buildCreateIndex()
	default:
		err = &document.UnsupportedShapeError{Path: document.Key_Operation, Msg: fmt.Sprintf("operation [%v] has no SQL equivalent", q.Operation)}
	}
	if err != nil {
		return "", err
	}

	conv.opts.logger().WithFields(log.Fields{
		"collection": q.Collection,
		"operation":  q.Operation,
	}).Debugf("built sql [%v]", sql)
	return
}

func (conv *SQLQueryConverter) table() (string, error) {
	name := conv.query.Collection
	if table, ok := conv.tables[name]; ok {
		name = table
	}
	return ident(name, document.Key_Collection)
}

func ident(name, path string) (string, error) {
	if name == "" || strings.Contains(name, "`") {
		return "", &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("invalid identifier [%v]", name)}
	}
	if identRegex.MatchString(name) && !parser.IsKeyword(name) {
		return name, nil
	}
	return "`" + name + "`", nil
}

// fieldIdent renders a field path. A dotted path is only valid when its
// prefix names a join.
func fieldIdent(path string, joins map[string]bool, at string) (string, error) {
	prefix, name, dotted := strings.Cut(path, ".")
	if !dotted {
		return ident(path, at)
	}
	if !joins[prefix] || strings.Contains(name, ".") {
		return "", &document.UnsupportedShapeError{Path: at, Msg: fmt.Sprintf("nested field [%v] has no SQL equivalent", path)}
	}
	t, err := ident(prefix, at)
	if err != nil {
		return "", err
	}
	n, err := ident(name, at)
	if err != nil {
		return "", err
	}
	return t + "." + n, nil
}

func literal(val any, path string) (string, error) {
	text, err := parser.FormatLiteral(val)
	if err != nil {
		return "", &document.UnsupportedShapeError{Path: path, Err: err}
	}
	return text, nil
}

func (conv *SQLQueryConverter) buildSelect() (sql string, err error) {
	q := conv.query
	var table string
	if table, err = conv.table(); err != nil {
		return
	}

	joins := map[string]bool{}
	var joinClauses []string
	var group *document.GroupStage
	for i, stage := range q.Pipeline {
		path := fmt.Sprintf("%v[%d]", document.Key_Pipeline, i)
		switch s := stage.(type) {
		case *document.LookupStage:
			if group != nil {
				return "", &document.UnsupportedShapeError{Path: path, Msg: "join after grouping"}
			}
			var clause string
			clause, err = conv.join(s, table, joins, path)
			if err != nil {
				return
			}
			joinClauses = append(joinClauses, clause)
			joins[s.As] = true
		case *document.GroupStage:
			if group != nil {
				return "", &document.UnsupportedShapeError{Path: path, Msg: "more than one grouping stage"}
			}
			group = s
		default:
			return "", &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("stage %v has no SQL equivalent", stage.StageName())}
		}
	}

	var columns string
	columns, err = conv.columns(group, joins)
	if err != nil {
		return
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(columns)
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	for _, clause := range joinClauses {
		sb.WriteString(" ")
		sb.WriteString(clause)
	}

	var where string
	if where, err = conv.where(joins); err != nil {
		return
	}
	sb.WriteString(where)

	if group != nil && len(group.Keys) > 0 {
		keys := make([]string, 0, len(group.Keys))
		for _, key := range group.Keys {
			var col string
			if col, err = fieldIdent(key, joins, document.Mongo_Stage_Group); err != nil {
				return
			}
			keys = append(keys, col)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(keys, ", "))
	}

	if len(q.Sort) > 0 {
		orders := make([]string, 0, len(q.Sort))
		for _, s := range q.Sort {
			var col string
			if col, err = fieldIdent(s.Field, joins, document.Key_Sort); err != nil {
				return
			}
			if s.Direction == document.Descending {
				col += " DESC"
			} else {
				col += " ASC"
			}
			orders = append(orders, col)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	if q.Limit != nil {
		fmt.Fprintf(&sb, " LIMIT %d", *q.Limit)
	}
	if q.Skip != nil {
		fmt.Fprintf(&sb, " OFFSET %d", *q.Skip)
	}
	sql = sb.String()
	return
}

func (conv *SQLQueryConverter) join(s *document.LookupStage, table string, joins map[string]bool, path string) (clause string, err error) {
	name := s.From
	if t, ok := conv.tables[name]; ok {
		name = t
	}
	var from, as, local, foreign string
	if from, err = ident(name, path+"."+document.Mongo_Arg_From); err != nil {
		return
	}
	if as, err = ident(s.As, path+"."+document.Mongo_Arg_As); err != nil {
		return
	}
	if joins[s.As] || s.As == conv.query.Collection {
		err = &document.UnsupportedShapeError{Path: path + "." + document.Mongo_Arg_As, Msg: fmt.Sprintf("[%v] is already in use", s.As)}
		return
	}
	if foreign, err = ident(s.ForeignField, path+"."+document.Mongo_Arg_ForeignField); err != nil {
		return
	}
	if strings.Contains(s.LocalField, ".") {
		local, err = fieldIdent(s.LocalField, joins, path+"."+document.Mongo_Arg_LocalField)
	} else {
		local, err = ident(s.LocalField, path+"."+document.Mongo_Arg_LocalField)
		local = table + "." + local
	}
	if err != nil {
		return
	}

	kind := parser.InnerJoin
	if s.Preserve {
		kind = parser.LeftJoin
	}
	clause = fmt.Sprintf("%v %v", kind, from)
	if as != from {
		clause += " AS " + as
	}
	clause += fmt.Sprintf(" ON %v = %v.%v", local, as, foreign)
	return
}

func (conv *SQLQueryConverter) columns(group *document.GroupStage, joins map[string]bool) (string, error) {
	q := conv.query
	if group == nil {
		if len(q.Projection) == 0 {
			return "*", nil
		}
		cols := make([]string, 0, len(q.Projection))
		for _, field := range q.Projection {
			col, err := fieldIdent(field, joins, document.Key_Projection)
			if err != nil {
				return "", err
			}
			cols = append(cols, col)
		}
		return strings.Join(cols, ", "), nil
	}

	accumulators := map[string]document.Accumulator{}
	for _, acc := range group.Accumulators {
		accumulators[acc.Name] = acc
	}
	keys := map[string]string{}
	for _, key := range group.Keys {
		keys[key] = key
		keys[document.GroupKeyName(key)] = key
	}

	names := q.Projection
	if len(names) == 0 {
		names = slices.Clone(group.Keys)
		for _, acc := range group.Accumulators {
			names = append(names, acc.Name)
		}
	}

	cols := make([]string, 0, len(names))
	for _, name := range names {
		if acc, ok := accumulators[name]; ok {
			col, err := aggregate(acc, joins)
			if err != nil {
				return "", err
			}
			cols = append(cols, col)
			continue
		}
		// A name that is neither grouped nor aggregated is a plain column.
		key, ok := keys[name]
		if !ok {
			key = name
		}
		col, err := fieldIdent(key, joins, document.Key_Projection)
		if err != nil {
			return "", err
		}
		cols = append(cols, col)
	}
	return strings.Join(cols, ", "), nil
}

func aggregate(acc document.Accumulator, joins map[string]bool) (string, error) {
	path := document.Mongo_Stage_Group + "." + acc.Name
	m, err := operator.AccumulatorFromSQL(acc.Func)
	if err != nil {
		return "", &document.UnsupportedShapeError{Path: path, Err: err}
	}

	item := parser.SelectItem{Type: parser.SelectAggregate, Func: m.SQL}
	arg := "*"
	if acc.Field != "" {
		if arg, err = fieldIdent(acc.Field, joins, path); err != nil {
			return "", err
		}
		if table, name, ok := strings.Cut(acc.Field, "."); ok {
			item.Column = parser.ColumnRef{Table: table, Name: name}
		} else {
			item.Column = parser.ColumnRef{Name: acc.Field}
		}
	} else if m.SQL != parser.AggCount {
		return "", &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("%v needs a field", m.SQL)}
	}

	col := fmt.Sprintf("%v(%v)", m.SQL, arg)
	if acc.Name != item.Name() {
		name, err := ident(acc.Name, path)
		if err != nil {
			return "", err
		}
		col += " AS " + name
	}
	return col, nil
}

func (conv *SQLQueryConverter) where(joins map[string]bool) (string, error) {
	f := conv.query.Filter
	if f.Empty() {
		return "", nil
	}
	if f.Depth() > document.MaxFilterDepth {
		return "", &document.UnsupportedShapeError{Path: document.Key_Filter, Msg: fmt.Sprintf("filter nested deeper than %d levels", document.MaxFilterDepth)}
	}
	terms, err := filterTerms(f, joins, document.Key_Filter)
	if err != nil {
		return "", err
	}
	return " WHERE " + strings.Join(terms, " AND "), nil
}

// filterTerms renders a filter as terms to be AND-ed together.
func filterTerms(f *document.Filter, joins map[string]bool, path string) (terms []string, err error) {
	for _, field := range f.Fields {
		fieldPath := path + "." + field.Field
		var col string
		if col, err = fieldIdent(field.Field, joins, fieldPath); err != nil {
			return
		}
		if len(field.Conditions) == 0 {
			return nil, &document.UnsupportedShapeError{Path: fieldPath, Msg: "field without conditions"}
		}
		for _, c := range field.Conditions {
			var term string
			if term, err = condition(col, c, fieldPath+"."+c.Operator, false); err != nil {
				return
			}
			terms = append(terms, term)
		}
	}

	for _, clause := range f.Clauses {
		clausePath := path + "." + clause.Operator
		m, opErr := operator.FromMongo(clause.Operator)
		if opErr != nil {
			return nil, &document.UnsupportedShapeError{Path: clausePath, Err: opErr}
		}
		if m.Arity != operator.Variadic {
			return nil, &document.UnsupportedShapeError{Path: clausePath, Msg: fmt.Sprintf("%v must be applied to a field", m.Mongo)}
		}
		if len(clause.Filters) == 0 {
			return nil, &document.UnsupportedShapeError{Path: clausePath, Msg: "empty clause"}
		}

		parts := make([]string, 0, len(clause.Filters))
		for i, sub := range clause.Filters {
			var subTerms []string
			subTerms, err = filterTerms(sub, joins, fmt.Sprintf("%v[%d]", clausePath, i))
			if err != nil {
				return
			}
			if len(subTerms) == 0 {
				return nil, &document.UnsupportedShapeError{Path: fmt.Sprintf("%v[%d]", clausePath, i), Msg: "empty filter"}
			}
			part := strings.Join(subTerms, " AND ")
			if m.Op == opcode.LogicOr && len(subTerms) > 1 {
				part = "(" + part + ")"
			}
			parts = append(parts, part)
		}
		if m.Op == opcode.LogicOr {
			terms = append(terms, "("+strings.Join(parts, " "+m.SQL+" ")+")")
		} else {
			terms = append(terms, parts...)
		}
	}
	return
}

func condition(col string, c document.Condition, path string, negated bool) (string, error) {
	m, err := operator.FromMongo(c.Operator)
	if err != nil {
		return "", &document.UnsupportedShapeError{Path: path, Err: err}
	}

	switch m.Shape {
	case operator.Scalar:
		if c.Value == nil {
			switch m.Op {
			case opcode.EQ:
				return col + " IS NULL", nil
			case opcode.NE:
				return col + " IS NOT NULL", nil
			}
			return "", &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("%v null has no SQL equivalent", m.Mongo)}
		}
		lit, err := literal(c.Value, path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v %v %v", col, m.SQL, lit), nil
	case operator.List:
		var values []any
		switch v := c.Value.(type) {
		case []any:
			values = v
		case bson.A:
			values = v
		}
		if len(values) == 0 {
			return "", &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("%v expects a non-empty array", m.Mongo)}
		}
		lits := make([]string, 0, len(values))
		for _, val := range values {
			lit, err := literal(val, path)
			if err != nil {
				return "", err
			}
			lits = append(lits, lit)
		}
		return fmt.Sprintf("%v %v (%v)", col, m.SQL, strings.Join(lits, ", ")), nil
	case operator.Pattern:
		expr, ok := c.Value.(string)
		if !ok {
			return "", &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("%v expects a string", m.Mongo)}
		}
		like, ok := operator.RegexToLike(expr)
		if !ok {
			return "", &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("regular expression [%v] has no LIKE equivalent", expr)}
		}
		lit, err := literal(like, path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v %v %v", col, m.SQL, lit), nil
	}

	if m.Op != opcode.Not {
		return "", &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("%v must combine documents, not field conditions", m.Mongo)}
	}
	if negated {
		return "", &document.UnsupportedShapeError{Path: path, Msg: "nested " + m.Mongo}
	}
	if len(c.Not) == 0 {
		return "", &document.UnsupportedShapeError{Path: path, Msg: "empty " + m.Mongo}
	}
	if low, high, ok := betweenBounds(c.Not); ok {
		lo, err := literal(low, path)
		if err != nil {
			return "", err
		}
		hi, err := literal(high, path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v NOT BETWEEN %v AND %v", col, lo, hi), nil
	}
	inner := make([]string, 0, len(c.Not))
	for _, nc := range c.Not {
		term, err := condition(col, nc, path+"."+nc.Operator, true)
		if err != nil {
			return "", err
		}
		inner = append(inner, term)
	}
	return fmt.Sprintf("%v (%v)", m.SQL, strings.Join(inner, " AND ")), nil
}

// betweenBounds matches the negated range NOT BETWEEN produces. Written as
// NOT (a >= x AND a <= y) it would read back as a disjunction.
func betweenBounds(conditions []document.Condition) (low, high any, ok bool) {
	if len(conditions) != 2 {
		return
	}
	ge, le := conditions[0], conditions[1]
	if ge.Operator != operator.Mongo_Operator_Gte || le.Operator != operator.Mongo_Operator_Lte {
		return
	}
	if ge.Not != nil || le.Not != nil || ge.Value == nil || le.Value == nil {
		return
	}
	return ge.Value, le.Value, true
}

func (conv *SQLQueryConverter) buildInsert() (sql string, err error) {
	q := conv.query
	if len(q.Document) == 0 {
		return "", &document.UnsupportedShapeError{Path: document.Key_Document, Msg: "empty document"}
	}
	var table string
	if table, err = conv.table(); err != nil {
		return
	}
	cols := make([]string, 0, len(q.Document))
	vals := make([]string, 0, len(q.Document))
	for _, e := range q.Document {
		path := document.Key_Document + "." + e.Key
		var col, val string
		if col, err = ident(e.Key, path); err != nil {
			return
		}
		if val, err = literal(e.Value, path); err != nil {
			return
		}
		cols = append(cols, col)
		vals = append(vals, val)
	}
	sql = fmt.Sprintf("INSERT INTO %v (%v) VALUES (%v)", table, strings.Join(cols, ", "), strings.Join(vals, ", "))
	return
}

func (conv *SQLQueryConverter) buildUpdate() (sql string, err error) {
	q := conv.query
	if len(q.Update) == 0 {
		return "", &document.UnsupportedShapeError{Path: document.Key_Update, Msg: "empty update"}
	}
	var table string
	if table, err = conv.table(); err != nil {
		return
	}

	var assignments []string
	for _, e := range q.Update {
		path := document.Key_Update + "." + e.Key
		m, opErr := operator.MutationFromMongo(e.Key)
		if opErr != nil {
			return "", &document.UnsupportedShapeError{Path: path, Err: opErr}
		}
		payload, ok := e.Value.(bson.D)
		if !ok || len(payload) == 0 {
			return "", &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("%v expects a non-empty document", m.Mongo)}
		}
		for _, p := range payload {
			var col, assignment string
			if col, err = ident(p.Key, path+"."+p.Key); err != nil {
				return
			}
			if m.Kind == operator.Increment {
				assignment, err = increment(col, p.Value, path+"."+p.Key)
			} else {
				var val string
				val, err = literal(p.Value, path+"."+p.Key)
				assignment = col + " = " + val
			}
			if err != nil {
				return
			}
			assignments = append(assignments, assignment)
		}
	}

	var where string
	if where, err = conv.where(nil); err != nil {
		return
	}
	sql = fmt.Sprintf("UPDATE %v SET %v%v", table, strings.Join(assignments, ", "), where)
	return
}

func increment(col string, delta any, path string) (string, error) {
	sign := "+"
	switch n := delta.(type) {
	case int64:
		if n < 0 {
			sign, delta = "-", -n
		}
	case int:
		if n < 0 {
			sign, delta = "-", -n
		}
	case float64:
		if n < 0 {
			sign, delta = "-", -n
		}
	default:
		return "", &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("%v expects a number", operator.Mongo_Operator_Inc)}
	}
	lit, err := literal(delta, path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v = %v %v %v", col, col, sign, lit), nil
}

func (conv *SQLQueryConverter) buildDelete() (sql string, err error) {
	var table, where string
	if table, err = conv.table(); err != nil {
		return
	}
	if where, err = conv.where(nil); err != nil {
		return
	}
	sql = fmt.Sprintf("DELETE FROM %v%v", table, where)
	return
}

func (conv *SQLQueryConverter) buildCreateTable() (sql string, err error) {
	q := conv.query
	if len(q.Columns) == 0 {
		return "", &document.UnsupportedShapeError{Path: document.Key_Columns, Msg: "no columns"}
	}
	var table string
	if table, err = conv.table(); err != nil {
		return
	}
	defs := make([]string, 0, len(q.Columns))
	for i, col := range q.Columns {
		path := fmt.Sprintf("%v[%d]", document.Key_Columns, i)
		var name string
		if name, err = ident(col.Name, path); err != nil {
			return
		}
		if col.Type == "" {
			return "", &document.UnsupportedShapeError{Path: path, Msg: "column without a type"}
		}
		def := strings.Join(append([]string{name, col.Type}, col.Constraints...), " ")
		defs = append(defs, def)
	}
	sql = fmt.Sprintf("CREATE TABLE %v (%v)", table, strings.Join(defs, ", "))
	return
}

func (conv *SQLQueryConverter) buildCreateIndex() (sql string, err error) {
	index := conv.query.Index
	if index == nil || len(index.Keys) == 0 {
		return "", &document.UnsupportedShapeError{Path: document.Key_Index, Msg: "index without keys"}
	}
	var table, name string
	if table, err = conv.table(); err != nil {
		return
	}
	if name, err = ident(index.Name, document.Key_Index+"."+document.Key_Name); err != nil {
		return
	}
	keys := make([]string, 0, len(index.Keys))
	for _, key := range index.Keys {
		var col string
		if col, err = ident(key.Field, document.Key_Index+"."+document.Key_Keys); err != nil {
			return
		}
		if key.Direction == document.Descending {
			col += " DESC"
		}
		keys = append(keys, col)
	}

	unique := ""
	if index.Unique {
		unique = "UNIQUE "
	}
	sql = fmt.Sprintf("CREATE %vINDEX %v ON %v (%v)", unique, name, table, strings.Join(keys, ", "))
	return
}
