package validator

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sqlmongo/document"
	"github.com/tsfans/sqlmongo/operator"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/maps"
)

var topLevelKeys = map[string]bool{
	document.Key_Collection: true,
	document.Key_Operation:  true,
	document.Key_Filter:     true,
	document.Key_Find:       true,
	document.Key_Projection: true,
	document.Key_Sort:       true,
	document.Key_Limit:      true,
	document.Key_Skip:       true,
	document.Key_Pipeline:   true,
	document.Key_Document:   true,
	document.Key_Update:     true,
	document.Key_Columns:    true,
	document.Key_Index:      true,
}

// ValidateDocument promotes an untyped document query into a typed one.
// raw may be a bson.D, bson.M, map[string]any or Extended JSON text. Shape
// errors are *ValidationError; constructs with no SQL equivalent are
// *document.UnsupportedShapeError.
func (v *QueryValidator) ValidateDocument(raw any) (q *document.Query, err error) {
	var doc bson.D
	doc, err = rawDocument(raw)
	if err != nil {
		return
	}
	q, err = promote(doc)
	if err != nil {
		q = nil
		return
	}
	log.Debugf("promoted document query collection=%v,operation=%v", q.Collection, q.Operation)
	return
}

func rawDocument(raw any) (doc bson.D, err error) {
	var text []byte
	switch r := raw.(type) {
	case nil:
		err = newFieldError(InvalidField, "", "document query is nil")
		return
	case string:
		text = []byte(r)
	case []byte:
		text = r
	default:
		var ok bool
		doc, ok = toDoc(raw)
		if !ok {
			err = newFieldError(InvalidField, "", "expected a document, got %T", raw)
		}
		return
	}

	if strings.TrimSpace(string(text)) == "" {
		err = &ValidationError{Kind: EmptyQuery, Offset: -1, Msg: "no document given"}
		return
	}
	if e := bson.UnmarshalExtJSON(text, false, &doc); e != nil {
		err = newFieldError(InvalidField, "", "not a document: %v", e.Error())
	}
	return
}

func promote(doc bson.D) (q *document.Query, err error) {
	fields := map[string]any{}
	for _, e := range doc {
		if !topLevelKeys[e.Key] {
			return nil, newFieldError(InvalidField, e.Key, "unknown key, valid keys=%v", sortedKeys(topLevelKeys))
		}
		if _, dup := fields[e.Key]; dup {
			return nil, newFieldError(InvalidField, e.Key, "duplicate key")
		}
		fields[e.Key] = e.Value
	}

	q = &document.Query{}
	rawCollection, ok := fields[document.Key_Collection]
	if !ok {
		return nil, newFieldError(MissingField, document.Key_Collection, "collection is required")
	}
	if q.Collection, ok = rawCollection.(string); !ok || q.Collection == "" {
		return nil, newFieldError(InvalidField, document.Key_Collection, "expected a non-empty string")
	}

	if rawOp, ok := fields[document.Key_Operation]; ok {
		op, isString := rawOp.(string)
		if !isString || !document.Operation(op).Valid() {
			return nil, newFieldError(InvalidField, document.Key_Operation, "expected one of %v", document.Operations)
		}
		q.Operation = document.Operation(op)
	} else if _, ok := fields[document.Key_Pipeline]; ok {
		q.Operation = document.Aggregate
	} else {
		q.Operation = document.Find
	}

	rawFilter, hasFilter := fields[document.Key_Filter]
	if rawFind, hasFind := fields[document.Key_Find]; hasFind {
		if hasFilter {
			return nil, newFieldError(InvalidField, document.Key_Find, "both filter and find given")
		}
		rawFilter, hasFilter = rawFind, true
	}
	if hasFilter {
		q.Filter, err = parseFilter(rawFilter, document.Key_Filter, 1)
		if err != nil {
			return nil, err
		}
	}

	if rawProjection, ok := fields[document.Key_Projection]; ok {
		q.Projection, err = parseProjection(rawProjection)
		if err != nil {
			return nil, err
		}
	}
	if rawSort, ok := fields[document.Key_Sort]; ok {
		q.Sort, err = parseSort(rawSort, document.Key_Sort)
		if err != nil {
			return nil, err
		}
	}
	if rawLimit, ok := fields[document.Key_Limit]; ok {
		q.Limit, err = parseCount(rawLimit, document.Key_Limit)
		if err != nil {
			return nil, err
		}
	}
	if rawSkip, ok := fields[document.Key_Skip]; ok {
		q.Skip, err = parseCount(rawSkip, document.Key_Skip)
		if err != nil {
			return nil, err
		}
	}
	if rawPipeline, ok := fields[document.Key_Pipeline]; ok {
		if err = parsePipeline(q, rawPipeline); err != nil {
			return nil, err
		}
		if len(q.Pipeline) > 0 && q.Operation != document.Aggregate {
			return nil, newFieldError(InvalidField, document.Key_Pipeline, "pipeline stages require operation %v", document.Aggregate)
		}
	}
	if rawDoc, ok := fields[document.Key_Document]; ok {
		q.Document, err = parsePayload(rawDoc, document.Key_Document)
		if err != nil {
			return nil, err
		}
	}
	if rawUpdate, ok := fields[document.Key_Update]; ok {
		q.Update, err = parseUpdate(rawUpdate)
		if err != nil {
			return nil, err
		}
	}
	if rawColumns, ok := fields[document.Key_Columns]; ok {
		q.Columns, err = parseColumns(rawColumns)
		if err != nil {
			return nil, err
		}
	}
	if rawIndex, ok := fields[document.Key_Index]; ok {
		q.Index, err = parseIndex(rawIndex)
		if err != nil {
			return nil, err
		}
	}

	err = checkRequired(q)
	if err != nil {
		return nil, err
	}
	return
}

func checkRequired(q *document.Query) error {
	switch q.Operation {
	case document.InsertOne:
		if len(q.Document) == 0 {
			return newFieldError(MissingField, document.Key_Document, "%v requires a document", q.Operation)
		}
	case document.UpdateMany:
		if len(q.Update) == 0 {
			return newFieldError(MissingField, document.Key_Update, "%v requires an update", q.Operation)
		}
	case document.CreateCollection:
		if len(q.Columns) == 0 {
			return newFieldError(MissingField, document.Key_Columns, "%v requires columns", q.Operation)
		}
	case document.CreateIndex:
		if q.Index == nil {
			return newFieldError(MissingField, document.Key_Index, "%v requires an index", q.Operation)
		}
	}
	return nil
}

func parseFilter(raw any, path string, depth int) (filter *document.Filter, err error) {
	if depth > document.MaxFilterDepth {
		return nil, &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("filter nested deeper than %d levels", document.MaxFilterDepth)}
	}
	doc, ok := toDoc(raw)
	if !ok {
		return nil, newFieldError(InvalidField, path, "expected a document, got %T", raw)
	}

	filter = &document.Filter{}
	for _, e := range doc {
		fieldPath := path + "." + e.Key
		if strings.HasPrefix(e.Key, "$") {
			var clause document.Clause
			clause, err = parseClause(e.Key, e.Value, fieldPath, depth)
			if err != nil {
				return nil, err
			}
			if filter.Clause(clause.Operator) != nil {
				return nil, newFieldError(InvalidField, fieldPath, "duplicate key")
			}
			filter.Clauses = append(filter.Clauses, clause)
			continue
		}
		if e.Key == "" {
			return nil, newFieldError(InvalidField, path, "empty field name")
		}
		if filter.Field(e.Key) != nil {
			return nil, newFieldError(InvalidField, fieldPath, "duplicate key")
		}
		var conditions []document.Condition
		conditions, err = parseConditions(e.Value, fieldPath, false)
		if err != nil {
			return nil, err
		}
		filter.Fields = append(filter.Fields, document.FieldFilter{Field: e.Key, Conditions: conditions})
	}
	return
}

func parseClause(key string, raw any, path string, depth int) (clause document.Clause, err error) {
	m, err := operator.FromMongo(key)
	if err != nil {
		err = &document.UnsupportedShapeError{Path: path, Err: err}
		return
	}
	if m.Arity != operator.Variadic {
		err = &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("%v must be applied to a field", key)}
		return
	}
	items, ok := toArray(raw)
	if !ok || len(items) == 0 {
		err = newFieldError(InvalidField, path, "%v expects a non-empty array of documents", key)
		return
	}
	clause.Operator = m.Mongo
	for i, item := range items {
		var sub *document.Filter
		sub, err = parseFilter(item, fmt.Sprintf("%v[%d]", path, i), depth+1)
		if err != nil {
			return
		}
		clause.Filters = append(clause.Filters, sub)
	}
	return
}

// parseConditions reads the value of a filter field: an operator document or
// a bare value meaning equality.
func parseConditions(raw any, path string, negated bool) (conditions []document.Condition, err error) {
	if re, ok := raw.(primitive.Regex); ok {
		if err = regexOptions(re, path); err != nil {
			return nil, err
		}
		return []document.Condition{{Operator: operator.Mongo_Operator_Regex, Value: re.Pattern}}, nil
	}
	doc, isDoc := toDoc(raw)
	if !isDoc {
		if negated {
			return nil, newFieldError(InvalidField, path, "$not expects an operator document")
		}
		val, ok := normalizeScalar(raw)
		if !ok {
			return nil, &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("equality on %T value", raw)}
		}
		return []document.Condition{{Operator: operator.Mongo_Operator_Eq, Value: val}}, nil
	}
	if len(doc) == 0 {
		return nil, newFieldError(InvalidField, path, "empty operator document")
	}

	for _, e := range doc {
		opPath := path + "." + e.Key
		if !strings.HasPrefix(e.Key, "$") {
			return nil, &document.UnsupportedShapeError{Path: path, Msg: "embedded document equality"}
		}
		m, opErr := operator.FromMongo(e.Key)
		if opErr != nil {
			return nil, &document.UnsupportedShapeError{Path: opPath, Err: opErr}
		}
		for _, c := range conditions {
			if c.Operator == m.Mongo {
				return nil, newFieldError(InvalidField, opPath, "duplicate key")
			}
		}

		var c document.Condition
		c, err = parseCondition(m, e.Value, opPath, negated)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, c)
	}
	return
}

func parseCondition(m operator.Mapping, raw any, path string, negated bool) (c document.Condition, err error) {
	c.Operator = m.Mongo
	switch m.Shape {
	case operator.Scalar:
		val, ok := normalizeScalar(raw)
		if !ok {
			err = newFieldError(InvalidField, path, "%v expects a single value, got %T", m.Mongo, raw)
			return
		}
		c.Value = val
	case operator.List:
		items, ok := toArray(raw)
		if !ok || len(items) == 0 {
			err = newFieldError(InvalidField, path, "%v expects a non-empty array", m.Mongo)
			return
		}
		values := make([]any, 0, len(items))
		for _, item := range items {
			val, ok := normalizeScalar(item)
			if !ok || val == nil {
				err = newFieldError(InvalidField, path, "%v expects an array of values", m.Mongo)
				return
			}
			values = append(values, val)
		}
		c.Value = values
	case operator.Pattern:
		switch pattern := raw.(type) {
		case string:
			c.Value = pattern
		case primitive.Regex:
			c.Value = pattern.Pattern
			err = regexOptions(pattern, path)
		default:
			err = newFieldError(InvalidField, path, "%v expects a string pattern", m.Mongo)
		}
	default:
		if m.Mongo != operator.Mongo_Operator_Not {
			err = &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("%v must combine documents, not field conditions", m.Mongo)}
			return
		}
		if negated {
			err = &document.UnsupportedShapeError{Path: path, Msg: "nested $not"}
			return
		}
		c.Not, err = parseConditions(raw, path, true)
	}
	return
}

func regexOptions(re primitive.Regex, path string) error {
	if re.Options != "" {
		return &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("regular expression options [%v]", re.Options)}
	}
	return nil
}

func parseProjection(raw any) (projection []string, err error) {
	doc, ok := toDoc(raw)
	if !ok {
		return nil, newFieldError(InvalidField, document.Key_Projection, "expected a document, got %T", raw)
	}
	for _, e := range doc {
		path := document.Key_Projection + "." + e.Key
		include, ok := truthy(e.Value)
		if !ok {
			return nil, newFieldError(InvalidField, path, "expected 1, 0, true or false")
		}
		if !include {
			if e.Key == "_id" {
				continue
			}
			return nil, &document.UnsupportedShapeError{Path: path, Msg: "exclusion projection"}
		}
		projection = append(projection, e.Key)
	}
	return
}

func truthy(raw any) (include bool, ok bool) {
	if b, isBool := raw.(bool); isBool {
		return b, true
	}
	val, _ := normalizeScalar(raw)
	switch n := val.(type) {
	case int64:
		return n != 0, n == 0 || n == 1
	case float64:
		return n != 0, n == 0 || n == 1
	}
	return false, false
}

// parseSort accepts an ordered document, a single-key map, or an array of
// [field, direction] pairs or single-key documents.
func parseSort(raw any, path string) (fields []document.SortField, err error) {
	if items, ok := toArray(raw); ok {
		for i, item := range items {
			itemPath := fmt.Sprintf("%v[%d]", path, i)
			if pair, ok := toArray(item); ok {
				if len(pair) != 2 {
					return nil, newFieldError(InvalidField, itemPath, "expected [field, direction]")
				}
				name, isString := pair[0].(string)
				if !isString {
					return nil, newFieldError(InvalidField, itemPath, "expected [field, direction]")
				}
				var dir int
				dir, err = direction(pair[1], itemPath)
				if err != nil {
					return nil, err
				}
				fields = append(fields, document.SortField{Field: name, Direction: dir})
				continue
			}
			var sub []document.SortField
			sub, err = parseSort(item, itemPath)
			if err != nil {
				return nil, err
			}
			fields = append(fields, sub...)
		}
		return
	}

	if !isOrdered(raw) {
		if m, ok := toDoc(raw); ok && len(m) > 1 {
			return nil, newFieldError(InvalidField, path, "an unordered map has no defined sort order, use an ordered document or an array")
		}
	}
	doc, ok := toDoc(raw)
	if !ok {
		return nil, newFieldError(InvalidField, path, "expected a document or an array, got %T", raw)
	}
	for _, e := range doc {
		var dir int
		dir, err = direction(e.Value, path+"."+e.Key)
		if err != nil {
			return nil, err
		}
		fields = append(fields, document.SortField{Field: e.Key, Direction: dir})
	}
	return
}

func direction(raw any, path string) (int, error) {
	if s, ok := raw.(string); ok {
		switch strings.ToLower(s) {
		case "asc", "ascending":
			return document.Ascending, nil
		case "desc", "descending":
			return document.Descending, nil
		}
	}
	val, _ := normalizeScalar(raw)
	switch n := val.(type) {
	case int64:
		if n == 1 || n == -1 {
			return int(n), nil
		}
	case float64:
		if n == 1 || n == -1 {
			return int(n), nil
		}
	}
	return 0, newFieldError(InvalidField, path, "sort direction must be 1 or -1")
}

func parseCount(raw any, path string) (*int64, error) {
	val, _ := normalizeScalar(raw)
	var n int64
	switch v := val.(type) {
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 {
			return nil, newFieldError(InvalidField, path, "expected an integer")
		}
		n = int64(v)
	default:
		return nil, newFieldError(InvalidField, path, "expected an integer, got %T", raw)
	}
	if n < 0 {
		return nil, newFieldError(InvalidField, path, "must not be negative")
	}
	return &n, nil
}

func parsePipeline(q *document.Query, raw any) error {
	stages, ok := toArray(raw)
	if !ok {
		return newFieldError(InvalidField, document.Key_Pipeline, "expected an array, got %T", raw)
	}

	var lastLookup *document.LookupStage
	var group *document.GroupStage
	for i, rawStage := range stages {
		path := fmt.Sprintf("%v[%d]", document.Key_Pipeline, i)
		stage, ok := toDoc(rawStage)
		if !ok || len(stage) != 1 {
			return newFieldError(InvalidField, path, "a stage is a document with exactly one key")
		}
		name, body := stage[0].Key, stage[0].Value
		path = path + "." + name

		previous := lastLookup
		lastLookup = nil
		switch name {
		case document.Mongo_Stage_Lookup:
			if group != nil {
				return &document.UnsupportedShapeError{Path: path, Msg: "$lookup after $group"}
			}
			lookup, err := parseLookup(body, path)
			if err != nil {
				return err
			}
			q.Pipeline = append(q.Pipeline, lookup)
			lastLookup = lookup
		case document.Mongo_Stage_Unwind:
			if previous == nil {
				return &document.UnsupportedShapeError{Path: path, Msg: "$unwind must directly follow a $lookup"}
			}
			if err := parseUnwind(body, path, previous); err != nil {
				return err
			}
		case document.Mongo_Stage_Group:
			if group != nil {
				return &document.UnsupportedShapeError{Path: path, Msg: "more than one $group"}
			}
			var err error
			group, err = parseGroup(body, path)
			if err != nil {
				return err
			}
			q.Pipeline = append(q.Pipeline, group)
		case document.Mongo_Stage_Match:
			if group != nil {
				return &document.UnsupportedShapeError{Path: path, Msg: "$match after $group"}
			}
			if !q.Filter.Empty() {
				return &document.UnsupportedShapeError{Path: path, Msg: "$match together with a filter"}
			}
			filter, err := parseFilter(body, path, 1)
			if err != nil {
				return err
			}
			q.Filter = filter
		default:
			return &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("stage %v has no SQL equivalent", name)}
		}
	}
	return nil
}

func parseLookup(raw any, path string) (lookup *document.LookupStage, err error) {
	doc, ok := toDoc(raw)
	if !ok {
		return nil, newFieldError(InvalidField, path, "expected a document")
	}
	args := map[string]string{}
	for _, e := range doc {
		switch e.Key {
		case document.Mongo_Arg_From, document.Mongo_Arg_LocalField, document.Mongo_Arg_ForeignField, document.Mongo_Arg_As:
			s, ok := e.Value.(string)
			if !ok || s == "" {
				return nil, newFieldError(InvalidField, path+"."+e.Key, "expected a non-empty string")
			}
			args[e.Key] = s
		default:
			return nil, &document.UnsupportedShapeError{Path: path + "." + e.Key, Msg: "only equality lookups are supported"}
		}
	}
	for _, key := range []string{document.Mongo_Arg_From, document.Mongo_Arg_LocalField, document.Mongo_Arg_ForeignField, document.Mongo_Arg_As} {
		if _, ok := args[key]; !ok {
			return nil, newFieldError(MissingField, path+"."+key, "required by $lookup")
		}
	}
	lookup = &document.LookupStage{
		From:         args[document.Mongo_Arg_From],
		LocalField:   args[document.Mongo_Arg_LocalField],
		ForeignField: args[document.Mongo_Arg_ForeignField],
		As:           args[document.Mongo_Arg_As],
	}
	return
}

func parseUnwind(raw any, path string, lookup *document.LookupStage) error {
	unwindPath, preserve := "", false
	if s, ok := raw.(string); ok {
		unwindPath = s
	} else {
		doc, ok := toDoc(raw)
		if !ok {
			return newFieldError(InvalidField, path, "expected a string or a document")
		}
		for _, e := range doc {
			switch e.Key {
			case document.Mongo_Arg_Path:
				unwindPath, _ = e.Value.(string)
			case document.Mongo_Arg_Preserve:
				b, ok := e.Value.(bool)
				if !ok {
					return newFieldError(InvalidField, path+"."+e.Key, "expected a boolean")
				}
				preserve = b
			default:
				return &document.UnsupportedShapeError{Path: path + "." + e.Key, Msg: "unsupported $unwind option"}
			}
		}
	}
	if unwindPath != "$"+lookup.As {
		return &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("$unwind must unwind $%v", lookup.As)}
	}
	lookup.Preserve = preserve
	return nil
}

func parseGroup(raw any, path string) (group *document.GroupStage, err error) {
	doc, ok := toDoc(raw)
	if !ok {
		return nil, newFieldError(InvalidField, path, "expected a document")
	}
	group = &document.GroupStage{}
	hasID := false
	for _, e := range doc {
		entryPath := path + "." + e.Key
		if e.Key == document.Mongo_Arg_Id {
			hasID = true
			group.Keys, err = parseGroupID(e.Value, entryPath)
			if err != nil {
				return nil, err
			}
			continue
		}
		var acc document.Accumulator
		acc, err = parseAccumulator(e.Key, e.Value, entryPath)
		if err != nil {
			return nil, err
		}
		group.Accumulators = append(group.Accumulators, acc)
	}
	if !hasID {
		return nil, newFieldError(MissingField, path+"."+document.Mongo_Arg_Id, "required by $group")
	}
	return
}

func parseGroupID(raw any, path string) (keys []string, err error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok {
		key, ok := fieldRef(s)
		if !ok {
			return nil, &document.UnsupportedShapeError{Path: path, Msg: "group key must be a field reference"}
		}
		return []string{key}, nil
	}
	doc, ok := toDoc(raw)
	if !ok {
		return nil, &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("group key of type %T", raw)}
	}
	for _, e := range doc {
		s, _ := e.Value.(string)
		key, ok := fieldRef(s)
		if !ok {
			return nil, &document.UnsupportedShapeError{Path: path + "." + e.Key, Msg: "group key must be a field reference"}
		}
		keys = append(keys, key)
	}
	return
}

func parseAccumulator(name string, raw any, path string) (acc document.Accumulator, err error) {
	acc.Name = name
	doc, ok := toDoc(raw)
	if !ok || len(doc) != 1 {
		err = newFieldError(InvalidField, path, "an accumulator is a document with exactly one operator")
		return
	}
	symbol, arg := doc[0].Key, doc[0].Value
	m, opErr := operator.AccumulatorFromMongo(symbol)
	if opErr != nil {
		err = &document.UnsupportedShapeError{Path: path, Err: opErr}
		return
	}
	acc.Func = m.SQL

	if s, ok := arg.(string); ok {
		if acc.Field, ok = fieldRef(s); ok {
			return
		}
	}
	if symbol == operator.Mongo_Operator_Sum {
		if n, ok := normalizeScalar(arg); ok && (n == int64(1) || n == float64(1)) {
			acc.Func = "COUNT"
			return
		}
		if field, ok := countField(arg); ok {
			acc.Func, acc.Field = "COUNT", field
			return
		}
	}
	err = &document.UnsupportedShapeError{Path: path, Msg: fmt.Sprintf("%v argument has no SQL equivalent", symbol)}
	return
}

// countField recognizes the COUNT(col) expression rendered by
// document.Accumulator: {$cond: {if: {$eq: [{$ifNull: ["$col", null]}, null]}, then: 0, else: 1}}.
func countField(raw any) (string, bool) {
	cond, ok := lookupDoc(raw, document.Mongo_Operator_Cond)
	if !ok {
		return "", false
	}
	test, ok := lookupDoc(cond, document.Mongo_Arg_If)
	if !ok {
		return "", false
	}
	eq, ok := lookupDoc(test, operator.Mongo_Operator_Eq)
	if !ok {
		return "", false
	}
	operands, ok := toArray(eq)
	if !ok || len(operands) != 2 || operands[1] != nil {
		return "", false
	}
	ifNull, ok := lookupDoc(operands[0], document.Mongo_Operator_IfNull)
	if !ok {
		return "", false
	}
	args, ok := toArray(ifNull)
	if !ok || len(args) != 2 || args[1] != nil {
		return "", false
	}
	s, _ := args[0].(string)
	return fieldRef(s)
}

func lookupDoc(raw any, key string) (any, bool) {
	doc, ok := toDoc(raw)
	if !ok {
		return nil, false
	}
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func fieldRef(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' || s[1] == '$' {
		return "", false
	}
	return s[1:], true
}

func parsePayload(raw any, path string) (bson.D, error) {
	doc, ok := toDoc(raw)
	if !ok {
		return nil, newFieldError(InvalidField, path, "expected a document, got %T", raw)
	}
	payload := make(bson.D, 0, len(doc))
	for _, e := range doc {
		if strings.HasPrefix(e.Key, "$") || e.Key == "" {
			return nil, newFieldError(InvalidField, path+"."+e.Key, "invalid field name")
		}
		val, ok := normalizeScalar(e.Value)
		if !ok {
			return nil, &document.UnsupportedShapeError{Path: path + "." + e.Key, Msg: fmt.Sprintf("nested value of type %T", e.Value)}
		}
		payload = append(payload, bson.E{Key: e.Key, Value: val})
	}
	return payload, nil
}

func parseUpdate(raw any) (update bson.D, err error) {
	doc, ok := toDoc(raw)
	if !ok {
		return nil, newFieldError(InvalidField, document.Key_Update, "expected a document, got %T", raw)
	}
	for _, e := range doc {
		path := document.Key_Update + "." + e.Key
		if !strings.HasPrefix(e.Key, "$") {
			return nil, newFieldError(InvalidField, path, "update documents must use update operators")
		}
		m, opErr := operator.MutationFromMongo(e.Key)
		if opErr != nil {
			return nil, &document.UnsupportedShapeError{Path: path, Err: opErr}
		}
		var payload bson.D
		payload, err = parsePayload(e.Value, path)
		if err != nil {
			return nil, err
		}
		if m.Kind == operator.Increment {
			for _, inc := range payload {
				switch inc.Value.(type) {
				case int64, float64:
				default:
					return nil, newFieldError(InvalidField, path+"."+inc.Key, "%v expects a number", m.Mongo)
				}
			}
		}
		update = append(update, bson.E{Key: m.Mongo, Value: payload})
	}
	return
}

func parseColumns(raw any) (columns []document.Column, err error) {
	items, ok := toArray(raw)
	if !ok {
		return nil, newFieldError(InvalidField, document.Key_Columns, "expected an array, got %T", raw)
	}
	for i, item := range items {
		path := fmt.Sprintf("%v[%d]", document.Key_Columns, i)
		doc, ok := toDoc(item)
		if !ok {
			return nil, newFieldError(InvalidField, path, "expected a document")
		}
		var col document.Column
		for _, e := range doc {
			switch e.Key {
			case document.Key_Name:
				col.Name, _ = e.Value.(string)
			case document.Key_Type:
				col.Type, _ = e.Value.(string)
			case document.Key_Constraints:
				constraints, ok := toArray(e.Value)
				if !ok {
					return nil, newFieldError(InvalidField, path+"."+e.Key, "expected an array of strings")
				}
				for _, c := range constraints {
					s, ok := c.(string)
					if !ok {
						return nil, newFieldError(InvalidField, path+"."+e.Key, "expected an array of strings")
					}
					col.Constraints = append(col.Constraints, s)
				}
			default:
				return nil, newFieldError(InvalidField, path+"."+e.Key, "unknown key")
			}
		}
		if col.Name == "" {
			return nil, newFieldError(MissingField, path+"."+document.Key_Name, "column name is required")
		}
		if col.Type == "" {
			return nil, newFieldError(MissingField, path+"."+document.Key_Type, "column type is required")
		}
		columns = append(columns, col)
	}
	return
}

func parseIndex(raw any) (index *document.Index, err error) {
	doc, ok := toDoc(raw)
	if !ok {
		return nil, newFieldError(InvalidField, document.Key_Index, "expected a document, got %T", raw)
	}
	index = &document.Index{}
	for _, e := range doc {
		path := document.Key_Index + "." + e.Key
		switch e.Key {
		case document.Key_Name:
			index.Name, _ = e.Value.(string)
		case document.Key_Unique:
			if index.Unique, ok = e.Value.(bool); !ok {
				return nil, newFieldError(InvalidField, path, "expected a boolean")
			}
		case document.Key_Keys:
			index.Keys, err = parseSort(e.Value, path)
			if err != nil {
				return nil, err
			}
		default:
			return nil, newFieldError(InvalidField, path, "unknown key")
		}
	}
	if index.Name == "" {
		return nil, newFieldError(MissingField, document.Key_Index+"."+document.Key_Name, "index name is required")
	}
	if len(index.Keys) == 0 {
		return nil, newFieldError(MissingField, document.Key_Index+"."+document.Key_Keys, "index keys are required")
	}
	return
}

// isOrdered reports whether raw keeps key order.
func isOrdered(raw any) bool {
	switch raw.(type) {
	case bson.D, bson.Raw:
		return true
	}
	return false
}

// toDoc converts the document forms callers hand in to an ordered bson.D.
// Unordered maps are sorted by key so the result is deterministic.
func toDoc(raw any) (bson.D, bool) {
	switch d := raw.(type) {
	case bson.D:
		return d, true
	case bson.M:
		return fromMap(d), true
	case map[string]any:
		return fromMap(d), true
	case bson.Raw:
		var doc bson.D
		if err := bson.Unmarshal(d, &doc); err != nil {
			return nil, false
		}
		return doc, true
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return fromMap(m), true
}

func fromMap(m map[string]any) bson.D {
	keys := maps.Keys(m)
	slices.Sort(keys)
	doc := make(bson.D, 0, len(keys))
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: m[k]})
	}
	return doc
}

func toArray(raw any) ([]any, bool) {
	switch a := raw.(type) {
	case bson.A:
		return a, true
	case []any:
		return a, true
	case nil, []byte, string, bson.D, bson.Raw:
		return nil, false
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// normalizeScalar maps Go and BSON scalars onto nil, string, bool, int64 or
// float64. ok is false for documents, arrays and other BSON types.
func normalizeScalar(raw any) (any, bool) {
	switch v := raw.(type) {
	case nil, primitive.Null:
		return nil, true
	case string:
		return v, true
	case bool:
		return v, true
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, false
		}
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return nil, false
		}
		return int64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return nil, false
}

func sortedKeys(m map[string]bool) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
