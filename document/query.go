// Package document models the document-query side of a translation: a
// collection, an operation and the filter, projection, sort, limit,
// pipeline and mutation payload that go with it.
package document

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

type Operation string

const (
	Find             Operation = "find"
	InsertOne        Operation = "insertOne"
	UpdateMany       Operation = "updateMany"
	DeleteMany       Operation = "deleteMany"
	Aggregate        Operation = "aggregate"
	CreateCollection Operation = "createCollection"
	CreateIndex      Operation = "createIndex"
)

var Operations = []Operation{Find, InsertOne, UpdateMany, DeleteMany, Aggregate, CreateCollection, CreateIndex}

func (o Operation) Valid() bool {
	for _, op := range Operations {
		if op == o {
			return true
		}
	}
	return false
}

func (o Operation) IsMutation() bool {
	return o == InsertOne || o == UpdateMany || o == DeleteMany
}

// Keys of the raw document-query shape.
const (
	Key_Collection = "collection"
	Key_Operation  = "operation"
	Key_Filter     = "filter"
	Key_Find       = "find"
	Key_Projection = "projection"
	Key_Sort       = "sort"
	Key_Limit      = "limit"
	Key_Skip       = "skip"
	Key_Pipeline   = "pipeline"
	Key_Document   = "document"
	Key_Update     = "update"
	Key_Columns    = "columns"
	Key_Index      = "index"

	Key_Name        = "name"
	Key_Type        = "type"
	Key_Constraints = "constraints"
	Key_Unique      = "unique"
	Key_Keys        = "keys"
)

const (
	Ascending  = 1
	Descending = -1
)

type SortField struct {
	Field     string
	Direction int
}

// Column is a collection field definition kept as written in CREATE TABLE.
type Column struct {
	Name        string
	Type        string
	Constraints []string
}

type Index struct {
	Name   string
	Unique bool
	Keys   []SortField
}

// Query is a typed, validated document query. Values inside Filter,
// Document and Update are nil, string, int64, float64, bool or []any.
type Query struct {
	Collection string
	Operation  Operation
	Filter     *Filter
	Projection []string
	Sort       []SortField
	Limit      *int64
	Skip       *int64
	Pipeline   []Stage
	// Document is the insertOne payload.
	Document bson.D
	// Update holds update operators, e.g. {$set: {...}, $inc: {...}}.
	Update  bson.D
	Columns []Column
	Index   *Index
}

// Lookups returns the join stages in pipeline order.
func (q *Query) Lookups() (stages []*LookupStage) {
	for _, stage := range q.Pipeline {
		if lookup, ok := stage.(*LookupStage); ok {
			stages = append(stages, lookup)
		}
	}
	return
}

// Group returns the grouping stage, or nil.
func (q *Query) Group() *GroupStage {
	for _, stage := range q.Pipeline {
		if group, ok := stage.(*GroupStage); ok {
			return group
		}
	}
	return nil
}

func (q *Query) hasFilter() bool {
	switch q.Operation {
	case Find, Aggregate, UpdateMany, DeleteMany:
		return true
	}
	return false
}

// ToBSON renders the canonical raw shape. Feeding it back through the
// validator yields an equal Query.
func (q *Query) ToBSON() bson.D {
	doc := bson.D{
		{Key: Key_Collection, Value: q.Collection},
		{Key: Key_Operation, Value: string(q.Operation)},
	}
	if q.hasFilter() {
		doc = append(doc, bson.E{Key: Key_Filter, Value: q.Filter.ToBSON()})
	}
	if len(q.Projection) > 0 {
		projection := bson.D{}
		for _, field := range q.Projection {
			projection = append(projection, bson.E{Key: field, Value: 1})
		}
		doc = append(doc, bson.E{Key: Key_Projection, Value: projection})
	}
	if len(q.Sort) > 0 {
		doc = append(doc, bson.E{Key: Key_Sort, Value: sortToBSON(q.Sort)})
	}
	if q.Limit != nil {
		doc = append(doc, bson.E{Key: Key_Limit, Value: *q.Limit})
	}
	if q.Skip != nil {
		doc = append(doc, bson.E{Key: Key_Skip, Value: *q.Skip})
	}
	if len(q.Pipeline) > 0 {
		pipeline := bson.A{}
		for _, stage := range q.Pipeline {
			pipeline = stage.appendTo(pipeline)
		}
		doc = append(doc, bson.E{Key: Key_Pipeline, Value: pipeline})
	}
	if q.Document != nil {
		doc = append(doc, bson.E{Key: Key_Document, Value: q.Document})
	}
	if q.Update != nil {
		doc = append(doc, bson.E{Key: Key_Update, Value: q.Update})
	}
	if len(q.Columns) > 0 {
		columns := bson.A{}
		for _, col := range q.Columns {
			constraints := bson.A{}
			for _, c := range col.Constraints {
				constraints = append(constraints, c)
			}
			columns = append(columns, bson.D{
				{Key: Key_Name, Value: col.Name},
				{Key: Key_Type, Value: col.Type},
				{Key: Key_Constraints, Value: constraints},
			})
		}
		doc = append(doc, bson.E{Key: Key_Columns, Value: columns})
	}
	if q.Index != nil {
		doc = append(doc, bson.E{Key: Key_Index, Value: bson.D{
			{Key: Key_Name, Value: q.Index.Name},
			{Key: Key_Unique, Value: q.Index.Unique},
			{Key: Key_Keys, Value: sortToBSON(q.Index.Keys)},
		}})
	}
	return doc
}

func sortToBSON(fields []SortField) bson.D {
	doc := bson.D{}
	for _, s := range fields {
		doc = append(doc, bson.E{Key: s.Field, Value: s.Direction})
	}
	return doc
}

// AggregatePipeline renders the query as an executable aggregation pipeline:
// joins, match, group, sort, skip, limit and projection in that order.
func (q *Query) AggregatePipeline() bson.A {
	pipeline := bson.A{}
	for _, lookup := range q.Lookups() {
		pipeline = lookup.appendTo(pipeline)
	}
	if !q.Filter.Empty() {
		pipeline = append(pipeline, bson.D{{Key: Mongo_Stage_Match, Value: q.Filter.ToBSON()}})
	}
	group := q.Group()
	if group != nil {
		pipeline = group.appendTo(pipeline)
		pipeline = append(pipeline, group.replaceRoot(q.Projection))
	}
	if len(q.Sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: Mongo_Stage_Sort, Value: sortToBSON(q.Sort)}})
	}
	if q.Skip != nil {
		pipeline = append(pipeline, bson.D{{Key: Mongo_Stage_Skip, Value: *q.Skip}})
	}
	if q.Limit != nil {
		pipeline = append(pipeline, bson.D{{Key: Mongo_Stage_Limit, Value: *q.Limit}})
	}
	if group == nil && len(q.Projection) > 0 {
		project := bson.D{}
		for _, field := range q.Projection {
			project = append(project, bson.E{Key: field, Value: 1})
		}
		pipeline = append(pipeline, bson.D{{Key: Mongo_Stage_Project, Value: project}})
	}
	return pipeline
}

// MarshalJSON renders the raw shape as relaxed Extended JSON.
func (q *Query) MarshalJSON() ([]byte, error) {
	return bson.MarshalExtJSON(q.ToBSON(), false, false)
}

func (q *Query) String() string {
	b, err := q.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%+v", *q)
	}
	return string(b)
}
