package document

import (
	"strings"

	"github.com/tsfans/sqlmongo/operator"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	Mongo_Stage_Lookup       = "$lookup"
	Mongo_Stage_Group        = "$group"
	Mongo_Stage_Replace_Root = "$replaceRoot"
	Mongo_Stage_Unwind       = "$unwind"
	Mongo_Stage_Match        = "$match"
	Mongo_Stage_Sort         = "$sort"
	Mongo_Stage_Skip         = "$skip"
	Mongo_Stage_Limit        = "$limit"
	Mongo_Stage_Project      = "$project"

	Mongo_Operator_Cond   = "$cond"
	Mongo_Operator_IfNull = "$ifNull"

	Mongo_Arg_From         = "from"
	Mongo_Arg_LocalField   = "localField"
	Mongo_Arg_ForeignField = "foreignField"
	Mongo_Arg_As           = "as"
	Mongo_Arg_Path         = "path"
	Mongo_Arg_Preserve     = "preserveNullAndEmptyArrays"
	Mongo_Arg_NewRoot      = "newRoot"
	Mongo_Arg_If           = "if"
	Mongo_Arg_Then         = "then"
	Mongo_Arg_Else         = "else"
	Mongo_Arg_Id           = "_id"
)

// Stage is a pipeline step attached to an aggregate query.
type Stage interface {
	StageName() string
	appendTo(pipeline bson.A) bson.A
}

// LookupStage joins another collection. Preserve keeps documents without a
// match, which is the LEFT JOIN behaviour; otherwise unmatched documents are
// dropped as with INNER JOIN.
type LookupStage struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Preserve     bool
}

func (s *LookupStage) StageName() string {
	return Mongo_Stage_Lookup
}

func (s *LookupStage) appendTo(pipeline bson.A) bson.A {
	return append(pipeline,
		bson.D{{Key: Mongo_Stage_Lookup, Value: bson.D{
			{Key: Mongo_Arg_From, Value: s.From},
			{Key: Mongo_Arg_LocalField, Value: s.LocalField},
			{Key: Mongo_Arg_ForeignField, Value: s.ForeignField},
			{Key: Mongo_Arg_As, Value: s.As},
		}}},
		bson.D{{Key: Mongo_Stage_Unwind, Value: bson.D{
			{Key: Mongo_Arg_Path, Value: "$" + s.As},
			{Key: Mongo_Arg_Preserve, Value: s.Preserve},
		}}},
	)
}

// Accumulator is one computed field of a $group stage. Func is the SQL
// aggregate name; Field is empty for COUNT(*).
type Accumulator struct {
	Name  string
	Func  string
	Field string
}

func (a Accumulator) ToBSON() any {
	symbol := "$" + strings.ToLower(a.Func)
	if m, err := operator.AccumulatorFromSQL(a.Func); err == nil {
		symbol = m.Mongo
	}
	if a.Func != "COUNT" {
		return bson.D{{Key: symbol, Value: "$" + a.Field}}
	}
	if a.Field == "" {
		return bson.D{{Key: symbol, Value: 1}}
	}
	// COUNT(col) counts documents where col is present and not null.
	return bson.D{{Key: symbol, Value: bson.D{{Key: Mongo_Operator_Cond, Value: bson.D{
		{Key: Mongo_Arg_If, Value: bson.D{{Key: operator.Mongo_Operator_Eq, Value: bson.A{
			bson.D{{Key: Mongo_Operator_IfNull, Value: bson.A{"$" + a.Field, nil}}},
			nil,
		}}}},
		{Key: Mongo_Arg_Then, Value: 0},
		{Key: Mongo_Arg_Else, Value: 1},
	}}}}}
}

// GroupStage groups by Keys; no keys groups the whole collection.
type GroupStage struct {
	Keys         []string
	Accumulators []Accumulator
}

func (s *GroupStage) StageName() string {
	return Mongo_Stage_Group
}

// GroupKeyName is the _id sub-field used for a group key. Field names inside
// _id may not contain dots.
func GroupKeyName(key string) string {
	return strings.ReplaceAll(key, ".", "_")
}

func (s *GroupStage) idToBSON() any {
	if len(s.Keys) == 0 {
		return nil
	}
	id := bson.D{}
	for _, key := range s.Keys {
		id = append(id, bson.E{Key: GroupKeyName(key), Value: "$" + key})
	}
	return id
}

func (s *GroupStage) ToBSON() bson.D {
	group := bson.D{{Key: Mongo_Arg_Id, Value: s.idToBSON()}}
	for _, acc := range s.Accumulators {
		group = append(group, bson.E{Key: acc.Name, Value: acc.ToBSON()})
	}
	return bson.D{{Key: Mongo_Stage_Group, Value: group}}
}

func (s *GroupStage) appendTo(pipeline bson.A) bson.A {
	return append(pipeline, s.ToBSON())
}

// replaceRoot lifts group keys out of _id, keeping only projected names when
// a projection is given.
func (s *GroupStage) replaceRoot(projection []string) bson.D {
	root := bson.D{}
	keep := func(name string) bool {
		if len(projection) == 0 {
			return true
		}
		for _, p := range projection {
			if p == name {
				return true
			}
		}
		return false
	}
	for _, key := range s.Keys {
		name := GroupKeyName(key)
		if keep(key) || keep(name) {
			root = append(root, bson.E{Key: name, Value: "$_id." + name})
		}
	}
	for _, acc := range s.Accumulators {
		if keep(acc.Name) {
			root = append(root, bson.E{Key: acc.Name, Value: "$" + acc.Name})
		}
	}
	return bson.D{{Key: Mongo_Stage_Replace_Root, Value: bson.D{{Key: Mongo_Arg_NewRoot, Value: root}}}}
}
