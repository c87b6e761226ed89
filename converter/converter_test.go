package converter

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/tsfans/sqlmongo/document"
	"github.com/tsfans/sqlmongo/operator"
	"github.com/tsfans/sqlmongo/parser"
	"github.com/tsfans/sqlmongo/validator"
	"go.mongodb.org/mongo-driver/bson"
)

var Collections = map[string]string{
	"users": "app_users",
}

func convertSQL(t *testing.T, sql string, opts Options) (*document.Query, error) {
	t.Helper()
	stmt, err := parser.ParseSQL(sql)
	if err != nil {
		t.Fatalf("parse [%v] failed,err=%v", sql, err)
	}
	return NewMongoQueryConverter(stmt, opts).Convert()
}

func queryJSON(t *testing.T, q *document.Query) string {
	t.Helper()
	b, err := bson.MarshalExtJSON(q.ToBSON(), false, false)
	if err != nil {
		t.Fatalf("marshal failed,err=%v", err)
	}
	return string(b)
}

func int64p(n int64) *int64 {
	return &n
}

func filterOf(fields ...document.FieldFilter) *document.Filter {
	return &document.Filter{Fields: fields}
}

func fieldOf(name, op string, val any) document.FieldFilter {
	return document.FieldFilter{Field: name, Conditions: []document.Condition{{Operator: op, Value: val}}}
}

func TestConvertToMongo(t *testing.T) {
	cases := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "projection and conjunction",
			sql:  "SELECT name, email FROM users WHERE age >= 18 AND status = 'active'",
			want: `{"collection":"users","operation":"find","filter":{"age":{"$gte":18},"status":{"$eq":"active"}},"projection":{"name":1,"email":1}}`,
		},
		{
			name: "wildcard",
			sql:  "SELECT * FROM users",
			want: `{"collection":"users","operation":"find","filter":{}}`,
		},
		{
			name: "disjunction is flattened",
			sql:  "SELECT * FROM users WHERE age < 18 OR age > 65 OR status = 'vip'",
			want: `{"collection":"users","operation":"find","filter":{"$or":[{"age":{"$lt":18}},{"age":{"$gt":65}},{"status":{"$eq":"vip"}}]}}`,
		},
		{
			name: "range on one field",
			sql:  "SELECT * FROM users WHERE age >= 18 AND age < 30",
			want: `{"collection":"users","operation":"find","filter":{"age":{"$gte":18,"$lt":30}}}`,
		},
		{
			name: "repeated operator falls back to $and",
			sql:  "SELECT * FROM users WHERE age <> 1 AND age <> 2",
			want: `{"collection":"users","operation":"find","filter":{"age":{"$ne":1},"$and":[{"age":{"$ne":2}}]}}`,
		},
		{
			name: "two disjunctions",
			sql:  "SELECT * FROM users WHERE (a = 1 OR b = 2) AND (c = 3 OR d = 4)",
			want: `{"collection":"users","operation":"find","filter":{"$or":[{"a":{"$eq":1}},{"b":{"$eq":2}}],"$and":[{"$or":[{"c":{"$eq":3}},{"d":{"$eq":4}}]}]}}`,
		},
		{
			name: "between",
			sql:  "SELECT * FROM users WHERE age BETWEEN 18 AND 30",
			want: `{"collection":"users","operation":"find","filter":{"age":{"$gte":18,"$lte":30}}}`,
		},
		{
			name: "not between",
			sql:  "SELECT * FROM users WHERE age NOT BETWEEN 18 AND 30",
			want: `{"collection":"users","operation":"find","filter":{"age":{"$not":{"$gte":18,"$lte":30}}}}`,
		},
		{
			name: "in and not in",
			sql:  "SELECT * FROM users WHERE status IN ('a', 'b') AND role NOT IN ('x')",
			want: `{"collection":"users","operation":"find","filter":{"status":{"$in":["a","b"]},"role":{"$nin":["x"]}}}`,
		},
		{
			name: "negated in flips",
			sql:  "SELECT * FROM users WHERE NOT status IN ('a') AND NOT role NOT IN ('x')",
			want: `{"collection":"users","operation":"find","filter":{"status":{"$nin":["a"]},"role":{"$in":["x"]}}}`,
		},
		{
			name: "like",
			sql:  "SELECT * FROM users WHERE name LIKE 'jo%' AND email NOT LIKE '%.test'",
			want: `{"collection":"users","operation":"find","filter":{"name":{"$regex":"^jo.*$"},"email":{"$not":{"$regex":"^.*\\.test$"}}}}`,
		},
		{
			name: "null checks",
			sql:  "SELECT * FROM users WHERE email IS NULL AND phone IS NOT NULL",
			want: `{"collection":"users","operation":"find","filter":{"email":{"$eq":null},"phone":{"$ne":null}}}`,
		},
		{
			name: "not is pushed down",
			sql:  "SELECT * FROM users WHERE NOT (age > 1 AND status = 'x')",
			want: `{"collection":"users","operation":"find","filter":{"$or":[{"age":{"$not":{"$gt":1}}},{"status":{"$not":{"$eq":"x"}}}]}}`,
		},
		{
			name: "double negation cancels",
			sql:  "SELECT * FROM users WHERE NOT NOT age = 1",
			want: `{"collection":"users","operation":"find","filter":{"age":{"$eq":1}}}`,
		},
		{
			name: "sort limit offset",
			sql:  "SELECT * FROM users ORDER BY age DESC, name LIMIT 10 OFFSET 20",
			want: `{"collection":"users","operation":"find","filter":{},"sort":{"age":-1,"name":1},"limit":10,"skip":20}`,
		},
		{
			name: "group with aggregates",
			sql:  "SELECT status, COUNT(*) AS total, AVG(age) FROM users WHERE age > 18 GROUP BY status",
			want: `{"collection":"users","operation":"aggregate","filter":{"age":{"$gt":18}},"projection":{"status":1,"total":1,"avg_age":1},"pipeline":[{"$group":{"_id":{"status":"$status"},"total":{"$sum":1},"avg_age":{"$avg":"$age"}}}]}`,
		},
		{
			name: "group without aggregates counts",
			sql:  "SELECT status FROM users GROUP BY status",
			want: `{"collection":"users","operation":"aggregate","filter":{},"projection":{"status":1},"pipeline":[{"$group":{"_id":{"status":"$status"},"count":{"$sum":1}}}]}`,
		},
		{
			name: "ungrouped columns stay projected",
			sql:  "SELECT name, age FROM employees WHERE age >= 25 AND department = 'Sales' GROUP BY department ORDER BY age DESC, name ASC LIMIT 100;",
			want: `{"collection":"employees","operation":"aggregate","filter":{"age":{"$gte":25},"department":{"$eq":"Sales"}},"projection":{"name":1,"age":1},"sort":{"age":-1,"name":1},"limit":100,"pipeline":[{"$group":{"_id":{"department":"$department"},"count":{"$sum":1}}}]}`,
		},
		{
			name: "escaped LIKE wildcard",
			sql:  `SELECT * FROM users WHERE code LIKE 'a\_b%'`,
			want: `{"collection":"users","operation":"find","filter":{"code":{"$regex":"^a_b.*$"}}}`,
		},
		{
			name: "aggregate without group",
			sql:  "SELECT COUNT(*) FROM users",
			want: `{"collection":"users","operation":"aggregate","filter":{},"projection":{"count":1},"pipeline":[{"$group":{"_id":null,"count":{"$sum":1}}}]}`,
		},
		{
			name: "left join",
			sql:  "SELECT u.name, o.total FROM users u LEFT JOIN orders o ON u.id = o.user_id WHERE o.total > 100",
			want: `{"collection":"users","operation":"aggregate","filter":{"o.total":{"$gt":100}},"projection":{"name":1,"o.total":1},"pipeline":[{"$lookup":{"from":"orders","localField":"id","foreignField":"user_id","as":"o"}},{"$unwind":{"path":"$o","preserveNullAndEmptyArrays":true}}]}`,
		},
		{
			name: "inner join with swapped condition",
			sql:  "SELECT * FROM users JOIN orders ON orders.user_id = users.id",
			want: `{"collection":"users","operation":"aggregate","filter":{},"pipeline":[{"$lookup":{"from":"orders","localField":"id","foreignField":"user_id","as":"orders"}},{"$unwind":{"path":"$orders","preserveNullAndEmptyArrays":false}}]}`,
		},
		{
			name: "insert",
			sql:  "INSERT INTO users (name, age) VALUES ('bob', 30)",
			want: `{"collection":"users","operation":"insertOne","document":{"name":"bob","age":30}}`,
		},
		{
			name: "update",
			sql:  "UPDATE users SET visits = visits + 1, status = 'x' WHERE id = 7",
			want: `{"collection":"users","operation":"updateMany","filter":{"id":{"$eq":7}},"update":{"$set":{"status":"x"},"$inc":{"visits":1}}}`,
		},
		{
			name: "delete",
			sql:  "DELETE FROM users WHERE age < 18",
			want: `{"collection":"users","operation":"deleteMany","filter":{"age":{"$lt":18}}}`,
		},
		{
			name: "create table",
			sql:  "CREATE TABLE users (id INT PRIMARY KEY, name TEXT)",
			want: `{"collection":"users","operation":"createCollection","columns":[{"name":"id","type":"INT","constraints":["PRIMARY KEY"]},{"name":"name","type":"TEXT","constraints":[]}]}`,
		},
		{
			name: "create index",
			sql:  "CREATE INDEX idx ON users (email DESC)",
			want: `{"collection":"users","operation":"createIndex","index":{"name":"idx","unique":false,"keys":{"email":-1}}}`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			q, err := convertSQL(t, c.sql, Options{})
			if err != nil {
				t.Fatalf("convert failed,err=%v", err)
			}
			if got := queryJSON(t, q); got != c.want {
				t.Errorf("got  %v\nwant %v", got, c.want)
			}
		})
	}
}

func TestConvertToMongoCollections(t *testing.T) {
	q, err := convertSQL(t, "SELECT * FROM users u JOIN orders o ON u.id = o.user_id", Options{Collections: Collections})
	if err != nil {
		t.Fatalf("convert failed,err=%v", err)
	}
	if q.Collection != "app_users" {
		t.Errorf("collection = %v", q.Collection)
	}
	if lookups := q.Lookups(); len(lookups) != 1 || lookups[0].From != "orders" {
		t.Errorf("lookups = %+v", lookups)
	}
}

func TestConvertToMongoErrors(t *testing.T) {
	deep := "SELECT * FROM users WHERE " + strings.Repeat("a = 1 OR b = 1 AND (", 40) + "c = 1" + strings.Repeat(")", 40)
	cases := []struct {
		name string
		sql  string
		want error
	}{
		{"unknown table", "SELECT x.name FROM users", validator.ErrInvalidField},
		{"unknown table in where", "SELECT * FROM users WHERE x.age > 1", validator.ErrInvalidField},
		{"unknown table in group", "SELECT COUNT(*) FROM users GROUP BY x.status", validator.ErrInvalidField},
		{"self join without alias", "SELECT * FROM users JOIN users ON users.id = users.parent_id", validator.ErrInvalidField},
		{"join condition off the joined table", "SELECT * FROM users u JOIN orders o ON u.id = x.user_id", validator.ErrInvalidField},
		{"filter too deep", deep, document.ErrUnsupportedShape},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			q, err := convertSQL(t, c.sql, Options{})
			if !errors.Is(err, c.want) {
				t.Fatalf("convert failed,err=%v, want %v", err, c.want)
			}
			if q != nil {
				t.Errorf("got a query alongside the error")
			}
		})
	}

	statements := []struct {
		name string
		stmt parser.Statement
		want error
	}{
		{"nil statement", nil, validator.ErrEmptyQuery},
		{"insert value count", &parser.InsertStatement{Table: parser.TableRef{Name: "users"}, Columns: []string{"name", "age"}, Values: []any{"bob"}}, parser.ErrValueCountMismatch},
	}
	for _, c := range statements {
		t.Run(c.name, func(t *testing.T) {
			if _, err := NewMongoQueryConverter(c.stmt, Options{}).Convert(); !errors.Is(err, c.want) {
				t.Errorf("convert failed,err=%v, want %v", err, c.want)
			}
		})
	}
}

func TestConvertToSQL(t *testing.T) {
	cases := []struct {
		name  string
		query *document.Query
		want  string
	}{
		{
			name:  "not equal",
			query: &document.Query{Collection: "users", Operation: document.Find, Filter: filterOf(fieldOf("status", "$ne", "deleted"))},
			want:  "SELECT * FROM users WHERE status <> 'deleted'",
		},
		{
			name: "projection sort limit skip",
			query: &document.Query{
				Collection: "users",
				Operation:  document.Find,
				Filter:     filterOf(fieldOf("age", "$gte", int64(18))),
				Projection: []string{"name", "email"},
				Sort:       []document.SortField{{Field: "age", Direction: -1}, {Field: "name", Direction: 1}},
				Limit:      int64p(10),
				Skip:       int64p(5),
			},
			want: "SELECT name, email FROM users WHERE age >= 18 ORDER BY age DESC, name ASC LIMIT 10 OFFSET 5",
		},
		{
			name: "disjunction with conjunctions",
			query: &document.Query{Collection: "t", Operation: document.Find, Filter: &document.Filter{Clauses: []document.Clause{{
				Operator: "$or",
				Filters: []*document.Filter{
					filterOf(fieldOf("a", "$eq", int64(1)), fieldOf("b", "$eq", int64(2))),
					filterOf(fieldOf("c", "$eq", int64(3))),
				},
			}}}},
			want: "SELECT * FROM t WHERE ((a = 1 AND b = 2) OR c = 3)",
		},
		{
			name: "explicit conjunction",
			query: &document.Query{Collection: "t", Operation: document.Find, Filter: &document.Filter{
				Fields:  []document.FieldFilter{fieldOf("age", "$ne", int64(1))},
				Clauses: []document.Clause{{Operator: "$and", Filters: []*document.Filter{filterOf(fieldOf("age", "$ne", int64(2)))}}},
			}},
			want: "SELECT * FROM t WHERE age <> 1 AND age <> 2",
		},
		{
			name: "null checks",
			query: &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(
				fieldOf("email", "$eq", nil),
				fieldOf("phone", "$ne", nil),
			)},
			want: "SELECT * FROM t WHERE email IS NULL AND phone IS NOT NULL",
		},
		{
			name: "membership",
			query: &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(
				fieldOf("status", "$in", []any{"a", "b"}),
				fieldOf("role", "$nin", bson.A{int64(1)}),
			)},
			want: "SELECT * FROM t WHERE status IN ('a', 'b') AND role NOT IN (1)",
		},
		{
			name: "patterns",
			query: &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(
				fieldOf("name", "$regex", "^jo.*$"),
				fieldOf("note", "$regex", "abc"),
			)},
			want: "SELECT * FROM t WHERE name LIKE 'jo%' AND note LIKE '%abc%'",
		},
		{
			name: "negation",
			query: &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(document.FieldFilter{
				Field: "age",
				Conditions: []document.Condition{{Operator: "$not", Not: []document.Condition{
					{Operator: "$gte", Value: int64(18)},
					{Operator: "$lte", Value: int64(30)},
				}}},
			})},
			want: "SELECT * FROM t WHERE age NOT BETWEEN 18 AND 30",
		},
		{
			name: "negated conjunction",
			query: &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(document.FieldFilter{
				Field: "age",
				Conditions: []document.Condition{{Operator: "$not", Not: []document.Condition{
					{Operator: "$gt", Value: int64(18)},
					{Operator: "$lt", Value: int64(30)},
				}}},
			})},
			want: "SELECT * FROM t WHERE NOT (age > 18 AND age < 30)",
		},
		{
			name: "negated pattern",
			query: &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(document.FieldFilter{
				Field:      "name",
				Conditions: []document.Condition{{Operator: "$not", Not: []document.Condition{{Operator: "$regex", Value: "^jo"}}}},
			})},
			want: "SELECT * FROM t WHERE NOT (name LIKE 'jo%')",
		},
		{
			name: "quoted identifiers and literals",
			query: &document.Query{Collection: "order", Operation: document.Find, Filter: filterOf(
				fieldOf("first name", "$eq", "O'Brien"),
				fieldOf("score", "$gt", 2.0),
			)},
			want: "SELECT * FROM `order` WHERE `first name` = 'O''Brien' AND score > 2.0",
		},
		{
			name: "group",
			query: &document.Query{Collection: "users", Operation: document.Aggregate, Pipeline: []document.Stage{
				&document.GroupStage{Keys: []string{"status"}, Accumulators: []document.Accumulator{{Name: "count", Func: "COUNT"}}},
			}},
			want: "SELECT status, COUNT(*) FROM users GROUP BY status",
		},
		{
			name: "aggregate over the collection",
			query: &document.Query{Collection: "orders", Operation: document.Aggregate, Pipeline: []document.Stage{
				&document.GroupStage{Accumulators: []document.Accumulator{
					{Name: "total", Func: "SUM", Field: "amount"},
					{Name: "max_amount", Func: "MAX", Field: "amount"},
				}},
			}},
			want: "SELECT SUM(amount) AS total, MAX(amount) FROM orders",
		},
		{
			name: "projected group",
			query: &document.Query{
				Collection: "users",
				Operation:  document.Aggregate,
				Projection: []string{"total", "status"},
				Pipeline: []document.Stage{
					&document.GroupStage{Keys: []string{"status"}, Accumulators: []document.Accumulator{{Name: "total", Func: "COUNT", Field: "email"}}},
				},
			},
			want: "SELECT COUNT(email) AS total, status FROM users GROUP BY status",
		},
		{
			name: "ungrouped projection",
			query: &document.Query{
				Collection: "employees",
				Operation:  document.Aggregate,
				Projection: []string{"name", "age"},
				Pipeline: []document.Stage{
					&document.GroupStage{Keys: []string{"department"}, Accumulators: []document.Accumulator{{Name: "count", Func: "COUNT"}}},
				},
			},
			want: "SELECT name, age FROM employees GROUP BY department",
		},
		{
			name:  "literal wildcard in pattern",
			query: &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(fieldOf("code", "$regex", "^a_b.*$"))},
			want:  `SELECT * FROM t WHERE code LIKE 'a\_b%'`,
		},
		{
			name: "inner join",
			query: &document.Query{
				Collection: "users",
				Operation:  document.Aggregate,
				Filter:     filterOf(fieldOf("o.total", "$gt", int64(100))),
				Projection: []string{"name", "o.total"},
				Pipeline: []document.Stage{
					&document.LookupStage{From: "orders", LocalField: "id", ForeignField: "user_id", As: "o"},
				},
			},
			want: "SELECT name, o.total FROM users INNER JOIN orders AS o ON users.id = o.user_id WHERE o.total > 100",
		},
		{
			name: "left join keeps the collection name",
			query: &document.Query{Collection: "users", Operation: document.Aggregate, Pipeline: []document.Stage{
				&document.LookupStage{From: "orders", LocalField: "id", ForeignField: "user_id", As: "orders", Preserve: true},
			}},
			want: "SELECT * FROM users LEFT JOIN orders ON users.id = orders.user_id",
		},
		{
			name: "insert",
			query: &document.Query{Collection: "users", Operation: document.InsertOne, Document: bson.D{
				{Key: "name", Value: "bob"}, {Key: "age", Value: int64(30)}, {Key: "score", Value: 1.5}, {Key: "note", Value: nil},
			}},
			want: "INSERT INTO users (name, age, score, note) VALUES ('bob', 30, 1.5, NULL)",
		},
		{
			name: "update",
			query: &document.Query{
				Collection: "users",
				Operation:  document.UpdateMany,
				Filter:     filterOf(fieldOf("id", "$eq", int64(7))),
				Update: bson.D{
					{Key: operator.Mongo_Operator_Set, Value: bson.D{{Key: "status", Value: "x"}}},
					{Key: operator.Mongo_Operator_Inc, Value: bson.D{{Key: "visits", Value: int64(-2)}, {Key: "credit", Value: 0.5}}},
				},
			},
			want: "UPDATE users SET status = 'x', visits = visits - 2, credit = credit + 0.5 WHERE id = 7",
		},
		{
			name:  "delete everything",
			query: &document.Query{Collection: "users", Operation: document.DeleteMany},
			want:  "DELETE FROM users",
		},
		{
			name: "create table",
			query: &document.Query{Collection: "users", Operation: document.CreateCollection, Columns: []document.Column{
				{Name: "id", Type: "INT", Constraints: []string{"PRIMARY KEY"}},
				{Name: "name", Type: "VARCHAR(100)", Constraints: []string{"NOT NULL", "DEFAULT 'x'"}},
			}},
			want: "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(100) NOT NULL DEFAULT 'x')",
		},
		{
			name: "create index",
			query: &document.Query{Collection: "users", Operation: document.CreateIndex, Index: &document.Index{
				Name: "idx", Unique: true, Keys: []document.SortField{{Field: "email", Direction: 1}, {Field: "age", Direction: -1}},
			}},
			want: "CREATE UNIQUE INDEX idx ON users (email, age DESC)",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sql, err := NewSQLQueryConverter(c.query, Options{}).Convert()
			if err != nil {
				t.Fatalf("convert failed,err=%v", err)
			}
			if sql != c.want {
				t.Errorf("got  %v\nwant %v", sql, c.want)
			}
		})
	}
}

func TestConvertToSQLCollections(t *testing.T) {
	q := &document.Query{Collection: "app_users", Operation: document.Find}
	sql, err := NewSQLQueryConverter(q, Options{Collections: Collections}).Convert()
	if err != nil {
		t.Fatalf("convert failed,err=%v", err)
	}
	if sql != "SELECT * FROM users" {
		t.Errorf("sql = %v", sql)
	}
}

func TestConvertToSQLErrors(t *testing.T) {
	cases := []struct {
		name  string
		query *document.Query
	}{
		{"empty collection", &document.Query{Operation: document.Find}},
		{"unknown operation", &document.Query{Collection: "t", Operation: "mapReduce"}},
		{"nested field", &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(fieldOf("address.city", "$eq", "x"))}},
		{"regex without LIKE form", &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(fieldOf("name", "$regex", "^a+$"))}},
		{"ordering against null", &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(fieldOf("a", "$gt", nil))}},
		{"non finite number", &document.Query{Collection: "t", Operation: document.Find, Filter: filterOf(fieldOf("a", "$eq", math.NaN()))}},
		{"unknown clause", &document.Query{Collection: "t", Operation: document.Find, Filter: &document.Filter{Clauses: []document.Clause{{Operator: "$nor", Filters: []*document.Filter{filterOf(fieldOf("a", "$eq", int64(1)))}}}}}},
		{"backquote in name", &document.Query{Collection: "a`b", Operation: document.Find}},
		{"sum without field", &document.Query{Collection: "t", Operation: document.Aggregate, Pipeline: []document.Stage{
			&document.GroupStage{Accumulators: []document.Accumulator{{Name: "s", Func: "SUM"}}},
		}}},
		{"empty insert", &document.Query{Collection: "t", Operation: document.InsertOne}},
		{"nil query", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sql, err := NewSQLQueryConverter(c.query, Options{}).Convert()
			if !errors.Is(err, document.ErrUnsupportedShape) {
				t.Fatalf("got sql=%q err=%v, want an unsupported shape error", sql, err)
			}
		})
	}
}

// BETWEEN becomes a pair of range operators and comes back as two
// comparisons; both forms build the same document query.
func TestBetweenRoundTrip(t *testing.T) {
	q, err := convertSQL(t, "SELECT * FROM users WHERE age BETWEEN 18 AND 30", Options{})
	if err != nil {
		t.Fatalf("convert failed,err=%v", err)
	}
	sql, err := NewSQLQueryConverter(q, Options{}).Convert()
	if err != nil {
		t.Fatalf("convert back failed,err=%v", err)
	}
	if sql != "SELECT * FROM users WHERE age >= 18 AND age <= 30" {
		t.Errorf("sql = %v", sql)
	}
	again, err := convertSQL(t, sql, Options{})
	if err != nil {
		t.Fatalf("convert again failed,err=%v", err)
	}
	if queryJSON(t, again) != queryJSON(t, q) {
		t.Errorf("%v != %v", queryJSON(t, again), queryJSON(t, q))
	}
}

func TestRoundTrip(t *testing.T) {
	statements := []string{
		"SELECT name, email FROM users WHERE age >= 18 AND status = 'active' ORDER BY name DESC LIMIT 10",
		"SELECT * FROM users WHERE (age < 18 OR age > 65) AND name LIKE 'a%' OFFSET 5",
		"SELECT * FROM users WHERE NOT (status IN ('a', 'b') OR email IS NULL)",
		"SELECT * FROM users WHERE age <> 1 AND age <> 2 AND score > 1.5",
		"SELECT * FROM users WHERE age NOT BETWEEN 1 AND 9 AND name NOT LIKE '%x_'",
		"SELECT status, COUNT(*) AS total, SUM(amount) FROM orders WHERE amount > 0 GROUP BY status ORDER BY total DESC",
		"SELECT u.name, o.total FROM users u LEFT JOIN orders o ON u.id = o.user_id WHERE o.total > 100",
		"SELECT `order`, `select` FROM `group` WHERE `from` = 'it''s'",
		"INSERT INTO users (name, age, score, active, note) VALUES ('bob', -3, 2.0, TRUE, NULL)",
		"UPDATE users SET status = 'x', visits = visits + 1 WHERE id = 7",
		"DELETE FROM users WHERE age < 18",
		"CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(100) NOT NULL DEFAULT 'x')",
		"CREATE UNIQUE INDEX idx ON users (email, age DESC)",
		"SELECT name, age FROM employees WHERE age >= 25 AND department = 'Sales' GROUP BY department ORDER BY age DESC, name ASC LIMIT 100",
		`SELECT * FROM users WHERE code LIKE 'a\_b%' AND note NOT LIKE '50\%%'`,
	}
	for _, sql := range statements {
		t.Run(sql, func(t *testing.T) {
			q, err := convertSQL(t, sql, Options{})
			if err != nil {
				t.Fatalf("convert failed,err=%v", err)
			}
			back, err := NewSQLQueryConverter(q, Options{}).Convert()
			if err != nil {
				t.Fatalf("convert back failed,err=%v", err)
			}
			again, err := convertSQL(t, back, Options{})
			if err != nil {
				t.Fatalf("convert [%v] failed,err=%v", back, err)
			}
			if queryJSON(t, again) != queryJSON(t, q) {
				t.Errorf("round trip through [%v] changed the query\n got %v\nwant %v", back, queryJSON(t, again), queryJSON(t, q))
			}
		})
	}
}
