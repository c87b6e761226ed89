package operator

import (
	"errors"
	"testing"

	"github.com/pingcap/tidb/parser/opcode"
)

func TestMappingBijection(t *testing.T) {
	for _, m := range All() {
		bySymbol, err := FromSQL(m.SQL)
		if err != nil {
			t.Fatalf("FromSQL(%v) failed,err=%v", m.SQL, err)
		}
		back, err := FromMongo(bySymbol.Mongo)
		if err != nil {
			t.Fatalf("FromMongo(%v) failed,err=%v", bySymbol.Mongo, err)
		}
		if back != m {
			t.Errorf("%v -> %v -> %v, want the original mapping", m.SQL, bySymbol.Mongo, back.SQL)
		}
		byOp, err := FromOpcode(m.Op, m.Negated)
		if err != nil || byOp != m {
			t.Errorf("FromOpcode(%v, %v) = %v, %v", m.Op, m.Negated, byOp.SQL, err)
		}
	}
}

func TestMappingTotality(t *testing.T) {
	sql := []string{"=", "<>", "!=", ">", ">=", "<", "<=", "in", "NOT IN", "not   in", "like", "and", "or", "not"}
	for _, symbol := range sql {
		if _, err := FromSQL(symbol); err != nil {
			t.Errorf("FromSQL(%q) failed,err=%v", symbol, err)
		}
	}
	mongo := []string{"$eq", "$ne", "$gt", "$gte", "$lt", "$lte", "$in", "$nin", "$regex", "$and", "$or", "$not"}
	for _, symbol := range mongo {
		if _, err := FromMongo(symbol); err != nil {
			t.Errorf("FromMongo(%q) failed,err=%v", symbol, err)
		}
	}
}

func TestMappingShapes(t *testing.T) {
	cases := []struct {
		symbol string
		shape  Shape
		arity  Arity
	}{
		{"$eq", Scalar, Binary},
		{"$in", List, Binary},
		{"$nin", List, Binary},
		{"$regex", Pattern, Binary},
		{"$and", Clauses, Variadic},
		{"$or", Clauses, Variadic},
		{"$not", Clauses, Unary},
	}
	for _, c := range cases {
		m, err := FromMongo(c.symbol)
		if err != nil {
			t.Fatalf("FromMongo(%v) failed,err=%v", c.symbol, err)
		}
		if m.Shape != c.shape || m.Arity != c.arity {
			t.Errorf("%v has shape %v arity %v, want %v %v", c.symbol, m.Shape, m.Arity, c.shape, c.arity)
		}
		if m.Logical() != (c.shape == Clauses) {
			t.Errorf("%v Logical() = %v", c.symbol, m.Logical())
		}
	}
}

func TestUnsupportedOperator(t *testing.T) {
	cases := []struct {
		name string
		call func() error
		side Side
	}{
		{"sql", func() error { _, err := FromSQL("<=>"); return err }, SideSQL},
		{"mongo", func() error { _, err := FromMongo("$where"); return err }, SideMongo},
		{"mongo is case sensitive", func() error { _, err := FromMongo("$EQ"); return err }, SideMongo},
		{"opcode", func() error { _, err := FromOpcode(opcode.Plus, false); return err }, SideSQL},
		{"negated opcode", func() error { _, err := FromOpcode(opcode.EQ, true); return err }, SideSQL},
		{"mutation", func() error { _, err := MutationFromMongo("$unset"); return err }, SideMongo},
		{"accumulator", func() error { _, err := AccumulatorFromSQL("median"); return err }, SideSQL},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.call()
			if !errors.Is(err, ErrUnsupportedOperator) {
				t.Fatalf("got err=%v, want an unsupported operator error", err)
			}
			var opErr *UnsupportedOperatorError
			if !errors.As(err, &opErr) || opErr.Side != c.side {
				t.Errorf("got %#v, want side %v", err, c.side)
			}
		})
	}
}

func TestMutations(t *testing.T) {
	for _, m := range Mutations() {
		byKind, err := MutationFromKind(m.Kind)
		if err != nil || byKind != m {
			t.Errorf("MutationFromKind(%v) = %v, %v", m.Kind, byKind, err)
		}
		byMongo, err := MutationFromMongo(m.Mongo)
		if err != nil || byMongo != m {
			t.Errorf("MutationFromMongo(%v) = %v, %v", m.Mongo, byMongo, err)
		}
	}
	if _, err := MutationFromKind(MutationKind(99)); err == nil {
		t.Errorf("expected an error for an unknown mutation kind")
	}
}

func TestAccumulators(t *testing.T) {
	for _, fn := range []string{"count", "SUM", "Avg", "min", "MAX"} {
		if !IsAggregate(fn) {
			t.Errorf("IsAggregate(%q) = false", fn)
		}
	}
	m, err := AccumulatorFromMongo(Mongo_Operator_Sum)
	if err != nil || m.SQL != "SUM" {
		t.Errorf("$sum resolved to %v, %v; want SUM", m.SQL, err)
	}
	count, _ := AccumulatorFromSQL("count")
	if count.Mongo != Mongo_Operator_Sum {
		t.Errorf("COUNT maps to %v", count.Mongo)
	}
}

func TestLikeToRegex(t *testing.T) {
	cases := []struct {
		like  string
		regex string
	}{
		{"abc", "^abc$"},
		{"a%", "^a.*$"},
		{"%a%", "^.*a.*$"},
		{"a_c", "^a.c$"},
		{"a.b", `^a\.b$`},
		{"1+1=2?", `^1\+1=2\?$`},
		{`a\_b%`, "^a_b.*$"},
		{`50\%`, "^50%$"},
		{`c:\\dir`, `^c:\\dir$`},
	}
	for _, c := range cases {
		if got := LikeToRegex(c.like); got != c.regex {
			t.Errorf("LikeToRegex(%q) = %q, want %q", c.like, got, c.regex)
		}
		back, ok := RegexToLike(c.regex)
		if !ok || back != c.like {
			t.Errorf("RegexToLike(%q) = %q, %v; want %q", c.regex, back, ok, c.like)
		}
	}
}

func TestRegexToLike(t *testing.T) {
	cases := []struct {
		regex string
		like  string
		ok    bool
	}{
		{"abc", "%abc%", true},
		{"^abc", "abc%", true},
		{"abc$", "%abc", true},
		{`^a\$$`, "a$", true},
		{"^.*.*$", "%", true},
		{"^a+$", "", false},
		{"^[ab]$", "", false},
		{"^a|b$", "", false},
		{"^50%$", `50\%`, true},
		{"^a_b.*$", `a\_b%`, true},
		{`^50\%.*$`, "", false},
		{".*%.*", `%\%%`, true},
		{`^\d$`, "", false},
	}
	for _, c := range cases {
		like, ok := RegexToLike(c.regex)
		if ok != c.ok || (ok && like != c.like) {
			t.Errorf("RegexToLike(%q) = %q, %v; want %q, %v", c.regex, like, ok, c.like, c.ok)
		}
	}
}
