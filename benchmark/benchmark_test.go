package benchmark

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tsfans/sqlmongo"
	"github.com/tsfans/sqlmongo/validator"
)

func TestSummarize(t *testing.T) {
	var samples []time.Duration
	for i := 20; i >= 1; i-- {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}
	res := summarize("x", samples)

	if res.Iterations != 20 || res.Min != time.Millisecond || res.Max != 20*time.Millisecond {
		t.Errorf("got %+v", res)
	}
	if res.Total != 210*time.Millisecond || res.Mean != 10500*time.Microsecond {
		t.Errorf("total=%v mean=%v", res.Total, res.Mean)
	}
	if res.Median != 11*time.Millisecond {
		t.Errorf("median = %v", res.Median)
	}
	if res.P95 != 19*time.Millisecond {
		t.Errorf("p95 = %v", res.P95)
	}
	if samples[0] != 20*time.Millisecond {
		t.Errorf("samples were reordered")
	}

	one := summarize("y", []time.Duration{time.Second})
	if one.P95 != time.Second || one.Median != time.Second {
		t.Errorf("got %+v", one)
	}
}

func TestRun(t *testing.T) {
	r := New(3)
	if _, err := uuid.Parse(r.ID()); err != nil {
		t.Fatalf("run id %v is not a uuid,err=%v", r.ID(), err)
	}

	calls := 0
	res, err := r.Run("count", 5, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("run failed,err=%v", err)
	}
	if calls != 8 || res.Iterations != 5 {
		t.Errorf("calls=%d iterations=%d", calls, res.Iterations)
	}

	boom := errors.New("boom")
	if _, err = r.Run("fail", 5, func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("got err=%v", err)
	}
	if _, err = r.Run("none", 0, func() error { return nil }); err == nil {
		t.Errorf("expected an error for zero iterations")
	}
	if len(r.Results()) != 1 {
		t.Errorf("failed runs should not be recorded, got %d results", len(r.Results()))
	}
}

func TestConverterBenchmarks(t *testing.T) {
	r := New(1)
	c := sqlmongo.New()

	if _, err := r.BenchmarkSQLToMongo(c, "SELECT * FROM users WHERE age > 1", 10); err != nil {
		t.Fatalf("benchmark failed,err=%v", err)
	}
	if _, err := r.BenchmarkMongoToSQL(c, `{"collection": "users", "filter": {"age": {"$gt": 1}}}`, 10); err != nil {
		t.Fatalf("benchmark failed,err=%v", err)
	}
	if _, err := r.BenchmarkSQLToMongo(c, "DROP TABLE users", 10); !errors.Is(err, validator.ErrDestructiveStatement) {
		t.Errorf("got err=%v", err)
	}

	var buf bytes.Buffer
	r.Summary(&buf)
	out := buf.String()
	for _, want := range []string{r.ID(), "MEDIAN", "sql->mongo SELECT * FROM users WHERE age > 1", "mongo->sql "} {
		if !strings.Contains(out, want) {
			t.Errorf("summary is missing %q:\n%v", want, out)
		}
	}
}
