// Package benchmark times repeated translations. Each measurement runs a
// warmup phase first, then records every call and reports per-call
// statistics.
package benchmark

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sqlmongo"
)

type Result struct {
	Name       string
	Iterations int
	Total      time.Duration
	Min        time.Duration
	Max        time.Duration
	Mean       time.Duration
	Median     time.Duration
	P95        time.Duration
}

// Runner collects results under one run id. It is not safe for concurrent
// use.
type Runner struct {
	id      string
	warmup  int
	results []Result
}

func New(warmup int) *Runner {
	if warmup < 0 {
		warmup = 0
	}
	return &Runner{id: uuid.New().String(), warmup: warmup}
}

func (r *Runner) ID() string {
	return r.id
}

func (r *Runner) Results() []Result {
	return slices.Clone(r.results)
}

// BenchmarkSQLToMongo times c.SQLToMongo(sql).
func (r *Runner) BenchmarkSQLToMongo(c *sqlmongo.Converter, sql string, iterations int) (Result, error) {
	return r.Run("sql->mongo "+sql, iterations, func() error {
		_, err := c.SQLToMongo(sql)
		return err
	})
}

// BenchmarkMongoToSQL times c.MongoToSQL(raw).
func (r *Runner) BenchmarkMongoToSQL(c *sqlmongo.Converter, raw any, iterations int) (Result, error) {
	name := fmt.Sprint(raw)
	if s, ok := raw.(string); ok {
		name = s
	}
	return r.Run("mongo->sql "+name, iterations, func() error {
		_, err := c.MongoToSQL(raw)
		return err
	})
}

// Run calls fn warmup times untimed, then iterations times timed. The first
// error aborts the measurement.
func (r *Runner) Run(name string, iterations int, fn func() error) (result Result, err error) {
	if iterations <= 0 {
		err = fmt.Errorf("iterations must be positive, got %d", iterations)
		return
	}
	for i := 0; i < r.warmup; i++ {
		if err = fn(); err != nil {
			err = fmt.Errorf("warmup of [%v] failed: %w", name, err)
			return
		}
	}

	samples := make([]time.Duration, iterations)
	for i := range samples {
		start := time.Now()
		err = fn()
		samples[i] = time.Since(start)
		if err != nil {
			err = fmt.Errorf("iteration %d of [%v] failed: %w", i, name, err)
			return
		}
	}

	result = summarize(name, samples)
	r.results = append(r.results, result)
	log.WithField("run", r.id).Debugf("benchmark [%v] mean=%v p95=%v", name, result.Mean, result.P95)
	return
}

func summarize(name string, samples []time.Duration) Result {
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	n := len(sorted)
	p95 := (n*95 + 99) / 100
	return Result{
		Name:       name,
		Iterations: n,
		Total:      total,
		Min:        sorted[0],
		Max:        sorted[n-1],
		Mean:       total / time.Duration(n),
		Median:     sorted[n/2],
		P95:        sorted[p95-1],
	}
}

// Summary writes every result as a table.
func (r *Runner) Summary(w io.Writer) {
	fmt.Fprintf(w, "benchmark run %v (warmup %d)\n", r.id, r.warmup)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Iterations", "Mean", "Median", "P95", "Min", "Max"})
	table.SetAutoWrapText(false)
	for _, res := range r.results {
		table.Append([]string{
			res.Name,
			fmt.Sprint(res.Iterations),
			res.Mean.String(),
			res.Median.String(),
			res.P95.String(),
			res.Min.String(),
			res.Max.String(),
		})
	}
	table.Render()
}
