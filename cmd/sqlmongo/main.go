package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sqlmongo"
	"github.com/tsfans/sqlmongo/benchmark"
	"github.com/tsfans/sqlmongo/document"
	"github.com/urfave/cli/v3"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/natefinch/lumberjack.v2"
)

var sampleSQL = []string{
	"SELECT name, email FROM users WHERE age >= 18 AND status = 'active' ORDER BY name DESC LIMIT 100",
	"SELECT * FROM users WHERE age BETWEEN 18 AND 30 OR status IN ('new', 'trial')",
	"SELECT u.name, COUNT(*) AS orders FROM users u LEFT JOIN orders o ON u.id = o.user_id GROUP BY u.name",
}

var sampleMongo = []string{
	`{"collection": "users", "find": {"status": {"$ne": "deleted"}}}`,
	`{"collection": "users", "filter": {"$or": [{"age": {"$lt": 18}}, {"status": {"$in": ["new", "trial"]}}]}, "sort": [["age", -1]], "limit": 10}`,
}

func main() {
	cmd := &cli.Command{
		Name:  "sqlmongo",
		Usage: "translate between SQL statements and MongoDB queries",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "allow-mutations", Usage: "permit INSERT, UPDATE and DELETE"},
			&cli.BoolFlag{Name: "strict", Usage: "require SQL accepted by the MySQL grammar"},
			&cli.StringSliceFlag{Name: "collection", Usage: "map a table to a collection, as table=collection"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "panic, fatal, error, warn, info, debug or trace"},
			&cli.StringFlag{Name: "log-file", Usage: "write logs to a rotated file instead of stderr"},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			{
				Name:      "to-mongo",
				Usage:     "translate SQL to a document query",
				ArgsUsage: "[sql]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "pipeline", Usage: "print the executable aggregation pipeline"},
				},
				Action: toMongo,
			},
			{
				Name:      "to-sql",
				Usage:     "translate a document query (Extended JSON) to SQL",
				ArgsUsage: "[json]",
				Action:    toSQL,
			},
			{
				Name:      "validate",
				Usage:     "check SQL without translating it",
				ArgsUsage: "[sql]",
				Action:    validate,
			},
			{
				Name:  "bench",
				Usage: "time repeated translations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "iterations", Value: 1000},
					&cli.IntFlag{Name: "warmup", Value: 100},
					&cli.StringSliceFlag{Name: "sql", Usage: "SQL statement to time, repeatable"},
					&cli.StringSliceFlag{Name: "mongo", Usage: "document query to time, repeatable"},
				},
				Action: bench,
			},
			{
				Name:   "repl",
				Usage:  "translate interactively; lines starting with '{' are document queries",
				Action: repl,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level, err := log.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return ctx, err
	}
	log.SetLevel(level)
	if file := cmd.String("log-file"); file != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
		log.SetFormatter(&log.JSONFormatter{})
	}
	return ctx, nil
}

func newConverter(cmd *cli.Command) (*sqlmongo.Converter, error) {
	collections := map[string]string{}
	for _, pair := range cmd.StringSlice("collection") {
		table, collection, ok := strings.Cut(pair, "=")
		if !ok || table == "" || collection == "" {
			return nil, fmt.Errorf("invalid collection mapping [%v], expected table=collection", pair)
		}
		collections[table] = collection
	}
	return sqlmongo.New(
		sqlmongo.WithAllowMutations(cmd.Bool("allow-mutations")),
		sqlmongo.WithStrictDialect(cmd.Bool("strict")),
		sqlmongo.WithCollections(collections),
	), nil
}

// input joins the arguments, or reads stdin when there are none.
func input(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() > 0 {
		return strings.Join(cmd.Args().Slice(), " "), nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func printQuery(w io.Writer, q *document.Query, pipeline bool) error {
	doc := q.ToBSON()
	if pipeline {
		doc = bson.D{
			{Key: document.Key_Collection, Value: q.Collection},
			{Key: document.Key_Pipeline, Value: q.AggregatePipeline()},
		}
	}
	b, err := bson.MarshalExtJSONIndent(doc, false, false, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func toMongo(ctx context.Context, cmd *cli.Command) error {
	conv, err := newConverter(cmd)
	if err != nil {
		return err
	}
	sql, err := input(cmd)
	if err != nil {
		return err
	}
	q, err := conv.SQLToMongo(sql)
	if err != nil {
		return err
	}
	return printQuery(os.Stdout, q, cmd.Bool("pipeline"))
}

func toSQL(ctx context.Context, cmd *cli.Command) error {
	conv, err := newConverter(cmd)
	if err != nil {
		return err
	}
	raw, err := input(cmd)
	if err != nil {
		return err
	}
	sql, err := conv.MongoToSQL(raw)
	if err != nil {
		return err
	}
	fmt.Println(sql)
	return nil
}

func validate(ctx context.Context, cmd *cli.Command) error {
	conv, err := newConverter(cmd)
	if err != nil {
		return err
	}
	sql, err := input(cmd)
	if err != nil {
		return err
	}
	if err = conv.ValidateSQL(sql); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func bench(ctx context.Context, cmd *cli.Command) error {
	conv, err := newConverter(cmd)
	if err != nil {
		return err
	}
	statements, documents := cmd.StringSlice("sql"), cmd.StringSlice("mongo")
	if len(statements) == 0 && len(documents) == 0 {
		statements, documents = sampleSQL, sampleMongo
	}

	iterations := int(cmd.Int("iterations"))
	runner := benchmark.New(int(cmd.Int("warmup")))
	for _, sql := range statements {
		if _, err = runner.BenchmarkSQLToMongo(conv, sql, iterations); err != nil {
			return err
		}
	}
	for _, doc := range documents {
		if _, err = runner.BenchmarkMongoToSQL(conv, doc, iterations); err != nil {
			return err
		}
	}
	runner.Summary(os.Stdout)
	return nil
}

func repl(ctx context.Context, cmd *cli.Command) error {
	conv, err := newConverter(cmd)
	if err != nil {
		return err
	}
	rl, err := readline.New("sqlmongo> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), `Welcome to sqlmongo. Enter SQL or a JSON document query, \q to quit.`)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == `\q`:
			return nil
		case strings.HasPrefix(line, "{"):
			sql, err := conv.MongoToSQL(line)
			if err != nil {
				fmt.Fprintln(rl.Stderr(), err)
				continue
			}
			fmt.Fprintln(rl.Stdout(), sql)
		default:
			q, err := conv.SQLToMongo(line)
			if err != nil {
				fmt.Fprintln(rl.Stderr(), err)
				continue
			}
			if err = printQuery(rl.Stdout(), q, false); err != nil {
				return err
			}
		}
	}
}
