// Package sqlmongo translates statements between a SQL subset and MongoDB
// document queries, in both directions. It never executes anything.
//
//	q, err := sqlmongo.SQLToMongo("SELECT name FROM users WHERE age >= 18")
//	sql, err := sqlmongo.MongoToSQL(`{"collection": "users", "find": {"status": {"$ne": "deleted"}}}`)
package sqlmongo

import (

	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sqlmongo/converter"
	"github.com/tsfans/sqlmongo/document"
	"github.com/tsfans/sqlmongo/parser"
	"github.com/tsfans/sqlmongo/validator"
	"golang.org/x/exp/maps"
)

type Option func(*Converter)

// WithAllowMutations permits INSERT, UPDATE and DELETE.
func WithAllowMutations(allow bool) Option {
	return func(c *Converter) {
		c.config.AllowMutations = allow
	}
}

// WithStrictDialect additionally requires SQL text to be accepted by the
// MySQL grammar.
func WithStrictDialect(strict bool) Option {
	return func(c *Converter) {
		c.config.StrictDialect = strict
	}
}

// WithDestructiveKeywords replaces the keywords that are always rejected.
func WithDestructiveKeywords(keywords ...string) Option {
	return func(c *Converter) {
		c.config.DestructiveKeywords = append([]string{}, keywords...)
	}
}

// WithCollections maps table names to collection names.
func WithCollections(collections map[string]string) Option {
	return func(c *Converter) {
		c.collections = maps.Clone(collections)
	}
}

func WithLogger(logger log.FieldLogger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// Converter holds a validated configuration. It is immutable after New and
// safe for concurrent use.
type Converter struct {
	config      validator.Config
	collections map[string]string
	logger      log.FieldLogger
	validator   *validator.QueryValidator
}

func New(opts ...Option) *Converter {
	c := &Converter{logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	c.validator = validator.New(c.config)
	return c
}

var defaultConverter = New()

func converterFor(opts []Option) *Converter {
	if len(opts) == 0 {
		return defaultConverter
	}
	return New(opts...)
}

// SQLToMongo translates one SQL statement into a document query.
func SQLToMongo(sql string, opts ...Option) (*document.Query, error) {
	return converterFor(opts).SQLToMongo(sql)
}

// MongoToSQL translates a document query into SQL text. raw may be a
// *document.Query, a bson.D, bson.M, map[string]any or Extended JSON text.
func MongoToSQL(raw any, opts ...Option) (string, error) {
	return converterFor(opts).MongoToSQL(raw)
}

// ValidateSQLQuery screens SQL text without translating it. Mutations are
// rejected.
func ValidateSQLQuery(sql string) error {
	return validator.ValidateSQLQuery(sql)
}

func (c *Converter) options() converter.Options {
	return converter.Options{Collections: c.collections, Logger: c.logger}
}

func (c *Converter) SQLToMongo(sql string) (query *document.Query, err error) {
	if err = c.validator.ValidateSQL(sql); err != nil {
		return
	}
	var stmt parser.Statement
	stmt, err = parser.ParseSQL(sql)
	if err != nil {
		return
	}
	if err = c.validator.ValidateStatement(stmt); err != nil {
		return
	}
	c.logger.Debugf("parsed %v statement", stmt.Kind())
	return converter.NewMongoQueryConverter(stmt, c.options()).Convert()
}

func (c *Converter) MongoToSQL(raw any) (sql string, err error) {
	var query *document.Query
	switch q := raw.(type) {
	case *document.Query:
		if q == nil {
			return "", &validator.ValidationError{Kind: validator.MissingField, Offset: -1, Msg: "no document query to convert"}
		}
		query = q
	case document.Query:
		query = &q
	default:
		query, err = c.validator.ValidateDocument(raw)
		if err != nil {
			return
		}
	}
	return converter.NewSQLQueryConverter(query, c.options()).Convert()
}

// ValidateSQL screens SQL text with this converter's configuration.
func (c *Converter) ValidateSQL(sql string) error {
	return c.validator.ValidateSQL(sql)
}
