// Package validator gates translation in both directions: it screens SQL
// text and statements for well-formedness and safety, and promotes untyped
// document queries into document.Query values.
package validator

import (
	"strings"

	"github.com/pingcap/tidb/parser/opcode"
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sqlmongo/operator"
	"github.com/tsfans/sqlmongo/parser"
)

// DefaultDestructiveKeywords are rejected regardless of AllowMutations.
var DefaultDestructiveKeywords = []string{"DROP", "TRUNCATE", "ALTER", "GRANT", "REVOKE", "RENAME"}

type Config struct {
	// AllowMutations permits INSERT, UPDATE and DELETE.
	AllowMutations bool
	// DestructiveKeywords replaces DefaultDestructiveKeywords when non-nil.
	DestructiveKeywords []string
	// StrictDialect additionally requires the text to be accepted by the
	// MySQL grammar.
	StrictDialect bool
}

// QueryValidator is immutable after New and safe for concurrent use.
type QueryValidator struct {
	allowMutations bool
	strictDialect  bool
	destructive    map[string]bool
}

func New(config Config) *QueryValidator {
	keywords := config.DestructiveKeywords
	if keywords == nil {
		keywords = DefaultDestructiveKeywords
	}
	destructive := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		destructive[strings.ToUpper(strings.TrimSpace(kw))] = true
	}
	return &QueryValidator{
		allowMutations: config.AllowMutations,
		strictDialect:  config.StrictDialect,
		destructive:    destructive,
	}
}

var defaultValidator = New(Config{})

// ValidateSQLQuery screens sql with the default configuration: mutations
// are rejected along with the default destructive keywords.
func ValidateSQLQuery(sql string) error {
	return defaultValidator.ValidateSQL(sql)
}

// ValidateSQL runs the structural checks, then the safety checks. It never
// parses the full statement.
func (v *QueryValidator) ValidateSQL(sql string) (err error) {
	if strings.TrimSpace(sql) == "" {
		return newSQLError(EmptyQuery, 0, "no statement given")
	}
	if err = checkBalance(sql); err != nil {
		return
	}

	var tokens []parser.Token
	tokens, err = parser.Tokenize(sql)
	if err != nil {
		return
	}
	if len(tokens) == 0 {
		return newSQLError(EmptyQuery, 0, "no statement given")
	}

	for i, tok := range tokens {
		if tok.Kind != parser.Keyword && !(i == 0 && tok.Kind == parser.Identifier) {
			continue
		}
		if word := strings.ToUpper(tok.Text); v.destructive[word] {
			log.Debugf("blocked destructive keyword [%v] at %v", word, tok.Pos)
			return newSQLError(DestructiveStatement, tok.Pos.Offset, "%v is not allowed", word)
		}
	}

	if first := tokens[0]; first.Kind == parser.Keyword && !v.allowMutations {
		switch first.Text {
		case "INSERT", "UPDATE", "DELETE":
			return newSQLError(MutationNotAllowed, first.Pos.Offset, "%v requires mutations to be allowed", first.Text)
		}
	}

	if v.strictDialect {
		err = checkDialect(sql, v.destructive)
	}
	return
}

// ValidateStatement applies the safety checks to a parsed statement and
// checks that every operator in its WHERE clause is in the mapping table.
func (v *QueryValidator) ValidateStatement(stmt parser.Statement) error {
	if stmt == nil {
		return &ValidationError{Kind: EmptyQuery, Offset: -1, Msg: "no statement given"}
	}
	if stmt.Kind().IsMutation() && !v.allowMutations {
		return &ValidationError{Kind: MutationNotAllowed, Offset: -1, Msg: stmt.Kind().String() + " requires mutations to be allowed"}
	}

	var where parser.Expression
	switch s := stmt.(type) {
	case *parser.SelectStatement:
		where = s.Where
	case *parser.UpdateStatement:
		where = s.Where
	case *parser.DeleteStatement:
		where = s.Where
	}
	return checkOperators(where)
}

func checkOperators(expr parser.Expression) (err error) {
	switch e := expr.(type) {
	case *parser.Comparison:
		_, err = operator.FromOpcode(e.Operator, false)
	case *parser.InSet:
		_, err = operator.FromOpcode(opcode.In, e.Negated)
	case *parser.And:
		if err = checkOperators(e.Left); err == nil {
			err = checkOperators(e.Right)
		}
	case *parser.Or:
		if err = checkOperators(e.Left); err == nil {
			err = checkOperators(e.Right)
		}
	case *parser.Not:
		err = checkOperators(e.Expr)
	}
	return
}
