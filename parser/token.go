package parser

import "fmt"

type TokenKind int

const (
	Keyword TokenKind = iota + 1
	Identifier
	StringLiteral
	NumberLiteral
	Operator
	Punctuation
)

func (k TokenKind) String() string {
	switch k {
	case Keyword:
		return "keyword"
	case Identifier:
		return "identifier"
	case StringLiteral:
		return "string"
	case NumberLiteral:
		return "number"
	case Operator:
		return "operator"
	case Punctuation:
		return "punctuation"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Position is a location in the source text. Line and Column are 1-based.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Token struct {
	Kind TokenKind
	// Text is upper-cased for keywords, unquoted for string literals and
	// quoted identifiers, verbatim otherwise.
	Text string
	Pos  Position
}

func (t Token) String() string {
	if t.Kind == StringLiteral {
		return fmt.Sprintf("'%v'", t.Text)
	}
	return t.Text
}

func (t Token) is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

var keywords = map[string]bool{
	"SELECT":   true,
	"FROM":     true,
	"WHERE":    true,
	"AND":      true,
	"OR":       true,
	"NOT":      true,
	"IN":       true,
	"BETWEEN":  true,
	"LIKE":     true,
	"IS":       true,
	"NULL":     true,
	"TRUE":     true,
	"FALSE":    true,
	"ORDER":    true,
	"GROUP":    true,
	"BY":       true,
	"ASC":      true,
	"DESC":     true,
	"LIMIT":    true,
	"OFFSET":   true,
	"HAVING":   true,
	"DISTINCT": true,
	"AS":       true,
	"JOIN":     true,
	"INNER":    true,
	"LEFT":     true,
	"RIGHT":    true,
	"FULL":     true,
	"OUTER":    true,
	"CROSS":    true,
	"ON":       true,
	"INSERT":   true,
	"INTO":     true,
	"VALUES":   true,
	"UPDATE":   true,
	"SET":      true,
	"DELETE":   true,
	"CREATE":   true,
	"TABLE":    true,
	"INDEX":    true,
	"UNIQUE":   true,
	"PRIMARY":  true,
	"KEY":      true,
	"DEFAULT":  true,
	"DROP":     true,
	"TRUNCATE": true,
	"ALTER":    true,
	"GRANT":    true,
	"REVOKE":   true,
	"RENAME":   true,
	"UNION":    true,
}

// IsKeyword reports whether word, in any case, is a reserved word.
func IsKeyword(word string) bool {
	return keywords[upper(word)]
}
