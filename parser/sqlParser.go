package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pingcap/tidb/parser/opcode"
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sqlmongo/operator"
)

// MaxDepth bounds the nesting of parentheses and NOT in a WHERE clause.
const MaxDepth = 64

type SQLParser struct {
	sql string
}

func NewSQLParser(sql string) StatementParser {
	return &SQLParser{sql: sql}
}

func (p *SQLParser) Parse() (stmt Statement, err error) {
	log.Debugf("original sql is [%v]", p.sql)

	var tokens []Token
	tokens, err = Tokenize(p.sql)
	if err != nil {
		return
	}
	stmt, err = Parse(tokens)
	return
}

// ParseSQL tokenizes and parses a single statement.
func ParseSQL(sql string) (Statement, error) {
	return NewSQLParser(sql).Parse()
}

type parser struct {
	tokens []Token
	cursor int
	depth  int
}

// Parse builds a Statement from tokens. The statement kind is chosen by the
// first keyword; an optional trailing ';' is accepted.
func Parse(tokens []Token) (stmt Statement, err error) {
	p := &parser{tokens: tokens}
	if p.done() {
		err = &ParseError{Kind: UnexpectedEnd, Msg: "empty statement"}
		return
	}

	first := p.peek()
	if first.Kind != Keyword {
		err = p.errorAt(UnexpectedToken, first, "expected a statement keyword")
		return
	}
	switch first.Text {
	case "SELECT":
		stmt, err = p.parseSelect()
	case "INSERT":
		stmt, err = p.parseInsert()
	case "UPDATE":
		stmt, err = p.parseUpdate()
	case "DELETE":
		stmt, err = p.parseDelete()
	case "CREATE":
		stmt, err = p.parseCreate()
	default:
		err = p.errorAt(UnsupportedConstruct, first, fmt.Sprintf("%v statement", first.Text))
	}
	if err != nil {
		stmt = nil
		return
	}

	p.accept(Punctuation, ";")
	if !p.done() {
		tok := p.peek()
		if tok.is(Punctuation, ")") {
			err = p.errorAt(UnbalancedGrouping, tok, "unmatched ')'")
		} else {
			err = p.errorAt(TrailingInput, tok, "")
		}
		stmt = nil
	}
	return
}

func (p *parser) done() bool {
	return p.cursor >= len(p.tokens)
}

func (p *parser) peek() Token {
	if p.done() {
		return Token{}
	}
	return p.tokens[p.cursor]
}

func (p *parser) peekAt(n int) Token {
	if p.cursor+n >= len(p.tokens) {
		return Token{}
	}
	return p.tokens[p.cursor+n]
}

func (p *parser) next() Token {
	tok := p.peek()
	p.cursor++
	return tok
}

func (p *parser) accept(kind TokenKind, text string) bool {
	if !p.done() && p.peek().is(kind, text) {
		p.cursor++
		return true
	}
	return false
}

func (p *parser) acceptKeyword(word string) bool {
	return p.accept(Keyword, word)
}

func (p *parser) expect(kind TokenKind, text string) (tok Token, err error) {
	if p.done() {
		err = p.endError(fmt.Sprintf("expected [%v]", text))
		return
	}
	tok = p.peek()
	if !tok.is(kind, text) {
		err = p.errorAt(UnexpectedToken, tok, fmt.Sprintf("expected [%v]", text))
		return
	}
	p.cursor++
	return
}

func (p *parser) expectKeyword(word string) error {
	_, err := p.expect(Keyword, word)
	return err
}

// endPos is the position just past the last token.
func (p *parser) endPos() Position {
	if len(p.tokens) == 0 {
		return Position{Line: 1, Column: 1}
	}
	last := p.tokens[len(p.tokens)-1]
	pos := last.Pos
	pos.Offset += len(last.Text)
	pos.Column += len([]rune(last.Text))
	return pos
}

func (p *parser) errorAt(kind ParseErrorKind, tok Token, msg string) error {
	return &ParseError{Kind: kind, Pos: tok.Pos, Token: tok.String(), Msg: msg}
}

func (p *parser) endError(msg string) error {
	return &ParseError{Kind: UnexpectedEnd, Pos: p.endPos(), Msg: msg}
}

func (p *parser) ident() (name string, err error) {
	if p.done() {
		err = p.endError("expected an identifier")
		return
	}
	tok := p.peek()
	if tok.Kind != Identifier {
		err = p.errorAt(UnexpectedToken, tok, "expected an identifier")
		return
	}
	p.cursor++
	name = tok.Text
	return
}

func (p *parser) columnRef() (col ColumnRef, err error) {
	var name string
	name, err = p.ident()
	if err != nil {
		return
	}
	if p.accept(Punctuation, ".") {
		col.Table = name
		if p.peek().is(Punctuation, "*") {
			err = p.errorAt(UnsupportedConstruct, p.peek(), "qualified wildcard")
			return
		}
		name, err = p.ident()
		if err != nil {
			return
		}
	}
	col.Name = name
	return
}

func (p *parser) tableRef() (table TableRef, err error) {
	if p.peek().is(Punctuation, "(") {
		err = p.errorAt(UnsupportedConstruct, p.peek(), "subquery")
		return
	}
	table.Name, err = p.ident()
	if err != nil {
		return
	}
	if p.accept(Punctuation, ".") {
		err = p.errorAt(UnsupportedConstruct, p.tokens[p.cursor-1], "schema qualified table")
		return
	}
	if p.acceptKeyword("AS") {
		table.Alias, err = p.ident()
		return
	}
	if p.peek().Kind == Identifier {
		table.Alias = p.next().Text
	}
	return
}

func (p *parser) literal() (val any, err error) {
	if p.done() {
		err = p.endError("expected a literal")
		return
	}
	tok := p.next()
	switch tok.Kind {
	case StringLiteral:
		val = tok.Text
		return
	case NumberLiteral:
		return parseNumber(tok, false)
	case Operator:
		if tok.Text == "-" && p.peek().Kind == NumberLiteral {
			return parseNumber(p.next(), true)
		}
	case Keyword:
		switch tok.Text {
		case "NULL":
			return nil, nil
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		}
	case Punctuation:
		if tok.Text == "(" && p.peek().is(Keyword, "SELECT") {
			err = p.errorAt(UnsupportedConstruct, tok, "subquery")
			return
		}
	case Identifier:
		if p.peek().is(Punctuation, "(") {
			err = p.errorAt(UnsupportedConstruct, tok, fmt.Sprintf("function %v", tok.Text))
			return
		}
		err = p.errorAt(UnsupportedConstruct, tok, "column on the right hand side of a comparison")
		return
	}
	err = p.errorAt(UnexpectedToken, tok, "expected a literal")
	return
}

func parseNumber(tok Token, negative bool) (val any, err error) {
	text := tok.Text
	if negative {
		text = "-" + text
	}
	if strings.Contains(text, ".") {
		var f float64
		f, err = strconv.ParseFloat(text, 64)
		if err != nil {
			err = &ParseError{Kind: UnexpectedToken, Pos: tok.Pos, Token: tok.Text, Msg: "invalid number"}
			return
		}
		val = f
		return
	}
	var i int64
	i, err = strconv.ParseInt(text, 10, 64)
	if err != nil {
		err = &ParseError{Kind: UnexpectedToken, Pos: tok.Pos, Token: tok.Text, Msg: "integer out of range"}
		return
	}
	val = i
	return
}

func (p *parser) count() (n int64, err error) {
	if p.done() {
		err = p.endError("expected a count")
		return
	}
	tok := p.next()
	if tok.Kind != NumberLiteral || strings.Contains(tok.Text, ".") {
		err = p.errorAt(UnexpectedToken, tok, "expected a non-negative integer")
		return
	}
	n, err = strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		err = p.errorAt(UnexpectedToken, tok, "integer out of range")
	}
	return
}

func (p *parser) parseSelect() (stmt *SelectStatement, err error) {
	if err = p.expectKeyword("SELECT"); err != nil {
		return
	}
	if p.peek().is(Keyword, "DISTINCT") {
		err = p.errorAt(UnsupportedConstruct, p.peek(), "SELECT DISTINCT")
		return
	}
	stmt = &SelectStatement{}
	stmt.Items, err = p.selectList()
	if err != nil {
		return
	}
	if err = p.expectKeyword("FROM"); err != nil {
		return
	}
	stmt.Table, err = p.tableRef()
	if err != nil {
		return
	}
	stmt.Joins, err = p.joins()
	if err != nil {
		return
	}

	if p.acceptKeyword("WHERE") {
		stmt.Where, err = p.expression()
		if err != nil {
			return
		}
	}
	if p.acceptKeyword("GROUP") {
		if err = p.expectKeyword("BY"); err != nil {
			return
		}
		for {
			var col ColumnRef
			col, err = p.columnRef()
			if err != nil {
				return
			}
			stmt.GroupBy = append(stmt.GroupBy, col)
			if !p.accept(Punctuation, ",") {
				break
			}
		}
	}
	if p.peek().is(Keyword, "HAVING") {
		err = p.errorAt(UnsupportedConstruct, p.peek(), "HAVING")
		return
	}
	if p.acceptKeyword("ORDER") {
		if err = p.expectKeyword("BY"); err != nil {
			return
		}
		stmt.OrderBy, err = p.orderItems()
		if err != nil {
			return
		}
	}
	if p.acceptKeyword("LIMIT") {
		var n int64
		n, err = p.count()
		if err != nil {
			return
		}
		if p.accept(Punctuation, ",") {
			offset := n
			stmt.Offset = &offset
			n, err = p.count()
			if err != nil {
				return
			}
		}
		stmt.Limit = &n
	}
	if stmt.Offset == nil && p.acceptKeyword("OFFSET") {
		var n int64
		n, err = p.count()
		if err != nil {
			return
		}
		stmt.Offset = &n
	}
	if p.peek().is(Keyword, "UNION") {
		err = p.errorAt(UnsupportedConstruct, p.peek(), "UNION")
	}
	return
}

func (p *parser) selectList() (items []SelectItem, err error) {
	for {
		var item SelectItem
		item, err = p.selectItem()
		if err != nil {
			return
		}
		items = append(items, item)
		if !p.accept(Punctuation, ",") {
			break
		}
	}
	for _, item := range items {
		if item.Type == SelectWildcard && len(items) > 1 {
			err = &ParseError{Kind: UnsupportedConstruct, Pos: p.peek().Pos, Msg: "wildcard mixed with other columns"}
			return
		}
	}
	return
}

func (p *parser) selectItem() (item SelectItem, err error) {
	if p.accept(Punctuation, "*") {
		item.Type = SelectWildcard
		return
	}
	tok := p.peek()
	if tok.Kind == Identifier && p.peekAt(1).is(Punctuation, "(") {
		fn := upper(tok.Text)
		if !operator.IsAggregate(fn) {
			err = p.errorAt(UnsupportedConstruct, tok, fmt.Sprintf("function %v", tok.Text))
			return
		}
		p.cursor += 2
		item.Type = SelectAggregate
		item.Func = fn
		if p.peek().is(Keyword, "DISTINCT") {
			err = p.errorAt(UnsupportedConstruct, p.peek(), fmt.Sprintf("%v(DISTINCT)", fn))
			return
		}
		switch {
		case p.accept(Punctuation, "*"):
			if fn != AggCount {
				err = p.errorAt(UnexpectedToken, p.tokens[p.cursor-1], fmt.Sprintf("%v(*)", fn))
				return
			}
		case fn == AggCount && p.peek().Kind == NumberLiteral:
			p.next()
		default:
			item.Column, err = p.columnRef()
			if err != nil {
				return
			}
		}
		if _, err = p.expect(Punctuation, ")"); err != nil {
			return
		}
		if p.acceptKeyword("AS") {
			item.Alias, err = p.ident()
			return
		}
		if p.peek().Kind == Identifier {
			item.Alias = p.next().Text
		}
		return
	}

	item.Type = SelectColumn
	item.Column, err = p.columnRef()
	if err != nil {
		return
	}
	if p.peek().is(Keyword, "AS") || p.peek().Kind == Identifier {
		err = p.errorAt(UnsupportedConstruct, p.peek(), "column alias")
	}
	return
}

func (p *parser) joins() (joins []Join, err error) {
	for {
		tok := p.peek()
		var kind JoinKind
		switch {
		case p.acceptKeyword("JOIN"):
			kind = InnerJoin
		case p.acceptKeyword("INNER"):
			kind = InnerJoin
			if err = p.expectKeyword("JOIN"); err != nil {
				return
			}
		case p.acceptKeyword("LEFT"):
			kind = LeftJoin
			p.acceptKeyword("OUTER")
			if err = p.expectKeyword("JOIN"); err != nil {
				return
			}
		case tok.is(Keyword, "RIGHT"), tok.is(Keyword, "FULL"), tok.is(Keyword, "CROSS"):
			err = p.errorAt(UnsupportedConstruct, tok, fmt.Sprintf("%v JOIN", tok.Text))
			return
		case tok.is(Punctuation, ","):
			err = p.errorAt(UnsupportedConstruct, tok, "implicit join")
			return
		default:
			return
		}

		join := Join{Kind: kind}
		join.Table, err = p.tableRef()
		if err != nil {
			return
		}
		if err = p.expectKeyword("ON"); err != nil {
			return
		}
		join.On, err = p.joinCondition()
		if err != nil {
			return
		}
		joins = append(joins, join)
	}
}

func (p *parser) joinCondition() (cond JoinCondition, err error) {
	if p.peek().is(Punctuation, "(") {
		err = p.errorAt(UnsupportedJoinCondition, p.peek(), "grouped join condition")
		return
	}
	cond.Left, err = p.columnRef()
	if err != nil {
		return
	}
	tok := p.peek()
	if !tok.is(Operator, "=") {
		err = p.errorAt(UnsupportedJoinCondition, tok, "join condition must be an equality")
		return
	}
	p.next()
	if p.peek().Kind != Identifier {
		err = p.errorAt(UnsupportedJoinCondition, p.peek(), "join condition must compare two columns")
		return
	}
	cond.Right, err = p.columnRef()
	if err != nil {
		return
	}
	if tok := p.peek(); tok.is(Keyword, "AND") || tok.is(Keyword, "OR") {
		err = p.errorAt(UnsupportedJoinCondition, tok, "join condition with logical combinators")
	}
	return
}

func (p *parser) orderItems() (items []OrderItem, err error) {
	for {
		var item OrderItem
		item.Column, err = p.columnRef()
		if err != nil {
			return
		}
		if p.acceptKeyword("DESC") {
			item.Desc = true
		} else {
			p.acceptKeyword("ASC")
		}
		items = append(items, item)
		if !p.accept(Punctuation, ",") {
			return
		}
	}
}

func (p *parser) expression() (Expression, error) {
	return p.orExpr()
}

func (p *parser) orExpr() (expr Expression, err error) {
	expr, err = p.andExpr()
	if err != nil {
		return
	}
	for p.acceptKeyword("OR") {
		var right Expression
		right, err = p.andExpr()
		if err != nil {
			return
		}
		expr = &Or{Left: expr, Right: right}
	}
	return
}

func (p *parser) andExpr() (expr Expression, err error) {
	expr, err = p.notExpr()
	if err != nil {
		return
	}
	for p.acceptKeyword("AND") {
		var right Expression
		right, err = p.notExpr()
		if err != nil {
			return
		}
		expr = &And{Left: expr, Right: right}
	}
	return
}

func (p *parser) enter(tok Token) error {
	p.depth++
	if p.depth > MaxDepth {
		return p.errorAt(TooDeep, tok, fmt.Sprintf("more than %d levels", MaxDepth))
	}
	return nil
}

func (p *parser) notExpr() (expr Expression, err error) {
	tok := p.peek()
	if !p.acceptKeyword("NOT") {
		return p.primary()
	}
	if err = p.enter(tok); err != nil {
		return
	}
	defer func() { p.depth-- }()

	var inner Expression
	inner, err = p.notExpr()
	if err != nil {
		return
	}
	expr = &Not{Expr: inner}
	return
}

func (p *parser) primary() (expr Expression, err error) {
	if p.done() {
		err = p.endError("expected a condition")
		return
	}
	open := p.peek()
	if !p.accept(Punctuation, "(") {
		return p.predicate()
	}
	if p.peek().is(Keyword, "SELECT") {
		err = p.errorAt(UnsupportedConstruct, open, "subquery")
		return
	}
	if err = p.enter(open); err != nil {
		return
	}
	defer func() { p.depth-- }()

	expr, err = p.orExpr()
	if err != nil {
		return
	}
	if !p.accept(Punctuation, ")") {
		err = &ParseError{
			Kind:  UnbalancedGrouping,
			Pos:   open.Pos,
			Token: open.String(),
			Msg:   "missing ')' for this '('",
		}
		expr = nil
	}
	return
}

func (p *parser) predicate() (expr Expression, err error) {
	var field ColumnRef
	field, err = p.columnRef()
	if err != nil {
		return
	}
	if p.done() {
		err = p.endError("expected a comparison operator")
		return
	}

	tok := p.next()
	negated := false
	if tok.is(Keyword, "NOT") {
		negated = true
		if p.done() {
			err = p.endError("expected IN, LIKE or BETWEEN")
			return
		}
		tok = p.next()
	}

	switch {
	case tok.Kind == Operator && !negated:
		var m operator.Mapping
		m, err = operator.FromSQL(tok.Text)
		if err != nil {
			return
		}
		if m.Shape != operator.Scalar {
			err = p.errorAt(UnexpectedToken, tok, "expected a comparison operator")
			return
		}
		var val any
		val, err = p.literal()
		if err != nil {
			return
		}
		expr = &Comparison{Field: field, Operator: m.Op, Value: val}
	case tok.is(Keyword, "IS") && !negated:
		op := opcode.EQ
		if p.acceptKeyword("NOT") {
			op = opcode.NE
		}
		if err = p.expectKeyword("NULL"); err != nil {
			return
		}
		expr = &Comparison{Field: field, Operator: op, Value: nil}
	case tok.is(Keyword, "IN"):
		var values []any
		values, err = p.valueList()
		if err != nil {
			return
		}
		expr = &InSet{Field: field, Values: values, Negated: negated}
	case tok.is(Keyword, "LIKE"):
		if p.peek().Kind != StringLiteral {
			err = p.errorAt(UnexpectedToken, p.peek(), "LIKE expects a string pattern")
			return
		}
		expr = &Comparison{Field: field, Operator: opcode.Like, Value: p.next().Text}
		if negated {
			expr = &Not{Expr: expr}
		}
	case tok.is(Keyword, "BETWEEN"):
		between := &Between{Field: field}
		between.Low, err = p.literal()
		if err != nil {
			return
		}
		if err = p.expectKeyword("AND"); err != nil {
			return
		}
		between.High, err = p.literal()
		if err != nil {
			return
		}
		expr = between
		if negated {
			expr = &Not{Expr: expr}
		}
	default:
		err = p.errorAt(UnexpectedToken, tok, "expected a comparison operator")
	}
	return
}

func (p *parser) valueList() (values []any, err error) {
	open, err := p.expect(Punctuation, "(")
	if err != nil {
		return
	}
	if p.peek().is(Keyword, "SELECT") {
		err = p.errorAt(UnsupportedConstruct, open, "subquery")
		return
	}
	for {
		var val any
		val, err = p.literal()
		if err != nil {
			return
		}
		values = append(values, val)
		if !p.accept(Punctuation, ",") {
			break
		}
	}
	if !p.accept(Punctuation, ")") {
		err = &ParseError{Kind: UnbalancedGrouping, Pos: open.Pos, Token: open.String(), Msg: "missing ')' for this '('"}
	}
	return
}

func (p *parser) parseInsert() (stmt *InsertStatement, err error) {
	if err = p.expectKeyword("INSERT"); err != nil {
		return
	}
	if err = p.expectKeyword("INTO"); err != nil {
		return
	}
	stmt = &InsertStatement{}
	stmt.Table, err = p.tableRef()
	if err != nil {
		return
	}
	if !p.peek().is(Punctuation, "(") {
		err = p.errorAt(UnsupportedConstruct, p.peek(), "INSERT without a column list")
		return
	}
	open := p.next()
	for {
		var col string
		col, err = p.ident()
		if err != nil {
			return
		}
		stmt.Columns = append(stmt.Columns, col)
		if !p.accept(Punctuation, ",") {
			break
		}
	}
	if !p.accept(Punctuation, ")") {
		err = &ParseError{Kind: UnbalancedGrouping, Pos: open.Pos, Token: open.String(), Msg: "missing ')' for this '('"}
		return
	}

	if p.peek().is(Keyword, "SELECT") {
		err = p.errorAt(UnsupportedConstruct, p.peek(), "INSERT ... SELECT")
		return
	}
	if err = p.expectKeyword("VALUES"); err != nil {
		return
	}
	valuesTok := p.peek()
	stmt.Values, err = p.valueList()
	if err != nil {
		return
	}
	if p.peek().is(Punctuation, ",") {
		err = p.errorAt(UnsupportedConstruct, p.peek(), "multi-row VALUES")
		return
	}
	if len(stmt.Values) != len(stmt.Columns) {
		err = p.errorAt(ValueCountMismatch, valuesTok, fmt.Sprintf("%d columns but %d values", len(stmt.Columns), len(stmt.Values)))
	}
	return
}

func (p *parser) parseUpdate() (stmt *UpdateStatement, err error) {
	if err = p.expectKeyword("UPDATE"); err != nil {
		return
	}
	stmt = &UpdateStatement{}
	stmt.Table, err = p.tableRef()
	if err != nil {
		return
	}
	if err = p.expectKeyword("SET"); err != nil {
		return
	}
	for {
		var assignment Assignment
		assignment, err = p.assignment()
		if err != nil {
			return
		}
		stmt.Assignments = append(stmt.Assignments, assignment)
		if !p.accept(Punctuation, ",") {
			break
		}
	}
	if p.acceptKeyword("WHERE") {
		stmt.Where, err = p.expression()
	}
	return
}

func (p *parser) assignment() (a Assignment, err error) {
	var col ColumnRef
	col, err = p.columnRef()
	if err != nil {
		return
	}
	a.Column = col.Name
	if _, err = p.expect(Operator, "="); err != nil {
		return
	}
	if p.peek().Kind != Identifier {
		a.Type = AssignValue
		a.Value, err = p.literal()
		return
	}

	source := p.peek()
	var ref ColumnRef
	ref, err = p.columnRef()
	if err != nil {
		return
	}
	if ref.Name != a.Column {
		err = p.errorAt(UnsupportedConstruct, source, "assignment from another column")
		return
	}
	sign := p.peek()
	if !sign.is(Operator, "+") && !sign.is(Operator, "-") {
		err = p.errorAt(UnexpectedToken, sign, "expected '+' or '-'")
		return
	}
	p.next()
	if p.peek().Kind != NumberLiteral {
		err = p.errorAt(UnexpectedToken, p.peek(), "expected a number")
		return
	}
	a.Type = AssignIncrement
	a.Value, err = parseNumber(p.next(), sign.Text == "-")
	return
}

func (p *parser) parseDelete() (stmt *DeleteStatement, err error) {
	if err = p.expectKeyword("DELETE"); err != nil {
		return
	}
	if err = p.expectKeyword("FROM"); err != nil {
		return
	}
	stmt = &DeleteStatement{}
	stmt.Table, err = p.tableRef()
	if err != nil {
		return
	}
	if p.acceptKeyword("WHERE") {
		stmt.Where, err = p.expression()
	}
	return
}

func (p *parser) parseCreate() (stmt Statement, err error) {
	if err = p.expectKeyword("CREATE"); err != nil {
		return
	}
	switch {
	case p.acceptKeyword("TABLE"):
		return p.parseCreateTable()
	case p.acceptKeyword("INDEX"):
		return p.parseCreateIndex(false)
	case p.acceptKeyword("UNIQUE"):
		if err = p.expectKeyword("INDEX"); err != nil {
			return
		}
		return p.parseCreateIndex(true)
	}
	if p.done() {
		err = p.endError("expected TABLE or INDEX")
		return
	}
	err = p.errorAt(UnsupportedConstruct, p.peek(), fmt.Sprintf("CREATE %v", p.peek().Text))
	return
}

func (p *parser) parseCreateTable() (stmt *CreateTableStatement, err error) {
	stmt = &CreateTableStatement{}
	stmt.Table, err = p.ident()
	if err != nil {
		return
	}
	open, err := p.expect(Punctuation, "(")
	if err != nil {
		return
	}
	for {
		if p.acceptKeyword("PRIMARY") {
			err = p.tablePrimaryKey(stmt)
		} else {
			var def ColumnDef
			def, err = p.columnDef()
			stmt.Columns = append(stmt.Columns, def)
		}
		if err != nil {
			return
		}
		if !p.accept(Punctuation, ",") {
			break
		}
	}
	if !p.accept(Punctuation, ")") {
		err = &ParseError{Kind: UnbalancedGrouping, Pos: open.Pos, Token: open.String(), Msg: "missing ')' for this '('"}
	}
	return
}

// tablePrimaryKey handles "PRIMARY KEY (a, b)" by marking the named columns.
func (p *parser) tablePrimaryKey(stmt *CreateTableStatement) (err error) {
	if err = p.expectKeyword("KEY"); err != nil {
		return
	}
	if _, err = p.expect(Punctuation, "("); err != nil {
		return
	}
	for {
		tok := p.peek()
		var name string
		name, err = p.ident()
		if err != nil {
			return
		}
		found := false
		for i := range stmt.Columns {
			if stmt.Columns[i].Name == name {
				stmt.Columns[i].Constraints = append(stmt.Columns[i].Constraints, "PRIMARY KEY")
				found = true
			}
		}
		if !found {
			err = p.errorAt(UnexpectedToken, tok, "primary key names an undefined column")
			return
		}
		if !p.accept(Punctuation, ",") {
			break
		}
	}
	_, err = p.expect(Punctuation, ")")
	return
}

func (p *parser) columnDef() (def ColumnDef, err error) {
	def.Name, err = p.ident()
	if err != nil {
		return
	}
	var typeName string
	typeName, err = p.ident()
	if err != nil {
		return
	}
	def.Type = upper(typeName)
	if p.accept(Punctuation, "(") {
		var args []string
		for {
			if p.peek().Kind != NumberLiteral {
				err = p.errorAt(UnexpectedToken, p.peek(), "expected a type argument")
				return
			}
			args = append(args, p.next().Text)
			if !p.accept(Punctuation, ",") {
				break
			}
		}
		if _, err = p.expect(Punctuation, ")"); err != nil {
			return
		}
		def.Type = fmt.Sprintf("%v(%v)", def.Type, strings.Join(args, ","))
	}

	for !p.done() && !p.peek().is(Punctuation, ",") && !p.peek().is(Punctuation, ")") {
		tok := p.next()
		switch {
		case tok.is(Keyword, "PRIMARY"):
			if err = p.expectKeyword("KEY"); err != nil {
				return
			}
			def.Constraints = append(def.Constraints, "PRIMARY KEY")
		case tok.is(Keyword, "NOT"):
			if err = p.expectKeyword("NULL"); err != nil {
				return
			}
			def.Constraints = append(def.Constraints, "NOT NULL")
		case tok.is(Keyword, "NULL"):
			def.Constraints = append(def.Constraints, "NULL")
		case tok.is(Keyword, "UNIQUE"):
			p.acceptKeyword("KEY")
			def.Constraints = append(def.Constraints, "UNIQUE")
		case tok.is(Keyword, "DEFAULT"):
			var val any
			val, err = p.literal()
			if err != nil {
				return
			}
			var text string
			text, err = FormatLiteral(val)
			if err != nil {
				return
			}
			def.Constraints = append(def.Constraints, "DEFAULT "+text)
		case tok.Kind == Identifier:
			def.Constraints = append(def.Constraints, upper(tok.Text))
		default:
			err = p.errorAt(UnexpectedToken, tok, "expected a column constraint")
			return
		}
	}
	return
}

func (p *parser) parseCreateIndex(unique bool) (stmt *CreateIndexStatement, err error) {
	stmt = &CreateIndexStatement{Unique: unique}
	stmt.Name, err = p.ident()
	if err != nil {
		return
	}
	if err = p.expectKeyword("ON"); err != nil {
		return
	}
	stmt.Table, err = p.ident()
	if err != nil {
		return
	}
	open, err := p.expect(Punctuation, "(")
	if err != nil {
		return
	}
	stmt.Columns, err = p.orderItems()
	if err != nil {
		return
	}
	if !p.accept(Punctuation, ")") {
		err = &ParseError{Kind: UnbalancedGrouping, Pos: open.Pos, Token: open.String(), Msg: "missing ')' for this '('"}
	}
	return
}
