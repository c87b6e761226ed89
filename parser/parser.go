package parser

// Statement is the parsed form of one SQL statement: one of
// *SelectStatement, *InsertStatement, *UpdateStatement, *DeleteStatement,
// *CreateTableStatement or *CreateIndexStatement.
type Statement interface {
	Kind() StatementKind
	statementNode()
}

// StatementParser turns SQL text into a Statement.
type StatementParser interface {
	Parse() (Statement, error)
}
