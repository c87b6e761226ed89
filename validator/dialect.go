package validator

import (
	"fmt"
	"sync"

	tiParser "github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	_ "github.com/pingcap/tidb/types/parser_driver"
	log "github.com/sirupsen/logrus"
)

// TiDB parsers keep per-parse state and are not safe for concurrent use.
var parserPool = sync.Pool{
	New: func() any {
		return tiParser.New()
	},
}

// checkDialect parses sql with the MySQL grammar and checks that it holds a
// single statement of a translatable kind.
func checkDialect(sql string, destructive map[string]bool) (err error) {
	p := parserPool.Get().(*tiParser.Parser)
	defer parserPool.Put(p)

	var stmts []ast.StmtNode
	stmts, _, err = p.Parse(sql, "", "")
	if err != nil {
		log.Debugf("mysql grammar rejected sql=[%v],err=[%v]", sql, err.Error())
		return newSQLError(DialectRejected, -1, "%v", err.Error())
	}
	if len(stmts) != 1 {
		return newSQLError(DialectRejected, -1, "expected one statement, got %d", len(stmts))
	}

	switch stmt := stmts[0].(type) {
	case *ast.SelectStmt, *ast.InsertStmt, *ast.UpdateStmt, *ast.DeleteStmt,
		*ast.CreateTableStmt, *ast.CreateIndexStmt:
		return nil
	case *ast.DropTableStmt, *ast.DropDatabaseStmt, *ast.TruncateTableStmt, *ast.AlterTableStmt:
		if len(destructive) > 0 {
			return newSQLError(DestructiveStatement, -1, "%v is not allowed", stmtName(stmt))
		}
		return newSQLError(DialectRejected, -1, "%v cannot be translated", stmtName(stmt))
	default:
		return newSQLError(DialectRejected, -1, "%v cannot be translated", stmtName(stmt))
	}
}

func stmtName(stmt ast.StmtNode) string {
	return fmt.Sprintf("%T", stmt)[len("*ast."):]
}
