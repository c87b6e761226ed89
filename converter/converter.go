// Package converter builds document queries from parsed SQL statements and
// renders document queries back as SQL text.
package converter

import (
	log "github.com/sirupsen/logrus"
	"github.com/tsfans/sqlmongo/document"
)

type QueryConverter interface {
	// Convert builds the document query for a statement.
	Convert() (*document.Query, error)
}

type SQLConverter interface {
	// Convert renders a document query as SQL text.
	Convert() (string, error)
}

type Options struct {
	// Collections maps table names to collection names. Tables missing from
	// the map keep their name.
	Collections map[string]string
	Logger      log.FieldLogger
}

func (o Options) logger() log.FieldLogger {
	if o.Logger == nil {
		return log.StandardLogger()
	}
	return o.Logger
}

func (o Options) collection(table string) string {
	if name, ok := o.Collections[table]; ok && name != "" {
		return name
	}
	return table
}

// tables inverts Collections for the reverse direction.
func (o Options) tables() map[string]string {
	tables := make(map[string]string, len(o.Collections))
	for table, collection := range o.Collections {
		tables[collection] = table
	}
	return tables
}
