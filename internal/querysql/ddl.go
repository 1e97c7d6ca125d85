package querysql

import (
	"strings"

	"github.com/roach88/dbobject/internal/schema"
)

// CreateTable returns the idempotent DDL for a record type's table.
//
// A single primary-key column is declared inline, so a lone INTEGER key
// becomes SQLite's rowid alias and is assigned on insert. Composite keys
// become a table constraint.
func CreateTable(rt *schema.RecordType) (string, error) {
	if _, err := rt.Introspect(); err != nil {
		return "", err
	}

	var pks []string
	for _, c := range rt.Columns {
		if c.PrimaryKey {
			pks = append(pks, c.Name)
		}
	}

	defs := make([]string, 0, len(rt.Columns)+1)
	for _, c := range rt.Columns {
		def := c.Name + " " + c.Type.SQLType()
		if c.PrimaryKey && len(pks) == 1 {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	if len(pks) > 1 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(pks, ", ")+")")
	}

	return "CREATE TABLE IF NOT EXISTS " + rt.Table + " (" + strings.Join(defs, ", ") + ")", nil
}

// CreateMatchIndex returns the DDL for the unique index over a record
// type's match columns. ok is false when the type declares none.
func CreateMatchIndex(rt *schema.RecordType) (sql string, ok bool) {
	if len(rt.MatchColumns) == 0 {
		return "", false
	}
	return "CREATE UNIQUE INDEX IF NOT EXISTS idx_" + rt.Table + "_match ON " +
		rt.Table + " (" + strings.Join(rt.MatchColumns, ", ") + ")", true
}
