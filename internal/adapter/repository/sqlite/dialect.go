package sqlite

import (
	"strings"

	"github.com/cockroachdb/errors"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// Dialect is the SQLite flavour of the relational writer. Identity comes from
// the native AUTOINCREMENT rowid.
type Dialect struct{}

func (Dialect) Name() string       { return "sqlite" }
func (Dialect) DriverName() string { return "sqlite3" }

// InsertStatement returns the parameterized single-row INSERT for table.
func (Dialect) InsertStatement(table string) string {
	return `INSERT INTO ` + table + ` (timestamp, loglevel, messagetemplate, message, exception, properties)
		VALUES (?, ?, ?, ?, ?, ?)`
}

// SchemaStatements creates the table with an autoincrement identity.
func (Dialect) SchemaStatements(table string) []string {
	return []string{
		`CREATE TABLE ` + table + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			loglevel TEXT NULL,
			messagetemplate TEXT NULL,
			message TEXT NULL,
			exception TEXT NULL,
			properties TEXT NULL
		)`,
	}
}

// IsAlreadyExists reports "table ... already exists" errors.
func (Dialect) IsAlreadyExists(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrError && strings.Contains(sqliteErr.Error(), "already exists")
}
