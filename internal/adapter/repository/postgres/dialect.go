package postgres

import (
	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
)

const (
	codeDuplicateTable  pq.ErrorCode = "42P07" // also raised for sequences
	codeDuplicateObject pq.ErrorCode = "42710"
)

// Dialect is the PostgreSQL flavour of the relational writer. Identity comes
// from a per-table sequence used as the id column default.
type Dialect struct{}

func (Dialect) Name() string       { return "postgres" }
func (Dialect) DriverName() string { return "postgres" }

// InsertStatement returns the parameterized single-row INSERT for table.
func (Dialect) InsertStatement(table string) string {
	return `INSERT INTO ` + table + ` (timestamp, loglevel, messagetemplate, message, exception, properties)
		VALUES ($1, $2, $3, $4, $5, $6)`
}

// SchemaStatements creates the sequence, the table and ties them together.
func (Dialect) SchemaStatements(table string) []string {
	seq := table + `_seq`
	return []string{
		`CREATE SEQUENCE ` + seq + ` START WITH 1 INCREMENT BY 1`,
		`CREATE TABLE ` + table + ` (
			id BIGINT NOT NULL DEFAULT nextval('` + seq + `'),
			timestamp TIMESTAMPTZ NOT NULL,
			loglevel VARCHAR(128) NULL,
			messagetemplate TEXT NULL,
			message TEXT NULL,
			exception TEXT NULL,
			properties TEXT NULL,
			CONSTRAINT pk_` + table + ` PRIMARY KEY (id)
		)`,
		`ALTER SEQUENCE ` + seq + ` OWNED BY ` + table + `.id`,
	}
}

// IsAlreadyExists reports duplicate_table and duplicate_object errors.
func (Dialect) IsAlreadyExists(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeDuplicateTable || pqErr.Code == codeDuplicateObject
}
