package relational

// Dialect supplies the vendor-specific SQL for a destination table.
type Dialect interface {
	// Name identifies the dialect in diagnostics.
	Name() string
	// DriverName is the database/sql driver to open connections with.
	DriverName() string
	// InsertStatement returns the parameterized single-row INSERT. Parameters
	// bind, in order: timestamp, level, message template, rendered message,
	// exception, properties.
	InsertStatement(table string) string
	// SchemaStatements returns the DDL creating the table and its identity
	// generation, executed in order.
	SchemaStatements(table string) []string
	// IsAlreadyExists reports whether err means the object already exists.
	IsAlreadyExists(err error) bool
}
