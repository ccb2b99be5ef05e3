package relational

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// Provisioner creates the destination table and its identity generation.
// Objects that already exist are left alone, so provisioning is idempotent.
type Provisioner struct {
	db      *sql.DB
	dialect Dialect
	table   string
	logger  *slog.Logger
}

// NewProvisioner creates a provisioner for table.
func NewProvisioner(db *sql.DB, dialect Dialect, table string, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		db:      db,
		dialect: dialect,
		table:   table,
		logger:  logger.With("component", "schema_provisioner", "dialect", dialect.Name(), "table", table),
	}
}

// Provision runs the dialect's DDL statements in order. A statement failing
// because its object already exists is skipped; any other error is returned.
func (p *Provisioner) Provision(ctx context.Context) error {
	for _, stmt := range p.dialect.SchemaStatements(p.table) {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			if p.dialect.IsAlreadyExists(err) {
				p.logger.Debug("schema object already exists", "error", err)
				continue
			}
			return errors.Wrapf(err, "failed to provision table %s", p.table)
		}
	}
	p.logger.Debug("schema provisioned")
	return nil
}
