package relational

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/V4T54L/logsink/internal/domain"
)

// Writer implements domain.BatchWriter for a relational table.
type Writer struct {
	db        *sql.DB
	dialect   Dialect
	table     string
	insertSQL string
	storeUTC  bool
	diag      *slog.Logger
}

// NewWriter creates a writer inserting into table. storeUTC converts event
// timestamps to UTC before they are formatted.
func NewWriter(db *sql.DB, dialect Dialect, table string, storeUTC bool, diag *slog.Logger) *Writer {
	return &Writer{
		db:        db,
		dialect:   dialect,
		table:     table,
		insertSQL: dialect.InsertStatement(table),
		storeUTC:  storeUTC,
		diag:      diag.With("component", "relational_writer", "dialect", dialect.Name(), "table", table),
	}
}

// WriteBatch writes the batch inside one transaction on a dedicated
// connection. Any error rolls the whole batch back and is reported on the
// diagnostic channel; the events are not retried.
func (w *Writer) WriteBatch(ctx context.Context, batch domain.Batch) bool {
	if batch.Empty() {
		return true
	}

	start := time.Now()
	if err := w.writeBatch(ctx, batch); err != nil {
		w.diag.Error("failed to write log batch", "error", err, "count", batch.Len())
		return false
	}
	w.diag.Debug("wrote log batch", "count", batch.Len(), "duration_ms", time.Since(start).Milliseconds())
	return true
}

func (w *Writer) writeBatch(ctx context.Context, batch domain.Batch) error {
	conn, err := w.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to acquire connection")
	}
	defer conn.Close()

	txn, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	stmt, err := txn.PrepareContext(ctx, w.insertSQL)
	if err != nil {
		return errors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for i, event := range batch.All() {
		rec, err := event.Record(w.storeUTC)
		if err != nil {
			return errors.Wrapf(err, "row %d", i)
		}
		_, err = stmt.ExecContext(ctx,
			rec.Timestamp,
			rec.Level,
			rec.MessageTemplate,
			rec.Message,
			nullable(rec.Exception),
			rec.Properties,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert row %d", i)
		}
	}

	if err := txn.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
