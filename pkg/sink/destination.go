package sink

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/logsink/internal/adapter/repository/file"
	"github.com/V4T54L/logsink/internal/adapter/repository/kafka"
	"github.com/V4T54L/logsink/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/logsink/internal/adapter/repository/redis"
	"github.com/V4T54L/logsink/internal/adapter/repository/relational"
	"github.com/V4T54L/logsink/internal/adapter/repository/sqlite"
)

// destination bundles what a sink needs from its backing store.
type destination struct {
	writer      BatchWriter
	provisioner SchemaProvisioner // nil when the store needs no schema
	closer      io.Closer
}

func openDestination(ctx context.Context, id string, opts Options, diag *slog.Logger) (*destination, error) {
	switch opts.Destination {
	case DestinationPostgres:
		return openRelational(postgres.Dialect{}, opts, diag)
	case DestinationSQLite:
		return openRelational(sqlite.Dialect{}, opts, diag)
	case DestinationRedis:
		redisOpts, err := redis.ParseURL(opts.ConnectionString)
		if err != nil {
			return nil, errors.Wrap(err, "invalid redis connection string")
		}
		client := redis.NewClient(redisOpts)
		w := redisrepo.NewStreamWriter(client, opts.TableName, opts.StoreTimestampInUTC, diag)
		if err := w.Ping(ctx); err != nil {
			diag.Warn("redis destination unreachable at startup", "error", err)
		}
		return &destination{writer: w, closer: client}, nil
	case DestinationFile:
		w, err := file.NewSegmentWriter(opts.ConnectionString, 0, 0, opts.StoreTimestampInUTC, diag)
		if err != nil {
			return nil, err
		}
		return &destination{writer: w, closer: w}, nil
	case DestinationKafka:
		w := kafka.NewTopicWriter(kafka.NewProducer(opts.ConnectionString, opts.TableName, opts.BatchSize), id, opts.StoreTimestampInUTC, diag)
		return &destination{writer: w, closer: w}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownDestination, "%q", opts.Destination)
	}
}

func openRelational(dialect relational.Dialect, opts Options, diag *slog.Logger) (*destination, error) {
	// sql.Open does not connect; an unreachable server surfaces at provisioning
	// or at the first flush.
	db, err := sql.Open(dialect.DriverName(), opts.ConnectionString)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", dialect.Name())
	}
	return &destination{
		writer:      relational.NewWriter(db, dialect, opts.TableName, opts.StoreTimestampInUTC, diag),
		provisioner: relational.NewProvisioner(db, dialect, opts.TableName, diag),
		closer:      db,
	}, nil
}
