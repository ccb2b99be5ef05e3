package sink

import (
	"regexp"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/V4T54L/logsink/internal/domain"
	"github.com/V4T54L/logsink/internal/usecase"
)

// Destination selects the BatchWriter a sink persists to.
type Destination string

const (
	DestinationPostgres Destination = "postgres"
	DestinationSQLite   Destination = "sqlite"
	DestinationRedis    Destination = "redis"
	DestinationFile     Destination = "file"
	DestinationKafka    Destination = "kafka"
)

// Destinations lists every destination New accepts.
var Destinations = []Destination{
	DestinationPostgres,
	DestinationSQLite,
	DestinationRedis,
	DestinationFile,
	DestinationKafka,
}

const (
	DefaultTableName       = "Logs"
	DefaultBatchSize       = usecase.DefaultBatchSize
	MaxBatchSize           = usecase.MaxBatchSize
	DefaultFlushInterval   = usecase.DefaultFlushInterval
	DefaultShutdownTimeout = 10 * time.Second
)

// Configuration errors returned by Options.Validate and New.
var (
	ErrConnectionRequired  = errors.New("connection string is required")
	ErrBatchSizeOutOfRange = errors.Newf("batch size must be between 1 and %d", MaxBatchSize)
	ErrInvalidTableName    = errors.New("invalid table name")
	ErrUnknownDestination  = errors.New("unknown destination")
	ErrInvalidDuration     = errors.New("duration must be positive")
	ErrInvalidQueueLimit   = errors.New("queue limit must not be negative")
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options configures a Sink. Zero values of optional fields take the
// documented defaults; BatchSize 0 means "unset" and becomes DefaultBatchSize.
type Options struct {
	Destination      Destination
	ConnectionString string
	// TableName is the relational table, the Redis stream key or the Kafka
	// topic. The file destination ignores it.
	TableName           string
	MinimumLevel        Level
	StoreTimestampInUTC bool
	BatchSize           int
	// LevelSwitch, when set, takes precedence over MinimumLevel and may be
	// adjusted while the sink runs.
	LevelSwitch      *LevelSwitch
	FlushInterval    time.Duration
	ShutdownTimeout  time.Duration
	QueueLimit       int
	RedactProperties []string
}

// DefaultOptions returns Options with every default filled in except the
// connection string.
func DefaultOptions() Options {
	return Options{
		Destination:     DestinationPostgres,
		TableName:       DefaultTableName,
		MinimumLevel:    LevelVerbose,
		BatchSize:       DefaultBatchSize,
		FlushInterval:   DefaultFlushInterval,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Destination == "" {
		o.Destination = d.Destination
	}
	if o.TableName == "" {
		o.TableName = d.TableName
	}
	if o.BatchSize == 0 {
		o.BatchSize = d.BatchSize
	}
	if o.FlushInterval == 0 {
		o.FlushInterval = d.FlushInterval
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = d.ShutdownTimeout
	}
	return o
}

// Validate checks o after applying defaults. Every failure wraps one of the
// configuration error sentinels.
func (o Options) Validate() error {
	o = o.withDefaults()

	switch o.Destination {
	case DestinationPostgres, DestinationSQLite, DestinationRedis, DestinationFile, DestinationKafka:
	default:
		return errors.Wrapf(ErrUnknownDestination, "%q", o.Destination)
	}
	if o.ConnectionString == "" {
		return ErrConnectionRequired
	}
	if o.BatchSize < 1 || o.BatchSize > MaxBatchSize {
		return errors.Wrapf(ErrBatchSizeOutOfRange, "got %d", o.BatchSize)
	}
	if !tableNamePattern.MatchString(o.TableName) {
		return errors.Wrapf(ErrInvalidTableName, "%q", o.TableName)
	}
	if o.FlushInterval < 0 {
		return errors.Wrapf(ErrInvalidDuration, "flush interval %s", o.FlushInterval)
	}
	if o.ShutdownTimeout < 0 {
		return errors.Wrapf(ErrInvalidDuration, "shutdown timeout %s", o.ShutdownTimeout)
	}
	if o.QueueLimit < 0 {
		return errors.Wrapf(ErrInvalidQueueLimit, "got %d", o.QueueLimit)
	}
	return nil
}

func (o Options) levelSwitch() *domain.LevelSwitch {
	if o.LevelSwitch != nil {
		return o.LevelSwitch
	}
	return domain.NewLevelSwitch(o.MinimumLevel)
}
