package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/V4T54L/logsink/internal/domain"
	"github.com/V4T54L/logsink/pkg/sink"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LOGSINK_"

// Config holds all application configuration.
//
// Sources are applied in order, each overriding the previous one: defaults,
// the YAML file, environment variables (a .env file is loaded first), then
// command line flags that were set explicitly.
type Config struct {
	LogLevel string       `yaml:"log_level" env:"LOG_LEVEL"`
	Sink     SinkConfig   `yaml:"sink" envPrefix:"SINK_"`
	Ingest   IngestConfig `yaml:"ingest" envPrefix:"INGEST_"`
}

// SinkConfig mirrors sink.Options in a serializable form.
type SinkConfig struct {
	Destination         string   `yaml:"destination" env:"DESTINATION"`
	ConnectionString    string   `yaml:"connection_string" env:"CONNECTION_STRING"`
	TableName           string   `yaml:"table_name" env:"TABLE_NAME"`
	MinimumLevel        string   `yaml:"minimum_level" env:"MINIMUM_LEVEL"`
	StoreTimestampInUTC bool     `yaml:"store_timestamp_in_utc" env:"STORE_TIMESTAMP_IN_UTC"`
	BatchSize           int      `yaml:"batch_size" env:"BATCH_SIZE"`
	FlushInterval       Duration `yaml:"flush_interval" env:"FLUSH_INTERVAL"`
	ShutdownTimeout     Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	QueueLimit          int      `yaml:"queue_limit" env:"QUEUE_LIMIT"`
	RedactProperties    []string `yaml:"redact_properties" env:"REDACT_PROPERTIES" envSeparator:","`
}

// IngestConfig configures the HTTP ingest front-end of the daemon.
type IngestConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	MetricsAddr  string `yaml:"metrics_addr" env:"METRICS_ADDR"`
	APIKey       string `yaml:"api_key" env:"API_KEY"`
	MaxEventSize int64  `yaml:"max_event_size_bytes" env:"MAX_EVENT_SIZE_BYTES"`
}

// Duration is a time.Duration that reads as "10s" from YAML and environment.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	opts := sink.DefaultOptions()
	return &Config{
		LogLevel: "info",
		Sink: SinkConfig{
			Destination:     string(opts.Destination),
			TableName:       opts.TableName,
			MinimumLevel:    opts.MinimumLevel.String(),
			BatchSize:       opts.BatchSize,
			FlushInterval:   Duration(opts.FlushInterval),
			ShutdownTimeout: Duration(opts.ShutdownTimeout),
		},
		Ingest: IngestConfig{
			Addr:         ":8080",
			MetricsAddr:  ":9091",
			MaxEventSize: 1 << 20,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

// ReadMinimumLevel returns the sink minimum level currently in the YAML file
// at path. It is used to follow edits to the file at runtime.
func ReadMinimumLevel(path string) (domain.Level, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return 0, err
	}
	return domain.ParseLevel(cfg.Sink.MinimumLevel)
}

// SinkOptions converts the sink section to sink.Options.
func (c *Config) SinkOptions() (sink.Options, error) {
	level, err := domain.ParseLevel(c.Sink.MinimumLevel)
	if err != nil {
		return sink.Options{}, errors.Wrap(err, "invalid sink minimum level")
	}
	opts := sink.Options{
		Destination:         sink.Destination(strings.ToLower(c.Sink.Destination)),
		ConnectionString:    c.Sink.ConnectionString,
		TableName:           c.Sink.TableName,
		MinimumLevel:        level,
		StoreTimestampInUTC: c.Sink.StoreTimestampInUTC,
		BatchSize:           c.Sink.BatchSize,
		FlushInterval:       time.Duration(c.Sink.FlushInterval),
		ShutdownTimeout:     time.Duration(c.Sink.ShutdownTimeout),
		QueueLimit:          c.Sink.QueueLimit,
		RedactProperties:    c.Sink.RedactProperties,
	}
	if err := opts.Validate(); err != nil {
		return sink.Options{}, err
	}
	return opts, nil
}

// Flag names registered by RegisterFlags.
const (
	FlagLogLevel         = "log-level"
	FlagDestination      = "destination"
	FlagConnectionString = "connection-string"
	FlagTable            = "table"
	FlagBatchSize        = "batch-size"
	FlagFlushInterval    = "flush-interval"
	FlagMinimumLevel     = "minimum-level"
	FlagAddr             = "addr"
	FlagMetricsAddr      = "metrics-addr"
)

// RegisterFlags defines the overridable settings on fs. Defaults shown in
// help output are the built-in ones; only flags set explicitly are applied.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagLogLevel, d.LogLevel, "application log level (debug, info, warn, error)")
	fs.String(FlagDestination, d.Sink.Destination, "sink destination ("+destinationNames()+")")
	fs.String(FlagConnectionString, "", "destination connection string, file path or directory")
	fs.String(FlagTable, d.Sink.TableName, "table name, or stream key for redis")
	fs.Int(FlagBatchSize, d.Sink.BatchSize, "events per batch (1-1000)")
	fs.Duration(FlagFlushInterval, time.Duration(d.Sink.FlushInterval), "maximum time an event waits before being flushed")
	fs.String(FlagMinimumLevel, d.Sink.MinimumLevel, "minimum event level persisted")
	fs.String(FlagAddr, d.Ingest.Addr, "ingest server listen address")
	fs.String(FlagMetricsAddr, d.Ingest.MetricsAddr, "metrics server listen address")
}

// ApplyFlags overrides c with every flag in fs that was set on the command line.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagLogLevel:
			c.LogLevel, err = fs.GetString(f.Name)
		case FlagDestination:
			c.Sink.Destination, err = fs.GetString(f.Name)
		case FlagConnectionString:
			c.Sink.ConnectionString, err = fs.GetString(f.Name)
		case FlagTable:
			c.Sink.TableName, err = fs.GetString(f.Name)
		case FlagBatchSize:
			c.Sink.BatchSize, err = fs.GetInt(f.Name)
		case FlagFlushInterval:
			var v time.Duration
			v, err = fs.GetDuration(f.Name)
			c.Sink.FlushInterval = Duration(v)
		case FlagMinimumLevel:
			c.Sink.MinimumLevel, err = fs.GetString(f.Name)
		case FlagAddr:
			c.Ingest.Addr, err = fs.GetString(f.Name)
		case FlagMetricsAddr:
			c.Ingest.MetricsAddr, err = fs.GetString(f.Name)
		}
	})
	return errors.Wrap(err, "invalid flag value")
}

func destinationNames() string {
	names := make([]string, len(sink.Destinations))
	for i, d := range sink.Destinations {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}
