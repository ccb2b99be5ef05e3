package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/logsink/internal/domain"
	"github.com/V4T54L/logsink/pkg/sink"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logsink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "postgres", cfg.Sink.Destination)
	require.Equal(t, "Logs", cfg.Sink.TableName)
	require.Equal(t, 100, cfg.Sink.BatchSize)
	require.Equal(t, Duration(10*time.Second), cfg.Sink.FlushInterval)
	require.Equal(t, ":8080", cfg.Ingest.Addr)
}

func TestLoad_Precedence(t *testing.T) {
	t.Setenv("TEST_DSN", "postgres://db/logs")
	path := writeFile(t, `
log_level: debug
sink:
  destination: postgres
  connection_string: ${TEST_DSN}
  batch_size: 50
  flush_interval: 2s
  minimum_level: warning
  redact_properties: [password]
ingest:
  addr: ":7000"
`)

	t.Run("File Over Defaults", func(t *testing.T) {
		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, "debug", cfg.LogLevel)
		require.Equal(t, "postgres://db/logs", cfg.Sink.ConnectionString)
		require.Equal(t, 50, cfg.Sink.BatchSize)
		require.Equal(t, Duration(2*time.Second), cfg.Sink.FlushInterval)
		require.Equal(t, []string{"password"}, cfg.Sink.RedactProperties)
		require.Equal(t, "Logs", cfg.Sink.TableName, "unset keys keep their defaults")
		require.Equal(t, ":7000", cfg.Ingest.Addr)
	})

	t.Run("Environment Over File", func(t *testing.T) {
		t.Setenv("LOGSINK_SINK_BATCH_SIZE", "7")
		t.Setenv("LOGSINK_SINK_FLUSH_INTERVAL", "250ms")
		t.Setenv("LOGSINK_SINK_REDACT_PROPERTIES", "ssn,email")

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 7, cfg.Sink.BatchSize)
		require.Equal(t, Duration(250*time.Millisecond), cfg.Sink.FlushInterval)
		require.Equal(t, []string{"ssn", "email"}, cfg.Sink.RedactProperties)
		require.Equal(t, "debug", cfg.LogLevel, "unset variables keep file values")
	})

	t.Run("Flags Over Environment", func(t *testing.T) {
		t.Setenv("LOGSINK_SINK_BATCH_SIZE", "7")
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		RegisterFlags(fs)
		require.NoError(t, fs.Parse([]string{"--batch-size=3", "--table=AuditLogs"}))

		cfg, err := Load(path)
		require.NoError(t, err)
		require.NoError(t, cfg.ApplyFlags(fs))
		require.Equal(t, 3, cfg.Sink.BatchSize)
		require.Equal(t, "AuditLogs", cfg.Sink.TableName)
		require.Equal(t, Duration(2*time.Second), cfg.Sink.FlushInterval, "unset flags do not override")
	})
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "sink:\n  flush_interval: soon\n"))
	require.ErrorContains(t, err, "invalid duration")
}

func TestConfig_SinkOptions(t *testing.T) {
	cfg := Default()
	cfg.Sink.ConnectionString = "file.db"
	cfg.Sink.Destination = "SQLite"
	cfg.Sink.MinimumLevel = "warn"

	opts, err := cfg.SinkOptions()
	require.NoError(t, err)
	require.Equal(t, sink.DestinationSQLite, opts.Destination)
	require.Equal(t, domain.LevelWarning, opts.MinimumLevel)
	require.Equal(t, 10*time.Second, opts.FlushInterval)

	cfg.Sink.BatchSize = 5000
	_, err = cfg.SinkOptions()
	require.ErrorIs(t, err, sink.ErrBatchSizeOutOfRange)

	cfg.Sink.BatchSize = 10
	cfg.Sink.MinimumLevel = "loud"
	_, err = cfg.SinkOptions()
	require.Error(t, err)

	cfg.Sink.MinimumLevel = "info"
	cfg.Sink.ConnectionString = ""
	_, err = cfg.SinkOptions()
	require.ErrorIs(t, err, sink.ErrConnectionRequired)
}

func TestReadMinimumLevel(t *testing.T) {
	level, err := ReadMinimumLevel(writeFile(t, "sink:\n  minimum_level: error\n"))
	require.NoError(t, err)
	require.Equal(t, domain.LevelError, level)
}

func TestRegisterFlags_DestinationHelpListsEveryDestination(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)

	usage := fs.Lookup(FlagDestination).Usage
	for _, d := range sink.Destinations {
		require.Contains(t, usage, string(d))
	}
	require.Contains(t, usage, "kafka")
}
