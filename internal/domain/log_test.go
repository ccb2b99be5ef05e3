package domain

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogEvent_Record(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 3, 9, 14, 5, 7, 123_456_789, zone)

	t.Run("Local Timestamp", func(t *testing.T) {
		rec, err := LogEvent{Timestamp: ts, Level: LevelWarning}.Record(false)
		require.NoError(t, err)
		require.Equal(t, "2024-03-09 14:05:07.123+02:00", rec.Timestamp)
		require.Equal(t, "Warning", rec.Level)
	})

	t.Run("UTC Timestamp", func(t *testing.T) {
		rec, err := LogEvent{Timestamp: ts}.Record(true)
		require.NoError(t, err)
		require.Equal(t, "2024-03-09 12:05:07.123+00:00", rec.Timestamp)
	})

	t.Run("Empty Properties Serialize To Empty String", func(t *testing.T) {
		rec, err := LogEvent{Timestamp: ts}.Record(false)
		require.NoError(t, err)
		require.Equal(t, "", rec.Properties)

		rec, err = LogEvent{Timestamp: ts, Properties: map[string]any{}}.Record(false)
		require.NoError(t, err)
		require.Equal(t, "", rec.Properties)
	})

	t.Run("Properties Serialize To JSON Object", func(t *testing.T) {
		rec, err := LogEvent{Properties: map[string]any{"b": 2, "a": "x"}}.Record(false)
		require.NoError(t, err)
		require.JSONEq(t, `{"a":"x","b":2}`, rec.Properties)
	})

	t.Run("Exception Absent Or Present", func(t *testing.T) {
		rec, err := LogEvent{}.Record(false)
		require.NoError(t, err)
		require.Nil(t, rec.Exception)

		rec, err = LogEvent{Exception: "boom"}.Record(false)
		require.NoError(t, err)
		require.NotNil(t, rec.Exception)
		require.Equal(t, "boom", *rec.Exception)
	})

	t.Run("Unserializable Property Fails", func(t *testing.T) {
		_, err := LogEvent{Properties: map[string]any{"ch": make(chan int)}}.Record(false)
		require.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "Verbose", want: LevelVerbose},
		{in: "minimum", want: LevelVerbose},
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInformation},
		{in: " warning ", want: LevelWarning},
		{in: "error", want: LevelError},
		{in: "critical", want: LevelFatal},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLevelFromSlog(t *testing.T) {
	require.Equal(t, LevelVerbose, LevelFromSlog(slog.LevelDebug-4))
	require.Equal(t, LevelDebug, LevelFromSlog(slog.LevelDebug))
	require.Equal(t, LevelInformation, LevelFromSlog(slog.LevelInfo))
	require.Equal(t, LevelWarning, LevelFromSlog(slog.LevelWarn))
	require.Equal(t, LevelError, LevelFromSlog(slog.LevelError))
	require.Equal(t, LevelFatal, LevelFromSlog(slog.LevelError+4))
}

func TestLevelSwitch(t *testing.T) {
	s := NewLevelSwitch(LevelInformation)
	require.False(t, s.Enabled(LevelDebug))
	require.True(t, s.Enabled(LevelInformation))

	s.Set(LevelVerbose)
	require.True(t, s.Enabled(LevelDebug))
	require.Equal(t, LevelVerbose, s.Level())
}

func TestBatch(t *testing.T) {
	events := []LogEvent{{RenderedMessage: "a"}, {RenderedMessage: "b"}}
	b := NewBatch(events)

	require.Equal(t, 2, b.Len())
	require.False(t, b.Empty())

	var got []string
	for i, e := range b.All() {
		require.Equal(t, b.At(i), e)
		got = append(got, e.RenderedMessage)
	}
	require.Equal(t, []string{"a", "b"}, got)
	require.True(t, NewBatch(nil).Empty())
}
