package domain

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// Level is the severity of a LogEvent.
type Level int32

const (
	LevelVerbose Level = iota
	LevelDebug
	LevelInformation
	LevelWarning
	LevelError
	LevelFatal
)

var levelNames = [...]string{
	LevelVerbose:     "Verbose",
	LevelDebug:       "Debug",
	LevelInformation: "Information",
	LevelWarning:     "Warning",
	LevelError:       "Error",
	LevelFatal:       "Fatal",
}

func (l Level) String() string {
	if l < LevelVerbose || l > LevelFatal {
		return "Unknown"
	}
	return levelNames[l]
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses a level name. Matching is case-insensitive and accepts
// the usual short aliases.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "trace", "minimum":
		return LevelVerbose, nil
	case "debug":
		return LevelDebug, nil
	case "information", "info":
		return LevelInformation, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error", "err":
		return LevelError, nil
	case "fatal", "critical":
		return LevelFatal, nil
	}
	return LevelVerbose, errors.Newf("unknown log level %q", s)
}

// LevelFromSlog maps a slog level onto the sink's levels.
func LevelFromSlog(l slog.Level) Level {
	switch {
	case l < slog.LevelDebug:
		return LevelVerbose
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInformation
	case l < slog.LevelError:
		return LevelWarning
	case l < slog.LevelError+4:
		return LevelError
	default:
		return LevelFatal
	}
}

// LevelSwitch holds a minimum level that can be changed while the sink runs.
type LevelSwitch struct {
	level atomic.Int32
}

// NewLevelSwitch creates a switch set to the given level.
func NewLevelSwitch(l Level) *LevelSwitch {
	s := &LevelSwitch{}
	s.level.Store(int32(l))
	return s
}

// Level returns the current minimum level.
func (s *LevelSwitch) Level() Level {
	return Level(s.level.Load())
}

// Set changes the minimum level.
func (s *LevelSwitch) Set(l Level) {
	s.level.Store(int32(l))
}

// Enabled reports whether events at l pass the switch.
func (s *LevelSwitch) Enabled(l Level) bool {
	return l >= s.Level()
}
