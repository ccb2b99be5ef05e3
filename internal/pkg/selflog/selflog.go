// Package selflog provides the sink's self-diagnostic channel: an internal
// reporting path for sink-level failures, kept apart from the application's
// own log stream so that a failing sink never feeds back into itself.
package selflog

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultLevel keeps per-batch debug chatter off stderr unless asked for.
const DefaultLevel = slog.LevelWarn

// New returns a diagnostic logger writing JSON lines at or above level to w.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})).
		With("channel", "selflog")
}

// Default writes warnings and errors to stderr.
func Default() *slog.Logger {
	return New(os.Stderr, DefaultLevel)
}

// Discard drops every diagnostic.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Limited reports repetitive conditions (such as dropped events) at most
// once per interval, folding the suppressed occurrences into the next report.
type Limited struct {
	logger  *slog.Logger
	limiter *rate.Limiter

	mu         sync.Mutex
	suppressed int
}

// NewLimited wraps logger so that Report emits at most once per interval.
func NewLimited(logger *slog.Logger, interval time.Duration) *Limited {
	return &Limited{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Report logs msg at warn level unless the limiter is exhausted.
func (l *Limited) Report(msg string, args ...any) {
	l.mu.Lock()
	if !l.limiter.Allow() {
		l.suppressed++
		l.mu.Unlock()
		return
	}
	suppressed := l.suppressed
	l.suppressed = 0
	l.mu.Unlock()

	if suppressed > 0 {
		args = append(args, "suppressed", suppressed)
	}
	l.logger.Warn(msg, args...)
}
