// Package levelwatch follows a configuration file and applies changes of the
// minimum level to a running sink's level switch.
package levelwatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/V4T54L/logsink/internal/domain"
)

const DefaultDebounce = 250 * time.Millisecond

// ReadFunc extracts the minimum level from the file at path.
type ReadFunc func(path string) (domain.Level, error)

// Watcher reloads the level from a file whenever it changes.
type Watcher struct {
	path     string
	levels   *domain.LevelSwitch
	read     ReadFunc
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a watcher for path. Bursts of file events within debounce are
// folded into a single reload.
func New(path string, levels *domain.LevelSwitch, read ReadFunc, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		levels:   levels,
		read:     read,
		debounce: debounce,
		logger:   logger.With("component", "level_watcher", "path", path),
	}
}

// Run watches until ctx is cancelled. The parent directory is watched rather
// than the file so that editors replacing the file by rename are followed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", w.path)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	level, err := w.read(w.path)
	if err != nil {
		w.logger.Warn("failed to reload minimum level, keeping current", "error", err, "level", w.levels.Level().String())
		return
	}
	if prev := w.levels.Level(); prev != level {
		w.levels.Set(level)
		w.logger.Info("minimum level changed", "from", prev.String(), "to", level.String())
	}
}
