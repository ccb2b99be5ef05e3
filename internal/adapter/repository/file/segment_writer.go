package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/V4T54L/logsink/internal/domain"
)

const (
	segmentPrefix = "segment-"
	segmentSuffix = ".ndjson"
	filePerm      = 0644

	DefaultMaxSegmentSize int64 = 64 << 20
	DefaultMaxTotalSize   int64 = 1 << 30
)

// ErrCapacityExceeded is returned when a batch would push the directory past
// its configured total size.
var ErrCapacityExceeded = errors.New("segment directory capacity exceeded")

// SegmentWriter implements domain.BatchWriter by appending records as JSON
// lines to size-bounded segment files in a directory.
type SegmentWriter struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	storeUTC       bool
	diag           *slog.Logger

	mu          sync.Mutex
	current     *os.File
	currentSize int64
	totalSize   int64
}

// NewSegmentWriter opens (or creates) dir and resumes appending to its newest segment.
func NewSegmentWriter(dir string, maxSegmentSize, maxTotalSize int64, storeUTC bool, diag *slog.Logger) (*SegmentWriter, error) {
	if maxSegmentSize <= 0 {
		maxSegmentSize = DefaultMaxSegmentSize
	}
	if maxTotalSize <= 0 {
		maxTotalSize = DefaultMaxTotalSize
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create segment directory %s", dir)
	}

	w := &SegmentWriter{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		storeUTC:       storeUTC,
		diag:           diag.With("component", "file_writer", "dir", dir),
	}

	total, err := w.calculateTotalSize()
	if err != nil {
		return nil, err
	}
	w.totalSize = total

	if err := w.openLatestSegment(); err != nil {
		return nil, err
	}
	return w, nil
}

// WriteBatch appends the whole batch with a single write followed by fsync.
// A partially written batch is truncated away so the segment never holds a
// torn batch.
func (w *SegmentWriter) WriteBatch(ctx context.Context, batch domain.Batch) bool {
	if batch.Empty() {
		return true
	}
	if err := w.writeBatch(ctx, batch); err != nil {
		w.diag.Error("failed to write log batch", "error", err, "count", batch.Len())
		return false
	}
	return true
}

func (w *SegmentWriter) writeBatch(ctx context.Context, batch domain.Batch) error {
	var buf []byte
	for i, event := range batch.All() {
		rec, err := event.Record(w.storeUTC)
		if err != nil {
			return errors.Wrapf(err, "row %d", i)
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal row %d", i)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	size := int64(len(buf))
	if w.totalSize+size > w.maxTotalSize {
		return errors.Wrapf(ErrCapacityExceeded, "%d + %d > %d", w.totalSize, size, w.maxTotalSize)
	}

	if w.current == nil || (w.currentSize > 0 && w.currentSize+size > w.maxSegmentSize) {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	if _, err := w.current.Write(buf); err != nil {
		w.rewind()
		return errors.Wrap(err, "failed to write segment")
	}
	if err := w.current.Sync(); err != nil {
		w.rewind()
		return errors.Wrap(err, "failed to sync segment")
	}

	w.currentSize += size
	w.totalSize += size
	return nil
}

// Scan reads every record across all segments, oldest first. Lines that do
// not decode are reported and skipped.
func (w *SegmentWriter) Scan(ctx context.Context, fn func(domain.Record) error) error {
	w.mu.Lock()
	segments, err := w.sortedSegments()
	w.mu.Unlock()
	if err != nil {
		return err
	}

	for _, path := range segments {
		if err := w.scanSegment(ctx, path, fn); err != nil {
			return err
		}
	}
	return nil
}

func (w *SegmentWriter) scanSegment(ctx context.Context, path string, fn func(domain.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open segment %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), int(w.maxSegmentSize)+1)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rec domain.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			w.diag.Warn("failed to decode record, skipping", "segment", path, "error", err)
			continue
		}
		if err := fn(rec); err != nil {
			return errors.Wrap(err, "scan handler failed")
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "error scanning segment %s", path)
	}
	return nil
}

// Close syncs and closes the active segment.
func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil
	}
	err := w.current.Close()
	w.current = nil
	return err
}

// rewind drops whatever a failed write left past currentSize and moves the
// file offset back to it. If that fails the segment is closed so the next
// write starts a fresh one.
func (w *SegmentWriter) rewind() {
	err := w.current.Truncate(w.currentSize)
	if err == nil {
		_, err = w.current.Seek(w.currentSize, io.SeekStart)
	}
	if err == nil {
		return
	}

	w.diag.Error("failed to rewind segment after failed write, rotating", "error", err)
	if cerr := w.current.Close(); cerr != nil {
		w.diag.Error("failed to close segment", "error", cerr)
	}
	w.current = nil
}

func (w *SegmentWriter) rotate() error {
	if w.current != nil {
		if err := w.current.Close(); err != nil {
			w.diag.Error("failed to close segment before rotating", "error", err)
		}
		w.current = nil
	}

	name := fmt.Sprintf("%s%020d%s", segmentPrefix, time.Now().UnixNano(), segmentSuffix)
	path := filepath.Join(w.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, filePerm)
	if err != nil {
		return errors.Wrapf(err, "failed to create segment %s", path)
	}
	w.current = f
	w.currentSize = 0
	w.diag.Debug("rotated to new segment", "path", path)
	return nil
}

func (w *SegmentWriter) openLatestSegment() error {
	segments, err := w.sortedSegments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return w.rotate()
	}

	latest := segments[len(segments)-1]
	stat, err := os.Stat(latest)
	if err != nil {
		return errors.Wrapf(err, "failed to stat segment %s", latest)
	}
	if stat.Size() >= w.maxSegmentSize {
		return w.rotate()
	}

	// O_APPEND is avoided; rewind repositions the offset itself after a
	// truncate.
	f, err := os.OpenFile(latest, os.O_WRONLY, filePerm)
	if err != nil {
		return errors.Wrapf(err, "failed to open segment %s", latest)
	}
	if _, err := f.Seek(stat.Size(), io.SeekStart); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to seek segment %s", latest)
	}
	w.current = f
	w.currentSize = stat.Size()
	return nil
}

func (w *SegmentWriter) sortedSegments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read segment directory")
	}

	var segments []string
	for _, entry := range entries {
		if isSegment(entry) {
			segments = append(segments, filepath.Join(w.dir, entry.Name()))
		}
	}
	sort.Strings(segments)
	return segments, nil
}

func (w *SegmentWriter) calculateTotalSize() (int64, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read segment directory")
	}
	var total int64
	for _, entry := range entries {
		if !isSegment(entry) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

func isSegment(entry os.DirEntry) bool {
	return !entry.IsDir() && strings.HasPrefix(entry.Name(), segmentPrefix) && strings.HasSuffix(entry.Name(), segmentSuffix)
}
