package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/edumentor/edumentor-go/internal/api"
)

// PlaybackSample is one line of the playback spool, appended by an external
// media player.
type PlaybackSample struct {
	CourseID        string   `json:"course_id"`
	PositionSeconds float64  `json:"position_seconds"`
	DurationSeconds float64  `json:"duration_seconds"`
	At              api.Time `json:"at"`
}

// Percent converts the sample's position into a completion percentage.
func (p PlaybackSample) Percent() float64 {
	if p.DurationSeconds <= 0 {
		return 0
	}

	return clamp(p.PositionSeconds / p.DurationSeconds * 100)
}

// Sink receives computed percentages. Synchronizer.PlaybackEvent satisfies
// it.
type Sink func(courseID string, percent float64)

// Tailer follows the playback spool, a JSON-lines file the media player
// appends samples to, and forwards completion percentages to a sink. It
// attaches at the current end of the file: history is the server's business,
// only playback observed during this run is reported.
type Tailer struct {
	path   string
	sink   Sink
	logger *slog.Logger

	offset int64  // next read position in the spool
	buf    []byte // partial line carried between reads
}

// NewTailer creates a Tailer for the given spool path.
func NewTailer(path string, sink Sink, logger *slog.Logger) *Tailer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tailer{
		path:   path,
		sink:   sink,
		logger: logger,
	}
}

// Run tails the spool until the context is canceled. The spool's directory
// is watched rather than the file: the spool may not exist yet, and players
// that rotate it replace the inode.
func (t *Tailer) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("progress: creating spool watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(t.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("progress: watching spool directory %s: %w", dir, err)
	}

	if err := t.attach(); err != nil {
		return err
	}

	t.logger.Info("tailing playback spool",
		slog.String("path", t.path),
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(event.Name) != filepath.Base(t.path) {
				continue
			}

			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rotated away; a recreate starts clean.
				t.offset = 0
				t.buf = t.buf[:0]
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if err := t.drain(); err != nil {
					t.logger.Warn("reading playback spool",
						slog.String("error", err.Error()),
					)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			t.logger.Warn("spool watcher error",
				slog.String("error", err.Error()),
			)
		}
	}
}

// attach records the current end of the spool so that only samples appended
// after startup are forwarded.
func (t *Tailer) attach() error {
	info, err := os.Stat(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.offset = 0

			return nil
		}

		return fmt.Errorf("progress: inspecting spool: %w", err)
	}

	t.offset = info.Size()

	return nil
}

// drain reads everything appended since the last read and forwards the
// complete lines. A trailing partial line stays buffered until its newline
// arrives.
func (t *Tailer) drain() error {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if info.Size() < t.offset {
		t.logger.Info("playback spool truncated, restarting from the top")
		t.offset = 0
		t.buf = t.buf[:0]
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	t.offset += int64(len(data))
	t.buf = append(t.buf, data...)

	for {
		idx := bytes.IndexByte(t.buf, '\n')
		if idx < 0 {
			return nil
		}

		line := t.buf[:idx]
		t.buf = t.buf[idx+1:]
		t.handleLine(line)
	}
}

// handleLine parses one spool line and forwards it. Malformed lines are
// skipped; one bad write from the player must not stop the tail.
func (t *Tailer) handleLine(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	var sample PlaybackSample
	if err := json.Unmarshal(line, &sample); err != nil {
		t.logger.Warn("skipping malformed spool line",
			slog.String("error", err.Error()),
		)

		return
	}

	if sample.CourseID == "" || sample.DurationSeconds <= 0 {
		t.logger.Warn("skipping spool sample without course or duration")

		return
	}

	t.logger.Debug("playback sample",
		slog.String("course_id", sample.CourseID),
		slog.Float64("position", sample.PositionSeconds),
		slog.Float64("duration", sample.DurationSeconds),
	)

	t.sink(sample.CourseID, sample.Percent())
}
