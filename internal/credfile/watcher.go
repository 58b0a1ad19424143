package credfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce collapses the create+rename burst of an atomic save into
// a single notification.
const defaultDebounce = 250 * time.Millisecond

// Watcher observes the credential file for out-of-band changes: another
// process of this tool logging in or out while a long-running command holds
// a session. The watch is on the containing directory, not the file, because
// atomic saves replace the inode and a direct file watch goes stale after
// the first save.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the credential file at path.
// A non-positive debounce selects the default.
func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{path: path, debounce: debounce, logger: logger}
}

// Run watches until ctx is canceled, invoking onChange after each debounced
// burst of events touching the credential file. onChange is called from the
// watch goroutine; it should re-resolve the session and return promptly.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("credfile: creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("credfile: watching %s: %w", dir, err)
	}

	w.logger.Debug("watching credential file",
		slog.String("path", w.path),
	)

	name := filepath.Base(w.path)

	var timer *time.Timer

	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(ev.Name) != name {
				continue
			}

			// Chmod alone carries no content change.
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("credential watcher error",
				slog.String("error", watchErr.Error()),
			)

		case <-timerC:
			timer = nil
			timerC = nil

			w.logger.Info("credential file changed externally")
			onChange()
		}
	}
}
