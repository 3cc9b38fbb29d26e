package schedule

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches the burst of events an editor produces on save
const DefaultDebounce = 500 * time.Millisecond

// LoadEntries reads the current entry list from its sources
type LoadEntries func() ([]Entry, error)

// Watcher reloads a Scheduler when one of its source files changes
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	load     LoadEntries
	target   *Scheduler
	debounce time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches files and feeds reloaded entries into target.
// Parent directories are watched so that files replaced on save are seen.
func NewWatcher(files []string, load LoadEntries, target *Scheduler, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]struct{}),
		load:     load,
		target:   target,
		debounce: DefaultDebounce,
		logger:   logger,
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// setDebounce sets the quiet period before a reload
func (w *Watcher) setDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Run processes file events until ctx is done. It always returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				<-ctx.Done()
				return ctx.Err()
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				<-ctx.Done()
				return ctx.Err()
			}
			w.logger.Warn("schedule watcher error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	if _, ok := w.files[filepath.Clean(event.Name)]; !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	entries, err := w.load()
	if err == nil {
		err = w.target.Replace(entries)
	}
	if err != nil {
		// keep running with the previous entries
		w.logger.Warn("schedule reload failed", "err", err)
	}
}
