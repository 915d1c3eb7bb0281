package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/detectiq/workbench/internal/logging"
)

// DefaultDebounce batches rapid editor saves into one trigger.
const DefaultDebounce = 500 * time.Millisecond

// Watcher triggers a callback when any of a fixed set of files settles after a
// change. Parent directories are watched instead of the files themselves so
// rename-replace saves are not lost.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	files   map[string]bool
	pending map[string]time.Time

	debounce time.Duration
	onChange func(changed []string)
	log      *logrus.Entry

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New builds a watcher over the given files. A zero debounce gets the
// default; onChange receives the settled paths, sorted.
func New(files []string, debounce time.Duration, onChange func(changed []string)) (*Watcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	set := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolving %s: %w", f, err)
		}
		set[abs] = true
	}

	return &Watcher{
		watcher:  fsw,
		files:    set,
		pending:  map[string]time.Time{},
		debounce: debounce,
		onChange: onChange,
		log:      logging.Component("watch"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs until Stop or
// context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dirs := map[string]bool{}
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.log.WithField("dir", dir).Debug("watching directory")
	}

	go w.run(ctx)
	return nil
}

// Stop halts the event loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.WithError(err).Error("closing watcher")
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Error("watch error")

		case <-ticker.C:
			w.fireSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil || !w.files[abs] {
		return
	}

	w.log.WithFields(logrus.Fields{"file": abs, "op": event.Op.String()}).Debug("change detected")

	w.mu.Lock()
	w.pending[abs] = time.Now()
	w.mu.Unlock()
}

// fireSettled invokes the callback once for all files quiet past the
// debounce window.
func (w *Watcher) fireSettled() {
	now := time.Now()

	w.mu.Lock()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(settled) == 0 {
		return
	}
	sort.Strings(settled)
	w.onChange(settled)
}
