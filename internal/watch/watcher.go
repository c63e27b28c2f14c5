// Package watch re-imports library documents when their files change on
// disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 500 * time.Millisecond

// Reloader is the part of services.Library the watcher drives.
type Reloader interface {
	Paths() []string
	Reload(ctx context.Context) (int, error)
}

// Event reports one debounced reload.
type Event struct {
	// Changed lists the library files that triggered the reload.
	Changed []string
	// Chunks is the number of chunks stored by the reload.
	Chunks int
	Err    error
	Time   time.Time
}

// Watcher watches the directories of library documents. Editors often
// replace files by rename, so directories are watched rather than files.
type Watcher struct {
	reloader Reloader
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
	events   chan Event
	stop     chan struct{}
	once     sync.Once

	mu   sync.Mutex
	dirs map[string]struct{}
}

// New creates a watcher. Call Start to begin processing events.
func New(r Reloader, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if r == nil {
		return nil, errors.New("reloader is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		reloader: r,
		watcher:  fw,
		debounce: debounce,
		logger:   logger,
		events:   make(chan Event, 10),
		stop:     make(chan struct{}),
		dirs:     make(map[string]struct{}),
	}, nil
}

// Add starts watching the directory of path. Adding a directory twice is a
// no-op.
func (w *Watcher) Add(path string) error {
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; ok {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.dirs[dir] = struct{}{}
	w.logger.Debug("watching directory", zap.String("dir", dir))
	return nil
}

// Start watches the directories of every current library path and begins
// processing events in the background.
func (w *Watcher) Start(ctx context.Context) error {
	for _, p := range w.reloader.Paths() {
		if err := w.Add(p); err != nil {
			return err
		}
	}
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}

// Events returns the channel of completed reloads. Events are dropped when
// nobody reads them.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) run(ctx context.Context) {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			w.reload(ctx, changed)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watcher error", zap.Error(err))
		}
	}
}

// relevant reports whether event touches a library document.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Clean(event.Name)
	for _, p := range w.reloader.Paths() {
		if p == name {
			return true
		}
	}
	return false
}

func (w *Watcher) reload(ctx context.Context, changed []string) {
	w.logger.Info("documents changed, reloading", zap.Strings("paths", changed))
	n, err := w.reloader.Reload(ctx)
	if err != nil {
		w.logger.Warn("reload failed", zap.Error(err))
	}

	select {
	case w.events <- Event{Changed: changed, Chunks: n, Err: err, Time: time.Now()}:
	default:
	}
}
