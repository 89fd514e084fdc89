// Package watcher provides file system watching for the job table and the
// reports directory, calling back once a burst of changes has settled.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce groups editor save bursts into one callback.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors a file or a directory and calls onChange after writes,
// creations, removals or renames settle. A file target is watched through its
// parent directory since editors often replace files rather than write them.
type Watcher struct {
	watcher    *fsnotify.Watcher
	ctx        context.Context
	cancel     context.CancelFunc
	onChange   func()
	timer      *time.Timer
	targetPath string
	watchPath  string
	exts       []string
	debounce   time.Duration
	mu         sync.Mutex
	running    bool
	dir        bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions limits directory events to files with these extensions.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		for _, e := range exts {
			w.exts = append(w.exts, strings.ToLower(e))
		}
	}
}

// New creates a Watcher for targetPath. A directory target reacts to any
// file inside it; a file target reacts only to that file.
func New(targetPath string, onChange func(), opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	target := filepath.Clean(targetPath)
	w := &Watcher{
		targetPath: target,
		watchPath:  filepath.Dir(target),
		onChange:   onChange,
		watcher:    fsw,
		ctx:        ctx,
		cancel:     cancel,
		debounce:   DefaultDebounce,
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		w.dir = true
		w.watchPath = target
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Start begins watching. A missing watch path is logged and retried when an
// event arrives for its parent.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.watchPath); err != nil {
		log.Warn().Err(err).Str("path", w.watchPath).Msg("Failed to add initial watch")
	}

	go w.watchLoop()
	return nil
}

// Stop stops the watcher and drops any pending callback.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
	}
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("File change detected")
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	if !w.dir {
		return name == w.targetPath
	}
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.exts {
		if ext == e {
			return true
		}
	}
	return false
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	if w.ctx.Err() != nil {
		return
	}
	log.Info().Str("path", w.targetPath).Msg("Change settled, triggering callback")
	if w.onChange != nil {
		w.onChange()
	}
}
