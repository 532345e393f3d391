package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

// Handler receives the path of a file that finished writing
type Handler func(ctx context.Context, path string) error

var acceptedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".json": true,
}

// partial downloads and cloud sync placeholders, never ready to read
var skippedExtensions = map[string]bool{
	".tmp":        true,
	".part":       true,
	".crdownload": true,
	".download":   true,
	".partial":    true,
	".icloud":     true,
	".gdoc":       true,
	".gsheet":     true,
	".gslides":    true,
	".swp":        true,
}

const (
	defaultInterval    = 10 * time.Second
	defaultQuietPeriod = 2 * time.Second
)

type fileState struct {
	size       int64
	modTime    time.Time
	lastChange time.Time
	dispatched bool
}

// Watcher polls a directory and hands off files once they stop
// changing. Cloud sync clients write in bursts, so a file counts as
// ready only after a quiet period with stable size and mtime.
type Watcher struct {
	dir      string
	interval time.Duration
	quiet    time.Duration
	handler  Handler

	states map[string]*fileState

	stopCh chan struct{}
	doneCh chan struct{}
}

// Option customizes the watcher
type Option func(*Watcher)

// WithInterval overrides the polling interval
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithQuietPeriod overrides how long a file must stay unchanged before
// it is handed off. Cloud-synced folders want a longer period.
func WithQuietPeriod(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.quiet = d
		}
	}
}

// New creates a watcher for a directory
func New(dir string, handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		interval: defaultInterval,
		quiet:    defaultQuietPeriod,
		handler:  handler,
		states:   map[string]*fileState{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the polling loop. The initial scan runs before Start
// returns so files already present get tracked immediately.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dir == "" {
		return goerr.New("watch directory is not configured")
	}
	info, err := os.Stat(w.dir)
	if err != nil {
		return goerr.Wrap(err, "failed to stat watch directory", goerr.V("dir", w.dir))
	}
	if !info.IsDir() {
		return goerr.New("watch path is not a directory", goerr.V("dir", w.dir))
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.scan(ctx)

	go w.run(ctx)

	logging.From(ctx).Info("ingestion watcher started",
		"dir", w.dir, "interval", w.interval.String(), "quiet", w.quiet.String())
	return nil
}

// Stop halts the polling loop and waits for it to exit
func (w *Watcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.doneCh
	w.stopCh = nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	logger := logging.From(ctx)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Error("failed to read watch directory", "dir", w.dir, "error", err)
		return
	}

	seen := map[string]bool{}
	now := time.Now()

	for _, entry := range entries {
		if entry.IsDir() || !Eligible(entry.Name()) {
			continue
		}

		path := filepath.Join(w.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to stat file", "path", path, "error", err)
			continue
		}
		seen[path] = true

		state, ok := w.states[path]
		if !ok {
			w.states[path] = &fileState{
				size:       info.Size(),
				modTime:    info.ModTime(),
				lastChange: now,
			}
			continue
		}

		if state.size != info.Size() || !state.modTime.Equal(info.ModTime()) {
			state.size = info.Size()
			state.modTime = info.ModTime()
			state.lastChange = now
			state.dispatched = false
			continue
		}

		if state.dispatched || now.Sub(state.lastChange) < w.quiet {
			continue
		}

		state.dispatched = true
		logger.Info("file ready", "path", path, "size", info.Size())
		if err := w.handler(ctx, path); err != nil {
			logger.Error("failed to handle file", "path", path, "error", err)
		}
	}

	for path := range w.states {
		if !seen[path] {
			delete(w.states, path)
		}
	}
}

// Eligible reports whether a filename is worth watching
func Eligible(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	if skippedExtensions[ext] {
		return false
	}
	return acceptedExtensions[ext]
}
