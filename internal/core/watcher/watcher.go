// Package watcher turns PDFs dropped into a directory into conversions.
// Every drop is a new file selection: it replaces the live session, which
// cancels whatever the previous drop was still polling for. Drops run one at
// a time; a newer drop cancels the one in flight and starts once it unwound.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/neilberkman/pagecast/internal/core/controller"
	"github.com/neilberkman/pagecast/internal/core/models"
	"github.com/rs/zerolog"
)

// Handler is the part of the controller the watcher drives
type Handler interface {
	SelectFile(ctx context.Context, path string) error
	Convert(ctx context.Context, page int) (models.Artifact, error)
	Download(ctx context.Context, kind models.ArtifactKind, dir string) (string, error)
}

// Options for New
type Options struct {
	Page        int           // Page converted for every drop, default 1
	DownloadDir string        // Empty leaves audio on the server
	Settle      time.Duration // Quiet period before a written file is picked up
	Logger      *zerolog.Logger
}

// Stats tracks watcher activity
type Stats struct {
	StartTime  time.Time
	Files      int
	Converted  int
	Superseded int
	Errors     int
	LastFile   time.Time
}

// Watcher watches one directory
type Watcher struct {
	handler Handler
	fs      *fsnotify.Watcher
	dir     string
	opts    Options
	log     zerolog.Logger

	mu      sync.Mutex
	stats   Stats
	pending map[string]*time.Timer
	ready   chan string
	quit    chan struct{}
	wg      sync.WaitGroup
}

// errNewerDrop cancels a drop that a later file replaced
var errNewerDrop = errors.New("replaced by a newer drop")

// New creates a watcher for dir
func New(dir string, h Handler, opts Options) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch path does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path is not a directory: %s", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Settle <= 0 {
		opts.Settle = 200 * time.Millisecond
	}
	w := &Watcher{
		handler: h,
		fs:      fsw,
		dir:     dir,
		opts:    opts,
		log:     zerolog.Nop(),
		pending: make(map[string]*time.Timer),
		ready:   make(chan string, 16),
		quit:    make(chan struct{}),
		stats:   Stats{StartTime: time.Now()},
	}
	if opts.Logger != nil {
		w.log = *opts.Logger
	}
	return w, nil
}

// Start blocks until ctx is done, handling drops as they settle
func (w *Watcher) Start(ctx context.Context) error {
	w.log.Info().Str("dir", w.dir).Int("page", w.opts.Page).Msg("watching for PDFs")
	defer w.wg.Wait()
	defer func() { _ = w.fs.Close() }()
	defer close(w.quit)

	var (
		cancelPrev context.CancelCauseFunc
		prevDone   chan struct{}
	)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("watcher shutting down")
			w.stopTimers()
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			if shouldProcessEvent(event) {
				w.log.Debug().Stringer("op", event.Op).Str("file", event.Name).Msg("file event")
				w.schedule(event.Name)
			}

		case path := <-w.ready:
			if cancelPrev != nil {
				cancelPrev(errNewerDrop)
			}
			dropCtx, cancel := context.WithCancelCause(ctx)
			wait, done := prevDone, make(chan struct{})
			cancelPrev, prevDone = cancel, done

			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				defer close(done)
				defer cancel(nil)
				if wait != nil {
					<-wait
				}
				w.handleDrop(dropCtx, path)
			}()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			w.log.Error().Err(err).Msg("watcher error")
			w.count(func(s *Stats) { s.Errors++ })
		}
	}
}

// Stats returns a copy of the counters
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) count(fn func(s *Stats)) {
	w.mu.Lock()
	fn(&w.stats)
	w.mu.Unlock()
}

// shouldProcessEvent keeps creates and writes of PDF files
func shouldProcessEvent(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create
}

// schedule waits for a file to stop changing before handing it on
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.opts.Settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.opts.Settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.deliver(path)
	})
}

// deliver hands a settled file to Start, or drops it once Start has returned
func (w *Watcher) deliver(path string) {
	select {
	case w.ready <- path:
	case <-w.quit:
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) handleDrop(ctx context.Context, path string) {
	log := w.log.With().Str("file", filepath.Base(path)).Logger()
	w.count(func(s *Stats) {
		s.Files++
		s.LastFile = time.Now()
	})

	err := w.process(ctx, path)
	switch {
	case err == nil:
		w.count(func(s *Stats) { s.Converted++ })
		log.Info().Msg("✓ converted")
	case errors.Is(err, controller.ErrSuperseded), errors.Is(context.Cause(ctx), errNewerDrop):
		w.count(func(s *Stats) { s.Superseded++ })
		log.Info().Msg("superseded by a newer file")
	case errors.Is(err, context.Canceled):
	default:
		w.count(func(s *Stats) { s.Errors++ })
		log.Error().Err(err).Msg("drop failed")
	}
}

func (w *Watcher) process(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.handler.SelectFile(ctx, path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := w.handler.Convert(ctx, w.opts.Page); err != nil {
		return err
	}
	if w.opts.DownloadDir == "" {
		return nil
	}
	saved, err := w.handler.Download(ctx, models.PageAudio, w.opts.DownloadDir)
	if err != nil {
		return err
	}
	w.log.Info().Str("path", saved).Msg("saved audio")
	return nil
}
