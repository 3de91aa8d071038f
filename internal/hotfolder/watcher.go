// Package hotfolder queues files dropped into a watched directory.
package hotfolder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"stockmeta/internal/batch"
	"stockmeta/internal/logging"
	"stockmeta/internal/queue"
)

const defaultDebounce = 500 * time.Millisecond

// Ingester accepts file paths for queueing.
type Ingester interface {
	AddPaths(paths ...string) ([]queue.Item, error)
}

// Watcher debounces create and write events in one directory and hands
// settled paths to an Ingester. A path is settled once its size and
// modification time are unchanged across two consecutive flushes. Each path is
// ingested at most once until it is removed or renamed away; paths refused
// because a batch is running are retried on the next flush.
type Watcher struct {
	dir      string
	debounce time.Duration
	ingest   Ingester
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]fileStamp
	seen    map[string]struct{}
}

// fileStamp is the last observed size and modification time of a path. The
// zero stamp means the path has not been observed yet.
type fileStamp struct {
	size    int64
	modTime time.Time
}

func stampOf(info os.FileInfo) fileStamp {
	return fileStamp{size: info.Size(), modTime: info.ModTime()}
}

// New validates dir and returns a watcher. A non-positive debounce uses 500ms.
func New(dir string, debounce time.Duration, ingest Ingester, logger *slog.Logger) (*Watcher, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("hot folder directory is required")
	}
	if ingest == nil {
		return nil, errors.New("hot folder requires an ingester")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve hot folder: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat hot folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("hot folder %q is not a directory", abs)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		dir:      abs,
		debounce: debounce,
		ingest:   ingest,
		logger:   logging.NewComponentLogger(logger, "hotfolder"),
		pending:  make(map[string]fileStamp),
		seen:     make(map[string]struct{}),
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run watches until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching hot folder", logging.String("dir", w.dir))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.track(ev) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("hot folder watch error", logging.Error(err))
		case <-timer.C:
			if w.flush() {
				timer.Reset(w.debounce)
			}
		}
	}
}

func (w *Watcher) track(ev fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		delete(w.seen, ev.Name)
		delete(w.pending, ev.Name)
		return false
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	if _, ok := w.seen[ev.Name]; ok {
		return false
	}
	if _, ok := w.pending[ev.Name]; !ok {
		w.pending[ev.Name] = fileStamp{}
	}
	return true
}

// settled splits the pending paths into those whose stamp held since the last
// flush and reports whether others are still changing. Vanished and already
// ingested paths are dropped.
func (w *Watcher) settled() ([]string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var (
		ready    []string
		changing bool
	)
	for p, prev := range w.pending {
		if _, ok := w.seen[p]; ok {
			delete(w.pending, p)
			continue
		}
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			delete(w.pending, p)
			continue
		}
		cur := stampOf(info)
		if cur != prev {
			w.pending[p] = cur
			changing = true
			continue
		}
		ready = append(ready, p)
	}
	sort.Strings(ready)
	return ready, changing
}

// flush ingests the settled paths and reports whether another flush is
// needed, either because files are still changing or because the ingest was
// refused while a batch runs.
func (w *Watcher) flush() bool {
	ready, changing := w.settled()
	if len(ready) == 0 {
		return changing
	}

	items, err := w.ingest.AddPaths(ready...)
	if errors.Is(err, batch.ErrBatchRunning) {
		w.logger.Debug("hot folder deferred while batch runs", logging.Int("files", len(ready)))
		return true
	}

	w.mu.Lock()
	for _, p := range ready {
		delete(w.pending, p)
		if err == nil {
			w.seen[p] = struct{}{}
		}
	}
	w.mu.Unlock()

	if err != nil {
		logging.WarnWithContext(w.logger, "hot folder ingest failed", "hotfolder_ingest_failed",
			logging.Error(err),
			logging.Int("files", len(ready)),
			logging.String(logging.FieldImpact, "dropped files were not queued"),
		)
		return changing
	}
	w.logger.Info("hot folder files queued",
		logging.Int("seen", len(ready)),
		logging.Int("queued", len(items)),
	)
	return changing
}
