package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/refperm/internal/logger"
)

// ChangeKind says what happened to a project file.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota
	ChangeCreated
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeRemoved:
		return "removed"
	default:
		return "modified"
	}
}

// ChangeFunc is called from the watcher goroutine for every project file
// event.
type ChangeFunc func(project string, kind ChangeKind)

// Watcher reports edits made to a YAMLStore directory, typically so the
// project cache can evict the affected entries without waiting for the
// next revision check.
//
// Thread safety: the callback runs on the watcher goroutine only.
type Watcher struct {
	store    *YAMLStore
	onChange ChangeFunc
	fsw      *fsnotify.Watcher

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  chan struct{}
}

// NewWatcher watches every directory under the store.
func NewWatcher(s *YAMLStore, onChange ChangeFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	w := &Watcher{
		store:    s,
		onChange: onChange,
		fsw:      fsw,
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if err := w.addTree(s.Dir()); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Start begins delivering events. It returns immediately; events are
// processed until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	w.started.Store(true)
	go func() {
		defer close(w.stopped)
		logger.Info("Project watcher started", logger.KeyPath, w.store.Dir())

		for {
			select {
			case <-ctx.Done():
				logger.Debug("Project watcher stopping (context cancelled)")
				return
			case <-w.stopCh:
				logger.Debug("Project watcher stopping (stop signal)")
				return
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				w.handle(ev)
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("Project watcher error", logger.KeyError, err)
			}
		}
	}()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		// New subdirectories must be watched explicitly.
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				logger.Warn("Project watcher cannot follow directory", logger.KeyPath, ev.Name, logger.KeyError, err)
			}
			return
		}
	}

	name, ok := w.store.ProjectName(ev.Name)
	if !ok {
		return
	}

	var kind ChangeKind
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		kind = ChangeRemoved
	case ev.Has(fsnotify.Create):
		kind = ChangeCreated
	case ev.Has(fsnotify.Write):
		kind = ChangeModified
	default:
		return
	}

	logger.Debug("Project file changed", logger.KeyProject, name, "change", kind.String())
	if w.onChange != nil {
		w.onChange(name, kind)
	}
}

// Stop stops the watcher and, if it was started, waits for its goroutine
// to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.fsw.Close()
	})
	if w.started.Load() {
		<-w.stopped
	}
	logger.Debug("Project watcher stopped")
}
