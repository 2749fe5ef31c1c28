package workspace

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ehrlich-b/wscode/internal/bus"
	"github.com/ehrlich-b/wscode/internal/logger"
)

// Watcher registers a recursive watch over the workspace root (fsnotify
// itself only watches one directory at a time, so every discovered
// subdirectory is added individually), converts raw events into
// FileEvents, invalidates the directory cache's affected entry, and
// forwards the event to the batcher — in that order, so invalidation
// happens-before delivery.
type Watcher struct {
	root  string
	fsw   *fsnotify.Watcher
	cache *DirectoryCache
	bus   *bus.Bus[FileEvent]

	batchCh chan []FileEvent
	batcher *EventBatcher

	done chan struct{}
}

func NewWatcher(root string, cache *DirectoryCache) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:    root,
		fsw:     fsw,
		cache:   cache,
		bus:     bus.New[FileEvent](bus.DefaultCapacity),
		batchCh: make(chan []FileEvent, bus.DefaultCapacity),
		done:    make(chan struct{}),
	}
	w.batcher = NewEventBatcher(DefaultBatchSize, DefaultBatchTimeout, w.batchCh)
	return w, nil
}

// Subscribe returns a receive handle for individual FileEvents,
// de-batched — the session multiplexer re-batches per-connection on
// its own 100ms/100-event rule, so the bus itself fans out single
// events.
func (w *Watcher) Subscribe() *bus.Subscription[FileEvent] {
	return w.bus.Subscribe()
}

func (w *Watcher) Unsubscribe(s *bus.Subscription[FileEvent]) {
	w.bus.Unsubscribe(s)
}

// Start begins watching recursively and spawns the goroutines that
// drain raw fsnotify events and re-broadcast batcher output.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.readLoop()
	go w.rebroadcastLoop()
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = w.addRecursive(filepath.Join(dir, e.Name()))
		}
	}
	return nil
}

func (w *Watcher) readLoop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleRaw(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", "err", err)
		}
	}
}

func (w *Watcher) handleRaw(ev fsnotify.Event) {
	fe, ok := w.convert(ev)
	if !ok {
		return
	}

	// New directories must join the recursive watch set, and do so
	// before invalidation so a racing listing sees the new watch.
	if fe.Kind == EventCreated && fe.Metadata != nil && fe.Metadata.IsDir {
		_ = w.addRecursive(ev.Name)
	}

	parent := filepath.Dir(ev.Name)
	w.cache.Invalidate(parent)
	w.batcher.Add(fe)
}

// convert maps a raw fsnotify event into a FileEvent. Remove always
// yields a Deleted event without metadata, and so does a Rename whose
// path no longer stats; a stat failure on any other event drops it.
func (w *Watcher) convert(ev fsnotify.Event) (FileEvent, bool) {
	nowMs := time.Now().UnixMilli()

	if ev.Op&fsnotify.Remove != 0 {
		return FileEvent{Kind: EventDeleted, Path: ev.Name, TsMs: nowMs}, true
	}

	info, err := os.Lstat(ev.Name)
	if err != nil {
		if ev.Op&fsnotify.Rename != 0 {
			return FileEvent{Kind: EventDeleted, Path: ev.Name, TsMs: nowMs}, true
		}
		return FileEvent{}, false
	}
	meta := &FileMetadata{
		Size:       info.Size(),
		IsDir:      info.IsDir(),
		IsSymlink:  info.Mode()&os.ModeSymlink != 0,
		ModifiedMs: info.ModTime().UnixMilli(),
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		return FileEvent{Kind: EventCreated, Path: ev.Name, TsMs: nowMs, Metadata: meta}, true
	case ev.Op&fsnotify.Rename != 0:
		return FileEvent{Kind: EventModified, Path: ev.Name, TsMs: nowMs, ModKind: ModName, Metadata: meta}, true
	case ev.Op&fsnotify.Write != 0:
		return FileEvent{Kind: EventModified, Path: ev.Name, TsMs: nowMs, ModKind: ModContent, Metadata: meta}, true
	case ev.Op&fsnotify.Chmod != 0:
		return FileEvent{Kind: EventModified, Path: ev.Name, TsMs: nowMs, ModKind: ModMetadata, Metadata: meta}, true
	default:
		return FileEvent{Kind: EventModified, Path: ev.Name, TsMs: nowMs, ModKind: ModOther, Metadata: meta}, true
	}
}

func (w *Watcher) rebroadcastLoop() {
	for {
		select {
		case <-w.done:
			return
		case batch := <-w.batchCh:
			for _, ev := range batch {
				w.bus.Publish(ev)
			}
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	w.batcher.Close()
	return w.fsw.Close()
}
