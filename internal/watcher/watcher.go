// Package watcher reports changes to catalog files on disk.
//
// Editors often save by writing a temporary file and renaming it over the
// original, which drops a watch placed on the file itself. WatchFile
// therefore watches the parent directory and filters events down to the
// file's path. Rapid bursts of events are grouped by a Debouncer.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/luatutor/internal/logging"
)

// DefaultDelay is the quiet period before a batch of changes is delivered.
const DefaultDelay = 200 * time.Millisecond

// Watcher watches catalog files and delivers debounced change batches.
type Watcher struct {
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	filters   []Filter
	handlers  []Handler
	logger    logging.Logger
	mutex     sync.RWMutex
	stopOnce  sync.Once
}

// Event is a single change to a watched path.
type Event struct {
	Op      Op
	Path    string
	ModTime time.Time
	Size    int64
}

// Op is the kind of change.
type Op int

const (
	OpCreated Op = iota
	OpModified
	OpRemoved
	OpRenamed
)

// String returns the name of the operation.
func (o Op) String() string {
	switch o {
	case OpCreated:
		return "created"
	case OpModified:
		return "modified"
	case OpRemoved:
		return "removed"
	case OpRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Filter reports whether events for path should be kept. All filters must agree.
type Filter func(path string) bool

// Handler receives one debounced batch of events, sorted by path.
type Handler func(ctx context.Context, events []Event) error

// New creates a Watcher that groups events arriving within delay.
func New(delay time.Duration, logger logging.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Watcher{
		fs:        fs,
		debouncer: NewDebouncer(delay),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a filter that every event must pass.
func (w *Watcher) AddFilter(filter Filter) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.filters = append(w.filters, filter)
}

// AddHandler registers a batch handler.
func (w *Watcher) AddHandler(handler Handler) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.handlers = append(w.handlers, handler)
}

// AddDir watches every entry of a directory.
func (w *Watcher) AddDir(dir string) error {
	clean := filepath.Clean(dir)
	info, err := os.Stat(clean)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watching %s: not a directory", dir)
	}
	return w.fs.Add(clean)
}

// WatchFile watches a single file through its parent directory.
func (w *Watcher) WatchFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if err := w.AddDir(filepath.Dir(abs)); err != nil {
		return err
	}
	w.AddFilter(PathFilter(abs))
	return nil
}

// Start runs the event loops until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.debouncer.Run(ctx)
	go w.dispatch(ctx)
	go w.watchLoop(ctx)
}

// Stop releases the fsnotify watcher and any pending timer.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.debouncer.Stop()
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleFsnotifyEvent(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (w *Watcher) handleFsnotifyEvent(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	w.mutex.RLock()
	filters := w.filters
	w.mutex.RUnlock()
	for _, filter := range filters {
		if !filter(ev.Name) {
			return
		}
	}

	event := Event{Path: ev.Name, Op: convertOp(ev.Op)}
	if info, err := os.Stat(ev.Name); err == nil {
		event.ModTime = info.ModTime()
		event.Size = info.Size()
	}
	w.debouncer.Add(event)
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreated
	case op.Has(fsnotify.Write):
		return OpModified
	case op.Has(fsnotify.Remove):
		return OpRemoved
	case op.Has(fsnotify.Rename):
		return OpRenamed
	default:
		return OpModified
	}
}

func (w *Watcher) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-w.debouncer.Output():
			w.mutex.RLock()
			handlers := w.handlers
			w.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(ctx, events); err != nil {
					w.logger.Error(ctx, err, "Change handler failed", "events", len(events))
				}
			}
		}
	}
}

// Debouncer groups events that arrive within delay of each other into one
// batch, keeping the latest event per path.
type Debouncer struct {
	delay   time.Duration
	events  chan Event
	output  chan []Event
	timer   *time.Timer
	pending map[string]Event
	mutex   sync.Mutex
}

// NewDebouncer creates a Debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		events:  make(chan Event, 100),
		output:  make(chan []Event, 10),
		pending: make(map[string]Event),
	}
}

// Add queues an event. It never blocks; events are dropped when the queue is full.
func (d *Debouncer) Add(event Event) {
	select {
	case d.events <- event:
	default:
	}
}

// Output delivers debounced batches.
func (d *Debouncer) Output() <-chan []Event {
	return d.output
}

// Run moves queued events into the pending batch until ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

// Stop cancels a pending flush.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) addEvent(event Event) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending[event.Path] = event
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}
	events := make([]Event, 0, len(d.pending))
	for _, event := range d.pending {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	select {
	case d.output <- events:
	default:
	}
	d.pending = make(map[string]Event)
}

// PathFilter keeps events for exactly one absolute path.
func PathFilter(abs string) Filter {
	abs = filepath.Clean(abs)
	return func(path string) bool {
		p, err := filepath.Abs(path)
		return err == nil && p == abs
	}
}

// YAMLFilter keeps .yaml and .yml files.
func YAMLFilter(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// NoHiddenFilter drops dotfiles and editor swap files.
func NoHiddenFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~") && !strings.HasSuffix(base, ".swp")
}
