package search

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last keystroke before a
// query is searched.
const DefaultDebounce = 300 * time.Millisecond

// LiveSearch debounces a stream of query updates. Each Update restarts a
// single-shot timer; when the timer fires only the latest query is searched
// and its Response is passed to the callback. Rapid updates inside the
// debounce window therefore produce at most one search.
type LiveSearch struct {
	index    *Index
	delay    time.Duration
	onResult func(Response)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	gen     uint64
	closed  bool

	// deliverMu keeps callbacks from overlapping.
	deliverMu sync.Mutex
}

// NewLiveSearch creates a debounced searcher over index. onResult is called
// from a timer goroutine.
func NewLiveSearch(index *Index, delay time.Duration, onResult func(Response)) *LiveSearch {
	if delay < 0 {
		delay = 0
	}
	return &LiveSearch{
		index:    index,
		delay:    delay,
		onResult: onResult,
	}
}

// Update records a new query and restarts the debounce timer.
func (l *LiveSearch) Update(query string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.pending = query
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
	}
	gen := l.gen
	l.timer = time.AfterFunc(l.delay, func() {
		l.fire(gen)
	})
}

// Query returns the most recent query passed to Update.
func (l *LiveSearch) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// Close cancels any pending search. Further updates are ignored.
func (l *LiveSearch) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *LiveSearch) fire(gen uint64) {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	if l.closed || gen != l.gen {
		// A newer update superseded this timer after it had already fired.
		l.mu.Unlock()
		return
	}
	query := l.pending
	l.mu.Unlock()

	resp := l.index.Search(query)
	if l.onResult != nil {
		l.onResult(resp)
	}
}
