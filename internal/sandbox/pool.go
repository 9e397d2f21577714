package sandbox

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSessions bounds how many editor sessions a Pool tracks.
const DefaultMaxSessions = 1024

// Pool hands out one Runner per editor session so that each editor on a
// page has its own busy flag.
type Pool struct {
	mu          sync.Mutex
	runners     map[string]*Runner
	opts        []Option
	maxSessions int
}

// NewPool creates a Pool whose runners are built with opts.
func NewPool(maxSessions int, opts ...Option) *Pool {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Pool{
		runners:     make(map[string]*Runner),
		opts:        opts,
		maxSessions: maxSessions,
	}
}

// NewSessionID returns a fresh editor session id.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id looks like an id from NewSessionID.
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the runner for session, creating it if needed. When the pool
// is full the least recently used idle runners are evicted first.
func (p *Pool) Get(session string) *Runner {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r, ok := p.runners[session]; ok {
		return r
	}
	if len(p.runners) >= p.maxSessions {
		p.evictLocked(len(p.runners) - p.maxSessions + 1)
	}
	r := NewRunner(p.opts...)
	p.runners[session] = r
	return r
}

// Len returns the number of tracked sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.runners)
}

// Prune drops idle runners not used for longer than maxIdle and returns how
// many were removed.
func (p *Pool) Prune(maxIdle time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for id, r := range p.runners {
		if !r.Busy() && r.idleSince().Before(cutoff) {
			delete(p.runners, id)
			removed++
		}
	}
	return removed
}

func (p *Pool) evictLocked(n int) {
	type entry struct {
		id   string
		last time.Time
	}
	idle := make([]entry, 0, len(p.runners))
	for id, r := range p.runners {
		if !r.Busy() {
			idle = append(idle, entry{id: id, last: r.idleSince()})
		}
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].last.Before(idle[j].last) })
	for i := 0; i < n && i < len(idle); i++ {
		delete(p.runners, idle[i].id)
	}
}
