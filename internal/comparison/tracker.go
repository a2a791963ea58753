package comparison

import (
	"sync"
	"time"

	"github.com/iwvelando/loan-compare/internal/model"
)

// Tracker implements last-request-wins per session. Each computation takes a
// ticket when it starts; only the holder of the latest ticket may publish a
// result when it finishes.
type Tracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	next     uint64
	sessions map[string]*session
}

type session struct {
	latest  uint64
	result  *model.Result
	touched time.Time
}

// NewTracker creates a tracker that forgets sessions idle for longer than
// ttl. A non-positive ttl keeps sessions forever.
func NewTracker(ttl time.Duration, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{ttl: ttl, now: now, sessions: make(map[string]*session)}
}

// Begin issues a new ticket for id, superseding any computation in flight.
func (t *Tracker) Begin(id string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.evict(now)

	t.next++
	s, ok := t.sessions[id]
	if !ok {
		s = &session{}
		t.sessions[id] = s
	}
	s.latest = t.next
	s.touched = now
	return t.next
}

// Latest reports whether ticket is still the newest for id.
func (t *Tracker) Latest(id string, ticket uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[id]
	return ok && s.latest == ticket
}

// Complete stores result as the session's current result if ticket is still
// the newest. It returns false for a stale ticket and leaves the session
// unchanged.
func (t *Tracker) Complete(id string, ticket uint64, result model.Result) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[id]
	if !ok || s.latest != ticket {
		return false
	}
	s.result = &result
	s.touched = t.now()
	return true
}

// Previous returns the last published result of id, or nil.
func (t *Tracker) Previous(id string) *model.Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[id]
	if !ok || s.result == nil {
		return nil
	}
	prev := *s.result
	return &prev
}

// Len returns the number of remembered sessions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// evict must be called with mu held.
func (t *Tracker) evict(now time.Time) {
	if t.ttl <= 0 {
		return
	}
	for id, s := range t.sessions {
		if now.Sub(s.touched) > t.ttl {
			delete(t.sessions, id)
		}
	}
}
