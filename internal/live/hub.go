// Package live fans transaction changes out to connected browsers.
package live

import (
	"sync"
	"time"
)

// Action describes what happened to a transaction.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event is a change notification. It carries no amounts so it is safe to
// broadcast to anonymous feed viewers.
type Event struct {
	Action        Action    `json:"action"`
	TransactionID string    `json:"id"`
	UserID        string    `json:"-"`
	Expense       bool      `json:"expense"`
	At            time.Time `json:"at"`
}

// Public is the subscription key for anonymous cashflow viewers.
const Public = ""

const defaultBuffer = 16

type subscriber struct {
	ch chan Event
}

// Hub delivers each event to its owner's subscribers, and expense events
// also to Public subscribers. Publish never blocks on a slow reader.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*subscriber]struct{}
	buffer  int
	dropped int64
	closed  bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{}), buffer: defaultBuffer}
}

// Subscribe registers a listener for key, which is a user ID or Public. The
// returned cancel func closes the channel and is safe to call twice.
func (h *Hub) Subscribe(key string) (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	if h.subs[key] == nil {
		h.subs[key] = make(map[*subscriber]struct{})
	}
	h.subs[key][s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[key]; ok {
				if _, ok := set[s]; ok {
					delete(set, s)
					close(s.ch)
				}
				if len(set) == 0 {
					delete(h.subs, key)
				}
			}
		})
	}
}

func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.deliver(e.UserID, e)
	if e.Expense && e.UserID != Public {
		h.deliver(Public, e)
	}
}

func (h *Hub) deliver(key string, e Event) {
	for s := range h.subs[key] {
		select {
		case s.ch <- e:
		default:
			h.dropped++
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

// Dropped counts events skipped because a subscriber's buffer was full.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Close ends every subscription; SSE handlers see their channel close.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for key, set := range h.subs {
		for s := range set {
			close(s.ch)
		}
		delete(h.subs, key)
	}
}
