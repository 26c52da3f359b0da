package core

import (
	"sync"
	"time"
)

// Room groups a single DJ and the listeners subscribed to its stream.
// Membership mutation is serialized per room.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu         sync.Mutex
	dj         string
	listeners  map[string]struct{}
	djLastSeen time.Time
	closed     bool
}

func newRoom(id, name, dj string, now time.Time) *Room {
	return &Room{
		ID:         id,
		Name:       name,
		CreatedAt:  now,
		dj:         dj,
		listeners:  make(map[string]struct{}),
		djLastSeen: now,
	}
}

// DJ returns the current publisher identity id, if any.
func (r *Room) DJ() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dj
}

// ListenerCount returns the number of distinct joined listeners.
func (r *Room) ListenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Members returns the DJ plus all listeners.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.listeners)+1)
	if r.dj != "" {
		out = append(out, r.dj)
	}
	for id := range r.listeners {
		out = append(out, id)
	}
	return out
}

// addListener inserts a listener. Returns true if newly added; re-adding an
// existing member is a no-op. Fails on a room already in teardown.
func (r *Room) addListener(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, ErrUnknownRoom
	}
	if _, exists := r.listeners[id]; exists {
		return false, nil
	}
	r.listeners[id] = struct{}{}
	return true, nil
}

// removeListener deletes a listener. Returns true if it was a member.
func (r *Room) removeListener(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.listeners[id]; !exists {
		return false
	}
	delete(r.listeners, id)
	return true
}

// claimDJ sets the publisher slot. Idempotent for the same identity; fails
// when a different identity holds the slot or the room is in teardown.
func (r *Room) claimDJ(id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrUnknownRoom
	}
	if r.dj != "" && r.dj != id {
		return ErrDJConflict
	}
	r.dj = id
	r.djLastSeen = now
	return nil
}

// touchDJ refreshes publisher liveness when id actually is the publisher.
// Claims from anyone else are silently ignored.
func (r *Room) touchDJ(id string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dj == id {
		r.djLastSeen = now
	}
}

// djSeen returns the publisher liveness timestamp.
func (r *Room) djSeen() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.djLastSeen
}

// markClosed transitions the room into teardown. Once set, admission is
// refused even while the directory record still exists. Returns false if the
// room was already closed, making concurrent teardowns idempotent.
func (r *Room) markClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.closed = true
	return true
}

// isClosed reports whether teardown has begun.
func (r *Room) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
