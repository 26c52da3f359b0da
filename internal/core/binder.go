package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Transport is a volatile binding to a client's live connection. Deliveries
// are non-blocking; false means the message was dropped (queue full or
// connection gone) and the caller must treat that as acceptable loss.
type Transport interface {
	Deliver(ev *Event) bool
	DeliverSignal(sig *Signal) bool
	DeliverFrame(frame []byte) bool
}

// Binder owns the identity -> transport table plus the lobby subscription
// set used for directory-level room updates.
type Binder struct {
	mu         sync.RWMutex
	transports map[string]Transport
	lobby      map[string]struct{}
	log        *zerolog.Logger
}

// NewBinder builds an empty binding table.
func NewBinder(logger *zerolog.Logger) *Binder {
	return &Binder{
		transports: make(map[string]Transport),
		lobby:      make(map[string]struct{}),
		log:        logger,
	}
}

// Attach binds a transport to an identity, replacing any previous binding.
func (b *Binder) Attach(id string, t Transport) {
	b.mu.Lock()
	b.transports[id] = t
	b.mu.Unlock()
	b.log.Debug().Str("client_id", id).Msg("transport attached")
}

// Detach removes the binding only if it still points at t, so a stale
// connection's cleanup cannot evict its replacement.
func (b *Binder) Detach(id string, t Transport) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.transports[id]; ok && cur == t {
		delete(b.transports, id)
		delete(b.lobby, id)
		return true
	}
	return false
}

// Lookup returns the transport currently bound to id.
func (b *Binder) Lookup(id string) (Transport, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.transports[id]
	return t, ok
}

// SubscribeLobby marks an attached identity as watching the room directory.
func (b *Binder) SubscribeLobby(id string) {
	b.mu.Lock()
	b.lobby[id] = struct{}{}
	b.mu.Unlock()
}

// LobbyBroadcast pushes an event to every lobby watcher. Per-recipient
// failure is contained.
func (b *Binder) LobbyBroadcast(ev *Event) {
	b.mu.RLock()
	targets := make([]Transport, 0, len(b.lobby))
	for id := range b.lobby {
		if t, ok := b.transports[id]; ok {
			targets = append(targets, t)
		}
	}
	b.mu.RUnlock()

	for _, t := range targets {
		if !t.Deliver(ev) {
			b.log.Debug().Msg("lobby event dropped for slow watcher")
		}
	}
}

// Send delivers an event to one identity if a transport is attached.
func (b *Binder) Send(id string, ev *Event) bool {
	t, ok := b.Lookup(id)
	if !ok {
		return false
	}
	if !t.Deliver(ev) {
		b.log.Warn().Str("client_id", id).Msg("event dropped, send queue full")
		return false
	}
	return true
}
