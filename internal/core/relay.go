package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// PendingLimit bounds the store-and-forward buffer per unresolved recipient.
// Past the limit the oldest message is dropped and logged loudly.
const PendingLimit = 64

// Relay routes negotiation messages between two identities. Messages for a
// recipient without an attached transport are buffered in arrival order and
// flushed when the recipient attaches. The relay never inspects payloads.
type Relay struct {
	binder *Binder

	mu      sync.Mutex
	pending map[string][]*Signal
	log     *zerolog.Logger
}

// NewRelay builds a relay on top of the binding table.
func NewRelay(binder *Binder, logger *zerolog.Logger) *Relay {
	return &Relay{
		binder:  binder,
		pending: make(map[string][]*Signal),
		log:     logger,
	}
}

// Send delivers sig to its recipient, or buffers it until the recipient's
// transport attaches. Delivery failure to a broken transport is logged and
// never surfaced to the sender; renegotiation is the caller's problem.
func (r *Relay) Send(sig *Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.binder.Lookup(sig.To); ok {
		if !t.DeliverSignal(sig) {
			r.log.Warn().
				Str("type", sig.Type).
				Str("from", sig.From).
				Str("to", sig.To).
				Msg("signal dropped, recipient queue full")
		} else {
			r.log.Debug().Str("type", sig.Type).Str("from", sig.From).Str("to", sig.To).Msg("relayed signal")
		}
		return
	}

	queue := r.pending[sig.To]
	if len(queue) >= PendingLimit {
		r.log.Warn().
			Str("to", sig.To).
			Int("limit", PendingLimit).
			Msg("pending signal buffer full, dropping oldest")
		queue = queue[1:]
	}
	r.pending[sig.To] = append(queue, sig)
	r.log.Debug().Str("type", sig.Type).Str("to", sig.To).Msg("buffered signal")
}

// BindAndFlush attaches a transport and drains the recipient's buffer in
// arrival order. Holding the relay lock across attach and flush keeps
// buffered messages ordered ahead of any concurrently sent live ones.
func (r *Relay) BindAndFlush(id string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.binder.Attach(id, t)

	queue := r.pending[id]
	if len(queue) == 0 {
		return
	}
	delete(r.pending, id)
	r.log.Info().Str("client_id", id).Int("count", len(queue)).Msg("flushing buffered signals")
	for _, sig := range queue {
		if !t.DeliverSignal(sig) {
			r.log.Warn().Str("client_id", id).Msg("buffered signal dropped during flush")
		}
	}
}

// PendingCount reports the buffered message count for a recipient.
func (r *Relay) PendingCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending[id])
}
