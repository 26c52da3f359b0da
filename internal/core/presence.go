package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Presence ingests client heartbeats. Liveness is computed lazily at read
// time from the recorded timestamps; the sweep only bounds memory.
type Presence struct {
	registry  *Registry
	directory *Directory
	log       *zerolog.Logger
}

// NewPresence builds the presence tracker.
func NewPresence(registry *Registry, directory *Directory, logger *zerolog.Logger) *Presence {
	return &Presence{
		registry:  registry,
		directory: directory,
		log:       logger,
	}
}

// Heartbeat refreshes identity liveness, and publisher liveness when the
// caller claims the DJ role for a room it actually owns. Bogus DJ claims
// are silently ignored rather than rejected.
func (p *Presence) Heartbeat(identityID, roomID string, role Role) {
	p.registry.Touch(identityID)
	if role == RoleDJ && roomID != "" {
		p.directory.TouchDJ(roomID, identityID)
	}
}

// RunSweep periodically evicts rooms whose DJ has been absent longer than
// evictAfter. Blocks until ctx is done.
func (p *Presence) RunSweep(ctx context.Context, interval, evictAfter time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.directory.EvictStale(evictAfter); n > 0 {
				p.log.Info().Int("evicted", n).Msg("presence sweep evicted stale rooms")
			}
		}
	}
}
