package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/utils"
)

// Role is what an identity does inside its current room.
type Role string

const (
	RoleNone     Role = ""
	RoleDJ       Role = "dj"
	RoleListener Role = "listener"
)

// Identity is a registered client. Identities are never deleted; they go
// stale when heartbeats stop.
type Identity struct {
	ID       string
	Name     string
	RoomID   string
	Role     Role
	LastSeen time.Time
}

// Registry maps opaque client ids to identities.
type Registry struct {
	mu         sync.RWMutex
	identities map[string]*Identity
	now        func() time.Time
	log        *zerolog.Logger
}

// NewRegistry builds an empty identity registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		identities: make(map[string]*Identity),
		now:        time.Now,
		log:        logger,
	}
}

// Identify resumes an existing identity or creates a fresh one. An unknown
// existingID silently falls through to creation so callers cannot probe
// which ids are live.
func (r *Registry) Identify(existingID, requestedName string) Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID != "" {
		if id, ok := r.identities[existingID]; ok {
			id.LastSeen = r.now()
			r.log.Info().Str("client_id", id.ID).Str("name", id.Name).Msg("client resumed")
			return *id
		}
	}

	name := requestedName
	if name == "" {
		name = utils.RandomName()
	}
	id := &Identity{
		ID:       utils.NewClientID(),
		Name:     name,
		LastSeen: r.now(),
	}
	r.identities[id.ID] = id
	r.log.Info().Str("client_id", id.ID).Str("name", id.Name).Msg("new client")
	return *id
}

// Get returns a copy of an identity.
func (r *Registry) Get(id string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ident, ok := r.identities[id]; ok {
		return *ident, true
	}
	return Identity{}, false
}

// Known reports whether the id is registered.
func (r *Registry) Known(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.identities[id]
	return ok
}

// Name returns the display name for an id, or the empty string.
func (r *Registry) Name(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ident, ok := r.identities[id]; ok {
		return ident.Name
	}
	return ""
}

// Touch refreshes last_seen for a known identity.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.identities[id]; ok {
		ident.LastSeen = r.now()
	}
}

// SetRoom records which room and role an identity currently holds.
func (r *Registry) SetRoom(id, roomID string, role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.identities[id]; ok {
		ident.RoomID = roomID
		ident.Role = role
	}
}

// ClearRoom drops the room association if it still points at roomID.
func (r *Registry) ClearRoom(id, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.identities[id]; ok && ident.RoomID == roomID {
		ident.RoomID = ""
		ident.Role = RoleNone
	}
}
