package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/utils"
)

// ListenerNotifyDelay is how long after a join ack the new_listener event is
// broadcast, giving the joiner's own transport time to attach first.
const ListenerNotifyDelay = 150 * time.Millisecond

// Summary is the lobby-facing view of a room.
type Summary struct {
	ID            string
	Name          string
	DJ            string
	DJName        string
	ListenerCount int
	DJOnline      bool
}

// Directory is the authoritative room repository. Listing order is room
// insertion order and is stable, so clients can diff summaries.
type Directory struct {
	registry      *Registry
	binder        *Binder
	staleWindow   time.Duration
	listenerDelay time.Duration
	now           func() time.Time
	log           *zerolog.Logger

	// closeHook runs whenever a room is torn down, before lobby watchers
	// hear about it. Used to stop the room's playback session.
	closeHook func(roomID string)

	mu     sync.RWMutex
	rooms  map[string]*Room
	order  []string
	owners map[string]string // dj identity id -> room id
}

// NewDirectory builds an empty room directory.
func NewDirectory(registry *Registry, binder *Binder, staleWindow time.Duration, logger *zerolog.Logger) *Directory {
	return &Directory{
		registry:      registry,
		binder:        binder,
		staleWindow:   staleWindow,
		listenerDelay: ListenerNotifyDelay,
		now:           time.Now,
		log:           logger,
		rooms:         make(map[string]*Room),
		owners:        make(map[string]string),
	}
}

// SetCloseHook installs the teardown callback for closed rooms.
func (d *Directory) SetCloseHook(fn func(roomID string)) {
	d.closeHook = fn
}

// CreateRoom creates a room owned by publisherID, or returns the publisher's
// existing room. One DJ holds at most one active room.
func (d *Directory) CreateRoom(publisherID, name string) (roomID string, existing bool, err error) {
	ident, ok := d.registry.Get(publisherID)
	if !ok {
		return "", false, ErrUnknownIdentity
	}

	d.mu.Lock()
	if owned, ok := d.owners[publisherID]; ok {
		// A room caught mid-teardown is not reusable; fall through and
		// create a fresh one.
		if room, ok := d.rooms[owned]; ok && !room.isClosed() {
			d.mu.Unlock()
			d.registry.SetRoom(publisherID, owned, RoleDJ)
			d.log.Info().Str("room_id", owned).Str("dj", ident.Name).Msg("reusing room for DJ")
			return owned, true, nil
		}
	}

	room := newRoom(utils.NewRoomID(), name, publisherID, d.now())
	d.rooms[room.ID] = room
	d.order = append(d.order, room.ID)
	d.owners[publisherID] = room.ID
	d.mu.Unlock()

	d.registry.SetRoom(publisherID, room.ID, RoleDJ)
	d.log.Info().Str("room_id", room.ID).Str("name", name).Str("dj", ident.Name).Msg("room created")
	d.notifyLobby()
	return room.ID, false, nil
}

// JoinRoom adds an identity to a room in the requested role. DJ joins are
// idempotent for the room's owner and rejected for anyone else; listener
// joins always succeed and re-joins are no-ops.
func (d *Directory) JoinRoom(roomID, identityID string, role Role) (roomName string, err error) {
	ident, ok := d.registry.Get(identityID)
	if !ok {
		return "", ErrUnknownIdentity
	}
	room, ok := d.room(roomID)
	if !ok {
		return "", ErrUnknownRoom
	}

	switch role {
	case RoleDJ:
		if err := room.claimDJ(identityID, d.now()); err != nil {
			return "", err
		}
		d.mu.Lock()
		d.owners[identityID] = roomID
		d.mu.Unlock()
	default:
		role = RoleListener
		added, err := room.addListener(identityID)
		if err != nil {
			return "", err
		}
		if added {
			d.scheduleNewListener(roomID, identityID, ident.Name)
			d.notifyLobby()
		}
	}

	d.registry.SetRoom(identityID, roomID, role)
	d.registry.Touch(identityID)
	d.log.Info().
		Str("room_id", roomID).
		Str("client_id", identityID).
		Str("name", ident.Name).
		Str("role", string(role)).
		Msg("joined room")
	return room.Name, nil
}

// scheduleNewListener broadcasts new_listener after a short deliberate delay
// so the joiner's transport has time to attach before peers react.
func (d *Directory) scheduleNewListener(roomID, clientID, name string) {
	time.AfterFunc(d.listenerDelay, func() {
		d.Broadcast(roomID, &Event{
			Kind:   EventNewListener,
			Room:   roomID,
			Client: clientID,
			Name:   name,
		}, clientID)
	})
}

// LeaveRoom removes an identity from a room. A DJ leaving closes the room.
func (d *Directory) LeaveRoom(roomID, identityID string) error {
	room, ok := d.room(roomID)
	if !ok {
		return ErrUnknownRoom
	}

	if room.DJ() == identityID {
		d.log.Info().Str("room_id", roomID).Msg("DJ left, closing room")
		d.closeRoom(room)
		return nil
	}

	if room.removeListener(identityID) {
		d.registry.ClearRoom(identityID, roomID)
		d.Broadcast(roomID, &Event{Kind: EventListenerLeft, Room: roomID, Client: identityID}, "")
		d.notifyLobby()
		d.log.Info().Str("room_id", roomID).Str("client_id", identityID).Msg("listener left")
	}
	return nil
}

// CloseRoom tears a room down. Only the current DJ may close it; the
// room_closed fanout reaches members before the record is deleted.
func (d *Directory) CloseRoom(roomID, requesterID string) error {
	room, ok := d.room(roomID)
	if !ok {
		return ErrUnknownRoom
	}
	if room.DJ() != requesterID {
		return ErrForbidden
	}
	d.log.Info().Str("room_id", roomID).Msg("room closed by DJ")
	d.closeRoom(room)
	return nil
}

func (d *Directory) closeRoom(room *Room) {
	// Refuse admission from here on; a second concurrent teardown is a no-op.
	if !room.markClosed() {
		return
	}

	members := room.Members()
	dj := room.DJ()

	// Fanout first: every member hears room_closed while the record exists.
	d.Broadcast(room.ID, &Event{Kind: EventRoomClosed, Room: room.ID}, "")

	if d.closeHook != nil {
		d.closeHook(room.ID)
	}

	d.mu.Lock()
	delete(d.rooms, room.ID)
	if cur, ok := d.owners[dj]; ok && cur == room.ID {
		delete(d.owners, dj)
	}
	for i, id := range d.order {
		if id == room.ID {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.mu.Unlock()

	for _, id := range members {
		d.registry.ClearRoom(id, room.ID)
	}
	d.notifyLobby()
}

// DropTransport handles abrupt transport loss. Losing the DJ's socket closes
// the room immediately; a listener's loss removes it from membership.
func (d *Directory) DropTransport(identityID string) {
	ident, ok := d.registry.Get(identityID)
	if !ok || ident.RoomID == "" {
		return
	}
	room, ok := d.room(ident.RoomID)
	if !ok {
		return
	}

	if room.DJ() == identityID {
		d.log.Info().Str("room_id", room.ID).Msg("DJ disconnected, closing room")
		d.closeRoom(room)
		return
	}

	if room.removeListener(identityID) {
		d.registry.ClearRoom(identityID, room.ID)
		d.Broadcast(room.ID, &Event{Kind: EventListenerLeft, Room: room.ID, Client: identityID}, "")
		d.notifyLobby()
		d.log.Info().Str("room_id", room.ID).Str("client_id", identityID).Msg("listener disconnected")
	}
}

// ListRooms derives lobby summaries. DJOnline goes false once the publisher
// heartbeat is older than the staleness window.
func (d *Directory) ListRooms() []Summary {
	now := d.now()

	d.mu.RLock()
	rooms := make([]*Room, 0, len(d.order))
	for _, id := range d.order {
		if room, ok := d.rooms[id]; ok {
			rooms = append(rooms, room)
		}
	}
	d.mu.RUnlock()

	out := make([]Summary, 0, len(rooms))
	for _, room := range rooms {
		dj := room.DJ()
		out = append(out, Summary{
			ID:            room.ID,
			Name:          room.Name,
			DJ:            dj,
			DJName:        d.registry.Name(dj),
			ListenerCount: room.ListenerCount(),
			DJOnline:      dj != "" && now.Sub(room.djSeen()) < d.staleWindow,
		})
	}
	return out
}

// TouchDJ refreshes publisher liveness for a heartbeat claiming the DJ role.
func (d *Directory) TouchDJ(roomID, identityID string) {
	if room, ok := d.room(roomID); ok {
		room.touchDJ(identityID, d.now())
	}
}

// RoomState builds a membership snapshot event for a freshly attached transport.
func (d *Directory) RoomState(roomID string) (*Event, bool) {
	room, ok := d.room(roomID)
	if !ok {
		return nil, false
	}
	members := room.Members()
	dj := room.DJ()
	infos := make([]MemberInfo, 0, len(members))
	for _, id := range members {
		role := RoleListener
		if id == dj {
			role = RoleDJ
		}
		infos = append(infos, MemberInfo{ID: id, Name: d.registry.Name(id), Role: role})
	}
	return &Event{Kind: EventRoomState, Room: roomID, Members: infos}, true
}

// Broadcast sends an event to every member with an attached transport,
// except excludeID. Per-recipient failure never aborts the fanout.
func (d *Directory) Broadcast(roomID string, ev *Event, excludeID string) {
	room, ok := d.room(roomID)
	if !ok {
		return
	}
	sent := 0
	for _, id := range room.Members() {
		if id == excludeID {
			continue
		}
		if d.binder.Send(id, ev) {
			sent++
		}
	}
	d.log.Debug().Str("room_id", roomID).Int("kind", int(ev.Kind)).Int("sent", sent).Msg("room broadcast")
}

// BroadcastFrame fans one produced media frame out to every member transport.
// Slow consumers drop frames; the producer is never blocked.
func (d *Directory) BroadcastFrame(roomID string, frame []byte) {
	room, ok := d.room(roomID)
	if !ok {
		return
	}
	for _, id := range room.Members() {
		if t, ok := d.binder.Lookup(id); ok {
			t.DeliverFrame(frame)
		}
	}
}

// EvictStale closes rooms whose DJ has been absent longer than bound. The
// closed flag set at the start of teardown makes joins racing the sweep fail
// instead of being admitted into a dying room.
func (d *Directory) EvictStale(bound time.Duration) int {
	now := d.now()

	d.mu.RLock()
	stale := make([]*Room, 0)
	for _, room := range d.rooms {
		if now.Sub(room.djSeen()) > bound {
			stale = append(stale, room)
		}
	}
	d.mu.RUnlock()

	for _, room := range stale {
		d.log.Info().Str("room_id", room.ID).Msg("evicting stale room")
		d.closeRoom(room)
	}
	return len(stale)
}

// Room returns the room record.
func (d *Directory) Room(roomID string) (*Room, bool) {
	return d.room(roomID)
}

func (d *Directory) room(roomID string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[roomID]
	return room, ok
}

func (d *Directory) notifyLobby() {
	d.binder.LobbyBroadcast(&Event{Kind: EventRoomUpdate, Rooms: d.ListRooms()})
}
