package core

import (
	"encoding/json"
	"time"
)

// EventKind is a notification the core pushes to room members or lobby watchers.
type EventKind int

const (
	// EventRoomState delivers a membership snapshot to a freshly attached transport.
	EventRoomState EventKind = iota
	// EventNewListener notifies room members that a listener joined.
	EventNewListener
	// EventListenerLeft notifies room members that a listener departed.
	EventListenerLeft
	// EventRoomClosed notifies every member that the room is gone.
	EventRoomClosed
	// EventRoomUpdate pushes refreshed room summaries to lobby watchers.
	EventRoomUpdate
	// EventTrackChange notifies room members that the DJ loaded a track.
	EventTrackChange
	// EventPlaybackState notifies room members that playback started or paused.
	EventPlaybackState
	// EventControl passes a DJ control message (seek, volume) through verbatim.
	EventControl
)

// MemberInfo describes one room member inside a room_state snapshot.
type MemberInfo struct {
	ID   string
	Name string
	Role Role
}

// TrackInfo is the room-facing description of the current track.
type TrackInfo struct {
	ID       string
	Name     string
	Duration time.Duration
}

// Event is sent to transports to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Room    string
	Client  string
	Name    string
	Members []MemberInfo
	Rooms   []Summary
	Track   *TrackInfo
	Playing bool
	Raw     json.RawMessage // EventControl: forwarded as received
}

// Signal is a point-to-point negotiation message relayed verbatim between
// two identities. The payload is opaque to the relay.
type Signal struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
