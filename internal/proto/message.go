package proto

import "encoding/json"

// Inbound message types.
const (
	TypeRegister  = "register"
	TypeOffer     = "offer"
	TypeAnswer    = "answer"
	TypeCandidate = "candidate"
	TypeLoad      = "load"
	TypePlay      = "play"
	TypePause     = "pause"
	TypeStop      = "stop"
	TypeSeek      = "seek"
	TypeVolume    = "volume"
)

// Outbound message types.
const (
	TypeRoomState     = "room_state"
	TypeNewListener   = "new_listener"
	TypeListenerLeft  = "listener_left"
	TypeRoomClosed    = "room_closed"
	TypeRoomUpdate    = "room_update"
	TypeTrackChange   = "track_change"
	TypePlaybackState = "playback_state"
	TypeError         = "error"
)

// Inbound is the flat envelope for every client-to-server socket message.
// Fields are populated depending on Type; signaling payloads stay opaque.
type Inbound struct {
	Type     string          `json:"type"`
	ClientID string          `json:"client_id,omitempty"`
	RoomID   string          `json:"room_id,omitempty"`
	To       string          `json:"to,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Track    *LoadTrack      `json:"track,omitempty"`
}

// LoadTrack describes the track a DJ wants to make current.
type LoadTrack struct {
	Name            string  `json:"name"`
	Locator         string  `json:"locator"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Member is one entry of a room_state snapshot.
type Member struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// RoomState is the membership snapshot sent right after register.
type RoomState struct {
	Type    string   `json:"type"`
	RoomID  string   `json:"room_id"`
	Clients []Member `json:"clients"`
}

// NewListener notifies peers that a listener joined.
type NewListener struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// ListenerLeft notifies peers that a listener departed.
type ListenerLeft struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id"`
}

// RoomClosed tells every member the room is gone.
type RoomClosed struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// RoomSummary is the lobby-facing room listing entry.
type RoomSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DJClient      string `json:"dj_client"`
	DJName        string `json:"dj_name"`
	ListenerCount int    `json:"listener_count"`
	DJOnline      bool   `json:"dj_online"`
}

// RoomUpdate pushes refreshed summaries to lobby watchers.
type RoomUpdate struct {
	Type  string        `json:"type"`
	Rooms []RoomSummary `json:"rooms"`
}

// TrackInfo is the client-facing track description.
type TrackInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// TrackChange announces the room's new current track.
type TrackChange struct {
	Type  string    `json:"type"`
	Track TrackInfo `json:"track"`
}

// PlaybackState announces a play/pause transition.
type PlaybackState struct {
	Type      string `json:"type"`
	IsPlaying bool   `json:"is_playing"`
}

// Error is a protocol-level error pushed to the offending client.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
