package http

import (
	"github.com/dataO1/hush-fm/internal/core"
	"github.com/dataO1/hush-fm/internal/proto"
)

func summariesToProto(summaries []core.Summary) []proto.RoomSummary {
	out := make([]proto.RoomSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, proto.RoomSummary{
			ID:            s.ID,
			Name:          s.Name,
			DJClient:      s.DJ,
			DJName:        s.DJName,
			ListenerCount: s.ListenerCount,
			DJOnline:      s.DJOnline,
		})
	}
	return out
}

// outboundFromEvent maps a core event to its wire shape. EventControl is
// forwarded verbatim and handled by the caller; it maps to nil here.
func outboundFromEvent(ev *core.Event) any {
	switch ev.Kind {
	case core.EventRoomState:
		members := make([]proto.Member, 0, len(ev.Members))
		for _, m := range ev.Members {
			members = append(members, proto.Member{
				ClientID: m.ID,
				Name:     m.Name,
				Role:     string(m.Role),
			})
		}
		return proto.RoomState{Type: proto.TypeRoomState, RoomID: ev.Room, Clients: members}
	case core.EventNewListener:
		return proto.NewListener{Type: proto.TypeNewListener, ClientID: ev.Client, Name: ev.Name}
	case core.EventListenerLeft:
		return proto.ListenerLeft{Type: proto.TypeListenerLeft, ClientID: ev.Client}
	case core.EventRoomClosed:
		return proto.RoomClosed{Type: proto.TypeRoomClosed, RoomID: ev.Room}
	case core.EventRoomUpdate:
		return proto.RoomUpdate{Type: proto.TypeRoomUpdate, Rooms: summariesToProto(ev.Rooms)}
	case core.EventTrackChange:
		if ev.Track == nil {
			return nil
		}
		return proto.TrackChange{
			Type: proto.TypeTrackChange,
			Track: proto.TrackInfo{
				ID:              ev.Track.ID,
				Name:            ev.Track.Name,
				DurationSeconds: ev.Track.Duration.Seconds(),
			},
		}
	case core.EventPlaybackState:
		return proto.PlaybackState{Type: proto.TypePlaybackState, IsPlaying: ev.Playing}
	default:
		return nil
	}
}
