package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/config"
	"github.com/dataO1/hush-fm/internal/core"
	"github.com/dataO1/hush-fm/internal/playback"
	"github.com/dataO1/hush-fm/internal/proto"
)

// WSHandler upgrades connections and bridges them to the coordination core.
// One goroutine per direction; the read loop owns the transport's lifecycle
// from register to cleanup.
type WSHandler struct {
	registry  *core.Registry
	directory *core.Directory
	relay     *core.Relay
	binder    *core.Binder
	engine    *playback.Engine
	catalog   *playback.Catalog
	cfg       *config.Config
	log       *zerolog.Logger
}

// NewWSHandler builds the websocket handler.
func NewWSHandler(registry *core.Registry, directory *core.Directory, relay *core.Relay,
	binder *core.Binder, engine *playback.Engine, catalog *playback.Catalog,
	cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry:  registry,
		directory: directory,
		relay:     relay,
		binder:    binder,
		engine:    engine,
		catalog:   catalog,
		cfg:       cfg,
		log:       logger,
	}
}

// Handle serves GET /ws.
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sess := &wsSession{
		h:       h,
		conn:    conn,
		t:       newWSTransport(h.log),
		limiter: newRateLimiter(h.cfg.SignalRateLimit),
	}

	h.log.Debug().Msg("ws connection opened")

	errCh := make(chan error, 2)
	go func() {
		errCh <- sess.readLoop(ctx)
	}()
	go func() {
		errCh <- sess.t.writeLoop(ctx, conn, h.writeTimeout())
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	sess.cleanup()

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", sess.clientID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) writeTimeout() time.Duration {
	if h.cfg.WriteTimeout > 0 {
		return h.cfg.WriteTimeout
	}
	return 5 * time.Second
}

// wsSession is the per-connection state machine: connect, register, message
// loop, cleanup.
type wsSession struct {
	h       *WSHandler
	conn    *websocket.Conn
	t       *wsTransport
	limiter *rateLimiter

	clientID string
	roomID   string
}

func (s *wsSession) readLoop(ctx context.Context) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}

		if !s.limiter.allow() {
			s.t.deliverError("rate_limited", "too many messages")
			continue
		}

		var msg proto.Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.t.deliverError(core.ErrCodeBadRequest, "invalid message")
			continue
		}
		s.dispatch(msg, data)
	}
}

func (s *wsSession) dispatch(msg proto.Inbound, raw []byte) {
	switch msg.Type {
	case proto.TypeRegister:
		s.handleRegister(msg)
	case proto.TypeOffer, proto.TypeAnswer, proto.TypeCandidate:
		s.handleSignal(msg)
	case proto.TypeLoad:
		s.handleLoad(msg)
	case proto.TypePlay, proto.TypePause, proto.TypeStop:
		s.handlePlayback(msg.Type)
	case proto.TypeSeek, proto.TypeVolume:
		s.handleControl(raw)
	default:
		s.t.deliverError(core.ErrCodeBadRequest, "unknown message type")
	}
}

// handleRegister attaches the transport. Registering with a room id delivers
// a membership snapshot; without one it subscribes to lobby room updates.
// Buffered signals for this client are flushed before any live ones.
func (s *wsSession) handleRegister(msg proto.Inbound) {
	if msg.ClientID == "" {
		s.t.deliverError(core.ErrCodeBadRequest, "client_id is required")
		return
	}
	if !s.h.registry.Known(msg.ClientID) {
		s.t.deliverError(core.ErrCodeUnknownIdentity, core.ErrUnknownIdentity.Error())
		return
	}

	s.clientID = msg.ClientID
	s.roomID = msg.RoomID
	s.h.relay.BindAndFlush(msg.ClientID, s.t)

	if msg.RoomID == "" {
		s.h.binder.SubscribeLobby(msg.ClientID)
		s.t.Deliver(&core.Event{Kind: core.EventRoomUpdate, Rooms: s.h.directory.ListRooms()})
		s.h.log.Info().Str("client_id", msg.ClientID).Msg("client registered in lobby")
		return
	}

	if ev, ok := s.h.directory.RoomState(msg.RoomID); ok {
		s.t.Deliver(ev)
	}
	s.h.log.Info().Str("client_id", msg.ClientID).Str("room_id", msg.RoomID).Msg("client registered")
}

func (s *wsSession) handleSignal(msg proto.Inbound) {
	if s.clientID == "" {
		s.t.deliverError(core.ErrCodeBadRequest, "register first")
		return
	}
	if msg.To == "" {
		s.h.log.Warn().Str("type", msg.Type).Str("from", s.clientID).Msg("signal without target")
		return
	}
	s.h.relay.Send(&core.Signal{
		Type:    msg.Type,
		From:    s.clientID,
		To:      msg.To,
		Payload: msg.Payload,
	})
}

// dj returns the caller's room when the caller is its DJ.
func (s *wsSession) dj() (string, bool) {
	if s.clientID == "" || s.roomID == "" {
		return "", false
	}
	room, ok := s.h.directory.Room(s.roomID)
	if !ok || room.DJ() != s.clientID {
		return "", false
	}
	return s.roomID, true
}

func (s *wsSession) handleLoad(msg proto.Inbound) {
	roomID, ok := s.dj()
	if !ok {
		s.t.deliverError(core.ErrCodeForbidden, core.ErrForbidden.Error())
		return
	}
	if msg.Track == nil || msg.Track.Locator == "" {
		s.t.deliverError(core.ErrCodeBadRequest, "track locator is required")
		return
	}

	duration := time.Duration(msg.Track.DurationSeconds * float64(time.Second))
	track := s.h.catalog.Register(msg.Track.Name, msg.Track.Locator, duration)

	if err := s.h.engine.Session(roomID).Load(track); err != nil {
		s.h.log.Warn().Err(err).Str("room_id", roomID).Str("locator", track.Locator).Msg("track load failed")
		s.t.deliverError(core.ErrCodeBadRequest, "cannot open track source")
		return
	}

	s.h.directory.Broadcast(roomID, &core.Event{
		Kind: core.EventTrackChange,
		Room: roomID,
		Track: &core.TrackInfo{
			ID:       track.ID,
			Name:     track.Name,
			Duration: track.Duration,
		},
	}, "")
}

func (s *wsSession) handlePlayback(kind string) {
	roomID, ok := s.dj()
	if !ok {
		s.t.deliverError(core.ErrCodeForbidden, core.ErrForbidden.Error())
		return
	}
	session, ok := s.h.engine.Get(roomID)
	if !ok {
		s.t.deliverError(core.ErrCodeBadRequest, "no track loaded")
		return
	}

	var state playback.State
	switch kind {
	case proto.TypePlay:
		state = session.Play()
	case proto.TypePause:
		state = session.Pause()
	case proto.TypeStop:
		state = session.Stop()
	}

	s.h.directory.Broadcast(roomID, &core.Event{
		Kind:    core.EventPlaybackState,
		Room:    roomID,
		Playing: state == playback.StatePlaying,
	}, "")
}

// handleControl passes a DJ control message through to the room verbatim,
// excluding the sender.
func (s *wsSession) handleControl(raw []byte) {
	roomID, ok := s.dj()
	if !ok {
		s.t.deliverError(core.ErrCodeForbidden, core.ErrForbidden.Error())
		return
	}
	s.h.directory.Broadcast(roomID, &core.Event{
		Kind: core.EventControl,
		Room: roomID,
		Raw:  raw,
	}, s.clientID)
}

// cleanup detaches the transport and applies the disconnect policy: a DJ's
// socket loss closes its room, a listener's removes it from membership.
func (s *wsSession) cleanup() {
	if s.clientID == "" {
		return
	}
	if s.h.binder.Detach(s.clientID, s.t) && s.roomID != "" {
		s.h.directory.DropTransport(s.clientID)
	}
	s.h.log.Debug().Str("client_id", s.clientID).Msg("ws connection closed")
}
