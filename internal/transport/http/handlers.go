package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/config"
	"github.com/dataO1/hush-fm/internal/core"
	"github.com/dataO1/hush-fm/internal/tokens"
)

// API provides the REST handlers for identity, rooms, presence and tokens.
type API struct {
	registry  *core.Registry
	directory *core.Directory
	presence  *core.Presence
	tokens    *tokens.Service
	cfg       *config.Config
	log       *zerolog.Logger
}

// NewAPI creates the REST handler set.
func NewAPI(registry *core.Registry, directory *core.Directory, presence *core.Presence,
	tok *tokens.Service, cfg *config.Config, logger *zerolog.Logger) *API {
	return &API{
		registry:  registry,
		directory: directory,
		presence:  presence,
		tokens:    tok,
		cfg:       cfg,
		log:       logger,
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"ok": false, "error": msg})
}

func failErr(c *gin.Context, err error) {
	fail(c, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownRoom):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDJConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// IdentifyRequest resumes or creates an identity.
type IdentifyRequest struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// Identify handles POST /api/identify. Idempotent; an unknown client_id
// silently falls through to creating a fresh identity.
func (a *API) Identify(c *gin.Context) {
	var req IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ident := a.registry.Identify(req.ClientID, req.Name)
	c.JSON(http.StatusOK, gin.H{"ok": true, "client_id": ident.ID, "name": ident.Name})
}

// ListRooms handles GET /api/rooms.
func (a *API) ListRooms(c *gin.Context) {
	summaries := a.directory.ListRooms()
	c.JSON(http.StatusOK, gin.H{"ok": true, "rooms": summariesToProto(summaries)})
}

// CreateRoomRequest creates (or reuses) the caller's room.
type CreateRoomRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	Name     string `json:"name"`
}

// CreateRoom handles POST /api/rooms. Creation is idempotent per DJ: a
// second call returns the same room with existing=true.
func (a *API) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "client_id is required")
		return
	}
	name := req.Name
	if name == "" {
		name = "My Disco"
	}

	roomID, existing, err := a.directory.CreateRoom(req.ClientID, name)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "room_id": roomID, "existing": existing})
}

// JoinRoomRequest joins a room in a given role.
type JoinRoomRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	Role     string `json:"role"`
}

// JoinRoom handles POST /api/rooms/:room_id/join. A dj join against a room
// owned by someone else fails with 409 so clients can tell "pick another
// room" apart from "room is gone".
func (a *API) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "client_id is required")
		return
	}

	role := core.RoleListener
	if req.Role == string(core.RoleDJ) {
		role = core.RoleDJ
	}

	name, err := a.directory.JoinRoom(c.Param("room_id"), req.ClientID, role)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "name": name})
}

// ClientRequest carries just the acting client id.
type ClientRequest struct {
	ClientID string `json:"client_id" binding:"required"`
}

// LeaveRoom handles POST /api/rooms/:room_id/leave. A DJ leaving closes the
// room for everyone.
func (a *API) LeaveRoom(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "client_id is required")
		return
	}

	if err := a.directory.LeaveRoom(c.Param("room_id"), req.ClientID); err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CloseRoom handles POST /api/rooms/:room_id/close. DJ only.
func (a *API) CloseRoom(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "client_id is required")
		return
	}
	if !a.registry.Known(req.ClientID) {
		fail(c, http.StatusBadRequest, core.ErrUnknownIdentity.Error())
		return
	}

	if err := a.directory.CloseRoom(c.Param("room_id"), req.ClientID); err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// HeartbeatRequest refreshes liveness. Clients send one every ~15 seconds.
type HeartbeatRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	RoomID   string `json:"room_id"`
	Role     string `json:"role"`
}

// Heartbeat handles POST /api/presence.
func (a *API) Heartbeat(c *gin.Context) {
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "client_id is required")
		return
	}

	a.presence.Heartbeat(req.ClientID, req.RoomID, core.Role(req.Role))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// TokenRequest asks for a media-relay capability token.
type TokenRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	RoomID   string `json:"room_id" binding:"required"`
	Role     string `json:"role"`
}

// Token handles POST /api/token. Missing LiveKit configuration is an
// operator problem and reported as such, distinct from per-request errors.
func (a *API) Token(c *gin.Context) {
	if !a.tokens.Configured() {
		a.log.Error().Msg("token requested but livekit is not configured")
		fail(c, http.StatusInternalServerError, tokens.ErrNotConfigured.Error())
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "client_id and room_id are required")
		return
	}

	ident, ok := a.registry.Get(req.ClientID)
	if !ok {
		fail(c, http.StatusBadRequest, core.ErrUnknownIdentity.Error())
		return
	}
	if _, ok := a.directory.Room(req.RoomID); !ok {
		fail(c, http.StatusNotFound, core.ErrUnknownRoom.Error())
		return
	}

	token, err := a.tokens.Mint(req.ClientID, req.RoomID, req.Role, ident.Name)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to mint token")
		fail(c, http.StatusInternalServerError, "failed to mint token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": a.tokens.URL(), "token": token})
}

// IceConfig handles GET /config: Google STUN always, TURN when fully configured.
func (a *API) IceConfig(c *gin.Context) {
	servers := []gin.H{
		{"urls": "stun:stun.l.google.com:19302"},
		{"urls": "stun:stun1.l.google.com:19302"},
	}

	if a.cfg.TURNURLs != "" && a.cfg.TURNUsername != "" && a.cfg.TURNCredential != "" {
		urls := make([]string, 0)
		for _, u := range strings.Split(a.cfg.TURNURLs, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) > 0 {
			servers = append(servers, gin.H{
				"urls":       urls,
				"username":   a.cfg.TURNUsername,
				"credential": a.cfg.TURNCredential,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"iceServers": servers})
}
