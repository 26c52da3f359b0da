package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/config"
)

// NewServer builds the HTTP server: REST API, websocket endpoint and the
// optional static client shell.
func NewServer(api *API, ws *WSHandler, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger))

	r.GET("/healthz", healthHandler)
	r.GET("/config", api.IceConfig)
	r.GET("/ws", ws.Handle)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/identify", api.Identify)
		apiGroup.GET("/rooms", api.ListRooms)
		apiGroup.POST("/rooms", api.CreateRoom)
		apiGroup.POST("/rooms/:room_id/join", api.JoinRoom)
		apiGroup.POST("/rooms/:room_id/leave", api.LeaveRoom)
		apiGroup.POST("/rooms/:room_id/close", api.CloseRoom)
		apiGroup.POST("/presence", api.Heartbeat)
		apiGroup.POST("/token", api.Token)
	}

	if cfg.WebDir != "" {
		r.NoRoute(gin.WrapH(stdhttp.FileServer(stdhttp.Dir(cfg.WebDir))))
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
