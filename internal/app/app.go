package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/config"
	"github.com/dataO1/hush-fm/internal/core"
	"github.com/dataO1/hush-fm/internal/log"
	"github.com/dataO1/hush-fm/internal/playback"
	"github.com/dataO1/hush-fm/internal/tokens"
	transporthttp "github.com/dataO1/hush-fm/internal/transport/http"
)

// App wires together the coordination core, playback engine and transport.
type App struct {
	server   *stdhttp.Server
	presence *core.Presence
	engine   *playback.Engine
	cfg      *config.Config
	log      *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	registry := core.NewRegistry(log.Component(logger, "registry"))
	binder := core.NewBinder(log.Component(logger, "binder"))
	directory := core.NewDirectory(registry, binder, cfg.StaleWindow, log.Component(logger, "directory"))
	relay := core.NewRelay(binder, log.Component(logger, "relay"))
	presence := core.NewPresence(registry, directory, log.Component(logger, "presence"))

	catalog := playback.NewCatalog()
	format := playback.Format{
		SampleRate:    cfg.SampleRate,
		Channels:      cfg.Channels,
		FrameDuration: cfg.FrameDuration,
	}
	engine := playback.NewEngine(format, playback.OpenPCM, func(frame playback.Frame) {
		directory.BroadcastFrame(frame.Room, frame.Encode())
	}, log.Component(logger, "playback"))
	directory.SetCloseHook(engine.Close)

	tok := tokens.New(cfg.LiveKitURL, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
	if !tok.Configured() {
		logger.Warn().Msg("livekit not configured, token endpoint will fail")
	}

	api := transporthttp.NewAPI(registry, directory, presence, tok, cfg, log.Component(logger, "api"))
	ws := transporthttp.NewWSHandler(registry, directory, relay, binder, engine, catalog, cfg, log.Component(logger, "ws"))
	server := transporthttp.NewServer(api, ws, cfg, logger)

	return &App{
		server:   server,
		presence: presence,
		engine:   engine,
		cfg:      cfg,
		log:      logger,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.presence.RunSweep(ctx, a.cfg.SweepInterval, a.cfg.EvictAfter)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().Str("addr", a.cfg.Addr).Msg("hush-fm signaling server listening")

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.ShutdownTimeout > 0 {
		return a.cfg.ShutdownTimeout
	}
	return 5 * time.Second
}

func (a *App) cleanup() {
	a.engine.Shutdown()
	a.log.Info().Msg("playback engine stopped")
}
