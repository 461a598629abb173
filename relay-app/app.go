package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/framewire-net/framewire/internal/network"
	"github.com/framewire-net/framewire/relay-app/config"
	apisrv "github.com/framewire-net/framewire/server/api"
	apimw "github.com/framewire-net/framewire/server/api/middleware"
	"github.com/framewire-net/framewire/x/interval"
	"github.com/framewire-net/framewire/x/transport"
	"github.com/framewire-net/framewire/x/transport/tcp"
)

// App wires the framed TCP relay, the admin HTTP API and metrics together.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	tcpServer *tcp.Server
	apiServer *apisrv.Server
	stats     interval.Runner

	cancel context.CancelFunc
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{
		cfg: cfg,
		log: log.With().Str("component", "app").Logger(),
	}

	if err := app.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	return app, nil
}

func (a *App) initialize() error {
	transportConfig := transport.Config{
		ListenAddr:      a.cfg.Server.ListenAddr,
		MaxConnections:  a.cfg.Server.MaxConnections,
		ReadTimeout:     a.cfg.Server.ReadTimeout,
		WriteTimeout:    a.cfg.Server.WriteTimeout,
		MaxMessageSize:  a.cfg.Server.MaxMessageSize,
		Encoding:        a.cfg.Server.Encoding,
		AcceptEncodings: a.cfg.Server.AcceptEncodings,
		WriteRate:       a.cfg.Server.WriteRate,
		WriteBurst:      a.cfg.Server.WriteBurst,
	}

	a.tcpServer = tcp.NewServer(transportConfig, a.log).WithHandler(a.handleMessage)

	if a.cfg.Metrics.Enabled {
		a.tcpServer = a.tcpServer.WithMetrics(network.NewMetrics())
	}

	s := apisrv.NewServer(a.cfg.API, a.log)
	s.Use(apimw.Recover(a.log))
	s.Use(apimw.RequestID())
	s.Use(apimw.Logger(a.log))

	s.RegisterRoutes(a.tcpServer)

	if a.cfg.Metrics.Enabled {
		s.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	a.apiServer = s

	if a.cfg.Relay.StatsInterval > 0 {
		statsCfg := interval.DefaultConfig(a.log)
		statsCfg.Interval = a.cfg.Relay.StatsInterval
		statsCfg.Handler = a.logStats
		a.stats = interval.NewLocalRunner(statsCfg)
	}

	return nil
}

// logStats emits one periodic summary line about the relay's connections.
func (a *App) logStats(_ context.Context, tick interval.Tick) error {
	a.log.Info().
		Uint64("tick_seq", tick.Seq).
		Int("connections", a.tcpServer.Count()).
		Strs("encodings", a.tcpServer.EncodingNames()).
		Msg("Relay stats")
	return nil
}

// handleMessage relays one inbound payload according to the configured mode.
// Payload bytes pass through opaque: the relay re-frames them per each
// destination's negotiated context but never re-serializes the message.
func (a *App) handleMessage(conn transport.Connection, payload []byte) {
	switch a.cfg.Relay.Mode {
	case "broadcast":
		ctx, cancel := context.WithTimeout(context.Background(), a.broadcastTimeout())
		defer cancel()
		if err := a.tcpServer.Broadcast(ctx, payload, conn.ID()); err != nil {
			a.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("Broadcast failed")
		}
	default: // echo
		if err := conn.WritePayload(payload); err != nil {
			a.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("Echo write failed")
		}
	}
}

// broadcastTimeout bounds one broadcast fan-out. The transport treats a
// zero write timeout as "use the default", so a zero here must not produce
// an already-expired context.
func (a *App) broadcastTimeout() time.Duration {
	if t := a.cfg.Server.WriteTimeout; t > 0 {
		return t
	}
	return tcp.DefaultTimeoutConfig().Write
}

// Run starts the application and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	errCh := make(chan error, 2)

	go func() {
		if err := a.tcpServer.Start(runCtx); err != nil {
			errCh <- fmt.Errorf("tcp server: %w", err)
		}
	}()

	go func() {
		if err := a.apiServer.Start(runCtx); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if a.stats != nil {
		if err := a.stats.Start(runCtx); err != nil {
			return fmt.Errorf("stats runner: %w", err)
		}
		defer a.stats.Stop(context.Background())
	}

	return a.runWithGracefulShutdown(runCtx, errCh)
}

// runWithGracefulShutdown handles shutdown signals.
func (a *App) runWithGracefulShutdown(ctx context.Context, errCh <-chan error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info().Msg("Framewire relay started successfully")

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info().Msg("Context canceled, initiating shutdown")
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		a.log.Error().Err(err).Msg("Server failed")
		runErr = err
	}

	if a.cancel != nil {
		a.cancel()
	}

	// Give the servers a moment to drain connections.
	deadline := time.After(10 * time.Second)
	for a.tcpServer.Count() > 0 {
		select {
		case <-deadline:
			a.log.Warn().Int("remaining", a.tcpServer.Count()).Msg("Shutdown deadline hit with live connections")
			return runErr
		case <-time.After(50 * time.Millisecond):
		}
	}

	a.log.Info().Msg("Graceful shutdown complete")
	return runErr
}
