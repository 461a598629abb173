package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/framewire-net/framewire/internal/network"
	"github.com/framewire-net/framewire/x/compress"
	"github.com/framewire-net/framewire/x/frame"
	"github.com/framewire-net/framewire/x/transport"
)

// Handler is invoked once per decoded inbound payload. It runs on the
// connection's read goroutine; long work should be handed off.
type Handler func(conn transport.Connection, payload []byte)

// Server accepts framed TCP connections, negotiates an encoding with each
// peer and pumps inbound payloads to the handler.
type Server struct {
	cfg       transport.Config
	log       zerolog.Logger
	providers compress.ProviderTable
	handler   Handler
	metrics   *network.Metrics
	timeouts  TimeoutConfig

	conns transport.ConnectionStore

	mtx      sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a TCP server with the built-in compression providers.
func NewServer(cfg transport.Config, log zerolog.Logger) *Server {
	timeouts := DefaultTimeoutConfig()
	if cfg.ReadTimeout > 0 {
		timeouts.Read = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		timeouts.Write = cfg.WriteTimeout
	}

	return &Server{
		cfg:       cfg,
		log:       log.With().Str("component", "tcp-server").Logger(),
		providers: compress.Resolve(compress.BuiltIn()...),
		timeouts:  timeouts,
		conns:     newConnStore(),
	}
}

// WithProviders replaces the provider table consulted during negotiation.
func (s *Server) WithProviders(providers ...compress.Provider) *Server {
	s.providers = compress.Resolve(providers...)
	return s
}

// WithHandler sets the inbound payload handler.
func (s *Server) WithHandler(h Handler) *Server {
	s.handler = h
	return s
}

// WithMetrics enables network metrics collection.
func (s *Server) WithMetrics(m *network.Metrics) *Server {
	s.metrics = m
	return s
}

// Start listens and serves until ctx is cancelled, then closes the listener
// and every live connection and waits for the per-connection goroutines.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}

	s.mtx.Lock()
	s.listener = ln
	s.mtx.Unlock()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
		for _, conn := range s.conns.Items() {
			_ = conn.CloseWithReason("server shutting down")
		}
	}()

	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("TCP server starting")

	for {
		netConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Warn().Err(err).Msg("Accept failed")
			continue
		}

		if s.cfg.MaxConnections > 0 && s.conns.Count() >= s.cfg.MaxConnections {
			s.log.Warn().
				Str("remote_addr", netConn.RemoteAddr().String()).
				Int("max", s.cfg.MaxConnections).
				Msg("Connection limit reached, rejecting")
			if s.metrics != nil {
				s.metrics.ConnectionsTotal.WithLabelValues("rejected").Inc()
			}
			_ = netConn.Close()
			continue
		}

		s.wg.Add(1)
		go s.serveConn(netConn)
	}

	s.wg.Wait()
	s.log.Info().Msg("TCP server stopped")
	return nil
}

// Addr returns the bound listener address, useful when listening on :0.
func (s *Server) Addr() net.Addr {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) serveConn(netConn net.Conn) {
	defer s.wg.Done()

	conn := newConnection(netConn, uuid.NewString(), s.log, s.timeouts)
	conn.setWriteLimit(s.cfg.WriteRate, s.cfg.WriteBurst)

	start := time.Now()

	if err := conn.handleHandshake(s.cfg, s.providers); err != nil {
		s.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("Handshake failed")
		if s.metrics != nil {
			s.metrics.ConnectionsTotal.WithLabelValues("handshake_failed").Inc()
		}
		_ = conn.Close()
		return
	}

	s.conns.Set(conn.ID(), conn)
	if s.metrics != nil {
		s.metrics.ConnectionsTotal.WithLabelValues("accepted").Inc()
		s.metrics.ConnectionsActive.Inc()
	}

	defer func() {
		s.conns.Remove(conn.ID())
		_ = conn.Close()
		if s.metrics != nil {
			s.metrics.ConnectionsActive.Dec()
			s.metrics.ConnectionDuration.Observe(time.Since(start).Seconds())
		}
	}()

	s.readLoop(conn)
}

func (s *Server) readLoop(conn transport.Connection) {
	for {
		payload, err := conn.ReadPayload()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				s.log.Debug().Str("conn_id", conn.ID()).Msg("Peer closed connection")
			case errors.Is(err, frame.ErrTimeout):
				s.log.Info().Str("conn_id", conn.ID()).Msg("Idle timeout, dropping connection")
			default:
				s.log.Warn().Err(err).Str("conn_id", conn.ID()).Msg("Read failed")
				if s.metrics != nil {
					s.metrics.ErrorsTotal.WithLabelValues(errorLabel(err)).Inc()
				}
			}
			return
		}

		if s.metrics != nil {
			s.metrics.FramesTotal.WithLabelValues("in").Inc()
			s.metrics.FrameSizeBytes.WithLabelValues("in").Observe(float64(len(payload)))
		}

		if s.handler != nil {
			s.handler(conn, payload)
		}
	}
}

// Broadcast writes payload to every live connection except excludeID.
// Returns the first write error after attempting all connections.
func (s *Server) Broadcast(ctx context.Context, payload []byte, excludeID string) error {
	var firstErr error
	recipients := 0

	for id, conn := range s.conns.Items() {
		if id == excludeID {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := conn.WritePayload(payload); err != nil {
			s.log.Warn().Err(err).Str("conn_id", id).Msg("Broadcast write failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		recipients++
		if s.metrics != nil {
			s.metrics.FramesTotal.WithLabelValues("out").Inc()
			s.metrics.FrameSizeBytes.WithLabelValues("out").Observe(float64(len(payload)))
		}
	}

	if s.metrics != nil {
		s.metrics.BroadcastsTotal.Inc()
		s.metrics.BroadcastRecipients.Observe(float64(recipients))
	}
	return firstErr
}

// Connections returns a snapshot of every live connection.
func (s *Server) Connections() []transport.ConnectionInfo {
	infos := make([]transport.ConnectionInfo, 0, s.conns.Count())
	for _, conn := range s.conns.Items() {
		infos = append(infos, conn.Info())
	}
	return infos
}

// Connection returns the stats of one live connection by id.
func (s *Server) Connection(id string) (transport.ConnectionInfo, bool) {
	conn, ok := s.conns.Get(id)
	if !ok {
		return transport.ConnectionInfo{}, false
	}
	return conn.Info(), true
}

// Count returns the number of live connections.
func (s *Server) Count() int {
	return s.conns.Count()
}

// EncodingNames returns the encodings this server can negotiate.
func (s *Server) EncodingNames() []string {
	return s.providers.Names()
}

func errorLabel(err error) string {
	var fe *frame.FramingError
	var tooLarge *frame.MessageTooLargeError
	var unsupported *frame.UnsupportedEncodingError

	switch {
	case errors.As(err, &fe):
		return "framing"
	case errors.As(err, &tooLarge):
		return "too_large"
	case errors.As(err, &unsupported):
		return "unsupported_encoding"
	case errors.Is(err, frame.ErrTimeout):
		return "timeout"
	default:
		return "io"
	}
}
