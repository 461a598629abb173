package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/framewire-net/framewire/x/frame"
	"github.com/framewire-net/framewire/x/transport"
)

// TimeoutConfig contains timeout settings for connection operations.
type TimeoutConfig struct {
	Handshake time.Duration // Timeout for the encoding negotiation handshake (default: 5s)
	Read      time.Duration // Timeout for read operations, also acts as idle timeout (default: 30s)
	Write     time.Duration // Timeout for write operations (default: 20s)
}

// DefaultTimeoutConfig returns production-ready timeout defaults.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Handshake: 5 * time.Second,
		Read:      30 * time.Second,
		Write:     20 * time.Second,
	}
}

// connection implements transport.Connection over one framed TCP stream.
// The call context is nil until the handshake completes; handshake frames
// themselves run on a plain uncompressed context.
type connection struct {
	net.Conn
	id       string
	log      zerolog.Logger
	timeouts TimeoutConfig

	mu sync.RWMutex
	cc *frame.CallContext

	// Metadata
	info transport.ConnectionInfo

	// Buffered I/O
	reader  *bufio.Reader
	writer  *bufio.Writer
	writeMu sync.Mutex
	limiter *rate.Limiter

	// Metrics
	bytesRead     uint64
	bytesWritten  uint64
	framesRead    uint64
	framesWritten uint64

	closeOnce sync.Once
	closeErr  error
}

// newConnection wraps netConn. The call context is installed later by the
// handshake; until then only raw (plain-context) frames may flow.
func newConnection(netConn net.Conn, id string, log zerolog.Logger, timeouts TimeoutConfig) *connection {
	now := time.Now()

	return &connection{
		Conn:     netConn,
		id:       id,
		log:      log.With().Str("conn_id", id).Logger(),
		timeouts: timeouts,
		reader:   bufio.NewReaderSize(netConn, 16384),
		writer:   bufio.NewWriterSize(netConn, 16384),
		info: transport.ConnectionInfo{
			ID:          id,
			RemoteAddr:  netConn.RemoteAddr().String(),
			ConnectedAt: now,
			LastSeen:    now,
		},
	}
}

// setCallContext installs the negotiated call context. Called exactly once,
// by the handshake, before any message frames flow.
func (c *connection) setCallContext(cc *frame.CallContext) {
	c.mu.Lock()
	c.cc = cc
	c.info.SendEncoding = cc.SendEncoding()
	c.info.RecvEncoding = cc.RecvEncoding()
	c.mu.Unlock()
}

// setWriteLimit installs a token-bucket limiter on outbound frames.
func (c *connection) setWriteLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (c *connection) callContext() *frame.CallContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cc == nil {
		return frame.Plain()
	}
	return c.cc
}

// ReadPayload reads one frame and returns its payload.
func (c *connection) ReadPayload() ([]byte, error) {
	if c.timeouts.Read > 0 {
		if err := c.SetReadDeadline(time.Now().Add(c.timeouts.Read)); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	payload, err := frame.ReadFrame(c.reader, c.callContext())
	if err != nil {
		return nil, err
	}

	c.updateLastSeen()
	atomic.AddUint64(&c.framesRead, 1)
	atomic.AddUint64(&c.bytesRead, uint64(len(payload)))

	return payload, nil
}

// WritePayload frames payload and flushes it to the socket. The write mutex
// keeps frames from different goroutines from interleaving mid-frame.
func (c *connection) WritePayload(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.limiter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeouts.Write)
		err := c.limiter.Wait(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: write rate limit: %v", frame.ErrTimeout, err)
		}
	}

	if c.timeouts.Write > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(c.timeouts.Write)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	if err := frame.WriteFrame(c.writer, payload, c.callContext()); err != nil {
		return err
	}
	if err := c.writer.Flush(); err != nil {
		return frame.WrapIOError("flush frame", err)
	}

	atomic.AddUint64(&c.framesWritten, 1)
	atomic.AddUint64(&c.bytesWritten, uint64(len(payload)))
	return nil
}

// ID returns the connection ID.
func (c *connection) ID() string {
	return c.id
}

// Info returns connection information.
func (c *connection) Info() transport.ConnectionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := c.info
	info.BytesRead = atomic.LoadUint64(&c.bytesRead)
	info.BytesWritten = atomic.LoadUint64(&c.bytesWritten)
	info.FramesRead = atomic.LoadUint64(&c.framesRead)
	info.FramesWritten = atomic.LoadUint64(&c.framesWritten)

	return info
}

func (c *connection) updateLastSeen() {
	c.mu.Lock()
	c.info.LastSeen = time.Now()
	c.mu.Unlock()
}

// CloseWithReason logs the reason before closing the connection.
func (c *connection) CloseWithReason(reason string) error {
	c.log.Info().Str("reason", reason).Msg("Closing connection")
	return c.Close()
}

// Close tears the socket down. Idempotent.
func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}
