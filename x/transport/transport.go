// Package transport defines the connection abstraction the frame codec runs
// over. Concrete transports (x/transport/tcp) own the sockets, the encoding
// negotiation handshake and the per-operation deadlines; everything above
// them sees framed payload bytes.
package transport

import (
	"time"
)

// Config defines runtime parameters shared by transport implementations.
type Config struct {
	ListenAddr     string
	MaxConnections int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// MaxMessageSize caps inbound frame payloads. Zero means unlimited.
	MaxMessageSize uint32

	// Encoding is the compression applied to outbound frames, "" for none.
	// It must resolve against the built-in provider set.
	Encoding string

	// AcceptEncodings lists the encodings this side can decode, in
	// preference order. Advertised to the peer during the handshake.
	AcceptEncodings []string

	// WriteRate limits outbound frames per second per connection.
	// Zero disables limiting. WriteBurst defaults to 1 when unset.
	WriteRate  float64
	WriteBurst int
}

// ConnectionInfo is a point-in-time snapshot of one connection.
type ConnectionInfo struct {
	ID            string    `json:"id"`
	RemoteAddr    string    `json:"remote_addr"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastSeen      time.Time `json:"last_seen"`
	SendEncoding  string    `json:"send_encoding,omitempty"`
	RecvEncoding  string    `json:"recv_encoding,omitempty"`
	BytesRead     uint64    `json:"bytes_read"`
	BytesWritten  uint64    `json:"bytes_written"`
	FramesRead    uint64    `json:"frames_read"`
	FramesWritten uint64    `json:"frames_written"`
}

// Connection is one negotiated peer link. Read and write sides may be used
// from different goroutines, but each side belongs to a single flow at a
// time: no concurrent reads, no concurrent frame interleaving on writes.
type Connection interface {
	// ID returns the connection ID assigned at accept/dial time.
	ID() string

	// Info returns a snapshot of connection metadata and counters.
	Info() ConnectionInfo

	// ReadPayload blocks for the next frame and returns its decoded
	// payload bytes. io.EOF means the peer closed cleanly at a frame
	// boundary; frame.ErrTimeout means the read deadline expired.
	ReadPayload() ([]byte, error)

	// WritePayload frames payload and flushes it, honoring the write
	// deadline and the configured rate limit.
	WritePayload(payload []byte) error

	// CloseWithReason logs why the connection is going away, then closes.
	CloseWithReason(reason string) error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// ConnectionStore abstracts the server's live-connection registry.
type ConnectionStore interface {
	Set(id string, conn Connection)
	Get(id string) (Connection, bool)
	Remove(id string)
	Count() int
	Items() map[string]Connection
}
