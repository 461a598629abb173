package tcp

import (
	"fmt"
	"time"

	"github.com/framewire-net/framewire/x/codec"
	"github.com/framewire-net/framewire/x/compress"
	"github.com/framewire-net/framewire/x/frame"
	"github.com/framewire-net/framewire/x/transport"
)

// The handshake is the first exchange on a fresh connection and carries the
// encoding negotiation: the client declares what it will send and what it
// can decode, the server answers with its own outbound choice. Handshake
// frames are always uncompressed JSON on a plain call context; both sides
// build their immutable per-call contexts from the outcome.

type hello struct {
	Encoding        string   `json:"encoding,omitempty"`
	AcceptEncodings []string `json:"accept_encodings,omitempty"`
}

type helloAck struct {
	Accepted  bool   `json:"accepted"`
	Encoding  string `json:"encoding,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

var handshakeCodec codec.Codec = &codec.JSONCodec{}

// performHandshake runs the client side of the negotiation.
func (c *connection) performHandshake(cfg transport.Config, providers compress.ProviderTable) error {
	if err := c.setHandshakeDeadline(); err != nil {
		return err
	}
	defer c.clearDeadline()

	req := hello{
		Encoding:        cfg.Encoding,
		AcceptEncodings: cfg.AcceptEncodings,
	}
	if err := c.writeRawFrame(req); err != nil {
		return fmt.Errorf("failed to send handshake: %w", err)
	}

	var ack helloAck
	if err := c.readRawFrame(&ack); err != nil {
		return fmt.Errorf("failed to read handshake response: %w", err)
	}
	if !ack.Accepted {
		return fmt.Errorf("handshake rejected: %s", ack.Error)
	}

	cc, err := frame.NewCallContext(providers,
		frame.WithSendEncoding(cfg.Encoding),
		frame.WithRecvEncoding(ack.Encoding),
		frame.WithMaxMessageSize(cfg.MaxMessageSize),
	)
	if err != nil {
		return fmt.Errorf("failed to build call context: %w", err)
	}
	c.setCallContext(cc)

	c.log.Info().
		Str("session_id", ack.SessionID).
		Str("send_encoding", cfg.Encoding).
		Str("recv_encoding", ack.Encoding).
		Msg("Handshake successful")

	return nil
}

// handleHandshake runs the server side of the negotiation.
func (c *connection) handleHandshake(cfg transport.Config, providers compress.ProviderTable) error {
	if err := c.setHandshakeDeadline(); err != nil {
		return err
	}
	defer c.clearDeadline()

	var req hello
	if err := c.readRawFrame(&req); err != nil {
		return fmt.Errorf("failed to read handshake: %w", err)
	}

	// The client's outbound encoding is what we must decode; reject what
	// we cannot resolve, or did not declare acceptable, instead of failing
	// mid-stream later.
	if req.Encoding != "" && !acceptsInbound(cfg, req.Encoding, providers) {
		ack := helloAck{
			Accepted: false,
			Error:    fmt.Sprintf("unsupported encoding %q", req.Encoding),
		}
		_ = c.writeRawFrame(ack)
		return &frame.UnsupportedEncodingError{Encoding: req.Encoding}
	}

	sendEncoding := pickEncoding(cfg, req.AcceptEncodings, providers)
	sessionID := fmt.Sprintf("%s-%d", c.id, time.Now().UnixNano())

	ack := helloAck{
		Accepted:  true,
		Encoding:  sendEncoding,
		SessionID: sessionID,
	}
	if err := c.writeRawFrame(ack); err != nil {
		return fmt.Errorf("failed to send handshake response: %w", err)
	}

	cc, err := frame.NewCallContext(providers,
		frame.WithSendEncoding(sendEncoding),
		frame.WithRecvEncoding(req.Encoding),
		frame.WithMaxMessageSize(cfg.MaxMessageSize),
	)
	if err != nil {
		return fmt.Errorf("failed to build call context: %w", err)
	}
	c.setCallContext(cc)

	c.log.Info().
		Str("session_id", sessionID).
		Str("send_encoding", sendEncoding).
		Str("recv_encoding", req.Encoding).
		Msg("Client negotiated")

	return nil
}

// pickEncoding chooses the server's outbound encoding. The configured
// preference wins when the client accepts it; otherwise the client's accept
// list is walked in order, restricted to cfg.AcceptEncodings when that is
// set. Returns "" for uncompressed.
func pickEncoding(cfg transport.Config, clientAccepts []string, providers compress.ProviderTable) string {
	if cfg.Encoding != "" {
		if _, ok := providers.Lookup(cfg.Encoding); ok && contains(clientAccepts, cfg.Encoding) {
			return cfg.Encoding
		}
	}

	for _, name := range clientAccepts {
		if len(cfg.AcceptEncodings) > 0 && !contains(cfg.AcceptEncodings, name) {
			continue
		}
		if _, ok := providers.Lookup(name); ok {
			return name
		}
	}
	return ""
}

// acceptsInbound reports whether we can decode frames compressed with name:
// the provider must resolve and, when cfg.AcceptEncodings is set, the name
// must be listed there.
func acceptsInbound(cfg transport.Config, name string, providers compress.ProviderTable) bool {
	if _, ok := providers.Lookup(name); !ok {
		return false
	}
	return len(cfg.AcceptEncodings) == 0 || contains(cfg.AcceptEncodings, name)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// writeRawFrame sends v as an uncompressed JSON frame (for the handshake).
func (c *connection) writeRawFrame(v any) error {
	data, err := handshakeCodec.Encode(v)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := frame.WriteFrame(c.writer, data, frame.Plain()); err != nil {
		return err
	}
	if err := c.writer.Flush(); err != nil {
		return frame.WrapIOError("flush frame", err)
	}
	return nil
}

// readRawFrame reads an uncompressed JSON frame into v.
func (c *connection) readRawFrame(v any) error {
	payload, err := frame.ReadFrame(c.reader, frame.Plain())
	if err != nil {
		return err
	}
	return handshakeCodec.Decode(payload, v)
}

func (c *connection) setHandshakeDeadline() error {
	if c.timeouts.Handshake <= 0 {
		return nil
	}
	return c.SetDeadline(time.Now().Add(c.timeouts.Handshake))
}

func (c *connection) clearDeadline() {
	_ = c.SetDeadline(time.Time{})
}
