package frame

import (
	"github.com/framewire-net/framewire/x/compress"
)

// CallContext is the immutable per-call configuration consulted by every
// frame operation: which compression applies in each direction, the resolved
// provider table, and the inbound size limit. Build one per logical call from
// the negotiated transport headers and discard it when the call ends. A
// CallContext must not be shared across concurrent calls; the provider table
// inside it may be.
type CallContext struct {
	sendEncoding   string
	recvEncoding   string
	providers      compress.ProviderTable
	maxMessageSize uint32
}

// CallOption configures a CallContext during construction.
type CallOption func(*CallContext)

// WithSendEncoding sets the compression applied to outbound frames. The name
// must resolve in the provider table; NewCallContext rejects it otherwise.
func WithSendEncoding(name string) CallOption {
	return func(cc *CallContext) { cc.sendEncoding = name }
}

// WithRecvEncoding sets the compression the peer negotiated for inbound
// frames. Resolution is deferred to decode time: the peer may never actually
// send a compressed frame.
func WithRecvEncoding(name string) CallOption {
	return func(cc *CallContext) { cc.recvEncoding = name }
}

// WithMaxMessageSize caps the declared payload length accepted on decode
// and produced on encode. Zero means unlimited.
func WithMaxMessageSize(n uint32) CallOption {
	return func(cc *CallContext) { cc.maxMessageSize = n }
}

// NewCallContext builds a call context over the given provider table. A
// non-empty send encoding that does not resolve in the table is a
// configuration error surfaced here, never deferred to write time.
func NewCallContext(providers compress.ProviderTable, opts ...CallOption) (*CallContext, error) {
	cc := &CallContext{providers: providers}
	for _, opt := range opts {
		opt(cc)
	}

	if cc.sendEncoding != "" {
		if _, ok := cc.providers.Lookup(cc.sendEncoding); !ok {
			return nil, &UnsupportedEncodingError{Encoding: cc.sendEncoding}
		}
	}

	return cc, nil
}

// Plain returns a context with no compression in either direction and no
// size limit. Handshake frames and tests use it.
func Plain() *CallContext {
	return &CallContext{}
}

// SendEncoding returns the outbound encoding name, "" when uncompressed.
func (cc *CallContext) SendEncoding() string { return cc.sendEncoding }

// RecvEncoding returns the negotiated inbound encoding name, "" when none.
func (cc *CallContext) RecvEncoding() string { return cc.recvEncoding }

// MaxMessageSize returns the payload cap, 0 when unlimited.
func (cc *CallContext) MaxMessageSize() uint32 { return cc.maxMessageSize }

func (cc *CallContext) sendProvider() (compress.Provider, bool) {
	if cc.sendEncoding == "" {
		return nil, false
	}
	return cc.providers.Lookup(cc.sendEncoding)
}

func (cc *CallContext) recvProvider() (compress.Provider, bool) {
	if cc.recvEncoding == "" {
		return nil, false
	}
	return cc.providers.Lookup(cc.recvEncoding)
}
