package codec

import (
	"sync"
)

// registry implements Registry. Unlike the compression provider table, which
// is resolved once per call with first-registered-wins semantics, this
// registry is process-wide and mutable: a later Register for the same name
// replaces the earlier codec.
type registry struct {
	mu       sync.RWMutex
	codecs   map[string]Codec
	default_ string
}

// NewRegistry creates a new codec registry with protobuf registered as the
// default and json alongside it.
func NewRegistry() Registry {
	r := &registry{
		codecs: make(map[string]Codec),
	}

	r.Register("proto", NewProtobufCodec())
	r.Register("json", &JSONCodec{})
	r.default_ = "proto"

	return r
}

// Register registers a codec with a name.
func (r *registry) Register(name string, codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[name] = codec
}

// Get retrieves a codec by name.
func (r *registry) Get(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codec, exists := r.codecs[name]
	return codec, exists
}

// Default returns the default codec.
func (r *registry) Default() Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.codecs[r.default_]
}
