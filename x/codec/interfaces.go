// Package codec holds the message serialization layer injected into the
// frame codec: it turns typed messages into the raw payload bytes that get
// framed, and back. Length-prefixing and compression live one layer down in
// x/frame; codecs here deal purely in message bytes.
package codec

// Codec defines the message encoding/decoding interface.
type Codec interface {
	// Name identifies the serialization format, e.g. "proto" or "json".
	Name() string

	// Encode serializes msg to raw payload bytes.
	Encode(msg any) ([]byte, error)

	// Decode deserializes data into msg. An empty data slice is valid and
	// must yield a default-constructed message.
	Decode(data []byte, msg any) error
}

// Registry manages multiple codec implementations.
type Registry interface {
	Register(name string, codec Codec)
	Get(name string) (Codec, bool)
	Default() Codec
}
