package codec

import (
	"encoding/json"
)

// JSONCodec uses encoding/json. Human-readable and cross-language; slower
// and larger on the wire than protobuf. Handshake frames use it so peers can
// negotiate before agreeing on a message format.
type JSONCodec struct{}

func (*JSONCodec) Name() string { return "json" }

func (*JSONCodec) Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (*JSONCodec) Decode(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
