package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ProtobufCodec serializes proto.Message values. Decode of an empty payload
// leaves the target message in its default state, which protobuf treats as a
// valid zero message.
type ProtobufCodec struct{}

// NewProtobufCodec creates a new protobuf codec.
func NewProtobufCodec() *ProtobufCodec {
	return &ProtobufCodec{}
}

func (*ProtobufCodec) Name() string { return "proto" }

func (*ProtobufCodec) Encode(msg any) ([]byte, error) {
	pm, ok := msg.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("proto codec: %T does not implement proto.Message", msg)
	}
	data, err := proto.Marshal(pm)
	if err != nil {
		return nil, fmt.Errorf("proto codec: marshal: %w", err)
	}
	return data, nil
}

func (*ProtobufCodec) Decode(data []byte, msg any) error {
	pm, ok := msg.(proto.Message)
	if !ok {
		return fmt.Errorf("proto codec: %T does not implement proto.Message", msg)
	}
	if err := proto.Unmarshal(data, pm); err != nil {
		return fmt.Errorf("proto codec: unmarshal: %w", err)
	}
	return nil
}
