package compress

import (
	"fmt"

	"github.com/klauspost/compress/snappy"
)

// Snappy trades ratio for speed; useful for chatty low-latency streams.
type Snappy struct{}

var _ Provider = (*Snappy)(nil)

func (*Snappy) Name() string { return "snappy" }

func (*Snappy) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (*Snappy) Decompress(src []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress: %w", err)
	}
	return out, nil
}
