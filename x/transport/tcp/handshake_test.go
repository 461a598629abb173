package tcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/framewire-net/framewire/x/compress"
	"github.com/framewire-net/framewire/x/transport"
)

func TestPickEncoding(t *testing.T) {
	t.Parallel()

	table := compress.Resolve(compress.BuiltIn()...)

	tests := []struct {
		name     string
		cfg      transport.Config
		accepted []string
		want     string
	}{
		{name: "first acceptable wins", accepted: []string{"zstd", "gzip"}, want: "zstd"},
		{name: "skips unknown entries", accepted: []string{"lz4", "gzip"}, want: "gzip"},
		{name: "nothing in common", accepted: []string{"lz4", "brotli"}, want: ""},
		{name: "empty accept list", accepted: nil, want: ""},
		{name: "case sensitive", accepted: []string{"GZIP"}, want: ""},
		{
			name:     "configured preference wins over client order",
			cfg:      transport.Config{Encoding: "snappy"},
			accepted: []string{"zstd", "snappy"},
			want:     "snappy",
		},
		{
			name:     "preference ignored when client does not accept it",
			cfg:      transport.Config{Encoding: "snappy"},
			accepted: []string{"zstd", "gzip"},
			want:     "zstd",
		},
		{
			name:     "candidates restricted to configured accept list",
			cfg:      transport.Config{AcceptEncodings: []string{"gzip"}},
			accepted: []string{"zstd", "gzip"},
			want:     "gzip",
		},
		{
			name:     "restriction can force uncompressed",
			cfg:      transport.Config{AcceptEncodings: []string{"lz4"}},
			accepted: []string{"zstd", "gzip"},
			want:     "",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, pickEncoding(tc.cfg, tc.accepted, table))
		})
	}
}

func TestAcceptsInbound(t *testing.T) {
	t.Parallel()

	table := compress.Resolve(compress.BuiltIn()...)

	assert.True(t, acceptsInbound(transport.Config{}, "gzip", table))
	assert.False(t, acceptsInbound(transport.Config{}, "lz4", table))
	assert.True(t, acceptsInbound(transport.Config{AcceptEncodings: []string{"gzip"}}, "gzip", table))
	assert.False(t, acceptsInbound(transport.Config{AcceptEncodings: []string{"zstd"}}, "gzip", table))
}
