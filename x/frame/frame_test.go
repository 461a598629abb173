package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framewire-net/framewire/x/compress"
)

func mustCallContext(t *testing.T, providers compress.ProviderTable, opts ...CallOption) *CallContext {
	t.Helper()
	cc, err := NewCallContext(providers, opts...)
	require.NoError(t, err)
	return cc
}

func TestWriteFrame_UncompressedWireLayout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello"), Plain()))

	want := []byte{0x00, 0x00, 0x00, 0x00, 0x05, 'h', 'e', 'l', 'l', 'o'}
	assert.Equal(t, want, buf.Bytes())

	payload, err := ReadFrame(&buf, Plain())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), payload)
}

func TestFrame_RoundTripPerProvider(t *testing.T) {
	t.Parallel()

	table := compress.Resolve(compress.BuiltIn()...)
	message := bytes.Repeat([]byte("payload bytes "), 32)

	encodings := append([]string{""}, table.Names()...)
	for _, name := range encodings {
		name := name
		t.Run("encoding="+name, func(t *testing.T) {
			t.Parallel()

			var opts []CallOption
			if name != "" {
				opts = []CallOption{WithSendEncoding(name), WithRecvEncoding(name)}
			}
			cc := mustCallContext(t, table, opts...)

			var buf bytes.Buffer
			require.NoError(t, WriteFrame(&buf, message, cc))

			payload, err := ReadFrame(&buf, cc)
			require.NoError(t, err)
			assert.Equal(t, message, payload)
		})
	}
}

func TestWriteFrame_CompressedSetsFlag(t *testing.T) {
	t.Parallel()

	table := compress.Resolve(&compress.Gzip{})
	cc := mustCallContext(t, table, WithSendEncoding("gzip"))

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, bytes.Repeat([]byte("a"), 512), cc))

	wire := buf.Bytes()
	assert.EqualValues(t, 0x01, wire[0])
	assert.Len(t, wire[HeaderSize:], int(uint32(wire[1])<<24|uint32(wire[2])<<16|uint32(wire[3])<<8|uint32(wire[4])))
}

func TestReadFrame_ZeroLengthPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, nil, Plain()))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x00}, buf.Bytes())

	payload, err := ReadFrame(&buf, Plain())
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestReadFrame_CleanEndOfStream(t *testing.T) {
	t.Parallel()

	_, err := ReadFrame(bytes.NewReader(nil), Plain())
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_TruncatedLengthHeader(t *testing.T) {
	t.Parallel()

	_, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x00, 0x00}), Plain())

	var fe *FramingError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "truncated length header")
}

func TestReadFrame_TruncatedPayload(t *testing.T) {
	t.Parallel()

	wire := []byte{0x00, 0x00, 0x00, 0x00, 0x0A, 'p', 'a', 'r', 't'}
	_, err := ReadFrame(bytes.NewReader(wire), Plain())

	var fe *FramingError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "truncated payload")
}

func TestReadFrame_InvalidFlag(t *testing.T) {
	t.Parallel()

	wire := []byte{0x7F, 0x00, 0x00, 0x00, 0x00}
	_, err := ReadFrame(bytes.NewReader(wire), Plain())

	var fe *FramingError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "invalid frame flag")
}

func TestReadFrame_OversizedDoesNotConsumePayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, bytes.Repeat([]byte{0xEE}, 1024), Plain()))

	cc := mustCallContext(t, nil, WithMaxMessageSize(16))
	r := bytes.NewReader(buf.Bytes())

	_, err := ReadFrame(r, cc)

	var tooLarge *MessageTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.EqualValues(t, 1024, tooLarge.Size)
	assert.EqualValues(t, 16, tooLarge.Limit)

	// Only the 5-byte header may have been consumed.
	assert.Equal(t, 1024, r.Len())
}

func TestReadFrame_CompressedFlagWithoutNegotiatedEncoding(t *testing.T) {
	t.Parallel()

	wire := []byte{0x01, 0x00, 0x00, 0x00, 0x01, 0xAB}
	_, err := ReadFrame(bytes.NewReader(wire), Plain())

	var fe *FramingError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "no encoding negotiated")
}

func TestReadFrame_UnsupportedEncoding(t *testing.T) {
	t.Parallel()

	// Negotiated name present, matching provider absent from the table.
	cc := mustCallContext(t, compress.Resolve(), WithRecvEncoding("gzip"))

	wire := []byte{0x01, 0x00, 0x00, 0x00, 0x01, 0xAB}
	_, err := ReadFrame(bytes.NewReader(wire), cc)

	var unsupported *UnsupportedEncodingError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "gzip", unsupported.Encoding)
}

func TestReadFrame_CorruptCompressedPayload(t *testing.T) {
	t.Parallel()

	table := compress.Resolve(&compress.Gzip{})
	cc := mustCallContext(t, table, WithRecvEncoding("gzip"))

	wire := []byte{0x01, 0x00, 0x00, 0x00, 0x03, 0x01, 0x02, 0x03}
	_, err := ReadFrame(bytes.NewReader(wire), cc)

	var fe *FramingError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "decompress")
}

func TestWriteFrame_EnforcesMaxMessageSize(t *testing.T) {
	t.Parallel()

	cc := mustCallContext(t, nil, WithMaxMessageSize(8))

	var buf bytes.Buffer
	err := WriteFrame(&buf, bytes.Repeat([]byte{0x01}, 9), cc)

	var tooLarge *MessageTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Zero(t, buf.Len())
}

func TestNewCallContext_RejectsUnresolvableSendEncoding(t *testing.T) {
	t.Parallel()

	_, err := NewCallContext(compress.Resolve(&compress.Gzip{}), WithSendEncoding("zstd"))

	var unsupported *UnsupportedEncodingError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "zstd", unsupported.Encoding)
}

func TestNewCallContext_RecvEncodingResolutionDeferred(t *testing.T) {
	t.Parallel()

	// A recv encoding with no provider is fine until a compressed frame
	// actually arrives.
	cc, err := NewCallContext(compress.Resolve(), WithRecvEncoding("zstd"))
	require.NoError(t, err)
	assert.Equal(t, "zstd", cc.RecvEncoding())
}

func TestErrTimeout_SurfacesFromDeadlineErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadFrame(&timeoutReader{}, Plain())
	assert.ErrorIs(t, err, ErrTimeout)
}

type timeoutReader struct{}

func (*timeoutReader) Read([]byte) (int, error) { return 0, &timeoutErr{} }

type timeoutErr struct{}

func (*timeoutErr) Error() string   { return "i/o timeout" }
func (*timeoutErr) Timeout() bool   { return true }
func (*timeoutErr) Temporary() bool { return false }

var _ error = (*timeoutErr)(nil)

func TestReadFrame_NonTimeoutReadErrorWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("wire exploded")
	_, err := ReadFrame(&failingReader{err: boom}, Plain())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimeout)
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }
