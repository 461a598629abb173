package frame

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framewire-net/framewire/x/compress"
)

func stringEncode(s string) ([]byte, error) { return []byte(s), nil }
func stringDecode(b []byte) (string, error) { return string(b), nil }

func TestStream_WriteOneReadAll_PreservesOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	msgs := []string{"first", "second", "third", "", "fifth"}

	var buf bytes.Buffer
	w := NewWriter(&buf, Plain(), stringEncode)
	for _, m := range msgs {
		require.NoError(t, w.WriteOne(ctx, m))
	}

	r := NewReader(&buf, Plain(), stringDecode)
	got, err := r.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, msgs, got)
}

func TestStream_WriteAllReadAll_Compressed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	table := compress.Resolve(compress.BuiltIn()...)
	cc, err := NewCallContext(table, WithSendEncoding("zstd"), WithRecvEncoding("zstd"))
	require.NoError(t, err)

	msgs := []string{"alpha", "beta", "gamma"}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, cc, stringEncode).WriteAll(ctx, msgs))

	got, err := NewReader(&buf, cc, stringDecode).ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, msgs, got)
}

func TestReadAll_EmptyStream(t *testing.T) {
	t.Parallel()

	r := NewReader(bytes.NewReader(nil), Plain(), stringDecode)
	got, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadOne_FirstMessageOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var buf bytes.Buffer
	w := NewWriter(&buf, Plain(), stringEncode)
	require.NoError(t, w.WriteAll(ctx, []string{"one", "two"}))
	wireLen := buf.Len()

	src := bytes.NewReader(buf.Bytes())
	r := NewReader(src, Plain(), stringDecode)

	msg, ok, err := r.ReadOne(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", msg)

	// The second frame stays on the stream untouched.
	assert.Equal(t, wireLen-(HeaderSize+len("one")), src.Len())
}

func TestReadOne_ExhaustedStream(t *testing.T) {
	t.Parallel()

	r := NewReader(bytes.NewReader(nil), Plain(), stringDecode)
	_, ok, err := r.ReadOne(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadAll_AbortsOnFramingError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, Plain(), stringEncode).WriteOne(ctx, "good"))
	buf.Write([]byte{0x00, 0x00, 0x00}) // truncated second frame

	r := NewReader(&buf, Plain(), stringDecode)
	_, err := r.ReadAll(ctx)

	var fe *FramingError
	require.ErrorAs(t, err, &fe)

	// The reader is not restartable after a failure.
	_, err2 := r.Next(ctx)
	assert.Equal(t, err, err2)
}

func TestReadAll_ZeroLengthFrameYieldsDefaultMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, Plain(), stringEncode).WriteOne(ctx, ""))

	got, err := NewReader(&buf, Plain(), stringDecode).ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)
}

func TestNext_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(bytes.NewReader(nil), Plain(), stringDecode)
	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNext_ContextDeadlineBecomesTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	r := NewReader(bytes.NewReader(nil), Plain(), stringDecode)
	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestWriteAll_ContextDeadlineBecomesTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	var buf bytes.Buffer
	err := NewWriter(&buf, Plain(), stringEncode).WriteAll(ctx, []string{"late"})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Zero(t, buf.Len())
}
