package tcp

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framewire-net/framewire/log"
	"github.com/framewire-net/framewire/x/frame"
)

// A frame small enough for the write buffer only hits the socket at Flush,
// so the deadline expires there rather than inside the frame codec. The
// error must still surface as frame.ErrTimeout.
func TestWritePayload_FlushTimeoutSurfacesAsTimeout(t *testing.T) {
	t.Parallel()

	local, remote := net.Pipe()
	defer remote.Close()

	conn := newConnection(local, "flush-timeout", log.Nop(), TimeoutConfig{Write: 50 * time.Millisecond})
	defer conn.Close()

	// Nothing ever reads from remote, so the flush blocks until the
	// write deadline fires.
	err := conn.WritePayload(bytes.Repeat([]byte("x"), 1024))
	require.Error(t, err)
	assert.ErrorIs(t, err, frame.ErrTimeout)
}

func TestWritePayload_CountsFramesAndBytes(t *testing.T) {
	t.Parallel()

	local, remote := net.Pipe()
	defer remote.Close()

	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := remote.Read(buf); err != nil {
				return
			}
		}
	}()

	conn := newConnection(local, "counters", log.Nop(), TimeoutConfig{Write: time.Second})
	defer conn.Close()

	require.NoError(t, conn.WritePayload([]byte("hello")))

	info := conn.Info()
	assert.EqualValues(t, 1, info.FramesWritten)
	assert.EqualValues(t, 5, info.BytesWritten)
}
