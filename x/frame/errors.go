package frame

import (
	"errors"
	"fmt"
)

// End of stream is signalled with io.EOF: a clean close at a frame boundary
// is a terminal condition, not an error. Truncation inside a frame is a
// *FramingError instead.

// ErrTimeout is returned when a read or write exceeds its deadline. Check
// with errors.Is. The in-flight frame is discarded; previously flushed
// frames are unaffected.
var ErrTimeout = errors.New("frame: operation timed out")

// FramingError reports a malformed frame: truncated header or payload, an
// invalid flag byte, or a compressed flag with no negotiated encoding.
type FramingError struct {
	Reason string
	Err    error
}

func (e *FramingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("frame: %s", e.Reason)
}

func (e *FramingError) Unwrap() error { return e.Err }

// MessageTooLargeError reports a declared payload length above the call's
// configured maximum. It is raised before the payload is read, so the
// oversized bytes are never allocated.
type MessageTooLargeError struct {
	Size  uint32
	Limit uint32
}

func (e *MessageTooLargeError) Error() string {
	return fmt.Sprintf("frame: message size %d exceeds max %d", e.Size, e.Limit)
}

// UnsupportedEncodingError reports an encoding name with no resolvable
// provider, either at call-context construction or on the decode path.
type UnsupportedEncodingError struct {
	Encoding string
}

func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("frame: no compression provider for encoding %q", e.Encoding)
}
