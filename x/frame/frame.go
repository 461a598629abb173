// Package frame implements the length-prefixed, optionally compressed
// message framing used to move application messages over a byte stream.
//
// Wire layout, all integers big-endian:
//
//	0        1                 5
//	┌────────┬─────────────────┬────────────────────┐
//	│  flag  │  payload length │      payload       │
//	│ 1 byte │ uint32          │ length bytes       │
//	└────────┴─────────────────┴────────────────────┘
//
// flag 0x00 means a raw payload, 0x01 a compressed one; every other value is
// a protocol violation. One frame carries exactly one message. The codec is
// stateless across frames apart from the underlying stream cursor.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
)

const (
	flagRaw        byte = 0x00
	flagCompressed byte = 0x01

	// HeaderSize is the fixed flag + length prefix preceding every payload.
	HeaderSize = 5
)

// ReadFrame decodes one frame from r and returns the raw payload bytes,
// decompressed when the frame was flagged compressed. A clean end of stream
// before the flag byte returns io.EOF; truncation anywhere past it is a
// *FramingError. A declared length above cc.MaxMessageSize returns
// *MessageTooLargeError without reading the payload. A zero-length frame is
// valid and returns an empty payload.
func ReadFrame(r io.Reader, cc *CallContext) ([]byte, error) {
	var header [HeaderSize]byte

	if _, err := io.ReadFull(r, header[:1]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, WrapIOError("read frame flag", err)
	}

	flag := header[0]
	if flag != flagRaw && flag != flagCompressed {
		return nil, &FramingError{Reason: fmt.Sprintf("invalid frame flag 0x%02x", flag)}
	}

	if _, err := io.ReadFull(r, header[1:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &FramingError{Reason: "truncated length header", Err: err}
		}
		return nil, WrapIOError("read length header", err)
	}

	length := binary.BigEndian.Uint32(header[1:])
	if limit := cc.MaxMessageSize(); limit > 0 && length > limit {
		return nil, &MessageTooLargeError{Size: length, Limit: limit}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &FramingError{Reason: "truncated payload", Err: err}
		}
		return nil, WrapIOError("read payload", err)
	}

	if flag == flagRaw {
		return payload, nil
	}

	if cc.RecvEncoding() == "" {
		return nil, &FramingError{Reason: "compressed frame but no encoding negotiated"}
	}
	provider, ok := cc.recvProvider()
	if !ok {
		return nil, &UnsupportedEncodingError{Encoding: cc.RecvEncoding()}
	}

	raw, err := provider.Decompress(payload)
	if err != nil {
		return nil, &FramingError{Reason: "decompress payload", Err: err}
	}
	return raw, nil
}

// WriteFrame encodes payload as one frame on w, compressing it when the
// context names a send encoding. The flag, length and payload go out as a
// single Write so a frame is never interleaved mid-way by another writer on
// the same sink. NewCallContext already guarantees the send encoding
// resolves, so compression selection cannot fail here.
func WriteFrame(w io.Writer, payload []byte, cc *CallContext) error {
	flag := flagRaw
	if provider, ok := cc.sendProvider(); ok {
		compressed, err := provider.Compress(payload)
		if err != nil {
			return fmt.Errorf("frame: compress payload: %w", err)
		}
		payload = compressed
		flag = flagCompressed
	}

	if uint64(len(payload)) > math.MaxUint32 {
		return &FramingError{Reason: fmt.Sprintf("payload size %d exceeds uint32 range", len(payload))}
	}
	size := uint32(len(payload))
	if limit := cc.MaxMessageSize(); limit > 0 && size > limit {
		return &MessageTooLargeError{Size: size, Limit: limit}
	}

	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = flag
	binary.BigEndian.PutUint32(buf[1:HeaderSize], size)
	copy(buf[HeaderSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return WrapIOError("write frame", err)
	}
	return nil
}

// WrapIOError normalizes transport deadline expiry to ErrTimeout and wraps
// everything else with the failing step. Transports flushing buffered frame
// bytes themselves must route the flush error through here so deadline
// expiry stays detectable with errors.Is regardless of where the syscall
// happened.
func WrapIOError(step string, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, step, err)
	}
	return fmt.Errorf("frame: %s: %w", step, err)
}
