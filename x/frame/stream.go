package frame

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// DecodeFunc turns one raw payload into a typed message. It receives an
// empty slice for a zero-length frame and must treat that as a valid
// default-constructed message.
type DecodeFunc[T any] func(data []byte) (T, error)

// EncodeFunc turns one typed message into its raw payload bytes.
type EncodeFunc[T any] func(msg T) ([]byte, error)

// Reader pulls a finite sequence of messages off a byte stream, one frame at
// a time, strictly in wire order. It buffers no more than is needed to
// assemble the current frame. A Reader is single-use: after an error or end
// of stream it keeps returning the same result. Not safe for concurrent use.
type Reader[T any] struct {
	r      io.Reader
	cc     *CallContext
	decode DecodeFunc[T]
	err    error
}

// NewReader wraps r with a message stream reader using the injected
// deserializer. The reader takes over the stream cursor; nothing else should
// read from r while it is in use.
func NewReader[T any](r io.Reader, cc *CallContext, decode DecodeFunc[T]) *Reader[T] {
	return &Reader[T]{r: r, cc: cc, decode: decode}
}

// Next decodes the next message, returning io.EOF once the stream is
// exhausted at a frame boundary. Context cancellation is observed before the
// frame read starts; a deadline already exceeded surfaces as ErrTimeout.
func (sr *Reader[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if sr.err != nil {
		return zero, sr.err
	}
	if err := ctxErr(ctx); err != nil {
		sr.err = err
		return zero, err
	}

	payload, err := ReadFrame(sr.r, sr.cc)
	if err != nil {
		sr.err = err
		return zero, err
	}

	msg, err := sr.decode(payload)
	if err != nil {
		sr.err = fmt.Errorf("frame: decode message: %w", err)
		return zero, sr.err
	}
	return msg, nil
}

// ReadOne returns the first message on the stream, or ok=false when the
// stream is already exhausted. It never reads past one success and does not
// close the stream.
func (sr *Reader[T]) ReadOne(ctx context.Context) (T, bool, error) {
	msg, err := sr.Next(ctx)
	if errors.Is(err, io.EOF) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	return msg, true, nil
}

// ReadAll drains the stream, yielding every message in arrival order. An
// empty stream yields an empty slice. The first decode error aborts the
// sequence and is returned as is; partial results are discarded.
func (sr *Reader[T]) ReadAll(ctx context.Context) ([]T, error) {
	var msgs []T
	for {
		msg, err := sr.Next(ctx)
		if errors.Is(err, io.EOF) {
			return msgs, nil
		}
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
}

// Writer frames typed messages onto a byte stream using the injected
// serializer. Not safe for concurrent use; callers serialize access the same
// way they own the underlying sink.
type Writer[T any] struct {
	w      *bufio.Writer
	cc     *CallContext
	encode EncodeFunc[T]
}

// NewWriter wraps w with a message stream writer. The writer never closes
// the underlying sink.
func NewWriter[T any](w io.Writer, cc *CallContext, encode EncodeFunc[T]) *Writer[T] {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	return &Writer[T]{w: bw, cc: cc, encode: encode}
}

// WriteOne frames msg and flushes, guaranteeing the frame is fully visible
// to a downstream reader before returning.
func (sw *Writer[T]) WriteOne(ctx context.Context, msg T) error {
	if err := sw.writeFrame(ctx, msg); err != nil {
		return err
	}
	return sw.flush()
}

// WriteAll frames each message in order and flushes once at the end. Wire
// order always matches input order.
func (sw *Writer[T]) WriteAll(ctx context.Context, msgs []T) error {
	for _, msg := range msgs {
		if err := sw.writeFrame(ctx, msg); err != nil {
			return err
		}
	}
	return sw.flush()
}

func (sw *Writer[T]) writeFrame(ctx context.Context, msg T) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	payload, err := sw.encode(msg)
	if err != nil {
		return fmt.Errorf("frame: encode message: %w", err)
	}
	return WriteFrame(sw.w, payload, sw.cc)
}

func (sw *Writer[T]) flush() error {
	if err := sw.w.Flush(); err != nil {
		return WrapIOError("flush", err)
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		return ctx.Err()
	default:
		return nil
	}
}
