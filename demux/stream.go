package demux

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"

	"github.com/kbukum/inferstream/protocol"
)

const defaultReadSize = 4 << 10

// Option configures a Stream.
type Option func(*Stream)

// WithReadSize sets the size of the read buffer.
func WithReadSize(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.buf = make([]byte, n)
		}
	}
}

// Stream is a lazy, finite, non-restartable sequence of messages read from a
// response body.
//
// The sequence ends after a Done message, at end of input, or on a read
// error. After Done no further bytes are read from the body.
type Stream struct {
	body    io.ReadCloser
	dec     *Decoder
	buf     []byte
	pending []protocol.Message
	ended   bool
	err     error

	closeOnce sync.Once
	closeErr  error
}

// NewStream creates a Stream over body. The Stream owns body; Close closes it.
func NewStream(body io.ReadCloser, opts ...Option) *Stream {
	s := &Stream{
		body: body,
		dec:  NewDecoder(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.buf == nil {
		s.buf = make([]byte, defaultReadSize)
	}
	return s
}

// Next returns the next message. It returns (zero, false, nil) once the
// sequence is exhausted and (zero, false, err) if reading failed. Messages
// decoded before a read failure are delivered before the error.
func (s *Stream) Next(ctx context.Context) (protocol.Message, bool, error) {
	for len(s.pending) == 0 {
		if s.ended {
			return protocol.Message{}, false, s.err
		}
		if err := ctx.Err(); err != nil {
			return protocol.Message{}, false, err
		}
		s.fill()
	}
	msg := s.pending[0]
	s.pending[0] = protocol.Message{}
	s.pending = s.pending[1:]
	return msg, true, nil
}

// fill performs one read and decodes what it returned.
func (s *Stream) fill() {
	n, err := s.body.Read(s.buf)
	if n > 0 {
		s.pending = append(s.pending, s.dec.Feed(s.buf[:n])...)
	}
	switch {
	case s.dec.Done():
		s.ended = true
	case errors.Is(err, io.EOF):
		s.pending = append(s.pending, s.dec.Flush()...)
		s.ended = true
	case err != nil:
		s.err = err
		s.ended = true
	}
}

// All returns the remaining messages as a single-use iterator. A read error
// is yielded once as the final element.
func (s *Stream) All(ctx context.Context) iter.Seq2[protocol.Message, error] {
	return func(yield func(protocol.Message, error) bool) {
		for {
			msg, ok, err := s.Next(ctx)
			if err != nil {
				yield(protocol.Message{}, err)
				return
			}
			if !ok || !yield(msg, nil) {
				return
			}
		}
	}
}

// Close releases the body. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
