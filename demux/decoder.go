package demux

import (
	"bytes"

	"github.com/kbukum/inferstream/protocol"
)

var (
	fieldData  = []byte("data")
	fieldEvent = []byte("event")
	fieldID    = []byte("id")
	fieldRetry = []byte("retry")
)

// Decoder incrementally extracts frames from byte chunks.
//
// Only the trailing partial line is retained between calls, and it is never
// searched twice, so each chunk costs time proportional to its size.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	buf     []byte
	scanned int // prefix of buf known to hold no newline
	data    []byte
	hasData bool
	done    bool
	closed  bool
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Done reports whether the [DONE] sentinel has been seen. Once true, further
// input is ignored.
func (d *Decoder) Done() bool { return d.done }

// Feed appends chunk to the internal buffer and returns the messages of every
// frame it completed, in order. Frames that fail to decode come back as
// protocol error messages; decoding continues with the next frame.
func (d *Decoder) Feed(chunk []byte) []protocol.Message {
	if d.done || d.closed {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var msgs []protocol.Message
	start := 0
	for !d.done {
		i := bytes.IndexByte(d.buf[d.scanned:], '\n')
		if i < 0 {
			d.scanned = len(d.buf)
			break
		}
		end := d.scanned + i
		line := d.buf[start:end]
		d.scanned = end + 1
		start = d.scanned
		msgs = d.line(line, msgs)
	}

	if d.done {
		d.buf, d.data = nil, nil
		d.scanned = 0
		return msgs
	}
	n := copy(d.buf, d.buf[start:])
	d.buf = d.buf[:n]
	d.scanned -= start
	return msgs
}

// Flush ends the input. An unterminated last line and a pending SSE event
// without its closing blank line are decoded as final frames.
func (d *Decoder) Flush() []protocol.Message {
	if d.done || d.closed {
		return nil
	}
	d.closed = true

	var msgs []protocol.Message
	if len(d.buf) > 0 {
		msgs = d.line(d.buf, msgs)
		d.buf = nil
	}
	if !d.done && d.hasData {
		msgs = d.emit(d.data, msgs)
	}
	d.data = nil
	d.hasData = false
	return msgs
}

// line handles one complete line, without its newline.
func (d *Decoder) line(line []byte, msgs []protocol.Message) []protocol.Message {
	line = bytes.TrimSuffix(line, []byte{'\r'})

	if len(bytes.TrimSpace(line)) == 0 {
		if d.hasData {
			msgs = d.emit(d.data, msgs)
			d.data = d.data[:0]
			d.hasData = false
		}
		return msgs
	}
	if line[0] == ':' {
		return msgs
	}

	if value, ok := sseField(line, fieldData); ok {
		if d.hasData {
			d.data = append(d.data, '\n')
		}
		d.data = append(d.data, value...)
		d.hasData = true
		return msgs
	}
	for _, f := range [][]byte{fieldEvent, fieldID, fieldRetry} {
		if _, ok := sseField(line, f); ok {
			return msgs
		}
	}

	// Newline-delimited JSON. A pending SSE event is closed first so the
	// order of frames is preserved.
	if d.hasData {
		msgs = d.emit(d.data, msgs)
		d.data = d.data[:0]
		d.hasData = false
		if d.done {
			return msgs
		}
	}
	return d.emit(line, msgs)
}

func (d *Decoder) emit(payload []byte, msgs []protocol.Message) []protocol.Message {
	msg, err := protocol.Decode(payload)
	if err != nil {
		msg = protocol.ProtocolError(err)
	}
	if msg.Kind == protocol.KindDone {
		d.done = true
	}
	return append(msgs, msg)
}

// sseField matches "name:value" and returns value with one leading space removed.
func sseField(line, name []byte) ([]byte, bool) {
	if len(line) <= len(name) || line[len(name)] != ':' || !bytes.HasPrefix(line, name) {
		return nil, false
	}
	value := line[len(name)+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return value, true
}
