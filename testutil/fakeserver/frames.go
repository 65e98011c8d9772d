package fakeserver

import (
	"strings"

	"github.com/kbukum/inferstream/protocol"
)

// Encoding selects how frames are laid out on the wire.
type Encoding int

const (
	// SSE writes "data: <payload>\n\n" per frame.
	SSE Encoding = iota
	// NDJSON writes one payload per line.
	NDJSON
)

// ContentType returns the media type the server announces for e.
func (e Encoding) ContentType() string {
	if e == NDJSON {
		return "application/x-ndjson"
	}
	return "text/event-stream"
}

// Frame renders one payload in encoding e.
func (e Encoding) Frame(payload string) string {
	if e == NDJSON {
		return payload + "\n"
	}
	return "data: " + payload + "\n\n"
}

// Frames renders the messages in order.
func (e Encoding) Frames(msgs ...protocol.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(e.Frame(payload(m)))
	}
	return b.String()
}

// payload encodes m as a frame payload. It panics on messages whose data
// cannot be marshalled, which only happens with broken test fixtures.
func payload(m protocol.Message) string {
	b, err := protocol.Encode(m)
	if err != nil {
		panic("fakeserver: " + err.Error())
	}
	return string(b)
}

// Tokens returns one token message per content, numbered from 1.
func Tokens(contents ...string) []protocol.Message {
	out := make([]protocol.Message, len(contents))
	for i, c := range contents {
		out[i] = protocol.Token(c)
		out[i].Num = i + 1
	}
	return out
}

// ResultMessage returns the system message a server sends after the last
// token.
func ResultMessage(text string, stats map[string]any) protocol.Message {
	return protocol.System("result", map[string]any{"text": text, "stats": stats})
}

// Split cuts s into chunks of n bytes. The last chunk may be shorter.
func Split(s string, n int) []string {
	if n <= 0 || len(s) <= n {
		return []string{s}
	}
	out := make([]string, 0, len(s)/n+1)
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}
