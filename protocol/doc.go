// Package protocol defines the messages a streaming completion is made of and
// decodes individual wire frames into them.
//
// A frame is one JSON object of the form
//
//	{"msg_type": "token"|"system"|"error", "content": "...", "num": 3, "data": {...}}
//
// or the literal sentinel [DONE]. Framing (newline-delimited JSON or SSE
// "data:" events) is handled by package demux; this package only sees the
// payload of a single frame.
package protocol
