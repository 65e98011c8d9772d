// Package demux turns a chunked byte stream into an ordered sequence of
// protocol messages.
//
// Two framings are accepted on the same stream: newline-delimited JSON, where
// every non-empty line is a frame, and Server-Sent Events, where one or more
// "data:" lines followed by a blank line form a frame. Chunks may split frames
// anywhere; the output does not depend on where the splits fall.
//
// [Decoder] is the push-side primitive: feed it chunks, collect messages.
// [Stream] wraps an io.ReadCloser with a pull iterator on top of a Decoder.
package demux
