package protocol

import "fmt"

// DoneSentinel marks normal stream termination.
const DoneSentinel = "[DONE]"

// Kind discriminates the variants of Message.
type Kind int

const (
	// KindToken carries a text increment.
	KindToken Kind = iota
	// KindSystem carries a lifecycle notice such as "start_emitting" or "result".
	KindSystem
	// KindError carries an error, either sent by the server or produced
	// locally for a frame that could not be decoded.
	KindError
	// KindDone marks the end of the stream.
	KindDone
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindSystem:
		return "system"
	case KindError:
		return "error"
	case KindDone:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is one decoded protocol message.
type Message struct {
	Kind    Kind
	Content string
	// Num is the server's token counter, 0 when absent.
	Num int
	// Data is the optional structured payload of system messages.
	Data map[string]any
	// Err is set only on KindError messages produced for undecodable frames.
	// Server-sent error frames leave it nil.
	Err error
}

// IsProtocolError reports whether m stands for a frame that could not be decoded.
func (m Message) IsProtocolError() bool {
	return m.Kind == KindError && m.Err != nil
}

// Token returns a token message.
func Token(content string) Message {
	return Message{Kind: KindToken, Content: content}
}

// System returns a system message.
func System(content string, data map[string]any) Message {
	return Message{Kind: KindSystem, Content: content, Data: data}
}

// ServerError returns an error message as sent by the server.
func ServerError(content string) Message {
	return Message{Kind: KindError, Content: content}
}

// Done returns the end-of-stream message.
func Done() Message {
	return Message{Kind: KindDone}
}

// ProtocolError wraps a decode failure as an error message.
func ProtocolError(err error) Message {
	return Message{Kind: KindError, Content: err.Error(), Err: err}
}
