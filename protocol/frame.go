package protocol

import (
	"bytes"
	"encoding/json"
	"errors"

	apperrors "github.com/kbukum/inferstream/errors"
)

// MsgType is the frame discriminator.
type MsgType string

const (
	TokenMsgType  MsgType = "token"
	SystemMsgType MsgType = "system"
	ErrorMsgType  MsgType = "error"
)

// Frame is the wire shape of one streamed message.
type Frame struct {
	MsgType MsgType        `json:"msg_type,omitempty"`
	Content string         `json:"content"`
	Num     int            `json:"num,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// ErrUnsupportedFrame is the cause for JSON frames that are neither an object
// nor a string.
var ErrUnsupportedFrame = errors.New("protocol: frame is neither an object nor a string")

var doneQuoted = []byte(`"` + DoneSentinel + `"`)

// Decode turns one frame payload into a Message.
//
// Objects are read by msg_type. A missing or unknown msg_type, as well as a
// bare JSON string, is a token increment. Failures are returned as
// PROTOCOL_ERROR AppErrors carrying the raw frame.
func Decode(payload []byte) (Message, error) {
	payload = bytes.TrimSpace(payload)
	if string(payload) == DoneSentinel || bytes.Equal(payload, doneQuoted) {
		return Done(), nil
	}
	if len(payload) == 0 {
		return Message{}, apperrors.ProtocolViolation("", ErrUnsupportedFrame)
	}

	switch payload[0] {
	case '{':
		var f Frame
		if err := json.Unmarshal(payload, &f); err != nil {
			return Message{}, apperrors.ProtocolViolation(string(payload), err)
		}
		return fromFrame(f), nil
	case '"':
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return Message{}, apperrors.ProtocolViolation(string(payload), err)
		}
		return Token(s), nil
	default:
		if !json.Valid(payload) {
			return Message{}, apperrors.ProtocolViolation(string(payload), errors.New("protocol: invalid JSON"))
		}
		return Message{}, apperrors.ProtocolViolation(string(payload), ErrUnsupportedFrame)
	}
}

func fromFrame(f Frame) Message {
	msg := Message{Content: f.Content, Num: f.Num, Data: f.Data}
	switch f.MsgType {
	case SystemMsgType:
		msg.Kind = KindSystem
	case ErrorMsgType:
		msg.Kind = KindError
	default:
		msg.Kind = KindToken
	}
	return msg
}

// Encode renders a message as a frame payload. Done encodes as the sentinel.
func Encode(m Message) ([]byte, error) {
	var t MsgType
	switch m.Kind {
	case KindDone:
		return []byte(DoneSentinel), nil
	case KindSystem:
		t = SystemMsgType
	case KindError:
		t = ErrorMsgType
	default:
		t = TokenMsgType
	}
	return json.Marshal(Frame{MsgType: t, Content: m.Content, Num: m.Num, Data: m.Data})
}
