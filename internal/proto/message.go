package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello = "hello"
	InboundTypeJoin  = "join"
	InboundTypeLeave = "leave"
	InboundTypeMsg   = "msg"

	OutboundTypeReady = "ready"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventMessage       = "message"
	EventTyping        = "typing"
	EventTypingCleared = "typing_cleared"
	EventNotice        = "notice"
	EventRoomChanged   = "room_changed"
)

// HelloData authenticates the stream with the session token.
type HelloData struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

// JoinData enters a room by name or code, or creates one named Room.
type JoinData struct {
	Room   string `json:"room"`
	Create bool   `json:"create,omitempty"`
}

// MsgData is a text message for the active room.
type MsgData struct {
	Text string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ReadyData acknowledges a hello.
type ReadyData struct {
	User     string `json:"user"`
	Protocol int    `json:"protocol"`
}

// MessageData is a message appended to the active room.
type MessageData struct {
	Room          string `json:"room"`
	ID            string `json:"id"`
	SenderID      string `json:"sender_id"`
	Sender        string `json:"sender"`
	Body          string `json:"body"`
	Kind          string `json:"kind"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
	SentAt        string `json:"sent_at"`
}

// TypingData reports the typing indicator. User is empty once cleared.
type TypingData struct {
	Room string `json:"room"`
	User string `json:"user,omitempty"`
}

// NoticeData is a transient joined/left announcement.
type NoticeData struct {
	Room string `json:"room"`
	Kind string `json:"kind"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// RoomChangedData reports entering a room, or leaving it when Left is set.
type RoomChangedData struct {
	Room string `json:"room"`
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
	Left bool   `json:"left,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
