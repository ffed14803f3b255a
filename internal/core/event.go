package core

import "time"

// EventKind is a notification the engine emits to subscribers.
type EventKind int

const (
	// EventMessage reports a message appended to the active room.
	EventMessage EventKind = iota
	// EventTyping reports that a roster member started typing.
	EventTyping
	// EventTypingCleared reports that the typing indicator expired.
	EventTypingCleared
	// EventNotice reports a transient joined/left notice.
	EventNotice
	// EventRoomChanged reports that the current room was entered or left.
	EventRoomChanged
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventTyping:
		return "typing"
	case EventTypingCleared:
		return "typing_cleared"
	case EventNotice:
		return "notice"
	case EventRoomChanged:
		return "room_changed"
	default:
		return "unknown"
	}
}

// NoticeKind tells whether a roster member joined or left.
type NoticeKind string

const (
	NoticeJoined NoticeKind = "joined"
	NoticeLeft   NoticeKind = "left"
)

// Notice is a transient, non-persisted presence announcement.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	At          time.Time  `json:"at"`
}

// Text renders the notice for display.
func (n Notice) Text() string {
	return n.DisplayName + " " + string(n.Kind) + " the room"
}

// Event describes what happened in the engine.
type Event struct {
	Kind    EventKind
	RoomID  string
	Message *Message // EventMessage
	Typing  string   // EventTyping: display name
	Notice  *Notice  // EventNotice
	Room    *Room    // EventRoomChanged: nil when the room was left
}
