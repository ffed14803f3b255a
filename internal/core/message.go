package core

import "time"

// MessageKind distinguishes plain text from attachments.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageImage MessageKind = "image"
)

// SentAtLayout renders send times the way the chat view shows them.
const SentAtLayout = "3:04 PM"

// Message is a single entry in a room's log.
type Message struct {
	ID                string      `json:"id"`
	SenderID          string      `json:"sender_id"`
	SenderDisplayName string      `json:"sender_display_name"`
	Body              string      `json:"body"`
	Kind              MessageKind `json:"kind"`
	AttachmentRef     string      `json:"attachment_ref,omitempty"`
	SentAt            string      `json:"sent_at"`
}

// FormatSentAt renders t with SentAtLayout.
func FormatSentAt(t time.Time) string {
	return t.Format(SentAtLayout)
}
