package messages

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/store"
)

// Welcome is the history a room starts with when nothing is stored for it.
// IDs are assigned when the seed is written.
var Welcome = []core.Message{
	{SenderID: "1", SenderDisplayName: "Abhimanyu", Body: "Hey there! Welcome to HashChat!", Kind: core.MessageText, SentAt: "10:01 AM"},
	{SenderID: "2", SenderDisplayName: "Harsh", Body: "Hi! How's your day going?", Kind: core.MessageText, SentAt: "10:02 AM"},
	{SenderID: "3", SenderDisplayName: "Riya", Body: "This chat app looks amazing!", Kind: core.MessageText, SentAt: "10:05 AM"},
}

// Draft is the caller-supplied part of a new message.
type Draft struct {
	SenderID          string
	SenderDisplayName string
	Body              string
	Kind              core.MessageKind
	AttachmentRef     string
}

// Log is the ordered history of the active room. Every mutation rewrites the
// room's full sequence in the store before it becomes visible in memory.
type Log struct {
	mu    sync.Mutex
	st    store.Store
	clock clock.Clock
	log   *zerolog.Logger

	roomID string
	msgs   []core.Message
}

// New returns an inactive log.
func New(st store.Store, clk clock.Clock, logger *zerolog.Logger) *Log {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Log{st: st, clock: clk, log: logger}
}

// Activate makes roomID the active room, loading its stored history or
// seeding and persisting the welcome messages.
func (l *Log) Activate(ctx context.Context, roomID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := store.MessagesKey(roomID)
	var msgs []core.Message
	if !store.LoadJSON(ctx, l.st, key, &msgs, l.log) {
		msgs = make([]core.Message, len(Welcome))
		for i, m := range Welcome {
			m.ID = newID()
			msgs[i] = m
		}
		if err := store.SaveJSON(ctx, l.st, key, msgs); err != nil {
			return err
		}
		l.log.Debug().Str("room_id", roomID).Int("count", len(msgs)).Msg("room history seeded")
	}
	if msgs == nil {
		msgs = []core.Message{}
	}

	l.roomID = roomID
	l.msgs = msgs
	return nil
}

// Append adds one message to the active room and persists the sequence.
func (l *Log) Append(ctx context.Context, d Draft) (core.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.roomID == "" {
		return core.Message{}, core.ErrNoActiveRoom
	}
	if d.Kind == "" {
		d.Kind = core.MessageText
	}

	msg := core.Message{
		ID:                newID(),
		SenderID:          d.SenderID,
		SenderDisplayName: d.SenderDisplayName,
		Body:              d.Body,
		Kind:              d.Kind,
		AttachmentRef:     d.AttachmentRef,
		SentAt:            core.FormatSentAt(l.clock.Now()),
	}

	next := make([]core.Message, len(l.msgs), len(l.msgs)+1)
	copy(next, l.msgs)
	next = append(next, msg)
	if err := store.SaveJSON(ctx, l.st, store.MessagesKey(l.roomID), next); err != nil {
		return core.Message{}, err
	}
	l.msgs = next

	l.log.Debug().Str("room_id", l.roomID).Str("message_id", msg.ID).Str("kind", string(msg.Kind)).Msg("message appended")
	return msg, nil
}

// Current returns a snapshot of the active room's messages in append order.
func (l *Log) Current() []core.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// ActiveRoom returns the id of the active room, empty when inactive.
func (l *Log) ActiveRoom() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.roomID
}

// Deactivate drops the in-memory history. The stored copy remains.
func (l *Log) Deactivate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.roomID = ""
	l.msgs = nil
}

func newID() string {
	return "msg_" + uuid.NewString()
}
