package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/auth"
	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/messages"
	"github.com/vovakirdan/hashchat-engine/internal/metrics"
	"github.com/vovakirdan/hashchat-engine/internal/rooms"
	"github.com/vovakirdan/hashchat-engine/internal/schedule"
	"github.com/vovakirdan/hashchat-engine/internal/simulator"
)

const (
	// AttachmentBody is the text shown for image messages.
	AttachmentBody = "Shared an image"

	fallbackSenderID   = "current"
	fallbackSenderName = "You"
)

// Options wires the engine to its components.
type Options struct {
	Session   *auth.SessionStore
	Rooms     *rooms.Registry
	Log       *messages.Log
	Simulator simulator.Config
	Scheduler schedule.Scheduler
	Random    simulator.Random
	Clock     clock.Clock
	Metrics   *metrics.Metrics
}

// Activity is the transient state of the current room.
type Activity struct {
	Room   *core.Room   `json:"room,omitempty"`
	Typing string       `json:"typing,omitempty"`
	Notice *core.Notice `json:"notice,omitempty"`
}

// Engine composes the room registry, message log and activity simulator
// behind the session gate.
//
// Locks are taken in the order engine, then component (session, registry,
// log, simulator), then hub. Simulator callbacks hold the simulator lock
// and only reach the log and the hub.
type Engine struct {
	mu sync.Mutex

	session *auth.SessionStore
	rooms   *rooms.Registry
	log     *messages.Log
	sim     *simulator.Simulator
	hub     *Hub
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

// New builds an engine. Call Init to resume a stored room.
func New(opts Options, logger *zerolog.Logger) *Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	e := &Engine{
		session: opts.Session,
		rooms:   opts.Rooms,
		log:     opts.Log,
		hub:     NewHub(),
		metrics: opts.Metrics,
		logger:  logger,
	}
	e.sim = simulator.New(opts.Log, simulator.Options{
		Config:    opts.Simulator,
		Scheduler: opts.Scheduler,
		Random:    opts.Random,
		Clock:     opts.Clock,
		Emit:      e.publishSimulated,
	}, logger)
	return e
}

// Init resumes the stored current room when a session exists.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	room, ok := e.rooms.Current()
	if !ok || e.session.Identity() == nil {
		return nil
	}
	if err := e.enterLocked(ctx, room); err != nil {
		return err
	}
	e.logger.Info().Str("room_id", room.ID).Str("name", room.Name).Msg("room resumed")
	return nil
}

func (e *Engine) requireSession() error {
	if e.session.Identity() == nil {
		return core.ErrNoSession
	}
	return nil
}

// JoinOrCreate creates a room named nameOrCode when create is set, and
// otherwise joins the first room matching it by name or join code.
func (e *Engine) JoinOrCreate(ctx context.Context, nameOrCode string, create bool) (core.Room, error) {
	if create {
		return e.Create(ctx, nameOrCode)
	}
	return e.Join(ctx, nameOrCode)
}

// Create adds a room and enters it.
func (e *Engine) Create(ctx context.Context, name string) (core.Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := e.roomOp("create", func() (core.Room, error) {
		if err := e.requireSession(); err != nil {
			return core.Room{}, err
		}
		return e.rooms.Create(ctx, name)
	})
	if err != nil {
		return core.Room{}, err
	}
	return room, e.enterLocked(ctx, room)
}

// Join enters an existing room by name or join code.
func (e *Engine) Join(ctx context.Context, nameOrCode string) (core.Room, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	room, err := e.roomOp("join", func() (core.Room, error) {
		if err := e.requireSession(); err != nil {
			return core.Room{}, err
		}
		return e.rooms.Join(ctx, nameOrCode)
	})
	if err != nil {
		return core.Room{}, err
	}
	return room, e.enterLocked(ctx, room)
}

func (e *Engine) roomOp(op string, fn func() (core.Room, error)) (core.Room, error) {
	room, err := fn()
	if e.metrics != nil {
		e.metrics.RoomOps.WithLabelValues(op, metrics.Outcome(err)).Inc()
	}
	return room, err
}

// enterLocked switches the log and simulator to room. Caller holds e.mu.
// If the history cannot be loaded the stored current room is cleared too, so
// a restart does not resume a room that never became active.
func (e *Engine) enterLocked(ctx context.Context, room core.Room) error {
	e.sim.Stop()
	if err := e.log.Activate(ctx, room.ID); err != nil {
		e.log.Deactivate()
		e.setActive(false)
		if _, _, leaveErr := e.rooms.Leave(ctx); leaveErr != nil {
			e.logger.Error().Err(leaveErr).Str("room_id", room.ID).Msg("clear current room")
		}
		return err
	}
	e.sim.Start(room.ID)
	e.setActive(true)
	e.publish(core.Event{Kind: core.EventRoomChanged, RoomID: room.ID, Room: &room})
	return nil
}

func (e *Engine) setActive(active bool) {
	if e.metrics == nil {
		return
	}
	if active {
		e.metrics.ActiveRoom.Set(1)
	} else {
		e.metrics.ActiveRoom.Set(0)
	}
}

// Send appends a text message from the current identity.
func (e *Engine) Send(ctx context.Context, text string) (core.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.log.ActiveRoom() == "" {
		return core.Message{}, core.ErrNoActiveRoom
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return core.Message{}, core.ErrEmptyMessage
	}
	return e.appendLocked(ctx, text, core.MessageText, "")
}

// SendAttachment appends an image message carrying payloadRef.
func (e *Engine) SendAttachment(ctx context.Context, payloadRef string) (core.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.log.ActiveRoom() == "" {
		return core.Message{}, core.ErrNoActiveRoom
	}
	if payloadRef == "" {
		return core.Message{}, core.Fail(core.KindValidation, "attachment is empty")
	}
	return e.appendLocked(ctx, AttachmentBody, core.MessageImage, payloadRef)
}

func (e *Engine) appendLocked(ctx context.Context, body string, kind core.MessageKind, ref string) (core.Message, error) {
	senderID, senderName := fallbackSenderID, fallbackSenderName
	if id := e.session.Identity(); id != nil {
		senderID, senderName = id.ID, id.DisplayName
	}

	msg, err := e.log.Append(ctx, messages.Draft{
		SenderID:          senderID,
		SenderDisplayName: senderName,
		Body:              body,
		Kind:              kind,
		AttachmentRef:     ref,
	})
	if err != nil {
		return core.Message{}, err
	}
	if e.metrics != nil {
		e.metrics.Messages.WithLabelValues("local", string(kind)).Inc()
	}
	e.publish(core.Event{Kind: core.EventMessage, RoomID: e.log.ActiveRoom(), Message: &msg})
	return msg, nil
}

// Leave stops the simulator, drops the in-memory log and clears the current
// room. It is a no-op when no room is current.
func (e *Engine) Leave(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leaveLocked(ctx)
}

func (e *Engine) leaveLocked(ctx context.Context) error {
	e.sim.Stop()
	e.log.Deactivate()
	e.setActive(false)

	left, ok, err := e.rooms.Leave(ctx)
	if e.metrics != nil && (ok || err != nil) {
		e.metrics.RoomOps.WithLabelValues("leave", metrics.Outcome(err)).Inc()
	}
	if err != nil {
		return err
	}
	if ok {
		e.publish(core.Event{Kind: core.EventRoomChanged, RoomID: left.ID})
	}
	return nil
}

// EndSession leaves the current room and logs out.
func (e *Engine) EndSession(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.leaveLocked(ctx); err != nil {
		return err
	}
	err := e.session.Logout(ctx)
	if e.metrics != nil {
		e.metrics.AuthOps.WithLabelValues("logout", metrics.Outcome(err)).Inc()
	}
	return err
}

// Close stops all timers and disconnects subscribers. Stored state is kept.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sim.Stop()
	e.hub.Close()
}

// CurrentRoom returns the entered room.
func (e *Engine) CurrentRoom() (core.Room, bool) {
	if e.log.ActiveRoom() == "" {
		return core.Room{}, false
	}
	return e.rooms.Current()
}

// Rooms lists the catalog.
func (e *Engine) Rooms() []core.Room {
	return e.rooms.List()
}

// Messages returns the active room's history.
func (e *Engine) Messages() []core.Message {
	return e.log.Current()
}

// Presence returns the simulated roster.
func (e *Engine) Presence() []core.PresenceEntry {
	return e.sim.Presence()
}

// Typing returns who is typing in the current room.
func (e *Engine) Typing() (string, bool) {
	return e.sim.Typing()
}

// LastNotice returns the latest join/leave notice in the current room.
func (e *Engine) LastNotice() (core.Notice, bool) {
	return e.sim.LastNotice()
}

// Activity snapshots the current room with its transient state.
func (e *Engine) Activity() Activity {
	var a Activity
	if room, ok := e.CurrentRoom(); ok {
		a.Room = &room
	}
	a.Typing, _ = e.sim.Typing()
	if n, ok := e.sim.LastNotice(); ok {
		a.Notice = &n
	}
	return a
}

// Session returns the session store gating the engine.
func (e *Engine) Session() *auth.SessionStore {
	return e.session
}

// Subscribe streams engine events. See Hub.Subscribe.
func (e *Engine) Subscribe(buffer int) (<-chan core.Event, func()) {
	return e.hub.Subscribe(buffer)
}

func (e *Engine) publish(ev core.Event) {
	dropped := e.hub.Publish(ev)
	if e.metrics == nil {
		return
	}
	e.metrics.Events.WithLabelValues(ev.Kind.String()).Inc()
	if dropped > 0 {
		e.metrics.Dropped.Add(float64(dropped))
	}
}

// publishSimulated runs under the simulator lock.
func (e *Engine) publishSimulated(ev core.Event) {
	if ev.Kind == core.EventMessage && ev.Message != nil && e.metrics != nil {
		e.metrics.Messages.WithLabelValues("simulated", string(ev.Message.Kind)).Inc()
	}
	e.publish(ev)
}
