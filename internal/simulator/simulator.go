package simulator

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/messages"
	"github.com/vovakirdan/hashchat-engine/internal/schedule"
)

// Random is the source of simulator decisions. *rand.Rand satisfies it.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// Appender receives simulated messages.
type Appender interface {
	Append(ctx context.Context, d messages.Draft) (core.Message, error)
}

// Config tunes the three generators.
type Config struct {
	MessagePeriod      time.Duration
	MessageProbability float64
	TypingPeriod       time.Duration
	TypingProbability  float64
	TypingDuration     time.Duration
	NoticePeriod       time.Duration
	NoticeProbability  float64
}

// DefaultConfig returns the stock periods and probabilities.
func DefaultConfig() Config {
	return Config{
		MessagePeriod:      15 * time.Second,
		MessageProbability: 0.3,
		TypingPeriod:       10 * time.Second,
		TypingProbability:  0.2,
		TypingDuration:     3 * time.Second,
		NoticePeriod:       20 * time.Second,
		NoticeProbability:  0.15,
	}
}

// Options wires a Simulator to its collaborators.
type Options struct {
	Config    Config
	Scheduler schedule.Scheduler
	Random    Random
	Clock     clock.Clock
	// Emit receives every generated event. It is called with the simulator
	// lock held and must not call back into the simulator.
	Emit func(core.Event)
}

// Simulator fabricates activity for the active room. All generators start
// and stop together; a stopped run never writes again, even if one of its
// callbacks was already in flight.
type Simulator struct {
	mu sync.Mutex

	cfg   Config
	sched schedule.Scheduler
	rnd   Random
	clock clock.Clock
	out   Appender
	emit  func(core.Event)
	log   *zerolog.Logger

	run     uint64
	roomID  string
	tasks   []schedule.Task
	episode uint64
	expiry  schedule.Task
	typing  string
	notice  *core.Notice
}

// New builds a stopped simulator writing messages to out.
func New(out Appender, opts Options, logger *zerolog.Logger) *Simulator {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.NewLive(opts.Clock)
	}
	if opts.Random == nil {
		opts.Random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Emit == nil {
		opts.Emit = func(core.Event) {}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Simulator{
		cfg:   opts.Config,
		sched: opts.Scheduler,
		rnd:   opts.Random,
		clock: opts.Clock,
		out:   out,
		emit:  opts.Emit,
		log:   logger,
	}
}

// Start arms the generators for roomID, stopping any previous run first.
func (s *Simulator) Start(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.run++
	s.roomID = roomID
	run := s.run

	s.tasks = []schedule.Task{
		s.sched.Every(s.cfg.MessagePeriod, func() { s.guard(run, s.messageTick) }),
		s.sched.Every(s.cfg.TypingPeriod, func() { s.guard(run, s.typingTick) }),
		s.sched.Every(s.cfg.NoticePeriod, func() { s.guard(run, s.noticeTick) }),
	}
	s.log.Debug().Str("room_id", roomID).Msg("simulator started")
}

// Stop cancels every generator and any pending typing expiry. It is a no-op
// when nothing is running.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID != "" {
		s.log.Debug().Str("room_id", s.roomID).Msg("simulator stopped")
	}
	s.stopLocked()
}

func (s *Simulator) stopLocked() {
	for _, t := range s.tasks {
		t.Stop()
	}
	s.tasks = nil
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	s.typing = ""
	s.notice = nil
	s.roomID = ""
	s.run++
}

// guard runs fn under the lock only while run is still the active run.
func (s *Simulator) guard(run uint64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run != s.run || s.roomID == "" {
		return
	}
	fn()
}

func (s *Simulator) pick() core.PresenceEntry {
	return Roster[s.rnd.IntN(len(Roster))]
}

func (s *Simulator) messageTick() {
	if s.rnd.Float64() >= s.cfg.MessageProbability {
		return
	}
	member := s.pick()
	phrase := Phrases[s.rnd.IntN(len(Phrases))]

	msg, err := s.out.Append(context.Background(), messages.Draft{
		SenderID:          member.UserID,
		SenderDisplayName: member.DisplayName,
		Body:              phrase,
		Kind:              core.MessageText,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("room_id", s.roomID).Msg("simulated message dropped")
		return
	}
	s.log.Debug().Str("room_id", s.roomID).Str("sender", member.DisplayName).Msg("simulated message")
	s.emit(core.Event{Kind: core.EventMessage, RoomID: s.roomID, Message: &msg})
}

func (s *Simulator) typingTick() {
	if s.rnd.Float64() >= s.cfg.TypingProbability {
		return
	}
	member := s.pick()

	// A new episode replaces the previous one and its expiry.
	if s.expiry != nil {
		s.expiry.Stop()
	}
	s.episode++
	run, episode := s.run, s.episode
	s.typing = member.DisplayName
	s.expiry = s.sched.After(s.cfg.TypingDuration, func() {
		s.guard(run, func() { s.clearTyping(episode) })
	})

	s.log.Debug().Str("room_id", s.roomID).Str("user", member.DisplayName).Msg("simulated typing")
	s.emit(core.Event{Kind: core.EventTyping, RoomID: s.roomID, Typing: member.DisplayName})
}

func (s *Simulator) clearTyping(episode uint64) {
	if episode != s.episode || s.typing == "" {
		return
	}
	s.typing = ""
	s.expiry = nil
	s.emit(core.Event{Kind: core.EventTypingCleared, RoomID: s.roomID})
}

func (s *Simulator) noticeTick() {
	if s.rnd.Float64() >= s.cfg.NoticeProbability {
		return
	}
	member := s.pick()
	kind := core.NoticeLeft
	if s.rnd.Float64() > 0.5 {
		kind = core.NoticeJoined
	}

	n := &core.Notice{Kind: kind, UserID: member.UserID, DisplayName: member.DisplayName, At: s.clock.Now()}
	s.notice = n
	s.log.Debug().Str("room_id", s.roomID).Str("notice", n.Text()).Msg("simulated notice")
	s.emit(core.Event{Kind: core.EventNotice, RoomID: s.roomID, Notice: n})
}

// Running reports the room the generators are armed for.
func (s *Simulator) Running() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID, s.roomID != ""
}

// Typing returns the display name of whoever is typing right now.
func (s *Simulator) Typing() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing, s.typing != ""
}

// LastNotice returns the most recent join/leave notice of the current run.
func (s *Simulator) LastNotice() (core.Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return core.Notice{}, false
	}
	return *s.notice, true
}

// Presence returns a copy of the roster. Status never changes.
func (s *Simulator) Presence() []core.PresenceEntry {
	out := make([]core.PresenceEntry, len(Roster))
	copy(out, Roster)
	return out
}
