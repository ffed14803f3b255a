package rooms

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	gonanoid "github.com/jaevor/go-nanoid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/store"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// DefaultRooms seed the catalog on first run.
var DefaultRooms = []core.Room{
	{ID: "room_1", Name: "General Chat", JoinCode: "GEN001"},
	{ID: "room_2", Name: "Developers Hub", JoinCode: "DEV002"},
	{ID: "room_3", Name: "Random", JoinCode: "RND003"},
}

// Registry is the room catalog plus the current-room pointer.
type Registry struct {
	mu      sync.Mutex
	st      store.Store
	log     *zerolog.Logger
	newCode func() string

	rooms   []core.Room
	current *core.Room
}

// NewRegistry loads the catalog and current room from st. Missing or corrupt
// values fall back to the seeded catalog and no current room.
func NewRegistry(ctx context.Context, st store.Store, logger *zerolog.Logger) (*Registry, error) {
	gen, err := gonanoid.CustomASCII(codeAlphabet, codeLength)
	if err != nil {
		return nil, fmt.Errorf("join code generator: %w", err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	r := &Registry{st: st, log: logger, newCode: gen}

	var catalog []core.Room
	if store.LoadJSON(ctx, st, store.KeyRooms, &catalog, logger) {
		r.rooms = catalog
	} else {
		r.rooms = append([]core.Room(nil), DefaultRooms...)
	}

	var current core.Room
	if store.LoadJSON(ctx, st, store.KeyCurrentRoom, &current, logger) && current.ID != "" {
		r.current = &current
	}
	return r, nil
}

// List returns the catalog in insertion order.
func (r *Registry) List() []core.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Room, len(r.rooms))
	copy(out, r.rooms)
	return out
}

// Current returns the entered room, if any.
func (r *Registry) Current() (core.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return core.Room{}, false
	}
	return *r.current, true
}

// Create adds a room with a fresh join code and enters it. Names are not
// required to be unique.
func (r *Registry) Create(ctx context.Context, name string) (core.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Room{}, core.ErrEmptyRoomName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room := core.Room{
		ID:       "room_" + uuid.NewString(),
		Name:     name,
		JoinCode: r.uniqueCode(),
	}

	catalog := append(append([]core.Room(nil), r.rooms...), room)
	if err := store.SaveJSON(ctx, r.st, store.KeyRooms, catalog); err != nil {
		return core.Room{}, err
	}
	r.rooms = catalog

	if err := r.setCurrent(ctx, room); err != nil {
		return core.Room{}, err
	}
	r.log.Info().Str("room_id", room.ID).Str("name", room.Name).Str("code", room.JoinCode).Msg("room created")
	return room, nil
}

// uniqueCode draws join codes until one is not taken. Caller holds r.mu.
func (r *Registry) uniqueCode() string {
	for {
		code := r.newCode()
		taken := false
		for _, existing := range r.rooms {
			if strings.EqualFold(existing.JoinCode, code) {
				taken = true
				break
			}
		}
		if !taken {
			return code
		}
	}
}

// Join enters the first room whose name or join code matches nameOrCode
// case-insensitively.
func (r *Registry) Join(ctx context.Context, nameOrCode string) (core.Room, error) {
	query := strings.TrimSpace(nameOrCode)
	if query == "" {
		return core.Room{}, core.ErrEmptyRoomName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, room := range r.rooms {
		if strings.EqualFold(room.Name, query) || strings.EqualFold(room.JoinCode, query) {
			if err := r.setCurrent(ctx, room); err != nil {
				return core.Room{}, err
			}
			r.log.Info().Str("room_id", room.ID).Str("name", room.Name).Msg("room joined")
			return room, nil
		}
	}
	return core.Room{}, core.ErrRoomNotFound
}

func (r *Registry) setCurrent(ctx context.Context, room core.Room) error {
	if err := store.SaveJSON(ctx, r.st, store.KeyCurrentRoom, room); err != nil {
		return err
	}
	r.current = &room
	return nil
}

// Leave clears the current room. It reports the room that was left.
func (r *Registry) Leave(ctx context.Context) (core.Room, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return core.Room{}, false, nil
	}
	if err := r.st.Delete(ctx, store.KeyCurrentRoom); err != nil {
		return core.Room{}, false, fmt.Errorf("delete current room: %w", err)
	}
	left := *r.current
	r.current = nil
	r.log.Info().Str("room_id", left.ID).Str("name", left.Name).Msg("room left")
	return left, true, nil
}
