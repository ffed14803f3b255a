package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Keys used by the engine. Message sequences live under MessagesKey(roomID).
const (
	KeySessionUser  = "session:user"
	KeySessionToken = "session:token"
	KeyTheme        = "session:theme"
	KeyRooms        = "rooms"
	KeyCurrentRoom  = "rooms:current"
	messagesPrefix  = "messages:"
)

// MessagesKey returns the key holding the message sequence of roomID.
func MessagesKey(roomID string) string {
	return messagesPrefix + roomID
}

// Store is a durable key to serialized-value map. Every Put replaces the
// whole value; there is no partial update.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}
