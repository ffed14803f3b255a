package pebble

import (
	"context"
	"errors"
	"fmt"
	"os"

	pebbledb "github.com/cockroachdb/pebble"
	"github.com/vovakirdan/hashchat-engine/internal/store"
)

// Store implements store.Store on a pebble LSM directory.
type Store struct {
	db *pebbledb.DB
}

var _ store.Store = (*Store)(nil)

// New opens (or creates) the pebble database at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create pebble dir: %w", err)
	}
	db, err := pebbledb.Open(dir, &pebbledb.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebbledb.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	// value is only valid until closer is closed
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put writes synchronously so the value is durable when Put returns.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if err := s.db.Set([]byte(key), value, pebbledb.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.db.Delete([]byte(key), pebbledb.Sync); err != nil {
		return fmt.Errorf("pebble delete: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
