package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/hashchat-engine/internal/store"
	"github.com/vovakirdan/hashchat-engine/internal/store/storetest"
)

func TestSQLiteStoreContract(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	storetest.Run(t, s)
}

func TestPutGetDelete(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "first write", key: "rooms", value: `[{"id":"room_1"}]`},
		{name: "overwrite replaces in full", key: "rooms", value: `[]`},
		{name: "room scoped key", key: store.MessagesKey("room_1"), value: `[{"id":"m1"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Put(ctx, tt.key, []byte(tt.value)); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, err := s.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got) != tt.value {
				t.Errorf("expected %s, got %s", tt.value, got)
			}
		})
	}

	if err := s.Delete(ctx, "rooms"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "rooms"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "rooms"); err != nil {
		t.Fatalf("deleting a missing key should not fail: %v", err)
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashchat.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Put(ctx, store.KeyTheme, []byte(`"dark"`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, store.KeyTheme)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != `"dark"` {
		t.Fatalf("expected \"dark\", got %s", got)
	}
}

func TestNewWithSetupSeedsRows(t *testing.T) {
	s, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(`INSERT INTO kv (key, value) VALUES ('rooms', '{not json')`)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	var rooms []map[string]string
	if store.LoadJSON(context.Background(), s, "rooms", &rooms, nil) {
		t.Fatalf("expected corrupt value to be reported as missing")
	}
	if rooms != nil {
		t.Fatalf("expected destination untouched, got %v", rooms)
	}
}
