// Package storetest holds a behavioural suite shared by store.Store backends.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/vovakirdan/hashchat-engine/internal/store"
)

// Run exercises the store.Store contract against st.
func Run(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := st.Get(ctx, "storetest:missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}

	key := store.MessagesKey("storetest")
	if err := st.Put(ctx, key, []byte(`["a"]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := st.Put(ctx, key, []byte(`["a","b"]`)); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	got, err := st.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `["a","b"]` {
		t.Fatalf("expected last full write to win, got %s", got)
	}

	// Mutating the returned slice must not leak into the store.
	got[0] = 'X'
	again, err := st.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(again) != `["a","b"]` {
		t.Fatalf("stored value was aliased: %s", again)
	}

	if err := st.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := st.Get(ctx, key); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.Delete(ctx, key); err != nil {
		t.Fatalf("deleting a missing key should not fail: %v", err)
	}
}
