package app

import (
	"context"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/vovakirdan/hashchat-engine/internal/config"
	"github.com/vovakirdan/hashchat-engine/internal/log"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Driver = driver
	cfg.Storage.Path = filepath.Join(t.TempDir(), "hashchat.db")
	cfg.Auth.BcryptCost = bcrypt.MinCost
	return &cfg
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenStore(context.Background(), config.StorageConfig{Driver: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, config.DriverMemory)
	cfg.Auth.OTPCode = "12"
	if _, err := New(context.Background(), cfg, log.Nop()); err == nil {
		t.Fatalf("expected config validation error")
	}
}

func TestSessionAndRoomSurviveRestart(t *testing.T) {
	for _, driver := range []string{config.DriverSQLite, config.DriverPebble} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, driver)

			first, err := New(ctx, cfg, log.Nop())
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if _, err := first.Engine().Session().Login(ctx, "harsh@hashchat.com", "password123"); err != nil {
				t.Fatalf("Login: %v", err)
			}
			if _, err := first.Engine().Join(ctx, "dev002"); err != nil {
				t.Fatalf("Join: %v", err)
			}
			if _, err := first.Engine().Send(ctx, "before restart"); err != nil {
				t.Fatalf("Send: %v", err)
			}
			first.Close()
			first.Close()

			second, err := New(ctx, cfg, log.Nop())
			if err != nil {
				t.Fatalf("New after restart: %v", err)
			}
			defer second.Close()

			identity := second.Engine().Session().Identity()
			if identity == nil || identity.ID != "2" {
				t.Fatalf("expected Harsh to be restored, got %+v", identity)
			}
			room, ok := second.Engine().CurrentRoom()
			if !ok || room.JoinCode != "DEV002" {
				t.Fatalf("expected DEV002 resumed, got %+v ok=%v", room, ok)
			}
			msgs := second.Engine().Messages()
			if len(msgs) == 0 || msgs[len(msgs)-1].Body != "before restart" {
				t.Fatalf("expected sent message to survive, got %+v", msgs)
			}
		})
	}
}
