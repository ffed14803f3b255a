package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config to be written: %v", err)
	}

	def := Default()
	if cfg.Storage.Driver != def.Storage.Driver || cfg.Auth.OTPCode != def.Auth.OTPCode {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.Simulator.TypingDuration != 3*time.Second {
		t.Fatalf("expected typing duration 3s, got %v", cfg.Simulator.TypingDuration)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "storage:\n  driver: pebble\n  path: /tmp/hashchat-pebble\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HASHCHAT_STORAGE_DRIVER", "memory")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("expected env override to memory, got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "/tmp/hashchat-pebble" {
		t.Fatalf("expected path from file, got %q", cfg.Storage.Path)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level from file, got %q", cfg.LogLevel)
	}
}

func TestMaxAttachmentBytes(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "5MiB", want: 5 * 1024 * 1024},
		{raw: "5MB", want: 5_000_000},
		{raw: "1024", want: 1024},
		{raw: "", wantErr: true},
		{raw: "lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cfg := Default()
			cfg.Attachment.MaxSize = tt.raw
			got, err := cfg.MaxAttachmentBytes()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	cfg.Storage.Driver = "floppy"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown driver to be rejected")
	}

	cfg = Default()
	cfg.Storage.Driver = DriverRedis
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected redis without address to be rejected")
	}
}

func TestValidateOTPCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{code: "1234", valid: true},
		{code: "0000", valid: true},
		{code: "abcd", valid: false},
		{code: "12a4", valid: false},
		{code: "123", valid: false},
		{code: "12345", valid: false},
		{code: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.OTPCode = tt.code
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Fatalf("expected %q to be accepted: %v", tt.code, err)
			}
			if !tt.valid && err == nil {
				t.Fatalf("expected %q to be rejected", tt.code)
			}
		})
	}
}
