package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Storage drivers accepted by StorageConfig.Driver.
const (
	DriverSQLite = "sqlite"
	DriverPebble = "pebble"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config holds engine and presentation server configuration values.
type Config struct {
	LogLevel          string          `mapstructure:"log_level" yaml:"log_level"`
	Addr              string          `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration   `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	Storage           StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Auth              AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Simulator         SimulatorConfig `mapstructure:"simulator" yaml:"simulator"`
	Attachment        AttachConfig    `mapstructure:"attachment" yaml:"attachment"`
	RateLimit         RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// StorageConfig selects the durable key-value backend.
type StorageConfig struct {
	Driver        string `mapstructure:"driver" yaml:"driver"`
	Path          string `mapstructure:"path" yaml:"path"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
}

// AuthConfig holds session token and verification settings.
type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret" yaml:"token_secret"`
	TokenIssuer string        `mapstructure:"token_issuer" yaml:"token_issuer"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	OTPCode     string        `mapstructure:"otp_code" yaml:"otp_code"`
	BcryptCost  int           `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// SimulatorConfig tunes the activity generators.
type SimulatorConfig struct {
	MessagePeriod      time.Duration `mapstructure:"message_period" yaml:"message_period"`
	MessageProbability float64       `mapstructure:"message_probability" yaml:"message_probability"`
	TypingPeriod       time.Duration `mapstructure:"typing_period" yaml:"typing_period"`
	TypingProbability  float64       `mapstructure:"typing_probability" yaml:"typing_probability"`
	TypingDuration     time.Duration `mapstructure:"typing_duration" yaml:"typing_duration"`
	NoticePeriod       time.Duration `mapstructure:"notice_period" yaml:"notice_period"`
	NoticeProbability  float64       `mapstructure:"notice_probability" yaml:"notice_probability"`
}

// AttachConfig limits attachment payloads. MaxSize accepts human sizes like "5MiB".
type AttachConfig struct {
	MaxSize string `mapstructure:"max_size" yaml:"max_size"`
}

// RateLimitConfig throttles message posting through the HTTP surface.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" yaml:"rps"`
	Burst int     `mapstructure:"burst" yaml:"burst"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel:          "info",
		Addr:              "127.0.0.1:8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   "hashchat.db",
		},
		Auth: AuthConfig{
			TokenSecret: "hashchat-local-secret",
			TokenIssuer: "hashchat",
			TokenTTL:    30 * 24 * time.Hour,
			OTPCode:     "1234",
			BcryptCost:  10,
		},
		Simulator: SimulatorConfig{
			MessagePeriod:      15 * time.Second,
			MessageProbability: 0.3,
			TypingPeriod:       10 * time.Second,
			TypingProbability:  0.2,
			TypingDuration:     3 * time.Second,
			NoticePeriod:       20 * time.Second,
			NoticeProbability:  0.15,
		},
		Attachment: AttachConfig{
			MaxSize: "5MiB",
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
	}
}

// UpdateFrom overwrites non-zero top-level values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.Storage.Driver != "" {
		c.Storage.Driver = other.Storage.Driver
	}
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if other.Storage.RedisAddr != "" {
		c.Storage.RedisAddr = other.Storage.RedisAddr
	}
}

// MaxAttachmentBytes parses Attachment.MaxSize. Plain integers are bytes.
func (c Config) MaxAttachmentBytes() (int64, error) {
	raw := strings.TrimSpace(c.Attachment.MaxSize)
	if raw == "" {
		return 0, fmt.Errorf("attachment.max_size is empty")
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return int64(v), nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i, nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverPebble:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for driver %q", c.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth.token_secret is required")
	}
	if !isFourDigits(c.Auth.OTPCode) {
		return fmt.Errorf("auth.otp_code must have 4 digits")
	}
	s := c.Simulator
	if s.MessagePeriod <= 0 || s.TypingPeriod <= 0 || s.NoticePeriod <= 0 || s.TypingDuration <= 0 {
		return fmt.Errorf("simulator periods must be positive")
	}
	if _, err := c.MaxAttachmentBytes(); err != nil {
		return err
	}
	return nil
}

func isFourDigits(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
