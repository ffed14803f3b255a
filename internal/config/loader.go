package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigDefaultPath = "HASHCHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
	dotEnvName           = ".env"
)

// Load builds configuration from defaults, optional config file, .env file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars (including .env) < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	loadDotEnv(logger)

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("HASHCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)

	v.SetDefault("storage.driver", cfg.Storage.Driver)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.redis_addr", cfg.Storage.RedisAddr)
	v.SetDefault("storage.redis_password", cfg.Storage.RedisPassword)
	v.SetDefault("storage.redis_db", cfg.Storage.RedisDB)

	v.SetDefault("auth.token_secret", cfg.Auth.TokenSecret)
	v.SetDefault("auth.token_issuer", cfg.Auth.TokenIssuer)
	v.SetDefault("auth.token_ttl", cfg.Auth.TokenTTL)
	v.SetDefault("auth.otp_code", cfg.Auth.OTPCode)
	v.SetDefault("auth.bcrypt_cost", cfg.Auth.BcryptCost)

	v.SetDefault("simulator.message_period", cfg.Simulator.MessagePeriod)
	v.SetDefault("simulator.message_probability", cfg.Simulator.MessageProbability)
	v.SetDefault("simulator.typing_period", cfg.Simulator.TypingPeriod)
	v.SetDefault("simulator.typing_probability", cfg.Simulator.TypingProbability)
	v.SetDefault("simulator.typing_duration", cfg.Simulator.TypingDuration)
	v.SetDefault("simulator.notice_period", cfg.Simulator.NoticePeriod)
	v.SetDefault("simulator.notice_probability", cfg.Simulator.NoticeProbability)

	v.SetDefault("attachment.max_size", cfg.Attachment.MaxSize)

	v.SetDefault("rate_limit.rps", cfg.RateLimit.RPS)
	v.SetDefault("rate_limit.burst", cfg.RateLimit.Burst)
}

// loadDotEnv exports variables from ./.env without overriding the real environment.
func loadDotEnv(logger *zerolog.Logger) {
	if _, err := os.Stat(dotEnvName); err != nil {
		return
	}
	if err := godotenv.Load(dotEnvName); err != nil && logger != nil {
		logger.Warn().Err(err).Str("path", dotEnvName).Msg("failed to load .env")
	}
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
