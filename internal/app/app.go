package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/hashchat-engine/internal/attachment"
	"github.com/vovakirdan/hashchat-engine/internal/auth"
	"github.com/vovakirdan/hashchat-engine/internal/config"
	"github.com/vovakirdan/hashchat-engine/internal/core"
	"github.com/vovakirdan/hashchat-engine/internal/engine"
	"github.com/vovakirdan/hashchat-engine/internal/messages"
	"github.com/vovakirdan/hashchat-engine/internal/metrics"
	"github.com/vovakirdan/hashchat-engine/internal/rooms"
	"github.com/vovakirdan/hashchat-engine/internal/schedule"
	"github.com/vovakirdan/hashchat-engine/internal/simulator"
	"github.com/vovakirdan/hashchat-engine/internal/store"
	"github.com/vovakirdan/hashchat-engine/internal/store/memory"
	"github.com/vovakirdan/hashchat-engine/internal/store/pebble"
	"github.com/vovakirdan/hashchat-engine/internal/store/redis"
	"github.com/vovakirdan/hashchat-engine/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/hashchat-engine/internal/transport/http"
)

// App wires together the store, the engine and the transport layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	engine          *engine.Engine
	attachments     *attachment.Producer
	store           store.Store
	log             *zerolog.Logger
	closeOnce       sync.Once
}

// New constructs the application with provided configuration. The stored
// session and current room are restored before it returns.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	maxBytes, err := cfg.MaxAttachmentBytes()
	if err != nil {
		return nil, err
	}

	st, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("driver", cfg.Storage.Driver).Str("path", cfg.Storage.Path).Msg("store initialized")

	dir, err := auth.NewDirectory(cfg.Auth.BcryptCost, auth.DefaultCredentials...)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init directory: %w", err)
	}

	clk := clock.New()
	session := auth.NewSessionStore(ctx, st, auth.Options{
		Directory: dir,
		Tokens: auth.TokenConfig{
			Secret: []byte(cfg.Auth.TokenSecret),
			Issuer: cfg.Auth.TokenIssuer,
			TTL:    cfg.Auth.TokenTTL,
		},
		OTPCode:    cfg.Auth.OTPCode,
		BcryptCost: cfg.Auth.BcryptCost,
		Clock:      clk,
		ApplyTheme: func(t core.Theme) {
			logger.Debug().Str("theme", string(t)).Msg("theme applied")
		},
	}, logger)

	registry, err := rooms.NewRegistry(ctx, st, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init rooms: %w", err)
	}

	m := metrics.New()
	eng := engine.New(engine.Options{
		Session:   session,
		Rooms:     registry,
		Log:       messages.New(st, clk, logger),
		Simulator: simulator.Config(cfg.Simulator),
		Scheduler: schedule.NewLive(clk),
		Clock:     clk,
		Metrics:   m,
	}, logger)
	if err := eng.Init(ctx); err != nil {
		eng.Close()
		st.Close()
		return nil, fmt.Errorf("resume session: %w", err)
	}

	producer := attachment.NewProducer(maxBytes, logger)
	server := transporthttp.NewServer(transporthttp.Deps{
		Engine:      eng,
		Attachments: producer,
		Metrics:     m,
	}, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		engine:          eng,
		attachments:     producer,
		store:           st,
		log:             logger,
	}, nil
}

// OpenStore opens the backend named by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.New(cfg.Path)
	case config.DriverPebble:
		return pebble.New(cfg.Path)
	case config.DriverRedis:
		return redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Engine returns the chat engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Attachments returns the attachment producer.
func (a *App) Attachments() *attachment.Producer {
	return a.attachments
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.Close()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Close()
			return err
		}

		a.Close()
		return <-serverErr
	}
}

// Close stops the engine timers and closes the store. Persisted state is
// kept. Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.engine.Close()
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Debug().Msg("store closed")
		}
	})
}
