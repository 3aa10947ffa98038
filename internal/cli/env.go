package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/secfit/ip-protector/internal/config"
	"github.com/secfit/ip-protector/internal/registry"
	"github.com/secfit/ip-protector/internal/store"
	"github.com/secfit/ip-protector/internal/store/postgres"
	"github.com/secfit/ip-protector/internal/store/redisstore"
	"github.com/secfit/ip-protector/internal/store/sqlite"
)

// env is the per-invocation runtime: configuration, logger, and an open
// registry over the configured store.
type env struct {
	cfg      config.Config
	logger   *slog.Logger
	store    store.Store
	registry *registry.Service
}

// openEnv loads configuration and opens the store. Failures are tagged
// with ErrCodeConfig or ErrCodeStore.
func openEnv(ctx context.Context, opts *RootOptions, logOut io.Writer) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, withCode(ErrCodeConfig, err)
	}
	return openEnvWith(ctx, opts, cfg, logOut)
}

func openEnvWith(ctx context.Context, opts *RootOptions, cfg config.Config, logOut io.Writer) (*env, error) {
	logger, err := newLogger(cfg.Log, opts.Verbose, logOut)
	if err != nil {
		return nil, withCode(ErrCodeConfig, err)
	}

	logger.Debug("opening store", "backend", cfg.Store.Backend)
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, withCode(ErrCodeStore, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err))
	}

	var regOpts []registry.Option
	if opts.Clock != nil {
		regOpts = append(regOpts, registry.WithClock(opts.Clock))
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		registry: registry.New(st, regOpts...),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing store", "error", err)
	}
}

// health returns the store's health probe, or nil if it has none.
func (e *env) health() func(context.Context) error {
	if h, ok := e.store.(interface{ Health(context.Context) error }); ok {
		return h.Health
	}
	return nil
}

// openStore opens the backend selected by cfg.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemStore(), nil
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	case config.BackendRedis:
		return redisstore.Open(ctx, cfg.RedisURL, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// newLogger builds the slog logger for an invocation. Verbose forces debug.
func newLogger(cfg config.LogConfig, verbose bool, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler), nil
}
