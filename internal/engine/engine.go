package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/planforge/planmode/internal/config"
	"github.com/planforge/planmode/internal/database"
	"github.com/planforge/planmode/internal/events"
	"github.com/planforge/planmode/internal/plan"
	"github.com/planforge/planmode/internal/session"
)

// Engine wires the plan mode subsystems together: configuration,
// persistence, the event bus, the session registry, and the plan
// manager. The host process embeds one Engine and drives it from its
// turn-completion and command handlers.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *database.DB
	bus      *events.Bus
	sessions *session.Registry
	store    database.PlanStateDAO
	plans    *plan.Manager
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger overrides the logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New builds an engine from the given configuration, opens its
// database, and restores any plans that were proposed or executing when
// the process last stopped.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	e := &Engine{
		cfg:    cfg,
		logger: newLogger(cfg),
	}

	for _, opt := range opts {
		opt(e)
	}

	db, err := database.OpenWithConfig(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxConnections / 2,
		BusyTimeout:     cfg.Database.BusyTimeout,
		ConnMaxLifetime: database.DefaultConfig(cfg.Database.Path).ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}
	e.db = db

	e.bus = events.NewBus(e.logger, events.WithBufferSize(cfg.Events.BufferSize))
	e.sessions = session.NewRegistry(e.logger)
	e.store = database.NewPlanStateDAO(db, e.logger)

	managerOpts := []plan.ManagerOption{plan.WithLogger(e.logger)}
	if cfg.Tracing.Enabled {
		managerOpts = append(managerOpts, plan.WithTracer(tracer()))
	}
	e.plans = plan.NewManager(e.sessions, e.bus, e.store, managerOpts...)

	if err := e.restore(context.Background()); err != nil {
		// A failed restore scan is not fatal: sessions simply start
		// idle, the same as after a malformed record.
		e.logger.Warn("failed to restore persisted plan states", "error", err)
	}

	return e, nil
}

// Plans returns the plan manager.
func (e *Engine) Plans() *plan.Manager {
	return e.plans
}

// Sessions returns the session registry.
func (e *Engine) Sessions() *session.Registry {
	return e.sessions
}

// Events returns the event bus observers subscribe to.
func (e *Engine) Events() *events.Bus {
	return e.bus
}

// DB returns the underlying database handle.
func (e *Engine) DB() *database.DB {
	return e.db
}

// Close drains outstanding persistence writes and releases resources.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.plans.Close(); err != nil {
		firstErr = err
	}
	if err := e.bus.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// restore reloads every persisted state with an active plan into the
// manager. States that were neither proposed nor executing carry no
// commitment and are left for the DAO's active filter to skip.
func (e *Engine) restore(ctx context.Context) error {
	restored, err := e.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing active plan states: %w", err)
	}

	for _, r := range restored {
		e.plans.RestoreState(r.SessionID, r.State)
	}

	if len(restored) > 0 {
		e.logger.Info("restored active plans", "count", len(restored))
	}
	return nil
}

// newLogger builds the engine logger from the logging configuration.
func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)
	if cfg.Core.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// tracer returns a tracer from the globally registered provider. The
// host process is responsible for exporter wiring.
func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer("github.com/planforge/planmode")
}
