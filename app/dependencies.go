package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/waqf-policy-engine/config"
	"github.com/upb/waqf-policy-engine/internal/observability"
	"github.com/upb/waqf-policy-engine/internal/shared"
	"github.com/upb/waqf-policy-engine/middleware"
	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/repositories/memory"
	"github.com/upb/waqf-policy-engine/repositories/postgres"
	"github.com/upb/waqf-policy-engine/repositories/sqlite"
	"github.com/upb/waqf-policy-engine/services/audit"
	"github.com/upb/waqf-policy-engine/services/documents"
	"github.com/upb/waqf-policy-engine/services/invariant"
	"github.com/upb/waqf-policy-engine/services/notify"
	"github.com/upb/waqf-policy-engine/services/policy"
	"go.uber.org/zap"
)

const dispatcherStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Store   repositories.DocumentStore
	Clock   shared.Clock
	Metrics *observability.Metrics

	// Policy
	Engine    *policy.Engine
	Documents *documents.Service
	Emitter   *audit.Emitter
	Alerts    *notify.Dispatcher

	// HTTP
	AuthMiddleware *middleware.AuthMiddleware
	Throttle       *middleware.Throttle
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
		Clock:  shared.SystemClock{},
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	if err := deps.initPolicy(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	if err := deps.initAuth(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	if cfg.Throttle.Enabled {
		deps.Throttle = middleware.NewThrottle(cfg.Throttle.RequestsPerSecond, cfg.Throttle.Burst, logger)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("store", cfg.Store.Driver))
	return deps, nil
}

// initStore opens the configured document store
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		d.Store = memory.NewStore(d.Logger)
		d.Logger.Warn("using in-memory document store, data is lost on restart")

	case config.StoreDriverPostgres:
		repo, err := postgres.Open(ctx, cfg.Store.Database, d.Logger)
		if err != nil {
			return err
		}
		d.Store = repo
		d.Logger.Info("database connection established",
			zap.String("connection", cfg.Store.Database.LogString()))

	case config.StoreDriverSQLite:
		repo, err := sqlite.Open(ctx, cfg.Store.SQLitePath, d.Logger)
		if err != nil {
			return err
		}
		d.Store = repo

	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	return d.Store.Ping(ctx)
}

// initPolicy builds the engine, the guarded pipeline and the default hooks
func (d *Dependencies) initPolicy(cfg *config.Config) error {
	if cfg.Observability.MetricsEnabled {
		d.Metrics = observability.NewMetrics()
	}

	d.Alerts = notify.NewDispatcher(notify.NewLogNotifier(d.Logger), d.Logger, notify.DefaultConfig())
	if err := d.Alerts.Start(); err != nil {
		return err
	}

	d.Engine = policy.NewEngine(d.Metrics, d.Logger)
	d.Documents = documents.NewService(d.Store, d.Engine, d.Logger)
	d.Emitter = audit.NewEmitter(d.Documents, d.Alerts, d.Clock, d.Logger)

	policy.RegisterDefaults(d.Engine, policy.Deps{
		Checker: invariant.NewChecker(d.Store, d.Clock, cfg.Policy, d.Logger),
		Emitter: d.Emitter,
		Logger:  d.Logger,
	})

	d.Logger.Info("policy engine initialized",
		zap.Strings("collections", d.Engine.Collections()))
	return nil
}

// initAuth configures bearer token verification
func (d *Dependencies) initAuth(cfg *config.Config) error {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("JWT secret not configured, every authenticated route returns 401")
		d.AuthMiddleware = middleware.NewAuthMiddleware(middleware.RejectAllValidator(), d.Logger)
		return nil
	}

	validator, err := middleware.NewJWTValidator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	if err != nil {
		return err
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain pending alerts before the store goes away
	if d.Alerts != nil {
		if err := d.Alerts.Stop(dispatcherStopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop alert dispatcher: %w", err))
		}
	}

	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close document store: %w", err))
		} else {
			d.Logger.Info("document store closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}

	return nil
}
