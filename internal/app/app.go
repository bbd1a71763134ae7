// Package app assembles the stockwatch components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/restock-systems/stockwatch/common/logging"
	natsclient "github.com/restock-systems/stockwatch/common/messaging/nats"
	"github.com/restock-systems/stockwatch/internal/auth"
	"github.com/restock-systems/stockwatch/internal/composer"
	"github.com/restock-systems/stockwatch/internal/config"
	"github.com/restock-systems/stockwatch/internal/credentials"
	"github.com/restock-systems/stockwatch/internal/dispatcher"
	"github.com/restock-systems/stockwatch/internal/handlers"
	"github.com/restock-systems/stockwatch/internal/idempotency"
	"github.com/restock-systems/stockwatch/internal/models"
	"github.com/restock-systems/stockwatch/internal/relay"
	"github.com/restock-systems/stockwatch/internal/repository"
	"github.com/restock-systems/stockwatch/internal/server"
	"github.com/restock-systems/stockwatch/internal/service"
)

// App holds the wired components and the resources they own.
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Service    *service.Service
	Handler    http.Handler
	Dispatcher *dispatcher.Dispatcher
	Tokens     credentials.TokenSource
	Credential *models.ServiceCredential

	redis   *redis.Client
	nats    *natsclient.Client
	repo    repository.Repository
	worker  *relay.Worker
	closers []func() error
}

// New builds every component cfg enables. Components whose settings are
// missing stay nil; the operations that need them fail their requirement
// check with ErrConfiguration instead.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	if err := a.connect(); err != nil {
		a.Close()
		return nil, err
	}

	a.buildPush()

	comp, err := a.buildComposer(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	rel := a.buildRelay()
	if err := a.startWorker(); err != nil {
		a.Close()
		return nil, err
	}

	repo, err := a.buildRepository(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.repo = repo

	opts := service.Options{
		Composer:       comp,
		Relay:          rel,
		Repository:     repo,
		Validator:      a.buildValidator(),
		Idempotency:    a.buildIdempotency(),
		IdempotencyTTL: cfg.Idempotency.TTL,
		ServiceKey:     cfg.Relay.ServiceKey,
		QueryTimeout:   cfg.Datastore.Timeout,
		Requirements: service.Requirements{
			Analyzer: func() error {
				if err := cfg.RequireAnalyzer(); err != nil {
					return err
				}
				if rel == nil {
					return fmt.Errorf("%w: relay %q unavailable", models.ErrConfiguration, cfg.Relay.Mode)
				}
				return nil
			},
			Push: func() error {
				if err := cfg.RequirePush(); err != nil {
					return err
				}
				if a.Dispatcher == nil {
					_, err := cfg.ServiceCredential()
					return err
				}
				return nil
			},
			Report: cfg.RequireReport,
		},
		Logger: logger,
	}
	if a.Dispatcher != nil {
		opts.Dispatcher = a.Dispatcher
	}
	a.Service = service.New(opts)

	h := handlers.NewHandler(a.Service, logger).WithReadiness(a.Ready)
	a.Handler = server.NewRouter(h, server.RouterConfig{
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	}, logger)

	return a, nil
}

// connect opens the shared Redis and NATS connections.
func (a *App) connect() error {
	cfg := a.Config
	if cfg.Redis.Enabled {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		opt.MaxRetries = cfg.Redis.MaxRetries
		opt.PoolSize = cfg.Redis.PoolSize
		client := redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("redis connection failed: %w", err)
		}
		a.redis = client
		a.closers = append(a.closers, client.Close)
		a.Logger.Info("connected to redis")
	}

	if cfg.NATS.Enabled {
		nc := natsclient.DefaultConfig()
		nc.URL = cfg.NATS.URL
		nc.MaxReconnects = cfg.NATS.MaxReconnects
		nc.ReconnectWait = cfg.NATS.ReconnectWait
		nc.Timeout = cfg.NATS.Timeout
		client, err := natsclient.NewClient(nc, a.Logger.Logger)
		if err != nil {
			return err
		}
		a.nats = client
		a.closers = append(a.closers, client.Drain)
		a.Logger.Info("connected to NATS", "url", cfg.NATS.URL)
	}
	return nil
}

// buildPush wires the token exchange and, when the service credential
// parses, the dispatcher.
func (a *App) buildPush() {
	cfg := a.Config

	var cache credentials.TokenCache = credentials.NewMemoryTokenCache()
	if a.redis != nil {
		cache = credentials.NewRedisTokenCache(a.redis)
	}
	exchanger := credentials.NewExchanger(
		credentials.WithTokenURL(cfg.Push.TokenURL),
		credentials.WithHTTPClient(&http.Client{Timeout: cfg.Push.Timeout}),
	)
	a.Tokens = credentials.NewCachingExchanger(exchanger, cache, cfg.Push.TokenRefreshMargin, a.Logger)

	if cfg.Push.ServiceAccount == "" {
		return
	}
	cred, err := cfg.ServiceCredential()
	if err != nil {
		a.Logger.Warn("push credential unusable, dispatch disabled", logging.Error(err))
		return
	}
	a.Credential = cred
	a.Dispatcher = dispatcher.New(a.Tokens, cred, dispatcher.Config{
		GatewayURL:     cfg.Push.GatewayURL,
		Timeout:        cfg.Push.Timeout,
		MaxAttempts:    cfg.Push.MaxAttempts,
		InitialBackoff: cfg.Push.InitialBackoff,
	}, a.Logger)
}

func (a *App) buildComposer(ctx context.Context) (*composer.Composer, error) {
	cfg := a.Config
	var gen composer.Generator
	if cfg.GenAI.APIKey != "" {
		g, err := composer.NewGeminiGenerator(ctx, cfg.GenAI.APIKey, cfg.GenAI.Model)
		if err != nil {
			return nil, err
		}
		gen = g
	}
	return composer.New(gen, a.Logger, cfg.GenAI.Timeout), nil
}

// buildRelay returns nil when the selected mode lacks what it needs.
func (a *App) buildRelay() relay.Relay {
	cfg := a.Config
	switch cfg.Relay.Mode {
	case config.RelayHTTP:
		if cfg.Relay.URL == "" {
			return nil
		}
		return relay.NewHTTPRelay(cfg.Relay.URL, cfg.Relay.ServiceKey, cfg.Relay.Timeout)
	case config.RelayNATS:
		if a.nats == nil {
			return nil
		}
		return relay.NewNATSRelay(a.nats, cfg.Relay.Timeout)
	case config.RelayDirect:
		if a.Dispatcher == nil {
			return nil
		}
		return relay.NewDirectRelay(a.Dispatcher)
	}
	return nil
}

func (a *App) startWorker() error {
	if a.nats == nil || a.Dispatcher == nil || !a.Config.Relay.Worker {
		return nil
	}
	w := relay.NewWorker(a.nats, a.Dispatcher, a.Logger)
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start dispatch worker: %w", err)
	}
	a.worker = w
	// Runs before the NATS drain appended earlier.
	a.closers = append([]func() error{w.Stop}, a.closers...)
	return nil
}

func (a *App) buildRepository(ctx context.Context) (repository.Repository, error) {
	ds := a.Config.Datastore
	switch ds.Driver {
	case config.DriverPostgres:
		dsn := ds.Postgres.DSN()
		if ds.AutoMigrate {
			a.Logger.Info("running database migrations")
			if err := repository.Migrate(dsn, false); err != nil {
				return nil, err
			}
		}
		repo, err := repository.NewPostgresRepository(ctx, dsn, ds.Table, ds.OwnerColumn)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil
	case config.DriverREST:
		if ds.URL == "" {
			return nil, nil
		}
		return repository.NewRESTRepository(ds.URL, ds.ServiceKey, ds.Table, ds.OwnerColumn, ds.Timeout), nil
	}
	return nil, fmt.Errorf("%w: unknown datastore.driver %q", models.ErrConfiguration, ds.Driver)
}

func (a *App) buildValidator() auth.Validator {
	cfg := a.Config
	if cfg.Auth.JWTSecret != "" {
		return auth.NewJWTVerifier(cfg.Auth.JWTSecret)
	}
	if cfg.Auth.URL == "" {
		return nil
	}
	return a.AuthClient()
}

// AuthClient returns a client for the identity service.
func (a *App) AuthClient() *auth.Client {
	cfg := a.Config
	key := cfg.Auth.AnonKey
	if key == "" {
		key = cfg.Datastore.ServiceKey
	}
	return auth.NewClient(cfg.Auth.URL, key, cfg.Auth.Timeout)
}

func (a *App) buildIdempotency() idempotency.Store {
	if !a.Config.Idempotency.Enabled {
		return nil
	}
	if a.redis != nil {
		return idempotency.NewRedisStore(a.redis)
	}
	return idempotency.NewMemoryStore()
}

// Ready reports whether the backing stores answer.
func (a *App) Ready(ctx context.Context) error {
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if a.nats != nil && !a.nats.IsConnected() {
		return errors.New("nats: not connected")
	}
	if a.repo != nil {
		if err := a.repo.Ping(ctx); err != nil {
			return fmt.Errorf("datastore: %w", err)
		}
	}
	return nil
}

// Close releases every owned resource.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
