// Package app provides application initialization and dependency injection.
//
// App is the container that wires the chat service together: configuration,
// logger, database pool (with migrations), conversation store, tool
// registry, model client, orchestrator, and the HTTP server. Everything is
// created once at startup and injected explicitly.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floatchat/floatchat/db"
	"github.com/floatchat/floatchat/internal/api"
	"github.com/floatchat/floatchat/internal/chat"
	"github.com/floatchat/floatchat/internal/config"
	"github.com/floatchat/floatchat/internal/conversation"
	"github.com/floatchat/floatchat/internal/i18n"
	"github.com/floatchat/floatchat/internal/log"
	"github.com/floatchat/floatchat/internal/model"
	"github.com/floatchat/floatchat/internal/tools"
)

// App is the core application container.
type App struct {
	Config       *config.Config
	Logger       log.Logger
	Pool         *pgxpool.Pool
	Store        *conversation.Store
	Registry     *tools.Registry
	Model        *model.Client
	Orchestrator *chat.Orchestrator
	Server       *api.Server
}

// Setup builds the full application from configuration.
//
// Order matters: migrations run before the pool is handed to the store,
// and tools are registered with Genkit before the orchestrator captures
// the provider references.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	i18n.Init(cfg.Language)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := conversation.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	store := conversation.New(pool, logger)

	client, err := model.New(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	registry := tools.NewRegistry(logger)
	for _, t := range []*tools.Tool{
		tools.NewWeather(logger),
		tools.NewCurrentTime(logger),
	} {
		if err := registry.Register(t); err != nil {
			pool.Close()
			return nil, fmt.Errorf("registering tool: %w", err)
		}
	}
	toolRefs := registry.Define(client.Genkit())

	orch, err := chat.NewOrchestrator(store, registry, client, toolRefs, chat.Config{
		MaxToolRounds:  cfg.MaxToolRounds,
		SessionTimeout: cfg.SessionTimeout,
		Retry:          chat.DefaultRetryConfig(),
		Breaker:        chat.DefaultCircuitBreakerConfig(),
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	server, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Store:       store,
		Turns:       orch,
		Pool:        pool,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateRPS:     cfg.RateLimitRPS,
		RateBurst:   cfg.RateLimitBurst,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating server: %w", err)
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		Pool:         pool,
		Store:        store,
		Registry:     registry,
		Model:        client,
		Orchestrator: orch,
		Server:       server,
	}, nil
}

// Handler returns the HTTP handler for the service.
func (a *App) Handler() http.Handler {
	return a.Server.Handler()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}

	return nil
}
